// Package store persists users and conversations. The Mongo implementation is
// the production path; the memory implementation backs local development and
// tests when no connection string is configured.
package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/juris-labs/legal-assistant-backend/internal/models"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

type Store interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	SetUserLanguage(ctx context.Context, id primitive.ObjectID, language string) error

	CreateConversation(ctx context.Context, conv *models.Conversation) error
	FindConversation(ctx context.Context, id primitive.ObjectID) (*models.Conversation, error)
	ListConversations(ctx context.Context, userID primitive.ObjectID) ([]models.Conversation, error)
	// SaveConversation replaces the stored document with conv as a whole;
	// message appends ride along with it.
	SaveConversation(ctx context.Context, conv *models.Conversation) error
	DeleteConversation(ctx context.Context, id primitive.ObjectID) error
}
