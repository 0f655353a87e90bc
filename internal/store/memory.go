package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/juris-labs/legal-assistant-backend/internal/models"
)

// MemoryStore is an ephemeral Store used when no MongoDB URI is configured.
// Contents are copied on the way in and out so callers never share state with
// the maps behind the mutex.
type MemoryStore struct {
	mu            sync.RWMutex
	users         map[primitive.ObjectID]models.User
	conversations map[primitive.ObjectID]models.Conversation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[primitive.ObjectID]models.User),
		conversations: make(map[primitive.ObjectID]models.Conversation),
	}
}

func (s *MemoryStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return ErrDuplicateEmail
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	s.users[user.ID] = *user
	return nil
}

func (s *MemoryStore) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			user := u
			return &user, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) FindUserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	user := u
	return &user, nil
}

func (s *MemoryStore) SetUserLanguage(_ context.Context, id primitive.ObjectID, language string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Language = language
	s.users[id] = u
	return nil
}

func (s *MemoryStore) CreateConversation(_ context.Context, conv *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conv.ID.IsZero() {
		conv.ID = primitive.NewObjectID()
	}
	s.conversations[conv.ID] = copyConversation(*conv)
	return nil
}

func (s *MemoryStore) FindConversation(_ context.Context, id primitive.ObjectID) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	conv := copyConversation(c)
	return &conv, nil
}

func (s *MemoryStore) ListConversations(_ context.Context, userID primitive.ObjectID) ([]models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conversations := []models.Conversation{}
	for _, c := range s.conversations {
		if c.UserID == userID {
			conversations = append(conversations, copyConversation(c))
		}
	}
	// Newest first, matching the Mongo sort.
	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].CreatedAt.After(conversations[j].CreatedAt)
	})
	return conversations, nil
}

func (s *MemoryStore) SaveConversation(_ context.Context, conv *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[conv.ID]; !ok {
		return ErrNotFound
	}
	s.conversations[conv.ID] = copyConversation(*conv)
	return nil
}

func (s *MemoryStore) DeleteConversation(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		return ErrNotFound
	}
	delete(s.conversations, id)
	return nil
}

func copyConversation(c models.Conversation) models.Conversation {
	messages := make([]models.Message, len(c.Messages))
	copy(messages, c.Messages)
	c.Messages = messages
	return c
}
