package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultTitle is assigned when a conversation is created without one.
const DefaultTitle = "New Chat"

const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

type Conversation struct {
	ID           primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	UserID       primitive.ObjectID `json:"userId" bson:"userId"`
	Title        string             `json:"title" bson:"title"`
	RagSessionID string             `json:"ragSessionId,omitempty" bson:"ragSessionId,omitempty"`
	Messages     []Message          `json:"messages" bson:"messages"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
}

// Message is append-only: once part of a conversation it is never edited or
// reordered, only removed along with the whole conversation.
type Message struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Sender     string             `json:"sender" bson:"sender"` // "user" or "assistant"
	Text       string             `json:"text" bson:"text"`
	Language   string             `json:"language" bson:"language"`
	CreatedAt  time.Time          `json:"createdAt" bson:"createdAt"`
	Debug      map[string]any     `json:"debug,omitempty" bson:"debug,omitempty"`
	Evaluation map[string]any     `json:"evaluation,omitempty" bson:"evaluation,omitempty"`
}

type CreateChatRequest struct {
	Title string `json:"title"`
}

type AddMessageRequest struct {
	Text     string `json:"text" validate:"required"`
	Evaluate bool   `json:"evaluate"`
	Language string `json:"language,omitempty"`
}

type AddMessageResponse struct {
	Assistant    string         `json:"assistant"`
	Conversation *Conversation  `json:"conversation"`
	Debug        map[string]any `json:"debug,omitempty"`
	Evaluation   map[string]any `json:"evaluation,omitempty"`
}
