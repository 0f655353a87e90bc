package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SupportedLanguages is the fixed set of interface language tags. The default is
// English; the rest are the Indic languages the assistant can answer in.
var SupportedLanguages = []string{"en", "hi", "bn", "ta", "te", "mr", "gu", "kn", "ml", "pa", "or", "as"}

// DefaultLanguage is used whenever no explicit or stored preference applies.
const DefaultLanguage = "en"

func IsSupportedLanguage(lang string) bool {
	for _, l := range SupportedLanguages {
		if l == lang {
			return true
		}
	}
	return false
}

type User struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name         string             `json:"name" bson:"name"`
	Email        string             `json:"email" bson:"email"`
	PasswordHash string             `json:"-" bson:"passwordHash"`
	Language     string             `json:"language" bson:"language"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt" bson:"updatedAt"`
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Language string `json:"language,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateLanguageRequest struct {
	Language string `json:"language" validate:"required"`
}
