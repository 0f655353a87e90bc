package handlers

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/juris-labs/legal-assistant-backend/internal/models"
	"github.com/juris-labs/legal-assistant-backend/internal/store"
	"github.com/juris-labs/legal-assistant-backend/utils"
)

type AuthHandler struct {
	Store     store.Store
	JWTSecret string
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req models.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Register BodyParser error: %v", err)
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}

	if err := utils.Validate.Struct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error())
	}

	language := req.Language
	if language == "" {
		language = models.DefaultLanguage
	}
	if !models.IsSupportedLanguage(language) {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid language")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Server error")
	}

	user := models.User{
		ID:           primitive.NewObjectID(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
		Language:     language,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	err = h.Store.CreateUser(c.Context(), &user)
	if errors.Is(err, store.ErrDuplicateEmail) {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Email exists")
	}
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Server error")
	}

	return c.JSON(fiber.Map{"message": "Registered"})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Login BodyParser error: %v", err)
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}

	if err := utils.Validate.Struct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error())
	}

	user, err := h.Store.FindUserByEmail(c.Context(), req.Email)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid credentials")
	}

	token, err := utils.GenerateJWT(user.ID.Hex(), h.JWTSecret)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Server error")
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user": fiber.Map{
			"id":       user.ID.Hex(),
			"name":     user.Name,
			"email":    user.Email,
			"language": user.Language,
		},
	})
}

func (h *AuthHandler) UpdateLanguage(c *fiber.Ctx) error {
	var req models.UpdateLanguageRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}

	if !models.IsSupportedLanguage(req.Language) {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid language")
	}

	userID, err := requesterID(c)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid token")
	}

	err = h.Store.SetUserLanguage(c.Context(), userID, req.Language)
	if errors.Is(err, store.ErrNotFound) {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "User not found")
	}
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Server error")
	}

	return c.JSON(fiber.Map{
		"message":  "Language updated",
		"language": req.Language,
	})
}

// Middleware authenticates the bearer token and stashes the requester's id.
func (h *AuthHandler) Middleware(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Missing authorization header")
	}

	userID, err := utils.ParseJWT(strings.TrimPrefix(authHeader, "Bearer "), h.JWTSecret)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid token")
	}

	c.Locals("userId", userID)
	return c.Next()
}

func requesterID(c *fiber.Ctx) (primitive.ObjectID, error) {
	userID, _ := c.Locals("userId").(string)
	return primitive.ObjectIDFromHex(userID)
}
