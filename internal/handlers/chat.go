package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/juris-labs/legal-assistant-backend/internal/models"
	"github.com/juris-labs/legal-assistant-backend/internal/relay"
	"github.com/juris-labs/legal-assistant-backend/internal/store"
	"github.com/juris-labs/legal-assistant-backend/utils"
)

type ChatHandler struct {
	Store store.Store
	Relay *relay.Relay
}

func (h *ChatHandler) ListChats(c *fiber.Ctx) error {
	userID, err := requesterID(c)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid token")
	}

	conversations, err := h.Store.ListConversations(c.Context(), userID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Server error")
	}

	return c.JSON(conversations)
}

func (h *ChatHandler) CreateChat(c *fiber.Ctx) error {
	userID, err := requesterID(c)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid token")
	}

	var req models.CreateChatRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}

	title := req.Title
	if title == "" {
		title = models.DefaultTitle
	}

	conv := &models.Conversation{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Title:     title,
		Messages:  []models.Message{},
		CreatedAt: time.Now(),
	}
	if err := h.Store.CreateConversation(c.Context(), conv); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Server error")
	}

	// Best-effort: the conversation is returned with a null session id when
	// the RAG service cannot mint one right now.
	h.Relay.BindSession(c.Context(), conv)

	return c.JSON(conv)
}

func (h *ChatHandler) GetChat(c *fiber.Ctx) error {
	userID, err := requesterID(c)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid token")
	}

	convID, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Not found")
	}

	conv, err := h.Store.FindConversation(c.Context(), convID)
	if errors.Is(err, store.ErrNotFound) {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Not found")
	}
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Server error")
	}
	if conv.UserID != userID {
		// Existence is not revealed to non-owners.
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Not found")
	}

	return c.JSON(conv)
}

func (h *ChatHandler) AddMessage(c *fiber.Ctx) error {
	userID, err := requesterID(c)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid token")
	}

	convID, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Not found")
	}

	var req models.AddMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := utils.Validate.Struct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error())
	}

	user, err := h.Store.FindUserByID(c.Context(), userID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid token")
	}

	resp, err := h.Relay.AddMessage(c.Context(), convID, user, req)
	if err != nil {
		var upstream *relay.UpstreamError
		switch {
		case errors.Is(err, relay.ErrNotFound):
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Not found")
		case errors.Is(err, relay.ErrUnavailable):
			return utils.ErrorResponse(c, fiber.StatusServiceUnavailable, "Document retrieval service currently unavailable")
		case errors.As(err, &upstream):
			return utils.ErrorResponse(c, upstream.Status, upstream.Message)
		case errors.Is(err, relay.ErrUnreachable):
			return utils.ErrorResponse(c, fiber.StatusBadGateway, "RAG service unreachable")
		default:
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Server error")
		}
	}

	return c.JSON(resp)
}

func (h *ChatHandler) DeleteChat(c *fiber.Ctx) error {
	userID, err := requesterID(c)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid token")
	}

	convID, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Not found")
	}

	conv, err := h.Store.FindConversation(c.Context(), convID)
	if errors.Is(err, store.ErrNotFound) {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Not found")
	}
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Server error")
	}
	if conv.UserID != userID {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Forbidden")
	}

	if err := h.Store.DeleteConversation(c.Context(), convID); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Server error")
	}

	return c.JSON(fiber.Map{"message": "Deleted"})
}
