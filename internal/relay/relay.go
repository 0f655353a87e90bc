// Package relay processes one inbound chat message end to end: persist the
// user's text, gate on dependency health, bind a remote session lazily, then
// forward to the RAG service with a bounded retry.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/juris-labs/legal-assistant-backend/internal/models"
	"github.com/juris-labs/legal-assistant-backend/internal/ragclient"
	"github.com/juris-labs/legal-assistant-backend/internal/store"
)

var (
	// ErrNotFound: the conversation does not exist or belongs to someone else.
	ErrNotFound = errors.New("conversation not found")
	// ErrUnavailable: the health gate reported the RAG service down; nothing
	// was forwarded. The user's message is already saved.
	ErrUnavailable = errors.New("document retrieval service unavailable")
	// ErrUnreachable: every forward attempt failed at the transport level.
	ErrUnreachable = errors.New("rag service unreachable")
)

// UpstreamError is a non-success reply from the RAG service after retries were
// exhausted; its status is propagated to the client as-is.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("rag service returned %d: %s", e.Status, e.Message)
}

// Gateway is the slice of the RAG client the relay needs.
type Gateway interface {
	CreateSession(ctx context.Context, ownerID, title string) (string, error)
	ForwardMessage(ctx context.Context, payload ragclient.ForwardRequest) (*ragclient.ForwardResult, error)
}

// HealthGate reports whether forwarding should be attempted at all.
type HealthGate interface {
	IsHealthy(ctx context.Context) bool
}

type Relay struct {
	store   store.Store
	gateway Gateway
	health  HealthGate

	retryMax int
	backoff  time.Duration

	sleep func(time.Duration)
	now   func() time.Time
}

func New(s store.Store, g Gateway, h HealthGate, retryMax int, backoff time.Duration) *Relay {
	if retryMax < 1 {
		retryMax = 1
	}
	return &Relay{
		store:    s,
		gateway:  g,
		health:   h,
		retryMax: retryMax,
		backoff:  backoff,
		sleep:    time.Sleep,
		now:      time.Now,
	}
}

// AddMessage runs the full send flow for one user message. Exactly one of the
// following comes back: a reply, ErrNotFound, ErrUnavailable, an
// *UpstreamError, ErrUnreachable, or a storage error.
//
// The user's message is persisted before any network call so a dependency
// failure never loses their input. Conversation saves are whole-document and
// last-write-wins; two sends racing on the same conversation can drop an
// append, which is accepted for one interactive user per conversation.
func (r *Relay) AddMessage(ctx context.Context, conversationID primitive.ObjectID, user *models.User, req models.AddMessageRequest) (*models.AddMessageResponse, error) {
	conv, err := r.store.FindConversation(ctx, conversationID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if conv.UserID != user.ID {
		return nil, ErrNotFound
	}

	language := req.Language
	if language == "" {
		language = user.Language
	}
	if language == "" {
		language = models.DefaultLanguage
	}

	conv.Messages = append(conv.Messages, models.Message{
		ID:        primitive.NewObjectID(),
		Sender:    models.SenderUser,
		Text:      req.Text,
		Language:  language,
		CreatedAt: r.now(),
	})
	if err := r.store.SaveConversation(ctx, conv); err != nil {
		return nil, err
	}

	if !r.health.IsHealthy(ctx) {
		return nil, ErrUnavailable
	}

	r.BindSession(ctx, conv)

	sessionID := conv.RagSessionID
	if sessionID == "" {
		sessionID = conv.ID.Hex()
	}
	payload := ragclient.ForwardRequest{
		SessionID:      sessionID,
		UserID:         user.ID.Hex(),
		Query:          req.Text,
		Language:       language,
		Evaluate:       req.Evaluate,
		IncludeHistory: true,
	}

	for attempt := 1; attempt <= r.retryMax; attempt++ {
		result, err := r.gateway.ForwardMessage(ctx, payload)
		if err == nil {
			conv.Messages = append(conv.Messages, models.Message{
				ID:         primitive.NewObjectID(),
				Sender:     models.SenderAssistant,
				Text:       result.AssistantText(),
				Language:   language,
				CreatedAt:  r.now(),
				Debug:      result.Debug,
				Evaluation: result.Evaluation,
			})
			if err := r.store.SaveConversation(ctx, conv); err != nil {
				return nil, err
			}
			return &models.AddMessageResponse{
				Assistant:    result.AssistantText(),
				Conversation: conv,
				Debug:        result.Debug,
				Evaluation:   result.Evaluation,
			}, nil
		}

		log.Printf("warn: forward to rag service failed (attempt %d/%d): %v", attempt, r.retryMax, err)

		if attempt == r.retryMax {
			var statusErr *ragclient.StatusError
			if errors.As(err, &statusErr) {
				return nil, &UpstreamError{Status: statusErr.Status, Message: statusErr.Message}
			}
			// Transport failures are normalized: the client sees a fixed
			// upstream-unreachable signal, never the raw transport error.
			return nil, ErrUnreachable
		}
		r.sleep(r.backoff * time.Duration(attempt))
	}

	return nil, ErrUnreachable // unreachable; the loop always returns
}

// BindSession attaches a RAG session to the conversation when it has none.
// Best-effort by contract: any failure is logged and the conversation keeps
// working with its own id as the session handle.
func (r *Relay) BindSession(ctx context.Context, conv *models.Conversation) {
	if conv.RagSessionID != "" {
		return
	}
	sessionID, err := r.gateway.CreateSession(ctx, conv.UserID.Hex(), conv.Title)
	if err != nil || sessionID == "" {
		log.Printf("warn: rag session creation failed: %v", err)
		return
	}
	conv.RagSessionID = sessionID
	if err := r.store.SaveConversation(ctx, conv); err != nil {
		// The id still serves this request; it just won't survive a restart.
		log.Printf("warn: could not persist rag session id: %v", err)
	}
}
