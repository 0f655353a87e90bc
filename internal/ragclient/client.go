// Package ragclient talks to the external document-retrieval (RAG) service:
// a health probe, best-effort session creation, and chat forwarding.
package ragclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// StatusError is a non-success HTTP reply from the RAG service, carrying the
// upstream status and the best message extractable from the body.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("rag service error %d: %s", e.Status, e.Message)
}

type ForwardRequest struct {
	SessionID      string `json:"session_id"`
	UserID         string `json:"user_id"`
	Query          string `json:"query"`
	Language       string `json:"language"`
	Evaluate       bool   `json:"evaluate"`
	IncludeHistory bool   `json:"include_history"`
}

type ForwardResult struct {
	Response     string         `json:"response"`
	ResponseText string         `json:"response_text"`
	Debug        map[string]any `json:"debug"`
	Evaluation   map[string]any `json:"evaluation"`
}

// AssistantText picks the reply text from whichever field the service filled,
// "response" first, then "response_text", else empty.
func (r *ForwardResult) AssistantText() string {
	if r.Response != "" {
		return r.Response
	}
	return r.ResponseText
}

type Client struct {
	baseURL        string
	http           *http.Client
	forwardTimeout time.Duration
}

func New(baseURL string, forwardTimeout time.Duration) *Client {
	return &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &http.Client{},
		forwardTimeout: forwardTimeout,
	}
}

// ProbeHealth reports whether GET /health answered with a success status.
// Transport failures count as unhealthy. The caller bounds the wait via ctx.
func (c *Client) ProbeHealth(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// CreateSession asks the RAG service for a session handle. Failures here are
// soft by contract: the caller logs the error and proceeds without a session.
func (c *Client) CreateSession(ctx context.Context, ownerID, title string) (string, error) {
	body, err := json.Marshal(map[string]string{"user_id": ownerID, "title": title})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sessions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("session request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &StatusError{Status: resp.StatusCode, Message: extractErrorMessage(resp, respBody)}
	}

	var result struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("session response: %w", err)
	}
	if result.SessionID == "" {
		return "", fmt.Errorf("session response missing session_id")
	}
	return result.SessionID, nil
}

// ForwardMessage posts one chat turn to the RAG service. It makes a single
// attempt, capped at the configured forward timeout; a non-success reply comes
// back as *StatusError, a transport failure as a plain error. Retrying is the
// caller's concern.
func (c *Client) ForwardMessage(ctx context.Context, payload ForwardRequest) (*ForwardResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.forwardTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("forward request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("forward response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Status: resp.StatusCode, Message: extractErrorMessage(resp, respBody)}
	}

	var result ForwardResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("forward response: %w", err)
	}
	return &result, nil
}

// extractErrorMessage digs a human-readable message out of an error reply:
// the JSON "detail" or "message" field when the body is JSON, otherwise the
// raw body truncated to 500 bytes.
func extractErrorMessage(resp *http.Response, body []byte) string {
	fallback := fmt.Sprintf("RAG service error %d", resp.StatusCode)

	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		var errBody struct {
			Detail  string `json:"detail"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(body, &errBody); err == nil {
			if errBody.Detail != "" {
				return errBody.Detail
			}
			if errBody.Message != "" {
				return errBody.Message
			}
		}
		return fallback
	}

	preview := string(body)
	if len(preview) > 500 {
		preview = preview[:500]
	}
	if preview == "" {
		return fallback
	}
	return preview
}
