package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/juris-labs/legal-assistant-backend/internal/ragclient"
	"github.com/juris-labs/legal-assistant-backend/internal/relay"
	"github.com/juris-labs/legal-assistant-backend/internal/store"
)

type gwStub struct {
	sessionID     string
	sessionErr    error
	forwardResult *ragclient.ForwardResult
	forwardErr    error
}

func (g *gwStub) CreateSession(_ context.Context, _, _ string) (string, error) {
	if g.sessionErr != nil {
		return "", g.sessionErr
	}
	return g.sessionID, nil
}

func (g *gwStub) ForwardMessage(_ context.Context, _ ragclient.ForwardRequest) (*ragclient.ForwardResult, error) {
	return g.forwardResult, g.forwardErr
}

type healthStub bool

func (h healthStub) IsHealthy(_ context.Context) bool { return bool(h) }

const testSecret = "test-secret"

func newTestApp(t *testing.T, gw relay.Gateway, healthy bool) *fiber.App {
	t.Helper()

	db := store.NewMemoryStore()
	messageRelay := relay.New(db, gw, healthStub(healthy), 2, time.Millisecond)

	authHandler := &AuthHandler{Store: db, JWTSecret: testSecret}
	chatHandler := &ChatHandler{Store: db, Relay: messageRelay}

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/health", Health)

	api := app.Group("/api")
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Put("/language", authHandler.Middleware, authHandler.UpdateLanguage)

	chats := api.Group("/chats", authHandler.Middleware)
	chats.Get("/", chatHandler.ListChats)
	chats.Post("/", chatHandler.CreateChat)
	chats.Get("/:id", chatHandler.GetChat)
	chats.Post("/:id/messages", chatHandler.AddMessage)
	chats.Delete("/:id", chatHandler.DeleteChat)

	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, path, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	json.NewDecoder(resp.Body).Decode(&decoded)
	return resp.StatusCode, decoded
}

func registerAndLogin(t *testing.T, app *fiber.App, email string) string {
	t.Helper()

	status, body := doJSON(t, app, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Asha", "email": email, "password": "secret123", "language": "hi",
	})
	if status != http.StatusOK {
		t.Fatalf("register status = %d, body = %v", status, body)
	}

	status, body = doJSON(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": email, "password": "secret123",
	})
	if status != http.StatusOK {
		t.Fatalf("login status = %d, body = %v", status, body)
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatalf("login returned no token: %v", body)
	}
	return token
}

func TestHealthEndpoint(t *testing.T) {
	app := newTestApp(t, &gwStub{}, true)

	status, body := doJSON(t, app, http.MethodGet, "/health", "", nil)
	if status != http.StatusOK {
		t.Errorf("status = %d, want 200", status)
	}
	if body["ok"] != true {
		t.Errorf("body = %v, want ok:true", body)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	app := newTestApp(t, &gwStub{}, true)

	status, body := doJSON(t, app, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Asha", "email": "asha@example.com", "password": "secret123",
	})
	if status != http.StatusOK || body["message"] != "Registered" {
		t.Fatalf("register = %d %v", status, body)
	}

	status, body = doJSON(t, app, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Asha", "email": "asha@example.com", "password": "secret123",
	})
	if status != http.StatusBadRequest || body["message"] != "Email exists" {
		t.Errorf("duplicate register = %d %v, want 400 Email exists", status, body)
	}

	status, body = doJSON(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "asha@example.com", "password": "secret123",
	})
	if status != http.StatusOK {
		t.Fatalf("login = %d %v", status, body)
	}
	user, _ := body["user"].(map[string]any)
	if user["email"] != "asha@example.com" || user["language"] != "en" {
		t.Errorf("login user = %v", user)
	}

	status, body = doJSON(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "asha@example.com", "password": "wrong",
	})
	if status != http.StatusBadRequest || body["message"] != "Invalid credentials" {
		t.Errorf("bad login = %d %v, want 400 Invalid credentials", status, body)
	}
}

func TestRegisterValidation(t *testing.T) {
	app := newTestApp(t, &gwStub{}, true)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing email", map[string]string{"name": "Asha", "password": "secret123"}},
		{"short password", map[string]string{"name": "Asha", "email": "a@b.com", "password": "ab"}},
		{"bad language", map[string]string{"name": "Asha", "email": "a@b.com", "password": "secret123", "language": "xx"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := doJSON(t, app, http.MethodPost, "/api/auth/register", "", tt.body)
			if status != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", status)
			}
		})
	}
}

func TestUpdateLanguage(t *testing.T) {
	app := newTestApp(t, &gwStub{}, true)
	token := registerAndLogin(t, app, "asha@example.com")

	status, body := doJSON(t, app, http.MethodPut, "/api/auth/language", token, map[string]string{"language": "ta"})
	if status != http.StatusOK || body["language"] != "ta" {
		t.Errorf("update = %d %v, want 200 ta", status, body)
	}

	status, body = doJSON(t, app, http.MethodPut, "/api/auth/language", token, map[string]string{"language": "fr"})
	if status != http.StatusBadRequest || body["message"] != "Invalid language" {
		t.Errorf("invalid language = %d %v", status, body)
	}

	status, _ = doJSON(t, app, http.MethodPut, "/api/auth/language", "", map[string]string{"language": "hi"})
	if status != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", status)
	}
}

func TestChatLifecycle(t *testing.T) {
	app := newTestApp(t, &gwStub{sessionID: "S1", forwardResult: &ragclient.ForwardResult{Response: "Hello"}}, true)
	token := registerAndLogin(t, app, "asha@example.com")

	status, created := doJSON(t, app, http.MethodPost, "/api/chats", token, map[string]string{"title": "Tenancy"})
	if status != http.StatusOK {
		t.Fatalf("create = %d %v", status, created)
	}
	if created["ragSessionId"] != "S1" {
		t.Errorf("ragSessionId = %v, want S1", created["ragSessionId"])
	}
	id, _ := created["_id"].(string)
	if id == "" {
		t.Fatalf("create returned no id: %v", created)
	}

	status, _ = doJSON(t, app, http.MethodGet, "/api/chats", token, nil)
	if status != http.StatusOK {
		t.Errorf("list = %d", status)
	}

	status, fetched := doJSON(t, app, http.MethodGet, "/api/chats/"+id, token, nil)
	if status != http.StatusOK || fetched["title"] != "Tenancy" {
		t.Errorf("get = %d %v", status, fetched)
	}

	status, reply := doJSON(t, app, http.MethodPost, "/api/chats/"+id+"/messages", token, map[string]any{
		"text": "What is the notice period?", "evaluate": true,
	})
	if status != http.StatusOK || reply["assistant"] != "Hello" {
		t.Fatalf("add message = %d %v", status, reply)
	}
	conv, _ := reply["conversation"].(map[string]any)
	messages, _ := conv["messages"].([]any)
	if len(messages) != 2 {
		t.Errorf("messages = %d, want 2", len(messages))
	}

	status, body := doJSON(t, app, http.MethodDelete, "/api/chats/"+id, token, nil)
	if status != http.StatusOK || body["message"] != "Deleted" {
		t.Errorf("delete = %d %v", status, body)
	}
	status, _ = doJSON(t, app, http.MethodGet, "/api/chats/"+id, token, nil)
	if status != http.StatusNotFound {
		t.Errorf("get deleted = %d, want 404", status)
	}
}

func TestChatDefaultTitle(t *testing.T) {
	app := newTestApp(t, &gwStub{sessionID: "S1"}, true)
	token := registerAndLogin(t, app, "asha@example.com")

	status, created := doJSON(t, app, http.MethodPost, "/api/chats", token, map[string]string{})
	if status != http.StatusOK || created["title"] != "New Chat" {
		t.Errorf("create = %d %v, want title New Chat", status, created)
	}
}

func TestCreateChatSessionSoftFailure(t *testing.T) {
	app := newTestApp(t, &gwStub{sessionErr: fmt.Errorf("rag service down")}, true)
	token := registerAndLogin(t, app, "asha@example.com")

	status, created := doJSON(t, app, http.MethodPost, "/api/chats", token, map[string]string{"title": "Tenancy"})
	if status != http.StatusOK {
		t.Fatalf("create = %d %v, session failure must stay soft", status, created)
	}
	if _, bound := created["ragSessionId"]; bound {
		t.Errorf("ragSessionId = %v, want absent", created["ragSessionId"])
	}
}

func TestChatOwnership(t *testing.T) {
	app := newTestApp(t, &gwStub{sessionID: "S1"}, true)
	ownerToken := registerAndLogin(t, app, "owner@example.com")
	otherToken := registerAndLogin(t, app, "other@example.com")

	_, created := doJSON(t, app, http.MethodPost, "/api/chats", ownerToken, map[string]string{"title": "Private"})
	id, _ := created["_id"].(string)

	status, _ := doJSON(t, app, http.MethodGet, "/api/chats/"+id, otherToken, nil)
	if status != http.StatusNotFound {
		t.Errorf("foreign get = %d, want 404", status)
	}

	status, _ = doJSON(t, app, http.MethodPost, "/api/chats/"+id+"/messages", otherToken, map[string]any{"text": "hi"})
	if status != http.StatusNotFound {
		t.Errorf("foreign add message = %d, want 404", status)
	}

	// Delete reveals existence, so a non-owner gets 403, not 404.
	status, _ = doJSON(t, app, http.MethodDelete, "/api/chats/"+id, otherToken, nil)
	if status != http.StatusForbidden {
		t.Errorf("foreign delete = %d, want 403", status)
	}

	status, _ = doJSON(t, app, http.MethodDelete, "/api/chats/"+id, ownerToken, nil)
	if status != http.StatusOK {
		t.Errorf("owner delete = %d, want 200", status)
	}
}

func TestAddMessageFailureMapping(t *testing.T) {
	tests := []struct {
		name        string
		gw          *gwStub
		healthy     bool
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "unhealthy dependency",
			gw:          &gwStub{},
			healthy:     false,
			wantStatus:  http.StatusServiceUnavailable,
			wantMessage: "Document retrieval service currently unavailable",
		},
		{
			name:        "upstream error passthrough",
			gw:          &gwStub{sessionID: "S1", forwardErr: &ragclient.StatusError{Status: 500, Message: "model overloaded"}},
			healthy:     true,
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "model overloaded",
		},
		{
			name:        "unreachable",
			gw:          &gwStub{sessionID: "S1", forwardErr: fmt.Errorf("connection refused")},
			healthy:     true,
			wantStatus:  http.StatusBadGateway,
			wantMessage: "RAG service unreachable",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t, tt.gw, tt.healthy)
			token := registerAndLogin(t, app, "asha@example.com")

			_, created := doJSON(t, app, http.MethodPost, "/api/chats", token, map[string]string{"title": "T"})
			id, _ := created["_id"].(string)

			status, body := doJSON(t, app, http.MethodPost, "/api/chats/"+id+"/messages", token, map[string]any{"text": "hello"})
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
			if body["message"] != tt.wantMessage {
				t.Errorf("message = %v, want %q", body["message"], tt.wantMessage)
			}

			// The user's message is durable regardless of the failure.
			status, fetched := doJSON(t, app, http.MethodGet, "/api/chats/"+id, token, nil)
			if status != http.StatusOK {
				t.Fatalf("get = %d", status)
			}
			messages, _ := fetched["messages"].([]any)
			if len(messages) != 1 {
				t.Errorf("messages = %d, want 1 (user only)", len(messages))
			}
		})
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	app := newTestApp(t, &gwStub{}, true)

	for _, path := range []string{"/api/chats", "/api/chats/abc"} {
		status, _ := doJSON(t, app, http.MethodGet, path, "", nil)
		if status != http.StatusUnauthorized {
			t.Errorf("GET %s = %d, want 401", path, status)
		}
	}

	status, _ := doJSON(t, app, http.MethodGet, "/api/chats", "not-a-token", nil)
	if status != http.StatusUnauthorized {
		t.Errorf("bad token = %d, want 401", status)
	}
}
