package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	goopenai "github.com/sashabaranov/go-openai"

	"github.com/fasttodo/fasttodo/internal/api/v1/middleware"
	"github.com/fasttodo/fasttodo/internal/auth"
	"github.com/fasttodo/fasttodo/internal/infrastructure/openai"
)

// mockAssistant serves a canned chat-completion response and captures the
// prompt it received.
func mockAssistant(t *testing.T, reply string, gotPrompt *string) *openai.Service {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req goopenai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil && len(req.Messages) > 0 {
			*gotPrompt = req.Messages[0].Content
		}
		json.NewEncoder(w).Encode(goopenai.ChatCompletionResponse{
			Choices: []goopenai.ChatCompletionChoice{
				{Message: goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleAssistant, Content: reply}},
			},
			Usage: goopenai.Usage{TotalTokens: 42},
		})
	}))
	t.Cleanup(server.Close)

	clientConfig := goopenai.DefaultConfig("test-key")
	clientConfig.BaseURL = server.URL
	return openai.NewServiceWithClient(goopenai.NewClientWithConfig(clientConfig), "test-model")
}

func aiRouter(t *testing.T, assistant *openai.Service) (http.Handler, string) {
	t.Helper()
	tokens := auth.NewTokenService([]byte("test-secret"))
	token, err := tokens.Issue("alice", "user-1", "sess-1", auth.TokenTypeAccess, time.Minute)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	h := NewAIHandler(assistant)
	r := mux.NewRouter()
	r.Use(middleware.RequireAuth(tokens))
	r.HandleFunc("/api/ai/voice", h.Voice).Methods(http.MethodPost)
	return r, token
}

func postVoice(t *testing.T, router http.Handler, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/ai/voice", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestVoice(t *testing.T) {
	t.Run("returns the completion and token usage", func(t *testing.T) {
		var gotPrompt string
		router, token := aiRouter(t, mockAssistant(t, "Sure, adding milk to your list.", &gotPrompt))

		rec := postVoice(t, router, token, map[string]any{"prompt": "add milk"})
		if rec.Code != http.StatusOK {
			t.Fatalf("Got %d, want 200: %s", rec.Code, rec.Body.String())
		}

		var resp voiceResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if resp.Response != "Sure, adding milk to your list." {
			t.Errorf("Got response %q", resp.Response)
		}
		if resp.TokensUsed != 42 {
			t.Errorf("Got tokens_used %d, want 42", resp.TokensUsed)
		}
		if gotPrompt != "add milk" {
			t.Errorf("Got prompt %q, want add milk", gotPrompt)
		}
	})

	t.Run("client context is prepended to the prompt", func(t *testing.T) {
		var gotPrompt string
		router, token := aiRouter(t, mockAssistant(t, "ok", &gotPrompt))

		rec := postVoice(t, router, token, map[string]any{
			"prompt":  "what's due today?",
			"context": map[string]any{"todo_count": 3},
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("Got %d, want 200", rec.Code)
		}
		want := "Context: {\"todo_count\":3}\n\nwhat's due today?"
		if gotPrompt != want {
			t.Errorf("Got prompt %q, want %q", gotPrompt, want)
		}
	})

	t.Run("requires authentication", func(t *testing.T) {
		var gotPrompt string
		router, _ := aiRouter(t, mockAssistant(t, "ok", &gotPrompt))

		rec := postVoice(t, router, "", map[string]any{"prompt": "hi"})
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("Got %d, want 401", rec.Code)
		}
	})

	t.Run("unconfigured assistant is a clean 503", func(t *testing.T) {
		router, token := aiRouter(t, nil)

		rec := postVoice(t, router, token, map[string]any{"prompt": "hi"})
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("Got %d, want 503", rec.Code)
		}
	})

	t.Run("empty prompt fails validation", func(t *testing.T) {
		var gotPrompt string
		router, token := aiRouter(t, mockAssistant(t, "ok", &gotPrompt))

		rec := postVoice(t, router, token, map[string]any{"prompt": ""})
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("Got %d, want 422", rec.Code)
		}
	})

	t.Run("upstream failure maps to 502", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		t.Cleanup(server.Close)

		clientConfig := goopenai.DefaultConfig("test-key")
		clientConfig.BaseURL = server.URL
		assistant := openai.NewServiceWithClient(goopenai.NewClientWithConfig(clientConfig), "test-model")

		router, token := aiRouter(t, assistant)
		rec := postVoice(t, router, token, map[string]any{"prompt": "hi"})
		if rec.Code != http.StatusBadGateway {
			t.Errorf("Got %d, want 502", rec.Code)
		}
	})
}
