package httpext

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
)

func TestJsonError(t *testing.T) {
	t.Run("writes status and body", func(t *testing.T) {
		rec := httptest.NewRecorder()
		JsonError(rec, "Invalid token", 401)

		if rec.Code != 401 {
			t.Errorf("Got status %d, want 401", rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("Got content type %q, want application/json", ct)
		}

		var body ErrorResponse
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("Failed to decode body: %v", err)
		}
		if body.Error != "Invalid token" {
			t.Errorf("Got error %q, want %q", body.Error, "Invalid token")
		}
	})
}

func TestJsonChallenge(t *testing.T) {
	rec := httptest.NewRecorder()
	JsonChallenge(rec, "Token has expired")

	if rec.Code != 401 {
		t.Errorf("Got status %d, want 401", rec.Code)
	}
	if got := rec.Header().Get("WWW-Authenticate"); got != "Bearer" {
		t.Errorf("Got WWW-Authenticate %q, want Bearer", got)
	}
}
