package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want int
	}{
		{"validation", Validation("bad level"), http.StatusBadRequest},
		{"not found", NotFound("session"), http.StatusNotFound},
		{"forbidden", Forbidden("not your session"), http.StatusForbidden},
		{"unauthorized", Unauthorized("missing token"), http.StatusUnauthorized},
		{"configuration", NotConfigured("SpeechAce"), http.StatusInternalServerError},
		{"upstream", Upstream("ElevenLabs", fmt.Errorf("boom")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.HTTPStatus(); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAsUnwrapsWrappedErrors(t *testing.T) {
	base := NotFound("preferences")
	wrapped := fmt.Errorf("create session: %w", base)

	got, ok := As(wrapped)
	if !ok || got != base {
		t.Fatalf("As() = %v, %v; want the original AppError", got, ok)
	}
	if !Is(wrapped, ErrNotFound) {
		t.Error("Is(wrapped, ErrNotFound) = false")
	}
	if Is(fmt.Errorf("plain"), ErrNotFound) {
		t.Error("Is(plain, ErrNotFound) = true")
	}
}

func TestNotConfiguredMessage(t *testing.T) {
	err := NotConfigured("OpenAI")
	if err.Message != "OpenAI not configured" {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Code != ErrConfiguration {
		t.Errorf("Code = %s", err.Code)
	}
}
