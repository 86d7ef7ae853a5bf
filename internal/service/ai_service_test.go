package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/francoflex/francoflex_service/internal/client"
	"github.com/francoflex/francoflex_service/internal/errors"
	"github.com/francoflex/francoflex_service/internal/repository"
)

func TestAIService_Routing(t *testing.T) {
	openai := replies("from openai")
	gemini := replies("from gemini")

	tests := []struct {
		name     string
		svc      *AIService
		want     string
		wantCode errors.ErrorCode
	}{
		{"preferred openai", &AIService{openaiClient: openai, geminiClient: gemini, preferred: "openai"}, "from openai", ""},
		{"preferred gemini", &AIService{openaiClient: replies("x"), geminiClient: gemini, preferred: "gemini"}, "from gemini", ""},
		{"gemini missing falls back", &AIService{openaiClient: replies("from openai"), preferred: "gemini"}, "from openai", ""},
		{"none configured", NewAIService(nil, nil, "openai"), "", errors.ErrConfiguration},
		{"provider error", &AIService{openaiClient: &fakeLLM{respond: func(client.ChatRequest) (string, error) { return "", fmt.Errorf("boom") }}}, "", errors.ErrAIService},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.svc.Complete(context.Background(), client.ChatRequest{Prompt: "hi"})
			if tt.wantCode != "" {
				if !errors.Is(err, tt.wantCode) {
					t.Fatalf("err = %v, want code %s", err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("Complete: %v", err)
			}
			if got != tt.want {
				t.Errorf("Complete = %q, want %q", got, tt.want)
			}
		})
	}

	if NewAIService(nil, nil, "openai").Configured() {
		t.Error("Configured() = true with no providers")
	}
}

func TestDecodeLLMJSON(t *testing.T) {
	var out struct {
		A int `json:"a"`
	}
	for _, raw := range []string{`{"a":1}`, "```json\n{\"a\":1}\n```", "```\n{\"a\":1}```"} {
		out.A = 0
		if err := decodeLLMJSON(raw, &out); err != nil || out.A != 1 {
			t.Errorf("decodeLLMJSON(%q) = %v, a=%d", raw, err, out.A)
		}
	}
	if err := decodeLLMJSON("nope", &out); err == nil {
		t.Error("expected error for non-JSON")
	}
}

func TestCreateSession_StalledProviderIsBounded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	prefs := repository.NewMemoryPreferenceRepository()
	if err := prefs.Upsert(context.Background(), &repository.Preference{ID: "p1", UserID: "u1", Learning: "french", Native: "english"}); err != nil {
		t.Fatalf("seed preferences: %v", err)
	}
	ai := NewAIService(client.NewOpenAIClient("key", srv.URL, 200*time.Millisecond), nil, "openai")
	svc := NewSessionService(prefs, repository.NewMemorySessionRepository(), ai, nil, zerolog.Nop())

	start := time.Now()
	_, err := svc.CreateSession(context.Background(), CreateSessionReq{UserID: "u1", Level: "B1", Mode: ModeRepeat})
	elapsed := time.Since(start)

	if !errors.Is(err, errors.ErrAIService) {
		t.Fatalf("err = %v, want AI service error", err)
	}
	if elapsed > 2*time.Second {
		t.Errorf("CreateSession returned after %s, want it bounded by the provider timeout", elapsed)
	}
}
