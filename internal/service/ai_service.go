package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/francoflex/francoflex_service/internal/client"
	"github.com/francoflex/francoflex_service/internal/errors"
)

// AIService routes LLM prompts to the configured provider.
type AIService struct {
	openaiClient ChatModel
	geminiClient ChatModel
	preferred    string
}

// NewAIService creates a new AI service. Either client may be nil;
// preferred is "openai" or "gemini".
func NewAIService(openaiClient *client.OpenAIClient, geminiClient *client.GeminiClient, preferred string) *AIService {
	s := &AIService{preferred: preferred}
	if openaiClient != nil {
		s.openaiClient = openaiClient
	}
	if geminiClient != nil {
		s.geminiClient = geminiClient
	}
	return s
}

// Configured reports whether any provider is available.
func (s *AIService) Configured() bool {
	return s.openaiClient != nil || s.geminiClient != nil
}

// Complete sends req to the preferred provider, falling back to whichever is configured.
func (s *AIService) Complete(ctx context.Context, req client.ChatRequest) (string, error) {
	var model ChatModel
	switch s.preferred {
	case "gemini":
		model = s.geminiClient
		if model == nil {
			model = s.openaiClient
		}
	default:
		// Default to OpenAI if available, otherwise Gemini
		model = s.openaiClient
		if model == nil {
			model = s.geminiClient
		}
	}
	if model == nil {
		return "", errors.NotConfigured("LLM provider")
	}

	text, err := model.Complete(ctx, req)
	if err != nil {
		return "", errors.Wrap(errors.ErrAIService, "LLM request failed", err)
	}
	return text, nil
}

// decodeLLMJSON strips markdown fences the model may add and decodes the payload.
func decodeLLMJSON(raw string, out interface{}) error {
	clean := strings.TrimSpace(raw)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)

	if err := json.Unmarshal([]byte(clean), out); err != nil {
		return fmt.Errorf("failed to parse LLM response: %w", err)
	}
	return nil
}
