package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/francoflex/francoflex_service/internal/client"
)

// ChatModel produces text from an LLM prompt.
type ChatModel interface {
	Complete(ctx context.Context, req client.ChatRequest) (string, error)
}

// SpeechScorer scores a spoken recording against its reference text.
type SpeechScorer interface {
	ScoreText(ctx context.Context, audio []byte, text, dialect, userID string) (json.RawMessage, error)
}

// SpeechSynthesizer turns text into MP3 audio.
type SpeechSynthesizer interface {
	TextToSpeech(ctx context.Context, text string) ([]byte, error)
}

// Transcriber turns recorded audio into text.
type Transcriber interface {
	SpeechToText(ctx context.Context, audio []byte, filename, languageCode string) (string, error)
}

// ObjectStore stores blobs and returns their public URL.
type ObjectStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// AudioFetcher downloads learner recordings.
type AudioFetcher interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// AudioCache remembers the URL of audio already synthesized for a sentence.
type AudioCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}
