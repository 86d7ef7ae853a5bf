package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/francoflex/francoflex_service/internal/client"
)

type fakeLLM struct {
	mu       sync.Mutex
	requests []client.ChatRequest
	respond  func(req client.ChatRequest) (string, error)
}

func (f *fakeLLM) Complete(ctx context.Context, req client.ChatRequest) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.respond == nil {
		return "", fmt.Errorf("no response configured")
	}
	return f.respond(req)
}

func (f *fakeLLM) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// replies returns a fakeLLM that answers each call with the next entry.
func replies(texts ...string) *fakeLLM {
	var mu sync.Mutex
	i := 0
	return &fakeLLM{respond: func(client.ChatRequest) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if i >= len(texts) {
			return "", fmt.Errorf("unexpected call %d", i)
		}
		i++
		return texts[i-1], nil
	}}
}

type fakeTTS struct {
	calls int
	err   error
}

func (f *fakeTTS) TextToSpeech(ctx context.Context, text string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []byte("mp3:" + text), nil
}

type fakeStore struct {
	keys         []string
	contentTypes []string
	err          error
}

func (f *fakeStore) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.keys = append(f.keys, key)
	f.contentTypes = append(f.contentTypes, contentType)
	return "https://cdn.test/" + key, nil
}

type fakeCache struct {
	values map[string]string
	getErr error
}

func newFakeCache() *fakeCache { return &fakeCache{values: map[string]string{}} }

func (f *fakeCache) Get(ctx context.Context, key string) (string, bool, error) {
	if f.getErr != nil {
		return "", false, f.getErr
	}
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *fakeCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	f.values[key] = value
	return nil
}

type fakeFetcher struct {
	data []byte
	err  error
	urls []string
}

func (f *fakeFetcher) Download(ctx context.Context, url string) ([]byte, error) {
	f.urls = append(f.urls, url)
	if f.err != nil {
		return nil, f.err
	}
	return f.data, nil
}

type fakeScorer struct {
	raw      string
	err      error
	dialects []string
}

func (f *fakeScorer) ScoreText(ctx context.Context, audio []byte, text, dialect, userID string) (json.RawMessage, error) {
	f.dialects = append(f.dialects, dialect)
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.raw), nil
}

type fakeTranscriber struct {
	text     string
	err      error
	filename string
	language string
}

func (f *fakeTranscriber) SpeechToText(ctx context.Context, audio []byte, filename, languageCode string) (string, error) {
	f.filename, f.language = filename, languageCode
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

// tenSentences renders an LLM response holding n sentences.
func tenSentences(n int) string {
	type item struct {
		Learning string `json:"learning"`
		Native   string `json:"native"`
	}
	items := make([]item, n)
	for i := range items {
		items[i] = item{
			Learning: fmt.Sprintf("Phrase numéro %d pour la réunion.", i+1),
			Native:   fmt.Sprintf("Sentence number %d for the meeting.", i+1),
		}
	}
	b, _ := json.Marshal(map[string]interface{}{"content": items})
	return string(b)
}
