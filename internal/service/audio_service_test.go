package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/francoflex/francoflex_service/internal/client"
	"github.com/francoflex/francoflex_service/internal/errors"
)

func TestSynthesizeURL_UsesCache(t *testing.T) {
	tts := &fakeTTS{}
	store := &fakeStore{}
	cache := newFakeCache()
	svc := NewAudioService(tts, store, cache, "voice-1", time.Hour, zerolog.Nop())
	ctx := context.Background()

	first, err := svc.SynthesizeURL(ctx, "Bonjour à tous.", "u1", "s1")
	if err != nil {
		t.Fatalf("SynthesizeURL: %v", err)
	}
	if !strings.HasPrefix(first, "https://cdn.test/tts/u1/s1/") || !strings.HasSuffix(first, ".mp3") {
		t.Errorf("url = %q", first)
	}
	if store.contentTypes[0] != "audio/mpeg" {
		t.Errorf("content type = %q, want audio/mpeg", store.contentTypes[0])
	}

	second, err := svc.SynthesizeURL(ctx, "Bonjour à tous.", "u1", "s2")
	if err != nil {
		t.Fatalf("SynthesizeURL cached: %v", err)
	}
	if second != first {
		t.Errorf("cached url = %q, want %q", second, first)
	}
	if tts.calls != 1 {
		t.Errorf("tts calls = %d, want 1", tts.calls)
	}
	if _, ok := cache.values[svc.cacheKey("Bonjour à tous.")]; !ok {
		t.Error("url was not cached")
	}
}

func TestSynthesizeURL_CacheErrorIgnored(t *testing.T) {
	cache := newFakeCache()
	cache.getErr = fmt.Errorf("connection refused")
	svc := NewAudioService(&fakeTTS{}, &fakeStore{}, cache, "voice-1", time.Hour, zerolog.Nop())

	if _, err := svc.SynthesizeURL(context.Background(), "Salut", "u1", "s1"); err != nil {
		t.Fatalf("SynthesizeURL: %v", err)
	}
}

func TestSynthesizeURL_Errors(t *testing.T) {
	tests := []struct {
		name     string
		tts      SpeechSynthesizer
		store    ObjectStore
		wantCode errors.ErrorCode
	}{
		{"no tts", nil, &fakeStore{}, errors.ErrConfiguration},
		{"no store", &fakeTTS{}, nil, errors.ErrConfiguration},
		{"tts failure", &fakeTTS{err: fmt.Errorf("401")}, &fakeStore{}, errors.ErrUpstream},
		{"upload failure", &fakeTTS{}, &fakeStore{err: fmt.Errorf("denied")}, errors.ErrStorageService},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewAudioService(tt.tts, tt.store, nil, "v", time.Hour, zerolog.Nop())
			_, err := svc.SynthesizeURL(context.Background(), "Salut", "u1", "s1")
			if !errors.Is(err, tt.wantCode) {
				t.Errorf("err = %v, want code %s", err, tt.wantCode)
			}
		})
	}
}

func TestUploadRecording(t *testing.T) {
	store := &fakeStore{}
	svc := NewAudioService(nil, store, nil, "", 0, zerolog.Nop())
	svc.now = func() time.Time { return time.UnixMilli(1700000000123) }

	got, err := svc.UploadRecording(context.Background(), UploadRecordingReq{
		UserID:      "u1",
		SessionID:   "s1",
		Filename:    "../../take 1.webm",
		ContentType: "audio/webm;codecs=opus",
		Data:        []byte("data"),
	})
	if err != nil {
		t.Fatalf("UploadRecording: %v", err)
	}
	if store.keys[0] != "u1/s1/1700000000123-take 1.webm" {
		t.Errorf("key = %q", store.keys[0])
	}
	if got.Filename != "take 1.webm" || got.AudioURL != "https://cdn.test/"+store.keys[0] {
		t.Errorf("result = %+v", got)
	}

	if _, err := svc.UploadRecording(context.Background(), UploadRecordingReq{
		UserID: "u1", Filename: "a.wav", ContentType: "audio/wav", Data: []byte("x"),
	}); err != nil {
		t.Fatalf("UploadRecording without session: %v", err)
	}
	if !strings.HasPrefix(store.keys[1], "u1/audio/") {
		t.Errorf("key without session = %q, want u1/audio/ prefix", store.keys[1])
	}
}

func TestUploadRecording_Validation(t *testing.T) {
	svc := NewAudioService(nil, &fakeStore{}, nil, "", 0, zerolog.Nop())

	tests := []struct {
		name string
		req  UploadRecordingReq
	}{
		{"missing user", UploadRecordingReq{ContentType: "audio/wav", Data: []byte("x")}},
		{"not audio", UploadRecordingReq{UserID: "u1", ContentType: "image/png", Data: []byte("x")}},
		{"no content type", UploadRecordingReq{UserID: "u1", Data: []byte("x")}},
		{"empty", UploadRecordingReq{UserID: "u1", ContentType: "audio/wav"}},
		{"too large", UploadRecordingReq{UserID: "u1", ContentType: "audio/wav", Data: make([]byte, client.MaxAudioBytes+1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.UploadRecording(context.Background(), tt.req); !errors.Is(err, errors.ErrValidation) {
				t.Errorf("err = %v, want validation", err)
			}
		})
	}
}
