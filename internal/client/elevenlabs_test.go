package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestElevenLabsTextToSpeech(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/text-to-speech/voice-1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("xi-api-key") != "secret" {
			t.Errorf("missing api key header")
		}
		if r.Header.Get("Accept") != "audio/mpeg" {
			t.Errorf("Accept = %q", r.Header.Get("Accept"))
		}
		var req ttsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
			return
		}
		if req.Text != "Bonjour" || req.ModelID != "eleven_multilingual_v2" || !req.VoiceSettings.UseSpeakerBoost {
			t.Errorf("request = %+v", req)
		}
		w.Write([]byte("ID3mp3"))
	}))
	defer srv.Close()

	c := NewElevenLabsClient("secret", ElevenLabsOptions{BaseURL: srv.URL, VoiceID: "voice-1", Timeout: 5 * time.Second})
	audio, err := c.TextToSpeech(context.Background(), "Bonjour")
	if err != nil {
		t.Fatalf("TextToSpeech: %v", err)
	}
	if string(audio) != "ID3mp3" {
		t.Errorf("audio = %q", audio)
	}
}

func TestElevenLabsTextToSpeechError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"detail":"quota"}`))
	}))
	defer srv.Close()

	c := NewElevenLabsClient("secret", ElevenLabsOptions{BaseURL: srv.URL})
	if _, err := c.TextToSpeech(context.Background(), "Bonjour"); err == nil {
		t.Fatal("expected error")
	}
}

func TestElevenLabsSpeechToText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/speech-to-text" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
			return
		}
		if r.FormValue("model_id") != "scribe_v1" || r.FormValue("language_code") != "fr" {
			t.Errorf("form = %v", r.MultipartForm.Value)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("FormFile: %v", err)
		}
		w.Write([]byte(`{"text":" Bonjour tout le monde ","language_code":"fr"}`))
	}))
	defer srv.Close()

	c := NewElevenLabsClient("secret", ElevenLabsOptions{BaseURL: srv.URL})
	text, err := c.SpeechToText(context.Background(), []byte("RIFF"), "", "fr")
	if err != nil {
		t.Fatalf("SpeechToText: %v", err)
	}
	if text != "Bonjour tout le monde" {
		t.Errorf("text = %q", text)
	}
}
