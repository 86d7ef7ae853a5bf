package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/francoflex/francoflex_service/internal/metrics"
)

// ElevenLabsClient wraps the ElevenLabs text-to-speech and speech-to-text APIs.
type ElevenLabsClient struct {
	apiKey   string
	baseURL  string
	voiceID  string
	ttsModel string
	sttModel string
	client   *http.Client
}

// ElevenLabsOptions configures an ElevenLabsClient.
type ElevenLabsOptions struct {
	BaseURL  string
	VoiceID  string
	TTSModel string
	STTModel string
	Timeout  time.Duration
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

type ttsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type sttResponse struct {
	Text         string `json:"text"`
	LanguageCode string `json:"language_code"`
}

// NewElevenLabsClient creates a new ElevenLabs client.
func NewElevenLabsClient(apiKey string, opts ElevenLabsOptions) *ElevenLabsClient {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.elevenlabs.io"
	}
	if opts.VoiceID == "" {
		opts.VoiceID = "pNInz6obpgDQGcFmaJgB"
	}
	if opts.TTSModel == "" {
		opts.TTSModel = "eleven_multilingual_v2"
	}
	if opts.STTModel == "" {
		opts.STTModel = "scribe_v1"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	return &ElevenLabsClient{
		apiKey:   apiKey,
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		voiceID:  opts.VoiceID,
		ttsModel: opts.TTSModel,
		sttModel: opts.STTModel,
		client: &http.Client{
			Timeout: opts.Timeout,
		},
	}
}

// VoiceID returns the voice used for synthesis.
func (c *ElevenLabsClient) VoiceID() string {
	return c.voiceID
}

// TextToSpeech synthesizes text and returns MP3 bytes.
func (c *ElevenLabsClient) TextToSpeech(ctx context.Context, text string) (audio []byte, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordProviderCall("elevenlabs", "text_to_speech", err == nil, time.Since(start))
	}()

	jsonData, err := json.Marshal(ttsRequest{
		Text:    text,
		ModelID: c.ttsModel,
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.5,
			Style:           0,
			UseSpeakerBoost: true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s", c.baseURL, c.voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("elevenlabs api error %d: %s", resp.StatusCode, string(body))
	}

	audio, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("elevenlabs returned empty audio")
	}
	return audio, nil
}

// SpeechToText transcribes audio. languageCode may be empty for auto-detection.
func (c *ElevenLabsClient) SpeechToText(ctx context.Context, audio []byte, filename, languageCode string) (text string, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordProviderCall("elevenlabs", "speech_to_text", err == nil, time.Since(start))
	}()

	if filename == "" {
		filename = "audio.wav"
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("model_id", c.sttModel); err != nil {
		return "", fmt.Errorf("failed to write model_id: %w", err)
	}
	if languageCode != "" {
		if err := mw.WriteField("language_code", languageCode); err != nil {
			return "", fmt.Errorf("failed to write language_code: %w", err)
		}
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("failed to write file part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/speech-to-text", &body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("elevenlabs api error %d: %s", resp.StatusCode, string(respBody))
	}

	var result sttResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode transcription: %w", err)
	}
	return strings.TrimSpace(result.Text), nil
}
