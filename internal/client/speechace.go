package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/francoflex/francoflex_service/internal/metrics"
)

// SpeechAceClient wraps the SpeechAce pronunciation scoring REST API.
type SpeechAceClient struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewSpeechAceClient creates a new SpeechAce client.
func NewSpeechAceClient(apiKey, endpoint string, timeout time.Duration) *SpeechAceClient {
	if endpoint == "" {
		endpoint = "https://api.speechace.co"
	}
	return &SpeechAceClient{
		apiKey:   apiKey,
		endpoint: strings.TrimRight(endpoint, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type speechAceStatus struct {
	Status        string `json:"status"`
	ShortMessage  string `json:"short_message"`
	DetailMessage string `json:"detail_message"`
}

// ScoreText scores a recording of text spoken in dialect (e.g. fr-fr) and
// returns the raw response body for normalization.
func (c *SpeechAceClient) ScoreText(ctx context.Context, audio []byte, text, dialect, userID string) (raw json.RawMessage, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordProviderCall("speechace", "score_text", err == nil, time.Since(start))
	}()

	u, err := url.Parse(c.endpoint + "/api/scoring/text/v9/json")
	if err != nil {
		return nil, fmt.Errorf("invalid speechace endpoint: %w", err)
	}
	q := u.Query()
	q.Set("key", c.apiKey)
	q.Set("dialect", dialect)
	u.RawQuery = q.Encode()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("text", text); err != nil {
		return nil, fmt.Errorf("failed to write text field: %w", err)
	}
	if userID != "" {
		if err := mw.WriteField("user_id", userID); err != nil {
			return nil, fmt.Errorf("failed to write user_id field: %w", err)
		}
	}
	part, err := mw.CreateFormFile("user_audio_file", "audio.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create audio part: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, fmt.Errorf("failed to write audio part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("speechace api error %d: %s", resp.StatusCode, string(respBody))
	}

	var status speechAceStatus
	if err := json.Unmarshal(respBody, &status); err != nil {
		return nil, fmt.Errorf("failed to decode speechace response: %w", err)
	}
	if status.Status != "success" {
		msg := status.ShortMessage
		if msg == "" {
			msg = status.DetailMessage
		}
		if msg == "" {
			msg = "unknown error"
		}
		return nil, fmt.Errorf("speechace scoring failed: %s", msg)
	}

	return json.RawMessage(respBody), nil
}
