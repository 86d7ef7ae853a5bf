package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/francoflex/francoflex_service/internal/client"
	"github.com/francoflex/francoflex_service/internal/errors"
	"github.com/francoflex/francoflex_service/internal/middleware"
	"github.com/francoflex/francoflex_service/internal/repository"
	"github.com/francoflex/francoflex_service/internal/service"
)

type stubLLM struct{}

func (stubLLM) Complete(ctx context.Context, req client.ChatRequest) (string, error) {
	items := make([]map[string]string, service.QuestionsPerSession)
	for i := range items {
		items[i] = map[string]string{"learning": fmt.Sprintf("phrase %d", i), "native": fmt.Sprintf("sentence %d", i)}
	}
	b, _ := json.Marshal(map[string]interface{}{"content": items})
	return string(b), nil
}

type stubStore struct{}

func (stubStore) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	return "https://cdn.test/" + key, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Detail  string          `json:"detail"`
	Code    string          `json:"code"`
}

// newTestRouter mounts the API handlers on memory repositories. A non-empty
// caller is injected as the authenticated user.
func newTestRouter(t *testing.T, caller string) http.Handler {
	t.Helper()
	log := zerolog.Nop()
	prefs := repository.NewMemoryPreferenceRepository()
	sessions := repository.NewMemorySessionRepository()
	messages := repository.NewMemoryMessageRepository()
	analyses := repository.NewMemoryPronunciationAnalysisRepository()

	audio := service.NewAudioService(nil, stubStore{}, nil, "", time.Hour, log)
	sessionSvc := service.NewSessionService(prefs, sessions, stubLLM{}, audio, log)
	feedback := service.NewFeedbackService(nil, time.Second, log)

	preference := NewPreferenceHandler(log, service.NewPreferenceService(prefs))
	session := NewSessionHandler(log, sessionSvc)
	audioHandler := NewAudioHandler(log, audio)
	conversation := NewConversationHandler(log, service.NewConversationService(prefs, sessionSvc, messages, nil, audio, client.NewAudioDownloader(time.Second), nil, log))
	pronunciation := NewPronunciationHandler(log, service.NewPronunciationService(client.NewAudioDownloader(time.Second), nil, feedback, prefs, sessions, analyses, log))

	r := chi.NewRouter()
	if caller != "" {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(middleware.WithUserID(req.Context(), caller)))
			})
		})
	}
	r.Post("/api/save_preferences", preference.Save)
	r.Get("/api/preferences/{user_id}", preference.Get)
	r.Post("/api/create_session", session.Create)
	r.Get("/api/sessions/{user_id}", session.List)
	r.Post("/api/update_question_status", session.UpdateQuestionStatus)
	r.Get("/api/next_question/{session_id}", session.NextQuestion)
	r.Post("/api/upload_audio", audioHandler.Upload)
	r.Post("/api/save_message", conversation.SaveMessage)
	r.Get("/api/messages/{session_id}", conversation.ListMessages)
	r.Post("/api/analyze_pronunciation", pronunciation.Analyze)
	r.Get("/api/latest_pronunciation_analysis/{user_id}", pronunciation.Latest)
	return r
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: decode response %q: %v", method, path, rec.Body.String(), err)
	}
	return rec, env
}

func savePrefs(t *testing.T, h http.Handler, userID string) {
	t.Helper()
	rec, env := do(t, h, http.MethodPost, "/api/save_preferences", map[string]string{
		"user_id": userID, "learning": "french", "native": "english", "industry": "Technology", "job": "Engineer", "name": "Ada",
	})
	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("save_preferences = %d %+v", rec.Code, env)
	}
}

func TestSessionFlow(t *testing.T) {
	h := newTestRouter(t, "")
	savePrefs(t, h, "u1")

	rec, env := do(t, h, http.MethodPost, "/api/create_session", map[string]string{"user_id": "u1", "level": "B1", "mode": "repeat"})
	if rec.Code != http.StatusOK {
		t.Fatalf("create_session = %d %+v", rec.Code, env)
	}
	var session repository.Session
	if err := json.Unmarshal(env.Data, &session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if len(session.Questions) != service.QuestionsPerSession {
		t.Fatalf("len(content) = %d, want %d", len(session.Questions), service.QuestionsPerSession)
	}
	// TTS is not configured, so every question lacks audio.
	if session.Questions[0].AudioURL != nil {
		t.Error("audio_url should be null without TTS")
	}

	for i := 0; i < service.QuestionsPerSession; i++ {
		rec, env = do(t, h, http.MethodPost, "/api/update_question_status", map[string]interface{}{
			"session_id": session.ID, "question_index": i, "status": "done",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("update %d = %d %+v", i, rec.Code, env)
		}
		if i == 4 {
			_, env = do(t, h, http.MethodGet, "/api/next_question/"+session.ID, nil)
			var next service.NextQuestion
			if err := json.Unmarshal(env.Data, &next); err != nil {
				t.Fatalf("decode next: %v", err)
			}
			if next.Index != 5 || next.CompletedQuestions != 5 {
				t.Errorf("next = %+v, want index 5 with 5 completed", next)
			}
		}
	}

	rec, env = do(t, h, http.MethodGet, "/api/next_question/"+session.ID, nil)
	if rec.Code != http.StatusOK || string(env.Data) != "null" || env.Message != "All questions completed" {
		t.Errorf("next_question when done = %d data=%s message=%q", rec.Code, env.Data, env.Message)
	}

	rec, env = do(t, h, http.MethodPost, "/api/update_question_status", map[string]interface{}{
		"session_id": session.ID, "question_index": 10,
	})
	if rec.Code != http.StatusNotFound || env.Success || env.Code != string(errors.ErrNotFound) {
		t.Errorf("out of range = %d %+v", rec.Code, env)
	}
}

func TestLatestSession(t *testing.T) {
	h := newTestRouter(t, "")
	savePrefs(t, h, "u1")

	rec, env := do(t, h, http.MethodGet, "/api/session/u1", nil)
	if rec.Code != http.StatusNotFound || env.Detail != "No sessions found for user u1" {
		t.Fatalf("no sessions = %d %+v", rec.Code, env)
	}

	var ids []string
	for _, level := range []string{"A1", "B2"} {
		rec, env = do(t, h, http.MethodPost, "/api/create_session", map[string]string{"user_id": "u1", "level": level})
		if rec.Code != http.StatusOK {
			t.Fatalf("create_session = %d %+v", rec.Code, env)
		}
		var s repository.Session
		if err := json.Unmarshal(env.Data, &s); err != nil {
			t.Fatalf("decode session: %v", err)
		}
		ids = append(ids, s.ID)
	}

	rec, env = do(t, h, http.MethodGet, "/api/session/u1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("latest = %d %+v", rec.Code, env)
	}
	var latest repository.Session
	if err := json.Unmarshal(env.Data, &latest); err != nil {
		t.Fatalf("decode latest: %v", err)
	}
	if latest.ID != ids[1] || latest.Level != "B2" {
		t.Errorf("latest = %s/%s, want %s/B2", latest.ID, latest.Level, ids[1])
	}
}

func TestCreateSession_Errors(t *testing.T) {
	h := newTestRouter(t, "")
	savePrefs(t, h, "u1")

	tests := []struct {
		name   string
		body   interface{}
		status int
	}{
		{"no preferences", map[string]string{"user_id": "u2", "level": "B1"}, http.StatusNotFound},
		{"invalid level", map[string]string{"user_id": "u1", "level": "Z1"}, http.StatusBadRequest},
		{"missing user", map[string]string{"level": "B1"}, http.StatusBadRequest},
		{"bad json", "not an object", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := do(t, h, http.MethodPost, "/api/create_session", tt.body)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if env.Success || env.Detail == "" {
				t.Errorf("error body = %+v", env)
			}
		})
	}
}

func TestPreferences_AuthenticatedCaller(t *testing.T) {
	h := newTestRouter(t, "u1")

	// user_id is taken from the token when omitted.
	rec, env := do(t, h, http.MethodPost, "/api/save_preferences", map[string]string{"learning": "french", "native": "english"})
	if rec.Code != http.StatusOK {
		t.Fatalf("save_preferences = %d %+v", rec.Code, env)
	}

	rec, env = do(t, h, http.MethodGet, "/api/preferences/u1", nil)
	var pref repository.Preference
	if err := json.Unmarshal(env.Data, &pref); err != nil || rec.Code != http.StatusOK || pref.UserID != "u1" {
		t.Fatalf("get preferences = %d %+v (%v)", rec.Code, env, err)
	}

	rec, _ = do(t, h, http.MethodGet, "/api/preferences/u2", nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("other user's preferences = %d, want 403", rec.Code)
	}

	rec, _ = do(t, h, http.MethodPost, "/api/save_preferences", map[string]string{"user_id": "u2", "learning": "french", "native": "english"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("save for other user = %d, want 403", rec.Code)
	}
}

func TestPreferences_Missing(t *testing.T) {
	h := newTestRouter(t, "")

	rec, env := do(t, h, http.MethodGet, "/api/preferences/ghost", nil)
	if rec.Code != http.StatusOK || string(env.Data) != "null" || env.Message == "" {
		t.Errorf("missing preferences = %d %+v", rec.Code, env)
	}

	rec, env = do(t, h, http.MethodGet, "/api/latest_pronunciation_analysis/ghost", nil)
	if rec.Code != http.StatusOK || string(env.Data) != "null" || env.Message == "" {
		t.Errorf("missing analysis = %d %+v", rec.Code, env)
	}
}

func TestAnalyzePronunciation_NotConfigured(t *testing.T) {
	h := newTestRouter(t, "")

	rec, env := do(t, h, http.MethodPost, "/api/analyze_pronunciation", map[string]string{"audio_url": "https://x/a.wav", "target_text": "bonjour"})
	if rec.Code != http.StatusInternalServerError || env.Code != string(errors.ErrConfiguration) || env.Detail != "SpeechAce not configured" {
		t.Errorf("analyze = %d %+v", rec.Code, env)
	}

	rec, _ = do(t, h, http.MethodPost, "/api/analyze_pronunciation", map[string]string{"audio_url": "https://x/a.wav"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing target_text = %d, want 400", rec.Code)
	}
}

func TestMessages(t *testing.T) {
	h := newTestRouter(t, "")
	savePrefs(t, h, "u1")
	_, env := do(t, h, http.MethodPost, "/api/create_session", map[string]string{"user_id": "u1", "level": "A1", "mode": "conversational"})
	var session repository.Session
	if err := json.Unmarshal(env.Data, &session); err != nil {
		t.Fatalf("decode session: %v", err)
	}

	rec, env := do(t, h, http.MethodPost, "/api/save_message", map[string]string{"session_id": session.ID, "author": "user", "content": "Bonjour"})
	if rec.Code != http.StatusOK {
		t.Fatalf("save_message = %d %+v", rec.Code, env)
	}
	rec, _ = do(t, h, http.MethodPost, "/api/save_message", map[string]string{"session_id": session.ID, "author": "robot", "content": "Bonjour"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad author = %d, want 400", rec.Code)
	}

	_, env = do(t, h, http.MethodGet, "/api/messages/"+session.ID, nil)
	var msgs []repository.Message
	if err := json.Unmarshal(env.Data, &msgs); err != nil || len(msgs) != 1 || msgs[0].Content != "Bonjour" {
		t.Errorf("messages = %s (%v)", env.Data, err)
	}
}

func multipartAudio(t *testing.T, field, filename, contentType string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	if contentType != "" {
		hdr.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	part.Write(data)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload_audio", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadAudio(t *testing.T) {
	h := newTestRouter(t, "")

	tests := []struct {
		name        string
		field       string
		contentType string
		data        []byte
		fields      map[string]string
		status      int
	}{
		{"wav upload", "file", "audio/wav", []byte("RIFF\x00\x00\x00\x00WAVE"), map[string]string{"user_id": "u1", "session_id": "s1"}, http.StatusOK},
		{"audio field", "audio", "audio/webm", []byte("webm"), map[string]string{"user_id": "u1"}, http.StatusOK},
		{"sniffed content type", "file", "application/octet-stream", []byte("OggS\x00\x02"), map[string]string{"user_id": "u1"}, http.StatusOK},
		{"not audio", "file", "image/png", []byte("\x89PNG"), map[string]string{"user_id": "u1"}, http.StatusBadRequest},
		{"missing file", "other", "audio/wav", []byte("x"), map[string]string{"user_id": "u1"}, http.StatusBadRequest},
		{"missing user", "file", "audio/wav", []byte("x"), nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, multipartAudio(t, tt.field, "take.bin", tt.contentType, tt.data, tt.fields))
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body.String())
			}
			if tt.status != http.StatusOK {
				return
			}
			var env envelope
			var result service.UploadResult
			if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if err := json.Unmarshal(env.Data, &result); err != nil || result.AudioURL == "" || result.Filename != "take.bin" {
				t.Errorf("result = %+v (%v)", result, err)
			}
		})
	}
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
		detail string
	}{
		{"app error", errors.Validation("level is invalid"), http.StatusBadRequest, "VALIDATION_ERROR", "level is invalid"},
		{"forbidden", errors.Forbidden("no"), http.StatusForbidden, "FORBIDDEN", "no"},
		{"wrapped upstream", fmt.Errorf("context: %w", errors.Upstream("SpeechAce", fmt.Errorf("503"))), http.StatusInternalServerError, "UPSTREAM_ERROR", "SpeechAce request failed"},
		{"plain error", fmt.Errorf("pq: connection refused"), http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handleError(zerolog.Nop(), rec, tt.err)

			var env envelope
			if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if rec.Code != tt.status || env.Code != tt.code || env.Detail != tt.detail || env.Success {
				t.Errorf("got %d %+v, want %d %s %q", rec.Code, env, tt.status, tt.code, tt.detail)
			}
		})
	}
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthReady(t *testing.T) {
	ok := NewHealthHandler(zerolog.Nop(), map[string]Pinger{"postgres": pingerFunc(func(context.Context) error { return nil })})
	rec := httptest.NewRecorder()
	ok.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("ready = %d, want 200", rec.Code)
	}

	down := NewHealthHandler(zerolog.Nop(), map[string]Pinger{"postgres": pingerFunc(func(context.Context) error { return fmt.Errorf("refused") })})
	rec = httptest.NewRecorder()
	down.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("ready = %d, want 503", rec.Code)
	}

	rec = httptest.NewRecorder()
	down.Live(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("live = %d, want 200", rec.Code)
	}
}
