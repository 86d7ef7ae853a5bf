package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/francoflex/francoflex_service/internal/client"
	"github.com/francoflex/francoflex_service/internal/errors"
	"github.com/francoflex/francoflex_service/internal/metrics"
	"github.com/francoflex/francoflex_service/internal/repository"
)

// Session modes.
const (
	ModeRepeat         = "repeat"
	ModeConversational = "conversational"
)

// QuestionsPerSession is the number of sentences generated for a repeat session.
const QuestionsPerSession = 10

const (
	greetingLearning = "Bonjour! Je suis Madame AI, votre assistante Francoflex. Comment puis-je vous aider aujourd'hui?"
	greetingNative   = "Hello! I am Madame AI, your Francoflex assistant. How can I help you today?"
)

var validLevels = map[string]bool{
	"A1": true, "A2": true,
	"B1": true, "B2": true,
	"C1": true, "C2": true,
}

// NormalizeLevel upper-cases a CEFR level and reports whether it is valid.
func NormalizeLevel(level string) (string, bool) {
	l := strings.ToUpper(strings.TrimSpace(level))
	return l, validLevels[l]
}

// SessionService builds sessions and tracks per-question progress.
type SessionService struct {
	prefs    repository.PreferenceRepository
	sessions repository.SessionRepository
	llm      ChatModel
	audio    *AudioService
	log      zerolog.Logger
}

// NewSessionService creates a new session service.
func NewSessionService(
	prefs repository.PreferenceRepository,
	sessions repository.SessionRepository,
	llm ChatModel,
	audio *AudioService,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		prefs:    prefs,
		sessions: sessions,
		llm:      llm,
		audio:    audio,
		log:      log,
	}
}

// CreateSessionReq is the input of CreateSession.
type CreateSessionReq struct {
	UserID string `json:"user_id"`
	Level  string `json:"level"`
	Mode   string `json:"mode"`
}

// CreateSession generates, voices and persists a new session.
func (s *SessionService) CreateSession(ctx context.Context, req CreateSessionReq) (*repository.Session, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, errors.Validation("user_id is required")
	}
	level, ok := NormalizeLevel(req.Level)
	if !ok {
		return nil, errors.Validation("level must be one of A1, A2, B1, B2, C1, C2")
	}
	mode := strings.ToLower(strings.TrimSpace(req.Mode))
	if mode == "" {
		mode = ModeRepeat
	}
	if mode != ModeRepeat && mode != ModeConversational {
		return nil, errors.Validation("mode must be repeat or conversational")
	}

	pref, err := s.prefs.GetByUserID(ctx, req.UserID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrStorageService, "failed to load preferences", err)
	}
	if pref == nil {
		return nil, errors.NotFound("preferences")
	}

	var sentences []sentence
	if mode == ModeConversational {
		sentences = []sentence{{Learning: greetingLearning, Native: greetingNative}}
	} else {
		sentences, err = s.generateSentences(ctx, pref, level)
		if err != nil {
			return nil, err
		}
	}

	session := &repository.Session{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		Level:     level,
		Mode:      mode,
		Questions: make([]repository.Question, 0, len(sentences)),
	}

	// Sequential so audio order matches sentence order.
	for i, sent := range sentences {
		q := repository.Question{
			Learning: sent.Learning,
			Native:   sent.Native,
			Status:   repository.StatusNotDone,
		}
		url, err := s.audio.SynthesizeURL(ctx, sent.Learning, req.UserID, session.ID)
		if err != nil {
			s.log.Warn().Err(err).Int("index", i).Str("session_id", session.ID).Msg("Audio synthesis failed, question has no audio")
			metrics.RecordQuestionWithoutAudio()
		} else {
			q.AudioURL = &url
		}
		session.Questions = append(session.Questions, q)
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, errors.Wrap(errors.ErrStorageService, "failed to save session", err)
	}

	s.log.Info().
		Str("session_id", session.ID).
		Str("user_id", session.UserID).
		Str("level", level).
		Str("mode", mode).
		Int("questions", len(session.Questions)).
		Msg("Session created")

	return session, nil
}

type sentence struct {
	Learning string `json:"learning"`
	Native   string `json:"native"`
}

func (s *SessionService) generateSentences(ctx context.Context, pref *repository.Preference, level string) ([]sentence, error) {
	if s.llm == nil {
		return nil, errors.NotConfigured("LLM provider")
	}

	language := LanguageLabel(pref.Learning)
	native := LanguageLabel(pref.Native)
	industry := orDefault(pref.Industry, "General")
	job := orDefault(pref.Job, "Professional")

	system := fmt.Sprintf("You are a %s language learning assistant specialized in %s industry. Generate exactly %d professional %s sentences at %s level with %s translations, focusing on industry-specific scenarios and terminology. You MUST respond with valid JSON only, no other text.",
		language, industry, QuestionsPerSession, language, level, native)

	prompt := fmt.Sprintf(`Generate %d highly specific %s learning sentences for a %s working in %s at %s level.

Requirements:
- Use authentic workplace scenarios they actually encounter in %s, with industry-specific terminology.
- Focus on realistic client and colleague interactions: meetings, calls, project discussions, reviews, compliance, tools.
- These must be practical sentences, not questions, matched to %s complexity.
- The "learning" field must contain ONLY %s words. Translate job titles and technical terms into %s.
- The "native" field is the %s translation.

Respond with ONLY valid JSON in this exact format:
{"content": [{"learning": "%s sentence", "native": "%s translation"}]}`,
		QuestionsPerSession, language, job, industry, level,
		industry, level, language, language, native, language, native)

	raw, err := s.llm.Complete(ctx, client.ChatRequest{
		System:      system,
		Prompt:      prompt,
		JSON:        true,
		Temperature: 0.7,
	})
	if err != nil {
		return nil, err
	}

	sentences, err := parseSentences(raw)
	if err != nil {
		return nil, errors.Wrap(errors.ErrAIService, "malformed question generation response", err)
	}
	return sentences, nil
}

// parseSentences accepts {"content": [...]} or a bare array and enforces
// exactly QuestionsPerSession complete sentences, truncating any extras.
func parseSentences(raw string) ([]sentence, error) {
	var wrapped struct {
		Content []sentence `json:"content"`
	}
	var sentences []sentence
	if err := decodeLLMJSON(raw, &wrapped); err == nil {
		sentences = wrapped.Content
	} else if err := decodeLLMJSON(raw, &sentences); err != nil {
		return nil, err
	}

	if len(sentences) == 0 {
		return nil, fmt.Errorf("no questions generated")
	}
	if len(sentences) < QuestionsPerSession {
		return nil, fmt.Errorf("expected %d questions, got %d", QuestionsPerSession, len(sentences))
	}
	sentences = sentences[:QuestionsPerSession]

	for i := range sentences {
		sentences[i].Learning = strings.TrimSpace(sentences[i].Learning)
		sentences[i].Native = strings.TrimSpace(sentences[i].Native)
		if sentences[i].Learning == "" || sentences[i].Native == "" {
			return nil, fmt.Errorf("question %d is missing learning or native text", i)
		}
	}
	return sentences, nil
}

// ListSessions returns the user's sessions newest first.
func (s *SessionService) ListSessions(ctx context.Context, userID string) ([]*repository.Session, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.Validation("user_id is required")
	}
	sessions, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrStorageService, "failed to list sessions", err)
	}
	return sessions, nil
}

// LatestSession returns the most recently created session of userID.
func (s *SessionService) LatestSession(ctx context.Context, userID string) (*repository.Session, error) {
	sessions, err := s.ListSessions(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, errors.New(errors.ErrNotFound, fmt.Sprintf("No sessions found for user %s", userID))
	}
	return sessions[0], nil
}

// GetSession returns the session if it belongs to userID.
func (s *SessionService) GetSession(ctx context.Context, userID, sessionID string) (*repository.Session, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, errors.NotFound("session")
	}
	return session, nil
}

// load fetches a session, mapping absence to a not-found error.
func (s *SessionService) load(ctx context.Context, sessionID string) (*repository.Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, errors.Validation("session_id is required")
	}
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrStorageService, "failed to load session", err)
	}
	if session == nil {
		return nil, errors.NotFound("session")
	}
	return session, nil
}

// loadOwned is load plus an owner check; an empty callerID skips the check.
func (s *SessionService) loadOwned(ctx context.Context, sessionID, callerID string) (*repository.Session, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if callerID != "" && session.UserID != callerID {
		return nil, errors.Forbidden("session belongs to another user")
	}
	return session, nil
}

// UpdateQuestionStatusReq is the input of UpdateQuestionStatus.
type UpdateQuestionStatusReq struct {
	SessionID     string `json:"session_id"`
	QuestionIndex *int   `json:"question_index"`
	Status        string `json:"status"`
}

// UpdateQuestionStatus sets the status of one question and persists the whole
// sequence. Concurrent updates to one session are last-writer-wins.
func (s *SessionService) UpdateQuestionStatus(ctx context.Context, req UpdateQuestionStatusReq, callerID string) (*repository.Session, error) {
	if req.QuestionIndex == nil {
		return nil, errors.Validation("question_index is required")
	}
	status := strings.ToLower(strings.TrimSpace(req.Status))
	if status == "" {
		status = repository.StatusDone
	}
	if status != repository.StatusDone && status != repository.StatusNotDone {
		return nil, errors.Validation("status must be done or not_done")
	}

	session, err := s.loadOwned(ctx, req.SessionID, callerID)
	if err != nil {
		return nil, err
	}

	idx := *req.QuestionIndex
	if idx < 0 || idx >= len(session.Questions) {
		return nil, errors.New(errors.ErrNotFound, fmt.Sprintf("question index %d out of range", idx)).
			WithDetails(map[string]interface{}{"total_questions": len(session.Questions)})
	}

	session.Questions[idx].Status = status
	if err := s.sessions.UpdateQuestions(ctx, session.ID, session.Questions); err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("session")
		}
		return nil, errors.Wrap(errors.ErrStorageService, "failed to update question status", err)
	}
	return session, nil
}

// NextQuestion is the first unfinished question of a session.
type NextQuestion struct {
	Index              int                 `json:"index"`
	Question           repository.Question `json:"question"`
	TotalQuestions     int                 `json:"total_questions"`
	CompletedQuestions int                 `json:"completed_questions"`
}

// GetNextQuestion returns the lowest-index not_done question, or nil when all are done.
func (s *SessionService) GetNextQuestion(ctx context.Context, sessionID, callerID string) (*NextQuestion, error) {
	session, err := s.loadOwned(ctx, sessionID, callerID)
	if err != nil {
		return nil, err
	}
	return nextQuestion(session.Questions), nil
}

func nextQuestion(questions []repository.Question) *NextQuestion {
	completed := 0
	for _, q := range questions {
		if q.Status == repository.StatusDone {
			completed++
		}
	}
	for i, q := range questions {
		if q.Status != repository.StatusDone {
			return &NextQuestion{
				Index:              i,
				Question:           q,
				TotalQuestions:     len(questions),
				CompletedQuestions: completed,
			}
		}
	}
	return nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
