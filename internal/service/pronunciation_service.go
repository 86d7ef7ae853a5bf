package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/francoflex/francoflex_service/internal/errors"
	"github.com/francoflex/francoflex_service/internal/repository"
)

// PronunciationService scores recordings and stores analysis history.
type PronunciationService struct {
	fetcher  AudioFetcher
	scorer   SpeechScorer
	feedback *FeedbackService
	prefs    repository.PreferenceRepository
	sessions repository.SessionRepository
	analyses repository.PronunciationAnalysisRepository
	log      zerolog.Logger
}

// NewPronunciationService creates a new pronunciation service. scorer may be nil.
func NewPronunciationService(
	fetcher AudioFetcher,
	scorer SpeechScorer,
	feedback *FeedbackService,
	prefs repository.PreferenceRepository,
	sessions repository.SessionRepository,
	analyses repository.PronunciationAnalysisRepository,
	log zerolog.Logger,
) *PronunciationService {
	return &PronunciationService{
		fetcher:  fetcher,
		scorer:   scorer,
		feedback: feedback,
		prefs:    prefs,
		sessions: sessions,
		analyses: analyses,
		log:      log,
	}
}

// AnalyzeReq is the input of Analyze.
type AnalyzeReq struct {
	AudioURL         string `json:"audio_url"`
	TargetText       string `json:"target_text"`
	SessionID        string `json:"session_id"`
	AnalysisLanguage string `json:"analysis_language"`
	NativeLanguage   string `json:"native_language"`
	UserID           string `json:"user_id"`
}

// AnalysisResult is the normalized score enriched with coaching text.
type AnalysisResult struct {
	OverallScore       int            `json:"overall_score"`
	CEFRScore          CEFRScore      `json:"cefr_score"`
	WordAnalysis       []WordAnalysis `json:"word_analysis"`
	FeedbackSource     string         `json:"feedback_source"`
	Summary            string         `json:"summary"`
	NextQuestionPrompt string         `json:"next_question_prompt"`
}

// Analyze downloads a recording, scores it, and composes feedback plus a
// transition message to the next question.
func (s *PronunciationService) Analyze(ctx context.Context, req AnalyzeReq) (*AnalysisResult, error) {
	req.AudioURL = strings.TrimSpace(req.AudioURL)
	req.TargetText = strings.TrimSpace(req.TargetText)
	switch {
	case req.AudioURL == "":
		return nil, errors.Validation("audio_url is required")
	case req.TargetText == "":
		return nil, errors.Validation("target_text is required")
	}
	if s.scorer == nil {
		return nil, errors.NotConfigured("SpeechAce")
	}

	dialect := ScoringDialect(req.AnalysisLanguage)
	if strings.TrimSpace(req.AnalysisLanguage) == "" {
		dialect = s.learnerDialect(ctx, req.SessionID, req.UserID)
	}
	native := NormalizeLanguageCode(req.NativeLanguage)
	if native == "" {
		native = "en"
	}

	audio, err := s.fetcher.Download(ctx, req.AudioURL)
	if err != nil {
		return nil, err
	}

	raw, err := s.scorer.ScoreText(ctx, audio, req.TargetText, dialect, req.UserID)
	if err != nil {
		return nil, errors.Upstream("SpeechAce", err)
	}

	score, err := NormalizeScore(raw)
	if err != nil {
		return nil, errors.Wrap(errors.ErrUpstream, "malformed scoring response", err)
	}

	composed := s.feedback.Compose(ctx, score.WordAnalysis, score.OverallScore, native)
	score.WordAnalysis = composed.Words
	summary := s.feedback.Summarize(ctx, score, native)

	s.log.Info().
		Str("session_id", req.SessionID).
		Str("dialect", dialect).
		Int("overall_score", score.OverallScore).
		Str("score_source", score.OverallScoreSource).
		Str("feedback_source", composed.Source).
		Int("words", len(score.WordAnalysis)).
		Msg("Pronunciation analyzed")

	return &AnalysisResult{
		OverallScore:       score.OverallScore,
		CEFRScore:          score.CEFRScore,
		WordAnalysis:       score.WordAnalysis,
		FeedbackSource:     composed.Source,
		Summary:            summary.Summary,
		NextQuestionPrompt: summary.NextQuestionPrompt,
	}, nil
}

// learnerDialect derives the scoring dialect from the learning language of the
// session owner, or of userID when there is no session. A session owned by
// someone other than a known userID is ignored. Lookup failures fall back to fr-fr.
func (s *PronunciationService) learnerDialect(ctx context.Context, sessionID, userID string) string {
	if sessionID != "" && userID == "" {
		if session, err := s.sessions.GetByID(ctx, sessionID); err == nil && session != nil {
			userID = session.UserID
		}
	}
	if userID == "" {
		return ScoringDialect("")
	}
	pref, err := s.prefs.GetByUserID(ctx, userID)
	if err != nil || pref == nil {
		return ScoringDialect("")
	}
	return ScoringDialect(pref.Learning)
}

// SaveAnalysisReq is the input of Save.
type SaveAnalysisReq struct {
	UserID  string          `json:"user_id"`
	Level   string          `json:"level"`
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content"`
}

// Save stores an analysis result.
func (s *PronunciationService) Save(ctx context.Context, req SaveAnalysisReq) (*repository.PronunciationAnalysis, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, errors.Validation("user_id is required")
	}
	level, ok := NormalizeLevel(req.Level)
	if !ok {
		return nil, errors.Validation("level must be one of A1, A2, B1, B2, C1, C2")
	}
	content := strings.TrimSpace(string(req.Content))
	if content == "" || content == "null" || !json.Valid([]byte(content)) || content[0] != '{' {
		return nil, errors.Validation("content must be a JSON object")
	}
	typ := strings.TrimSpace(req.Type)
	if typ == "" {
		typ = ModeRepeat
	}

	a := &repository.PronunciationAnalysis{
		ID:      uuid.NewString(),
		UserID:  req.UserID,
		Type:    typ,
		Level:   level,
		Content: json.RawMessage(content),
	}
	if err := s.analyses.Create(ctx, a); err != nil {
		return nil, errors.Wrap(errors.ErrStorageService, "failed to save pronunciation analysis", err)
	}
	return a, nil
}

// List returns the user's analyses newest first, optionally filtered by level.
func (s *PronunciationService) List(ctx context.Context, userID, level string) ([]*repository.PronunciationAnalysis, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.Validation("user_id is required")
	}
	if level != "" {
		var ok bool
		if level, ok = NormalizeLevel(level); !ok {
			return nil, errors.Validation("level must be one of A1, A2, B1, B2, C1, C2")
		}
	}
	analyses, err := s.analyses.ListByUser(ctx, userID, level)
	if err != nil {
		return nil, errors.Wrap(errors.ErrStorageService, "failed to list pronunciation analyses", err)
	}
	return analyses, nil
}

// Latest returns the user's newest analysis, or nil when there is none.
func (s *PronunciationService) Latest(ctx context.Context, userID string) (*repository.PronunciationAnalysis, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.Validation("user_id is required")
	}
	a, err := s.analyses.Latest(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrStorageService, "failed to load latest pronunciation analysis", err)
	}
	return a, nil
}
