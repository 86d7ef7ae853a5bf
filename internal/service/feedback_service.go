package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/francoflex/francoflex_service/internal/client"
	"github.com/francoflex/francoflex_service/internal/metrics"
)

// Feedback sources.
const (
	FeedbackSourceLLM      = "llm"
	FeedbackSourceFallback = "fallback"
	FeedbackSourceNone     = "none"
)

type feedbackTemplates struct {
	excellent string
	good      string
	practice  string
}

var fallbackFeedback = map[string]feedbackTemplates{
	"en": {
		excellent: "Excellent pronunciation! Keep up the good work.",
		good:      "Good pronunciation. Try to focus on clarity.",
		practice:  "Practice more to improve your pronunciation.",
	},
	"fr": {
		excellent: "Excellente prononciation ! Continuez comme ça.",
		good:      "Bonne prononciation. Concentrez-vous sur la clarté.",
		practice:  "Entraînez-vous davantage pour améliorer votre prononciation.",
	},
	"es": {
		excellent: "¡Excelente pronunciación! Sigue así.",
		good:      "Buena pronunciación. Intenta enfocarte en la claridad.",
		practice:  "Practica más para mejorar tu pronunciación.",
	},
}

const (
	fallbackSummary            = "Great job! Let's continue with the next question."
	fallbackNextQuestionPrompt = "Please provide the next question for the user to practice."
)

// FallbackFeedback returns the templated feedback for a word score.
func FallbackFeedback(score int, nativeLanguage string) string {
	t, ok := fallbackFeedback[NormalizeLanguageCode(nativeLanguage)]
	if !ok {
		t = fallbackFeedback["en"]
	}
	switch {
	case score >= 80:
		return t.excellent
	case score >= 60:
		return t.good
	default:
		return t.practice
	}
}

// FeedbackResult is the outcome of composing feedback for a set of words.
type FeedbackResult struct {
	Words  []WordAnalysis
	Source string
}

// Summary is the coaching summary and the transition message to the next question.
type Summary struct {
	Summary            string `json:"summary"`
	NextQuestionPrompt string `json:"next_question_prompt"`
}

// FeedbackService composes natural-language pronunciation coaching.
type FeedbackService struct {
	llm     ChatModel
	timeout time.Duration
	log     zerolog.Logger
}

// NewFeedbackService creates a new feedback service.
func NewFeedbackService(llm ChatModel, timeout time.Duration, log zerolog.Logger) *FeedbackService {
	return &FeedbackService{
		llm:     llm,
		timeout: timeout,
		log:     log,
	}
}

type feedbackPromptWord struct {
	Word              string                `json:"word"`
	QualityScore      int                   `json:"quality_score"`
	Phones            map[string]PhoneScore `json:"phones,omitempty"`
	ProblematicPhones map[string]PhoneScore `json:"problematic_phones,omitempty"`
}

type feedbackItem struct {
	Word         string  `json:"word"`
	QualityScore float64 `json:"quality_score"`
	AIFeedback   string  `json:"ai_feedback"`
}

// Compose returns one feedback string per word. It never fails: when the LLM
// call fails or any word is left without feedback, every word gets the
// templated fallback instead.
func (s *FeedbackService) Compose(ctx context.Context, words []WordAnalysis, overallScore int, nativeLanguage string) FeedbackResult {
	if len(words) == 0 {
		return FeedbackResult{Words: []WordAnalysis{}, Source: FeedbackSourceNone}
	}

	items, err := s.requestFeedback(ctx, words, overallScore, nativeLanguage)
	if err != nil {
		s.log.Warn().Err(err).Int("words", len(words)).Msg("LLM feedback failed, using templates")
		metrics.RecordFeedbackFallback("llm_error")
		return s.fallback(words, nativeLanguage)
	}

	byWord := make(map[string][]string, len(items))
	for _, item := range items {
		text := strings.TrimSpace(item.AIFeedback)
		if text == "" {
			continue
		}
		key := feedbackKey(item.Word)
		byWord[key] = append(byWord[key], text)
	}

	out := make([]WordAnalysis, len(words))
	for i, w := range words {
		key := feedbackKey(w.Word)
		queue := byWord[key]
		if len(queue) == 0 {
			s.log.Warn().Str("word", w.Word).Msg("LLM feedback missing a word, using templates")
			metrics.RecordFeedbackFallback("incomplete")
			return s.fallback(words, nativeLanguage)
		}
		out[i] = w
		out[i].AIFeedback = queue[0]
		// Repeated words reuse the last entry when the model merged them.
		if len(queue) > 1 {
			byWord[key] = queue[1:]
		}
	}

	return FeedbackResult{Words: out, Source: FeedbackSourceLLM}
}

func (s *FeedbackService) fallback(words []WordAnalysis, nativeLanguage string) FeedbackResult {
	out := make([]WordAnalysis, len(words))
	for i, w := range words {
		out[i] = w
		out[i].AIFeedback = FallbackFeedback(w.QualityScore, nativeLanguage)
	}
	return FeedbackResult{Words: out, Source: FeedbackSourceFallback}
}

func (s *FeedbackService) requestFeedback(ctx context.Context, words []WordAnalysis, overallScore int, nativeLanguage string) ([]feedbackItem, error) {
	if s.llm == nil {
		return nil, fmt.Errorf("no LLM configured")
	}

	promptWords := make([]feedbackPromptWord, len(words))
	for i, w := range words {
		promptWords[i] = feedbackPromptWord{
			Word:         w.Word,
			QualityScore: w.QualityScore,
			Phones:       w.Phones,
		}
		if bad := w.ProblematicPhones(); len(bad) > 0 {
			promptWords[i].ProblematicPhones = bad
		}
	}
	wordList, err := json.MarshalIndent(promptWords, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal word list: %w", err)
	}

	native := LanguageLabel(nativeLanguage)
	if native == "" {
		native = "English"
	}

	prompt := fmt.Sprintf(`Analyze the following words and their pronunciation quality scores (0-100) and provide actionable feedback for each word.

Overall pronunciation score: %d/100

Word analysis with phone-level data:
%s

For each word:
1. Briefly assess the pronunciation quality.
2. If the word has "problematic_phones", focus on those specific sounds. Explain how to produce them (tongue placement, lip rounding, nasalization).
3. If the score is 80 or above, reinforce what they did well.

Return ONLY a JSON object with this exact structure:
{"words": [{"word": "word_here", "quality_score": 0, "ai_feedback": "feedback in %s"}]}

Include every word exactly once, in the order given. Feedback must be in %s, specific, encouraging and at most two sentences.`,
		overallScore, string(wordList), native, native)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	raw, err := s.llm.Complete(ctx, client.ChatRequest{
		System:      "You are a French pronunciation expert specializing in actionable feedback. Focus on specific sounds (phones) that need improvement and give clear instructions on how to fix them. Always respond with valid JSON only.",
		Prompt:      prompt,
		JSON:        true,
		Temperature: 0.7,
		MaxTokens:   2000,
	})
	if err != nil {
		return nil, err
	}

	return parseFeedbackItems(raw)
}

// parseFeedbackItems accepts a bare array or an object wrapping it under
// "words" or "feedback".
func parseFeedbackItems(raw string) ([]feedbackItem, error) {
	var items []feedbackItem
	if err := decodeLLMJSON(raw, &items); err == nil {
		return items, nil
	}

	var wrapped struct {
		Words    []feedbackItem `json:"words"`
		Feedback []feedbackItem `json:"feedback"`
	}
	if err := decodeLLMJSON(raw, &wrapped); err != nil {
		return nil, err
	}
	if len(wrapped.Words) > 0 {
		return wrapped.Words, nil
	}
	if len(wrapped.Feedback) > 0 {
		return wrapped.Feedback, nil
	}
	return nil, fmt.Errorf("LLM response has no feedback items")
}

func feedbackKey(word string) string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(word), ".,;:!?¿¡\"'«»"))
}

// Summarize returns a short coaching summary and a transition message in the
// learner's native language. It falls back to fixed text on any failure.
func (s *FeedbackService) Summarize(ctx context.Context, score *NormalizedScore, nativeLanguage string) Summary {
	fallback := Summary{Summary: fallbackSummary, NextQuestionPrompt: fallbackNextQuestionPrompt}
	if s.llm == nil || score == nil {
		return fallback
	}

	good := 0
	for _, w := range score.WordAnalysis {
		if w.QualityScore >= 80 {
			good++
		}
	}
	sample := score.WordAnalysis
	if len(sample) > 5 {
		sample = sample[:5]
	}
	sampleJSON, _ := json.Marshal(sample)

	native := LanguageLabel(nativeLanguage)
	if native == "" {
		native = "English"
	}

	prompt := fmt.Sprintf(`Based on this pronunciation analysis, encourage the learner and prepare them for the next question.

Overall score: %d/100
Words with good pronunciation (80+): %d/%d
Word analysis (first words): %s

Return ONLY a JSON object:
{"summary": "2-3 supportive sentences in %s acknowledging effort, what went well and what to improve",
 "next_question_prompt": "one enthusiastic sentence in %s congratulating them and moving to the next practice question"}`,
		score.OverallScore, good, len(score.WordAnalysis), string(sampleJSON), native, native)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	raw, err := s.llm.Complete(ctx, client.ChatRequest{
		System:      "You are a supportive French pronunciation coach. Always respond with valid JSON only.",
		Prompt:      prompt,
		JSON:        true,
		Temperature: 0.7,
		MaxTokens:   500,
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("Pronunciation summary failed, using default text")
		return fallback
	}

	var out Summary
	if err := decodeLLMJSON(raw, &out); err != nil || out.Summary == "" || out.NextQuestionPrompt == "" {
		s.log.Warn().Err(err).Msg("Pronunciation summary unparseable, using default text")
		return fallback
	}
	return out
}
