package service

import (
	"encoding/json"
	"fmt"
	"math"
)

// NeedsWorkThreshold is the quality score below which a word or phone is flagged.
const NeedsWorkThreshold = 70

// PhoneScore is the score of a single phone within a word.
type PhoneScore struct {
	QualityScore  int     `json:"quality_score"`
	SoundMostLike *string `json:"sound_most_like"`
}

// WordAnalysis is the normalized score of one word.
type WordAnalysis struct {
	Word         string                `json:"word"`
	QualityScore int                   `json:"quality_score"`
	NeedsWork    bool                  `json:"needs_work"`
	Phones       map[string]PhoneScore `json:"phones"`
	AIFeedback   string                `json:"ai_feedback,omitempty"`
}

// CEFRScore carries the measured pronunciation level when the provider reports one.
type CEFRScore struct {
	Level *string `json:"level,omitempty"`
}

// NormalizedScore is the flattened pronunciation result.
type NormalizedScore struct {
	OverallScore int            `json:"overall_score"`
	CEFRScore    CEFRScore      `json:"cefr_score"`
	WordAnalysis []WordAnalysis `json:"word_analysis"`
	// OverallScoreSource names the strategy that produced OverallScore.
	OverallScoreSource string `json:"-"`
}

// ProblematicPhones returns the phones of w scoring below NeedsWorkThreshold.
func (w WordAnalysis) ProblematicPhones() map[string]PhoneScore {
	out := make(map[string]PhoneScore)
	for phone, score := range w.Phones {
		if score.QualityScore < NeedsWorkThreshold {
			out[phone] = score
		}
	}
	return out
}

type speechAcePronunciation struct {
	Pronunciation *float64 `json:"pronunciation"`
}

type speechAceCEFR struct {
	Pronunciation *string `json:"pronunciation"`
}

type speechAcePhone struct {
	Phone         string  `json:"phone"`
	QualityScore  float64 `json:"quality_score"`
	SoundMostLike *string `json:"sound_most_like"`
}

type speechAceWord struct {
	Word           string           `json:"word"`
	QualityScore   float64          `json:"quality_score"`
	PhoneScoreList []speechAcePhone `json:"phone_score_list"`
}

type speechAceTextScore struct {
	QualityScore   *float64                `json:"quality_score"`
	SpeechAceScore *speechAcePronunciation `json:"speechace_score"`
	CEFRScore      *speechAceCEFR          `json:"cefr_score"`
	WordScoreList  []speechAceWord         `json:"word_score_list"`
}

type speechAceResponse struct {
	TextScore      *speechAceTextScore     `json:"text_score"`
	SpeechAceScore *speechAcePronunciation `json:"speechace_score"`
}

func (r *speechAceResponse) words() []speechAceWord {
	if r.TextScore == nil {
		return nil
	}
	return r.TextScore.WordScoreList
}

// scoreStrategy extracts an overall score from one location in the response.
type scoreStrategy struct {
	name    string
	extract func(r *speechAceResponse) (float64, bool)
}

// overallScoreStrategies are evaluated in order; the first that yields a value wins.
var overallScoreStrategies = []scoreStrategy{
	{
		name: "text_score.speechace_score.pronunciation",
		extract: func(r *speechAceResponse) (float64, bool) {
			if r.TextScore == nil || r.TextScore.SpeechAceScore == nil || r.TextScore.SpeechAceScore.Pronunciation == nil {
				return 0, false
			}
			return *r.TextScore.SpeechAceScore.Pronunciation, true
		},
	},
	{
		name: "speechace_score.pronunciation",
		extract: func(r *speechAceResponse) (float64, bool) {
			if r.SpeechAceScore == nil || r.SpeechAceScore.Pronunciation == nil {
				return 0, false
			}
			return *r.SpeechAceScore.Pronunciation, true
		},
	},
	{
		name: "text_score.quality_score",
		extract: func(r *speechAceResponse) (float64, bool) {
			if r.TextScore == nil || r.TextScore.QualityScore == nil {
				return 0, false
			}
			return *r.TextScore.QualityScore, true
		},
	},
	{
		name: "word_mean",
		extract: func(r *speechAceResponse) (float64, bool) {
			words := r.words()
			if len(words) == 0 {
				return 0, true
			}
			var sum float64
			for _, w := range words {
				sum += w.QualityScore
			}
			return sum / float64(len(words)), true
		},
	},
}

// NormalizeScore flattens a raw speech scoring response. A response without
// a word list yields an empty WordAnalysis, not an error.
func NormalizeScore(raw []byte) (*NormalizedScore, error) {
	var resp speechAceResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode scoring response: %w", err)
	}

	result := &NormalizedScore{
		WordAnalysis: make([]WordAnalysis, 0, len(resp.words())),
	}

	for _, strategy := range overallScoreStrategies {
		if score, ok := strategy.extract(&resp); ok {
			result.OverallScore = roundScore(score)
			result.OverallScoreSource = strategy.name
			break
		}
	}

	if resp.TextScore != nil && resp.TextScore.CEFRScore != nil && resp.TextScore.CEFRScore.Pronunciation != nil {
		level := *resp.TextScore.CEFRScore.Pronunciation
		result.CEFRScore.Level = &level
	}

	for _, w := range resp.words() {
		wa := WordAnalysis{
			Word:         w.Word,
			QualityScore: roundScore(w.QualityScore),
			Phones:       make(map[string]PhoneScore, len(w.PhoneScoreList)),
		}
		wa.NeedsWork = wa.QualityScore < NeedsWorkThreshold
		for _, p := range w.PhoneScoreList {
			wa.Phones[p.Phone] = PhoneScore{
				QualityScore:  roundScore(p.QualityScore),
				SoundMostLike: p.SoundMostLike,
			}
		}
		result.WordAnalysis = append(result.WordAnalysis, wa)
	}

	return result, nil
}

func roundScore(v float64) int {
	r := int(math.Round(v))
	switch {
	case r < 0:
		return 0
	case r > 100:
		return 100
	default:
		return r
	}
}
