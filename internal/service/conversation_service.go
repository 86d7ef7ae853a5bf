package service

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/francoflex/francoflex_service/internal/client"
	"github.com/francoflex/francoflex_service/internal/errors"
	"github.com/francoflex/francoflex_service/internal/repository"
)

// conversationContextSize is how many previous messages the LLM sees.
const conversationContextSize = 5

const (
	apologyLearning = "Désolé, je ne peux pas répondre en ce moment. Pouvez-vous répéter?"
	apologyNative   = "Sorry, I can't respond right now. Can you repeat?"
)

// ConversationService drives the conversational mode with Madame AI.
type ConversationService struct {
	prefs       repository.PreferenceRepository
	sessions    *SessionService
	messages    repository.MessageRepository
	llm         ChatModel
	audio       *AudioService
	fetcher     AudioFetcher
	transcriber Transcriber
	log         zerolog.Logger
}

// NewConversationService creates a new conversation service. transcriber may be nil.
func NewConversationService(
	prefs repository.PreferenceRepository,
	sessions *SessionService,
	messages repository.MessageRepository,
	llm ChatModel,
	audio *AudioService,
	fetcher AudioFetcher,
	transcriber Transcriber,
	log zerolog.Logger,
) *ConversationService {
	return &ConversationService{
		prefs:       prefs,
		sessions:    sessions,
		messages:    messages,
		llm:         llm,
		audio:       audio,
		fetcher:     fetcher,
		transcriber: transcriber,
		log:         log,
	}
}

// SaveMessageReq is the input of SaveMessage.
type SaveMessageReq struct {
	SessionID string  `json:"session_id"`
	Author    string  `json:"author"`
	Content   string  `json:"content"`
	AudioURL  *string `json:"audio_url"`
}

// SaveMessage appends a message to a session.
func (s *ConversationService) SaveMessage(ctx context.Context, req SaveMessageReq, callerID string) (*repository.Message, error) {
	author := strings.ToLower(strings.TrimSpace(req.Author))
	if author != repository.AuthorSystem && author != repository.AuthorUser {
		return nil, errors.Validation("author must be system or user")
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, errors.Validation("content is required")
	}
	if _, err := s.sessions.loadOwned(ctx, req.SessionID, callerID); err != nil {
		return nil, err
	}
	return s.appendMessage(ctx, req.SessionID, author, req.Content, req.AudioURL)
}

func (s *ConversationService) appendMessage(ctx context.Context, sessionID, author, content string, audioURL *string) (*repository.Message, error) {
	m := &repository.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Author:    author,
		Content:   content,
		AudioURL:  audioURL,
	}
	if err := s.messages.Create(ctx, m); err != nil {
		return nil, errors.Wrap(errors.ErrStorageService, "failed to save message", err)
	}
	return m, nil
}

// ListMessages returns a session's messages oldest first.
func (s *ConversationService) ListMessages(ctx context.Context, sessionID, callerID string) ([]*repository.Message, error) {
	if _, err := s.sessions.loadOwned(ctx, sessionID, callerID); err != nil {
		return nil, err
	}
	messages, err := s.messages.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrStorageService, "failed to list messages", err)
	}
	return messages, nil
}

// GreetingReq is the input of GenerateGreeting.
type GreetingReq struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Level     string `json:"level"`
}

// GenerateGreeting writes a personalized opening message in the learning
// language and, when the session exists, records it as a system message.
func (s *ConversationService) GenerateGreeting(ctx context.Context, req GreetingReq) (string, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return "", errors.Validation("user_id is required")
	}
	pref, err := s.prefs.GetByUserID(ctx, req.UserID)
	if err != nil {
		return "", errors.Wrap(errors.ErrStorageService, "failed to load preferences", err)
	}
	if pref == nil {
		return "", errors.NotFound("preferences")
	}

	var session *repository.Session
	if req.SessionID != "" {
		session, err = s.sessions.loadOwned(ctx, req.SessionID, req.UserID)
		if err != nil {
			return "", err
		}
	}

	level, ok := NormalizeLevel(req.Level)
	if !ok && session != nil {
		level = session.Level
	}

	greeting := s.greeting(ctx, pref, session, level)

	if session != nil {
		if _, err := s.appendMessage(ctx, session.ID, repository.AuthorSystem, greeting, nil); err != nil {
			s.log.Warn().Err(err).Str("session_id", session.ID).Msg("Failed to record greeting message")
		}
	}
	return greeting, nil
}

func (s *ConversationService) greeting(ctx context.Context, pref *repository.Preference, session *repository.Session, level string) string {
	name := strings.TrimSpace(pref.Name)
	fallback := defaultGreeting(name)
	if s.llm == nil {
		return fallback
	}

	topics := sessionTopics(session)
	language := LanguageLabel(pref.Learning)

	prompt := fmt.Sprintf(`Generate a personalized greeting in %s for a pronunciation practice session.

User details:
- Name: %s
- Level: %s
- Session topics: %s

The message should greet the user by name, introduce yourself as "Madame AI, votre assistante Francoflex", explain that today's goal is pronunciation practice, mention the topics, and be encouraging. Write 2-3 sentences entirely in %s.`,
		language, orDefault(name, "the learner"), orDefault(level, "unknown"), topics, language)

	text, err := s.llm.Complete(ctx, client.ChatRequest{
		System:      fmt.Sprintf("You are Madame AI, a friendly language learning assistant for Francoflex. Always respond in %s only.", language),
		Prompt:      prompt,
		Temperature: 0.7,
		MaxTokens:   200,
	})
	text = strings.Trim(strings.TrimSpace(text), "\"")
	if err != nil || text == "" {
		s.log.Warn().Err(err).Msg("Greeting generation failed, using default greeting")
		return fallback
	}
	return text
}

func defaultGreeting(name string) string {
	hello := "Bonjour!"
	if name != "" {
		hello = fmt.Sprintf("Bonjour %s!", name)
	}
	return hello + " Je suis Madame AI, votre assistante Francoflex. Commençons cette session d'apprentissage de la prononciation!"
}

// sessionTopics takes the first five words of the first three sentences.
func sessionTopics(session *repository.Session) string {
	if session == nil {
		return "various topics"
	}
	var topics []string
	for i, q := range session.Questions {
		if i == 3 {
			break
		}
		words := strings.Fields(q.Learning)
		if len(words) > 5 {
			words = words[:5]
		}
		if len(words) > 0 {
			topics = append(topics, strings.Join(words, " "))
		}
	}
	if len(topics) == 0 {
		return "various topics"
	}
	return strings.Join(topics, ", ")
}

// ConversationReq is the input of Respond.
type ConversationReq struct {
	UserID      string `json:"user_id"`
	SessionID   string `json:"session_id"`
	UserMessage string `json:"user_message"`
	Level       string `json:"level"`
}

// ConversationReply is Madame AI's answer to one user turn.
type ConversationReply struct {
	Learning string  `json:"learning"`
	Native   string  `json:"native"`
	Context  string  `json:"context"`
	AudioURL *string `json:"audio_url"`
}

// Respond answers the user's message in the learning language using the
// recent session history, voices the reply, and records both turns.
func (s *ConversationService) Respond(ctx context.Context, req ConversationReq) (*ConversationReply, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, errors.Validation("user_id is required")
	}
	if strings.TrimSpace(req.UserMessage) == "" {
		return nil, errors.Validation("user_message is required")
	}

	session, err := s.sessions.loadOwned(ctx, req.SessionID, req.UserID)
	if err != nil {
		return nil, err
	}
	pref, err := s.prefs.GetByUserID(ctx, req.UserID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrStorageService, "failed to load preferences", err)
	}
	if pref == nil {
		return nil, errors.NotFound("preferences")
	}

	level, ok := NormalizeLevel(req.Level)
	if !ok {
		level = session.Level
	}

	history, err := s.messages.ListRecent(ctx, session.ID, conversationContextSize)
	if err != nil {
		return nil, errors.Wrap(errors.ErrStorageService, "failed to load conversation history", err)
	}

	if _, err := s.appendMessage(ctx, session.ID, repository.AuthorUser, req.UserMessage, nil); err != nil {
		return nil, err
	}

	reply := s.reply(ctx, pref, level, history, req.UserMessage)

	if reply.Context != "error" {
		url, err := s.audio.SynthesizeURL(ctx, reply.Learning, req.UserID, session.ID)
		if err != nil {
			s.log.Warn().Err(err).Str("session_id", session.ID).Msg("Reply audio synthesis failed")
		} else {
			reply.AudioURL = &url
		}
	}

	if _, err := s.appendMessage(ctx, session.ID, repository.AuthorSystem, reply.Learning, reply.AudioURL); err != nil {
		return nil, err
	}
	return reply, nil
}

func (s *ConversationService) reply(ctx context.Context, pref *repository.Preference, level string, history []*repository.Message, userMessage string) *ConversationReply {
	language := LanguageLabel(pref.Learning)
	native := orDefault(LanguageLabel(pref.Native), "English")

	var transcript strings.Builder
	for _, m := range history {
		role := "Assistant"
		if m.Author == repository.AuthorUser {
			role = "User"
		}
		fmt.Fprintf(&transcript, "%s: %s\n", role, m.Content)
	}

	prompt := fmt.Sprintf(`You are having a natural conversation with a %s level student learning %s.

Student profile:
- Native language: %s
- Industry: %s
- Job: %s

Recent conversation:
%s
User's latest message: %q

Respond naturally in %s at the %s level, with vocabulary and grammar appropriate for that level. Bring in their industry when relevant. Be encouraging and keep it to 1-2 sentences.

Respond with a JSON object:
{"learning": "your response in %s", "native": "translation in %s", "context": "conversational"}`,
		level, language, native, orDefault(pref.Industry, "General"), orDefault(pref.Job, "Professional"),
		transcript.String(), userMessage, language, level, language, native)

	if s.llm == nil {
		return &ConversationReply{Learning: apologyLearning, Native: apologyNative, Context: "error"}
	}
	raw, err := s.llm.Complete(ctx, client.ChatRequest{
		System:      "You are Madame AI, a friendly language learning assistant for Francoflex. Always respond with valid JSON only.",
		Prompt:      prompt,
		JSON:        true,
		Temperature: 0.7,
		MaxTokens:   300,
	})

	var out ConversationReply
	if err == nil {
		err = decodeLLMJSON(raw, &out)
	}
	out.Learning = strings.TrimSpace(out.Learning)
	out.Native = strings.TrimSpace(out.Native)
	if err != nil || out.Learning == "" {
		s.log.Warn().Err(err).Msg("Conversational response failed, using apology")
		return &ConversationReply{Learning: apologyLearning, Native: apologyNative, Context: "error"}
	}
	out.Context = "conversational"
	return &out
}

// SpeechToText downloads a recording and transcribes it.
func (s *ConversationService) SpeechToText(ctx context.Context, audioURL, language string) (string, error) {
	audioURL = strings.TrimSpace(audioURL)
	if audioURL == "" {
		return "", errors.Validation("audio_url is required")
	}
	if s.transcriber == nil {
		return "", errors.NotConfigured("ElevenLabs")
	}
	// Accept dialects (fr-FR) as well as names and codes.
	lang := NormalizeLanguageCode(DialectLanguage(strings.TrimSpace(language)))
	if lang == "" {
		lang = "fr"
	}

	audio, err := s.fetcher.Download(ctx, audioURL)
	if err != nil {
		return "", err
	}

	filename := path.Base(strings.SplitN(audioURL, "?", 2)[0])
	if format := client.DetectAudioFormat(audio); format != "" && path.Ext(filename) == "" {
		filename = "audio." + format
	}

	text, err := s.transcriber.SpeechToText(ctx, audio, filename, lang)
	if err != nil {
		return "", errors.Upstream("ElevenLabs", err)
	}
	return text, nil
}
