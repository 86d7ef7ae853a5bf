package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/francoflex/francoflex_service/internal/client"
	"github.com/francoflex/francoflex_service/internal/errors"
)

// AudioService synthesizes sentence audio and stores learner recordings.
type AudioService struct {
	tts      SpeechSynthesizer
	store    ObjectStore
	cache    AudioCache
	voiceID  string
	cacheTTL time.Duration
	log      zerolog.Logger
	now      func() time.Time
}

// NewAudioService creates a new audio service. tts, store and cache may be nil.
func NewAudioService(tts SpeechSynthesizer, store ObjectStore, cache AudioCache, voiceID string, cacheTTL time.Duration, log zerolog.Logger) *AudioService {
	return &AudioService{
		tts:      tts,
		store:    store,
		cache:    cache,
		voiceID:  voiceID,
		cacheTTL: cacheTTL,
		log:      log,
		now:      time.Now,
	}
}

// SynthesizeURL returns a public URL of text spoken aloud, reusing cached audio
// for sentences synthesized before.
func (s *AudioService) SynthesizeURL(ctx context.Context, text, userID, sessionID string) (string, error) {
	if s.tts == nil {
		return "", errors.NotConfigured("ElevenLabs")
	}
	if s.store == nil {
		return "", errors.NotConfigured("object storage")
	}

	key := s.cacheKey(text)
	if s.cache != nil {
		url, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.log.Warn().Err(err).Msg("Audio cache lookup failed")
		} else if ok {
			return url, nil
		}
	}

	audio, err := s.tts.TextToSpeech(ctx, text)
	if err != nil {
		return "", errors.Upstream("ElevenLabs", err)
	}

	objectKey := fmt.Sprintf("tts/%s/%s/%s.mp3", userID, sessionID, uuid.NewString())
	url, err := s.store.Upload(ctx, objectKey, audio, "audio/mpeg")
	if err != nil {
		return "", errors.Wrap(errors.ErrStorageService, "failed to upload synthesized audio", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, url, s.cacheTTL); err != nil {
			s.log.Warn().Err(err).Msg("Audio cache store failed")
		}
	}
	return url, nil
}

func (s *AudioService) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(text)))
	return fmt.Sprintf("tts:%s:%s", s.voiceID, hex.EncodeToString(sum[:]))
}

// UploadRecordingReq is a learner recording to store.
type UploadRecordingReq struct {
	UserID      string
	SessionID   string
	Filename    string
	ContentType string
	Data        []byte
}

// UploadResult is the stored location of a recording.
type UploadResult struct {
	AudioURL string `json:"audio_url"`
	Filename string `json:"filename"`
}

// UploadRecording validates and stores a learner recording under
// {user}/{session|audio}/{unix_ms}-{filename}.
func (s *AudioService) UploadRecording(ctx context.Context, req UploadRecordingReq) (*UploadResult, error) {
	if req.UserID == "" {
		return nil, errors.Validation("user_id is required")
	}
	mediaType, _, _ := strings.Cut(strings.ToLower(req.ContentType), ";")
	if !strings.HasPrefix(strings.TrimSpace(mediaType), "audio/") {
		return nil, errors.Validation("file must be an audio file")
	}
	if len(req.Data) == 0 {
		return nil, errors.Validation("audio file is empty")
	}
	if len(req.Data) > client.MaxAudioBytes {
		return nil, errors.Validation("audio file exceeds 10MB")
	}
	if s.store == nil {
		return nil, errors.NotConfigured("object storage")
	}

	filename := path.Base(strings.ReplaceAll(req.Filename, "\\", "/"))
	if filename == "" || filename == "." || filename == "/" {
		filename = "recording.wav"
	}
	folder := req.SessionID
	if folder == "" {
		folder = "audio"
	}
	key := fmt.Sprintf("%s/%s/%d-%s", req.UserID, folder, s.now().UnixMilli(), filename)

	url, err := s.store.Upload(ctx, key, req.Data, req.ContentType)
	if err != nil {
		return nil, errors.Wrap(errors.ErrStorageService, "failed to upload audio", err)
	}
	return &UploadResult{AudioURL: url, Filename: filename}, nil
}
