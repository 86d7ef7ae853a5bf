package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/francoflex/francoflex_service/internal/errors"
	"github.com/francoflex/francoflex_service/internal/repository"
)

// PreferenceService stores one preference record per user.
type PreferenceService struct {
	repo repository.PreferenceRepository
}

// NewPreferenceService creates a new preference service.
func NewPreferenceService(repo repository.PreferenceRepository) *PreferenceService {
	return &PreferenceService{repo: repo}
}

// SavePreferencesReq holds the fields of a preference record.
type SavePreferencesReq struct {
	UserID   string `json:"user_id"`
	Learning string `json:"learning"`
	Native   string `json:"native"`
	Industry string `json:"industry"`
	Job      string `json:"job"`
	Name     string `json:"name"`
}

// Save inserts the user's preferences or overwrites the existing record.
func (s *PreferenceService) Save(ctx context.Context, req SavePreferencesReq) (*repository.Preference, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	switch {
	case req.UserID == "":
		return nil, errors.Validation("user_id is required")
	case strings.TrimSpace(req.Learning) == "":
		return nil, errors.Validation("learning is required")
	case strings.TrimSpace(req.Native) == "":
		return nil, errors.Validation("native is required")
	}

	existing, err := s.repo.GetByUserID(ctx, req.UserID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrStorageService, "failed to load preferences", err)
	}

	p := &repository.Preference{
		UserID:   req.UserID,
		Learning: strings.TrimSpace(req.Learning),
		Native:   strings.TrimSpace(req.Native),
		Industry: strings.TrimSpace(req.Industry),
		Job:      strings.TrimSpace(req.Job),
		Name:     strings.TrimSpace(req.Name),
	}
	if existing != nil {
		p.ID = existing.ID
	} else {
		p.ID = uuid.NewString()
	}

	if err := s.repo.Upsert(ctx, p); err != nil {
		return nil, errors.Wrap(errors.ErrStorageService, "failed to save preferences", err)
	}
	return p, nil
}

// Get returns the user's preferences, or nil when none are configured.
func (s *PreferenceService) Get(ctx context.Context, userID string) (*repository.Preference, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.Validation("user_id is required")
	}
	p, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrStorageService, "failed to load preferences", err)
	}
	return p, nil
}
