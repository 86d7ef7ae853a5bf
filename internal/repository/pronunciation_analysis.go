package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/francoflex/francoflex_service/internal/client"
)

// PronunciationAnalysis is a stored analysis result. Content is kept as the
// client submitted it.
type PronunciationAnalysis struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Type      string          `json:"type"`
	Level     string          `json:"level"`
	Content   json.RawMessage `json:"content"`
	CreatedAt time.Time       `json:"created_at"`
}

// GetID returns the analysis ID.
func (a *PronunciationAnalysis) GetID() string { return a.ID }

// PronunciationAnalysisRepository defines the interface for analysis data access.
type PronunciationAnalysisRepository interface {
	Create(ctx context.Context, a *PronunciationAnalysis) error
	// ListByUser returns analyses newest first; an empty level matches all.
	ListByUser(ctx context.Context, userID, level string) ([]*PronunciationAnalysis, error)
	// Latest returns nil, nil when the user has no analyses.
	Latest(ctx context.Context, userID string) (*PronunciationAnalysis, error)
}

// PostgresPronunciationAnalysisRepository implements PronunciationAnalysisRepository with PostgreSQL.
type PostgresPronunciationAnalysisRepository struct {
	db *client.PostgresClient
}

// NewPostgresPronunciationAnalysisRepository creates a new PostgresPronunciationAnalysisRepository.
func NewPostgresPronunciationAnalysisRepository(db *client.PostgresClient) *PostgresPronunciationAnalysisRepository {
	return &PostgresPronunciationAnalysisRepository{db: db}
}

func (r *PostgresPronunciationAnalysisRepository) Create(ctx context.Context, a *PronunciationAnalysis) error {
	if r.db == nil || r.db.Pool == nil {
		return ErrNoDatabase
	}

	query := `
		INSERT INTO pronunciation_analyses (id, user_id, type, level, content)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	if err := r.db.Pool.QueryRow(ctx, query,
		a.ID,
		a.UserID,
		a.Type,
		a.Level,
		[]byte(a.Content),
	).Scan(&a.CreatedAt); err != nil {
		return fmt.Errorf("failed to create pronunciation analysis: %w", err)
	}
	return nil
}

func (r *PostgresPronunciationAnalysisRepository) ListByUser(ctx context.Context, userID, level string) ([]*PronunciationAnalysis, error) {
	if r.db == nil || r.db.Pool == nil {
		return nil, ErrNoDatabase
	}

	query := `
		SELECT id, user_id, type, level, content, created_at
		FROM pronunciation_analyses
		WHERE user_id = $1 AND ($2 = '' OR level = $2)
		ORDER BY created_at DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, userID, level)
	if err != nil {
		return nil, fmt.Errorf("failed to list pronunciation analyses: %w", err)
	}
	defer rows.Close()

	analyses := make([]*PronunciationAnalysis, 0)
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pronunciation analysis: %w", err)
		}
		analyses = append(analyses, a)
	}
	return analyses, rows.Err()
}

func (r *PostgresPronunciationAnalysisRepository) Latest(ctx context.Context, userID string) (*PronunciationAnalysis, error) {
	if r.db == nil || r.db.Pool == nil {
		return nil, ErrNoDatabase
	}

	query := `
		SELECT id, user_id, type, level, content, created_at
		FROM pronunciation_analyses
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	a, err := scanAnalysis(r.db.Pool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest pronunciation analysis: %w", err)
	}
	return a, nil
}

func scanAnalysis(row pgx.Row) (*PronunciationAnalysis, error) {
	var (
		a       PronunciationAnalysis
		content []byte
	)
	if err := row.Scan(&a.ID, &a.UserID, &a.Type, &a.Level, &content, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Content = json.RawMessage(content)
	return &a, nil
}

// MemoryPronunciationAnalysisRepository keeps analyses in process memory.
type MemoryPronunciationAnalysisRepository struct {
	store *InMemoryRepository[*PronunciationAnalysis]
}

// NewMemoryPronunciationAnalysisRepository creates an empty MemoryPronunciationAnalysisRepository.
func NewMemoryPronunciationAnalysisRepository() *MemoryPronunciationAnalysisRepository {
	return &MemoryPronunciationAnalysisRepository{store: NewInMemoryRepository[*PronunciationAnalysis]()}
}

func (r *MemoryPronunciationAnalysisRepository) Create(ctx context.Context, a *PronunciationAnalysis) error {
	a.CreatedAt = now()
	cp := *a
	return r.store.Create(ctx, &cp)
}

func (r *MemoryPronunciationAnalysisRepository) ListByUser(ctx context.Context, userID, level string) ([]*PronunciationAnalysis, error) {
	found, err := r.store.Filter(ctx, func(a *PronunciationAnalysis) bool {
		return a.UserID == userID && (level == "" || a.Level == level)
	})
	if err != nil {
		return nil, err
	}
	analyses := make([]*PronunciationAnalysis, 0, len(found))
	for i := len(found) - 1; i >= 0; i-- {
		cp := *found[i]
		analyses = append(analyses, &cp)
	}
	return analyses, nil
}

func (r *MemoryPronunciationAnalysisRepository) Latest(ctx context.Context, userID string) (*PronunciationAnalysis, error) {
	analyses, err := r.ListByUser(ctx, userID, "")
	if err != nil || len(analyses) == 0 {
		return nil, err
	}
	return analyses[0], nil
}
