package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/francoflex/francoflex_service/internal/client"
)

// Preference holds one learner's language and career settings.
type Preference struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Learning  string    `json:"learning"`
	Native    string    `json:"native"`
	Industry  string    `json:"industry"`
	Job       string    `json:"job"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GetID returns the preference ID.
func (p *Preference) GetID() string { return p.ID }

// PreferenceRepository defines the interface for preference data access.
type PreferenceRepository interface {
	// GetByUserID returns nil, nil when the user has no preferences.
	GetByUserID(ctx context.Context, userID string) (*Preference, error)
	// Upsert inserts p, or overwrites every field of the user's existing row.
	Upsert(ctx context.Context, p *Preference) error
}

// PostgresPreferenceRepository implements PreferenceRepository with PostgreSQL.
type PostgresPreferenceRepository struct {
	db *client.PostgresClient
}

// NewPostgresPreferenceRepository creates a new PostgresPreferenceRepository.
func NewPostgresPreferenceRepository(db *client.PostgresClient) *PostgresPreferenceRepository {
	return &PostgresPreferenceRepository{db: db}
}

func (r *PostgresPreferenceRepository) GetByUserID(ctx context.Context, userID string) (*Preference, error) {
	if r.db == nil || r.db.Pool == nil {
		return nil, ErrNoDatabase
	}

	query := `
		SELECT id, user_id, learning, native, industry, job, name, created_at, updated_at
		FROM preferences
		WHERE user_id = $1
	`

	var p Preference
	err := r.db.Pool.QueryRow(ctx, query, userID).Scan(
		&p.ID,
		&p.UserID,
		&p.Learning,
		&p.Native,
		&p.Industry,
		&p.Job,
		&p.Name,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get preferences: %w", err)
	}
	return &p, nil
}

func (r *PostgresPreferenceRepository) Upsert(ctx context.Context, p *Preference) error {
	if r.db == nil || r.db.Pool == nil {
		return ErrNoDatabase
	}

	query := `
		INSERT INTO preferences (id, user_id, learning, native, industry, job, name)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			learning = EXCLUDED.learning,
			native = EXCLUDED.native,
			industry = EXCLUDED.industry,
			job = EXCLUDED.job,
			name = EXCLUDED.name,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		p.ID,
		p.UserID,
		p.Learning,
		p.Native,
		p.Industry,
		p.Job,
		p.Name,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert preferences: %w", err)
	}
	return nil
}

// MemoryPreferenceRepository keeps preferences in process memory.
type MemoryPreferenceRepository struct {
	store *InMemoryRepository[*Preference]
}

// NewMemoryPreferenceRepository creates an empty MemoryPreferenceRepository.
func NewMemoryPreferenceRepository() *MemoryPreferenceRepository {
	return &MemoryPreferenceRepository{store: NewInMemoryRepository[*Preference]()}
}

func (r *MemoryPreferenceRepository) GetByUserID(ctx context.Context, userID string) (*Preference, error) {
	found, err := r.store.Filter(ctx, func(p *Preference) bool { return p.UserID == userID })
	if err != nil || len(found) == 0 {
		return nil, err
	}
	cp := *found[0]
	return &cp, nil
}

func (r *MemoryPreferenceRepository) Upsert(ctx context.Context, p *Preference) error {
	existing, err := r.GetByUserID(ctx, p.UserID)
	if err != nil {
		return err
	}

	ts := now()
	cp := *p
	if existing != nil {
		cp.ID = existing.ID
		cp.CreatedAt = existing.CreatedAt
		cp.UpdatedAt = ts
		if err := r.store.Update(ctx, &cp); err != nil {
			return err
		}
	} else {
		cp.CreatedAt = ts
		cp.UpdatedAt = ts
		if err := r.store.Create(ctx, &cp); err != nil {
			return err
		}
	}

	p.ID, p.CreatedAt, p.UpdatedAt = cp.ID, cp.CreatedAt, cp.UpdatedAt
	return nil
}
