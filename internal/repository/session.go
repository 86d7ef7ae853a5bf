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

// Question statuses.
const (
	StatusDone    = "done"
	StatusNotDone = "not_done"
)

// Question is one practice sentence embedded in a Session.
type Question struct {
	Learning string  `json:"learning"`
	Native   string  `json:"native"`
	AudioURL *string `json:"audio_url"`
	Status   string  `json:"status"`
}

// Session is an ordered list of questions generated for one user at one level.
type Session struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Level     string     `json:"level"`
	Mode      string     `json:"type"`
	Questions []Question `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// GetID returns the session ID.
func (s *Session) GetID() string { return s.ID }

func (s *Session) clone() *Session {
	cp := *s
	cp.Questions = make([]Question, len(s.Questions))
	copy(cp.Questions, s.Questions)
	return &cp
}

// SessionRepository defines the interface for session data access.
type SessionRepository interface {
	Create(ctx context.Context, s *Session) error
	// GetByID returns nil, nil when the session does not exist.
	GetByID(ctx context.Context, id string) (*Session, error)
	// ListByUser returns the user's sessions newest first.
	ListByUser(ctx context.Context, userID string) ([]*Session, error)
	// UpdateQuestions overwrites the whole question sequence.
	UpdateQuestions(ctx context.Context, id string, questions []Question) error
}

// PostgresSessionRepository implements SessionRepository with PostgreSQL.
// Questions are stored as one JSONB array in the content column.
type PostgresSessionRepository struct {
	db *client.PostgresClient
}

// NewPostgresSessionRepository creates a new PostgresSessionRepository.
func NewPostgresSessionRepository(db *client.PostgresClient) *PostgresSessionRepository {
	return &PostgresSessionRepository{db: db}
}

func (r *PostgresSessionRepository) Create(ctx context.Context, s *Session) error {
	if r.db == nil || r.db.Pool == nil {
		return ErrNoDatabase
	}

	content, err := json.Marshal(s.Questions)
	if err != nil {
		return fmt.Errorf("failed to marshal session content: %w", err)
	}

	query := `
		INSERT INTO sessions (id, user_id, level, type, content)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	err = r.db.Pool.QueryRow(ctx, query,
		s.ID,
		s.UserID,
		s.Level,
		s.Mode,
		content,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *PostgresSessionRepository) GetByID(ctx context.Context, id string) (*Session, error) {
	if r.db == nil || r.db.Pool == nil {
		return nil, ErrNoDatabase
	}

	query := `
		SELECT id, user_id, level, type, content, created_at, updated_at
		FROM sessions
		WHERE id = $1
	`

	s, err := scanSession(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}

func (r *PostgresSessionRepository) ListByUser(ctx context.Context, userID string) ([]*Session, error) {
	if r.db == nil || r.db.Pool == nil {
		return nil, ErrNoDatabase
	}

	query := `
		SELECT id, user_id, level, type, content, created_at, updated_at
		FROM sessions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]*Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *PostgresSessionRepository) UpdateQuestions(ctx context.Context, id string, questions []Question) error {
	if r.db == nil || r.db.Pool == nil {
		return ErrNoDatabase
	}

	content, err := json.Marshal(questions)
	if err != nil {
		return fmt.Errorf("failed to marshal session content: %w", err)
	}

	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE sessions
		SET content = $1, updated_at = NOW()
		WHERE id = $2
	`, content, id)
	if err != nil {
		return fmt.Errorf("failed to update session content: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanSession(row pgx.Row) (*Session, error) {
	var (
		s       Session
		content []byte
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.Level, &s.Mode, &content, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	if len(content) > 0 {
		if err := json.Unmarshal(content, &s.Questions); err != nil {
			return nil, fmt.Errorf("failed to decode session content: %w", err)
		}
	}
	if s.Questions == nil {
		s.Questions = []Question{}
	}
	return &s, nil
}

// MemorySessionRepository keeps sessions in process memory.
type MemorySessionRepository struct {
	store *InMemoryRepository[*Session]
}

// NewMemorySessionRepository creates an empty MemorySessionRepository.
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{store: NewInMemoryRepository[*Session]()}
}

func (r *MemorySessionRepository) Create(ctx context.Context, s *Session) error {
	ts := now()
	s.CreatedAt, s.UpdatedAt = ts, ts
	return r.store.Create(ctx, s.clone())
}

func (r *MemorySessionRepository) GetByID(ctx context.Context, id string) (*Session, error) {
	s, err := r.store.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.clone(), nil
}

func (r *MemorySessionRepository) ListByUser(ctx context.Context, userID string) ([]*Session, error) {
	found, err := r.store.Filter(ctx, func(s *Session) bool { return s.UserID == userID })
	if err != nil {
		return nil, err
	}
	sessions := make([]*Session, 0, len(found))
	for i := len(found) - 1; i >= 0; i-- {
		sessions = append(sessions, found[i].clone())
	}
	return sessions, nil
}

func (r *MemorySessionRepository) UpdateQuestions(ctx context.Context, id string, questions []Question) error {
	s, err := r.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	updated := s.clone()
	updated.Questions = make([]Question, len(questions))
	copy(updated.Questions, questions)
	updated.UpdatedAt = now()
	return r.store.Update(ctx, updated)
}
