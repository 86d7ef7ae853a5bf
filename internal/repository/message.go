package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/francoflex/francoflex_service/internal/client"
)

// Message authors.
const (
	AuthorSystem = "system"
	AuthorUser   = "user"
)

// Message is one turn of a conversational session.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	AudioURL  *string   `json:"audio_url"`
	CreatedAt time.Time `json:"created_at"`
}

// GetID returns the message ID.
func (m *Message) GetID() string { return m.ID }

// MessageRepository defines the interface for message data access.
type MessageRepository interface {
	Create(ctx context.Context, m *Message) error
	// ListBySession returns the session's messages oldest first.
	ListBySession(ctx context.Context, sessionID string) ([]*Message, error)
	// ListRecent returns at most limit of the newest messages, oldest first.
	ListRecent(ctx context.Context, sessionID string, limit int) ([]*Message, error)
}

// PostgresMessageRepository implements MessageRepository with PostgreSQL.
type PostgresMessageRepository struct {
	db *client.PostgresClient
}

// NewPostgresMessageRepository creates a new PostgresMessageRepository.
func NewPostgresMessageRepository(db *client.PostgresClient) *PostgresMessageRepository {
	return &PostgresMessageRepository{db: db}
}

func (r *PostgresMessageRepository) Create(ctx context.Context, m *Message) error {
	if r.db == nil || r.db.Pool == nil {
		return ErrNoDatabase
	}

	query := `
		INSERT INTO messages (id, session_id, author, content, audio_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	if err := r.db.Pool.QueryRow(ctx, query,
		m.ID,
		m.SessionID,
		m.Author,
		m.Content,
		m.AudioURL,
	).Scan(&m.CreatedAt); err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (r *PostgresMessageRepository) ListBySession(ctx context.Context, sessionID string) ([]*Message, error) {
	return r.query(ctx, `
		SELECT id, session_id, author, content, audio_url, created_at
		FROM messages
		WHERE session_id = $1
		ORDER BY created_at ASC, seq ASC
	`, sessionID)
}

func (r *PostgresMessageRepository) ListRecent(ctx context.Context, sessionID string, limit int) ([]*Message, error) {
	return r.query(ctx, `
		SELECT id, session_id, author, content, audio_url, created_at
		FROM (
			SELECT id, session_id, author, content, audio_url, created_at, seq
			FROM messages
			WHERE session_id = $1
			ORDER BY created_at DESC, seq DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC, seq ASC
	`, sessionID, limit)
}

func (r *PostgresMessageRepository) query(ctx context.Context, query string, args ...any) ([]*Message, error) {
	if r.db == nil || r.db.Pool == nil {
		return nil, ErrNoDatabase
	}

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*Message, 0)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Author, &m.Content, &m.AudioURL, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, &m)
	}
	return messages, rows.Err()
}

// MemoryMessageRepository keeps messages in process memory.
type MemoryMessageRepository struct {
	store *InMemoryRepository[*Message]
}

// NewMemoryMessageRepository creates an empty MemoryMessageRepository.
func NewMemoryMessageRepository() *MemoryMessageRepository {
	return &MemoryMessageRepository{store: NewInMemoryRepository[*Message]()}
}

func (r *MemoryMessageRepository) Create(ctx context.Context, m *Message) error {
	m.CreatedAt = now()
	cp := *m
	return r.store.Create(ctx, &cp)
}

func (r *MemoryMessageRepository) ListBySession(ctx context.Context, sessionID string) ([]*Message, error) {
	found, err := r.store.Filter(ctx, func(m *Message) bool { return m.SessionID == sessionID })
	if err != nil {
		return nil, err
	}
	messages := make([]*Message, len(found))
	for i, m := range found {
		cp := *m
		messages[i] = &cp
	}
	return messages, nil
}

func (r *MemoryMessageRepository) ListRecent(ctx context.Context, sessionID string, limit int) ([]*Message, error) {
	messages, err := r.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return messages, nil
}
