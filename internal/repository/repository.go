package repository

import (
	"context"
	"sync"
	"time"
)

// Entity is a base interface for all entities.
type Entity interface {
	GetID() string
}

// InMemoryRepository is a goroutine-safe in-memory store that remembers
// insertion order. It backs the Memory* repositories used when no database
// is configured and in tests.
type InMemoryRepository[T Entity] struct {
	mu    sync.RWMutex
	data  map[string]T
	order []string
}

// NewInMemoryRepository creates a new in-memory repository.
func NewInMemoryRepository[T Entity]() *InMemoryRepository[T] {
	return &InMemoryRepository[T]{
		data: make(map[string]T),
	}
}

// GetByID retrieves an entity by ID.
func (r *InMemoryRepository[T]) GetByID(ctx context.Context, id string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var zero T
	if entity, ok := r.data[id]; ok {
		return entity, nil
	}
	return zero, ErrNotFound
}

// GetAll retrieves all entities in insertion order.
func (r *InMemoryRepository[T]) GetAll(ctx context.Context) ([]T, error) {
	return r.Filter(ctx, func(T) bool { return true })
}

// Filter returns the entities matching keep, in insertion order.
func (r *InMemoryRepository[T]) Filter(ctx context.Context, keep func(T) bool) ([]T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entities := make([]T, 0, len(r.order))
	for _, id := range r.order {
		if entity := r.data[id]; keep(entity) {
			entities = append(entities, entity)
		}
	}
	return entities, nil
}

// Create creates a new entity.
func (r *InMemoryRepository[T]) Create(ctx context.Context, entity T) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.data[entity.GetID()]; ok {
		return ErrAlreadyExists
	}
	r.data[entity.GetID()] = entity
	r.order = append(r.order, entity.GetID())
	return nil
}

// Update replaces an existing entity.
func (r *InMemoryRepository[T]) Update(ctx context.Context, entity T) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.data[entity.GetID()]; !ok {
		return ErrNotFound
	}
	r.data[entity.GetID()] = entity
	return nil
}

// Count returns the number of stored entities.
func (r *InMemoryRepository[T]) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}

// Common repository errors
var (
	ErrNotFound      = &RepositoryError{Code: "NOT_FOUND", Message: "entity not found"}
	ErrAlreadyExists = &RepositoryError{Code: "ALREADY_EXISTS", Message: "entity already exists"}
	ErrNoDatabase    = &RepositoryError{Code: "NO_DATABASE", Message: "database not configured"}
)

// RepositoryError represents a repository error.
type RepositoryError struct {
	Code    string
	Message string
}

func (e *RepositoryError) Error() string {
	return e.Code + ": " + e.Message
}

// now is replaced in tests that need deterministic timestamps.
var now = func() time.Time { return time.Now().UTC() }
