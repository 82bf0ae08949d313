package quotes

import (
	"context"
	"sync"
)

// InMemoryRepository keeps quotes in process memory. It backs the API when
// no database is configured.
type InMemoryRepository struct {
	mu     sync.RWMutex
	quotes map[string]Quote
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{quotes: make(map[string]Quote)}
}

// Create stores a copy of q.
func (r *InMemoryRepository) Create(_ context.Context, q *Quote) error {
	r.mu.Lock()
	r.quotes[q.ID] = *q
	r.mu.Unlock()
	return nil
}

// Get returns a copy of the quote or ErrNotFound.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Quote, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q, ok := r.quotes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &q, nil
}
