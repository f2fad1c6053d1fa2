package auth

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu        sync.RWMutex
	operators map[string]Operator
}

// NewMemoryRepository builds an in-memory operator store for tests and
// development mode.
func NewMemoryRepository() Repository {
	return &memoryRepository{operators: make(map[string]Operator)}
}

func (r *memoryRepository) Create(_ context.Context, operator Operator) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.operators[operator.Address]; exists {
		return ErrOperatorExists
	}
	r.operators[operator.Address] = operator
	return nil
}

func (r *memoryRepository) FindByAddress(_ context.Context, address string) (Operator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	operator, ok := r.operators[address]
	if !ok {
		return Operator{}, ErrOperatorNotFound
	}
	return operator, nil
}
