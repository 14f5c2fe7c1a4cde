// Package memory holds an in-process mirror used by tests and local runs
// without Google credentials.
package memory

import (
	"context"
	"fmt"
	"sync"

	"hucha/internal/core"
)

type Store struct {
	mu    sync.Mutex
	items []core.Transaction
}

func New() *Store {
	return &Store{}
}

// AppendTransaction stores the entry and returns a synthetic row reference.
func (s *Store) AppendTransaction(_ context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, tx)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// Items returns a copy of everything mirrored so far.
func (s *Store) Items() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.items...)
}
