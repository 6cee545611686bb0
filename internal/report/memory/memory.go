// Package memory is an in-memory report sink used in tests and local runs
// where no spreadsheet is configured.
package memory

import (
	"context"
	"sync"

	"divvy/internal/core"
)

type Snapshot struct {
	GroupName string
	Balances  []core.Balance
}

type Store struct {
	mu    sync.Mutex
	items []Snapshot
}

func New() *Store {
	return &Store{}
}

// AppendBalances records the snapshot.
func (s *Store) AppendBalances(_ context.Context, groupName string, balances []core.Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, Snapshot{
		GroupName: groupName,
		Balances:  append([]core.Balance(nil), balances...),
	})
	return nil
}

// Snapshots returns a copy of everything recorded so far.
func (s *Store) Snapshots() []Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Snapshot(nil), s.items...)
}
