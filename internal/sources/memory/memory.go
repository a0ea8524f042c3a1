package memory

import (
	"context"
	"slices"
	"sync"

	"salesdash/internal/core"
	ports "salesdash/internal/sources"
)

// Store serves a fixed in-memory table. Used for seeding and tests.
type Store struct {
	mu    sync.Mutex
	table core.Table
	loads int
}

var _ ports.OrderSource = (*Store)(nil)

func New(header []string, rows [][]string) *Store {
	return &Store{table: core.Table{Header: slices.Clone(header), Rows: cloneRows(rows)}}
}

// LoadOrders returns a copy of the stored table.
func (s *Store) LoadOrders(_ context.Context) (core.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	return core.Table{Header: slices.Clone(s.table.Header), Rows: cloneRows(s.table.Rows)}, nil
}

// Loads returns how many times LoadOrders was called.
func (s *Store) Loads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads
}

func cloneRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = slices.Clone(r)
	}
	return out
}
