package memory

import (
	"context"
	"slices"
	"sync"

	"nozze/internal/core"
	ports "nozze/internal/sheets"
)

// Store keeps exported rows in memory. It backs development setups without
// a spreadsheet and the worker's tests.
type Store struct {
	mu      sync.Mutex
	budget  map[int64][]any
	seating [][]any
}

var _ ports.Exporter = (*Store)(nil)

func New() *Store {
	return &Store{budget: map[int64][]any{}}
}

func (s *Store) UpsertBudgetItem(_ context.Context, item core.BudgetItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budget[item.ID] = ports.BudgetRow(item)
	return nil
}

func (s *Store) DeleteBudgetItem(_ context.Context, itemID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.budget, itemID)
	return nil
}

func (s *Store) ReplaceSeating(_ context.Context, weddingID int64, tables []core.Table, guests []core.Guest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seating = ports.MergeSeating(s.seating, weddingID, ports.SeatingRows(weddingID, tables, guests))
	return nil
}

// BudgetRows returns the exported budget rows ordered by item id.
func (s *Store) BudgetRows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.budget))
	for id := range s.budget {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([][]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, slices.Clone(s.budget[id]))
	}
	return out
}

// SeatingRows returns the exported seating sheet, header included.
func (s *Store) SeatingRows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]any, len(s.seating))
	for i, row := range s.seating {
		out[i] = slices.Clone(row)
	}
	return out
}
