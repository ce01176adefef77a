package export

import (
	"context"
	"sync"

	"duit/internal/core"
)

// MemoryMirror is an in-process Mirror used by tests and by
// deployments that run without a spreadsheet.
type MemoryMirror struct {
	mu   sync.Mutex
	rows map[string]core.Transaction
}

var _ Mirror = (*MemoryMirror)(nil)

func NewMemoryMirror() *MemoryMirror {
	return &MemoryMirror{rows: make(map[string]core.Transaction)}
}

func (m *MemoryMirror) UpsertTransaction(_ context.Context, tx core.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[tx.ID] = tx
	return nil
}

func (m *MemoryMirror) RemoveTransaction(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

// Row returns the mirrored copy of a transaction, if present.
func (m *MemoryMirror) Row(id string) (core.Transaction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.rows[id]
	return tx, ok
}

// Len reports how many rows the mirror holds.
func (m *MemoryMirror) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}
