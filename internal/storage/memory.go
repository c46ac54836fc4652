package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory holds crosswords in process memory.
type Memory struct {
	mu      sync.RWMutex
	records map[string]record
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]record)}
}

// Save stores an encoded copy of c; later changes to c are not seen.
func (m *Memory) Save(_ context.Context, c *Crossword) error {
	stamp(c, time.Now())
	r, err := encode(c)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.records[c.ID] = r
	m.mu.Unlock()
	return nil
}

// Get returns a crossword by ID.
func (m *Memory) Get(_ context.Context, id string) (*Crossword, error) {
	m.mu.RLock()
	r, ok := m.records[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decode(r)
}

// List returns all crosswords, most recent first.
func (m *Memory) List(_ context.Context) ([]*Crossword, error) {
	m.mu.RLock()
	records := make([]record, 0, len(m.records))
	for _, r := range m.records {
		records = append(records, r)
	}
	m.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt != records[j].CreatedAt {
			return records[i].CreatedAt > records[j].CreatedAt
		}
		return records[i].ID < records[j].ID
	})
	list := make([]*Crossword, 0, len(records))
	for _, r := range records {
		c, err := decode(r)
		if err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, nil
}

// Delete removes a crossword.
func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return ErrNotFound
	}
	delete(m.records, id)
	return nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }
