package databases

import (
	"context"
	"fmt"
	"sync"

	"github.com/linesmerrill/dharma-case-api/models"
)

// MemoryCaseDatabase keeps cases in process memory in insertion order. Every
// read and write copies the case so callers never share state with the store.
type MemoryCaseDatabase struct {
	mu    sync.RWMutex
	order []string
	cases map[string]models.CaseFile
}

// NewMemoryCaseDatabase returns an in-memory case database holding seed
func NewMemoryCaseDatabase(seed ...models.CaseFile) *MemoryCaseDatabase {
	m := &MemoryCaseDatabase{cases: make(map[string]models.CaseFile)}
	for _, c := range seed {
		if _, ok := m.cases[c.ID]; ok {
			continue
		}
		m.order = append(m.order, c.ID)
		m.cases[c.ID] = c.Clone()
	}
	return m
}

// FindOne returns a copy of the case with the given id
func (m *MemoryCaseDatabase) FindOne(_ context.Context, id string) (*models.CaseFile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.cases[id]
	if !ok {
		return nil, ErrNoDocuments
	}
	out := c.Clone()
	return &out, nil
}

// Find returns copies of all cases matching filter
func (m *MemoryCaseDatabase) Find(_ context.Context, filter CaseFilter) ([]models.CaseFile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.CaseFile{}
	for _, id := range m.order {
		c := m.cases[id]
		if filter.Matches(c) {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

// InsertOne stores a new case
func (m *MemoryCaseDatabase) InsertOne(_ context.Context, c models.CaseFile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cases[c.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, c.ID)
	}
	m.order = append(m.order, c.ID)
	m.cases[c.ID] = c.Clone()
	return nil
}

// ReplaceOne overwrites a case if its stored version matches expectedVersion
func (m *MemoryCaseDatabase) ReplaceOne(_ context.Context, c *models.CaseFile, expectedVersion int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.cases[c.ID]
	if !ok {
		return ErrNoDocuments
	}
	if stored.Version != expectedVersion {
		return fmt.Errorf("%w: %s", ErrVersionConflict, c.ID)
	}
	c.Version = expectedVersion + 1
	m.cases[c.ID] = c.Clone()
	return nil
}

// CountDocuments counts the cases matching filter
func (m *MemoryCaseDatabase) CountDocuments(ctx context.Context, filter CaseFilter) (int64, error) {
	cases, err := m.Find(ctx, filter)
	return int64(len(cases)), err
}
