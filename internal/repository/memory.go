package repository

import (
	"context"
	"sort"
	"sync"
)

// MemoryDatabase is an in-memory implementation of Database.
// Use this for development/testing; nothing survives a restart.
type MemoryDatabase struct {
	mu          sync.RWMutex
	collections map[string]*MemoryStore
}

// NewMemoryDatabase creates an empty in-memory database.
func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{collections: make(map[string]*MemoryStore)}
}

// Collection returns the named collection, creating it on first use.
func (d *MemoryDatabase) Collection(name string) Store {
	return d.MemoryCollection(name)
}

// MemoryCollection is Collection with the concrete type, for tests that
// inspect or edit records out of band.
func (d *MemoryDatabase) MemoryCollection(name string) *MemoryStore {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.collections[name]
	if !ok {
		s = NewMemoryStore()
		d.collections[name] = s
	}
	return s
}

func (d *MemoryDatabase) Ping(ctx context.Context) error { return nil }

// GetStats returns per-collection record counts.
func (d *MemoryDatabase) GetStats(ctx context.Context) (map[string]interface{}, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	counts := make(map[string]interface{}, len(d.collections))
	for name, s := range d.collections {
		counts[name] = s.Len()
	}
	return map[string]interface{}{"collections": counts}, nil
}

func (d *MemoryDatabase) Close() error { return nil }

// MemoryStore is an in-memory Store. Records are copied on the way in and out.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]byte
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]byte)}
}

// Get retrieves a record by id.
func (s *MemoryStore) Get(ctx context.Context, id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	return copyBytes(record), nil
}

// Save stores a record.
func (s *MemoryStore) Save(ctx context.Context, id string, record []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[id] = copyBytes(record)
	return nil
}

// Delete removes a record by id.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, id)
	return nil
}

// GetAll returns every record ordered by id.
func (s *MemoryStore) GetAll(ctx context.Context) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([][]byte, 0, len(ids))
	for _, id := range ids {
		out = append(out, copyBytes(s.records[id]))
	}
	return out, nil
}

// Len returns the number of records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func copyBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

var (
	_ Database = (*MemoryDatabase)(nil)
	_ Store    = (*MemoryStore)(nil)
)
