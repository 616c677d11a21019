package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// Record is one stored monitor document. The generic monitor representation is
// kept as an opaque serialized document; only the fields the controller filters
// or bumps are lifted into columns.
type Record struct {
	ID          string
	Owner       string
	MonitorType string
	Version     int64
	SeqNo       int64
	PrimaryTerm int64
	Document    []byte
	UpdatedAt   time.Time
}

// Filter selects records by owning plugin and monitor type.
type Filter struct {
	Owner       string
	MonitorType string
}

// ErrNotFound signals the absence of a monitor record for the requested id.
var ErrNotFound = errors.New("monitor record not found")

// ErrStoreNotInitialized signals that the backing store exists but its monitor
// storage has never been created (first-ever use). Callers running an
// existence check are expected to treat this the same as zero matches.
var ErrStoreNotInitialized = errors.New("monitor store not initialized")

// Store exposes the persistence operations required by the alerting service.
type Store interface {
	SearchIDs(ctx context.Context, filter Filter) ([]string, error)
	Get(ctx context.Context, id string) (Record, error)
	Put(ctx context.Context, rec Record) error
}

// NewMemoryStore returns an in-memory implementation useful for tests and for
// running the controller without a database.
func NewMemoryStore() Store {
	return &memoryStore{records: map[string]Record{}}
}

type memoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

func (m *memoryStore) SearchIDs(ctx context.Context, filter Filter) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []string
	for _, rec := range m.records {
		if rec.Owner == filter.Owner && rec.MonitorType == filter.MonitorType {
			ids = append(ids, rec.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *memoryStore) Get(ctx context.Context, id string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (m *memoryStore) Put(ctx context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID] = rec
	return nil
}
