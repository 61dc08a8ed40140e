package best

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps records in a map. Records are lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	now     func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record), now: time.Now}
}

func (m *MemoryStore) ReportResult(_ context.Context, difficulty string, score, elapsedSeconds int) (bool, error) {
	if err := checkKey(difficulty); err != nil {
		return false, err
	}
	rec := Record{Score: score, ElapsedSeconds: elapsedSeconds, Timestamp: m.now()}
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.records[difficulty]; ok && !Better(rec, prev) {
		return false, nil
	}
	m.records[difficulty] = rec
	return true, nil
}

func (m *MemoryStore) QueryBest(_ context.Context, difficulty string) (Record, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[difficulty]
	return rec, ok, nil
}

func (m *MemoryStore) ClearAll(context.Context) error {
	m.mu.Lock()
	m.records = make(map[string]Record)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Close() error { return nil }
