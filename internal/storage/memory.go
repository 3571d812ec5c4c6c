package storage

import (
	"context"
	"sort"
	"sync"

	"liquidityPool/internal/model"
)

// MemoryStore keeps records in a map. Used by tests and dry runs.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[model.PoolID]model.PoolRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[model.PoolID]model.PoolRecord)}
}

func (s *MemoryStore) Load(ctx context.Context, id model.PoolID) (model.PoolRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return model.PoolRecord{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	return rec, ok, nil
}

func (s *MemoryStore) Save(ctx context.Context, rec model.PoolRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.records[rec.ID]
	if err := CheckVersion(rec.ID, stored.Version, ok, rec.Version); err != nil {
		return err
	}
	s.records[rec.ID] = rec
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]model.PoolRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.PoolRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sortRecords(out)
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }

func sortRecords(records []model.PoolRecord) {
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
}
