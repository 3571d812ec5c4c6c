package storage

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"liquidityPool/internal/model"
)

// CachedStore is a read-through LRU cache in front of another Store. Entries
// are refreshed on every successful Save and dropped on a failed one.
type CachedStore struct {
	next  Store
	cache *lru.Cache[model.PoolID, model.PoolRecord]
}

func NewCachedStore(next Store, size int) (*CachedStore, error) {
	cache, err := lru.New[model.PoolID, model.PoolRecord](size)
	if err != nil {
		return nil, fmt.Errorf("create pool cache: %w", err)
	}
	return &CachedStore{next: next, cache: cache}, nil
}

func (s *CachedStore) Load(ctx context.Context, id model.PoolID) (model.PoolRecord, bool, error) {
	if rec, ok := s.cache.Get(id); ok {
		return rec, true, nil
	}
	rec, ok, err := s.next.Load(ctx, id)
	if err != nil || !ok {
		return rec, ok, err
	}
	s.cache.Add(id, rec)
	return rec, true, nil
}

func (s *CachedStore) Save(ctx context.Context, rec model.PoolRecord) error {
	if err := s.next.Save(ctx, rec); err != nil {
		s.cache.Remove(rec.ID)
		return err
	}
	s.cache.Add(rec.ID, rec)
	return nil
}

func (s *CachedStore) List(ctx context.Context) ([]model.PoolRecord, error) {
	return s.next.List(ctx)
}

func (s *CachedStore) Close() error {
	s.cache.Purge()
	return s.next.Close()
}

// Len reports the number of cached records.
func (s *CachedStore) Len() int {
	return s.cache.Len()
}
