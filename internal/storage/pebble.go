package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"

	"liquidityPool/internal/model"
)

var poolKeyPrefix = []byte("pool/")

// PebbleStore keeps records in an embedded Pebble database, keyed
// "pool/<id>".
type PebbleStore struct {
	db *pebble.DB
	// serializes the read-compare-write in Save
	mu sync.Mutex
}

func NewPebbleStore(path string) (*PebbleStore, error) {
	if path == "" {
		return nil, fmt.Errorf("pebble path is required")
	}
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble at %s: %w", path, err)
	}
	return &PebbleStore{db: db}, nil
}

func poolKey(id model.PoolID) []byte {
	return append(append([]byte{}, poolKeyPrefix...), string(id)...)
}

func (s *PebbleStore) Load(ctx context.Context, id model.PoolID) (model.PoolRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return model.PoolRecord{}, false, err
	}
	return s.get(id)
}

func (s *PebbleStore) get(id model.PoolID) (model.PoolRecord, bool, error) {
	val, closer, err := s.db.Get(poolKey(id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return model.PoolRecord{}, false, nil
		}
		return model.PoolRecord{}, false, fmt.Errorf("pebble get: %w", err)
	}
	defer closer.Close()

	var rec model.PoolRecord
	if err := json.Unmarshal(val, &rec); err != nil {
		return model.PoolRecord{}, false, fmt.Errorf("parse pool record %s: %w", id.Short(), err)
	}
	return rec, true, nil
}

func (s *PebbleStore) Save(ctx context.Context, rec model.PoolRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok, err := s.get(rec.ID)
	if err != nil {
		return err
	}
	if err := CheckVersion(rec.ID, stored.Version, ok, rec.Version); err != nil {
		return err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal pool record: %w", err)
	}
	if err := s.db.Set(poolKey(rec.ID), data, pebble.Sync); err != nil {
		return fmt.Errorf("pebble set: %w", err)
	}
	return nil
}

func (s *PebbleStore) List(ctx context.Context) ([]model.PoolRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	upper := append(append([]byte{}, poolKeyPrefix[:len(poolKeyPrefix)-1]...), poolKeyPrefix[len(poolKeyPrefix)-1]+1)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: poolKeyPrefix,
		UpperBound: upper,
	})
	if err != nil {
		return nil, fmt.Errorf("pebble iter: %w", err)
	}
	defer iter.Close()

	var out []model.PoolRecord
	for iter.First(); iter.Valid(); iter.Next() {
		var rec model.PoolRecord
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			return nil, fmt.Errorf("parse pool record %s: %w", iter.Key(), err)
		}
		out = append(out, rec)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("pebble iter: %w", err)
	}
	return out, nil
}

func (s *PebbleStore) Close() error {
	return s.db.Close()
}
