package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"liquidityPool/internal/model"
)

// FileStore writes one JSON document per pool under a directory. Writes go
// through a temporary file and a rename so a crash never leaves a torn record.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("file store dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(id model.PoolID) string {
	return filepath.Join(s.dir, string(id)+".json")
}

func (s *FileStore) Load(ctx context.Context, id model.PoolID) (model.PoolRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return model.PoolRecord{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(s.path(id))
}

func (s *FileStore) read(path string) (model.PoolRecord, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.PoolRecord{}, false, nil
		}
		return model.PoolRecord{}, false, fmt.Errorf("read pool record: %w", err)
	}
	var rec model.PoolRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.PoolRecord{}, false, fmt.Errorf("parse pool record %s: %w", filepath.Base(path), err)
	}
	return rec, true, nil
}

func (s *FileStore) Save(ctx context.Context, rec model.PoolRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(rec.ID)
	stored, ok, err := s.read(path)
	if err != nil {
		return err
	}
	if err := CheckVersion(rec.ID, stored.Version, ok, rec.Version); err != nil {
		return err
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal pool record: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write pool record tmp: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename pool record: %w", err)
	}
	return nil
}

func (s *FileStore) List(ctx context.Context) ([]model.PoolRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list store dir: %w", err)
	}
	var out []model.PoolRecord
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		rec, ok, err := s.read(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, rec)
		}
	}
	sortRecords(out)
	return out, nil
}

func (s *FileStore) Close() error { return nil }
