package report

import (
	"context"
	"time"

	"liquidityPool/internal/storage"
	"liquidityPool/internal/storage/postgres"
)

// StateStore persists the last processed journal timestamp.
type StateStore interface {
	Load(ctx context.Context) (uint64, bool, error)
	Save(ctx context.Context, ts uint64) error
}

// FileStateStore keeps the last processed timestamp in a JSON file.
type FileStateStore struct {
	Path string
}

type fileState struct {
	LastProcessed uint64    `json:"last_processed_ts"`
	SavedAt       time.Time `json:"saved_at"`
}

func (s *FileStateStore) Load(ctx context.Context) (uint64, bool, error) {
	if s == nil || s.Path == "" {
		return 0, false, nil
	}
	var st fileState
	ok, err := storage.ReadJSONFile(s.Path, &st)
	if err != nil || !ok {
		return 0, false, err
	}
	return st.LastProcessed, true, nil
}

func (s *FileStateStore) Save(ctx context.Context, ts uint64) error {
	if s == nil || s.Path == "" {
		return nil
	}
	return storage.WriteJSONFile(s.Path, fileState{LastProcessed: ts, SavedAt: time.Now().UTC()})
}

// DBStateStore stores state in the report_state table.
type DBStateStore struct {
	Store *postgres.Store
	Name  string
}

func (s *DBStateStore) Load(ctx context.Context) (uint64, bool, error) {
	if s == nil || s.Store == nil {
		return 0, false, nil
	}
	return s.Store.LoadState(ctx, s.Name)
}

func (s *DBStateStore) Save(ctx context.Context, ts uint64) error {
	if s == nil || s.Store == nil {
		return nil
	}
	return s.Store.SaveState(ctx, s.Name, ts)
}
