package report

import (
	"context"
	"sync"

	"liquidityPool/internal/model"
	"liquidityPool/internal/storage"
)

// FileSink appends window metrics to a JSONL file.
type FileSink struct {
	path string
	mu   sync.Mutex
}

func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

func (s *FileSink) UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return storage.AppendJSONL(s.path, metrics)
}
