package storage

import (
	"sync"

	"liquidityPool/internal/model"
)

// Journal appends operation records to a JSONL file.
type Journal struct {
	path string
	mu   sync.Mutex
}

func NewJournal(path string) *Journal {
	return &Journal{path: path}
}

func (j *Journal) Path() string {
	return j.path
}

// Append writes records as JSON lines.
func (j *Journal) Append(records ...model.OperationRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return AppendJSONL(j.path, records)
}

// ReadJournal calls fn for every entry of the journal at path, in file
// order. A missing journal has no entries.
func ReadJournal(path string, fn func(model.OperationEntry) error) error {
	return ReadJSONL(path, fn)
}
