package custody

import (
	"fmt"

	"liquidityPool/internal/storage"
)

// SnapshotFile persists ledger snapshots as a JSON document.
type SnapshotFile struct {
	path string
}

func NewSnapshotFile(path string) *SnapshotFile {
	return &SnapshotFile{path: path}
}

// Load returns false when no snapshot was written yet.
func (f *SnapshotFile) Load() (Snapshot, bool, error) {
	var snap Snapshot
	ok, err := storage.ReadJSONFile(f.path, &snap)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("ledger snapshot: %w", err)
	}
	return snap, ok, nil
}

func (f *SnapshotFile) Save(snap Snapshot) error {
	if err := storage.WriteJSONFile(f.path, snap); err != nil {
		return fmt.Errorf("ledger snapshot: %w", err)
	}
	return nil
}

// LoadInto restores the saved snapshot into l, if there is one.
func (f *SnapshotFile) LoadInto(l *Ledger) error {
	snap, ok, err := f.Load()
	if err != nil || !ok {
		return err
	}
	l.Restore(snap)
	return nil
}
