// Package storage persists pool records and the operation journal.
package storage

import (
	"context"
	"fmt"

	"liquidityPool/internal/model"
)

var ErrVersionConflict = model.ErrVersionConflict

// Store persists PoolRecords. Save is a compare-and-swap on Version: a
// record with Version N replaces only a stored record with Version N-1, and a
// record with Version 1 is only accepted when none is stored.
type Store interface {
	Load(ctx context.Context, id model.PoolID) (model.PoolRecord, bool, error)
	Save(ctx context.Context, rec model.PoolRecord) error
	List(ctx context.Context) ([]model.PoolRecord, error)
	Close() error
}

// CheckVersion reports whether next may replace the stored version.
func CheckVersion(id model.PoolID, stored uint64, found bool, next uint64) error {
	var want uint64
	if found {
		want = stored + 1
	} else {
		want = 1
	}
	if next != want {
		return fmt.Errorf("%w: pool %s stored version %d, got %d", ErrVersionConflict, id.Short(), stored, next)
	}
	return nil
}
