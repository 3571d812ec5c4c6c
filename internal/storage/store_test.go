package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liquidityPool/internal/model"
)

func testRecord(t *testing.T, asset0, asset1 string) model.PoolRecord {
	t.Helper()
	id := model.DerivePoolID(asset0, asset1, 1, 10000)
	return model.PoolRecord{
		ID:        id,
		Asset0:    asset0,
		Asset1:    asset1,
		State:     model.PoolState{FeeNumerator: 1, FeeDenominator: 10000},
		Version:   1,
		UpdatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func runStoreContract(t *testing.T, store Store) {
	ctx := context.Background()
	rec := testRecord(t, "usdc", "weth")

	_, ok, err := store.Load(ctx, rec.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Save(ctx, rec))
	require.ErrorIs(t, store.Save(ctx, rec), ErrVersionConflict)

	got, ok, err := store.Load(ctx, rec.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec, got)

	next := got
	next.State.Reserve0 = 125
	next.State.Reserve1 = 125
	next.State.ClaimSupply = 125
	next.Version = 2
	require.NoError(t, store.Save(ctx, next))

	stale := got
	stale.State.Reserve0 = 1
	stale.Version = 2
	require.ErrorIs(t, store.Save(ctx, stale), ErrVersionConflict)

	skipped := next
	skipped.Version = 4
	require.ErrorIs(t, store.Save(ctx, skipped), ErrVersionConflict)

	got, ok, err = store.Load(ctx, rec.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, next, got)

	other := testRecord(t, "dai", "usdc")
	require.NoError(t, store.Save(ctx, other))

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.True(t, all[0].ID < all[1].ID)

	require.NoError(t, store.Close())
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "pools"))
	require.NoError(t, err)
	runStoreContract(t, store)
}

func TestPebbleStore(t *testing.T) {
	store, err := NewPebbleStore(filepath.Join(t.TempDir(), "db"))
	require.NoError(t, err)
	runStoreContract(t, store)
}

func TestCachedStore(t *testing.T) {
	store, err := NewCachedStore(NewMemoryStore(), 8)
	require.NoError(t, err)
	runStoreContract(t, store)
}

func TestCachedStoreDropsEntryOnFailedSave(t *testing.T) {
	ctx := context.Background()
	backing := NewMemoryStore()
	store, err := NewCachedStore(backing, 8)
	require.NoError(t, err)

	rec := testRecord(t, "usdc", "weth")
	require.NoError(t, store.Save(ctx, rec))
	assert.Equal(t, 1, store.Len())

	require.Error(t, store.Save(ctx, rec))
	assert.Equal(t, 0, store.Len())

	got, ok, err := store.Load(ctx, rec.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec, got)
	assert.Equal(t, 1, store.Len())
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewFileStore(dir)
	require.NoError(t, err)
	rec := testRecord(t, "usdc", "weth")
	require.NoError(t, store.Save(ctx, rec))

	reopened, err := NewFileStore(dir)
	require.NoError(t, err)
	got, ok, err := reopened.Load(ctx, rec.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec, got)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	for _, backend := range []string{BackendMemory, BackendFile, BackendPebble} {
		t.Run(backend, func(t *testing.T) {
			store, err := Open(ctx, Config{Backend: backend, Path: filepath.Join(t.TempDir(), backend), CacheSize: 4}, nil)
			require.NoError(t, err)
			_, ok := store.(*CachedStore)
			assert.True(t, ok)
			require.NoError(t, store.Close())
		})
	}

	_, err := Open(ctx, Config{Backend: "etcd"}, nil)
	require.Error(t, err)

	_, err = Open(ctx, Config{Backend: BackendPostgres}, nil)
	require.Error(t, err)
}
