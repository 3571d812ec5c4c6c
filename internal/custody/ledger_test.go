package custody

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liquidityPool/internal/fixedpoint"
)

func TestLedgerTransfer(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(nil)

	require.NoError(t, l.Fund(ctx, "usdc", "alice", 100))
	require.NoError(t, l.Transfer(ctx, "usdc", "alice", "bob", 40))

	bal, err := l.Balance(ctx, "usdc", "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(60), bal)
	bal, err = l.Balance(ctx, "usdc", "bob")
	require.NoError(t, err)
	assert.Equal(t, uint64(40), bal)
	assert.Equal(t, uint64(100), l.Supply("usdc"))

	err = l.Transfer(ctx, "usdc", "alice", "bob", 61)
	require.ErrorIs(t, err, ErrInsufficientFunds)

	err = l.Transfer(ctx, "usdc", "carol", "bob", 1)
	require.ErrorIs(t, err, ErrUnknownAccount)

	err = l.Transfer(ctx, "usdc", "", "bob", 1)
	require.ErrorIs(t, err, ErrInvalidOp)
}

func TestLedgerMintBurn(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(nil)

	require.NoError(t, l.Mint(ctx, "lp/x", "alice", 50))
	require.NoError(t, l.Burn(ctx, "lp/x", "alice", 20))
	assert.Equal(t, uint64(30), l.Supply("lp/x"))

	require.ErrorIs(t, l.Burn(ctx, "lp/x", "alice", 31), ErrInsufficientFunds)

	require.NoError(t, l.Mint(ctx, "big", "alice", math.MaxUint64))
	require.ErrorIs(t, l.Mint(ctx, "big", "bob", 1), fixedpoint.ErrArithmeticOverflow)
}

func TestLedgerExecuteIsAtomic(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(nil)
	require.NoError(t, l.Fund(ctx, "a", "alice", 10))
	require.NoError(t, l.Fund(ctx, "b", "vault", 10))
	before := l.Snapshot()

	err := l.Execute(ctx, []Op{
		TransferOp("a", "alice", "vault", 10),
		MintOp("lp", "alice", 5),
		TransferOp("b", "vault", "alice", 11),
	})
	require.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, before, l.Snapshot())

	ops := []Op{
		TransferOp("a", "alice", "vault", 10),
		MintOp("lp", "alice", 5),
		TransferOp("b", "vault", "alice", 3),
	}
	require.NoError(t, l.Execute(ctx, ops))

	bal, err := l.Balance(ctx, "a", "vault")
	require.NoError(t, err)
	assert.Equal(t, uint64(10), bal)
	bal, err = l.Balance(ctx, "lp", "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), bal)

	// Ops later in a batch see the effects of earlier ones.
	require.NoError(t, l.Execute(ctx, []Op{
		TransferOp("b", "alice", "bob", 3),
		TransferOp("b", "bob", "carol", 3),
	}))
	bal, err = l.Balance(ctx, "b", "carol")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), bal)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	require.ErrorIs(t, l.Execute(cancelled, ops), context.Canceled)
}

func TestCompensate(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(nil)
	require.NoError(t, l.Fund(ctx, "a", "alice", 10))
	require.NoError(t, l.Fund(ctx, "b", "vault", 10))
	before := l.Snapshot()

	ops := []Op{
		TransferOp("a", "alice", "vault", 4),
		MintOp("lp", "alice", 2),
		TransferOp("b", "vault", "alice", 3),
	}
	require.NoError(t, l.Execute(ctx, ops))
	undo := Compensate(ops)
	assert.Equal(t, BurnOp("lp", "alice", 2), undo[1])
	require.NoError(t, l.Execute(ctx, undo))

	after := l.Snapshot()
	assert.Equal(t, before.Supply["a"], after.Supply["a"])
	assert.Equal(t, uint64(0), after.Supply["lp"])
	assert.Equal(t, uint64(10), after.Balances["a"]["alice"])
	assert.Equal(t, uint64(10), after.Balances["b"]["vault"])
}

func TestSnapshotFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "ledger.json")
	file := NewSnapshotFile(path)

	_, ok, err := file.Load()
	require.NoError(t, err)
	assert.False(t, ok)

	l := NewLedger(nil)
	require.NoError(t, l.Fund(ctx, "a", "alice", 7))
	require.NoError(t, file.Save(l.Snapshot()))

	restored := NewLedger(nil)
	require.NoError(t, file.LoadInto(restored))
	bal, err := restored.Balance(ctx, "a", "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), bal)
	assert.Equal(t, uint64(7), restored.Supply("a"))
	assert.Equal(t, []string{"alice"}, restored.Accounts("a"))
}
