package pool

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liquidityPool/internal/amm"
	"liquidityPool/internal/custody"
	"liquidityPool/internal/metrics"
	"liquidityPool/internal/model"
	"liquidityPool/internal/storage"
)

type memJournal struct {
	mu      sync.Mutex
	records []model.OperationRecord
}

func (j *memJournal) Append(records ...model.OperationRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, records...)
	return nil
}

func (j *memJournal) last() model.OperationRecord {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.records[len(j.records)-1]
}

type harness struct {
	svc     *Service
	ledger  *custody.Ledger
	store   storage.Store
	journal *memJournal
	metrics *metrics.PoolMetrics
}

func newHarness(t *testing.T, store storage.Store) *harness {
	t.Helper()
	if store == nil {
		store = storage.NewMemoryStore()
	}
	ledger := custody.NewLedger(nil)
	journal := &memJournal{}
	m := metrics.New(prometheus.NewRegistry())
	svc := NewService(store, ledger, journal, m, nil)
	svc.SetClock(func() time.Time { return time.Unix(1700000000, 0) })
	return &harness{svc: svc, ledger: ledger, store: store, journal: journal, metrics: m}
}

func (h *harness) fund(t *testing.T, asset, account string, amount uint64) {
	t.Helper()
	require.NoError(t, h.ledger.Fund(context.Background(), asset, account, amount))
}

func (h *harness) balance(t *testing.T, asset, account string) uint64 {
	t.Helper()
	bal, err := h.ledger.Balance(context.Background(), asset, account)
	require.NoError(t, err)
	return bal
}

// assertBacked checks that vault balances and claim supply match the pool.
func (h *harness) assertBacked(t *testing.T, id model.PoolID) {
	t.Helper()
	rec, err := h.svc.Pool(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, rec.State.Reserve0, h.balance(t, rec.Asset0, rec.Vault(model.Asset0)))
	assert.Equal(t, rec.State.Reserve1, h.balance(t, rec.Asset1, rec.Vault(model.Asset1)))
	assert.Equal(t, rec.State.ClaimSupply, h.ledger.Supply(rec.ClaimToken()))
}

func TestServiceObservedScenario(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	for _, lp := range []string{"lp1", "lp2", "lp3", "trader"} {
		h.fund(t, "usdc", lp, 1000)
		h.fund(t, "weth", lp, 1000)
	}

	rec, err := h.svc.CreatePool(ctx, "usdc", "weth", 1, 10000)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rec.Version)

	res, err := h.svc.AddLiquidity(ctx, rec.ID, "lp1", 50, 50)
	require.NoError(t, err)
	assert.Equal(t, AddResult{ClaimMinted: 50, Reserve0Used: 50, Reserve1Used: 50}, res)
	_, err = h.svc.AddLiquidity(ctx, rec.ID, "lp2", 50, 50)
	require.NoError(t, err)
	res, err = h.svc.AddLiquidity(ctx, rec.ID, "lp3", 25, 100)
	require.NoError(t, err)
	assert.Equal(t, AddResult{ClaimMinted: 25, Reserve0Used: 25, Reserve1Used: 25}, res)
	assert.Equal(t, uint64(975), h.balance(t, "weth", "lp3"), "unmatched excess stays with the depositor")

	swap, err := h.svc.Swap(ctx, rec.ID, "trader", model.Asset0, 10, 8)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), swap.AmountOut)
	assert.Equal(t, uint64(990), h.balance(t, "usdc", "trader"))
	assert.Equal(t, uint64(1008), h.balance(t, "weth", "trader"))

	out, err := h.svc.RemoveLiquidity(ctx, rec.ID, "lp1", 50)
	require.NoError(t, err)
	assert.Equal(t, RemoveResult{Amount0Out: 54, Amount1Out: 46}, out)
	assert.Equal(t, uint64(0), h.balance(t, rec.ClaimToken(), "lp1"))
	assert.Equal(t, uint64(1004), h.balance(t, "usdc", "lp1"))
	assert.Equal(t, uint64(996), h.balance(t, "weth", "lp1"))

	final, err := h.svc.Pool(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PoolState{Reserve0: 81, Reserve1: 71, ClaimSupply: 75, FeeNumerator: 1, FeeDenominator: 10000}, final.State)
	assert.Equal(t, uint64(6), final.Version)
	h.assertBacked(t, rec.ID)

	last := h.journal.last()
	assert.Equal(t, model.OpRemove, last.Kind)
	assert.Equal(t, model.StatusCommitted, last.Status)
	assert.Equal(t, uint64(6), last.Version)
	assert.Equal(t, 6.0, testutil.ToFloat64(h.metrics.OperationsTotal.WithLabelValues(model.OpAdd, model.StatusCommitted))+
		testutil.ToFloat64(h.metrics.OperationsTotal.WithLabelValues(model.OpSwap, model.StatusCommitted))+
		testutil.ToFloat64(h.metrics.OperationsTotal.WithLabelValues(model.OpRemove, model.StatusCommitted))+
		testutil.ToFloat64(h.metrics.OperationsTotal.WithLabelValues(model.OpCreate, model.StatusCommitted)))
}

func TestCreatePoolValidation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)

	_, err := h.svc.CreatePool(ctx, "usdc", "usdc", 1, 100)
	require.ErrorIs(t, err, ErrInvalidPoolAssets)
	_, err = h.svc.CreatePool(ctx, "", "usdc", 1, 100)
	require.ErrorIs(t, err, ErrInvalidPoolAssets)

	_, err = h.svc.CreatePool(ctx, "usdc", "weth", 100, 100)
	require.ErrorIs(t, err, amm.ErrInvalidFeeConfig)

	_, err = h.svc.CreatePool(ctx, "usdc", "weth", 3, 1000)
	require.NoError(t, err)
	_, err = h.svc.CreatePool(ctx, "usdc", "weth", 3, 1000)
	require.ErrorIs(t, err, ErrPoolExists)
	assert.Equal(t, amm.ClassValidation, Classify(err))

	_, err = h.svc.CreatePool(ctx, "weth", "usdc", 3, 1000)
	require.NoError(t, err, "reversed pair is a different pool")

	pools, err := h.svc.Pools(ctx)
	require.NoError(t, err)
	assert.Len(t, pools, 2)

	_, err = h.svc.AddLiquidity(ctx, model.DerivePoolID("a", "b", 1, 2), "lp", 1, 1)
	require.ErrorIs(t, err, ErrPoolNotFound)
}

func TestRejectedOperationsLeaveNoTrace(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	h.fund(t, "usdc", "lp", 1000)
	h.fund(t, "weth", "lp", 1000)
	h.fund(t, "usdc", "trader", 5)

	rec, err := h.svc.CreatePool(ctx, "usdc", "weth", 1, 10000)
	require.NoError(t, err)
	_, err = h.svc.AddLiquidity(ctx, rec.ID, "lp", 125, 125)
	require.NoError(t, err)
	before, err := h.svc.Pool(ctx, rec.ID)
	require.NoError(t, err)
	snapshot := h.ledger.Snapshot()

	tests := []struct {
		name  string
		run   func() error
		class amm.Class
	}{
		{"slippage", func() error {
			_, err := h.svc.Swap(ctx, rec.ID, "lp", model.Asset0, 10, 9)
			return err
		}, amm.ClassEconomic},
		{"zero deposit", func() error {
			_, err := h.svc.AddLiquidity(ctx, rec.ID, "lp", 0, 10)
			return err
		}, amm.ClassValidation},
		{"claims not held", func() error {
			_, err := h.svc.RemoveLiquidity(ctx, rec.ID, "trader", 1)
			return err
		}, amm.ClassEconomic},
		{"custody shortfall", func() error {
			_, err := h.svc.Swap(ctx, rec.ID, "trader", model.Asset0, 10, 0)
			return err
		}, amm.ClassUnknown},
		{"missing account", func() error {
			_, err := h.svc.Swap(ctx, rec.ID, "", model.Asset0, 10, 0)
			return err
		}, amm.ClassValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			require.Error(t, err)
			assert.Equal(t, tt.class, Classify(err))

			after, err := h.svc.Pool(ctx, rec.ID)
			require.NoError(t, err)
			assert.Equal(t, before, after)
			assert.Equal(t, snapshot, h.ledger.Snapshot())

			last := h.journal.last()
			assert.Equal(t, model.StatusRejected, last.Status)
			assert.Equal(t, string(tt.class), last.ErrorClass)
		})
	}

	_, err = h.svc.Swap(ctx, rec.ID, "trader", model.Asset0, 10, 0)
	require.ErrorIs(t, err, custody.ErrInsufficientFunds)
}

type flakyStore struct {
	storage.Store
	mu   sync.Mutex
	fail bool
}

func (s *flakyStore) Save(ctx context.Context, rec model.PoolRecord) error {
	s.mu.Lock()
	fail := s.fail
	s.mu.Unlock()
	if fail {
		return errors.New("disk full")
	}
	return s.Store.Save(ctx, rec)
}

func TestFailedSaveRevertsCustody(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Store: storage.NewMemoryStore()}
	h := newHarness(t, store)
	h.fund(t, "usdc", "lp", 1000)
	h.fund(t, "weth", "lp", 1000)

	rec, err := h.svc.CreatePool(ctx, "usdc", "weth", 1, 10000)
	require.NoError(t, err)
	_, err = h.svc.AddLiquidity(ctx, rec.ID, "lp", 100, 100)
	require.NoError(t, err)
	snapshot := h.ledger.Snapshot()

	store.mu.Lock()
	store.fail = true
	store.mu.Unlock()
	_, err = h.svc.Swap(ctx, rec.ID, "lp", model.Asset1, 10, 0)
	require.Error(t, err)
	assert.Equal(t, amm.ClassUnknown, Classify(err))
	assert.Equal(t, snapshot.Balances, h.ledger.Snapshot().Balances)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Compensations))
	h.assertBacked(t, rec.ID)
}

func TestConcurrentOperations(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)

	ids := make([]model.PoolID, 2)
	for i, pair := range [][2]string{{"usdc", "weth"}, {"dai", "weth"}} {
		rec, err := h.svc.CreatePool(ctx, pair[0], pair[1], 3, 1000)
		require.NoError(t, err)
		ids[i] = rec.ID
		h.fund(t, pair[0], "seed", 1_000_000)
		h.fund(t, pair[1], "seed", 1_000_000)
		_, err = h.svc.AddLiquidity(ctx, rec.ID, "seed", 1_000_000, 1_000_000)
		require.NoError(t, err)
	}

	const workers = 8
	const rounds = 50
	for w := 0; w < workers; w++ {
		account := fmt.Sprintf("trader%d", w)
		for _, asset := range []string{"usdc", "dai", "weth"} {
			h.fund(t, asset, account, 100_000)
		}
	}

	committed := make(map[model.PoolID]*atomic.Int64, len(ids))
	for _, id := range ids {
		committed[id] = new(atomic.Int64)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			account := fmt.Sprintf("trader%d", w)
			for i := 0; i < rounds; i++ {
				id := ids[(w+i)%len(ids)]
				asset := model.Asset((w + i) % 2)
				if _, err := h.svc.Swap(ctx, id, account, asset, 100, 0); err == nil {
					committed[id].Add(1)
				}
			}
		}(w)
	}
	wg.Wait()

	for _, id := range ids {
		rec, err := h.svc.Pool(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, uint64(2+committed[id].Load()), rec.Version)
		assert.Equal(t, int64(workers*rounds/len(ids)), committed[id].Load())
		h.assertBacked(t, id)
	}

	snap := h.ledger.Snapshot()
	for _, asset := range []string{"usdc", "dai", "weth"} {
		var total uint64
		for _, bal := range snap.Balances[asset] {
			total += bal
		}
		assert.Equal(t, snap.Supply[asset], total, asset)
	}
}

func TestServiceWithFileStoreAndJournal(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := storage.NewFileStore(filepath.Join(dir, "pools"))
	require.NoError(t, err)
	journal := storage.NewJournal(filepath.Join(dir, "journal.jsonl"))
	ledger := custody.NewLedger(nil)
	svc := NewService(store, ledger, journal, nil, nil)

	require.NoError(t, ledger.Fund(ctx, "usdc", "lp", 100))
	require.NoError(t, ledger.Fund(ctx, "weth", "lp", 100))
	rec, err := svc.CreatePool(ctx, "usdc", "weth", 1, 10000)
	require.NoError(t, err)
	_, err = svc.AddLiquidity(ctx, rec.ID, "lp", 100, 100)
	require.NoError(t, err)

	quote, err := svc.Quote(ctx, rec.ID, model.Asset0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), quote.AmountOut)

	var kinds []string
	require.NoError(t, storage.ReadJournal(journal.Path(), func(e model.OperationEntry) error {
		kinds = append(kinds, e.Kind)
		return nil
	}))
	assert.Equal(t, []string{model.OpCreate, model.OpAdd}, kinds)
}
