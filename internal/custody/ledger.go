package custody

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"liquidityPool/internal/fixedpoint"
)

type balanceKey struct {
	asset   string
	account string
}

// Ledger is an in-process Gateway. Balances and supplies live in memory and
// can be carried across runs with Snapshot and Restore.
type Ledger struct {
	mu       sync.Mutex
	balances map[balanceKey]uint64
	supply   map[string]uint64
	logger   *zap.Logger
}

func NewLedger(logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		balances: make(map[balanceKey]uint64),
		supply:   make(map[string]uint64),
		logger:   logger,
	}
}

func (l *Ledger) Transfer(ctx context.Context, asset, from, to string, amount uint64) error {
	return l.Execute(ctx, []Op{TransferOp(asset, from, to, amount)})
}

func (l *Ledger) Mint(ctx context.Context, token, to string, amount uint64) error {
	return l.Execute(ctx, []Op{MintOp(token, to, amount)})
}

func (l *Ledger) Burn(ctx context.Context, token, from string, amount uint64) error {
	return l.Execute(ctx, []Op{BurnOp(token, from, amount)})
}

// Balance returns zero for accounts that never held asset.
func (l *Ledger) Balance(ctx context.Context, asset, account string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[balanceKey{asset: asset, account: account}], nil
}

// Supply returns the total amount of asset issued through Mint or Fund.
func (l *Ledger) Supply(asset string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.supply[asset]
}

// Fund credits an account out of thin air. It is how external assets enter
// the ledger.
func (l *Ledger) Fund(ctx context.Context, asset, account string, amount uint64) error {
	return l.Mint(ctx, asset, account, amount)
}

// Execute validates the whole batch against a scratch overlay and commits it
// only when every op succeeds.
func (l *Ledger) Execute(ctx context.Context, ops []Op) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(ops) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	scratch := batch{
		ledger:   l,
		balances: make(map[balanceKey]uint64),
		supply:   make(map[string]uint64),
	}
	for i, op := range ops {
		if err := scratch.apply(op); err != nil {
			return fmt.Errorf("op %d: %w", i, err)
		}
	}

	for key, value := range scratch.balances {
		l.balances[key] = value
	}
	for asset, value := range scratch.supply {
		l.supply[asset] = value
	}

	l.logger.Debug("custody batch committed", zap.Int("ops", len(ops)))
	return nil
}

type batch struct {
	ledger   *Ledger
	balances map[balanceKey]uint64
	supply   map[string]uint64
}

func (b *batch) balance(key balanceKey) (uint64, bool) {
	if v, ok := b.balances[key]; ok {
		return v, true
	}
	v, ok := b.ledger.balances[key]
	return v, ok
}

func (b *batch) totalSupply(asset string) uint64 {
	if v, ok := b.supply[asset]; ok {
		return v
	}
	return b.ledger.supply[asset]
}

func (b *batch) debit(asset, account string, amount uint64) error {
	key := balanceKey{asset: asset, account: account}
	current, ok := b.balance(key)
	if !ok {
		return fmt.Errorf("%w: %s holds no %s", ErrUnknownAccount, account, asset)
	}
	if current < amount {
		return fmt.Errorf("%w: %s holds %d %s, needs %d", ErrInsufficientFunds, account, current, asset, amount)
	}
	b.balances[key] = current - amount
	return nil
}

func (b *batch) credit(asset, account string, amount uint64) error {
	key := balanceKey{asset: asset, account: account}
	current, _ := b.balance(key)
	next, err := fixedpoint.Add(current, amount)
	if err != nil {
		return fmt.Errorf("credit %s to %s: %w", asset, account, err)
	}
	b.balances[key] = next
	return nil
}

func (b *batch) apply(op Op) error {
	if err := op.validate(); err != nil {
		return err
	}
	if op.Amount == 0 {
		return nil
	}

	switch op.Kind {
	case OpTransfer:
		if err := b.debit(op.Asset, op.From, op.Amount); err != nil {
			return err
		}
		return b.credit(op.Asset, op.To, op.Amount)
	case OpMint:
		supply, err := fixedpoint.Add(b.totalSupply(op.Asset), op.Amount)
		if err != nil {
			return fmt.Errorf("mint %s: %w", op.Asset, err)
		}
		if err := b.credit(op.Asset, op.To, op.Amount); err != nil {
			return err
		}
		b.supply[op.Asset] = supply
		return nil
	default:
		if err := b.debit(op.Asset, op.From, op.Amount); err != nil {
			return err
		}
		b.supply[op.Asset] = b.totalSupply(op.Asset) - op.Amount
		return nil
	}
}

// Snapshot is the serializable content of a Ledger.
type Snapshot struct {
	Balances map[string]map[string]uint64 `json:"balances"`
	Supply   map[string]uint64            `json:"supply"`
}

func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap := Snapshot{
		Balances: make(map[string]map[string]uint64),
		Supply:   make(map[string]uint64, len(l.supply)),
	}
	for key, value := range l.balances {
		accounts, ok := snap.Balances[key.asset]
		if !ok {
			accounts = make(map[string]uint64)
			snap.Balances[key.asset] = accounts
		}
		accounts[key.account] = value
	}
	for asset, value := range l.supply {
		snap.Supply[asset] = value
	}
	return snap
}

// Restore replaces the ledger content with snap.
func (l *Ledger) Restore(snap Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.balances = make(map[balanceKey]uint64)
	l.supply = make(map[string]uint64, len(snap.Supply))
	for asset, accounts := range snap.Balances {
		for account, value := range accounts {
			l.balances[balanceKey{asset: asset, account: account}] = value
		}
	}
	for asset, value := range snap.Supply {
		l.supply[asset] = value
	}
}

// Accounts lists every account that ever held asset, in name order.
func (l *Ledger) Accounts(asset string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []string
	for key := range l.balances {
		if key.asset == asset {
			out = append(out, key.account)
		}
	}
	sort.Strings(out)
	return out
}
