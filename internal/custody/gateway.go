// Package custody moves assets between accounts on behalf of the pool
// service. The pool engine never touches balances directly.
package custody

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnknownAccount    = errors.New("unknown account")
	ErrInvalidOp         = errors.New("invalid custody operation")
)

// Gateway is the external custody system. Execute applies a batch of
// operations atomically: either every op takes effect or none does.
type Gateway interface {
	Transfer(ctx context.Context, asset, from, to string, amount uint64) error
	Mint(ctx context.Context, token, to string, amount uint64) error
	Burn(ctx context.Context, token, from string, amount uint64) error
	Balance(ctx context.Context, asset, account string) (uint64, error)
	Execute(ctx context.Context, ops []Op) error
}

type OpKind string

const (
	OpTransfer OpKind = "transfer"
	OpMint     OpKind = "mint"
	OpBurn     OpKind = "burn"
)

// Op is a single balance movement. From is empty for mints, To for burns.
type Op struct {
	Kind   OpKind `json:"kind"`
	Asset  string `json:"asset"`
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
	Amount uint64 `json:"amount"`
}

func TransferOp(asset, from, to string, amount uint64) Op {
	return Op{Kind: OpTransfer, Asset: asset, From: from, To: to, Amount: amount}
}

func MintOp(token, to string, amount uint64) Op {
	return Op{Kind: OpMint, Asset: token, To: to, Amount: amount}
}

func BurnOp(token, from string, amount uint64) Op {
	return Op{Kind: OpBurn, Asset: token, From: from, Amount: amount}
}

func (o Op) String() string {
	switch o.Kind {
	case OpMint:
		return fmt.Sprintf("mint %d %s to %s", o.Amount, o.Asset, o.To)
	case OpBurn:
		return fmt.Sprintf("burn %d %s from %s", o.Amount, o.Asset, o.From)
	default:
		return fmt.Sprintf("transfer %d %s %s->%s", o.Amount, o.Asset, o.From, o.To)
	}
}

func (o Op) validate() error {
	if o.Asset == "" {
		return fmt.Errorf("%w: %s: missing asset", ErrInvalidOp, o)
	}
	switch o.Kind {
	case OpTransfer:
		if o.From == "" || o.To == "" {
			return fmt.Errorf("%w: %s: missing account", ErrInvalidOp, o)
		}
	case OpMint:
		if o.To == "" {
			return fmt.Errorf("%w: %s: missing account", ErrInvalidOp, o)
		}
	case OpBurn:
		if o.From == "" {
			return fmt.Errorf("%w: %s: missing account", ErrInvalidOp, o)
		}
	default:
		return fmt.Errorf("%w: kind %q", ErrInvalidOp, o.Kind)
	}
	return nil
}

// Compensate returns the batch that undoes ops, in reverse order.
func Compensate(ops []Op) []Op {
	out := make([]Op, 0, len(ops))
	for i := len(ops) - 1; i >= 0; i-- {
		op := ops[i]
		switch op.Kind {
		case OpMint:
			out = append(out, BurnOp(op.Asset, op.To, op.Amount))
		case OpBurn:
			out = append(out, MintOp(op.Asset, op.From, op.Amount))
		default:
			out = append(out, TransferOp(op.Asset, op.To, op.From, op.Amount))
		}
	}
	return out
}
