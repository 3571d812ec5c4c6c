// Package scenario replays scripted pool operations against a pool service.
package scenario

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"liquidityPool/internal/model"
)

// Step kinds.
const (
	StepFund   = "fund"
	StepCreate = "create"
	StepAdd    = "add"
	StepRemove = "remove"
	StepSwap   = "swap"
)

// Step is one line of a scenario script. Amounts are decimal strings in
// asset units; claim amounts are in claim base units.
type Step struct {
	Index int `json:"-"`
	Line  int `json:"-"`

	Op      string `json:"op"`
	Pool    string `json:"pool,omitempty"`
	Account string `json:"account,omitempty"`

	// fund
	Asset  string `json:"asset,omitempty"`
	Amount string `json:"amount,omitempty"`

	// create
	Asset0         string `json:"asset0,omitempty"`
	Asset1         string `json:"asset1,omitempty"`
	FeeNumerator   uint64 `json:"fee_numerator,omitempty"`
	FeeDenominator uint64 `json:"fee_denominator,omitempty"`

	// add
	Amount0 string `json:"amount0,omitempty"`
	Amount1 string `json:"amount1,omitempty"`

	// remove
	Claim string `json:"claim,omitempty"`

	// swap; Amount holds the input amount
	AssetIn string `json:"asset_in,omitempty"`
	MinOut  string `json:"min_out,omitempty"`

	Expect *Expect `json:"expect,omitempty"`
}

// Expect describes the outcome a step must produce. Amounts are base units.
// A step with an ErrorClass passes only when it fails with that class.
type Expect struct {
	ErrorClass   string  `json:"error_class,omitempty"`
	ClaimMinted  *uint64 `json:"claim_minted,omitempty"`
	Reserve0Used *uint64 `json:"reserve0_used,omitempty"`
	Reserve1Used *uint64 `json:"reserve1_used,omitempty"`
	Amount0Out   *uint64 `json:"amount0_out,omitempty"`
	Amount1Out   *uint64 `json:"amount1_out,omitempty"`
	AmountOut    *uint64 `json:"amount_out,omitempty"`
}

// Script is a parsed scenario with pool aliases resolved.
type Script struct {
	Steps []Step
	Pools map[string]PoolSpec
}

// PoolSpec is the pool a script alias refers to.
type PoolSpec struct {
	ID     model.PoolID
	Asset0 string
	Asset1 string
}

// Asset resolves an asset name to its side of the pool.
func (p PoolSpec) Asset(name string) (model.Asset, error) {
	switch name {
	case p.Asset0:
		return model.Asset0, nil
	case p.Asset1:
		return model.Asset1, nil
	default:
		return 0, fmt.Errorf("asset %q is not in pool %s/%s", name, p.Asset0, p.Asset1)
	}
}

// AssetName returns the asset on side a of the pool.
func (p PoolSpec) AssetName(a model.Asset) string {
	if a == model.Asset1 {
		return p.Asset1
	}
	return p.Asset0
}

// ParseFile reads a JSONL script from path.
func ParseFile(path string) (Script, error) {
	file, err := os.Open(path)
	if err != nil {
		return Script{}, fmt.Errorf("open scenario: %w", err)
	}
	defer file.Close()
	return Parse(file)
}

// Parse reads a JSONL script. Blank lines and lines starting with '#' are
// skipped.
func Parse(r io.Reader) (Script, error) {
	script := Script{Pools: make(map[string]PoolSpec)}
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}

		var step Step
		dec := json.NewDecoder(strings.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&step); err != nil {
			return Script{}, fmt.Errorf("line %d: %w", line, err)
		}
		step.Index = len(script.Steps)
		step.Line = line

		if err := validateStep(step, script.Pools); err != nil {
			return Script{}, fmt.Errorf("line %d: %w", line, err)
		}
		if step.Op == StepCreate {
			script.Pools[step.Pool] = PoolSpec{
				ID:     model.DerivePoolID(step.Asset0, step.Asset1, step.FeeNumerator, step.FeeDenominator),
				Asset0: step.Asset0,
				Asset1: step.Asset1,
			}
		}
		script.Steps = append(script.Steps, step)
	}
	if err := scanner.Err(); err != nil {
		return Script{}, fmt.Errorf("scan scenario: %w", err)
	}
	return script, nil
}

func validateStep(step Step, pools map[string]PoolSpec) error {
	switch step.Op {
	case StepFund:
		if step.Account == "" || step.Asset == "" || step.Amount == "" {
			return fmt.Errorf("fund needs account, asset and amount")
		}
		return nil
	case StepCreate:
		if step.Pool == "" {
			return fmt.Errorf("create needs a pool alias")
		}
		if _, ok := pools[step.Pool]; ok {
			return fmt.Errorf("pool alias %q already defined", step.Pool)
		}
		return nil
	case StepAdd, StepRemove, StepSwap:
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}

	pool, ok := pools[step.Pool]
	if !ok {
		return fmt.Errorf("%s references undefined pool %q", step.Op, step.Pool)
	}
	if step.Account == "" {
		return fmt.Errorf("%s needs an account", step.Op)
	}
	switch step.Op {
	case StepAdd:
		if step.Amount0 == "" || step.Amount1 == "" {
			return fmt.Errorf("add needs amount0 and amount1")
		}
	case StepRemove:
		if step.Claim == "" {
			return fmt.Errorf("remove needs claim")
		}
	case StepSwap:
		if step.Amount == "" {
			return fmt.Errorf("swap needs amount")
		}
		if _, err := pool.Asset(step.AssetIn); err != nil {
			return err
		}
	}
	return nil
}

// Segment is a run of consecutive steps executed together. Pool steps in a
// segment are grouped per pool; fund steps always form their own segment.
type Segment struct {
	Steps []Step
}

// Last returns the index of the final step in the segment.
func (s Segment) Last() int {
	return s.Steps[len(s.Steps)-1].Index
}

// ByPool groups the segment's steps by pool alias, keeping script order
// within each pool.
func (s Segment) ByPool() [][]Step {
	order := make([]string, 0)
	groups := make(map[string][]Step)
	for _, step := range s.Steps {
		if _, ok := groups[step.Pool]; !ok {
			order = append(order, step.Pool)
		}
		groups[step.Pool] = append(groups[step.Pool], step)
	}
	out := make([][]Step, 0, len(order))
	for _, alias := range order {
		out = append(out, groups[alias])
	}
	return out
}

// SplitSegments cuts steps at every fund step so balances are in place
// before the pool steps that follow them.
func SplitSegments(steps []Step) []Segment {
	segments := make([]Segment, 0)
	var current []Step
	flush := func() {
		if len(current) > 0 {
			segments = append(segments, Segment{Steps: current})
			current = nil
		}
	}
	for _, step := range steps {
		if step.Op == StepFund {
			flush()
			segments = append(segments, Segment{Steps: []Step{step}})
			continue
		}
		current = append(current, step)
	}
	flush()
	return segments
}
