package scenario

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"liquidityPool/internal/pool"
	"liquidityPool/internal/units"
)

// ErrExpectation is returned when a step's outcome differs from its expect
// block.
var ErrExpectation = errors.New("scenario expectation not met")

// Funder credits external assets to accounts.
type Funder interface {
	Fund(ctx context.Context, asset, account string, amount uint64) error
}

// RunConfig holds runtime settings for the runner.
type RunConfig struct {
	// Name identifies the script in checkpoints.
	Name              string
	Decimals          map[string]uint8
	CheckpointPath    string
	CheckpointEnabled bool
	// Parallelism bounds concurrently replayed pools; zero means unbounded.
	Parallelism int
}

// Result is the outcome of one executed step.
type Result struct {
	Index      int         `json:"index"`
	Line       int         `json:"line"`
	Op         string      `json:"op"`
	Pool       string      `json:"pool,omitempty"`
	Status     string      `json:"status"`
	ErrorClass string      `json:"error_class,omitempty"`
	Error      string      `json:"error,omitempty"`
	Output     interface{} `json:"output,omitempty"`
}

// Result statuses.
const (
	ResultCommitted = "committed"
	ResultRejected  = "rejected"
)

type Summary struct {
	Executed int      `json:"executed"`
	Skipped  int      `json:"skipped"`
	Results  []Result `json:"results"`
}

// Runner replays a Script. Steps on one pool run in script order; pools in
// the same segment run concurrently.
type Runner struct {
	cfg        RunConfig
	svc        *pool.Service
	funder     Funder
	logger     *zap.Logger
	checkpoint *CheckpointStore
}

func NewRunner(cfg RunConfig, svc *pool.Service, funder Funder, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:        cfg,
		svc:        svc,
		funder:     funder,
		logger:     logger,
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
	}
}

// Run executes the script, skipping the steps the checkpoint marks as done.
func (r *Runner) Run(ctx context.Context, script Script) (Summary, error) {
	if r.svc == nil {
		return Summary{}, fmt.Errorf("pool service is nil")
	}

	cp, ok, err := r.checkpoint.Load()
	if err != nil {
		return Summary{}, err
	}
	if ok {
		if cp.Script != r.cfg.Name {
			return Summary{}, fmt.Errorf("checkpoint belongs to script %q, not %q", cp.Script, r.cfg.Name)
		}
		r.logger.Info("resuming from checkpoint",
			zap.Int("last_completed_step", cp.LastCompletedStep),
			zap.Ints("completed", cp.Completed),
		)
	} else {
		cp = Checkpoint{Script: r.cfg.Name, LastCompletedStep: -1}
	}

	var (
		mu        sync.Mutex
		summary   Summary
		last      = cp.LastCompletedStep
		completed = append([]int(nil), cp.Completed...)
	)
	record := func(res Result) {
		mu.Lock()
		summary.Results = append(summary.Results, res)
		mu.Unlock()
	}
	// markDone checkpoints a step as soon as it has taken effect, so a
	// resume never replays it.
	markDone := func(index int) error {
		mu.Lock()
		defer mu.Unlock()
		completed = append(completed, index)
		return r.checkpoint.Save(r.cfg.Name, last, completed)
	}

	pending := make([]Step, 0, len(script.Steps))
	for _, step := range script.Steps {
		if cp.Done(step.Index) {
			summary.Skipped++
			continue
		}
		pending = append(pending, step)
	}

	for _, segment := range SplitSegments(pending) {
		g, gctx := errgroup.WithContext(ctx)
		if r.cfg.Parallelism > 0 {
			g.SetLimit(r.cfg.Parallelism)
		}
		for _, steps := range segment.ByPool() {
			steps := steps
			g.Go(func() error {
				for _, step := range steps {
					res, err := r.runStep(gctx, script, step)
					record(res)
					// A committed step changed state even when its
					// expectation failed.
					if err == nil || res.Status == ResultCommitted {
						if serr := markDone(step.Index); serr != nil {
							return serr
						}
					}
					if err != nil {
						return err
					}
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			finish(&summary)
			return summary, err
		}

		mu.Lock()
		last = segment.Last()
		later := completed[:0]
		for _, i := range completed {
			if i > last {
				later = append(later, i)
			}
		}
		completed = later
		err := r.checkpoint.Save(r.cfg.Name, last, completed)
		mu.Unlock()
		if err != nil {
			finish(&summary)
			return summary, err
		}
		r.logger.Debug("segment completed", zap.Int("last_step", last), zap.Int("steps", len(segment.Steps)))
	}

	finish(&summary)
	r.logger.Info("scenario completed",
		zap.String("script", r.cfg.Name),
		zap.Int("executed", summary.Executed),
		zap.Int("skipped", summary.Skipped),
	)
	return summary, nil
}

func finish(s *Summary) {
	sort.Slice(s.Results, func(i, j int) bool { return s.Results[i].Index < s.Results[j].Index })
	s.Executed = len(s.Results)
}

func (r *Runner) runStep(ctx context.Context, script Script, step Step) (Result, error) {
	res := Result{Index: step.Index, Line: step.Line, Op: step.Op, Pool: step.Pool}

	out, err := r.apply(ctx, script, step)
	if err != nil {
		res.Status = ResultRejected
		res.ErrorClass = string(pool.Classify(err))
		res.Error = err.Error()
	} else {
		res.Status = ResultCommitted
		res.Output = out
	}

	if step.Expect != nil && step.Expect.ErrorClass != "" {
		if err == nil {
			return res, fmt.Errorf("%w: line %d %s succeeded, want %s failure", ErrExpectation, step.Line, step.Op, step.Expect.ErrorClass)
		}
		if res.ErrorClass != step.Expect.ErrorClass {
			return res, fmt.Errorf("%w: line %d %s failed with %s, want %s: %v", ErrExpectation, step.Line, step.Op, res.ErrorClass, step.Expect.ErrorClass, err)
		}
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("line %d %s: %w", step.Line, step.Op, err)
	}
	if err := checkOutput(step, out); err != nil {
		return res, err
	}
	return res, nil
}

func (r *Runner) decimals(asset string) uint8 {
	return r.cfg.Decimals[asset]
}

func (r *Runner) amount(value, asset string) (uint64, error) {
	v, err := units.ToBaseUnits(value, r.decimals(asset))
	if err != nil {
		return 0, fmt.Errorf("amount of %s: %w", asset, err)
	}
	return v, nil
}

func (r *Runner) apply(ctx context.Context, script Script, step Step) (interface{}, error) {
	switch step.Op {
	case StepFund:
		if r.funder == nil {
			return nil, fmt.Errorf("fund step without a funder")
		}
		amount, err := r.amount(step.Amount, step.Asset)
		if err != nil {
			return nil, err
		}
		return nil, r.funder.Fund(ctx, step.Asset, step.Account, amount)

	case StepCreate:
		rec, err := r.svc.CreatePool(ctx, step.Asset0, step.Asset1, step.FeeNumerator, step.FeeDenominator)
		if err != nil {
			return nil, err
		}
		return rec.ID, nil
	}

	spec := script.Pools[step.Pool]
	switch step.Op {
	case StepAdd:
		amount0, err := r.amount(step.Amount0, spec.Asset0)
		if err != nil {
			return nil, err
		}
		amount1, err := r.amount(step.Amount1, spec.Asset1)
		if err != nil {
			return nil, err
		}
		return r.svc.AddLiquidity(ctx, spec.ID, step.Account, amount0, amount1)

	case StepRemove:
		claim, err := units.ToBaseUnits(step.Claim, 0)
		if err != nil {
			return nil, fmt.Errorf("claim amount: %w", err)
		}
		return r.svc.RemoveLiquidity(ctx, spec.ID, step.Account, claim)

	case StepSwap:
		assetIn, err := spec.Asset(step.AssetIn)
		if err != nil {
			return nil, err
		}
		amountIn, err := r.amount(step.Amount, step.AssetIn)
		if err != nil {
			return nil, err
		}
		var minOut uint64
		if step.MinOut != "" {
			if minOut, err = r.amount(step.MinOut, spec.AssetName(assetIn.Other())); err != nil {
				return nil, err
			}
		}
		return r.svc.Swap(ctx, spec.ID, step.Account, assetIn, amountIn, minOut)
	}
	return nil, fmt.Errorf("unknown op %q", step.Op)
}

type check struct {
	name string
	want *uint64
	got  uint64
}

func checkOutput(step Step, out interface{}) error {
	if step.Expect == nil {
		return nil
	}
	want := step.Expect

	var checks []check
	switch v := out.(type) {
	case pool.AddResult:
		checks = []check{
			{"claim_minted", want.ClaimMinted, v.ClaimMinted},
			{"reserve0_used", want.Reserve0Used, v.Reserve0Used},
			{"reserve1_used", want.Reserve1Used, v.Reserve1Used},
		}
	case pool.RemoveResult:
		checks = []check{
			{"amount0_out", want.Amount0Out, v.Amount0Out},
			{"amount1_out", want.Amount1Out, v.Amount1Out},
		}
	case pool.SwapResult:
		checks = []check{
			{"amount_out", want.AmountOut, v.AmountOut},
		}
	}

	for _, c := range checks {
		if c.want != nil && *c.want != c.got {
			return fmt.Errorf("%w: line %d %s %s = %d, want %d", ErrExpectation, step.Line, step.Op, c.name, c.got, *c.want)
		}
	}
	return nil
}
