package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityPool/internal/amm"
	"liquidityPool/internal/config"
	"liquidityPool/internal/model"
	"liquidityPool/internal/units"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a pool for an ordered asset pair",
		RunE:  runInit,
	}
	addCommonFlags(cmd.Flags())
	cmd.Flags().String("asset0", "", "first asset of the pair")
	cmd.Flags().String("asset1", "", "second asset of the pair")
	cmd.Flags().Uint64("fee-numerator", 30, "swap fee numerator")
	cmd.Flags().Uint64("fee-denominator", 10000, "swap fee denominator")
	return cmd
}

func newQuoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a swap without executing it",
		RunE:  runQuote,
	}
	addCommonFlags(cmd.Flags())
	cmd.Flags().String("pool", "", "pool id")
	cmd.Flags().String("asset-in", "", "asset paid in")
	cmd.Flags().String("amount-in", "", "amount paid in (decimal)")
	cmd.Flags().String("amount-out", "", "desired output (decimal), quotes the minimum input instead")
	return cmd
}

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [pool-id]",
		Short: "Show one pool or list all pools",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runShow,
	}
	addCommonFlags(cmd.Flags())
	return cmd
}

// withApp loads the shared config, opens the app and runs fn with it.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	return runApp(cmd, cfg, fn)
}

func runApp(cmd *cobra.Command, cfg config.Config, fn func(ctx context.Context, a *app) error) error {
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	runErr := fn(ctx, a)
	if err := a.Close(); err != nil {
		logger.Error("shutdown", zap.Error(err))
		if runErr == nil {
			runErr = err
		}
	}
	return runErr
}

func runInit(cmd *cobra.Command, _ []string) error {
	asset0, _ := cmd.Flags().GetString("asset0")
	asset1, _ := cmd.Flags().GetString("asset1")
	feeNum, _ := cmd.Flags().GetUint64("fee-numerator")
	feeDen, _ := cmd.Flags().GetUint64("fee-denominator")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		rec, err := a.svc.CreatePool(ctx, asset0, asset1, feeNum, feeDen)
		if err != nil {
			return err
		}
		a.logger.Info("pool created",
			zap.String("pool", string(rec.ID)),
			zap.String("asset0", asset0),
			zap.String("asset1", asset1),
			zap.Uint64("fee_numerator", feeNum),
			zap.Uint64("fee_denominator", feeDen),
		)
		return printJSON(cmd, a.view(rec))
	})
}

type quoteView struct {
	Pool             model.PoolID `json:"pool"`
	AssetIn          string       `json:"asset_in"`
	AssetOut         string       `json:"asset_out"`
	AmountIn         string       `json:"amount_in"`
	AmountInAfterFee string       `json:"amount_in_after_fee,omitempty"`
	AmountOut        string       `json:"amount_out"`
	Fee              string       `json:"fee,omitempty"`
}

func runQuote(cmd *cobra.Command, _ []string) error {
	rawID, _ := cmd.Flags().GetString("pool")
	assetName, _ := cmd.Flags().GetString("asset-in")
	amountIn, _ := cmd.Flags().GetString("amount-in")
	amountOut, _ := cmd.Flags().GetString("amount-out")
	if (amountIn == "") == (amountOut == "") {
		return fmt.Errorf("exactly one of --amount-in and --amount-out is required")
	}
	id, err := model.ParsePoolID(rawID)
	if err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		rec, err := a.svc.Pool(ctx, id)
		if err != nil {
			return err
		}
		assetIn, err := assetOf(rec, assetName)
		if err != nil {
			return err
		}
		inName, outName := rec.AssetName(assetIn), rec.AssetName(assetIn.Other())
		view := quoteView{Pool: rec.ID, AssetIn: inName, AssetOut: outName}

		if amountOut != "" {
			out, err := units.ToBaseUnits(amountOut, a.decimals(outName))
			if err != nil {
				return err
			}
			in, err := amm.QuoteAmountIn(rec.State, assetIn, out)
			if err != nil {
				return err
			}
			view.AmountIn = units.FromBaseUnits(in, a.decimals(inName))
			view.AmountOut = amountOut
			return printJSON(cmd, view)
		}

		in, err := units.ToBaseUnits(amountIn, a.decimals(inName))
		if err != nil {
			return err
		}
		quote, err := a.svc.Quote(ctx, id, assetIn, in)
		if err != nil {
			return err
		}
		view.AmountIn = amountIn
		view.AmountInAfterFee = units.FromBaseUnits(quote.AmountInAfterFee, a.decimals(inName))
		view.AmountOut = units.FromBaseUnits(quote.AmountOut, a.decimals(outName))
		view.Fee = units.FromBaseUnits(quote.Fee(), a.decimals(inName))
		return printJSON(cmd, view)
	})
}

type poolView struct {
	ID          model.PoolID `json:"id"`
	Asset0      string       `json:"asset0"`
	Asset1      string       `json:"asset1"`
	Reserve0    string       `json:"reserve0"`
	Reserve1    string       `json:"reserve1"`
	ClaimSupply uint64       `json:"claim_supply"`
	Fee         string       `json:"fee"`
	Price0      string       `json:"price0,omitempty"`
	Price1      string       `json:"price1,omitempty"`
	Version     uint64       `json:"version"`
	UpdatedAt   string       `json:"updated_at"`
}

func (a *app) view(rec model.PoolRecord) poolView {
	v := poolView{
		ID:          rec.ID,
		Asset0:      rec.Asset0,
		Asset1:      rec.Asset1,
		Reserve0:    units.FromBaseUnits(rec.State.Reserve0, a.decimals(rec.Asset0)),
		Reserve1:    units.FromBaseUnits(rec.State.Reserve1, a.decimals(rec.Asset1)),
		ClaimSupply: rec.State.ClaimSupply,
		Fee:         fmt.Sprintf("%d/%d", rec.State.FeeNumerator, rec.State.FeeDenominator),
		Version:     rec.Version,
		UpdatedAt:   rec.UpdatedAt.Format(time.RFC3339),
	}
	if p, err := amm.SpotPrice(rec.State, model.Asset0, 8); err == nil {
		v.Price0 = p
	}
	if p, err := amm.SpotPrice(rec.State, model.Asset1, 8); err == nil {
		v.Price1 = p
	}
	return v
}

func runShow(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		if len(args) == 1 {
			id, err := model.ParsePoolID(args[0])
			if err != nil {
				return err
			}
			rec, err := a.svc.Pool(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(cmd, a.view(rec))
		}

		records, err := a.svc.Pools(ctx)
		if err != nil {
			return err
		}
		views := make([]poolView, 0, len(records))
		for _, rec := range records {
			views = append(views, a.view(rec))
		}
		return printJSON(cmd, views)
	})
}

func assetOf(rec model.PoolRecord, name string) (model.Asset, error) {
	switch name {
	case rec.Asset0:
		return model.Asset0, nil
	case rec.Asset1:
		return model.Asset1, nil
	}
	return 0, fmt.Errorf("asset %q is not part of pool %s", name, rec.ID.Short())
}
