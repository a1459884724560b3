package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"consensus-trader/internal/config"
	"consensus-trader/internal/engine"
	"consensus-trader/internal/feed"
	"consensus-trader/internal/report"
	"consensus-trader/internal/store"
	"consensus-trader/internal/strategy"
)

func newBacktestCmd(app *App) *cobra.Command {
	var (
		dataDir   string
		outputDir string
		symbols   []string
		capital   float64
		frac      float64
	)

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay recorded data through the decision engine",
		Long: `Backtest loads per-symbol CSV data, merges it into one chronological
stream, and replays it through the consensus engine. Results are printed,
exported as CSV, and persisted to the run store.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.Config
			if dataDir == "" {
				dataDir = cfg.Data.Dir
			}
			if outputDir == "" {
				outputDir = cfg.Data.OutputDir
			}
			if len(symbols) == 0 {
				symbols = cfg.Universe.All()
			}
			if capital > 0 {
				cfg.Engine.InitialCapital = capital
			}
			if frac > 0 {
				cfg.Engine.NotionalFrac = frac
			}

			started := time.Now()
			log := app.Logger

			ticks, err := feed.LoadUniverse(dataDir, symbols, log)
			if err != nil {
				return err
			}
			log.Info().Int("ticks", len(ticks)).Int("symbols", len(symbols)).Msg("Data loaded")

			registry, err := buildRegistry(symbols, cfg)
			if err != nil {
				return err
			}

			eng, err := engine.New(registry, engine.Config{
				InitialCapital: cfg.Engine.InitialCapital,
				NotionalFrac:   cfg.Engine.NotionalFrac,
			}, log)
			if err != nil {
				return err
			}

			if err := eng.Run(cmd.Context(), feed.Stream(cmd.Context(), ticks)); err != nil {
				return err
			}

			summary := eng.Summary()
			trades := eng.Ledger().Trades()
			history := eng.Ledger().History()

			if err := report.WriteFiles(outputDir, trades, history); err != nil {
				return err
			}
			report.PrintSummary(summary, trades)

			persistRun(cmd.Context(), app, "backtest", started, eng)
			return nil
		},
	}

	cmd.Flags().StringVar(&dataDir, "data-dir", "", "directory holding <SYMBOL>_data.csv files")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "directory for exported results")
	cmd.Flags().StringSliceVar(&symbols, "symbols", nil, "symbols to trade (default: configured universe)")
	cmd.Flags().Float64Var(&capital, "capital", 0, "override initial capital")
	cmd.Flags().Float64Var(&frac, "frac", 0, "override notional fraction per trade")

	return cmd
}

// buildRegistry instantiates a fresh producer set per symbol so no state is
// shared across symbols.
func buildRegistry(symbols []string, cfg *config.Config) (map[string][]strategy.SignalProducer, error) {
	params := strategyParams(cfg)
	registry := make(map[string][]strategy.SignalProducer, len(symbols))
	for _, symbol := range symbols {
		set, err := strategy.BuildSet(cfg.Strategies.Set, params)
		if err != nil {
			return nil, err
		}
		registry[symbol] = set
	}
	return registry, nil
}

func strategyParams(cfg *config.Config) strategy.Params {
	return strategy.Params{
		RSIPeriod:       cfg.Strategies.RSI.Period,
		RSIOverbought:   cfg.Strategies.RSI.Overbought,
		RSIOversold:     cfg.Strategies.RSI.Oversold,
		BollingerPeriod: cfg.Strategies.Bollinger.Period,
		BollingerStd:    cfg.Strategies.Bollinger.Std,
		ZScorePeriod:    cfg.Strategies.ZScore.Period,
		ZScoreThreshold: cfg.Strategies.ZScore.Threshold,
		MAShortWindow:   cfg.Strategies.MACross.ShortWindow,
		MALongWindow:    cfg.Strategies.MACross.LongWindow,
	}
}

// persistRun saves the run, its trade log, and its cash history. Persistence
// failures are logged, never fatal: the run already completed.
func persistRun(ctx context.Context, app *App, mode string, started time.Time, eng *engine.Engine) {
	if app.Store == nil {
		return
	}

	summary := eng.Summary()
	runID, err := app.Store.SaveRun(ctx, &store.RunRecord{
		StartedAt:      started,
		Mode:           mode,
		InitialCapital: summary.InitialCapital,
		FinalCash:      summary.FinalCash,
		PortfolioValue: summary.PortfolioValue,
		RealizedPnL:    summary.RealizedPnL,
		TradeCount:     summary.TradeCount,
	})
	if err != nil {
		app.Logger.Error().Err(err).Msg("Failed to persist run")
		return
	}
	if err := app.Store.SaveTrades(ctx, runID, eng.Ledger().Trades()); err != nil {
		app.Logger.Error().Err(err).Msg("Failed to persist trades")
	}
	if err := app.Store.SaveCashHistory(ctx, runID, eng.Ledger().History()); err != nil {
		app.Logger.Error().Err(err).Msg("Failed to persist cash history")
	}
	app.Logger.Info().Int64("run_id", runID).Msg("Run persisted")
}
