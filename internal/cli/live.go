package cli

import (
	"context"
	"fmt"
	"os"
	ossignal "os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	apperrors "consensus-trader/internal/errors"
	"consensus-trader/internal/engine"
	"consensus-trader/internal/live"
	"consensus-trader/internal/metrics"
	"consensus-trader/internal/models"
	"consensus-trader/internal/report"
)

func newLiveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "live",
		Short: "Run the decision engine against live market data",
		Long: `Live connects the configured websocket feeds (Kite for equities,
Binance for crypto), serializes their ticks through a bounded queue, and
drives the same consensus engine the backtest uses. On shutdown open
positions are force-closed at the last seen price and the run is persisted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.Config
			log := app.Logger

			ctx, cancel := ossignal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			symbols := cfg.Universe.All()
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

			srv := metrics.Serve(cfg.Live.MetricsAddr)
			defer srv.Close()
			log.Info().Str("addr", cfg.Live.MetricsAddr).Msg("Metrics up")

			orderLog, err := report.NewOrderLogger(filepath.Join(cfg.Data.OutputDir, report.OrderUpdatesFileName))
			if err != nil {
				return err
			}
			defer orderLog.Close()

			dispatcher := live.NewDispatcher(cfg.Live.QueueSize)

			var kiteFeed *live.KiteFeed
			var feedWG sync.WaitGroup
			feeds := 0
			if cfg.Live.Kite.Enabled {
				if cfg.Credentials.KiteAPIKey == "" || cfg.Credentials.KiteAccessToken == "" {
					return fmt.Errorf("%w: KITE_API_KEY and KITE_ACCESS_TOKEN must be set", apperrors.ErrConfigInvalid)
				}
				kiteFeed = live.NewKiteFeed(cfg.Credentials.KiteAPIKey, cfg.Credentials.KiteAccessToken,
					cfg.Live.Kite.Tokens, dispatcher, log)
				if err := kiteFeed.Start(ctx); err != nil {
					return err
				}
				feeds++
			}
			if cfg.Live.Binance.Enabled && len(cfg.Universe.Crypto) > 0 {
				binanceFeed := live.NewBinanceFeed(cfg.Universe.Crypto, dispatcher, log)
				feedWG.Add(1)
				go func() {
					defer feedWG.Done()
					if err := binanceFeed.Run(ctx); err != nil && ctx.Err() == nil {
						log.Error().Err(err).Msg("Binance feed stopped")
						cancel()
					}
				}()
				feeds++
			}
			if feeds == 0 {
				return fmt.Errorf("%w: no live feeds enabled", apperrors.ErrConfigInvalid)
			}

			started := time.Now()
			log.Info().Int("symbols", len(symbols)).Msg("Live engine started")

			// On the shutdown signal stop every publisher first, then close
			// the queue. Run keeps draining already-enqueued ticks and only
			// returns once the queue is empty, so Finalize sees them all.
			go func() {
				<-ctx.Done()
				log.Info().Msg("Shutdown signal received, draining queued ticks")
				if kiteFeed != nil {
					kiteFeed.Stop()
				}
				feedWG.Wait()
				dispatcher.Close()
			}()

			dispatcher.Run(context.Background(), func(tick models.Tick) {
				metrics.TicksTotal.WithLabelValues(tick.Symbol).Inc()
				before := eng.Ledger().TradeCount()
				eng.OnTick(tick)
				for _, t := range eng.Ledger().Trades()[before:] {
					metrics.TradesTotal.WithLabelValues(t.Symbol, string(t.Side)).Inc()
					if err := orderLog.Append(t); err != nil {
						log.Warn().Err(err).Str("symbol", t.Symbol).Msg("Failed to append order log")
					}
				}
			})

			log.Info().Msg("Queue drained, closing open positions")
			eng.Finalize()

			summary := eng.Summary()
			report.PrintSummary(summary, eng.Ledger().Trades())
			persistRun(context.Background(), app, "live", started, eng)
			return nil
		},
	}
}
