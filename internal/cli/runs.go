package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	apperrors "consensus-trader/internal/errors"
	"consensus-trader/internal/models"
	"consensus-trader/internal/store"
)

func newRunsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "runs",
		Aliases: []string{"report"},
		Short:   "Inspect persisted runs",
		Long:    "List past engine runs and browse their trade logs.",
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Store == nil {
				return apperrors.Wrap(apperrors.ErrDataNotFound, "run store unavailable")
			}
			runs, err := app.Store.GetRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				color.Yellow("No persisted runs")
				return nil
			}

			color.Cyan("📊 Recent Runs")
			fmt.Printf("  %-5s %-20s %-9s %12s %12s %12s %7s\n",
				"ID", "STARTED", "MODE", "CAPITAL", "FINAL", "PNL", "TRADES")
			for _, r := range runs {
				fmt.Printf("  %-5d %-20s %-9s %12.2f %12.2f %12.2f %7d\n",
					r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Mode,
					r.InitialCapital, r.PortfolioValue, r.RealizedPnL, r.TradeCount)
			}
			return nil
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 10, "maximum runs to list")
	cmd.AddCommand(listCmd)

	var (
		runID  int64
		symbol string
		side   string
	)
	tradesCmd := &cobra.Command{
		Use:   "trades",
		Short: "Show the trade log of a run",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Store == nil {
				return apperrors.Wrap(apperrors.ErrDataNotFound, "run store unavailable")
			}
			trades, err := app.Store.GetTrades(cmd.Context(), store.TradeFilter{
				RunID:  runID,
				Symbol: symbol,
				Side:   models.Side(side),
			})
			if err != nil {
				return err
			}
			if len(trades) == 0 {
				color.Yellow("No trades match")
				return nil
			}

			color.Cyan("📒 Trade Log")
			fmt.Printf("  %-10s %-20s %-5s %8s %12s %12s\n",
				"SYMBOL", "TIMESTAMP", "SIDE", "QTY", "PRICE", "PNL")
			for _, t := range trades {
				line := fmt.Sprintf("  %-10s %-20s %-5s %8d %12.2f %12.2f",
					t.Symbol, t.Timestamp.Format("2006-01-02 15:04:05"), t.Side,
					t.Quantity, t.Price, t.RealizedPnL)
				switch {
				case t.RealizedPnL > 0:
					color.Green(line)
				case t.RealizedPnL < 0:
					color.Red(line)
				default:
					fmt.Println(line)
				}
			}
			return nil
		},
	}
	tradesCmd.Flags().Int64Var(&runID, "run", 0, "run id (default: all runs)")
	tradesCmd.Flags().StringVar(&symbol, "symbol", "", "filter by symbol")
	tradesCmd.Flags().StringVar(&side, "side", "", "filter by side (BUY or SELL)")
	cmd.AddCommand(tradesCmd)

	return cmd
}
