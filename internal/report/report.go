// Package report renders and exports run results.
package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/gocarina/gocsv"

	apperrors "consensus-trader/internal/errors"
	"consensus-trader/internal/models"
)

// Output file names for a backtest run.
const (
	TradesFileName      = "backtest_trades_log.csv"
	CashHistoryFileName = "backtest_cash_history.csv"
)

// ExportTrades writes the trade log as CSV.
func ExportTrades(path string, trades []models.Trade) error {
	file, err := os.Create(path)
	if err != nil {
		return apperrors.Wrap(err, "create trades file")
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&trades, file); err != nil {
		return apperrors.Wrap(err, "marshal trades")
	}
	return nil
}

// ExportCashHistory writes the per-tick cash samples as CSV.
func ExportCashHistory(path string, points []models.CashPoint) error {
	file, err := os.Create(path)
	if err != nil {
		return apperrors.Wrap(err, "create cash history file")
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&points, file); err != nil {
		return apperrors.Wrap(err, "marshal cash history")
	}
	return nil
}

// WriteFiles exports the trade log and cash history into outputDir, creating
// the directory if needed.
func WriteFiles(outputDir string, trades []models.Trade, points []models.CashPoint) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return apperrors.Wrap(err, "create output dir")
	}
	if err := ExportTrades(filepath.Join(outputDir, TradesFileName), trades); err != nil {
		return err
	}
	return ExportCashHistory(filepath.Join(outputDir, CashHistoryFileName), points)
}

// PrintSummary renders the run summary to the terminal.
func PrintSummary(summary models.Summary, trades []models.Trade) {
	color.Cyan("📊 Backtest Summary")
	fmt.Printf("  Initial Capital:  %.2f\n", summary.InitialCapital)
	fmt.Printf("  Final Cash:       %.2f\n", summary.FinalCash)
	fmt.Printf("  Portfolio Value:  %.2f\n", summary.PortfolioValue)
	fmt.Printf("  Trades:           %d\n", summary.TradeCount)

	if summary.RealizedPnL >= 0 {
		color.Green("  Realized P&L:     +%.2f", summary.RealizedPnL)
	} else {
		color.Red("  Realized P&L:     %.2f", summary.RealizedPnL)
	}

	wins, losses := 0, 0
	for _, t := range trades {
		switch {
		case t.RealizedPnL > 0:
			wins++
		case t.RealizedPnL < 0:
			losses++
		}
	}
	closed := wins + losses
	if closed > 0 {
		fmt.Printf("  Closed Positions: %d (%d wins, %d losses)\n", closed, wins, losses)
		fmt.Printf("  Win Rate:         %.1f%%\n", float64(wins)/float64(closed)*100)
	} else {
		color.Yellow("  No closed positions")
	}

	if summary.InitialCapital > 0 {
		ret := (summary.PortfolioValue - summary.InitialCapital) / summary.InitialCapital * 100
		fmt.Printf("  Return:           %.2f%%\n", ret)
	}
}
