// Package store provides data persistence implementations.
package store

import (
	"context"
	"time"

	"consensus-trader/internal/models"
)

// RunRecord is one persisted engine run with its final summary.
type RunRecord struct {
	ID             int64
	StartedAt      time.Time
	Mode           string
	InitialCapital float64
	FinalCash      float64
	PortfolioValue float64
	RealizedPnL    float64
	TradeCount     int
}

// TradeFilter narrows trade queries.
type TradeFilter struct {
	RunID  int64
	Symbol string
	Side   models.Side
	Limit  int
}

// RunStore persists engine runs, their trade logs and cash histories.
type RunStore interface {
	SaveRun(ctx context.Context, run *RunRecord) (int64, error)
	SaveTrades(ctx context.Context, runID int64, trades []models.Trade) error
	SaveCashHistory(ctx context.Context, runID int64, points []models.CashPoint) error
	GetRuns(ctx context.Context, limit int) ([]RunRecord, error)
	GetTrades(ctx context.Context, filter TradeFilter) ([]models.Trade, error)
	GetCashHistory(ctx context.Context, runID int64) ([]models.CashPoint, error)
	Close() error
}
