package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"consensus-trader/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRunRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run := &RunRecord{
		StartedAt:      time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC),
		Mode:           "backtest",
		InitialCapital: 100000,
		FinalCash:      100200,
		PortfolioValue: 100200,
		RealizedPnL:    200,
		TradeCount:     2,
	}
	id, err := store.SaveRun(ctx, run)
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if id <= 0 {
		t.Fatalf("expected positive run id, got %d", id)
	}

	runs, err := store.GetRuns(ctx, 10)
	if err != nil {
		t.Fatalf("GetRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	got := runs[0]
	if got.ID != id || got.Mode != "backtest" || got.RealizedPnL != 200 || got.TradeCount != 2 {
		t.Errorf("run mismatch: %+v", got)
	}
	if !got.StartedAt.Equal(run.StartedAt) {
		t.Errorf("started_at = %v, want %v", got.StartedAt, run.StartedAt)
	}
}

func TestTradesRoundTripAndFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	runID, err := store.SaveRun(ctx, &RunRecord{StartedAt: time.Now().UTC(), Mode: "backtest", InitialCapital: 100000})
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	base := time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)
	trades := []models.Trade{
		{Symbol: "NVDA", Timestamp: base, Side: models.SideBuy, Quantity: 20, Price: 100},
		{Symbol: "NVDA", Timestamp: base.Add(time.Minute), Side: models.SideSell, Quantity: 20, Price: 110, RealizedPnL: 200},
		{Symbol: "AAPL", Timestamp: base.Add(2 * time.Minute), Side: models.SideBuy, Quantity: 10, Price: 200},
	}
	if err := store.SaveTrades(ctx, runID, trades); err != nil {
		t.Fatalf("SaveTrades: %v", err)
	}

	all, err := store.GetTrades(ctx, TradeFilter{RunID: runID})
	if err != nil {
		t.Fatalf("GetTrades: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 trades, got %d", len(all))
	}
	if all[0].Symbol != "NVDA" || all[0].Side != models.SideBuy || all[0].Quantity != 20 {
		t.Errorf("first trade mismatch: %+v", all[0])
	}
	if all[1].RealizedPnL != 200 {
		t.Errorf("realized pnl = %v, want 200", all[1].RealizedPnL)
	}

	nvda, err := store.GetTrades(ctx, TradeFilter{RunID: runID, Symbol: "NVDA"})
	if err != nil {
		t.Fatalf("GetTrades symbol filter: %v", err)
	}
	if len(nvda) != 2 {
		t.Errorf("expected 2 NVDA trades, got %d", len(nvda))
	}

	sells, err := store.GetTrades(ctx, TradeFilter{RunID: runID, Side: models.SideSell})
	if err != nil {
		t.Fatalf("GetTrades side filter: %v", err)
	}
	if len(sells) != 1 || sells[0].Price != 110 {
		t.Errorf("sell filter mismatch: %+v", sells)
	}

	limited, err := store.GetTrades(ctx, TradeFilter{RunID: runID, Limit: 1})
	if err != nil {
		t.Fatalf("GetTrades limit: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("expected 1 trade with limit, got %d", len(limited))
	}
}

func TestCashHistoryKeepsInsertionOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	runID, err := store.SaveRun(ctx, &RunRecord{StartedAt: time.Now().UTC(), Mode: "backtest", InitialCapital: 100000})
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	base := time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)
	points := []models.CashPoint{
		{Timestamp: base, Cash: 100000},
		{Timestamp: base.Add(time.Minute), Cash: 98000},
		{Timestamp: base.Add(2 * time.Minute), Cash: 100200},
	}
	if err := store.SaveCashHistory(ctx, runID, points); err != nil {
		t.Fatalf("SaveCashHistory: %v", err)
	}

	got, err := store.GetCashHistory(ctx, runID)
	if err != nil {
		t.Fatalf("GetCashHistory: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 points, got %d", len(got))
	}
	for i := range points {
		if got[i].Cash != points[i].Cash {
			t.Errorf("point %d cash = %v, want %v", i, got[i].Cash, points[i].Cash)
		}
		if !got[i].Timestamp.Equal(points[i].Timestamp) {
			t.Errorf("point %d timestamp = %v, want %v", i, got[i].Timestamp, points[i].Timestamp)
		}
	}
}

func TestEmptySavesSucceed(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	runID, err := store.SaveRun(ctx, &RunRecord{StartedAt: time.Now().UTC(), Mode: "backtest", InitialCapital: 100000})
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if err := store.SaveTrades(ctx, runID, nil); err != nil {
		t.Errorf("SaveTrades(nil): %v", err)
	}
	if err := store.SaveCashHistory(ctx, runID, nil); err != nil {
		t.Errorf("SaveCashHistory(nil): %v", err)
	}
}

// Property: for any valid trade log, saving and retrieving by run produces
// equivalent trades in the same order.
func TestProperty_TradeRoundTripConsistency(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	symbols := []string{"NVDA", "AAPL", "BTC/USD", "ETH/USD"}
	base := time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)

	tradeGen := gopter.CombineGens(
		gen.IntRange(0, len(symbols)-1),
		gen.OneConstOf(models.SideBuy, models.SideSell),
		gen.IntRange(1, 1000),
		gen.Float64Range(1, 5000),
		gen.Float64Range(-10000, 10000),
	).Map(func(values []interface{}) models.Trade {
		return models.Trade{
			Symbol:      symbols[values[0].(int)],
			Side:        values[1].(models.Side),
			Quantity:    values[2].(int),
			Price:       values[3].(float64),
			RealizedPnL: values[4].(float64),
		}
	})

	properties.Property("Trade round-trip: save then retrieve produces equivalent data", prop.ForAll(
		func(trades []models.Trade) bool {
			runID, err := store.SaveRun(ctx, &RunRecord{StartedAt: base, Mode: "backtest", InitialCapital: 100000})
			if err != nil {
				t.Logf("Failed to save run: %v", err)
				return false
			}

			// Strictly increasing timestamps keep retrieval order well defined.
			for i := range trades {
				trades[i].Timestamp = base.Add(time.Duration(i) * time.Minute)
			}

			if err := store.SaveTrades(ctx, runID, trades); err != nil {
				t.Logf("Failed to save trades: %v", err)
				return false
			}

			retrieved, err := store.GetTrades(ctx, TradeFilter{RunID: runID})
			if err != nil {
				t.Logf("Failed to get trades: %v", err)
				return false
			}
			if len(retrieved) != len(trades) {
				t.Logf("Count mismatch: expected %d, got %d", len(trades), len(retrieved))
				return false
			}
			for i, orig := range trades {
				ret := retrieved[i]
				if ret.Symbol != orig.Symbol || ret.Side != orig.Side || ret.Quantity != orig.Quantity {
					t.Logf("Trade mismatch at %d: original=%+v, retrieved=%+v", i, orig, ret)
					return false
				}
				if !ret.Timestamp.Equal(orig.Timestamp) {
					t.Logf("Timestamp mismatch at %d: %v vs %v", i, orig.Timestamp, ret.Timestamp)
					return false
				}
				if diff := ret.Price - orig.Price; diff > 1e-9 || diff < -1e-9 {
					t.Logf("Price mismatch at %d: %v vs %v", i, orig.Price, ret.Price)
					return false
				}
			}
			return true
		},
		gen.SliceOf(tradeGen),
	))

	properties.TestingRun(t)
}
