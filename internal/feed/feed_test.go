package feed

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	apperrors "consensus-trader/internal/errors"
	"consensus-trader/internal/models"
)

func writeDataFile(t *testing.T, dir, symbol, content string) {
	t.Helper()
	if err := os.WriteFile(FilePath(dir, symbol), []byte(content), 0o644); err != nil {
		t.Fatalf("write data file: %v", err)
	}
}

func TestFilePath(t *testing.T) {
	tests := []struct {
		symbol string
		want   string
	}{
		{"NVDA", "NVDA_data.csv"},
		{"BTC/USD", "BTC_USD_data.csv"},
		{"ETH/USD", "ETH_USD_data.csv"},
	}
	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			got := FilePath("data", tt.symbol)
			if got != filepath.Join("data", tt.want) {
				t.Errorf("FilePath(%q) = %q, want %q", tt.symbol, got, tt.want)
			}
		})
	}
}

func TestCSVSourceLoad(t *testing.T) {
	dir := t.TempDir()
	// Out of order, one duplicate, one malformed close, one empty volume.
	writeDataFile(t, dir, "NVDA", `timestamp,open,high,low,close,volume
2024-03-04 09:32:00+00:00,102,103,101,102.5,900
2024-03-04 09:30:00+00:00,100,101,99,100.5,1000
2024-03-04 09:31:00+00:00,101,102,100,abc,1100
2024-03-04 09:30:00+00:00,100,101,99,100.9,1000
2024-03-04 09:33:00+00:00,103,104,102,103.5,
`)

	ticks, err := NewCSVSource(dir, "NVDA", zerolog.Nop()).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(ticks) != 2 {
		t.Fatalf("expected 2 usable ticks, got %d", len(ticks))
	}
	if !ticks[0].Timestamp.Before(ticks[1].Timestamp) {
		t.Error("ticks not sorted by timestamp")
	}
	if ticks[0].Close != 100.5 {
		t.Errorf("duplicate timestamp should keep first row, got close %v", ticks[0].Close)
	}
	if ticks[0].Symbol != "NVDA" {
		t.Errorf("symbol = %q, want NVDA", ticks[0].Symbol)
	}
	if ticks[1].Volume != 900 {
		t.Errorf("volume = %d, want 900", ticks[1].Volume)
	}
}

func TestCSVSourceMissingFile(t *testing.T) {
	_, err := NewCSVSource(t.TempDir(), "NVDA", zerolog.Nop()).Load()
	if !apperrors.Is(err, apperrors.ErrDataNotFound) {
		t.Errorf("expected ErrDataNotFound, got %v", err)
	}
	var feedErr *apperrors.FeedError
	if !apperrors.As(err, &feedErr) {
		t.Fatalf("expected FeedError, got %T", err)
	}
	if feedErr.Symbol != "NVDA" {
		t.Errorf("feed error symbol = %q", feedErr.Symbol)
	}
}

func TestCSVSourceNoUsableRows(t *testing.T) {
	dir := t.TempDir()
	writeDataFile(t, dir, "NVDA", `timestamp,open,high,low,close,volume
garbage,1,2,3,4,5
`)
	_, err := NewCSVSource(dir, "NVDA", zerolog.Nop()).Load()
	if !apperrors.Is(err, apperrors.ErrDataNotFound) {
		t.Errorf("expected ErrDataNotFound, got %v", err)
	}
}

func TestMergeOrdersAcrossSymbols(t *testing.T) {
	base := time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)
	at := func(minute int) time.Time { return base.Add(time.Duration(minute) * time.Minute) }

	nvda := []models.Tick{
		{Timestamp: at(0), Symbol: "NVDA", Close: 100},
		{Timestamp: at(2), Symbol: "NVDA", Close: 102},
	}
	aapl := []models.Tick{
		{Timestamp: at(0), Symbol: "AAPL", Close: 200},
		{Timestamp: at(1), Symbol: "AAPL", Close: 201},
		{Timestamp: at(3), Symbol: "AAPL", Close: 203},
	}

	merged := Merge(nvda, aapl)
	if len(merged) != 5 {
		t.Fatalf("merged length = %d, want 5", len(merged))
	}
	for i := 1; i < len(merged); i++ {
		if merged[i].Timestamp.Before(merged[i-1].Timestamp) {
			t.Fatalf("merged stream out of order at %d", i)
		}
	}
	// Equal timestamps break ties by symbol.
	if merged[0].Symbol != "AAPL" || merged[1].Symbol != "NVDA" {
		t.Errorf("tie-break order: got %s, %s", merged[0].Symbol, merged[1].Symbol)
	}
}

func TestMergeEmptyInputs(t *testing.T) {
	if got := Merge(nil, nil); len(got) != 0 {
		t.Errorf("expected empty merge, got %d ticks", len(got))
	}
}

func TestStreamHonorsCancellation(t *testing.T) {
	ticks := make([]models.Tick, 100)
	for i := range ticks {
		ticks[i] = models.Tick{Symbol: "NVDA", Close: float64(i + 1)}
	}

	ctx, cancel := context.WithCancel(context.Background())
	ch := Stream(ctx, ticks)

	<-ch
	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("stream did not stop after cancellation")
		}
	}
}

func TestLoadUniverseSkipsMissingSymbols(t *testing.T) {
	dir := t.TempDir()
	writeDataFile(t, dir, "NVDA", `timestamp,open,high,low,close,volume
2024-03-04 09:30:00+00:00,100,101,99,100.5,1000
`)
	writeDataFile(t, dir, "BTC/USD", `timestamp,open,high,low,close,volume
2024-03-04 09:29:00+00:00,50000,50100,49900,50050,10
`)

	ticks, err := LoadUniverse(dir, []string{"NVDA", "BTC/USD", "MISSING"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("LoadUniverse: %v", err)
	}
	if len(ticks) != 2 {
		t.Fatalf("expected 2 ticks, got %d", len(ticks))
	}
	if ticks[0].Symbol != "BTC/USD" {
		t.Errorf("first tick symbol = %q, want BTC/USD", ticks[0].Symbol)
	}
}

func TestLoadUniverseAllMissing(t *testing.T) {
	_, err := LoadUniverse(t.TempDir(), []string{"A", "B"}, zerolog.Nop())
	if !apperrors.Is(err, apperrors.ErrDataNotFound) {
		t.Errorf("expected ErrDataNotFound, got %v", err)
	}
}
