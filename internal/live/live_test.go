package live

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	apperrors "consensus-trader/internal/errors"
	"consensus-trader/internal/models"
)

func TestDispatcherDeliversInPublishOrder(t *testing.T) {
	d := NewDispatcher(16)
	for i := 1; i <= 10; i++ {
		if err := d.TryPublish(models.Tick{Symbol: "NVDA", Close: float64(i)}); err != nil {
			t.Fatalf("TryPublish %d: %v", i, err)
		}
	}
	d.Close()

	var got []float64
	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Run(context.Background(), func(tick models.Tick) {
			got = append(got, tick.Close)
		})
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not drain after Close")
	}

	if len(got) != 10 {
		t.Fatalf("expected 10 ticks, got %d", len(got))
	}
	for i, price := range got {
		if price != float64(i+1) {
			t.Fatalf("out of order at %d: got %v", i, price)
		}
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	d := NewDispatcher(1)
	if err := d.TryPublish(models.Tick{Symbol: "NVDA", Close: 1}); err != nil {
		t.Fatalf("first publish: %v", err)
	}
	if err := d.TryPublish(models.Tick{Symbol: "NVDA", Close: 2}); !apperrors.Is(err, apperrors.ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}
}

func TestDispatcherRejectsAfterClose(t *testing.T) {
	d := NewDispatcher(4)
	d.Close()
	if err := d.TryPublish(models.Tick{Symbol: "NVDA", Close: 1}); !apperrors.Is(err, apperrors.ErrQueueClosed) {
		t.Errorf("expected ErrQueueClosed, got %v", err)
	}
	// Close is idempotent.
	d.Close()
}

func TestDispatcherStopsOnContextCancel(t *testing.T) {
	d := NewDispatcher(4)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Run(ctx, func(models.Tick) {})
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}

func TestDispatcherSerializesConcurrentPublishers(t *testing.T) {
	d := NewDispatcher(1024)

	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				d.TryPublish(models.Tick{Symbol: "NVDA", Close: 1})
			}
		}()
	}
	wg.Wait()
	d.Close()

	// The handler observes ticks one at a time on a single goroutine, so an
	// unguarded counter is safe.
	count := 0
	d.Run(context.Background(), func(models.Tick) { count++ })
	if count != 400 {
		t.Errorf("expected 400 ticks, got %d", count)
	}
}

// Mirrors the live command's shutdown wiring: the signal context only stops
// the publishers, the queue is then closed, and the consumer keeps running on
// its own context until every queued tick is handled.
func TestShutdownDrainsQueuedTicks(t *testing.T) {
	d := NewDispatcher(64)
	for i := 0; i < 50; i++ {
		if err := d.TryPublish(models.Tick{Symbol: "NVDA", Close: float64(i + 1)}); err != nil {
			t.Fatalf("TryPublish %d: %v", i, err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-ctx.Done()
		d.Close()
	}()

	handled := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Run(context.Background(), func(models.Tick) { handled++ })
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not drain after shutdown")
	}
	if handled != 50 {
		t.Errorf("handled %d of 50 queued ticks after shutdown", handled)
	}
}

func TestDispatcherCloseUnderConcurrentPublish(t *testing.T) {
	d := NewDispatcher(1024)

	var published int64
	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				if d.TryPublish(models.Tick{Symbol: "NVDA", Close: 1}) == nil {
					atomic.AddInt64(&published, 1)
				}
			}
		}()
	}
	d.Close()
	wg.Wait()

	// Every accepted tick must still come out; nothing may be lost or panic
	// between a racing publish and the close.
	count := int64(0)
	d.Run(context.Background(), func(models.Tick) { count++ })
	if count != atomic.LoadInt64(&published) {
		t.Errorf("delivered %d ticks, accepted %d", count, published)
	}
}

func TestBinanceStreamNames(t *testing.T) {
	tests := []struct {
		symbol string
		want   string
	}{
		{"BTC/USD", "btcusdt@trade"},
		{"ETH/USD", "ethusdt@trade"},
		{"SOLUSDT", "solusdt@trade"},
	}
	for _, tt := range tests {
		if got := streamName(tt.symbol); got != tt.want {
			t.Errorf("streamName(%q) = %q, want %q", tt.symbol, got, tt.want)
		}
	}
}

func TestBinanceHandleMessagePublishes(t *testing.T) {
	d := NewDispatcher(4)
	f := NewBinanceFeed([]string{"BTC/USD"}, d, zerolog.Nop())

	f.handleMessage([]byte(`{"stream":"btcusdt@trade","data":{"p":"50000.5","q":"0.25","T":1709544600000}}`))
	f.handleMessage([]byte(`{"stream":"btcusdt@trade","data":{"p":"not-a-price","q":"1","T":1709544601000}}`))
	f.handleMessage([]byte(`{"stream":"ethusdt@trade","data":{"p":"3000","q":"1","T":1709544602000}}`))
	d.Close()

	var got []models.Tick
	d.Run(context.Background(), func(tick models.Tick) {
		got = append(got, tick)
	})

	if len(got) != 1 {
		t.Fatalf("expected 1 tick, got %d", len(got))
	}
	if got[0].Symbol != "BTC/USD" || got[0].Close != 50000.5 {
		t.Errorf("tick mismatch: %+v", got[0])
	}
	if got[0].Timestamp.UnixMilli() != 1709544600000 {
		t.Errorf("timestamp = %v", got[0].Timestamp)
	}
}
