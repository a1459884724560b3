// Package strategy provides signal producers: stateful per-symbol strategies
// that consume one tick and return zero or more directional signals.
package strategy

import (
	"fmt"
	"math"
	"strings"

	"consensus-trader/internal/models"
)

// SignalProducer consumes one tick and returns zero or more directional
// signals. Implementations are stateful across calls and must be instantiated
// once per (strategy kind, symbol) pair, never shared across symbols.
type SignalProducer interface {
	Name() string
	GenerateSignals(tick models.Tick) []models.Signal
}

// Params expresses the tunable knobs required by producer constructors.
type Params struct {
	RSIPeriod     int
	RSIOverbought float64
	RSIOversold   float64

	BollingerPeriod int
	BollingerStd    float64

	ZScorePeriod    int
	ZScoreThreshold float64

	MAShortWindow int
	MALongWindow  int
}

// DefaultParams returns the parameter set used when nothing is configured.
func DefaultParams() Params {
	return Params{
		RSIPeriod:       3,
		RSIOverbought:   80.0,
		RSIOversold:     20.0,
		BollingerPeriod: 20,
		BollingerStd:    2.0,
		ZScorePeriod:    60,
		ZScoreThreshold: 2.0,
		MAShortWindow:   5,
		MALongWindow:    20,
	}
}

// Canonical resolves a configured kind or one of its aliases to the
// canonical kind name. ok is false for unknown kinds.
func Canonical(kind string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "rsi":
		return "rsi", true
	case "bollinger", "bb":
		return "bollinger", true
	case "zscore", "z":
		return "zscore", true
	case "macross", "ma", "ma_crossover":
		return "macross", true
	default:
		return "", false
	}
}

// Build returns a fresh producer of the given kind. Aliases resolve through
// Canonical, so anything Validate accepts builds.
func Build(kind string, p Params) (SignalProducer, error) {
	canonical, ok := Canonical(kind)
	if !ok {
		return nil, fmt.Errorf("unknown strategy kind %q", kind)
	}
	switch canonical {
	case "rsi":
		return NewRSI(p.RSIPeriod, p.RSIOverbought, p.RSIOversold), nil
	case "bollinger":
		return NewBollinger(p.BollingerPeriod, p.BollingerStd), nil
	case "zscore":
		return NewZScore(p.ZScorePeriod, p.ZScoreThreshold), nil
	default:
		return NewMACross(p.MAShortWindow, p.MALongWindow), nil
	}
}

// BuildSet constructs one fresh producer per kind, in order. Call once per
// symbol so every symbol gets its own producer state.
func BuildSet(kinds []string, p Params) ([]SignalProducer, error) {
	producers := make([]SignalProducer, 0, len(kinds))
	for _, kind := range kinds {
		producer, err := Build(kind, p)
		if err != nil {
			return nil, err
		}
		producers = append(producers, producer)
	}
	return producers, nil
}

// window is a fixed-capacity rolling window of prices.
type window struct {
	prices []float64
	size   int
}

func newWindow(size int) *window {
	return &window{prices: make([]float64, 0, size+1), size: size}
}

// push appends a price, evicting the oldest once the window is full, and
// returns the evicted price (NaN-free: ok reports whether anything fell off).
func (w *window) push(price float64) (evicted float64, ok bool) {
	w.prices = append(w.prices, price)
	if len(w.prices) > w.size {
		evicted = w.prices[0]
		w.prices = w.prices[1:]
		return evicted, true
	}
	return 0, false
}

func (w *window) full() bool {
	return len(w.prices) >= w.size
}

func (w *window) mean() float64 {
	if len(w.prices) == 0 {
		return 0
	}
	var sum float64
	for _, p := range w.prices {
		sum += p
	}
	return sum / float64(len(w.prices))
}

func (w *window) stddev() float64 {
	n := len(w.prices)
	if n == 0 {
		return 0
	}
	mean := w.mean()
	var variance float64
	for _, p := range w.prices {
		variance += (p - mean) * (p - mean)
	}
	variance /= float64(n)
	return math.Sqrt(variance)
}
