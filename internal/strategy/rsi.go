package strategy

import (
	"consensus-trader/internal/models"
)

// RSI is a momentum-threshold producer. It tracks the relative strength
// index over a rolling window and votes when RSI crosses back out of the
// overbought or oversold region.
type RSI struct {
	period     int
	overbought float64
	oversold   float64

	closes  *window
	prevRSI float64
	primed  bool
}

// NewRSI creates a momentum-threshold producer.
func NewRSI(period int, overbought, oversold float64) *RSI {
	if period <= 0 {
		period = 3
	}
	return &RSI{
		period:     period,
		overbought: overbought,
		oversold:   oversold,
		closes:     newWindow(period + 1),
	}
}

// Name returns the producer identifier for logging.
func (r *RSI) Name() string { return "rsi" }

// GenerateSignals evaluates one tick.
func (r *RSI) GenerateSignals(tick models.Tick) []models.Signal {
	r.closes.push(tick.Close)
	if !r.closes.full() {
		return nil
	}

	rsi := r.value()
	defer func() {
		r.prevRSI = rsi
		r.primed = true
	}()

	if !r.primed {
		return nil
	}

	var direction models.Direction
	switch {
	case r.prevRSI <= r.oversold && rsi > r.oversold:
		direction = models.DirectionBuy
	case r.prevRSI >= r.overbought && rsi < r.overbought:
		direction = models.DirectionSell
	default:
		return nil
	}

	return []models.Signal{{
		Direction: direction,
		Symbol:    tick.Symbol,
		Price:     tick.Close,
		Timestamp: tick.Timestamp,
	}}
}

// value computes RSI over the window of period+1 closes.
func (r *RSI) value() float64 {
	prices := r.closes.prices
	var gains, losses float64
	for i := 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	avgGain := gains / float64(r.period)
	avgLoss := losses / float64(r.period)

	if avgLoss == 0 {
		return 100
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}
