package strategy

import (
	"consensus-trader/internal/models"
)

// ZScore is a z-score-mean-reversion producer. It votes buy when the price
// falls more than threshold standard deviations below the rolling mean and
// sell when it rises as far above, once per excursion.
type ZScore struct {
	period    int
	threshold float64

	closes *window
	zone   bandZone
}

// NewZScore creates a z-score-mean-reversion producer.
func NewZScore(period int, threshold float64) *ZScore {
	if period <= 0 {
		period = 60
	}
	if threshold <= 0 {
		threshold = 2.0
	}
	return &ZScore{
		period:    period,
		threshold: threshold,
		closes:    newWindow(period),
	}
}

// Name returns the producer identifier for logging.
func (z *ZScore) Name() string { return "zscore" }

// GenerateSignals evaluates one tick.
func (z *ZScore) GenerateSignals(tick models.Tick) []models.Signal {
	z.closes.push(tick.Close)
	if !z.closes.full() {
		return nil
	}

	dev := z.closes.stddev()
	if dev == 0 {
		return nil
	}
	score := (tick.Close - z.closes.mean()) / dev

	zone := zoneInside
	switch {
	case score <= -z.threshold:
		zone = zoneBelow
	case score >= z.threshold:
		zone = zoneAbove
	}

	prev := z.zone
	z.zone = zone
	if zone == prev || zone == zoneInside {
		return nil
	}

	direction := models.DirectionBuy
	if zone == zoneAbove {
		direction = models.DirectionSell
	}

	return []models.Signal{{
		Direction: direction,
		Symbol:    tick.Symbol,
		Price:     tick.Close,
		Timestamp: tick.Timestamp,
	}}
}
