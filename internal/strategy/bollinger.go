package strategy

import (
	"consensus-trader/internal/models"
)

// bandZone marks which side of the bands the last price sat on.
type bandZone int

const (
	zoneInside bandZone = iota
	zoneBelow
	zoneAbove
)

// Bollinger is a band-mean-reversion producer. It votes buy when price drops
// below the lower band and sell when it rises above the upper band, once per
// excursion.
type Bollinger struct {
	period int
	std    float64

	closes *window
	zone   bandZone
}

// NewBollinger creates a band-mean-reversion producer.
func NewBollinger(period int, std float64) *Bollinger {
	if period <= 0 {
		period = 20
	}
	if std <= 0 {
		std = 2.0
	}
	return &Bollinger{
		period: period,
		std:    std,
		closes: newWindow(period),
	}
}

// Name returns the producer identifier for logging.
func (b *Bollinger) Name() string { return "bollinger" }

// GenerateSignals evaluates one tick.
func (b *Bollinger) GenerateSignals(tick models.Tick) []models.Signal {
	b.closes.push(tick.Close)
	if !b.closes.full() {
		return nil
	}

	mean := b.closes.mean()
	dev := b.closes.stddev()
	upper := mean + b.std*dev
	lower := mean - b.std*dev

	zone := zoneInside
	switch {
	case tick.Close < lower:
		zone = zoneBelow
	case tick.Close > upper:
		zone = zoneAbove
	}

	prev := b.zone
	b.zone = zone
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
