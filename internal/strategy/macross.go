package strategy

import (
	"consensus-trader/internal/models"
)

// MACross is a moving-average-crossover producer. Running sums keep both
// averages current in O(1) per tick; a signal is emitted only when the short
// average crosses the long one.
type MACross struct {
	shortWindow int
	longWindow  int

	prices   []float64
	shortAvg float64
	longAvg  float64

	wasHigher bool
	primed    bool
}

// NewMACross creates a moving-average-crossover producer.
func NewMACross(shortWindow, longWindow int) *MACross {
	if shortWindow <= 0 {
		shortWindow = 5
	}
	if longWindow <= shortWindow {
		longWindow = shortWindow * 4
	}
	return &MACross{
		shortWindow: shortWindow,
		longWindow:  longWindow,
		prices:      make([]float64, 0, longWindow+1),
	}
}

// Name returns the producer identifier for logging.
func (m *MACross) Name() string { return "macross" }

// GenerateSignals evaluates one tick.
func (m *MACross) GenerateSignals(tick models.Tick) []models.Signal {
	m.prices = append(m.prices, tick.Close)
	m.shortAvg += tick.Close / float64(m.shortWindow)
	m.longAvg += tick.Close / float64(m.longWindow)

	// Trim to the long window, adjusting both running averages.
	if len(m.prices) > m.longWindow {
		oldest := m.prices[0]
		m.prices = m.prices[1:]
		m.longAvg -= oldest / float64(m.longWindow)
	}
	if len(m.prices) > m.shortWindow {
		shortOldest := m.prices[len(m.prices)-m.shortWindow-1]
		m.shortAvg -= shortOldest / float64(m.shortWindow)
	}

	if len(m.prices) < m.longWindow {
		return nil
	}

	isHigher := m.shortAvg > m.longAvg
	defer func() {
		m.wasHigher = isHigher
		m.primed = true
	}()

	if !m.primed || isHigher == m.wasHigher {
		return nil
	}

	direction := models.DirectionSell
	if isHigher {
		direction = models.DirectionBuy
	}

	return []models.Signal{{
		Direction: direction,
		Symbol:    tick.Symbol,
		Price:     tick.Close,
		Timestamp: tick.Timestamp,
	}}
}
