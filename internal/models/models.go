// Package models provides domain models for the trading application.
package models

import (
	"time"
)

// Direction is the directional view attributed to a signal or a vote.
type Direction int

const (
	DirectionNone Direction = 0
	DirectionBuy  Direction = 1
	DirectionSell Direction = -1
)

// Side represents the side of an executed trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite returns the closing side for a position opened on s.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Valid reports whether s is a known order side.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// PositionState is the per-symbol state of the decision machine.
type PositionState int

const (
	PositionFlat PositionState = iota
	PositionLong
	PositionShort
)

func (p PositionState) String() string {
	switch p {
	case PositionLong:
		return "LONG"
	case PositionShort:
		return "SHORT"
	default:
		return "FLAT"
	}
}

// Tick represents one OHLCV observation for a symbol at a timestamp.
type Tick struct {
	Timestamp time.Time
	Symbol    string
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// Price returns the price the engine trades and marks at.
func (t Tick) Price() float64 {
	return t.Close
}

// Signal is a directional recommendation emitted by one producer for one tick.
// Signals are ephemeral: they live only for the tick that produced them.
type Signal struct {
	Direction Direction
	Symbol    string
	Price     float64
	Timestamp time.Time
}

// Trade is one append-only trade log entry. RealizedPnL is zero unless the
// trade closes a position.
type Trade struct {
	Symbol      string    `csv:"symbol"`
	Timestamp   time.Time `csv:"timestamp"`
	Side        Side      `csv:"side"`
	Quantity    int       `csv:"quantity"`
	Price       float64   `csv:"price"`
	RealizedPnL float64   `csv:"realized_pnl"`
}

// CashPoint is one (timestamp, cash) sample, taken once per processed tick.
type CashPoint struct {
	Timestamp time.Time `csv:"timestamp"`
	Cash      float64   `csv:"cash"`
}

// Summary is the post-finalize run record.
type Summary struct {
	InitialCapital float64
	FinalCash      float64
	PortfolioValue float64
	RealizedPnL    float64
	TradeCount     int
}
