package engine

import (
	"consensus-trader/internal/models"
)

// consensusVotes is the fixed agreement threshold: a decision needs at least
// this many same-direction votes, regardless of how many producers are
// registered for the symbol.
const consensusVotes = 2

// reduceSignals collapses the signals one producer returned for the current
// tick to a single vote. The last signal wins; earlier same-tick signals are
// discarded on purpose.
func reduceSignals(signals []models.Signal) models.Direction {
	if len(signals) == 0 {
		return models.DirectionNone
	}
	return signals[len(signals)-1].Direction
}

// Tally counts the votes cast by a symbol's producers for one tick.
type Tally struct {
	BuyVotes  int
	SellVotes int
}

// Add records one producer's vote.
func (t *Tally) Add(d models.Direction) {
	switch d {
	case models.DirectionBuy:
		t.BuyVotes++
	case models.DirectionSell:
		t.SellVotes++
	}
}

// Empty reports whether nobody voted; no decision is attempted on an empty
// tally.
func (t Tally) Empty() bool {
	return t.BuyVotes == 0 && t.SellVotes == 0
}

// OpenLong reports buy consensus with zero opposition.
func (t Tally) OpenLong() bool {
	return t.BuyVotes >= consensusVotes && t.SellVotes == 0
}

// OpenShort reports sell consensus with zero opposition.
func (t Tally) OpenShort() bool {
	return t.SellVotes >= consensusVotes && t.BuyVotes == 0
}

// CloseLong reports sell consensus sufficient to exit a long; opposition does
// not block an exit.
func (t Tally) CloseLong() bool {
	return t.SellVotes >= consensusVotes
}

// CloseShort reports buy consensus sufficient to exit a short.
func (t Tally) CloseShort() bool {
	return t.BuyVotes >= consensusVotes
}
