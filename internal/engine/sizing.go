package engine

import (
	"math"

	apperrors "consensus-trader/internal/errors"
	"consensus-trader/internal/models"
)

// RejectReason explains why sizing produced no quantity. A zero size is a
// deliberate no-op, never an error.
type RejectReason string

const (
	RejectNone         RejectReason = ""
	RejectBadPrice     RejectReason = "non-positive price"
	RejectZeroTarget   RejectReason = "target notional below one unit"
	RejectUnaffordable RejectReason = "cash cap below one unit"
)

// SizeResult carries the computed quantity or the reason it is zero.
type SizeResult struct {
	Quantity int
	Reason   RejectReason
}

// OK reports whether a tradable quantity was produced.
func (r SizeResult) OK() bool {
	return r.Quantity > 0
}

// Sizer computes order quantities as a fixed fraction of current portfolio
// value, marked at last seen prices.
type Sizer struct {
	notionalFrac float64
}

// NewSizer creates a sizer committing the given fraction of portfolio value
// per new position.
func NewSizer(notionalFrac float64) (*Sizer, error) {
	if notionalFrac <= 0 || notionalFrac > 1 {
		return nil, apperrors.ErrInvalidFraction
	}
	return &Sizer{notionalFrac: notionalFrac}, nil
}

// Size computes the whole-unit quantity for an order at the given price.
// Buys are additionally capped by affordable cash; shorts are not, since they
// add cash. Last seen prices feeding the portfolio value may be stale for
// symbols that have not ticked recently; that staleness is accepted.
func (s *Sizer) Size(ledger *Ledger, price float64, side models.Side) SizeResult {
	if price <= 0 {
		return SizeResult{Reason: RejectBadPrice}
	}

	targetNotional := ledger.PortfolioValue() * s.notionalFrac
	qty := int(math.Floor(targetNotional / price))
	if qty <= 0 {
		return SizeResult{Reason: RejectZeroTarget}
	}

	if side == models.SideBuy {
		affordable := int(math.Floor(ledger.Cash() / price))
		if qty > affordable {
			qty = affordable
		}
		if qty <= 0 {
			return SizeResult{Reason: RejectUnaffordable}
		}
	}

	return SizeResult{Quantity: qty}
}
