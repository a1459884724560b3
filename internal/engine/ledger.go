package engine

import (
	"time"

	apperrors "consensus-trader/internal/errors"
	"consensus-trader/internal/models"
)

// Ledger owns cash, per-symbol position and entry price, last-seen
// price/timestamp, the append-only trade log, and the per-tick cash history.
// It is mutated only by Open/Close/Mark/RecordCash, driven by the engine on a
// single logical thread of control; it does no locking of its own.
type Ledger struct {
	initialCapital float64
	cash           float64

	positions     map[string]int
	entryPrice    map[string]float64
	lastPrice     map[string]float64
	lastTimestamp map[string]time.Time

	trades  []models.Trade
	history []models.CashPoint
}

// Snapshot is a point-in-time copy of the ledger state.
type Snapshot struct {
	Cash          float64
	Positions     map[string]int
	EntryPrice    map[string]float64
	LastPrice     map[string]float64
	LastTimestamp map[string]time.Time
	Trades        []models.Trade
	History       []models.CashPoint
}

// NewLedger creates a ledger holding the given starting cash.
func NewLedger(initialCapital float64) (*Ledger, error) {
	if initialCapital <= 0 {
		return nil, apperrors.ErrInvalidCapital
	}
	return &Ledger{
		initialCapital: initialCapital,
		cash:           initialCapital,
		positions:      make(map[string]int),
		entryPrice:     make(map[string]float64),
		lastPrice:      make(map[string]float64),
		lastTimestamp:  make(map[string]time.Time),
	}, nil
}

// Mark updates the last-seen price and timestamp for a symbol. It is called
// on every tick, decision or not, so Finalize always has a close price.
func (l *Ledger) Mark(symbol string, price float64, ts time.Time) {
	if symbol == "" || price <= 0 {
		return
	}
	l.lastPrice[symbol] = price
	l.lastTimestamp[symbol] = ts
}

// Open opens or extends a position. Validation is atomic: a rejected order
// leaves the ledger untouched.
func (l *Ledger) Open(symbol string, side models.Side, quantity int, price float64, ts time.Time) error {
	if err := validateOrder(symbol, side, quantity, price); err != nil {
		return err
	}
	if side == models.SideBuy && float64(quantity)*price > l.cash {
		return apperrors.NewValidationError("quantity", quantity, "insufficient cash for buy", apperrors.ErrInvalidQuantity)
	}

	if side == models.SideBuy {
		l.cash -= float64(quantity) * price
		l.positions[symbol] += quantity
	} else {
		// Sell to open: shorts add cash.
		l.cash += float64(quantity) * price
		l.positions[symbol] -= quantity
	}
	l.entryPrice[symbol] = price

	trade := models.Trade{
		Symbol:    symbol,
		Timestamp: ts,
		Side:      side,
		Quantity:  quantity,
		Price:     price,
	}
	l.trades = append(l.trades, trade)
	return nil
}

// Close flattens whatever position the symbol holds, realizing PnL in the
// closing trade. Closing a flat symbol is a no-op.
func (l *Ledger) Close(symbol string, price float64, ts time.Time) (models.Trade, bool, error) {
	if symbol == "" {
		return models.Trade{}, false, apperrors.NewValidationError("symbol", symbol, "symbol cannot be empty", apperrors.ErrEmptySymbol)
	}
	if price <= 0 {
		return models.Trade{}, false, apperrors.NewValidationError("price", price, "price must be positive", apperrors.ErrInvalidPrice)
	}

	qty := l.positions[symbol]
	if qty == 0 {
		return models.Trade{}, false, nil
	}

	// The closing trade takes the opposite side of the one that opened the
	// position.
	openedWith := models.SideBuy
	if qty < 0 {
		openedWith = models.SideSell
	}
	side := openedWith.Opposite()

	var pnl float64
	entry := l.entryPrice[symbol]

	if qty > 0 {
		l.cash += float64(qty) * price
		pnl = (price - entry) * float64(qty)
	} else {
		buyQty := -qty
		l.cash -= float64(buyQty) * price
		pnl = (entry - price) * float64(buyQty)
		qty = buyQty
	}

	l.positions[symbol] = 0
	delete(l.entryPrice, symbol)

	trade := models.Trade{
		Symbol:      symbol,
		Timestamp:   ts,
		Side:        side,
		Quantity:    qty,
		Price:       price,
		RealizedPnL: pnl,
	}
	l.trades = append(l.trades, trade)
	return trade, true, nil
}

// RecordCash appends one (timestamp, cash) sample to the cash history.
func (l *Ledger) RecordCash(ts time.Time) {
	l.history = append(l.history, models.CashPoint{Timestamp: ts, Cash: l.cash})
}

// Cash returns current cash.
func (l *Ledger) Cash() float64 {
	return l.cash
}

// InitialCapital returns the starting cash.
func (l *Ledger) InitialCapital() float64 {
	return l.initialCapital
}

// Position returns the signed position for a symbol (0 when flat).
func (l *Ledger) Position(symbol string) int {
	return l.positions[symbol]
}

// State maps a symbol's position onto the decision machine state.
func (l *Ledger) State(symbol string) models.PositionState {
	switch qty := l.positions[symbol]; {
	case qty > 0:
		return models.PositionLong
	case qty < 0:
		return models.PositionShort
	default:
		return models.PositionFlat
	}
}

// EntryPrice returns the entry price for a symbol's open position.
func (l *Ledger) EntryPrice(symbol string) (float64, bool) {
	price, ok := l.entryPrice[symbol]
	return price, ok
}

// LastSeen returns the last marked price and timestamp for a symbol.
func (l *Ledger) LastSeen(symbol string) (float64, time.Time, bool) {
	price, ok := l.lastPrice[symbol]
	if !ok {
		return 0, time.Time{}, false
	}
	return price, l.lastTimestamp[symbol], true
}

// OpenSymbols returns the symbols with a nonzero position.
func (l *Ledger) OpenSymbols() []string {
	var symbols []string
	for symbol, qty := range l.positions {
		if qty != 0 {
			symbols = append(symbols, symbol)
		}
	}
	return symbols
}

// PortfolioValue marks open positions to their last seen price (entry price
// when a symbol was never marked) and adds cash. Staleness across symbols is
// accepted, not corrected.
func (l *Ledger) PortfolioValue() float64 {
	value := l.cash
	for symbol, qty := range l.positions {
		if qty == 0 {
			continue
		}
		price, ok := l.lastPrice[symbol]
		if !ok {
			price = l.entryPrice[symbol]
		}
		value += float64(qty) * price
	}
	return value
}

// RealizedPnL sums realized PnL over the trade log.
func (l *Ledger) RealizedPnL() float64 {
	var total float64
	for _, trade := range l.trades {
		total += trade.RealizedPnL
	}
	return total
}

// UnrealizedPnL marks open positions against their entry prices.
func (l *Ledger) UnrealizedPnL() float64 {
	var total float64
	for symbol, qty := range l.positions {
		if qty == 0 {
			continue
		}
		price, ok := l.lastPrice[symbol]
		if !ok {
			continue
		}
		total += (price - l.entryPrice[symbol]) * float64(qty)
	}
	return total
}

// TradeCount returns the length of the trade log.
func (l *Ledger) TradeCount() int {
	return len(l.trades)
}

// Trades returns a copy of the append-only trade log.
func (l *Ledger) Trades() []models.Trade {
	out := make([]models.Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

// History returns a copy of the cash history samples.
func (l *Ledger) History() []models.CashPoint {
	out := make([]models.CashPoint, len(l.history))
	copy(out, l.history)
	return out
}

// Snapshot copies the full ledger state.
func (l *Ledger) Snapshot() Snapshot {
	snap := Snapshot{
		Cash:          l.cash,
		Positions:     make(map[string]int, len(l.positions)),
		EntryPrice:    make(map[string]float64, len(l.entryPrice)),
		LastPrice:     make(map[string]float64, len(l.lastPrice)),
		LastTimestamp: make(map[string]time.Time, len(l.lastTimestamp)),
		Trades:        l.Trades(),
		History:       l.History(),
	}
	for k, v := range l.positions {
		snap.Positions[k] = v
	}
	for k, v := range l.entryPrice {
		snap.EntryPrice[k] = v
	}
	for k, v := range l.lastPrice {
		snap.LastPrice[k] = v
	}
	for k, v := range l.lastTimestamp {
		snap.LastTimestamp[k] = v
	}
	return snap
}

// validateOrder rejects structurally invalid orders before any mutation.
func validateOrder(symbol string, side models.Side, quantity int, price float64) error {
	if symbol == "" {
		return apperrors.NewValidationError("symbol", symbol, "symbol cannot be empty", apperrors.ErrEmptySymbol)
	}
	if !side.Valid() {
		return apperrors.NewValidationError("side", side, "side must be BUY or SELL", apperrors.ErrInvalidSide)
	}
	if quantity <= 0 {
		return apperrors.NewValidationError("quantity", quantity, "quantity must be positive", apperrors.ErrInvalidQuantity)
	}
	if price <= 0 {
		return apperrors.NewValidationError("price", price, "price must be positive", apperrors.ErrInvalidPrice)
	}
	return nil
}
