// Package engine implements the tick-driven decision engine: vote
// aggregation, the per-symbol position state machine, position sizing, and
// the portfolio ledger. Processing is strictly sequential; given the same
// tick sequence and producer states the run is reproducible bit for bit.
package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	apperrors "consensus-trader/internal/errors"
	"consensus-trader/internal/logging"
	"consensus-trader/internal/metrics"
	"consensus-trader/internal/models"
	"consensus-trader/internal/strategy"
)

// Config holds engine construction parameters.
type Config struct {
	InitialCapital float64
	NotionalFrac   float64
}

// Engine routes each tick to the producers registered for its symbol,
// reduces their signals to votes, applies the consensus state machine, and
// drives the ledger. One decision at most is applied per symbol per tick.
type Engine struct {
	producers map[string][]strategy.SignalProducer
	ledger    *Ledger
	sizer     *Sizer
	log       zerolog.Logger
	finalized bool
}

// New creates an engine over the given symbol -> producer list registry.
func New(producers map[string][]strategy.SignalProducer, cfg Config, log zerolog.Logger) (*Engine, error) {
	if len(producers) == 0 {
		return nil, apperrors.ErrNoProducers
	}
	ledger, err := NewLedger(cfg.InitialCapital)
	if err != nil {
		return nil, err
	}
	sizer, err := NewSizer(cfg.NotionalFrac)
	if err != nil {
		return nil, err
	}
	return &Engine{
		producers: producers,
		ledger:    ledger,
		sizer:     sizer,
		log:       log,
	}, nil
}

// Ledger exposes the engine's ledger for inspection and reporting.
func (e *Engine) Ledger() *Ledger {
	return e.ledger
}

// OnTick processes one tick to completion before the caller may deliver the
// next. The price is marked first so Finalize can close even when the symbol
// has no producers or the tick carries no decision.
func (e *Engine) OnTick(tick models.Tick) {
	price := tick.Price()
	e.ledger.Mark(tick.Symbol, price, tick.Timestamp)
	defer e.ledger.RecordCash(tick.Timestamp)

	producers := e.producers[tick.Symbol]
	if len(producers) == 0 {
		return
	}

	var tally Tally
	for _, producer := range producers {
		tally.Add(e.vote(producer, tick))
	}
	if tally.Empty() {
		return
	}

	switch e.ledger.State(tick.Symbol) {
	case models.PositionFlat:
		if tally.OpenLong() {
			e.open(tick, models.SideBuy, tally)
		} else if tally.OpenShort() {
			e.open(tick, models.SideSell, tally)
		}
	case models.PositionLong:
		if tally.CloseLong() {
			e.close(tick, tally)
		}
	case models.PositionShort:
		if tally.CloseShort() {
			e.close(tick, tally)
		}
	}
}

// vote asks one producer for its signals and reduces them, last signal wins.
// A producer fault is contained: it costs that producer its vote for this
// tick and nothing else.
func (e *Engine) vote(producer strategy.SignalProducer, tick models.Tick) (direction models.Direction) {
	defer func() {
		if r := recover(); r != nil {
			err := apperrors.NewProducerError(producer.Name(), tick.Symbol, fmt.Errorf("%v", r))
			e.log.Warn().Err(err).Str("symbol", tick.Symbol).Msg("producer fault, counting as no vote")
			metrics.ProducerFaults.WithLabelValues(producer.Name()).Inc()
			direction = models.DirectionNone
		}
	}()
	return reduceSignals(producer.GenerateSignals(tick))
}

func (e *Engine) open(tick models.Tick, side models.Side, tally Tally) {
	price := tick.Price()
	result := e.sizer.Size(e.ledger, price, side)
	if !result.OK() {
		e.log.Debug().
			Str("symbol", tick.Symbol).
			Str("side", string(side)).
			Str("reason", string(result.Reason)).
			Msg("sizing produced no quantity, skipping open")
		return
	}

	if err := e.ledger.Open(tick.Symbol, side, result.Quantity, price, tick.Timestamp); err != nil {
		e.log.Error().Err(err).Str("symbol", tick.Symbol).Msg("open rejected")
		return
	}

	logging.LogDecision(e.log, tick.Symbol, "OPEN "+string(side), tally.BuyVotes, tally.SellVotes, price)
	logging.LogTrade(e.log, models.Trade{
		Symbol:    tick.Symbol,
		Timestamp: tick.Timestamp,
		Side:      side,
		Quantity:  result.Quantity,
		Price:     price,
	})
}

func (e *Engine) close(tick models.Tick, tally Tally) {
	trade, closed, err := e.ledger.Close(tick.Symbol, tick.Price(), tick.Timestamp)
	if err != nil {
		e.log.Error().Err(err).Str("symbol", tick.Symbol).Msg("close rejected")
		return
	}
	if !closed {
		return
	}
	logging.LogDecision(e.log, tick.Symbol, "CLOSE", tally.BuyVotes, tally.SellVotes, tick.Price())
	logging.LogTrade(e.log, trade)
}

// Finalize force-closes every open position at its symbol's last seen price
// and timestamp. Symbols that never recorded a price are skipped. Safe to
// call once the stream is exhausted; repeated calls are no-ops.
func (e *Engine) Finalize() {
	if e.finalized {
		return
	}
	e.finalized = true

	for _, symbol := range e.ledger.OpenSymbols() {
		price, ts, ok := e.ledger.LastSeen(symbol)
		if !ok {
			continue
		}
		trade, closed, err := e.ledger.Close(symbol, price, ts)
		if err != nil {
			e.log.Error().Err(err).Str("symbol", symbol).Msg("finalize close rejected")
			continue
		}
		if closed {
			e.log.Info().Str("symbol", symbol).Msg("force-closed at stream end")
			logging.LogTrade(e.log, trade)
		}
	}
}

// Run drains a tick channel sequentially into OnTick, then finalizes. It
// returns the context error when cancelled early, nil on normal exhaustion.
func (e *Engine) Run(ctx context.Context, ticks <-chan models.Tick) error {
	for {
		select {
		case <-ctx.Done():
			e.Finalize()
			return ctx.Err()
		case tick, ok := <-ticks:
			if !ok {
				e.Finalize()
				return nil
			}
			e.OnTick(tick)
		}
	}
}

// Summary reports the run after Finalize.
func (e *Engine) Summary() models.Summary {
	return models.Summary{
		InitialCapital: e.ledger.InitialCapital(),
		FinalCash:      e.ledger.Cash(),
		PortfolioValue: e.ledger.PortfolioValue(),
		RealizedPnL:    e.ledger.RealizedPnL(),
		TradeCount:     e.ledger.TradeCount(),
	}
}
