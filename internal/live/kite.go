package live

import (
	"context"
	"sync"
	"time"

	kitemodels "github.com/zerodha/gokiteconnect/v4/models"
	kiteticker "github.com/zerodha/gokiteconnect/v4/ticker"

	"github.com/rs/zerolog"

	"consensus-trader/internal/errors"
	"consensus-trader/internal/models"
)

// KiteFeed streams equity ticks from the Kite Connect websocket into a
// dispatcher.
type KiteFeed struct {
	apiKey      string
	accessToken string
	ticker      *kiteticker.Ticker
	dispatcher  *Dispatcher
	log         zerolog.Logger

	tokens  map[string]uint32
	symbols map[uint32]string

	connected bool
	mu        sync.RWMutex
}

// NewKiteFeed creates a feed for the given symbol to instrument token map.
func NewKiteFeed(apiKey, accessToken string, tokens map[string]uint32, dispatcher *Dispatcher, log zerolog.Logger) *KiteFeed {
	symbols := make(map[uint32]string, len(tokens))
	for symbol, token := range tokens {
		symbols[token] = symbol
	}
	return &KiteFeed{
		apiKey:      apiKey,
		accessToken: accessToken,
		dispatcher:  dispatcher,
		log:         log.With().Str("feed", "kite").Logger(),
		tokens:      tokens,
		symbols:     symbols,
	}
}

// Start connects the websocket and subscribes all registered tokens. It
// returns once the first connection is established or ctx expires.
func (f *KiteFeed) Start(ctx context.Context) error {
	if len(f.tokens) == 0 {
		return errors.NewFeedError("kite", "", "no instrument tokens registered", nil)
	}

	f.ticker = kiteticker.New(f.apiKey, f.accessToken)
	f.ticker.SetAutoReconnect(true)
	f.ticker.SetReconnectMaxRetries(5)

	connectedCh := make(chan struct{})

	f.ticker.OnConnect(func() {
		f.mu.Lock()
		f.connected = true
		f.mu.Unlock()

		select {
		case connectedCh <- struct{}{}:
		default:
		}

		f.subscribe()
	})

	f.ticker.OnClose(func(code int, reason string) {
		f.mu.Lock()
		f.connected = false
		f.mu.Unlock()
		f.log.Warn().Int("code", code).Str("reason", reason).Msg("Websocket closed")
	})

	f.ticker.OnError(func(err error) {
		f.log.Error().Err(err).Msg("Websocket error")
	})

	f.ticker.OnReconnect(func(attempt int, delay time.Duration) {
		f.log.Info().Int("attempt", attempt).Dur("delay", delay).Msg("Reconnecting")
	})

	f.ticker.OnTick(func(tick kitemodels.Tick) {
		f.publish(tick)
	})

	go f.ticker.Serve()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-connectedCh:
		return nil
	case <-time.After(30 * time.Second):
		if !f.IsConnected() {
			return errors.Wrap(errors.ErrConnectionFailed, "kite websocket")
		}
		return nil
	}
}

// Stop closes the websocket connection.
func (f *KiteFeed) Stop() {
	if f.ticker != nil {
		f.ticker.Close()
	}
	f.mu.Lock()
	f.connected = false
	f.mu.Unlock()
}

// IsConnected returns whether the feed is connected.
func (f *KiteFeed) IsConnected() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.connected
}

func (f *KiteFeed) subscribe() {
	tokens := make([]uint32, 0, len(f.tokens))
	for _, token := range f.tokens {
		tokens = append(tokens, token)
	}

	if err := f.ticker.Subscribe(tokens); err != nil {
		f.log.Error().Err(err).Int("tokens", len(tokens)).Msg("Failed to subscribe")
		return
	}
	if err := f.ticker.SetMode(kiteticker.ModeQuote, tokens); err != nil {
		f.log.Error().Err(err).Msg("Failed to set quote mode")
		return
	}
	f.log.Info().Int("tokens", len(tokens)).Msg("Subscribed")
}

func (f *KiteFeed) publish(tick kitemodels.Tick) {
	symbol, ok := f.symbols[tick.InstrumentToken]
	if !ok {
		return
	}
	if tick.LastPrice <= 0 {
		return
	}

	ts := tick.Timestamp.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	err := f.dispatcher.TryPublish(models.Tick{
		Timestamp: ts,
		Symbol:    symbol,
		Open:      tick.OHLC.Open,
		High:      tick.OHLC.High,
		Low:       tick.OHLC.Low,
		Close:     tick.LastPrice,
		Volume:    int64(tick.VolumeTraded),
	})
	if err != nil {
		f.log.Debug().Err(err).Str("symbol", symbol).Msg("Tick not queued")
	}
}
