package live

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"consensus-trader/internal/errors"
	"consensus-trader/internal/models"
)

const binanceStreamURL = "wss://stream.binance.com:9443/stream?streams="

type binanceEnvelope struct {
	Stream string       `json:"stream"`
	Data   binanceTrade `json:"data"`
}

type binanceTrade struct {
	Price     string `json:"p"`
	Quantity  string `json:"q"`
	TradeTime int64  `json:"T"`
}

// BinanceFeed streams crypto trades from Binance public websockets into a
// dispatcher.
type BinanceFeed struct {
	streams    map[string]string // stream name -> configured symbol
	dispatcher *Dispatcher
	log        zerolog.Logger
}

// NewBinanceFeed creates a feed for the given crypto symbols. A pair like
// "BTC/USD" maps to the "btcusdt" trade stream.
func NewBinanceFeed(symbols []string, dispatcher *Dispatcher, log zerolog.Logger) *BinanceFeed {
	streams := make(map[string]string, len(symbols))
	for _, symbol := range symbols {
		streams[streamName(symbol)] = symbol
	}
	return &BinanceFeed{
		streams:    streams,
		dispatcher: dispatcher,
		log:        log.With().Str("feed", "binance").Logger(),
	}
}

func streamName(symbol string) string {
	name := strings.ToLower(strings.ReplaceAll(symbol, "/", ""))
	if strings.HasSuffix(name, "usd") {
		name += "t"
	}
	return name + "@trade"
}

// Run consumes the combined trade stream until ctx is cancelled,
// reconnecting with backoff on failures.
func (f *BinanceFeed) Run(ctx context.Context) error {
	if len(f.streams) == 0 {
		return errors.NewFeedError("binance", "", "no symbols configured", nil)
	}

	names := make([]string, 0, len(f.streams))
	for name := range f.streams {
		names = append(names, name)
	}
	url := binanceStreamURL + strings.Join(names, "/")

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := f.consume(ctx, url); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.log.Warn().Err(err).Msg("Feed disconnected, retrying")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
			continue
		}
		return nil
	}
}

func (f *BinanceFeed) consume(ctx context.Context, url string) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return errors.Wrap(errors.ErrConnectionFailed, err.Error())
	}
	defer conn.Close()

	f.log.Info().Int("streams", len(f.streams)).Msg("Connected")

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		return nil
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()

	// Unblock the blocking read as soon as the context is cancelled.
	go func() {
		<-pingCtx.Done()
		conn.Close()
	}()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					f.log.Warn().Err(err).Msg("Ping failed")
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		f.handleMessage(message)
	}
}

func (f *BinanceFeed) handleMessage(message []byte) {
	var env binanceEnvelope
	if err := json.Unmarshal(message, &env); err != nil {
		f.log.Warn().Err(err).Msg("Failed to decode message")
		return
	}

	symbol, ok := f.streams[env.Stream]
	if !ok {
		return
	}
	price, err := strconv.ParseFloat(env.Data.Price, 64)
	if err != nil || price <= 0 {
		f.log.Warn().Str("price", env.Data.Price).Msg("Invalid trade price")
		return
	}
	qty, err := strconv.ParseFloat(env.Data.Quantity, 64)
	if err != nil {
		qty = 0
	}

	err = f.dispatcher.TryPublish(models.Tick{
		Timestamp: time.UnixMilli(env.Data.TradeTime),
		Symbol:    symbol,
		Open:      price,
		High:      price,
		Low:       price,
		Close:     price,
		Volume:    int64(qty),
	})
	if err != nil {
		f.log.Debug().Err(err).Str("symbol", symbol).Msg("Tick not queued")
	}
}
