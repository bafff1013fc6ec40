package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crossarb/crossarb/internal/logger"
	"github.com/crossarb/crossarb/internal/wsconn"
)

const defaultStreamURL = "wss://stream.binance.com:9443"

// bookTickerEvent is the payload of a <symbol>@bookTicker stream.
type bookTickerEvent struct {
	UpdateID int64  `json:"u"`
	Symbol   string `json:"s"`
	BidPrice string `json:"b"`
	BidQty   string `json:"B"`
	AskPrice string `json:"a"`
	AskQty   string `json:"A"`
}

type streamPrice struct {
	price decimal.Decimal
	at    time.Time
}

// stream keeps a best bid/ask mid price per symbol fed by the
// bookTicker websocket stream.
type stream struct {
	baseURL string
	logger  logger.LoggerInterface

	mu     sync.Mutex
	client *wsconn.Client
	prices map[string]streamPrice
}

func newStream(baseURL string, log logger.LoggerInterface) (*stream, error) {
	if baseURL == "" {
		baseURL = defaultStreamURL
	}
	return &stream{
		baseURL: baseURL,
		logger:  log,
		prices:  make(map[string]streamPrice),
	}, nil
}

// Connect subscribes to the bookTicker stream for symbol.
func (s *stream) Connect(ctx context.Context, symbol string) error {
	url := fmt.Sprintf("%s/ws/%s@bookTicker", s.baseURL, strings.ToLower(symbol))

	cfg := wsconn.DefaultConfig(url, "binance-bookticker")
	client, err := wsconn.New(cfg)
	if err != nil {
		return err
	}

	client.OnMessage(s.handleMessage)
	client.OnStateChange(func(state wsconn.State, err error) {
		s.logger.Info(ctx, "binance stream state change", "state", state, "error", err)
	})

	if err := client.Connect(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	s.client = client
	s.mu.Unlock()
	return nil
}

func (s *stream) handleMessage(ctx context.Context, msg []byte) {
	var ev bookTickerEvent
	if err := json.Unmarshal(msg, &ev); err != nil {
		s.logger.Debug(ctx, "unparseable stream message", "error", err)
		return
	}
	if ev.Symbol == "" {
		return
	}

	bid, err := decimal.NewFromString(ev.BidPrice)
	if err != nil {
		return
	}
	ask, err := decimal.NewFromString(ev.AskPrice)
	if err != nil {
		return
	}

	mid := bid.Add(ask).Div(decimal.NewFromInt(2))

	s.mu.Lock()
	s.prices[ev.Symbol] = streamPrice{price: mid, at: time.Now()}
	s.mu.Unlock()
}

// LastPrice returns the latest streamed mid price for symbol.
func (s *stream) LastPrice(symbol string) (decimal.Decimal, time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.prices[symbol]
	if !ok {
		return decimal.Zero, time.Time{}, false
	}
	return p.price, p.at, true
}

// Close shuts the stream connection down.
func (s *stream) Close() error {
	s.mu.Lock()
	client := s.client
	s.client = nil
	s.mu.Unlock()

	if client != nil {
		return client.Close()
	}
	return nil
}
