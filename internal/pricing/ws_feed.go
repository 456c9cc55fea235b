package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// FeedConfig configures TickerFeed behavior.
type FeedConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultFeedConfig returns default feed configuration.
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// Tick is one live price update.
type Tick struct {
	Currency string
	Price    float64
	Time     time.Time
}

// TickerFeed subscribes to a ticker channel over WebSocket and republishes
// price updates. It reconnects with exponential backoff and resubscribes
// after a drop; updates are never dropped, backpressure blocks the reader.
type TickerFeed struct {
	endpoint string
	product  string // e.g. "BTC-USD"
	config   FeedConfig

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	ticks chan Tick
	done  chan struct{}
	wg    sync.WaitGroup

	reconnecting atomic.Bool
}

// NewTickerFeed connects to the endpoint and subscribes to the product's
// ticker channel. currency is the quote side of the product ("USD" makes
// the product "BTC-USD").
func NewTickerFeed(ctx context.Context, endpoint, currency string, config *FeedConfig) (*TickerFeed, error) {
	cfg := DefaultFeedConfig()
	if config != nil {
		cfg = *config
	}

	f := &TickerFeed{
		endpoint: endpoint,
		product:  "BTC-" + currency,
		config:   cfg,
		ticks:    make(chan Tick, 1024),
		done:     make(chan struct{}),
	}

	if err := f.connect(ctx); err != nil {
		return nil, err
	}
	if err := f.subscribe(); err != nil {
		f.closeConn()
		return nil, err
	}

	f.wg.Add(1)
	go f.readLoop()

	f.wg.Add(1)
	go f.pingLoop()

	return f, nil
}

// Ticks returns the live update channel. It closes when the feed closes.
func (f *TickerFeed) Ticks() <-chan Tick {
	return f.ticks
}

// Close shuts the feed down and closes the tick channel.
func (f *TickerFeed) Close() error {
	if f.closed.Swap(true) {
		return nil // Already closed
	}

	close(f.done)

	f.connMu.Lock()
	if f.conn != nil {
		f.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		f.conn.Close()
	}
	f.connMu.Unlock()

	f.wg.Wait()
	close(f.ticks)
	return nil
}

// connect establishes the WebSocket connection.
func (f *TickerFeed) connect(ctx context.Context) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, f.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	f.conn = conn
	return nil
}

// subscribeMessage is the wire form of a ticker subscription.
type subscribeMessage struct {
	Type       string   `json:"type"`
	ProductIDs []string `json:"product_ids"`
	Channels   []string `json:"channels"`
}

// tickerMessage is the wire form of one ticker update.
type tickerMessage struct {
	Type      string `json:"type"`
	ProductID string `json:"product_id"`
	Price     string `json:"price"`
	Time      string `json:"time"`
}

// subscribe sends the ticker subscription for the configured product.
func (f *TickerFeed) subscribe() error {
	f.connMu.Lock()
	defer f.connMu.Unlock()

	if f.conn == nil {
		return fmt.Errorf("not connected")
	}

	msg := subscribeMessage{
		Type:       "subscribe",
		ProductIDs: []string{f.product},
		Channels:   []string{"ticker"},
	}

	f.conn.SetWriteDeadline(time.Now().Add(f.config.WriteTimeout))
	if err := f.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}
	return nil
}

// readLoop reads ticker messages and republishes them as ticks.
func (f *TickerFeed) readLoop() {
	defer f.wg.Done()

	reconnectDelay := f.config.ReconnectDelay

	for !f.closed.Load() {
		f.connMu.Lock()
		conn := f.conn
		f.connMu.Unlock()

		if conn == nil {
			select {
			case <-f.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(f.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if f.closed.Load() {
				return
			}

			if !f.reconnecting.Swap(true) {
				go f.reconnect(reconnectDelay)
			}

			reconnectDelay *= 2
			if reconnectDelay > f.config.MaxReconnectDelay {
				reconnectDelay = f.config.MaxReconnectDelay
			}

			select {
			case <-f.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		// Reset delay on successful read
		reconnectDelay = f.config.ReconnectDelay

		f.handleMessage(message)
	}
}

// handleMessage parses one frame and forwards a valid ticker update.
func (f *TickerFeed) handleMessage(message []byte) {
	var msg tickerMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return
	}
	if msg.Type != "ticker" || msg.ProductID != f.product {
		return
	}

	price, err := strconv.ParseFloat(msg.Price, 64)
	if err != nil || price <= 0 {
		return
	}

	tick := Tick{
		Currency: currencyOfProduct(msg.ProductID),
		Price:    price,
		Time:     time.Now().UTC(),
	}
	if t, err := time.Parse(time.RFC3339Nano, msg.Time); err == nil {
		tick.Time = t
	}

	select {
	case f.ticks <- tick:
	case <-f.done:
	}
}

// currencyOfProduct extracts the quote currency from "BTC-USD".
func currencyOfProduct(product string) string {
	for i := len(product) - 1; i >= 0; i-- {
		if product[i] == '-' {
			return product[i+1:]
		}
	}
	return product
}

// reconnect re-establishes the connection and resubscribes.
func (f *TickerFeed) reconnect(delay time.Duration) {
	defer f.reconnecting.Store(false)

	if f.closed.Load() {
		return
	}

	select {
	case <-f.done:
		return
	case <-time.After(delay):
	}

	f.closeConn()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := f.connect(ctx); err != nil {
		// Reconnect failed, will retry on next read error
		return
	}
	if err := f.subscribe(); err != nil {
		f.closeConn()
	}
}

func (f *TickerFeed) closeConn() {
	f.connMu.Lock()
	if f.conn != nil {
		f.conn.Close()
		f.conn = nil
	}
	f.connMu.Unlock()
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (f *TickerFeed) pingLoop() {
	defer f.wg.Done()

	ticker := time.NewTicker(f.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.done:
			return
		case <-ticker.C:
			f.connMu.Lock()
			if f.conn != nil {
				f.conn.SetWriteDeadline(time.Now().Add(f.config.WriteTimeout))
				if err := f.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Connection might be dead, reader will handle reconnect
				}
			}
			f.connMu.Unlock()
		}
	}
}
