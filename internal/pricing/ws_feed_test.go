package pricing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func TestTickerFeed_ReceivesTicks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer c.Close()

		// Read subscribe request
		_, msg, err := c.ReadMessage()
		if err != nil {
			return
		}

		var sub subscribeMessage
		if err := json.Unmarshal(msg, &sub); err != nil {
			t.Errorf("unmarshal subscribe: %v", err)
			return
		}
		if sub.Type != "subscribe" || len(sub.ProductIDs) != 1 || sub.ProductIDs[0] != "BTC-USD" {
			t.Errorf("unexpected subscribe message: %+v", sub)
		}

		// A frame of another type must be ignored by the feed.
		c.WriteJSON(map[string]string{"type": "subscriptions"})

		c.WriteJSON(tickerMessage{
			Type:      "ticker",
			ProductID: "BTC-USD",
			Price:     "43250.12",
			Time:      "2024-06-01T12:00:00Z",
		})

		// Keep connection open
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	feed, err := NewTickerFeed(context.Background(), wsURL, "USD", nil)
	if err != nil {
		t.Fatalf("NewTickerFeed: %v", err)
	}
	defer feed.Close()

	select {
	case tick := <-feed.Ticks():
		if tick.Price != 43250.12 {
			t.Errorf("Price = %v, want 43250.12", tick.Price)
		}
		if tick.Currency != "USD" {
			t.Errorf("Currency = %q, want USD", tick.Currency)
		}
		want := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		if !tick.Time.Equal(want) {
			t.Errorf("Time = %v, want %v", tick.Time, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for tick")
	}
}

func TestTickerFeed_IgnoresMalformedPrices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()

		if _, _, err := c.ReadMessage(); err != nil {
			return
		}

		c.WriteJSON(tickerMessage{Type: "ticker", ProductID: "BTC-USD", Price: "free"})
		c.WriteJSON(tickerMessage{Type: "ticker", ProductID: "BTC-USD", Price: "-5"})
		c.WriteJSON(tickerMessage{Type: "ticker", ProductID: "BTC-EUR", Price: "40000"})
		c.WriteJSON(tickerMessage{Type: "ticker", ProductID: "BTC-USD", Price: "50000"})

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	feed, err := NewTickerFeed(context.Background(), wsURL, "USD", nil)
	if err != nil {
		t.Fatalf("NewTickerFeed: %v", err)
	}
	defer feed.Close()

	select {
	case tick := <-feed.Ticks():
		// Only the last, valid BTC-USD update comes through.
		if tick.Price != 50000 {
			t.Errorf("Price = %v, want 50000", tick.Price)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for tick")
	}
}

func TestTickerFeed_CloseIsIdempotent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	feed, err := NewTickerFeed(context.Background(), wsURL, "USD", nil)
	if err != nil {
		t.Fatalf("NewTickerFeed: %v", err)
	}

	if err := feed.Close(); err != nil {
		t.Errorf("first Close() error = %v", err)
	}
	if err := feed.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	// Channel must be closed after Close.
	if _, ok := <-feed.Ticks(); ok {
		t.Error("Ticks() channel should be closed")
	}
}
