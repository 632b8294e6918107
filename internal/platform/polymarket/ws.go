package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/predictumhq/predictum/internal/domain"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	reconnectDelay    = 2 * time.Second
	maxReconnectDelay = 60 * time.Second
)

// BookHandler receives every full book snapshot delivered over the market
// channel.
type BookHandler func(domain.OrderBookSnapshot)

// WSClient streams order book snapshots from the Polymarket CLOB WebSocket.
// The only channel it understands is "market"; book events arrive as full
// snapshots, so no local book assembly is needed.
type WSClient struct {
	wsURL   string
	assets  []string
	handler BookHandler
}

// NewWSClient creates a WebSocket book feed.
//
// wsURL is the CLOB WebSocket root, e.g.
// "wss://ws-subscriptions-clob.polymarket.com"; "/ws/market" is appended.
// assets is the set of CLOB token IDs to subscribe to.
func NewWSClient(wsURL string, assets []string, handler BookHandler) *WSClient {
	return &WSClient{
		wsURL:   wsURL + "/ws/market",
		assets:  assets,
		handler: handler,
	}
}

// Run connects, subscribes, and reads until ctx is cancelled. Connection
// failures trigger reconnection with exponential backoff; Run only returns
// on context cancellation.
func (w *WSClient) Run(ctx context.Context) error {
	delay := reconnectDelay
	for {
		err := w.runOnce(ctx)
		if ctx.Err() != nil {
			return fmt.Errorf("polymarket/ws: %w", domain.ErrContextDone)
		}
		_ = err

		select {
		case <-ctx.Done():
			return fmt.Errorf("polymarket/ws: %w", domain.ErrContextDone)
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

// runOnce dials, subscribes, and reads frames until the connection drops or
// ctx is cancelled.
func (w *WSClient) runOnce(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, w.wsURL, nil)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	sub := WSCommand{Type: "subscribe", Channel: "market", Assets: w.assets}
	data, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("marshal subscribe: %w", err)
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	// Close the connection when ctx ends so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	go w.pingLoop(conn, done)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		w.handleFrame(raw)
	}
}

func (w *WSClient) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleFrame decodes a market-channel frame. The server sends either a JSON
// array of events or a single event object; anything that is not a book
// event is dropped.
func (w *WSClient) handleFrame(raw []byte) {
	var events []WSBookEvent
	if err := json.Unmarshal(raw, &events); err != nil {
		var single WSBookEvent
		if err := json.Unmarshal(raw, &single); err != nil {
			return
		}
		events = []WSBookEvent{single}
	}

	for i := range events {
		if events[i].EventType != "book" || events[i].AssetID == "" {
			continue
		}
		w.handler(events[i].ToSnapshot())
	}
}
