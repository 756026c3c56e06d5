// Package stream pushes signal events to websocket subscribers.
package stream

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"StockInsight/internal/domain/models"
	applogger "StockInsight/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

// Hub fans signal events out to websocket clients subscribed by symbol. A new
// client first receives the latest event of its symbol, if any.
type Hub struct {
	upgrader websocket.Upgrader
	l        *applogger.Logger

	mu      sync.RWMutex
	clients map[string]map[*client]struct{}
	latest  map[string][]byte
	closed  bool
}

type client struct {
	hub    *Hub
	conn   *websocket.Conn
	symbol string
	send   chan []byte
}

func NewHub(l *applogger.Logger) *Hub {
	if l == nil {
		l = applogger.NewNop()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		l:       l.With(applogger.String("component", "signal_hub")),
		clients: make(map[string]map[*client]struct{}),
		latest:  make(map[string][]byte),
	}
}

// Serve upgrades the request and subscribes the connection to symbol.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, symbol string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already answered the client
		return err
	}

	c := &client{hub: h, conn: conn, symbol: symbol, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	if h.clients[symbol] == nil {
		h.clients[symbol] = make(map[*client]struct{})
	}
	h.clients[symbol][c] = struct{}{}
	if last, ok := h.latest[symbol]; ok {
		c.send <- last
	}
	h.mu.Unlock()

	h.l.Debug("ws client subscribed", applogger.String("symbol", symbol))
	go c.writePump()
	go c.readPump()
	return nil
}

// Broadcast implements SignalBroadcaster. Clients whose buffer is full are
// disconnected rather than blocking the others.
func (h *Hub) Broadcast(symbol string, ev *models.SignalEvent) {
	msg, err := json.Marshal(ev)
	if err != nil {
		h.l.Error("encode signal event", applogger.String("symbol", symbol), applogger.Error(err))
		return
	}

	var slow []*client
	h.mu.Lock()
	h.latest[symbol] = msg
	for c := range h.clients[symbol] {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		h.l.Warn("ws client too slow, dropping", applogger.String("symbol", symbol))
		h.remove(c)
	}
}

// Subscribers returns the number of clients for symbol.
func (h *Hub) Subscribers(symbol string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[symbol])
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	var all []*client
	for _, set := range h.clients {
		for c := range set {
			all = append(all, c)
		}
	}
	h.mu.Unlock()

	for _, c := range all {
		h.remove(c)
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.symbol]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.symbol)
	}
	close(c.send)
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only services control frames; client messages are ignored.
func (c *client) readPump() {
	defer func() {
		c.hub.remove(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
