package httpserver

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/mselser95/swap-arb/internal/engine"
	"go.uber.org/zap"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 512

	sendBufferSize = 16

	// subscribeBuffer is the engine-side buffer feeding the hub.
	subscribeBuffer = 8
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// SnapshotSource is what the hub needs from the engine.
type SnapshotSource interface {
	Snapshot() engine.Snapshot
	Subscribe(buffer int) (<-chan engine.Snapshot, func())
}

// StreamMessage is the envelope written to websocket clients.
type StreamMessage struct {
	Type    string          `json:"type"`
	Payload engine.Snapshot `json:"payload"`
}

// StreamHub fans engine snapshots out to websocket clients.
type StreamHub struct {
	source  SnapshotSource
	logger  *zap.Logger
	mu      sync.RWMutex
	clients map[*streamClient]struct{}
	closed  bool
}

type streamClient struct {
	hub  *StreamHub
	conn *websocket.Conn
	send chan []byte
}

// NewStreamHub creates a hub reading from source.
func NewStreamHub(source SnapshotSource, logger *zap.Logger) *StreamHub {
	return &StreamHub{
		source:  source,
		logger:  logger,
		clients: make(map[*streamClient]struct{}),
	}
}

// Run subscribes to the engine and broadcasts every snapshot until ctx is cancelled.
func (h *StreamHub) Run(ctx context.Context) {
	snaps, cancel := h.source.Subscribe(subscribeBuffer)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case snap, ok := <-snaps:
			if !ok {
				h.closeAll()
				return
			}
			msg, err := encodeStreamMessage(snap)
			if err != nil {
				h.logger.Error("stream-encode-failed", zap.Error(err))
				continue
			}
			h.broadcast(msg)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *StreamHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleStream upgrades GET /api/stream and sends the current snapshot immediately.
func (h *StreamHub) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("stream-upgrade-failed", zap.Error(err))
		return
	}

	c := &streamClient{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}

	if msg, encErr := encodeStreamMessage(h.source.Snapshot()); encErr == nil {
		c.send <- msg
	}

	if !h.register(c) {
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (h *StreamHub) register(c *streamClient) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()

	StreamClientsActive.Set(float64(total))
	h.logger.Info("stream-client-connected", zap.Int("total-clients", total))
	return true
}

func (h *StreamHub) unregister(c *streamClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	total := len(h.clients)
	h.mu.Unlock()

	if ok {
		StreamClientsActive.Set(float64(total))
		h.logger.Info("stream-client-disconnected", zap.Int("total-clients", total))
	}
}

func (h *StreamHub) broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- msg:
			StreamMessagesTotal.WithLabelValues("sent").Inc()
		default:
			StreamMessagesTotal.WithLabelValues("dropped").Inc()
			h.logger.Debug("stream-dropping-message-for-slow-client")
		}
	}
}

func (h *StreamHub) closeAll() {
	h.mu.Lock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()

	StreamClientsActive.Set(0)
}

func encodeStreamMessage(snap engine.Snapshot) ([]byte, error) {
	return json.Marshal(StreamMessage{Type: "snapshot", Payload: snap})
}

// readPump only services control frames; clients have nothing to say.
func (c *streamClient) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("stream-unexpected-close", zap.Error(err))
			}
			return
		}
	}
}

func (c *streamClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
