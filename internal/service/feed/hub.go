package feed

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"AutoValue/internal/domain/models"
	applogger "AutoValue/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	defaultPingInterval = 30 * time.Second
	defaultWriteTimeout = 10 * time.Second
	defaultSendBuffer   = 64
	maxReadBytes        = 1024
)

type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *client) stop() { c.once.Do(func() { close(c.done) }) }

// Hub pushes completed valuations to websocket subscribers.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}

	upgrader     websocket.Upgrader
	pingInterval time.Duration
	writeTimeout time.Duration
	sendBuffer   int
	logger       *applogger.Logger
}

type Option func(*Hub)

func WithPingInterval(d time.Duration) Option {
	return func(h *Hub) { h.pingInterval = d }
}

func WithSendBuffer(n int) Option {
	return func(h *Hub) { h.sendBuffer = n }
}

// WithOrigins restricts upgrades to the listed origins. "*" allows any.
func WithOrigins(origins []string) Option {
	return func(h *Hub) {
		if len(origins) == 0 {
			return
		}
		allowed := make(map[string]struct{}, len(origins))
		for _, o := range origins {
			allowed[o] = struct{}{}
		}
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			if _, ok := allowed["*"]; ok {
				return true
			}
			_, ok := allowed[r.Header.Get("Origin")]
			return ok
		}
	}
}

func NewHub(logger *applogger.Logger, opts ...Option) *Hub {
	if logger == nil {
		logger = applogger.NewNop()
	}
	h := &Hub{
		clients:      make(map[*client]struct{}),
		upgrader:     websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 4096},
		pingInterval: defaultPingInterval,
		writeTimeout: defaultWriteTimeout,
		sendBuffer:   defaultSendBuffer,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Broadcast sends v to every client. Slow clients drop the frame.
func (h *Hub) Broadcast(v *models.Valuation) {
	b, err := json.Marshal(v)
	if err != nil {
		h.logger.Warn("feed marshal", applogger.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- b:
		default:
			h.logger.Debug("feed client lagging, frame dropped")
		}
	}
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Serve upgrades the request and blocks until the client goes away.
func (h *Hub) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already written the HTTP error
		h.logger.Warn("feed upgrade failed", applogger.Error(err))
		return nil
	}
	cl := &client{conn: conn, send: make(chan []byte, h.sendBuffer), done: make(chan struct{})}
	h.register(cl)
	h.logger.Info("feed client connected", applogger.String("remote", c.RealIP()), applogger.Int("clients", h.Clients()))

	go h.writeLoop(cl)
	h.readLoop(cl)

	h.unregister(cl)
	h.logger.Info("feed client disconnected", applogger.String("remote", c.RealIP()))
	return nil
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		c.stop()
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.stop()
}

// readLoop only drains control frames; clients never send data.
func (h *Hub) readLoop(c *client) {
	c.conn.SetReadLimit(maxReadBytes)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(h.pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(h.writeTimeout))
			return
		case b := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				c.stop()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.writeTimeout)); err != nil {
				c.stop()
				return
			}
		}
	}
}
