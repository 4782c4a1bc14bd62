// Package realtime carries server-to-client notification pushes over
// websocket connections. A connection is useless until the client completes
// the authenticate handshake; only bound connections appear in the registry
// and receive pushes.
package realtime

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"taskhub/internal/registry"
	"taskhub/internal/store"
)

const DefaultHandshakeTimeout = 30 * time.Second

var (
	errConnectionClosed = errors.New("connection closed")
	errSendBufferFull   = errors.New("send buffer full")
)

// AuthenticateMessage is the single handshake frame the protocol requires
// after connect.
type AuthenticateMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// PushMessage is the frame delivered for every new notification.
type PushMessage struct {
	Type         string              `json:"type"`
	Notification *store.Notification `json:"notification"`
}

type Hub struct {
	registry         *registry.Registry
	jwtSecret        []byte
	handshakeTimeout time.Duration
	logger           *slog.Logger
	upgrader         websocket.Upgrader

	mu    sync.RWMutex
	conns map[string]*conn
}

func NewHub(reg *registry.Registry, jwtSecret []byte, handshakeTimeout time.Duration, logger *slog.Logger) *Hub {
	if handshakeTimeout <= 0 {
		handshakeTimeout = DefaultHandshakeTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		registry:         reg,
		jwtSecret:        jwtSecret,
		handshakeTimeout: handshakeTimeout,
		logger:           logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser clients send the token in-band, not via Origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		conns: make(map[string]*conn),
	}
}

// HandleWS upgrades the request and services the connection until disconnect.
func (h *Hub) HandleWS(w http.ResponseWriter, req *http.Request) {
	ws, err := h.upgrader.Upgrade(w, req, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	c := &conn{
		id:   uuid.NewString(),
		ws:   ws,
		hub:  h,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.conns[c.id] = c
	h.mu.Unlock()

	go c.writeLoop()
	c.readLoop()
}

// Push delivers a notification frame to one connection. Pushing to an unknown
// or already-closed connection returns an error the caller is expected to
// swallow; it never blocks waiting for the client.
func (h *Hub) Push(connID string, notification *store.Notification) error {
	h.mu.RLock()
	c := h.conns[connID]
	h.mu.RUnlock()
	if c == nil {
		return errConnectionClosed
	}

	payload, err := json.Marshal(PushMessage{Type: "notification", Notification: notification})
	if err != nil {
		return err
	}
	return c.enqueue(payload)
}

// ConnectionCount reports live connections, bound or not.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Shutdown closes every live connection.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	conns := make([]*conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.close()
	}
}

func (h *Hub) removeConn(c *conn) {
	h.mu.Lock()
	delete(h.conns, c.id)
	h.mu.Unlock()
}
