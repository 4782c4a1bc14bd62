package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"taskhub/internal/auth"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 16
)

// conn is one websocket connection moving through
// connected -> bound -> closed.
type conn struct {
	id  string
	ws  *websocket.Conn
	hub *Hub

	mu     sync.Mutex
	userID string

	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *conn) boundUser() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

func (c *conn) bind(userID string) {
	c.mu.Lock()
	c.userID = userID
	c.mu.Unlock()
	c.hub.registry.Register(userID, c.id)
}

// readLoop drives the connection state machine. The first client frame must
// be the authenticate handshake; everything after it is ignored. Returning
// from here tears the connection down.
func (c *conn) readLoop() {
	defer c.close()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.hub.handshakeTimeout))

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			return
		}

		if c.boundUser() != "" {
			// Bound connections have nothing left to say; frames are
			// tolerated so a chatty client does not get disconnected.
			continue
		}

		var msg AuthenticateMessage
		if err := json.Unmarshal(raw, &msg); err != nil || msg.Type != "authenticate" {
			c.hub.logger.Debug("websocket handshake: malformed frame", "connId", c.id)
			c.rejectHandshake()
			return
		}

		claims, err := auth.VerifyUserToken(c.hub.jwtSecret, msg.Token)
		if err != nil {
			c.hub.logger.Debug("websocket handshake: invalid token", "connId", c.id)
			c.rejectHandshake()
			return
		}

		c.bind(claims.UserID)
		c.hub.logger.Debug("websocket bound", "connId", c.id, "userId", claims.UserID)

		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		c.ws.SetPongHandler(func(string) error {
			return c.ws.SetReadDeadline(time.Now().Add(pongWait))
		})
	}
}

func (c *conn) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case payload := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

// enqueue hands a frame to the writer without ever blocking the dispatcher.
// A full buffer drops the frame; the client reconciles via fetch.
func (c *conn) enqueue(payload []byte) error {
	select {
	case <-c.done:
		return errConnectionClosed
	default:
	}
	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return errConnectionClosed
	default:
		return errSendBufferFull
	}
}

func (c *conn) rejectHandshake() {
	// WriteControl is safe alongside the writer goroutine.
	_ = c.ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication failed"),
		time.Now().Add(writeWait),
	)
}

// close runs the exactly-once teardown: deregister if bound, drop out of the
// hub, stop the writer and close the socket. Safe from any goroutine and any
// disconnect cause.
func (c *conn) close() {
	c.once.Do(func() {
		close(c.done)
		if userID := c.boundUser(); userID != "" {
			c.hub.registry.Deregister(userID, c.id)
		}
		c.hub.removeConn(c)
		_ = c.ws.Close()
	})
}
