// Package client is a small Go client for the taskhub notification API.
// It merges the persisted notification list fetched over HTTP with live
// pushes received over the websocket channel, and applies read/clear
// mutations optimistically.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Notification mirrors the server's notification record.
type Notification struct {
	ID        string  `json:"id"`
	UserID    string  `json:"userId"`
	Message   string  `json:"message"`
	TaskID    *string `json:"taskId"`
	Read      bool    `json:"read"`
	CreatedAt int64   `json:"timestamp"`
}

type pushFrame struct {
	Type         string        `json:"type"`
	Notification *Notification `json:"notification"`
}

type authenticateFrame struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// ErrClosed is returned by operations on a closed client.
var ErrClosed = errors.New("client: closed")

// Client talks to a taskhub server on behalf of one authenticated user.
type Client struct {
	baseURL string
	token   string
	http    *http.Client

	mu            sync.Mutex
	notifications []Notification
	ws            *websocket.Conn
	closed        bool

	closeOnce sync.Once
	done      chan struct{}
}

// New returns a client for the server at baseURL, authenticating every
// request with the given bearer token. baseURL should look like
// "http://host:port" with no trailing slash.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
		done:    make(chan struct{}),
	}
}

// Fetch replaces the local notification list with the server's, newest
// first. Call it once after Connect so pushes received while offline are
// picked up.
func (c *Client) Fetch(ctx context.Context) error {
	var list []Notification
	if err := c.doJSON(ctx, http.MethodGet, "/api/notifications", &list); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.notifications = list
	return nil
}

// Connect dials the websocket endpoint, performs the authenticate
// handshake and starts a reader that prepends incoming notifications to
// the local list. The connection lives until Close or a read error.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.ws != nil {
		c.mu.Unlock()
		return errors.New("client: already connected")
	}
	c.mu.Unlock()

	wsURL, err := c.websocketURL()
	if err != nil {
		return err
	}

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial websocket: %w", err)
	}
	if err := ws.WriteJSON(authenticateFrame{Type: "authenticate", Token: c.token}); err != nil {
		_ = ws.Close()
		return fmt.Errorf("send authenticate: %w", err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = ws.Close()
		return ErrClosed
	}
	c.ws = ws
	c.mu.Unlock()

	go c.readLoop(ws)
	return nil
}

// Notifications returns a snapshot of the local list, newest first.
func (c *Client) Notifications() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notification, len(c.notifications))
	copy(out, c.notifications)
	return out
}

// UnreadCount reports how many local notifications are unread.
func (c *Client) UnreadCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, it := range c.notifications {
		if !it.Read {
			n++
		}
	}
	return n
}

// MarkAllRead marks every local notification read immediately, then asks
// the server to do the same. On failure the local state is rolled back.
func (c *Client) MarkAllRead(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	prev := make([]Notification, len(c.notifications))
	copy(prev, c.notifications)
	for i := range c.notifications {
		c.notifications[i].Read = true
	}
	c.mu.Unlock()

	if err := c.doJSON(ctx, http.MethodPut, "/api/notifications/mark-all-read", nil); err != nil {
		c.restore(prev)
		return err
	}
	return nil
}

// ClearAll empties the local list immediately, then asks the server to
// delete the user's notifications. On failure the local state is rolled
// back.
func (c *Client) ClearAll(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	prev := c.notifications
	c.notifications = nil
	c.mu.Unlock()

	if err := c.doJSON(ctx, http.MethodDelete, "/api/notifications", nil); err != nil {
		c.restore(prev)
		return err
	}
	return nil
}

// Close tears down the websocket connection, if any. Safe to call more
// than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.mu.Lock()
		c.closed = true
		ws := c.ws
		c.ws = nil
		c.mu.Unlock()
		if ws != nil {
			_ = ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = ws.Close()
		}
	})
	return nil
}

func (c *Client) readLoop(ws *websocket.Conn) {
	defer func() {
		c.mu.Lock()
		if c.ws == ws {
			c.ws = nil
		}
		c.mu.Unlock()
		_ = ws.Close()
	}()

	for {
		var frame pushFrame
		if err := ws.ReadJSON(&frame); err != nil {
			return
		}
		if frame.Type != "notification" || frame.Notification == nil {
			continue
		}
		c.mu.Lock()
		if !c.closed {
			c.notifications = append([]Notification{*frame.Notification}, c.notifications...)
		}
		c.mu.Unlock()
	}
}

func (c *Client) restore(prev []Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.notifications = prev
	}
}

func (c *Client) websocketURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = "/ws"
	return u.String(), nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
