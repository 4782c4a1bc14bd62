package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/internal/auth"
	"taskhub/internal/registry"
	"taskhub/internal/store"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestHub(t *testing.T) (*Hub, *registry.Registry, string) {
	t.Helper()
	reg := registry.New()
	hub := NewHub(reg, testSecret, time.Second, nil)
	server := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(server.Close)
	t.Cleanup(hub.Shutdown)
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	return hub, reg, wsURL
}

func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func authenticate(t *testing.T, ws *websocket.Conn, userID string) {
	t.Helper()
	token, err := auth.SignUserToken(testSecret, userID, auth.RoleOperator, time.Hour)
	require.NoError(t, err)
	require.NoError(t, ws.WriteJSON(AuthenticateMessage{Type: "authenticate", Token: token}))
}

func waitRegistered(t *testing.T, reg *registry.Registry, userID string, count int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(reg.Lookup(userID)) == count
	}, 2*time.Second, 10*time.Millisecond)
}

func readPush(t *testing.T, ws *websocket.Conn) PushMessage {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := ws.ReadMessage()
	require.NoError(t, err)
	var msg PushMessage
	require.NoError(t, json.Unmarshal(raw, &msg))
	return msg
}

func TestHandshake_BindsAndRegisters(t *testing.T) {
	_, reg, wsURL := newTestHub(t)
	userID := uuid.NewString()

	ws := dial(t, wsURL)
	authenticate(t, ws, userID)

	waitRegistered(t, reg, userID, 1)
}

func TestHandshake_InvalidTokenCloses(t *testing.T) {
	_, reg, wsURL := newTestHub(t)

	ws := dial(t, wsURL)
	require.NoError(t, ws.WriteJSON(AuthenticateMessage{Type: "authenticate", Token: "garbage"}))

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := ws.ReadMessage()
	require.Error(t, err, "server must terminate the connection")
	assert.Equal(t, 0, reg.UserCount(), "failed handshake must never register")
}

func TestHandshake_ExpiredTokenCloses(t *testing.T) {
	_, reg, wsURL := newTestHub(t)
	userID := uuid.NewString()

	token, err := auth.SignUserToken(testSecret, userID, auth.RoleOperator, -time.Minute)
	require.NoError(t, err)

	ws := dial(t, wsURL)
	require.NoError(t, ws.WriteJSON(AuthenticateMessage{Type: "authenticate", Token: token}))

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = ws.ReadMessage()
	require.Error(t, err)
	assert.Empty(t, reg.Lookup(userID))
}

func TestHandshake_MalformedFrameCloses(t *testing.T) {
	hub, _, wsURL := newTestHub(t)

	ws := dial(t, wsURL)
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("not json")))

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := ws.ReadMessage()
	require.Error(t, err)

	require.Eventually(t, func() bool {
		return hub.ConnectionCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHandshake_TimeoutClosesUnauthenticated(t *testing.T) {
	hub, reg, wsURL := newTestHub(t)

	ws := dial(t, wsURL)

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err := ws.ReadMessage()
	require.Error(t, err, "silent connection must be closed after the handshake deadline")

	require.Eventually(t, func() bool {
		return hub.ConnectionCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, reg.UserCount())
}

func TestPush_DeliveredToBoundConnection(t *testing.T) {
	hub, reg, wsURL := newTestHub(t)
	userID := uuid.NewString()

	ws := dial(t, wsURL)
	authenticate(t, ws, userID)
	waitRegistered(t, reg, userID, 1)

	taskID := "task-1"
	notification := &store.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Message:   "Task assigned",
		TaskID:    &taskID,
		CreatedAt: time.Now().UnixMilli(),
	}
	connID := reg.Lookup(userID)[0]
	require.NoError(t, hub.Push(connID, notification))

	msg := readPush(t, ws)
	assert.Equal(t, "notification", msg.Type)
	require.NotNil(t, msg.Notification)
	assert.Equal(t, notification.ID, msg.Notification.ID)
	assert.Equal(t, "Task assigned", msg.Notification.Message)
	require.NotNil(t, msg.Notification.TaskID)
	assert.Equal(t, "task-1", *msg.Notification.TaskID)
}

func TestPush_BothConnectionsOfSameUser(t *testing.T) {
	hub, reg, wsURL := newTestHub(t)
	userID := uuid.NewString()

	first := dial(t, wsURL)
	authenticate(t, first, userID)
	waitRegistered(t, reg, userID, 1)

	second := dial(t, wsURL)
	authenticate(t, second, userID)
	waitRegistered(t, reg, userID, 2)

	notification := &store.Notification{ID: uuid.NewString(), UserID: userID, Message: "hello"}
	for _, connID := range reg.Lookup(userID) {
		require.NoError(t, hub.Push(connID, notification))
	}

	assert.Equal(t, "hello", readPush(t, first).Notification.Message)
	assert.Equal(t, "hello", readPush(t, second).Notification.Message)
}

func TestPush_UnknownConnection(t *testing.T) {
	hub, _, _ := newTestHub(t)

	err := hub.Push("missing", &store.Notification{ID: "n1", Message: "x"})
	assert.Error(t, err)
}

func TestDisconnect_DeregistersExactlyOnce(t *testing.T) {
	hub, reg, wsURL := newTestHub(t)
	userID := uuid.NewString()

	ws := dial(t, wsURL)
	authenticate(t, ws, userID)
	waitRegistered(t, reg, userID, 1)

	require.NoError(t, ws.Close())

	waitRegistered(t, reg, userID, 0)
	assert.False(t, reg.Has(userID), "last connection removes the user key")
	require.Eventually(t, func() bool {
		return hub.ConnectionCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDisconnect_UnboundHasNoRegistryEffect(t *testing.T) {
	hub, reg, wsURL := newTestHub(t)

	ws := dial(t, wsURL)
	require.Eventually(t, func() bool {
		return hub.ConnectionCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, ws.Close())

	require.Eventually(t, func() bool {
		return hub.ConnectionCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, reg.UserCount())
}

func TestPush_AfterDisconnectFailsSilently(t *testing.T) {
	hub, reg, wsURL := newTestHub(t)
	userID := uuid.NewString()

	ws := dial(t, wsURL)
	authenticate(t, ws, userID)
	waitRegistered(t, reg, userID, 1)
	connID := reg.Lookup(userID)[0]

	require.NoError(t, ws.Close())
	waitRegistered(t, reg, userID, 0)

	err := hub.Push(connID, &store.Notification{ID: "n1", Message: "late"})
	assert.Error(t, err, "push after deregistration must fail, not block")
}
