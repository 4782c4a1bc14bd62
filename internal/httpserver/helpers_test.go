package httpserver

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"taskhub/internal/auth"
	"taskhub/internal/events"
	"taskhub/internal/notify"
	"taskhub/internal/realtime"
	"taskhub/internal/registry"
	"taskhub/internal/store"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type testAPI struct {
	server   *httptest.Server
	store    *store.Store
	registry *registry.Registry
}

func setupAPI(t *testing.T) *testAPI {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	reg := registry.New()
	hub := realtime.NewHub(reg, testSecret, 0, nil)
	t.Cleanup(hub.Shutdown)

	publisher := events.NewPublisher()
	dispatcher := notify.NewDispatcher(s, reg, hub, nil)
	publisher.Subscribe(dispatcher.HandleTaskEvent)

	router := NewRouter(Dependencies{
		JWTSecret: testSecret,
		Store:     s,
		Registry:  reg,
		Hub:       hub,
		Events:    publisher,
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testAPI{server: server, store: s, registry: reg}
}

// newUser creates a user directly in the store and returns it with a valid
// bearer token.
func (api *testAPI) newUser(t *testing.T, name string, role string) (*store.User, string) {
	t.Helper()
	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)
	user, err := api.store.CreateUser(name, name+"@example.com", hash, role)
	require.NoError(t, err)
	token, err := auth.SignUserToken(testSecret, user.ID, user.Role, time.Hour)
	require.NoError(t, err)
	return user, token
}

func (api *testAPI) request(t *testing.T, method string, path string, token string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, api.server.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var value T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&value))
	return value
}

func futureDeadline() int64 {
	return time.Now().Add(72 * time.Hour).UnixMilli()
}
