package httpserver

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	api := setupAPI(t)

	resp := api.request(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"name":     "Alice",
		"email":    "alice@example.com",
		"password": "password123",
		"role":     "supervisor",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	registered := decodeBody[map[string]any](t, resp)
	assert.NotEmpty(t, registered["token"])

	resp = api.request(t, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    "alice@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	loggedIn := decodeBody[map[string]any](t, resp)
	token, _ := loggedIn["token"].(string)
	require.NotEmpty(t, token)

	// The issued token opens protected routes.
	resp = api.request(t, http.MethodGet, "/api/notifications", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	api := setupAPI(t)

	payload := map[string]any{
		"name":     "Alice",
		"email":    "alice@example.com",
		"password": "password123",
		"role":     "operator",
	}
	resp := api.request(t, http.MethodPost, "/api/auth/register", "", payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = api.request(t, http.MethodPost, "/api/auth/register", "", payload)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestRegister_Validation(t *testing.T) {
	api := setupAPI(t)

	resp := api.request(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"name":     "Alice",
		"email":    "not-an-email",
		"password": "password123",
		"role":     "supervisor",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = api.request(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"name":     "Alice",
		"email":    "alice@example.com",
		"password": "password123",
		"role":     "admin",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "unknown roles are rejected")
}

func TestLogin_WrongPassword(t *testing.T) {
	api := setupAPI(t)
	api.newUser(t, "alice", "supervisor")

	resp := api.request(t, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    "alice@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogin_UnknownUser(t *testing.T) {
	api := setupAPI(t)

	resp := api.request(t, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    "ghost@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	api := setupAPI(t)

	resp := api.request(t, http.MethodGet, "/api/notifications", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = api.request(t, http.MethodGet, "/api/tasks", "bogus-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
