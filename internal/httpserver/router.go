// Package httpserver exposes the JSON API: auth, tasks and the notification
// endpoints backed by the store, plus the websocket upgrade path.
package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"taskhub/internal/auth"
	"taskhub/internal/events"
	"taskhub/internal/realtime"
	"taskhub/internal/registry"
	"taskhub/internal/store"
)

type Dependencies struct {
	JWTSecret   []byte
	Store       *store.Store
	Registry    *registry.Registry
	Hub         *realtime.Hub
	Events      *events.Publisher
	CorsOrigins []string
	Logger      *slog.Logger
}

type handlers struct {
	deps     Dependencies
	validate *validator.Validate
	logger   *slog.Logger
}

func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &handlers{
		deps:     deps,
		validate: validator.New(),
		logger:   logger,
	}

	router := chi.NewRouter()
	router.Use(CORS(deps.CorsOrigins))

	router.Get("/healthz", h.handleHealth)
	router.Get("/ws", deps.Hub.HandleWS)

	router.Route("/api", func(api chi.Router) {
		api.Post("/auth/register", h.handleRegister)
		api.Post("/auth/login", h.handleLogin)

		api.Group(func(protected chi.Router) {
			protected.Use(RequireAuth(deps.JWTSecret))

			protected.Get("/notifications", h.handleListNotifications)
			protected.Put("/notifications/mark-all-read", h.handleMarkAllRead)
			protected.Delete("/notifications", h.handleClearNotifications)

			protected.Get("/tasks", h.handleListTasks)
			protected.Put("/tasks/{id}/status", h.handleUpdateStatus)

			protected.Group(func(supervisor chi.Router) {
				supervisor.Use(RequireRole(auth.RoleSupervisor))
				supervisor.Post("/tasks", h.handleCreateTask)
				supervisor.Put("/tasks/{id}/assign", h.handleAssignTask)
				supervisor.Put("/tasks/{id}", h.handleEditTask)
				supervisor.Delete("/tasks/{id}", h.handleDeleteTask)
			})
		})
	})

	return router
}

func (h *handlers) handleHealth(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"connections": h.deps.Registry.ConnectionCount(),
	})
}
