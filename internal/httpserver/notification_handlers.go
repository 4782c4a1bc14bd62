package httpserver

import "net/http"

func (h *handlers) handleListNotifications(w http.ResponseWriter, req *http.Request) {
	userID, _ := UserIDFromContext(req.Context())

	notifications, err := h.deps.Store.ListNotifications(userID)
	if err != nil {
		h.logger.Error("list notifications failed", "userId", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, notifications)
}

func (h *handlers) handleMarkAllRead(w http.ResponseWriter, req *http.Request) {
	userID, _ := UserIDFromContext(req.Context())

	count, err := h.deps.Store.MarkAllNotificationsRead(userID)
	if err != nil {
		h.logger.Error("mark all read failed", "userId", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to mark all as read")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "All notifications marked as read.",
		"count":   count,
	})
}

func (h *handlers) handleClearNotifications(w http.ResponseWriter, req *http.Request) {
	userID, _ := UserIDFromContext(req.Context())

	count, err := h.deps.Store.ClearNotifications(userID)
	if err != nil {
		h.logger.Error("clear notifications failed", "userId", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to clear notifications")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "All notifications cleared.",
		"count":   count,
	})
}
