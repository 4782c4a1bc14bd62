package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"taskhub/internal/auth"
	"taskhub/internal/events"
	"taskhub/internal/store"
)

type createTaskRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
	Deadline    int64  `json:"deadline" validate:"required"`
	Priority    string `json:"priority" validate:"required,oneof=Low Medium High"`
}

type editTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Deadline    *int64  `json:"deadline"`
	Priority    *string `json:"priority" validate:"omitempty,oneof=Low Medium High"`
}

type assignTaskRequest struct {
	AssignedTo []string `json:"assignedTo" validate:"required,min=1,dive,uuid"`
}

type updateStatusRequest struct {
	Status  string `json:"status" validate:"required"`
	Comment string `json:"comment"`
}

func (h *handlers) handleCreateTask(w http.ResponseWriter, req *http.Request) {
	var body createTaskRequest
	if err := decodeJSON(req, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid body")
		return
	}
	if err := h.validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, "All fields (title, description, deadline, priority) are required")
		return
	}
	if body.Deadline <= time.Now().UnixMilli() {
		writeError(w, http.StatusBadRequest, "Deadline must be a future date")
		return
	}

	userID, _ := UserIDFromContext(req.Context())
	task, err := h.deps.Store.CreateTask(body.Title, body.Description, body.Deadline, body.Priority, userID)
	if err != nil {
		h.logger.Error("create task failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Task created successfully",
		"task":    task,
	})
}

func (h *handlers) handleAssignTask(w http.ResponseWriter, req *http.Request) {
	taskID := chi.URLParam(req, "id")

	var body assignTaskRequest
	if err := decodeJSON(req, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid body")
		return
	}
	if err := h.validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, "assignedTo is required")
		return
	}

	if err := h.deps.Store.ReplaceAssignees(taskID, body.AssignedTo); err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			writeError(w, http.StatusNotFound, "Task not found")
			return
		}
		h.logger.Error("assign task failed", "taskId", taskID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	task, err := h.deps.Store.GetTask(taskID)
	if err != nil {
		h.logger.Error("assign task reload failed", "taskId", taskID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	// One event per recipient; the notification consumer handles each
	// independently, so a bad recipient never affects the others.
	for _, assignee := range body.AssignedTo {
		h.deps.Events.Emit(events.Event{
			Type:        events.TypeTaskAssigned,
			TaskID:      task.ID,
			TaskTitle:   task.Title,
			RecipientID: assignee,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Task assigned successfully",
		"task":    task,
	})
}

func (h *handlers) handleEditTask(w http.ResponseWriter, req *http.Request) {
	taskID := chi.URLParam(req, "id")

	var body editTaskRequest
	if err := decodeJSON(req, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid body")
		return
	}
	if err := h.validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid task fields")
		return
	}

	task, err := h.deps.Store.UpdateTask(taskID, store.TaskUpdate{
		Title:       body.Title,
		Description: body.Description,
		Deadline:    body.Deadline,
		Priority:    body.Priority,
	})
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			writeError(w, http.StatusNotFound, "Task not found")
			return
		}
		h.logger.Error("edit task failed", "taskId", taskID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Task updated successfully",
		"task":    task,
	})
}

func (h *handlers) handleDeleteTask(w http.ResponseWriter, req *http.Request) {
	taskID := chi.URLParam(req, "id")

	if err := h.deps.Store.DeleteTask(taskID); err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			writeError(w, http.StatusNotFound, "Task not found")
			return
		}
		h.logger.Error("delete task failed", "taskId", taskID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "Task deleted successfully"})
}

func (h *handlers) handleListTasks(w http.ResponseWriter, req *http.Request) {
	userID, _ := UserIDFromContext(req.Context())
	role, _ := RoleFromContext(req.Context())
	status := req.URL.Query().Get("status")
	if status != "" && !store.ValidStatus(status) {
		writeError(w, http.StatusBadRequest, "Invalid status filter")
		return
	}

	var tasks []store.Task
	var err error
	switch role {
	case auth.RoleSupervisor:
		tasks, err = h.deps.Store.ListTasksCreatedBy(userID, status)
	default:
		tasks, err = h.deps.Store.ListTasksAssignedTo(userID, status)
	}
	if err != nil {
		h.logger.Error("list tasks failed", "userId", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "Error fetching tasks")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

func (h *handlers) handleUpdateStatus(w http.ResponseWriter, req *http.Request) {
	taskID := chi.URLParam(req, "id")
	userID, _ := UserIDFromContext(req.Context())
	role, _ := RoleFromContext(req.Context())

	var body updateStatusRequest
	if err := decodeJSON(req, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid body")
		return
	}
	if err := h.validate.Struct(body); err != nil || !store.ValidStatus(body.Status) {
		writeError(w, http.StatusBadRequest, "Invalid status")
		return
	}

	task, err := h.deps.Store.GetTask(taskID)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			writeError(w, http.StatusNotFound, "Task not found")
			return
		}
		h.logger.Error("status lookup failed", "taskId", taskID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if role != auth.RoleSupervisor {
		assigned, err := h.deps.Store.IsAssignee(taskID, userID)
		if err != nil {
			h.logger.Error("assignee check failed", "taskId", taskID, "error", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if !assigned {
			writeError(w, http.StatusForbidden, "Not authorized")
			return
		}
	}

	updated, err := h.deps.Store.UpdateTaskStatus(taskID, body.Status)
	if err != nil {
		h.logger.Error("status update failed", "taskId", taskID, "error", err)
		writeError(w, http.StatusInternalServerError, "Error updating task status")
		return
	}

	if body.Comment != "" {
		if _, err := h.deps.Store.AddComment(taskID, userID, body.Comment); err != nil {
			h.logger.Error("comment insert failed", "taskId", taskID, "error", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		updated, err = h.deps.Store.GetTask(taskID)
		if err != nil {
			h.logger.Error("status reload failed", "taskId", taskID, "error", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
	}

	if creator := task.CreatedBy.ID; creator != "" && creator != userID {
		actorName := userID
		if actor, err := h.deps.Store.GetUserByID(userID); err == nil && actor != nil {
			actorName = actor.Name
		}
		h.deps.Events.Emit(events.Event{
			Type:        events.TypeTaskStatusChanged,
			TaskID:      task.ID,
			TaskTitle:   task.Title,
			TaskStatus:  body.Status,
			ActorName:   actorName,
			RecipientID: creator,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Task status updated",
		"task":    updated,
	})
}
