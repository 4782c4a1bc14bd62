// Package notify is the notification write path: persist first, then push to
// every live connection of the recipient. The persisted record is the source
// of truth; the push is only a latency optimization.
package notify

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"taskhub/internal/events"
	"taskhub/internal/store"
)

type NotificationStore interface {
	AppendNotification(userID string, message string, taskID string) (*store.Notification, error)
}

type ConnectionIndex interface {
	Lookup(userID string) []string
}

type Pusher interface {
	Push(connID string, notification *store.Notification) error
}

type Dispatcher struct {
	store    NotificationStore
	registry ConnectionIndex
	pusher   Pusher
	logger   *slog.Logger
}

func NewDispatcher(notificationStore NotificationStore, index ConnectionIndex, pusher Pusher, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		store:    notificationStore,
		registry: index,
		pusher:   pusher,
		logger:   logger,
	}
}

// Notify persists a notification for userID and pushes it to each of the
// user's live connections. It never returns an error: notification delivery
// is a best-effort side channel and must not fail the triggering action.
func (d *Dispatcher) Notify(userID string, message string, taskID string) {
	if err := uuid.Validate(userID); err != nil {
		d.logger.Error("notify: invalid recipient id", "userId", userID)
		return
	}

	notification, err := d.store.AppendNotification(userID, message, taskID)
	if err != nil {
		// No push without a persisted row: a client that misses an
		// ephemeral push could never reconcile it via fetch.
		d.logger.Error("notify: persist failed", "userId", userID, "error", err)
		return
	}

	for _, connID := range d.registry.Lookup(userID) {
		if err := d.pusher.Push(connID, notification); err != nil {
			d.logger.Debug("notify: push failed", "connId", connID, "error", err)
		}
	}
}

// HandleTaskEvent translates a task domain event into a notification for its
// recipient. Wired to the event publisher by the server.
func (d *Dispatcher) HandleTaskEvent(event events.Event) {
	switch event.Type {
	case events.TypeTaskAssigned:
		d.Notify(event.RecipientID, fmt.Sprintf("Task %q has been assigned to you.", event.TaskTitle), event.TaskID)
	case events.TypeTaskStatusChanged:
		d.Notify(event.RecipientID, fmt.Sprintf("Task %q was marked %s by %s.", event.TaskTitle, event.TaskStatus, event.ActorName), event.TaskID)
	}
}
