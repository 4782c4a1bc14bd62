package store

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrEmptyMessage = errors.New("notification message must not be empty")

// Notification is the persisted record pushed over the realtime channel. The
// JSON shape is the wire contract shared by the HTTP API and the push stream.
type Notification struct {
	ID        string  `json:"id"`
	UserID    string  `json:"userId"`
	Message   string  `json:"message"`
	TaskID    *string `json:"taskId"`
	Read      bool    `json:"read"`
	CreatedAt int64   `json:"timestamp"`
}

// AppendNotification stores a new unread notification for userID. taskID may
// be empty when the notification does not reference a task.
func (s *Store) AppendNotification(userID string, message string, taskID string) (*Notification, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}

	n := &Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Message:   message,
		Read:      false,
		CreatedAt: time.Now().UnixMilli(),
	}
	if taskID != "" {
		n.TaskID = &taskID
	}

	_, err := s.DB.Exec(
		`INSERT INTO notifications (id, user_id, message, task_id, read, created_at) VALUES (?, ?, ?, ?, 0, ?)`,
		n.ID,
		n.UserID,
		n.Message,
		nullableString(n.TaskID),
		n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return n, nil
}

// ListNotifications returns all of userID's notifications, newest first.
func (s *Store) ListNotifications(userID string) ([]Notification, error) {
	rows, err := s.DB.Query(
		`SELECT id, user_id, message, task_id, read, created_at
         FROM notifications WHERE user_id = ?
         ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := make([]Notification, 0)
	for rows.Next() {
		var n Notification
		var taskID sql.NullString
		var read int64
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &taskID, &read, &n.CreatedAt); err != nil {
			return nil, err
		}
		if taskID.Valid {
			value := taskID.String
			n.TaskID = &value
		}
		n.Read = read != 0
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

// MarkAllNotificationsRead flips every unread notification owned by userID and
// returns the number changed.
func (s *Store) MarkAllNotificationsRead(userID string) (int64, error) {
	result, err := s.DB.Exec(
		`UPDATE notifications SET read = 1 WHERE user_id = ? AND read = 0`,
		userID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ClearNotifications deletes all of userID's notifications and returns the
// number deleted.
func (s *Store) ClearNotifications(userID string) (int64, error) {
	result, err := s.DB.Exec(`DELETE FROM notifications WHERE user_id = ?`, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func nullableString(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}
