// Package events decouples task handlers from notification delivery. Handlers
// emit domain events; the server wires a consumer that turns them into
// dispatcher calls, so a notification failure can never fail a task operation.
package events

const (
	TypeTaskAssigned      = "task-assigned"
	TypeTaskStatusChanged = "task-status-changed"
)

type Event struct {
	Type        string
	TaskID      string
	TaskTitle   string
	TaskStatus  string
	ActorName   string
	RecipientID string
}
