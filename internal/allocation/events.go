package allocation

import "time"

// EventType names a committed ledger change.
type EventType string

const (
	EventAssignmentCreated EventType = "assignment_created"
	EventAssignmentRemoved EventType = "assignment_removed"
	EventEmployeeReleased  EventType = "employee_released"
	EventEmployeeDeleted   EventType = "employee_deleted"
	EventTaskCompleted     EventType = "task_completed"
	EventTaskReopened      EventType = "task_reopened"
	EventReviewSubmitted   EventType = "review_submitted"
)

// Event is published after a mutation commits. It is never published for
// a rejected or rolled-back operation.
type Event struct {
	Type        EventType `json:"type"`
	TaskID      string    `json:"taskId,omitempty"`
	EmployeeIDs []string  `json:"employeeIds,omitempty"`
	At          time.Time `json:"at"`
	Version     int       `json:"version"`
}

// Notifier receives committed events. Publish runs on the caller's
// goroutine after the operation's key locks are released, so a slow
// Notifier delays only its own caller.
type Notifier interface {
	Publish(Event)
}

type nopNotifier struct{}

func (nopNotifier) Publish(Event) {}

func (e *Engine) publish(t EventType, taskID string, employeeIDs ...string) {
	e.notifier.Publish(Event{
		Type:        t,
		TaskID:      taskID,
		EmployeeIDs: employeeIDs,
		At:          e.now().UTC(),
		Version:     1,
	})
}
