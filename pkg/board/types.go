// Package board provides type-safe Go definitions and Redis schema patterns
// for the Warren shared task board. The board is the central shared state
// system where all Warren components (API server, CLI, seeder) interact via
// well-defined data structures stored in Redis.
//
// All Redis keys and channels are namespaced by board name to enable multiple
// boards to safely coexist on a single Redis server.
package board

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Task represents a single card on the shared board. Tasks are mutable:
// concurrent writers are fenced by the UpdatedAtMs field, which acts as the
// optimistic-concurrency version token and strictly advances on every
// accepted mutation.
type Task struct {
	ID          string   `json:"id"`            // UUID - unique identifier for this task
	Title       string   `json:"title"`         // Board-wide unique (case-insensitive), never a column name
	Description string   `json:"description"`   // Optional free text
	Status      Status   `json:"status"`        // Board column: Todo, In Progress, Done
	Priority    Priority `json:"priority"`      // Low, Medium, High
	AssignedTo  string   `json:"assigned_to"`   // UUID of the current assignee
	CreatedBy   string   `json:"created_by"`    // UUID of the creator, immutable after creation
	CreatedAtMs int64    `json:"created_at_ms"` // Unix timestamp in milliseconds, set once
	UpdatedAtMs int64    `json:"updated_at_ms"` // Version token, advances on every accepted mutation
}

// Status defines the board column a task sits in.
type Status string

const (
	StatusTodo       Status = "Todo"
	StatusInProgress Status = "In Progress"
	StatusDone       Status = "Done"
)

// Priority defines the urgency of a task.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// User represents a registered board member. Users are referenced, never
// owned, by tasks and activity entries.
type User struct {
	ID           string `json:"id"`            // UUID - unique identifier for this user
	Email        string `json:"email"`         // Unique, stored lowercased
	PasswordHash string `json:"-"`             // bcrypt hash, never serialized to JSON
	CreatedAtMs  int64  `json:"created_at_ms"` // Unix timestamp in milliseconds; drives enumeration order
}

// Action identifies what a board mutation did. The label strings are part of
// the audit record format and must not change.
type Action string

const (
	ActionAdded              Action = "Task Added"
	ActionUpdated            Action = "Task Updated"
	ActionDeleted            Action = "Task Deleted"
	ActionAssigned           Action = "Task Assigned"
	ActionStatusChanged      Action = "Task Status Changed"
	ActionPriorityChanged    Action = "Task Priority Changed"
	ActionDescriptionChanged Action = "Task Description Changed"
	ActionTitleChanged       Action = "Task Title Changed"
	ActionSmartAssigned      Action = "Smart Assigned"
)

// Details carries action-specific change data on an activity entry.
// Field diffs use FieldChange values keyed by field name; Smart Assigned
// uses flat oldAssignedTo/newAssignedTo email strings. May be empty.
type Details map[string]any

// FieldChange records the before/after value of a single task field.
type FieldChange struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// ActivityLogEntry is one immutable row of the board's audit trail.
// Task title and actor email are denormalized value copies captured at entry
// creation time, so the entry survives deletion of its referents.
type ActivityLogEntry struct {
	ID               string  `json:"id"`                 // UUID - unique identifier for this entry
	Action           Action  `json:"action"`             // What happened
	TaskID           string  `json:"task_id"`            // UUID of the affected task (may be deleted)
	TaskTitle        string  `json:"task_title"`         // Title snapshot at event time
	PerformedBy      string  `json:"performed_by"`       // UUID of the acting user (may be deleted)
	PerformedByEmail string  `json:"performed_by_email"` // Email snapshot at event time
	TimestampMs      int64   `json:"timestamp_ms"`       // Unix timestamp in milliseconds, immutable
	Details          Details `json:"details,omitempty"`  // Action-specific change data
}

// Event is the envelope published to board observers after a committed
// mutation. Payload is the JSON encoding of the event-specific body.
type Event struct {
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Event names carried on the board events channel.
const (
	EventTaskAdded      = "taskAdded"      // payload: Task
	EventTaskUpdated    = "taskUpdated"    // payload: Task
	EventTaskDeleted    = "taskDeleted"    // payload: task ID string
	EventActivityLogged = "activityLogged" // payload: ActivityLogEntry
)

// Validate checks if the Task has valid field values.
// Returns an error if any validation fails.
func (t *Task) Validate() error {
	if !isValidUUID(t.ID) {
		return fmt.Errorf("invalid task ID: not a valid UUID")
	}

	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("task title cannot be empty")
	}

	if err := t.Status.Validate(); err != nil {
		return fmt.Errorf("invalid status: %w", err)
	}

	if err := t.Priority.Validate(); err != nil {
		return fmt.Errorf("invalid priority: %w", err)
	}

	if !isValidUUID(t.AssignedTo) {
		return fmt.Errorf("invalid assignee ID: not a valid UUID")
	}

	if !isValidUUID(t.CreatedBy) {
		return fmt.Errorf("invalid creator ID: not a valid UUID")
	}

	return nil
}

// Validate checks if the Status is a valid enum value.
func (s Status) Validate() error {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return nil
	default:
		return fmt.Errorf("unknown status: %q", s)
	}
}

// Validate checks if the Priority is a valid enum value.
func (p Priority) Validate() error {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return nil
	default:
		return fmt.Errorf("unknown priority: %q", p)
	}
}

// Validate checks if the User has valid field values.
func (u *User) Validate() error {
	if !isValidUUID(u.ID) {
		return fmt.Errorf("invalid user ID: not a valid UUID")
	}

	if strings.TrimSpace(u.Email) == "" {
		return fmt.Errorf("user email cannot be empty")
	}

	if u.PasswordHash == "" {
		return fmt.Errorf("user password hash cannot be empty")
	}

	return nil
}

// Validate checks if the Action is a valid enum value.
func (a Action) Validate() error {
	switch a {
	case ActionAdded, ActionUpdated, ActionDeleted, ActionAssigned,
		ActionStatusChanged, ActionPriorityChanged, ActionDescriptionChanged,
		ActionTitleChanged, ActionSmartAssigned:
		return nil
	default:
		return fmt.Errorf("unknown action: %q", a)
	}
}

// Validate checks if the ActivityLogEntry has valid field values.
func (e *ActivityLogEntry) Validate() error {
	if !isValidUUID(e.ID) {
		return fmt.Errorf("invalid entry ID: not a valid UUID")
	}

	if err := e.Action.Validate(); err != nil {
		return fmt.Errorf("invalid action: %w", err)
	}

	if e.TaskID == "" {
		return fmt.Errorf("entry task ID cannot be empty")
	}

	if e.TaskTitle == "" {
		return fmt.Errorf("entry task title cannot be empty")
	}

	if e.PerformedBy == "" {
		return fmt.Errorf("entry performed_by cannot be empty")
	}

	if e.PerformedByEmail == "" {
		return fmt.Errorf("entry performed_by_email cannot be empty")
	}

	return nil
}

// isValidUUID checks if a string is a valid UUID format.
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
