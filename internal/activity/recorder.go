// Package activity maintains the board's append-only audit trail. It derives
// semantic diffs from before/after task snapshots, narrows generic updates to
// field-specific actions, and persists immutable entries that outlive the
// tasks and users they describe.
package activity

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dyluth/warren/pkg/board"
)

// ErrActorNotResolved is returned by Record when the acting user cannot be
// resolved to a live identity. Callers must treat this as non-fatal: the
// triggering mutation still commits, only the audit entry is skipped.
var ErrActorNotResolved = errors.New("acting user could not be resolved")

// Snapshot captures the audit-relevant fields of a task at a point in time.
// The assignee is carried by email because that is what the audit trail
// records for assignment changes.
type Snapshot struct {
	Title         string
	Description   string
	AssigneeID    string
	AssigneeEmail string
	Status        board.Status
	Priority      board.Priority
}

// SnapshotOf builds a Snapshot from a task and its assignee's resolved email.
func SnapshotOf(t *board.Task, assigneeEmail string) Snapshot {
	return Snapshot{
		Title:         t.Title,
		Description:   t.Description,
		AssigneeID:    t.AssignedTo,
		AssigneeEmail: assigneeEmail,
		Status:        t.Status,
		Priority:      t.Priority,
	}
}

// Diff computes the field-level changes between two snapshots over
// {title, description, assignedTo, status, priority} and picks the action:
// exactly one changed field narrows to its field-specific action, anything
// else stays the generic Task Updated.
func Diff(before, after Snapshot) (board.Details, board.Action) {
	details := board.Details{}

	if before.Title != after.Title {
		details["title"] = board.FieldChange{Old: before.Title, New: after.Title}
	}
	if before.Description != after.Description {
		details["description"] = board.FieldChange{Old: before.Description, New: after.Description}
	}
	if before.AssigneeID != after.AssigneeID {
		details["assignedTo"] = board.FieldChange{Old: before.AssigneeEmail, New: after.AssigneeEmail}
	}
	if before.Status != after.Status {
		details["status"] = board.FieldChange{Old: string(before.Status), New: string(after.Status)}
	}
	if before.Priority != after.Priority {
		details["priority"] = board.FieldChange{Old: string(before.Priority), New: string(after.Priority)}
	}

	action := board.ActionUpdated
	if len(details) == 1 {
		switch {
		case hasKey(details, "status"):
			action = board.ActionStatusChanged
		case hasKey(details, "assignedTo"):
			action = board.ActionAssigned
		case hasKey(details, "priority"):
			action = board.ActionPriorityChanged
		case hasKey(details, "title"):
			action = board.ActionTitleChanged
		case hasKey(details, "description"):
			action = board.ActionDescriptionChanged
		}
	}

	if len(details) == 0 {
		details = nil
	}

	return details, action
}

func hasKey(d board.Details, key string) bool {
	_, ok := d[key]
	return ok
}

// Recorder appends audit entries to the board store.
type Recorder struct {
	store *board.Client
}

// NewRecorder creates a Recorder backed by the given board store.
func NewRecorder(store *board.Client) *Recorder {
	return &Recorder{store: store}
}

// Record resolves the actor and appends one immutable audit entry for the
// given action. The task's title and the actor's email are copied into the
// entry so it survives deletion of either referent.
//
// Returns ErrActorNotResolved if the actor has no live identity; the caller
// decides whether that is fatal (it never is for board mutations).
func (r *Recorder) Record(ctx context.Context, action board.Action, task *board.Task, actorID string, details board.Details) (*board.ActivityLogEntry, error) {
	actor, err := r.store.GetUser(ctx, actorID)
	if err != nil {
		if board.IsNotFound(err) {
			return nil, ErrActorNotResolved
		}
		return nil, fmt.Errorf("failed to resolve acting user: %w", err)
	}

	entry := &board.ActivityLogEntry{
		ID:               uuid.New().String(),
		Action:           action,
		TaskID:           task.ID,
		TaskTitle:        task.Title,
		PerformedBy:      actor.ID,
		PerformedByEmail: actor.Email,
		TimestampMs:      nextTimestampMs(),
		Details:          details,
	}

	if err := r.store.AppendActivity(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append activity entry: %w", err)
	}

	return entry, nil
}

// Recent returns up to limit audit entries, newest first.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]*board.ActivityLogEntry, error) {
	return r.store.RecentActivity(ctx, limit)
}

var lastTimestampMs atomic.Int64

// nextTimestampMs returns a strictly increasing millisecond timestamp so
// entries written within the same millisecond keep a stable feed order.
func nextTimestampMs() int64 {
	for {
		now := time.Now().UnixMilli()
		prev := lastTimestampMs.Load()
		if now <= prev {
			now = prev + 1
		}
		if lastTimestampMs.CompareAndSwap(prev, now) {
			return now
		}
	}
}
