package tasks

import (
	"fmt"

	"github.com/dyluth/warren/pkg/board"
)

// InvalidInputError reports a request that failed basic input validation
// (missing required fields, unknown enum values, dangling user references).
// No side effects occur.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return e.Reason
}

// ConflictError reports a rejected stale write. Current carries the
// authoritative server-side record so the caller can reconcile and retry.
type ConflictError struct {
	Current *board.Task
}

func (e *ConflictError) Error() string {
	return "conflict: this task has been updated by another user"
}

// NotFoundError reports a referenced task that does not exist.
type NotFoundError struct {
	TaskID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("task %s not found", e.TaskID)
}
