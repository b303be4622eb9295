// Package tasks runs the board's mutation pipeline. Every mutation walks the
// same sequence - validate, conflict-check, apply, audit, publish - where
// apply is the only step that touches durable task state and everything after
// it is a best-effort side effect that must never reverse the write.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/dyluth/warren/internal/activity"
	"github.com/dyluth/warren/internal/assign"
	"github.com/dyluth/warren/internal/validation"
	"github.com/dyluth/warren/pkg/board"
)

// Service coordinates board mutations against the shared store.
type Service struct {
	store    *board.Client
	titles   *validation.TitleValidator
	recorder *activity.Recorder
	balancer *assign.Balancer
	log      *log.Logger
}

// NewService wires the mutation pipeline over a board store.
func NewService(store *board.Client, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Service{
		store:    store,
		titles:   validation.NewTitleValidator(store),
		recorder: activity.NewRecorder(store),
		balancer: assign.NewBalancer(store),
		log:      logger,
	}
}

// Recorder exposes the service's activity recorder for feed reads.
func (s *Service) Recorder() *activity.Recorder {
	return s.recorder
}

// CreateRequest carries the fields of a task creation.
type CreateRequest struct {
	Title       string
	Description string
	AssignedTo  string
	Status      board.Status
	Priority    board.Priority
}

// Patch carries a partial task update. Nil fields are left unchanged;
// a non-nil Description may be the empty string to clear it.
type Patch struct {
	Title       *string
	Description *string
	AssignedTo  *string
	Status      *board.Status
	Priority    *board.Priority
}

// Create validates and inserts a new task, then audits and broadcasts it.
func (s *Service) Create(ctx context.Context, req CreateRequest, actorID string) (*board.Task, error) {
	if req.Title == "" || req.AssignedTo == "" || req.Status == "" || req.Priority == "" {
		return nil, &InvalidInputError{Reason: "please provide title, assigned user, status, and priority"}
	}
	if err := req.Status.Validate(); err != nil {
		return nil, &InvalidInputError{Reason: err.Error()}
	}
	if err := req.Priority.Validate(); err != nil {
		return nil, &InvalidInputError{Reason: err.Error()}
	}

	if err := s.titles.ValidateTitle(ctx, req.Title, ""); err != nil {
		return nil, err
	}

	if _, err := s.store.GetUser(ctx, req.AssignedTo); err != nil {
		if board.IsNotFound(err) {
			return nil, &InvalidInputError{Reason: "assigned user not found"}
		}
		return nil, fmt.Errorf("failed to resolve assignee: %w", err)
	}

	now := time.Now().UnixMilli()
	task := &board.Task{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		AssignedTo:  req.AssignedTo,
		CreatedBy:   actorID,
		CreatedAtMs: now,
		UpdatedAtMs: now,
	}

	if err := s.store.CreateTask(ctx, task); err != nil {
		if errors.Is(err, board.ErrTitleTaken) {
			// The fast-reject passed but another creation won the index claim.
			return nil, &validation.DuplicateTitleError{Title: req.Title}
		}
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	entry := s.audit(ctx, board.ActionAdded, task, actorID, nil)
	s.publish(ctx, board.EventTaskAdded, task)
	if entry != nil {
		s.publish(ctx, board.EventActivityLogged, entry)
	}

	return task, nil
}

// Update applies a partial update fenced by the client's last observed
// version token (updated_at_ms). A token older than the stored one - or a
// concurrent writer slipping in between read and write - yields a
// ConflictError carrying the authoritative current record. A zero token
// skips the fence.
func (s *Service) Update(ctx context.Context, taskID string, patch Patch, lastSeenVersionMs int64, actorID string) (*board.Task, error) {
	stored, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		if board.IsNotFound(err) {
			return nil, &NotFoundError{TaskID: taskID}
		}
		return nil, fmt.Errorf("failed to load task: %w", err)
	}

	if lastSeenVersionMs > 0 && lastSeenVersionMs < stored.UpdatedAtMs {
		return nil, &ConflictError{Current: stored}
	}

	updated := *stored
	if patch.Title != nil && *patch.Title != stored.Title {
		if err := s.titles.ValidateTitle(ctx, *patch.Title, taskID); err != nil {
			return nil, err
		}
		updated.Title = *patch.Title
	}
	if patch.AssignedTo != nil && *patch.AssignedTo != stored.AssignedTo {
		if _, err := s.store.GetUser(ctx, *patch.AssignedTo); err != nil {
			if board.IsNotFound(err) {
				return nil, &InvalidInputError{Reason: "assigned user not found"}
			}
			return nil, fmt.Errorf("failed to resolve assignee: %w", err)
		}
		updated.AssignedTo = *patch.AssignedTo
	}
	if patch.Description != nil {
		updated.Description = *patch.Description
	}
	if patch.Status != nil {
		if err := patch.Status.Validate(); err != nil {
			return nil, &InvalidInputError{Reason: err.Error()}
		}
		updated.Status = *patch.Status
	}
	if patch.Priority != nil {
		if err := patch.Priority.Validate(); err != nil {
			return nil, &InvalidInputError{Reason: err.Error()}
		}
		updated.Priority = *patch.Priority
	}
	updated.UpdatedAtMs = nextVersion(stored.UpdatedAtMs)

	if err := s.applyUpdate(ctx, &updated, stored.UpdatedAtMs); err != nil {
		return nil, err
	}

	before := activity.SnapshotOf(stored, s.assigneeEmail(ctx, stored.AssignedTo))
	after := activity.SnapshotOf(&updated, s.assigneeEmail(ctx, updated.AssignedTo))
	details, action := activity.Diff(before, after)

	entry := s.audit(ctx, action, &updated, actorID, details)
	s.publish(ctx, board.EventTaskUpdated, &updated)
	if entry != nil {
		s.publish(ctx, board.EventActivityLogged, entry)
	}

	return &updated, nil
}

// Delete removes a task. Prior audit entries referencing it are preserved
// with their title snapshots intact.
func (s *Service) Delete(ctx context.Context, taskID, actorID string) error {
	stored, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		if board.IsNotFound(err) {
			return &NotFoundError{TaskID: taskID}
		}
		return fmt.Errorf("failed to load task: %w", err)
	}

	if err := s.store.DeleteTask(ctx, taskID); err != nil {
		if board.IsNotFound(err) {
			return &NotFoundError{TaskID: taskID}
		}
		return fmt.Errorf("failed to delete task: %w", err)
	}

	entry := s.audit(ctx, board.ActionDeleted, stored, actorID, nil)
	s.publish(ctx, board.EventTaskDeleted, taskID)
	if entry != nil {
		s.publish(ctx, board.EventActivityLogged, entry)
	}

	return nil
}

// SmartAssign hands the task to the globally least-loaded user. When the
// task is already held by that user it reports changed=false and performs no
// mutation, no audit entry, and no broadcast.
func (s *Service) SmartAssign(ctx context.Context, taskID, actorID string) (*board.Task, bool, error) {
	stored, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		if board.IsNotFound(err) {
			return nil, false, &NotFoundError{TaskID: taskID}
		}
		return nil, false, fmt.Errorf("failed to load task: %w", err)
	}

	chosen, err := s.balancer.PickAssignee(ctx)
	if err != nil {
		return nil, false, err
	}

	if chosen.ID == stored.AssignedTo {
		return stored, false, nil
	}

	updated := *stored
	updated.AssignedTo = chosen.ID
	updated.UpdatedAtMs = nextVersion(stored.UpdatedAtMs)

	if err := s.applyUpdate(ctx, &updated, stored.UpdatedAtMs); err != nil {
		return nil, false, err
	}

	// Smart Assigned always carries the flat two-key detail shape,
	// regardless of how many fields changed.
	details := board.Details{
		"oldAssignedTo": s.assigneeEmail(ctx, stored.AssignedTo),
		"newAssignedTo": chosen.Email,
	}

	entry := s.audit(ctx, board.ActionSmartAssigned, &updated, actorID, details)
	s.publish(ctx, board.EventTaskUpdated, &updated)
	if entry != nil {
		s.publish(ctx, board.EventActivityLogged, entry)
	}

	return &updated, true, nil
}

// Get returns a task by ID.
func (s *Service) Get(ctx context.Context, taskID string) (*board.Task, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		if board.IsNotFound(err) {
			return nil, &NotFoundError{TaskID: taskID}
		}
		return nil, fmt.Errorf("failed to load task: %w", err)
	}
	return task, nil
}

// List returns all tasks on the board, newest first.
func (s *Service) List(ctx context.Context) ([]*board.Task, error) {
	return s.store.ListTasks(ctx)
}

// applyUpdate performs the conditional write and maps its failure modes onto
// the service error taxonomy.
func (s *Service) applyUpdate(ctx context.Context, updated *board.Task, expectedVersionMs int64) error {
	err := s.store.UpdateTaskIf(ctx, updated, expectedVersionMs)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, board.ErrStaleTask):
		current, getErr := s.store.GetTask(ctx, updated.ID)
		if getErr != nil {
			return fmt.Errorf("failed to reload task after conflict: %w", getErr)
		}
		return &ConflictError{Current: current}
	case errors.Is(err, board.ErrTitleTaken):
		return &validation.DuplicateTitleError{Title: updated.Title}
	case board.IsNotFound(err):
		return &NotFoundError{TaskID: updated.ID}
	default:
		return fmt.Errorf("failed to update task: %w", err)
	}
}

// audit appends an activity entry for a committed mutation. Auditing is
// never allowed to fail the mutation: an unresolvable actor skips the entry,
// any other failure is logged and swallowed.
func (s *Service) audit(ctx context.Context, action board.Action, task *board.Task, actorID string, details board.Details) *board.ActivityLogEntry {
	entry, err := s.recorder.Record(ctx, action, task, actorID, details)
	if err != nil {
		if errors.Is(err, activity.ErrActorNotResolved) {
			s.log.WithFields(log.Fields{"actor": actorID, "task": task.ID}).
				Warn("actor not resolved; mutation committed without audit entry")
		} else {
			s.log.WithError(err).WithField("task", task.ID).Error("failed to record activity")
		}
		return nil
	}
	return entry
}

// publish fans a committed mutation out to connected observers. Publishing
// is fire-and-forget: a failure is logged, never rolled back or retried.
func (s *Service) publish(ctx context.Context, name string, payload any) {
	if err := s.store.PublishEvent(ctx, name, payload); err != nil {
		s.log.WithError(err).WithField("event", name).Warn("event publish failed")
	}
}

// assigneeEmail resolves a user ID to an email for audit detail payloads.
// A missing or unreadable user reads as "Unknown" rather than failing the
// mutation that is being audited.
func (s *Service) assigneeEmail(ctx context.Context, userID string) string {
	if userID == "" {
		return "Unknown"
	}
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return "Unknown"
	}
	return user.Email
}

// nextVersion advances the version token strictly past the previous one even
// when the wall clock has not moved a full millisecond.
func nextVersion(prevMs int64) int64 {
	now := time.Now().UnixMilli()
	if now <= prevMs {
		return prevMs + 1
	}
	return now
}
