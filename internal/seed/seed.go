// Package seed loads demo users and tasks into a board. Seeding is
// idempotent: records that already exist are skipped, never overwritten.
package seed

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/dyluth/warren/internal/tasks"
	"github.com/dyluth/warren/internal/users"
	"github.com/dyluth/warren/internal/validation"
	"github.com/dyluth/warren/pkg/board"
)

type demoUser struct {
	Email    string
	Password string
}

type demoTask struct {
	Title         string
	Description   string
	Status        board.Status
	Priority      board.Priority
	AssigneeEmail string
}

var demoUsers = []demoUser{
	{Email: "abc@gmail.com", Password: "password123"},
	{Email: "xyz@gmail.com", Password: "password123"},
	{Email: "pqr@gmail.com", Password: "password123"},
	{Email: "mno@gmail.com", Password: "password123"},
}

var demoTasks = []demoTask{
	{
		Title:         "Design Homepage Banner",
		Description:   "Create a responsive banner for the landing page",
		Status:        board.StatusInProgress,
		Priority:      board.PriorityHigh,
		AssigneeEmail: "abc@gmail.com",
	},
	{
		Title:         "Fix Login Bug",
		Description:   "Users with mixed-case emails cannot sign in",
		Status:        board.StatusTodo,
		Priority:      board.PriorityHigh,
		AssigneeEmail: "xyz@gmail.com",
	},
	{
		Title:         "Write Unit Tests",
		Description:   "Cover the task update and smart assign paths",
		Status:        board.StatusTodo,
		Priority:      board.PriorityMedium,
		AssigneeEmail: "pqr@gmail.com",
	},
	{
		Title:         "Update Documentation",
		Description:   "Document the conflict handling flow",
		Status:        board.StatusTodo,
		Priority:      board.PriorityLow,
		AssigneeEmail: "mno@gmail.com",
	},
	{
		Title:         "Optimize Page Load Speed",
		Description:   "Audit bundle size and lazy-load the activity feed",
		Status:        board.StatusDone,
		Priority:      board.PriorityMedium,
		AssigneeEmail: "abc@gmail.com",
	},
	{
		Title:         "Prepare Marketing Email",
		Description:   "Draft the launch announcement",
		Status:        board.StatusTodo,
		Priority:      board.PriorityLow,
		AssigneeEmail: "xyz@gmail.com",
	},
}

// Apply loads the demo users and tasks through the regular service
// pipeline, so seeded records are indistinguishable from user-created ones.
// Existing users and tasks are left alone.
func Apply(ctx context.Context, userSvc *users.Service, taskSvc *tasks.Service, store *board.Client, logger *log.Logger) error {
	userIDs := make(map[string]string, len(demoUsers))

	for _, du := range demoUsers {
		user, err := userSvc.Register(ctx, du.Email, du.Password)
		if err != nil {
			if !errors.Is(err, users.ErrEmailTaken) {
				return fmt.Errorf("failed to seed user %s: %w", du.Email, err)
			}
			existing, lookupErr := store.GetUserByEmail(ctx, du.Email)
			if lookupErr != nil {
				return fmt.Errorf("failed to look up existing user %s: %w", du.Email, lookupErr)
			}
			userIDs[du.Email] = existing.ID
			logger.WithField("email", du.Email).Debug("user already present, skipping")
			continue
		}
		userIDs[du.Email] = user.ID
		logger.WithField("email", du.Email).Info("seeded user")
	}

	for _, dt := range demoTasks {
		assignee, ok := userIDs[dt.AssigneeEmail]
		if !ok {
			return fmt.Errorf("demo task %q references unknown user %s", dt.Title, dt.AssigneeEmail)
		}

		_, err := taskSvc.Create(ctx, tasks.CreateRequest{
			Title:       dt.Title,
			Description: dt.Description,
			Status:      dt.Status,
			Priority:    dt.Priority,
			AssignedTo:  assignee,
		}, assignee)
		if err != nil {
			var dup *validation.DuplicateTitleError
			if errors.As(err, &dup) {
				logger.WithField("title", dt.Title).Debug("task already present, skipping")
				continue
			}
			return fmt.Errorf("failed to seed task %q: %w", dt.Title, err)
		}
		logger.WithField("title", dt.Title).Info("seeded task")
	}

	return nil
}
