// Package assign implements the board's smart-assignment balancer: it hands
// a task to the user carrying the fewest non-Done tasks across the whole
// board.
package assign

import (
	"context"
	"errors"
	"fmt"

	"github.com/dyluth/warren/pkg/board"
)

// ErrNoEligibleUser is returned when the board has no registered users to
// assign a task to.
var ErrNoEligibleUser = errors.New("no users available for assignment")

// Balancer picks the least-loaded user for smart assignment.
type Balancer struct {
	store *board.Client
}

// NewBalancer creates a Balancer backed by the given board store.
func NewBalancer(store *board.Client) *Balancer {
	return &Balancer{store: store}
}

// PickAssignee returns the user with the fewest assigned tasks whose status
// is not Done. Ties break to the user encountered first in registration
// order; there is no secondary tie-break. The counting is read-then-decide
// without locking the counted set: under heavy concurrent assignment the
// result can mis-balance but never points at a non-user.
func (b *Balancer) PickAssignee(ctx context.Context) (*board.User, error) {
	users, err := b.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	if len(users) == 0 {
		return nil, ErrNoEligibleUser
	}

	var best *board.User
	bestCount := 0
	for _, user := range users {
		count, err := b.store.CountActiveAssigned(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count active tasks for %s: %w", user.ID, err)
		}
		// Strict less-than keeps the first-seen user on ties.
		if best == nil || count < bestCount {
			best = user
			bestCount = count
		}
	}

	return best, nil
}
