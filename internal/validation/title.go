// Package validation enforces the board's title rules: titles must be unique
// board-wide (case-insensitive) and must never collide with a column name.
package validation

import (
	"context"
	"fmt"
	"strings"

	"github.com/dyluth/warren/pkg/board"
)

// ReservedNameError reports a title that matches one of the board's column
// names (Todo, In Progress, Done).
type ReservedNameError struct {
	Title string
}

func (e *ReservedNameError) Error() string {
	return fmt.Sprintf("task title cannot be the same as a column name (Todo, In Progress, Done): %q", e.Title)
}

// DuplicateTitleError reports a title already held by another live task.
type DuplicateTitleError struct {
	Title string
}

func (e *DuplicateTitleError) Error() string {
	return fmt.Sprintf("a task with the title %q already exists", e.Title)
}

// reservedTitles holds the lowercased column names a task title may never equal.
var reservedTitles = map[string]bool{
	"todo":        true,
	"in progress": true,
	"done":        true,
}

// TitleValidator checks titles against the live board state. It is a
// fast-reject: the store's title index claim is the authoritative backstop
// for the narrow window between check and write.
type TitleValidator struct {
	store *board.Client
}

// NewTitleValidator creates a validator backed by the given board store.
func NewTitleValidator(store *board.Client) *TitleValidator {
	return &TitleValidator{store: store}
}

// ValidateTitle returns nil if the title is usable, a ReservedNameError if it
// matches a column name, or a DuplicateTitleError if another task holds it.
// excludingID exempts one task (the one being renamed) from the duplicate
// check; pass "" for creations.
func (v *TitleValidator) ValidateTitle(ctx context.Context, title, excludingID string) error {
	if reservedTitles[strings.ToLower(strings.TrimSpace(title))] {
		return &ReservedNameError{Title: title}
	}

	owner, err := v.store.TitleOwner(ctx, title)
	if err != nil {
		if board.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to check title availability: %w", err)
	}

	if owner != excludingID {
		return &DuplicateTitleError{Title: title}
	}

	return nil
}
