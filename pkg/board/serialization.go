package board

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Serialization helpers for converting between Go structs and Redis hashes
//
// Redis stores data as string-to-string maps (hashes). The open details map
// on activity entries is JSON-encoded into a single hash field. This provides
// a balance between queryability (individual fields) and flexibility
// (action-specific structures).

// TaskToHash converts a Task struct to a Redis hash format.
func TaskToHash(t *Task) map[string]interface{} {
	return map[string]interface{}{
		"id":            t.ID,
		"title":         t.Title,
		"description":   t.Description,
		"status":        string(t.Status),
		"priority":      string(t.Priority),
		"assigned_to":   t.AssignedTo,
		"created_by":    t.CreatedBy,
		"created_at_ms": t.CreatedAtMs,
		"updated_at_ms": t.UpdatedAtMs,
	}
}

// HashToTask converts a Redis hash to a Task struct.
func HashToTask(hash map[string]string) (*Task, error) {
	createdAtMs, err := strconv.ParseInt(hash["created_at_ms"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at_ms field: %w", err)
	}

	updatedAtMs, err := strconv.ParseInt(hash["updated_at_ms"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid updated_at_ms field: %w", err)
	}

	task := &Task{
		ID:          hash["id"],
		Title:       hash["title"],
		Description: hash["description"],
		Status:      Status(hash["status"]),
		Priority:    Priority(hash["priority"]),
		AssignedTo:  hash["assigned_to"],
		CreatedBy:   hash["created_by"],
		CreatedAtMs: createdAtMs,
		UpdatedAtMs: updatedAtMs,
	}

	return task, nil
}

// UserToHash converts a User struct to a Redis hash format.
func UserToHash(u *User) map[string]interface{} {
	return map[string]interface{}{
		"id":            u.ID,
		"email":         u.Email,
		"password_hash": u.PasswordHash,
		"created_at_ms": u.CreatedAtMs,
	}
}

// HashToUser converts a Redis hash to a User struct.
func HashToUser(hash map[string]string) (*User, error) {
	createdAtMs, err := strconv.ParseInt(hash["created_at_ms"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at_ms field: %w", err)
	}

	user := &User{
		ID:           hash["id"],
		Email:        hash["email"],
		PasswordHash: hash["password_hash"],
		CreatedAtMs:  createdAtMs,
	}

	return user, nil
}

// ActivityToHash converts an ActivityLogEntry to a Redis hash format.
// The details map is JSON-encoded into a single field.
func ActivityToHash(e *ActivityLogEntry) (map[string]interface{}, error) {
	detailsJSON := ""
	if len(e.Details) > 0 {
		data, err := json.Marshal(e.Details)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal details: %w", err)
		}
		detailsJSON = string(data)
	}

	hash := map[string]interface{}{
		"id":                 e.ID,
		"action":             string(e.Action),
		"task_id":            e.TaskID,
		"task_title":         e.TaskTitle,
		"performed_by":       e.PerformedBy,
		"performed_by_email": e.PerformedByEmail,
		"timestamp_ms":       e.TimestampMs,
		"details":            detailsJSON,
	}

	return hash, nil
}

// HashToActivity converts a Redis hash to an ActivityLogEntry.
// JSON-decoded detail values come back as generic types (map[string]any for
// field changes, string for flat values).
func HashToActivity(hash map[string]string) (*ActivityLogEntry, error) {
	timestampMs, err := strconv.ParseInt(hash["timestamp_ms"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp_ms field: %w", err)
	}

	var details Details
	if detailsJSON := hash["details"]; detailsJSON != "" {
		if err := json.Unmarshal([]byte(detailsJSON), &details); err != nil {
			return nil, fmt.Errorf("failed to unmarshal details: %w", err)
		}
	}

	entry := &ActivityLogEntry{
		ID:               hash["id"],
		Action:           Action(hash["action"]),
		TaskID:           hash["task_id"],
		TaskTitle:        hash["task_title"],
		PerformedBy:      hash["performed_by"],
		PerformedByEmail: hash["performed_by_email"],
		TimestampMs:      timestampMs,
		Details:          details,
	}

	return entry, nil
}
