package board

import "fmt"

// Redis key pattern helpers
//
// All Redis keys and the Pub/Sub channel are namespaced by board name. The
// system currently runs a single global board, but the namespace field keeps
// the schema ready for multi-board partitioning without a protocol change.
//
// Key pattern: warren:{board_name}:{entity}:{uuid}
// Channel pattern: warren:{board_name}:events

// TaskKey returns the Redis key for a task hash.
// Pattern: warren:{board_name}:task:{task_id}
func TaskKey(boardName, taskID string) string {
	return fmt.Sprintf("warren:%s:task:%s", boardName, taskID)
}

// TasksKey returns the Redis key for the board's task index ZSET.
// Members are task IDs scored by creation time (milliseconds).
// Pattern: warren:{board_name}:tasks
func TasksKey(boardName string) string {
	return fmt.Sprintf("warren:%s:tasks", boardName)
}

// TitleIndexKey returns the Redis key for the title uniqueness index hash.
// Keys are lowercased titles, values are owning task IDs. The index is the
// authoritative backstop for board-wide title uniqueness.
// Pattern: warren:{board_name}:titles
func TitleIndexKey(boardName string) string {
	return fmt.Sprintf("warren:%s:titles", boardName)
}

// UserKey returns the Redis key for a user hash.
// Pattern: warren:{board_name}:user:{user_id}
func UserKey(boardName, userID string) string {
	return fmt.Sprintf("warren:%s:user:%s", boardName, userID)
}

// UsersKey returns the Redis key for the user index ZSET.
// Members are user IDs scored by registration time (milliseconds), which
// fixes the board's user enumeration order.
// Pattern: warren:{board_name}:users
func UsersKey(boardName string) string {
	return fmt.Sprintf("warren:%s:users", boardName)
}

// EmailIndexKey returns the Redis key for the email uniqueness index hash.
// Keys are lowercased emails, values are owning user IDs.
// Pattern: warren:{board_name}:emails
func EmailIndexKey(boardName string) string {
	return fmt.Sprintf("warren:%s:emails", boardName)
}

// ActivityKey returns the Redis key for an activity log entry hash.
// Pattern: warren:{board_name}:activity:{entry_id}
func ActivityKey(boardName, entryID string) string {
	return fmt.Sprintf("warren:%s:activity:%s", boardName, entryID)
}

// ActivityFeedKey returns the Redis key for the activity feed ZSET.
// Members are entry IDs scored by timestamp (milliseconds), enabling
// newest-first retrieval.
// Pattern: warren:{board_name}:activity
func ActivityFeedKey(boardName string) string {
	return fmt.Sprintf("warren:%s:activity", boardName)
}

// EventsChannel returns the Pub/Sub channel name for board events.
// Committed mutations and audit entries fan out to all subscribers here.
// Pattern: warren:{board_name}:events
func EventsChannel(boardName string) string {
	return fmt.Sprintf("warren:%s:events", boardName)
}
