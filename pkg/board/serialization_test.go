package board

import (
	"strconv"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// toStringMap mimics what go-redis returns from HGetAll: every value as a string.
func toStringMap(t *testing.T, hash map[string]interface{}) map[string]string {
	t.Helper()
	out := make(map[string]string, len(hash))
	for k, v := range hash {
		switch val := v.(type) {
		case string:
			out[k] = val
		case int64:
			out[k] = strconv.FormatInt(val, 10)
		default:
			t.Fatalf("unexpected hash value type %T for field %q", v, k)
		}
	}
	return out
}

func TestTaskHashRoundTrip(t *testing.T) {
	task := validTask()

	hash := TaskToHash(task)
	restored, err := HashToTask(toStringMap(t, hash))
	require.NoError(t, err)

	assert.Equal(t, task, restored)
}

func TestHashToTaskRejectsBadTimestamps(t *testing.T) {
	hash := toStringMap(t, TaskToHash(validTask()))
	hash["updated_at_ms"] = "yesterday"

	_, err := HashToTask(hash)
	assert.Error(t, err)
}

func TestUserHashRoundTrip(t *testing.T) {
	user := &User{
		ID:           uuid.New().String(),
		Email:        "xyz@gmail.com",
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		CreatedAtMs:  1700000000123,
	}

	restored, err := HashToUser(toStringMap(t, UserToHash(user)))
	require.NoError(t, err)
	assert.Equal(t, user, restored)
}

func TestActivityHashRoundTrip(t *testing.T) {
	entry := &ActivityLogEntry{
		ID:               uuid.New().String(),
		Action:           ActionSmartAssigned,
		TaskID:           uuid.New().String(),
		TaskTitle:        "Design Homepage Banner",
		PerformedBy:      uuid.New().String(),
		PerformedByEmail: "abc@gmail.com",
		TimestampMs:      1700000000456,
		Details: Details{
			"oldAssignedTo": "xyz@gmail.com",
			"newAssignedTo": "mno@gmail.com",
		},
	}

	hash, err := ActivityToHash(entry)
	require.NoError(t, err)

	restored, err := HashToActivity(toStringMap(t, hash))
	require.NoError(t, err)

	assert.Equal(t, entry.ID, restored.ID)
	assert.Equal(t, entry.Action, restored.Action)
	assert.Equal(t, entry.TaskTitle, restored.TaskTitle)
	assert.Equal(t, entry.PerformedByEmail, restored.PerformedByEmail)
	assert.Equal(t, "xyz@gmail.com", restored.Details["oldAssignedTo"])
	assert.Equal(t, "mno@gmail.com", restored.Details["newAssignedTo"])
}

func TestActivityHashEmptyDetails(t *testing.T) {
	entry := &ActivityLogEntry{
		ID:               uuid.New().String(),
		Action:           ActionDeleted,
		TaskID:           uuid.New().String(),
		TaskTitle:        "Write API Documentation",
		PerformedBy:      uuid.New().String(),
		PerformedByEmail: "pqr@gmail.com",
		TimestampMs:      1700000000789,
	}

	hash, err := ActivityToHash(entry)
	require.NoError(t, err)
	assert.Equal(t, "", hash["details"])

	restored, err := HashToActivity(toStringMap(t, hash))
	require.NoError(t, err)
	assert.Nil(t, restored.Details)
}
