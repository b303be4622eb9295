package board

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestClient creates a test client connected to a miniredis instance
func setupTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	mr := miniredis.NewMiniRedis()
	err := mr.Start()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := NewClient(&redis.Options{Addr: mr.Addr()}, "test-board")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client, mr
}

func newTestUser(email string, createdAtMs int64) *User {
	return &User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		CreatedAtMs:  createdAtMs,
	}
}

func newTestTask(title, assignedTo, createdBy string) *Task {
	now := time.Now().UnixMilli()
	return &Task{
		ID:          uuid.New().String(),
		Title:       title,
		Status:      StatusTodo,
		Priority:    PriorityMedium,
		AssignedTo:  assignedTo,
		CreatedBy:   createdBy,
		CreatedAtMs: now,
		UpdatedAtMs: now,
	}
}

func TestNewClient(t *testing.T) {
	t.Run("creates client successfully", func(t *testing.T) {
		client, _ := setupTestClient(t)
		assert.NotNil(t, client)
		assert.Equal(t, "test-board", client.BoardName())
	})

	t.Run("rejects empty board name", func(t *testing.T) {
		_, err := NewClient(&redis.Options{Addr: "localhost:6379"}, "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "board name cannot be empty")
	})
}

func TestCreateUser(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	t.Run("creates and retrieves user", func(t *testing.T) {
		user := newTestUser("abc@gmail.com", 100)
		require.NoError(t, client.CreateUser(ctx, user))

		retrieved, err := client.GetUser(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, user.Email, retrieved.Email)
		assert.Equal(t, user.PasswordHash, retrieved.PasswordHash)
	})

	t.Run("rejects duplicate email case-insensitively", func(t *testing.T) {
		first := newTestUser("dup@gmail.com", 101)
		require.NoError(t, client.CreateUser(ctx, first))

		second := newTestUser("DUP@gmail.com", 102)
		err := client.CreateUser(ctx, second)
		assert.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("finds user by email", func(t *testing.T) {
		user := newTestUser("byemail@gmail.com", 103)
		require.NoError(t, client.CreateUser(ctx, user))

		retrieved, err := client.GetUserByEmail(ctx, "ByEmail@gmail.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, retrieved.ID)
	})

	t.Run("not found for unknown user", func(t *testing.T) {
		_, err := client.GetUser(ctx, uuid.New().String())
		assert.True(t, IsNotFound(err))

		_, err = client.GetUserByEmail(ctx, "ghost@gmail.com")
		assert.True(t, IsNotFound(err))
	})
}

func TestListUsersOrder(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	// Registration order must be preserved: it drives the assignment tie-break.
	a := newTestUser("a@gmail.com", 100)
	b := newTestUser("b@gmail.com", 200)
	c := newTestUser("c@gmail.com", 300)
	for _, u := range []*User{b, a, c} {
		require.NoError(t, client.CreateUser(ctx, u))
	}

	users, err := client.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "a@gmail.com", users[0].Email)
	assert.Equal(t, "b@gmail.com", users[1].Email)
	assert.Equal(t, "c@gmail.com", users[2].Email)
}

func TestCreateTask(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()
	creator := uuid.New().String()

	t.Run("creates valid task", func(t *testing.T) {
		task := newTestTask("Fix login bug", uuid.New().String(), creator)
		require.NoError(t, client.CreateTask(ctx, task))

		retrieved, err := client.GetTask(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, task.Title, retrieved.Title)
		assert.Equal(t, task.UpdatedAtMs, retrieved.UpdatedAtMs)
	})

	t.Run("rejects duplicate title case-insensitively", func(t *testing.T) {
		task := newTestTask("Design Homepage Banner", uuid.New().String(), creator)
		require.NoError(t, client.CreateTask(ctx, task))

		dup := newTestTask("design homepage banner", uuid.New().String(), creator)
		err := client.CreateTask(ctx, dup)
		assert.ErrorIs(t, err, ErrTitleTaken)

		// The losing task must not be observable.
		_, err = client.GetTask(ctx, dup.ID)
		assert.True(t, IsNotFound(err))
	})

	t.Run("rejects invalid task", func(t *testing.T) {
		task := newTestTask("Broken", uuid.New().String(), creator)
		task.Status = "Archived"
		assert.Error(t, client.CreateTask(ctx, task))
	})
}

func TestUpdateTaskIf(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()
	creator := uuid.New().String()

	t.Run("applies update on matching version", func(t *testing.T) {
		task := newTestTask("Develop User Profile Page", uuid.New().String(), creator)
		require.NoError(t, client.CreateTask(ctx, task))

		updated := *task
		updated.Status = StatusInProgress
		updated.UpdatedAtMs = task.UpdatedAtMs + 1
		require.NoError(t, client.UpdateTaskIf(ctx, &updated, task.UpdatedAtMs))

		retrieved, err := client.GetTask(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusInProgress, retrieved.Status)
		assert.Equal(t, task.UpdatedAtMs+1, retrieved.UpdatedAtMs)
	})

	t.Run("rejects stale version and leaves record unchanged", func(t *testing.T) {
		task := newTestTask("Prepare Marketing Email", uuid.New().String(), creator)
		require.NoError(t, client.CreateTask(ctx, task))

		// First writer wins.
		first := *task
		first.Priority = PriorityHigh
		first.UpdatedAtMs = task.UpdatedAtMs + 1
		require.NoError(t, client.UpdateTaskIf(ctx, &first, task.UpdatedAtMs))

		// Second writer still holds the original version token.
		second := *task
		second.Priority = PriorityLow
		second.UpdatedAtMs = task.UpdatedAtMs + 2
		err := client.UpdateTaskIf(ctx, &second, task.UpdatedAtMs)
		assert.ErrorIs(t, err, ErrStaleTask)

		retrieved, err := client.GetTask(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, first, *retrieved)
	})

	t.Run("renames re-claim the title index", func(t *testing.T) {
		task := newTestTask("Old Title", uuid.New().String(), creator)
		require.NoError(t, client.CreateTask(ctx, task))

		renamed := *task
		renamed.Title = "New Title"
		renamed.UpdatedAtMs = task.UpdatedAtMs + 1
		require.NoError(t, client.UpdateTaskIf(ctx, &renamed, task.UpdatedAtMs))

		owner, err := client.TitleOwner(ctx, "new title")
		require.NoError(t, err)
		assert.Equal(t, task.ID, owner)

		_, err = client.TitleOwner(ctx, "Old Title")
		assert.True(t, IsNotFound(err), "old title should be released")
	})

	t.Run("rename onto a held title fails", func(t *testing.T) {
		holder := newTestTask("Held Title", uuid.New().String(), creator)
		require.NoError(t, client.CreateTask(ctx, holder))

		task := newTestTask("Free Title", uuid.New().String(), creator)
		require.NoError(t, client.CreateTask(ctx, task))

		renamed := *task
		renamed.Title = "held title"
		renamed.UpdatedAtMs = task.UpdatedAtMs + 1
		err := client.UpdateTaskIf(ctx, &renamed, task.UpdatedAtMs)
		assert.ErrorIs(t, err, ErrTitleTaken)
	})

	t.Run("not found for missing task", func(t *testing.T) {
		task := newTestTask("Ghost", uuid.New().String(), creator)
		err := client.UpdateTaskIf(ctx, task, task.UpdatedAtMs)
		assert.True(t, IsNotFound(err))
	})
}

func TestDeleteTask(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()
	creator := uuid.New().String()

	t.Run("removes task and releases title", func(t *testing.T) {
		task := newTestTask("Plan Team Meeting", uuid.New().String(), creator)
		require.NoError(t, client.CreateTask(ctx, task))

		require.NoError(t, client.DeleteTask(ctx, task.ID))

		_, err := client.GetTask(ctx, task.ID)
		assert.True(t, IsNotFound(err))

		_, err = client.TitleOwner(ctx, "Plan Team Meeting")
		assert.True(t, IsNotFound(err))
	})

	t.Run("not found for missing task", func(t *testing.T) {
		err := client.DeleteTask(ctx, uuid.New().String())
		assert.True(t, IsNotFound(err))
	})

	t.Run("activity entries survive task deletion", func(t *testing.T) {
		task := newTestTask("Review Quarterly Goals", uuid.New().String(), creator)
		require.NoError(t, client.CreateTask(ctx, task))

		entry := &ActivityLogEntry{
			ID:               uuid.New().String(),
			Action:           ActionAdded,
			TaskID:           task.ID,
			TaskTitle:        task.Title,
			PerformedBy:      creator,
			PerformedByEmail: "abc@gmail.com",
			TimestampMs:      time.Now().UnixMilli(),
		}
		require.NoError(t, client.AppendActivity(ctx, entry))

		require.NoError(t, client.DeleteTask(ctx, task.ID))

		entries, err := client.RecentActivity(ctx, 20)
		require.NoError(t, err)
		require.NotEmpty(t, entries)
		assert.Equal(t, task.Title, entries[0].TaskTitle, "title snapshot must survive deletion")
	})
}

func TestCountActiveAssigned(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()
	creator := uuid.New().String()
	userA := uuid.New().String()
	userB := uuid.New().String()

	mkTask := func(title, assignee string, status Status) {
		task := newTestTask(title, assignee, creator)
		task.Status = status
		require.NoError(t, client.CreateTask(ctx, task))
	}

	mkTask("Task One", userA, StatusTodo)
	mkTask("Task Two", userA, StatusInProgress)
	mkTask("Task Three", userA, StatusDone)
	mkTask("Task Four", userB, StatusTodo)

	count, err := client.CountActiveAssigned(ctx, userA)
	require.NoError(t, err)
	assert.Equal(t, 2, count, "Done tasks must not count")

	count, err = client.CountActiveAssigned(ctx, userB)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = client.CountActiveAssigned(ctx, uuid.New().String())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestRecentActivity(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	appendEntry := func(title string, ts int64) {
		entry := &ActivityLogEntry{
			ID:               uuid.New().String(),
			Action:           ActionAdded,
			TaskID:           uuid.New().String(),
			TaskTitle:        title,
			PerformedBy:      uuid.New().String(),
			PerformedByEmail: "abc@gmail.com",
			TimestampMs:      ts,
		}
		require.NoError(t, client.AppendActivity(ctx, entry))
	}

	appendEntry("oldest", 100)
	appendEntry("middle", 200)
	appendEntry("newest", 300)

	t.Run("newest first", func(t *testing.T) {
		entries, err := client.RecentActivity(ctx, 20)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, "newest", entries[0].TaskTitle)
		assert.Equal(t, "oldest", entries[2].TaskTitle)
	})

	t.Run("respects limit", func(t *testing.T) {
		entries, err := client.RecentActivity(ctx, 2)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "newest", entries[0].TaskTitle)
	})

	t.Run("zero limit returns empty", func(t *testing.T) {
		entries, err := client.RecentActivity(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestPublishAndSubscribeEvents(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub, err := client.SubscribeEvents(ctx)
	require.NoError(t, err)
	defer sub.Close()

	task := newTestTask("Broadcast Me", uuid.New().String(), uuid.New().String())
	require.NoError(t, client.PublishEvent(ctx, EventTaskAdded, task))

	select {
	case event := <-sub.Events():
		require.NotNil(t, event)
		assert.Equal(t, EventTaskAdded, event.Name)
		assert.Contains(t, string(event.Payload), "Broadcast Me")
	case err := <-sub.Errors():
		t.Fatalf("unexpected subscription error: %v", err)
	case <-ctx.Done():
		t.Fatal("timed out waiting for event")
	}
}
