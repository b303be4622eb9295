package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Sentinel errors surfaced by conditional store operations.
var (
	// ErrTitleTaken is returned when another task already owns the
	// (case-insensitive) title a write tried to claim.
	ErrTitleTaken = errors.New("task title already in use")

	// ErrEmailTaken is returned when another user already owns the email a
	// registration tried to claim.
	ErrEmailTaken = errors.New("email already registered")

	// ErrStaleTask is returned by UpdateTaskIf when the stored task's version
	// no longer matches the expected one, either at check time or because a
	// concurrent writer slipped in before the transaction committed.
	ErrStaleTask = errors.New("task changed since it was read")
)

// Client provides board-scoped Redis operations for the Warren store.
// All keys and channels are automatically namespaced with the board name.
// The client is thread-safe and can be used concurrently from multiple goroutines.
type Client struct {
	rdb       *redis.Client
	boardName string
}

// NewClient creates a new board client for the specified board.
// The client automatically namespaces all keys and channels with the board name.
func NewClient(redisOpts *redis.Options, boardName string) (*Client, error) {
	if boardName == "" {
		return nil, fmt.Errorf("board name cannot be empty")
	}

	return &Client{
		rdb:       redis.NewClient(redisOpts),
		boardName: boardName,
	}, nil
}

// Close closes the Redis connection. Implements io.Closer.
// After calling Close(), the client should not be used.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// BoardName returns the board namespace this client operates on.
func (c *Client) BoardName() string {
	return c.boardName
}

// CreateUser writes a user to Redis after atomically claiming their email in
// the email index. Returns ErrEmailTaken if the email is already registered.
func (c *Client) CreateUser(ctx context.Context, u *User) error {
	if err := u.Validate(); err != nil {
		return fmt.Errorf("invalid user: %w", err)
	}

	email := strings.ToLower(u.Email)
	claimed, err := c.rdb.HSetNX(ctx, EmailIndexKey(c.boardName), email, u.ID).Result()
	if err != nil {
		return fmt.Errorf("failed to claim email: %w", err)
	}
	if !claimed {
		return ErrEmailTaken
	}

	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, UserKey(c.boardName, u.ID), UserToHash(u))
	pipe.ZAdd(ctx, UsersKey(c.boardName), redis.Z{Score: float64(u.CreatedAtMs), Member: u.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write user to Redis: %w", err)
	}

	return nil
}

// GetUser retrieves a user by ID.
// Returns (nil, redis.Nil) if the user doesn't exist.
// Use IsNotFound() to check for not-found errors.
func (c *Client) GetUser(ctx context.Context, userID string) (*User, error) {
	hashData, err := c.rdb.HGetAll(ctx, UserKey(c.boardName, userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read user from Redis: %w", err)
	}

	// HGetAll returns an empty map for non-existent keys
	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	return HashToUser(hashData)
}

// GetUserByEmail retrieves a user via the email index.
// Returns (nil, redis.Nil) if no user owns the email.
func (c *Client) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	userID, err := c.rdb.HGet(ctx, EmailIndexKey(c.boardName), strings.ToLower(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, redis.Nil
		}
		return nil, fmt.Errorf("failed to read email index: %w", err)
	}

	return c.GetUser(ctx, userID)
}

// ListUsers returns all registered users in registration order.
// The order is stable: it drives the smart-assignment tie-break.
func (c *Client) ListUsers(ctx context.Context) ([]*User, error) {
	ids, err := c.rdb.ZRange(ctx, UsersKey(c.boardName), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read user index: %w", err)
	}

	users := make([]*User, 0, len(ids))
	for _, id := range ids {
		user, err := c.GetUser(ctx, id)
		if err != nil {
			if IsNotFound(err) {
				// Index member without a hash: deleted mid-listing, skip.
				continue
			}
			return nil, err
		}
		users = append(users, user)
	}

	return users, nil
}

// CreateTask writes a task to Redis after atomically claiming its title in
// the title index. Returns ErrTitleTaken if another task owns the title.
// The title index claim is the authoritative backstop behind the validation
// engine's fast-reject check.
func (c *Client) CreateTask(ctx context.Context, t *Task) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("invalid task: %w", err)
	}

	lowerTitle := strings.ToLower(t.Title)
	claimed, err := c.rdb.HSetNX(ctx, TitleIndexKey(c.boardName), lowerTitle, t.ID).Result()
	if err != nil {
		return fmt.Errorf("failed to claim title: %w", err)
	}
	if !claimed {
		owner, err := c.rdb.HGet(ctx, TitleIndexKey(c.boardName), lowerTitle).Result()
		if err != nil {
			return fmt.Errorf("failed to read title index: %w", err)
		}
		if owner != t.ID {
			return ErrTitleTaken
		}
	}

	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, TaskKey(c.boardName, t.ID), TaskToHash(t))
	pipe.ZAdd(ctx, TasksKey(c.boardName), redis.Z{Score: float64(t.CreatedAtMs), Member: t.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write task to Redis: %w", err)
	}

	return nil
}

// GetTask retrieves a task by ID.
// Returns (nil, redis.Nil) if the task doesn't exist.
func (c *Client) GetTask(ctx context.Context, taskID string) (*Task, error) {
	hashData, err := c.rdb.HGetAll(ctx, TaskKey(c.boardName, taskID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read task from Redis: %w", err)
	}

	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	return HashToTask(hashData)
}

// ListTasks returns all tasks on the board, newest first.
func (c *Client) ListTasks(ctx context.Context) ([]*Task, error) {
	ids, err := c.rdb.ZRevRange(ctx, TasksKey(c.boardName), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read task index: %w", err)
	}

	tasks := make([]*Task, 0, len(ids))
	for _, id := range ids {
		task, err := c.GetTask(ctx, id)
		if err != nil {
			if IsNotFound(err) {
				continue
			}
			return nil, err
		}
		tasks = append(tasks, task)
	}

	return tasks, nil
}

// UpdateTaskIf replaces a stored task if and only if its current version
// token matches expectedUpdatedAtMs. The compare-and-set runs as a Redis
// WATCH/MULTI transaction over the task hash and the title index, so a
// concurrent writer between read and write surfaces as ErrStaleTask instead
// of a silent clobber. Title renames re-claim the title index atomically and
// return ErrTitleTaken when the new title is owned by another task.
//
// Returns redis.Nil if the task doesn't exist.
func (c *Client) UpdateTaskIf(ctx context.Context, t *Task, expectedUpdatedAtMs int64) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("invalid task: %w", err)
	}

	taskKey := TaskKey(c.boardName, t.ID)
	titlesKey := TitleIndexKey(c.boardName)

	err := c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		hashData, err := tx.HGetAll(ctx, taskKey).Result()
		if err != nil {
			return err
		}
		if len(hashData) == 0 {
			return redis.Nil
		}

		stored, err := HashToTask(hashData)
		if err != nil {
			return err
		}
		if stored.UpdatedAtMs != expectedUpdatedAtMs {
			return ErrStaleTask
		}

		oldLower := strings.ToLower(stored.Title)
		newLower := strings.ToLower(t.Title)
		if oldLower != newLower {
			owner, err := tx.HGet(ctx, titlesKey, newLower).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			if err == nil && owner != t.ID {
				return ErrTitleTaken
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if oldLower != newLower {
				pipe.HDel(ctx, titlesKey, oldLower)
				pipe.HSet(ctx, titlesKey, newLower, t.ID)
			}
			pipe.HSet(ctx, taskKey, TaskToHash(t))
			return nil
		})
		return err
	}, taskKey, titlesKey)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.TxFailedErr):
		return ErrStaleTask
	case errors.Is(err, ErrStaleTask), errors.Is(err, ErrTitleTaken), errors.Is(err, redis.Nil):
		return err
	default:
		return fmt.Errorf("failed to update task in Redis: %w", err)
	}
}

// DeleteTask removes a task and its index entries.
// Returns redis.Nil if the task doesn't exist. Activity log entries
// referencing the task are left untouched.
func (c *Client) DeleteTask(ctx context.Context, taskID string) error {
	task, err := c.GetTask(ctx, taskID)
	if err != nil {
		if IsNotFound(err) {
			return redis.Nil
		}
		return err
	}

	pipe := c.rdb.TxPipeline()
	pipe.Del(ctx, TaskKey(c.boardName, taskID))
	pipe.ZRem(ctx, TasksKey(c.boardName), taskID)
	pipe.HDel(ctx, TitleIndexKey(c.boardName), strings.ToLower(task.Title))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete task from Redis: %w", err)
	}

	return nil
}

// TitleOwner returns the ID of the task owning the given title, matching
// case-insensitively. Returns ("", redis.Nil) if no task owns the title.
func (c *Client) TitleOwner(ctx context.Context, title string) (string, error) {
	owner, err := c.rdb.HGet(ctx, TitleIndexKey(c.boardName), strings.ToLower(title)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", redis.Nil
		}
		return "", fmt.Errorf("failed to read title index: %w", err)
	}
	return owner, nil
}

// CountActiveAssigned counts tasks assigned to a user whose status is not
// Done. One call per user keeps smart assignment at O(users) counting
// queries, as the balancer expects.
func (c *Client) CountActiveAssigned(ctx context.Context, userID string) (int, error) {
	ids, err := c.rdb.ZRange(ctx, TasksKey(c.boardName), 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read task index: %w", err)
	}

	count := 0
	for _, id := range ids {
		fields, err := c.rdb.HMGet(ctx, TaskKey(c.boardName, id), "assigned_to", "status").Result()
		if err != nil {
			return 0, fmt.Errorf("failed to read task fields: %w", err)
		}
		assignedTo, _ := fields[0].(string)
		status, _ := fields[1].(string)
		if assignedTo == userID && Status(status) != StatusDone {
			count++
		}
	}

	return count, nil
}

// AppendActivity writes an immutable activity log entry. Entries are never
// mutated or deleted by normal operation.
func (c *Client) AppendActivity(ctx context.Context, e *ActivityLogEntry) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("invalid activity entry: %w", err)
	}

	hash, err := ActivityToHash(e)
	if err != nil {
		return fmt.Errorf("failed to serialize activity entry: %w", err)
	}

	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, ActivityKey(c.boardName, e.ID), hash)
	pipe.ZAdd(ctx, ActivityFeedKey(c.boardName), redis.Z{Score: float64(e.TimestampMs), Member: e.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write activity entry to Redis: %w", err)
	}

	return nil
}

// RecentActivity returns up to limit activity entries, newest first.
func (c *Client) RecentActivity(ctx context.Context, limit int) ([]*ActivityLogEntry, error) {
	if limit <= 0 {
		return []*ActivityLogEntry{}, nil
	}

	ids, err := c.rdb.ZRevRange(ctx, ActivityFeedKey(c.boardName), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read activity feed: %w", err)
	}

	entries := make([]*ActivityLogEntry, 0, len(ids))
	for _, id := range ids {
		hashData, err := c.rdb.HGetAll(ctx, ActivityKey(c.boardName, id)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read activity entry: %w", err)
		}
		if len(hashData) == 0 {
			continue
		}
		entry, err := HashToActivity(hashData)
		if err != nil {
			return nil, fmt.Errorf("failed to deserialize activity entry: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// PublishEvent publishes a named event to the board events channel.
// Delivery is best-effort, at-most-once per connected observer; there is no
// replay for observers that connect later.
func (c *Client) PublishEvent(ctx context.Context, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	eventJSON, err := json.Marshal(Event{Name: name, Payload: data})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := c.rdb.Publish(ctx, EventsChannel(c.boardName), eventJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// Subscription represents an active Pub/Sub subscription to board events.
// Caller must call Close() when done to clean up resources.
type Subscription struct {
	events <-chan *Event
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of board events.
// The channel will be closed when the subscription is closed or the context is cancelled.
func (s *Subscription) Events() <-chan *Event {
	return s.events
}

// Errors returns the channel of subscription errors.
// Errors include JSON unmarshaling failures and other non-fatal issues.
// The subscription continues after errors - messages are skipped.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription and cleans up resources. Implements io.Closer.
// Safe to call multiple times - subsequent calls are no-ops.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribeEvents subscribes to board events for this board.
// Returns a Subscription that delivers full event envelopes.
// Caller must call subscription.Close() when done.
// Context cancellation also stops the subscription.
//
// Events are delivered on a buffered channel (size 10) to prevent blocking.
// If the subscriber is too slow, events may be dropped by Redis Pub/Sub
// (at-most-once delivery).
func (c *Client) SubscribeEvents(ctx context.Context) (*Subscription, error) {
	pubsub := c.rdb.Subscribe(ctx, EventsChannel(c.boardName))

	eventsChan := make(chan *Event, 10)
	errorsChan := make(chan error, 10)

	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal board event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- &event:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}

// IsNotFound returns true if the error is a Redis "key not found" error (redis.Nil).
// Use this to check if GetTask, GetUser, or TitleOwner returned "not found".
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}
