// Package board provides type-safe Go definitions and Redis schema patterns
// for the Warren shared task board.
//
// # Overview
//
// The board is the central shared state system where all Warren components
// (API server, CLI, seeder) interact via well-defined data structures stored
// in Redis. Many clients edit the same board concurrently; the store keeps
// their writes safe with per-record compare-and-set updates and keeps their
// views fresh by publishing every committed mutation to a Pub/Sub channel.
//
// # Core Concepts
//
// Tasks are the mutable cards on the board. Every task carries a version
// token (updated_at_ms) that strictly advances on each accepted mutation and
// fences concurrent writers: a write conditioned on a stale token is rejected
// rather than silently clobbering a change the writer never saw.
//
// Users are registered board members. They are referenced, never owned, by
// tasks and activity entries, and their registration order is stable - it
// drives the smart-assignment tie-break.
//
// ActivityLogEntries form the append-only audit trail. Each entry snapshots
// the task title and actor email as value copies at creation time, so the
// trail survives deletion of the task or user it describes.
//
// # Uniqueness Indexes
//
// Task titles are unique board-wide (case-insensitive) and emails are unique
// per board. Both constraints are enforced by index hashes claimed with
// HSETNX (creation) or inside the update transaction (rename), making the
// store the authoritative backstop rather than application-level checks.
//
// # Events
//
// Committed mutations fan out on a single Pub/Sub channel as named envelopes:
// taskAdded, taskUpdated, taskDeleted, activityLogged. Delivery is
// best-effort and at-most-once per connected observer; there is no backlog
// or replay, so observers re-fetch full state when they (re)connect.
//
// # Redis Schema
//
// All Redis keys follow the pattern: warren:{board_name}:{entity}:{uuid}
//
// Tasks: warren:{board_name}:task:{task_id}
// Task index: warren:{board_name}:tasks (ZSET by creation time)
// Title index: warren:{board_name}:titles (hash, lower(title) -> task ID)
// Users: warren:{board_name}:user:{user_id}
// User index: warren:{board_name}:users (ZSET by registration time)
// Email index: warren:{board_name}:emails (hash, lower(email) -> user ID)
// Activity: warren:{board_name}:activity:{entry_id}
// Activity feed: warren:{board_name}:activity (ZSET by timestamp)
//
// Pub/Sub channel: warren:{board_name}:events
//
// # Design Principles
//
// - Type Safety: all data structures have strong typing with validation methods
// - Optimistic Concurrency: conditional writes keyed on the version token
// - Auditability: denormalized snapshots outlive their referents
// - Isolation: board namespacing keeps multiple boards apart on one server
package board
