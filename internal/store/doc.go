// Package store provides persistent storage for the gateway using SQLite.
//
// # Data Models
//
//   - Agent: callable backend agents, synced from the registry file
//   - Thread: one conversation between a user and a single agent
//   - Message: individual messages (user, assistant, system) within a thread
//   - Run: one gateway invocation against an agent, with a lifecycle status
//
// Run status moves forward only: pending -> running -> completed, or to
// failed/cancelled from either non-terminal state. The store applies
// transitions as pure writes (UpdateRun); enforcing the state machine is
// the run controller's job.
//
// # SQLite Configuration
//
// The store uses SQLite with WAL mode for concurrent reads:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// Timestamps are stored as RFC3339Nano UTC strings so that message
// ordering within a thread (an invariant the agent history depends on)
// holds at sub-second granularity.
//
// # Error Handling
//
// ErrNotFound is returned when a requested entity does not exist. All
// methods accept context.Context for cancellation support.
//
// # Testing
//
// Use NewSQLiteStore with a t.TempDir() path for integration tests.
package store
