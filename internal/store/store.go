// ABOUTME: Store interface and data types for inbox-gateway persistence
// ABOUTME: Defines Agent, Thread, Message, Run structs and the Store interface

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// Agent liveness status values
const (
	AgentStatusOnline  = "online"
	AgentStatusOffline = "offline"
	AgentStatusUnknown = "unknown"
)

// Thread status values
const (
	ThreadStatusActive    = "active"
	ThreadStatusCompleted = "completed"
	ThreadStatusError     = "error"
)

// Message role values
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Run lifecycle states. Completed, failed, and cancelled are terminal;
// the gateway only ever moves a run forward through these.
const (
	RunStatusPending   = "pending"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
	RunStatusCancelled = "cancelled"
)

// Agent represents a callable backend agent. Rows are created and
// updated by the registry sync; the gateway treats them as read-only
// apart from health-status updates.
type Agent struct {
	ID          string
	Name        string
	Endpoint    string
	Icon        string
	Description string
	Status      string
	LastSeenAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Thread represents one conversation with a single agent.
type Thread struct {
	ID             string
	AgentID        string
	Title          string
	Status         string
	LastActivityAt time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ThreadView is a thread joined with its agent's display fields.
type ThreadView struct {
	Thread
	AgentName string
	AgentIcon string
}

// ThreadSummary is a thread with agent display fields and a preview of
// the latest message, used by the inbox listing and the daily digest.
type ThreadSummary struct {
	Thread
	AgentName       string
	AgentIcon       string
	LastMessage     string
	LastMessageRole string
	LastMessageAt   *time.Time
}

// Message is a single message within a thread. RunID is empty for user
// messages created outside a run and set for messages created during one.
type Message struct {
	ID        string
	ThreadID  string
	RunID     string
	Role      string
	Content   string
	Metadata  string
	CreatedAt time.Time
}

// Run tracks one gateway invocation against an agent.
type Run struct {
	ID            string
	ThreadID      string
	AgentID       string
	Status        string
	Error         string
	ProviderRunID string
	Metadata      string
	StartedAt     *time.Time
	FinishedAt    *time.Time
	CreatedAt     time.Time
}

// RunUpdate carries the fields written by a run status transition. The
// store applies it as a pure write; callers are responsible for only
// requesting forward transitions.
type RunUpdate struct {
	Status        string
	Error         string
	ProviderRunID string
	StartedAt     *time.Time
	FinishedAt    *time.Time
}

// AgentCount is a per-agent counter row used by digest rollups.
type AgentCount struct {
	AgentID   string
	AgentName string
	Count     int
}

// Store defines the persistence operations used by the gateway.
type Store interface {
	// Agents
	UpsertAgent(ctx context.Context, agent *Agent) error
	GetAgent(ctx context.Context, id string) (*Agent, error)
	ListAgents(ctx context.Context) ([]*Agent, error)
	SetAgentStatus(ctx context.Context, id, status string, seenAt *time.Time) error

	// Threads
	CreateThread(ctx context.Context, thread *Thread) error
	GetThread(ctx context.Context, id string) (*ThreadView, error)
	ListThreads(ctx context.Context, agentID string) ([]*ThreadSummary, error)
	TouchThread(ctx context.Context, id string) error

	// Messages
	AppendMessage(ctx context.Context, msg *Message) error
	ListMessages(ctx context.Context, threadID string) ([]*Message, error)

	// Runs
	CreateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	UpdateRun(ctx context.Context, id string, update RunUpdate) error

	// Digest aggregates
	CountThreadsCreatedSince(ctx context.Context, since time.Time) (int, error)
	CountActiveRunsSince(ctx context.Context, since time.Time) (int, error)
	CountAssistantMessagesSince(ctx context.Context, since time.Time) (int, error)
	ThreadCountsByAgent(ctx context.Context, since time.Time) ([]*AgentCount, error)
	AssistantReplyCountsByAgent(ctx context.Context, since time.Time) ([]*AgentCount, error)
	RecentActiveThreads(ctx context.Context, since time.Time, limit int) ([]*ThreadSummary, error)

	Close() error
}
