// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides agent/thread/message/run persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS agents (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			endpoint TEXT NOT NULL,
			icon TEXT,
			description TEXT,
			status TEXT NOT NULL DEFAULT 'unknown',
			last_seen_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS threads (
			id TEXT PRIMARY KEY,
			agent_id TEXT NOT NULL REFERENCES agents(id),
			title TEXT,
			status TEXT NOT NULL DEFAULT 'active',
			last_activity_at DATETIME NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_threads_last_activity ON threads(last_activity_at);

		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			thread_id TEXT NOT NULL REFERENCES threads(id),
			agent_id TEXT NOT NULL REFERENCES agents(id),
			status TEXT NOT NULL DEFAULT 'pending',
			error TEXT,
			provider_run_id TEXT,
			metadata TEXT,
			started_at DATETIME,
			finished_at DATETIME,
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_runs_thread ON runs(thread_id);

		CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			thread_id TEXT NOT NULL REFERENCES threads(id),
			run_id TEXT REFERENCES runs(id),
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			metadata TEXT,
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_messages_thread_created ON messages(thread_id, created_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

// Close closes the underlying database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Timestamps are stored as fixed-width RFC 3339 strings with full
// nanosecond precision. Nano precision matters: messages within a
// thread are ordered by created_at, and a user message and the
// assistant reply routinely land in the same second. The width must be
// fixed because SQLite compares these columns as strings, and
// RFC3339Nano's trailing-zero truncation would sort ".12Z" after
// ".123Z".
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", value, err)
	}
	return t, nil
}

// nullable returns nil for empty strings so optional columns store NULL
func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func scanNullableTime(value sql.NullString) (*time.Time, error) {
	if !value.Valid {
		return nil, nil
	}
	t, err := parseTime(value.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UpsertAgent inserts an agent or updates its registry-owned fields,
// preserving liveness status and last_seen_at on update.
func (s *SQLiteStore) UpsertAgent(ctx context.Context, agent *Agent) error {
	now := time.Now()
	if agent.Status == "" {
		agent.Status = AgentStatusUnknown
	}
	if agent.CreatedAt.IsZero() {
		agent.CreatedAt = now
	}
	agent.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agents (id, name, endpoint, icon, description, status, last_seen_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			endpoint = excluded.endpoint,
			icon = excluded.icon,
			description = excluded.description,
			updated_at = excluded.updated_at`,
		agent.ID,
		agent.Name,
		agent.Endpoint,
		nullable(agent.Icon),
		nullable(agent.Description),
		agent.Status,
		nullableTime(agent.LastSeenAt),
		formatTime(agent.CreatedAt),
		formatTime(agent.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upserting agent: %w", err)
	}
	return nil
}

// GetAgent retrieves an agent by ID. Returns ErrNotFound if it doesn't exist.
func (s *SQLiteStore) GetAgent(ctx context.Context, id string) (*Agent, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, endpoint, icon, description, status, last_seen_at, created_at, updated_at
		FROM agents WHERE id = ?`, id)

	agent, err := scanAgent(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting agent: %w", err)
	}
	return agent, nil
}

// ListAgents returns all agents ordered by name.
func (s *SQLiteStore) ListAgents(ctx context.Context) ([]*Agent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, endpoint, icon, description, status, last_seen_at, created_at, updated_at
		FROM agents ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing agents: %w", err)
	}
	defer rows.Close()

	var agents []*Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning agent: %w", err)
		}
		agents = append(agents, agent)
	}
	return agents, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(row rowScanner) (*Agent, error) {
	var agent Agent
	var icon, description, lastSeenAt sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&agent.ID, &agent.Name, &agent.Endpoint, &icon, &description,
		&agent.Status, &lastSeenAt, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	agent.Icon = icon.String
	agent.Description = description.String
	if agent.LastSeenAt, err = scanNullableTime(lastSeenAt); err != nil {
		return nil, err
	}
	if agent.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if agent.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &agent, nil
}

// SetAgentStatus updates an agent's liveness status. seenAt is written
// to last_seen_at only when non-nil (health checks pass it only on
// success so a failed probe keeps the last known sighting).
func (s *SQLiteStore) SetAgentStatus(ctx context.Context, id, status string, seenAt *time.Time) error {
	var result sql.Result
	var err error
	if seenAt != nil {
		result, err = s.db.ExecContext(ctx,
			`UPDATE agents SET status = ?, last_seen_at = ?, updated_at = ? WHERE id = ?`,
			status, formatTime(*seenAt), formatTime(time.Now()), id)
	} else {
		result, err = s.db.ExecContext(ctx,
			`UPDATE agents SET status = ?, updated_at = ? WHERE id = ?`,
			status, formatTime(time.Now()), id)
	}
	if err != nil {
		return fmt.Errorf("updating agent status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateThread inserts a new thread.
func (s *SQLiteStore) CreateThread(ctx context.Context, thread *Thread) error {
	now := time.Now()
	if thread.CreatedAt.IsZero() {
		thread.CreatedAt = now
	}
	if thread.UpdatedAt.IsZero() {
		thread.UpdatedAt = now
	}
	if thread.LastActivityAt.IsZero() {
		thread.LastActivityAt = now
	}
	if thread.Status == "" {
		thread.Status = ThreadStatusActive
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO threads (id, agent_id, title, status, last_activity_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		thread.ID,
		thread.AgentID,
		nullable(thread.Title),
		thread.Status,
		formatTime(thread.LastActivityAt),
		formatTime(thread.CreatedAt),
		formatTime(thread.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("creating thread: %w", err)
	}
	return nil
}

// GetThread retrieves a thread joined with its agent's display fields.
// Returns ErrNotFound if it doesn't exist.
func (s *SQLiteStore) GetThread(ctx context.Context, id string) (*ThreadView, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT t.id, t.agent_id, t.title, t.status, t.last_activity_at, t.created_at, t.updated_at,
		       a.name, a.icon
		FROM threads t
		INNER JOIN agents a ON a.id = t.agent_id
		WHERE t.id = ?`, id)

	var view ThreadView
	var title, agentIcon sql.NullString
	var lastActivityAt, createdAt, updatedAt string

	err := row.Scan(&view.ID, &view.AgentID, &title, &view.Status,
		&lastActivityAt, &createdAt, &updatedAt, &view.AgentName, &agentIcon)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting thread: %w", err)
	}

	view.Title = title.String
	view.AgentIcon = agentIcon.String
	if view.LastActivityAt, err = parseTime(lastActivityAt); err != nil {
		return nil, err
	}
	if view.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if view.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &view, nil
}

const threadSummaryQuery = `
	SELECT t.id, t.agent_id, t.title, t.status, t.last_activity_at, t.created_at, t.updated_at,
	       a.name, a.icon,
	       last_msg.content, last_msg.role, last_msg.created_at
	FROM threads t
	INNER JOIN agents a ON a.id = t.agent_id
	LEFT JOIN (
		SELECT thread_id, content, role, MAX(created_at) AS created_at
		FROM messages
		GROUP BY thread_id
	) last_msg ON last_msg.thread_id = t.id`

// ListThreads returns all threads ordered by most recent activity, each
// with its agent's display fields and latest message preview. When
// agentID is non-empty only that agent's threads are returned.
func (s *SQLiteStore) ListThreads(ctx context.Context, agentID string) ([]*ThreadSummary, error) {
	query := threadSummaryQuery
	args := []any{}
	if agentID != "" {
		query += ` WHERE t.agent_id = ?`
		args = append(args, agentID)
	}
	query += ` ORDER BY t.last_activity_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing threads: %w", err)
	}
	defer rows.Close()

	return scanThreadSummaries(rows)
}

// RecentActiveThreads returns up to limit threads active since the
// given time, most recent first. Used by the daily digest.
func (s *SQLiteStore) RecentActiveThreads(ctx context.Context, since time.Time, limit int) ([]*ThreadSummary, error) {
	query := threadSummaryQuery +
		` WHERE t.last_activity_at >= ? ORDER BY t.last_activity_at DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, formatTime(since), limit)
	if err != nil {
		return nil, fmt.Errorf("listing recent threads: %w", err)
	}
	defer rows.Close()

	return scanThreadSummaries(rows)
}

func scanThreadSummaries(rows *sql.Rows) ([]*ThreadSummary, error) {
	var summaries []*ThreadSummary
	for rows.Next() {
		var summary ThreadSummary
		var title, agentIcon, lastMessage, lastMessageRole, lastMessageAt sql.NullString
		var lastActivityAt, createdAt, updatedAt string

		err := rows.Scan(&summary.ID, &summary.AgentID, &title, &summary.Status,
			&lastActivityAt, &createdAt, &updatedAt,
			&summary.AgentName, &agentIcon,
			&lastMessage, &lastMessageRole, &lastMessageAt)
		if err != nil {
			return nil, fmt.Errorf("scanning thread summary: %w", err)
		}

		summary.Title = title.String
		summary.AgentIcon = agentIcon.String
		summary.LastMessage = lastMessage.String
		summary.LastMessageRole = lastMessageRole.String
		if summary.LastMessageAt, err = scanNullableTime(lastMessageAt); err != nil {
			return nil, err
		}
		if summary.LastActivityAt, err = parseTime(lastActivityAt); err != nil {
			return nil, err
		}
		if summary.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if summary.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		summaries = append(summaries, &summary)
	}
	return summaries, rows.Err()
}

// TouchThread bumps a thread's last_activity_at and updated_at to now.
func (s *SQLiteStore) TouchThread(ctx context.Context, id string) error {
	now := formatTime(time.Now())
	result, err := s.db.ExecContext(ctx,
		`UPDATE threads SET last_activity_at = ?, updated_at = ? WHERE id = ?`, now, now, id)
	if err != nil {
		return fmt.Errorf("touching thread: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendMessage inserts a message. The caller supplies the ID; the
// store does not deduplicate.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, thread_id, run_id, role, content, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		msg.ID,
		msg.ThreadID,
		nullable(msg.RunID),
		msg.Role,
		msg.Content,
		nullable(msg.Metadata),
		formatTime(msg.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("appending message: %w", err)
	}
	return nil
}

// ListMessages returns all messages in a thread ascending by created_at.
// This ordering is what the gateway sends to agents as conversation history.
func (s *SQLiteStore) ListMessages(ctx context.Context, threadID string) ([]*Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, thread_id, run_id, role, content, metadata, created_at
		FROM messages WHERE thread_id = ? ORDER BY created_at ASC`, threadID)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		var msg Message
		var runID, metadata sql.NullString
		var createdAt string

		if err := rows.Scan(&msg.ID, &msg.ThreadID, &runID, &msg.Role,
			&msg.Content, &metadata, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}

		msg.RunID = runID.String
		msg.Metadata = metadata.String
		if msg.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		messages = append(messages, &msg)
	}
	return messages, rows.Err()
}

// CreateRun inserts a run row. New runs start as pending.
func (s *SQLiteStore) CreateRun(ctx context.Context, run *Run) error {
	if run.Status == "" {
		run.Status = RunStatusPending
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, thread_id, agent_id, status, error, provider_run_id, metadata, started_at, finished_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.ThreadID,
		run.AgentID,
		run.Status,
		nullable(run.Error),
		nullable(run.ProviderRunID),
		nullable(run.Metadata),
		nullableTime(run.StartedAt),
		nullableTime(run.FinishedAt),
		formatTime(run.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("creating run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID. Returns ErrNotFound if it doesn't exist.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, thread_id, agent_id, status, error, provider_run_id, metadata, started_at, finished_at, created_at
		FROM runs WHERE id = ?`, id)

	var run Run
	var errText, providerRunID, metadata, startedAt, finishedAt sql.NullString
	var createdAt string

	err := row.Scan(&run.ID, &run.ThreadID, &run.AgentID, &run.Status,
		&errText, &providerRunID, &metadata, &startedAt, &finishedAt, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting run: %w", err)
	}

	run.Error = errText.String
	run.ProviderRunID = providerRunID.String
	run.Metadata = metadata.String
	if run.StartedAt, err = scanNullableTime(startedAt); err != nil {
		return nil, err
	}
	if run.FinishedAt, err = scanNullableTime(finishedAt); err != nil {
		return nil, err
	}
	if run.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &run, nil
}

// UpdateRun applies a status transition. Only fields set in the update
// are written; the state machine itself is the caller's responsibility.
func (s *SQLiteStore) UpdateRun(ctx context.Context, id string, update RunUpdate) error {
	query := `UPDATE runs SET status = ?`
	args := []any{update.Status}

	if update.Error != "" {
		query += `, error = ?`
		args = append(args, update.Error)
	}
	if update.ProviderRunID != "" {
		query += `, provider_run_id = ?`
		args = append(args, update.ProviderRunID)
	}
	if update.StartedAt != nil {
		query += `, started_at = ?`
		args = append(args, formatTime(*update.StartedAt))
	}
	if update.FinishedAt != nil {
		query += `, finished_at = ?`
		args = append(args, formatTime(*update.FinishedAt))
	}
	query += ` WHERE id = ?`
	args = append(args, id)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating run: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountThreadsCreatedSince counts threads created at or after since.
func (s *SQLiteStore) CountThreadsCreatedSince(ctx context.Context, since time.Time) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM threads WHERE created_at >= ?`, formatTime(since))
}

// CountActiveRunsSince counts pending or running runs created at or after since.
func (s *SQLiteStore) CountActiveRunsSince(ctx context.Context, since time.Time) (int, error) {
	return s.count(ctx,
		`SELECT COUNT(*) FROM runs WHERE created_at >= ? AND status IN (?, ?)`,
		formatTime(since), RunStatusPending, RunStatusRunning)
}

// CountAssistantMessagesSince counts assistant messages created at or after since.
func (s *SQLiteStore) CountAssistantMessagesSince(ctx context.Context, since time.Time) (int, error) {
	return s.count(ctx,
		`SELECT COUNT(*) FROM messages WHERE created_at >= ? AND role = ?`,
		formatTime(since), RoleAssistant)
}

func (s *SQLiteStore) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting rows: %w", err)
	}
	return n, nil
}

// ThreadCountsByAgent returns per-agent counts of threads created at or
// after since.
func (s *SQLiteStore) ThreadCountsByAgent(ctx context.Context, since time.Time) ([]*AgentCount, error) {
	return s.agentCounts(ctx, `
		SELECT t.agent_id, a.name, COUNT(*)
		FROM threads t
		INNER JOIN agents a ON a.id = t.agent_id
		WHERE t.created_at >= ?
		GROUP BY t.agent_id, a.name`, formatTime(since))
}

// AssistantReplyCountsByAgent returns per-agent counts of assistant
// messages created at or after since.
func (s *SQLiteStore) AssistantReplyCountsByAgent(ctx context.Context, since time.Time) ([]*AgentCount, error) {
	return s.agentCounts(ctx, `
		SELECT a.id, a.name, COUNT(*)
		FROM messages m
		INNER JOIN threads t ON t.id = m.thread_id
		INNER JOIN agents a ON a.id = t.agent_id
		WHERE m.created_at >= ? AND m.role = ?
		GROUP BY a.id, a.name`, formatTime(since), RoleAssistant)
}

func (s *SQLiteStore) agentCounts(ctx context.Context, query string, args ...any) ([]*AgentCount, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying agent counts: %w", err)
	}
	defer rows.Close()

	var counts []*AgentCount
	for rows.Next() {
		var count AgentCount
		if err := rows.Scan(&count.AgentID, &count.AgentName, &count.Count); err != nil {
			return nil, fmt.Errorf("scanning agent count: %w", err)
		}
		counts = append(counts, &count)
	}
	return counts, rows.Err()
}
