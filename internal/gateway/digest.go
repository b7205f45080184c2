// ABOUTME: Daily digest endpoint: a 24-hour activity summary.
// ABOUTME: Aggregates counters, recent threads, and per-agent rollups.

package gateway

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	digestWindow       = 24 * time.Hour
	digestThreadLimit  = 6
	digestRollupLimit  = 4
	digestSnippetRunes = 130
)

// Digest is the response body for GET /api/digest.
type Digest struct {
	GeneratedAt time.Time      `json:"generatedAt"`
	WindowStart time.Time      `json:"windowStart"`
	Metrics     DigestMetrics  `json:"metrics"`
	Threads     []DigestThread `json:"threads"`
	Agents      []DigestAgent  `json:"agents"`
}

// DigestMetrics are the headline counters for the window.
type DigestMetrics struct {
	NewThreads   int `json:"newThreads"`
	ActiveRuns   int `json:"activeRuns"`
	AgentReplies int `json:"agentReplies"`
}

// DigestThread is one recently active thread with a message preview.
type DigestThread struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	AgentID        string    `json:"agentId"`
	AgentName      string    `json:"agentName,omitempty"`
	AgentIcon      string    `json:"agentIcon,omitempty"`
	Status         string    `json:"status"`
	LastActivityAt time.Time `json:"lastActivityAt"`
	Snippet        string    `json:"snippet"`
	SnippetRole    string    `json:"snippetRole,omitempty"`
}

// DigestAgent is one agent's activity rollup for the window.
type DigestAgent struct {
	AgentID      string `json:"agentId"`
	AgentName    string `json:"agentName"`
	NewThreads   int    `json:"newThreads"`
	AgentReplies int    `json:"agentReplies"`
}

// handleDigest builds the activity summary for the trailing 24 hours.
// The ?now= query parameter (RFC 3339) overrides the window anchor,
// which exists for reproducible output. An unparseable value is
// ignored and the current time is used.
func (g *Gateway) handleDigest(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	if raw := r.URL.Query().Get("now"); raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			now = parsed
		}
	}
	since := now.Add(-digestWindow)
	ctx := r.Context()

	newThreads, err := g.store.CountThreadsCreatedSince(ctx, since)
	if err != nil {
		g.digestError(w, err)
		return
	}
	activeRuns, err := g.store.CountActiveRunsSince(ctx, since)
	if err != nil {
		g.digestError(w, err)
		return
	}
	agentReplies, err := g.store.CountAssistantMessagesSince(ctx, since)
	if err != nil {
		g.digestError(w, err)
		return
	}

	recent, err := g.store.RecentActiveThreads(ctx, since, digestThreadLimit)
	if err != nil {
		g.digestError(w, err)
		return
	}
	threads := make([]DigestThread, 0, len(recent))
	for _, t := range recent {
		threads = append(threads, DigestThread{
			ID:             t.ID,
			Title:          t.Title,
			AgentID:        t.AgentID,
			AgentName:      t.AgentName,
			AgentIcon:      t.AgentIcon,
			Status:         t.Status,
			LastActivityAt: t.LastActivityAt,
			Snippet:        snippet(t.LastMessage),
			SnippetRole:    snippetRole(t.LastMessageRole),
		})
	}

	rollups, err := g.agentRollups(ctx, since)
	if err != nil {
		g.digestError(w, err)
		return
	}

	g.writeJSON(w, http.StatusOK, Digest{
		GeneratedAt: now,
		WindowStart: since,
		Metrics: DigestMetrics{
			NewThreads:   newThreads,
			ActiveRuns:   activeRuns,
			AgentReplies: agentReplies,
		},
		Threads: threads,
		Agents:  rollups,
	})
}

func (g *Gateway) digestError(w http.ResponseWriter, err error) {
	g.logger.Error("digest query failed", "error", err)
	g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
}

// agentRollups merges the per-agent thread and reply counts into one
// list, sorted by total activity with agent id as the tiebreaker.
func (g *Gateway) agentRollups(ctx context.Context, since time.Time) ([]DigestAgent, error) {
	threadCounts, err := g.store.ThreadCountsByAgent(ctx, since)
	if err != nil {
		return nil, err
	}
	replyCounts, err := g.store.AssistantReplyCountsByAgent(ctx, since)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*DigestAgent)
	for _, c := range threadCounts {
		byID[c.AgentID] = &DigestAgent{AgentID: c.AgentID, AgentName: c.AgentName, NewThreads: c.Count}
	}
	for _, c := range replyCounts {
		entry, ok := byID[c.AgentID]
		if !ok {
			entry = &DigestAgent{AgentID: c.AgentID, AgentName: c.AgentName}
			byID[c.AgentID] = entry
		}
		entry.AgentReplies = c.Count
	}

	rollups := make([]DigestAgent, 0, len(byID))
	for _, entry := range byID {
		rollups = append(rollups, *entry)
	}
	sort.Slice(rollups, func(i, j int) bool {
		ti := rollups[i].NewThreads + rollups[i].AgentReplies
		tj := rollups[j].NewThreads + rollups[j].AgentReplies
		if ti != tj {
			return ti > tj
		}
		return rollups[i].AgentID < rollups[j].AgentID
	})
	if len(rollups) > digestRollupLimit {
		rollups = rollups[:digestRollupLimit]
	}
	return rollups, nil
}

// snippet flattens a message body to a single preview line, truncated
// on a rune boundary.
func snippet(content string) string {
	if content == "" {
		return "No messages yet"
	}
	flat := strings.Join(strings.Fields(content), " ")
	if utf8.RuneCountInString(flat) <= digestSnippetRunes {
		return flat
	}
	runes := []rune(flat)
	return string(runes[:digestSnippetRunes]) + "…"
}

// snippetRole normalizes unknown roles so the digest only ever shows
// the three roles the UI knows about.
func snippetRole(role string) string {
	switch role {
	case "user", "assistant", "system":
		return role
	case "":
		return ""
	default:
		return "assistant"
	}
}
