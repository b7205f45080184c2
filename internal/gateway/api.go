// ABOUTME: Wire types for the inbox JSON API.
// ABOUTME: Store structs never cross the HTTP boundary directly.

package gateway

import (
	"time"

	"github.com/agentinbox/inbox-gateway/internal/store"
)

// AgentInfo is an agent as returned by the agents API.
type AgentInfo struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Endpoint    string     `json:"endpoint"`
	Icon        string     `json:"icon,omitempty"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	LastSeenAt  *time.Time `json:"lastSeenAt"`
}

// AgentHealth is the result of a live health probe.
type AgentHealth struct {
	ID         string     `json:"id"`
	Status     string     `json:"status"`
	LastSeenAt *time.Time `json:"lastSeenAt"`
}

// ThreadInfo is a thread as returned by the threads API, including the
// agent's display fields and a preview of the latest message.
type ThreadInfo struct {
	ID              string     `json:"id"`
	AgentID         string     `json:"agentId"`
	AgentName       string     `json:"agentName,omitempty"`
	AgentIcon       string     `json:"agentIcon,omitempty"`
	Title           string     `json:"title"`
	Status          string     `json:"status"`
	LastActivityAt  time.Time  `json:"lastActivityAt"`
	CreatedAt       time.Time  `json:"createdAt"`
	LastMessage     string     `json:"lastMessage,omitempty"`
	LastMessageRole string     `json:"lastMessageRole,omitempty"`
	LastMessageAt   *time.Time `json:"lastMessageAt,omitempty"`
}

// MessageInfo is a message as returned by the messages API.
type MessageInfo struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"threadId"`
	RunID     string    `json:"runId,omitempty"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

func agentInfo(a *store.Agent) AgentInfo {
	return AgentInfo{
		ID:          a.ID,
		Name:        a.Name,
		Endpoint:    a.Endpoint,
		Icon:        a.Icon,
		Description: a.Description,
		Status:      a.Status,
		LastSeenAt:  a.LastSeenAt,
	}
}

func agentInfos(agentList []*store.Agent) []AgentInfo {
	out := make([]AgentInfo, 0, len(agentList))
	for _, a := range agentList {
		out = append(out, agentInfo(a))
	}
	return out
}

func threadViewInfo(t *store.ThreadView) ThreadInfo {
	return ThreadInfo{
		ID:             t.ID,
		AgentID:        t.AgentID,
		AgentName:      t.AgentName,
		AgentIcon:      t.AgentIcon,
		Title:          t.Title,
		Status:         t.Status,
		LastActivityAt: t.LastActivityAt,
		CreatedAt:      t.CreatedAt,
	}
}

func threadInfo(t *store.ThreadSummary) ThreadInfo {
	return ThreadInfo{
		ID:              t.ID,
		AgentID:         t.AgentID,
		AgentName:       t.AgentName,
		AgentIcon:       t.AgentIcon,
		Title:           t.Title,
		Status:          t.Status,
		LastActivityAt:  t.LastActivityAt,
		CreatedAt:       t.CreatedAt,
		LastMessage:     t.LastMessage,
		LastMessageRole: t.LastMessageRole,
		LastMessageAt:   t.LastMessageAt,
	}
}

func threadInfos(threads []*store.ThreadSummary) []ThreadInfo {
	out := make([]ThreadInfo, 0, len(threads))
	for _, t := range threads {
		out = append(out, threadInfo(t))
	}
	return out
}

func messageInfo(m *store.Message) MessageInfo {
	return MessageInfo{
		ID:        m.ID,
		ThreadID:  m.ThreadID,
		RunID:     m.RunID,
		Role:      m.Role,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

func messageInfos(messages []*store.Message) []MessageInfo {
	out := make([]MessageInfo, 0, len(messages))
	for _, m := range messages {
		out = append(out, messageInfo(m))
	}
	return out
}
