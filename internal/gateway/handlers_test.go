// ABOUTME: Tests for the inbox read APIs: agents, threads, messages.
// ABOUTME: Exercises the routes end-to-end against a real SQLite store.

package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentinbox/inbox-gateway/internal/store"
)

func doRequest(t *testing.T, g *Gateway, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	g.Routes().ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), into))
}

func TestHandleListAgents(t *testing.T) {
	g, s := newTestGateway(t)
	seedAgent(t, s, "scout", "http://localhost:9101")
	seedAgent(t, s, "archivist", "http://localhost:9102")

	rec := doRequest(t, g, http.MethodGet, "/api/agents", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Agents []AgentInfo `json:"agents"`
	}
	decodeJSON(t, rec, &resp)
	require.Len(t, resp.Agents, 2)
	assert.Equal(t, "archivist", resp.Agents[0].ID)
	assert.Equal(t, "scout", resp.Agents[1].ID)
	assert.Equal(t, store.AgentStatusUnknown, resp.Agents[0].Status)
}

func TestHandleAgentHealth(t *testing.T) {
	g, s := newTestGateway(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	seedAgent(t, s, "alive", srv.URL)

	rec := doRequest(t, g, http.MethodGet, "/api/agents/alive/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var health AgentHealth
	decodeJSON(t, rec, &health)
	assert.Equal(t, "alive", health.ID)
	assert.Equal(t, store.AgentStatusOnline, health.Status)
	assert.NotNil(t, health.LastSeenAt)
}

func TestHandleAgentHealth_Unknown(t *testing.T) {
	g, _ := newTestGateway(t)

	rec := doRequest(t, g, http.MethodGet, "/api/agents/ghost/health", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Agent not found: ghost")
}

func TestHandleAgentHealth_Offline(t *testing.T) {
	g, s := newTestGateway(t)

	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	seedAgent(t, s, "down", srv.URL)

	rec := doRequest(t, g, http.MethodGet, "/api/agents/down/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var health AgentHealth
	decodeJSON(t, rec, &health)
	assert.Equal(t, store.AgentStatusOffline, health.Status)
}

func TestHandleCreateThread(t *testing.T) {
	g, s := newTestGateway(t)
	seedAgent(t, s, "a1", "http://localhost:9101")

	rec := doRequest(t, g, http.MethodPost, "/api/threads", `{"agentId":"a1","title":"Quarterly numbers"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var thread ThreadInfo
	decodeJSON(t, rec, &thread)
	assert.NotEmpty(t, thread.ID)
	assert.Equal(t, "a1", thread.AgentID)
	assert.Equal(t, "Quarterly numbers", thread.Title)
	assert.Equal(t, store.ThreadStatusActive, thread.Status)

	stored, err := s.GetThread(context.Background(), thread.ID)
	require.NoError(t, err)
	assert.Equal(t, "Quarterly numbers", stored.Title)
}

func TestHandleCreateThread_Validation(t *testing.T) {
	g, s := newTestGateway(t)
	seedAgent(t, s, "a1", "http://localhost:9101")

	rec := doRequest(t, g, http.MethodPost, "/api/threads", "{bad")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid JSON body")

	rec = doRequest(t, g, http.MethodPost, "/api/threads", `{"title":"no agent"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Missing required fields: agentId")

	rec = doRequest(t, g, http.MethodPost, "/api/threads", `{"agentId":"ghost"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Agent not found: ghost")
}

func TestHandleListThreads(t *testing.T) {
	g, s := newTestGateway(t)
	seedAgent(t, s, "a1", "http://localhost:9101")
	seedAgent(t, s, "a2", "http://localhost:9102")
	seedThread(t, s, "t1", "a1")
	seedThread(t, s, "t2", "a2")

	rec := doRequest(t, g, http.MethodGet, "/api/threads", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Threads []ThreadInfo `json:"threads"`
	}
	decodeJSON(t, rec, &resp)
	assert.Len(t, resp.Threads, 2)

	rec = doRequest(t, g, http.MethodGet, "/api/threads?agent=a2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp.Threads = nil
	decodeJSON(t, rec, &resp)
	require.Len(t, resp.Threads, 1)
	assert.Equal(t, "t2", resp.Threads[0].ID)
	assert.Equal(t, "Agent a2", resp.Threads[0].AgentName)
}

func TestHandleGetThread(t *testing.T) {
	g, s := newTestGateway(t)
	seedAgent(t, s, "a1", "http://localhost:9101")
	seedThread(t, s, "t1", "a1")

	rec := doRequest(t, g, http.MethodGet, "/api/threads/t1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var thread ThreadInfo
	decodeJSON(t, rec, &thread)
	assert.Equal(t, "t1", thread.ID)
	assert.Equal(t, "Agent a1", thread.AgentName)

	rec = doRequest(t, g, http.MethodGet, "/api/threads/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Thread not found: missing")
}

func TestHandleListMessages(t *testing.T) {
	g, s := newTestGateway(t)
	ctx := context.Background()
	seedAgent(t, s, "a1", "http://localhost:9101")
	seedThread(t, s, "t1", "a1")

	require.NoError(t, s.AppendMessage(ctx, &store.Message{
		ID: "m1", ThreadID: "t1", Role: store.RoleUser, Content: "first",
	}))
	require.NoError(t, s.AppendMessage(ctx, &store.Message{
		ID: "m2", ThreadID: "t1", Role: store.RoleAssistant, Content: "second",
	}))

	rec := doRequest(t, g, http.MethodGet, "/api/threads/t1/messages", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Messages []MessageInfo `json:"messages"`
	}
	decodeJSON(t, rec, &resp)
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "first", resp.Messages[0].Content)
	assert.Equal(t, "second", resp.Messages[1].Content)
}

func TestHandleListMessages_UnknownThread(t *testing.T) {
	g, _ := newTestGateway(t)

	rec := doRequest(t, g, http.MethodGet, "/api/threads/missing/messages", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Thread not found: missing")
}

func TestHandleHealth(t *testing.T) {
	g, _ := newTestGateway(t)

	rec := doRequest(t, g, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}
