// ABOUTME: Tests for registry file loading and store synchronization.
// ABOUTME: Covers TOML parsing, validation errors, and upsert behavior.

package agents

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentinbox/inbox-gateway/internal/store"
)

func writeRegistry(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agents.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadRegistry_Valid(t *testing.T) {
	path := writeRegistry(t, `
[[agents]]
id = "calendar-agent"
name = "Calendar Agent"
endpoint = "http://localhost:8081/run"
icon = "calendar"
description = "Answers scheduling questions"

[[agents]]
id = "notes-agent"
name = "Notes Agent"
endpoint = "http://localhost:8082/run"
`)

	registry, err := LoadRegistry(path)
	require.NoError(t, err)
	require.Len(t, registry.Agents, 2)
	assert.Equal(t, "calendar-agent", registry.Agents[0].ID)
	assert.Equal(t, "calendar", registry.Agents[0].Icon)
	assert.Empty(t, registry.Agents[1].Icon)
}

func TestLoadRegistry_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing id",
			content: "[[agents]]\nname = \"X\"\nendpoint = \"http://x\"\n",
			wantErr: "id is required",
		},
		{
			name:    "missing name",
			content: "[[agents]]\nid = \"x\"\nendpoint = \"http://x\"\n",
			wantErr: "name is required",
		},
		{
			name:    "missing endpoint",
			content: "[[agents]]\nid = \"x\"\nname = \"X\"\n",
			wantErr: "endpoint is required",
		},
		{
			name: "duplicate id",
			content: "[[agents]]\nid = \"x\"\nname = \"X\"\nendpoint = \"http://x\"\n" +
				"[[agents]]\nid = \"x\"\nname = \"Y\"\nendpoint = \"http://y\"\n",
			wantErr: "duplicate id",
		},
		{
			name:    "malformed toml",
			content: "[[agents\n",
			wantErr: "parsing registry file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadRegistry(writeRegistry(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSync_UpsertsEntries(t *testing.T) {
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	registry := &Registry{Agents: []Entry{
		{ID: "a1", Name: "First", Endpoint: "http://one"},
		{ID: "a2", Name: "Second", Endpoint: "http://two", Icon: "dot"},
	}}

	ctx := context.Background()
	require.NoError(t, Sync(ctx, registry, s))

	agents, err := s.ListAgents(ctx)
	require.NoError(t, err)
	require.Len(t, agents, 2)

	// Re-sync with an updated name; the row updates in place.
	registry.Agents[0].Name = "First Renamed"
	require.NoError(t, Sync(ctx, registry, s))

	agent, err := s.GetAgent(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "First Renamed", agent.Name)
}
