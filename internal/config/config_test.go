// ABOUTME: Tests for configuration loading, validation, and env fallbacks.
// ABOUTME: Covers YAML parsing, ${VAR} expansion, and AGENT_TIMEOUT_MS resolution.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: ":8080"
database:
  path: /tmp/gateway.db
agents:
  registry_path: agents.toml
  health_timeout: 2s
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, "/tmp/gateway.db", cfg.Database.Path)
	assert.Equal(t, "agents.toml", cfg.Agents.RegistryPath)
	assert.Equal(t, 2*time.Second, cfg.Agents.HealthTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_DefaultHealthTimeout(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: ":8080"
database:
  path: /tmp/gateway.db
agents:
  registry_path: agents.toml
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Agents.HealthTimeout)
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_DB_PATH", "/custom/path.db")

	path := writeConfig(t, `
server:
  http_addr: ":8080"
database:
  path: ${TEST_DB_PATH}
agents:
  registry_path: agents.toml
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/custom/path.db", cfg.Database.Path)
}

func TestLoad_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing http_addr",
			content: `
database:
  path: /tmp/db
agents:
  registry_path: agents.toml
`,
			wantErr: "http_addr",
		},
		{
			name: "missing database path",
			content: `
server:
  http_addr: ":8080"
agents:
  registry_path: agents.toml
`,
			wantErr: "database.path",
		},
		{
			name: "missing registry path",
			content: `
server:
  http_addr: ":8080"
database:
  path: /tmp/db
`,
			wantErr: "registry_path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: ":8080"
database:
  path: /tmp/db
agents:
  registry_path: agents.toml
  health_timeout: not-a-duration
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "health_timeout")
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/gateway.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestAgentTimeout(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"unset", "", DefaultAgentTimeout},
		{"valid", "30000", 30 * time.Second},
		{"non-numeric", "not-a-number", DefaultAgentTimeout},
		{"zero", "0", DefaultAgentTimeout},
		{"negative", "-500", DefaultAgentTimeout},
		{"small", "50", 50 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value == "" {
				os.Unsetenv("AGENT_TIMEOUT_MS")
			} else {
				t.Setenv("AGENT_TIMEOUT_MS", tt.value)
			}
			assert.Equal(t, tt.want, AgentTimeout())
		})
	}
}
