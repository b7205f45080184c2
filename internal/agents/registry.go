// ABOUTME: Agent registry file loading and database synchronization.
// ABOUTME: Parses agents.toml and upserts entries into the store.

package agents

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/agentinbox/inbox-gateway/internal/store"
)

// Entry is one agent declared in the registry file.
type Entry struct {
	ID          string `toml:"id"`
	Name        string `toml:"name"`
	Endpoint    string `toml:"endpoint"`
	Icon        string `toml:"icon"`
	Description string `toml:"description"`
}

// Registry is the parsed agents.toml file.
type Registry struct {
	Agents []Entry `toml:"agents"`
}

// LoadRegistry reads and validates the agent registry file.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading registry file: %w", err)
	}

	var registry Registry
	if err := toml.Unmarshal(data, &registry); err != nil {
		return nil, fmt.Errorf("parsing registry file: %w", err)
	}

	seen := make(map[string]bool, len(registry.Agents))
	for i, entry := range registry.Agents {
		if entry.ID == "" {
			return nil, fmt.Errorf("agent entry %d: id is required", i)
		}
		if entry.Name == "" {
			return nil, fmt.Errorf("agent %q: name is required", entry.ID)
		}
		if entry.Endpoint == "" {
			return nil, fmt.Errorf("agent %q: endpoint is required", entry.ID)
		}
		if seen[entry.ID] {
			return nil, fmt.Errorf("agent %q: duplicate id", entry.ID)
		}
		seen[entry.ID] = true
	}

	return &registry, nil
}

// Sync upserts every registry entry into the store. Existing rows keep
// their liveness status; only the registry-owned fields are rewritten.
func Sync(ctx context.Context, registry *Registry, s store.Store) error {
	logger := slog.Default().With("component", "agents")

	for _, entry := range registry.Agents {
		agent := &store.Agent{
			ID:          entry.ID,
			Name:        entry.Name,
			Endpoint:    entry.Endpoint,
			Icon:        entry.Icon,
			Description: entry.Description,
		}
		if err := s.UpsertAgent(ctx, agent); err != nil {
			return fmt.Errorf("syncing agent %q: %w", entry.ID, err)
		}
	}

	logger.Info("agent registry synced", "count", len(registry.Agents))
	return nil
}
