// ABOUTME: Configuration loading and parsing for inbox-gateway
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultAgentTimeout bounds how long the gateway waits for a backend
// agent to answer a run request.
const DefaultAgentTimeout = 120 * time.Second

// agentTimeoutEnv overrides DefaultAgentTimeout with a positive integer
// millisecond value.
const agentTimeoutEnv = "AGENT_TIMEOUT_MS"

// Config represents the complete inbox-gateway configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Agents   AgentsConfig   `yaml:"agents"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AgentsConfig holds the agent registry location and probe timing
type AgentsConfig struct {
	RegistryPath  string        `yaml:"registry_path"`
	HealthTimeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	HealthTimeoutRaw string `yaml:"health_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// A .env file in the working directory is loaded first, if present.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Parse duration fields
	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Agents.RegistryPath == "" {
		return fmt.Errorf("agents.registry_path is required")
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	cfg.Agents.HealthTimeout = 5 * time.Second

	if cfg.Agents.HealthTimeoutRaw != "" {
		parsed, err := time.ParseDuration(cfg.Agents.HealthTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing health_timeout %q: %w", cfg.Agents.HealthTimeoutRaw, err)
		}
		cfg.Agents.HealthTimeout = parsed
	}

	return nil
}

// AgentTimeout resolves the agent call timeout from the environment.
// Missing, non-numeric, or non-positive values fall back to the default.
func AgentTimeout() time.Duration {
	raw := os.Getenv(agentTimeoutEnv)
	if raw == "" {
		return DefaultAgentTimeout
	}
	ms, err := strconv.Atoi(raw)
	if err != nil || ms <= 0 {
		return DefaultAgentTimeout
	}
	return time.Duration(ms) * time.Millisecond
}
