// Package config loads and validates the inbox-gateway YAML configuration.
//
// Configuration files support ${VAR_NAME} environment variable expansion
// and Go duration strings for timing fields. A .env file in the working
// directory, if present, is loaded before expansion.
//
// Example:
//
//	server:
//	  http_addr: ":8080"
//	database:
//	  path: ${HOME}/.local/share/inbox-gateway/gateway.db
//	agents:
//	  registry_path: agents.toml
//	  health_timeout: 5s
//	logging:
//	  level: info
//	  format: text
//
// One environment variable is recognized outside the file: AGENT_TIMEOUT_MS,
// a positive integer bounding the agent call in milliseconds. Missing or
// invalid values fall back to the 120s default.
package config
