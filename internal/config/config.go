// Package config provides the configuration schema and loader for the MTA
// assistant.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/KhushalM/MTA-Routing/internal/mcp"
)

// Defaults applied when the corresponding field is absent from the file.
const (
	// DefaultMetricsAddr is where /metrics, /healthz, and /readyz are served.
	DefaultMetricsAddr = ":9090"

	// DefaultRetries is the tool-call retry count per connection.
	DefaultRetries = 2

	// DefaultRetryDelay is the fixed delay between tool-call attempts.
	DefaultRetryDelay = time.Second

	// DefaultCallTimeout bounds a single tool-call attempt.
	DefaultCallTimeout = 30 * time.Second
)

// LogLevel controls log verbosity for the assistant.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Duration is a time.Duration that unmarshals from YAML strings like "1s" or
// "500ms".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config is the root configuration structure for the assistant.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server ServerConfig `yaml:"server"`
	LLM    LLMConfig    `yaml:"llm"`
	MCP    MCPConfig    `yaml:"mcp"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// MetricsAddr is the TCP address the metrics/health endpoint listens on
	// (e.g., ":9090"). Empty means [DefaultMetricsAddr].
	MetricsAddr string `yaml:"metrics_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// MetricsAddrOrDefault returns MetricsAddr or [DefaultMetricsAddr].
func (s ServerConfig) MetricsAddrOrDefault() string {
	if s.MetricsAddr == "" {
		return DefaultMetricsAddr
	}
	return s.MetricsAddr
}

// LLMConfig selects and configures the model backend.
type LLMConfig struct {
	// Provider is the backend name (e.g., "openai", "anthropic", "ollama").
	Provider string `yaml:"provider"`

	// Model is the specific model to use (e.g., "gpt-4o").
	Model string `yaml:"model"`

	// APIKey is the authentication key. Supports ${ENV_VAR} expansion;
	// when empty, the backend falls back to its standard environment
	// variable (e.g., OPENAI_API_KEY).
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the backend's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Temperature controls output randomness. Zero means the backend default.
	Temperature float64 `yaml:"temperature"`

	// MaxTokens caps the completion length. Zero means the backend default.
	MaxTokens int `yaml:"max_tokens"`
}

// MCPConfig declares the tool servers and the shared call retry policy.
type MCPConfig struct {
	// Servers lists the MCP tool servers to connect to, in registration
	// order. Order matters: it decides tool-name collision winners.
	Servers []MCPServer `yaml:"servers"`

	// Retries is the number of retry attempts after a failed tool call.
	// Nil means [DefaultRetries]; an explicit 0 disables retries.
	Retries *int `yaml:"retries"`

	// RetryDelay is the fixed delay between attempts. Zero means
	// [DefaultRetryDelay].
	RetryDelay Duration `yaml:"retry_delay"`

	// CallTimeout bounds a single tool-call attempt. Zero means
	// [DefaultCallTimeout].
	CallTimeout Duration `yaml:"call_timeout"`
}

// RetriesOrDefault returns the configured retry count or [DefaultRetries].
func (m MCPConfig) RetriesOrDefault() int {
	if m.Retries == nil {
		return DefaultRetries
	}
	return *m.Retries
}

// RetryDelayOrDefault returns the configured delay or [DefaultRetryDelay].
func (m MCPConfig) RetryDelayOrDefault() time.Duration {
	if m.RetryDelay == 0 {
		return DefaultRetryDelay
	}
	return time.Duration(m.RetryDelay)
}

// CallTimeoutOrDefault returns the configured timeout or [DefaultCallTimeout].
func (m MCPConfig) CallTimeoutOrDefault() time.Duration {
	if m.CallTimeout == 0 {
		return DefaultCallTimeout
	}
	return time.Duration(m.CallTimeout)
}

// MCPServer describes one MCP tool server entry.
type MCPServer struct {
	// Name is the unique identifier for this server.
	Name string `yaml:"name"`

	// Transport selects the connection mechanism: "stdio" or "streamable-http".
	Transport mcp.Transport `yaml:"transport"`

	// Command is the executable to spawn when Transport is "stdio".
	Command string `yaml:"command"`

	// Args are additional command-line arguments for Command.
	Args []string `yaml:"args"`

	// URL is the endpoint address when Transport is "streamable-http".
	URL string `yaml:"url"`

	// Env holds additional environment variables for the server process.
	Env map[string]string `yaml:"env"`
}

// ServerConfig converts the entry into the connection layer's launch config.
func (s MCPServer) ServerConfig() mcp.ServerConfig {
	return mcp.ServerConfig{
		Name:      s.Name,
		Transport: s.Transport,
		Command:   s.Command,
		Args:      s.Args,
		URL:       s.URL,
		Env:       s.Env,
	}
}
