package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/KhushalM/MTA-Routing/internal/mcp"
)

// ValidLLMProviders lists the model backend names the anyllm provider can
// construct. Used by [Validate] to warn about unrecognised names.
var ValidLLMProviders = []string{
	"openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq", "llamacpp", "llamafile",
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// ${ENV_VAR} references anywhere in the document are expanded from the
// process environment before decoding, so secrets can stay out of the file.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	raw = []byte(os.Expand(string(raw), func(key string) string {
		return os.Getenv(key)
	}))

	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// LLM
	if cfg.LLM.Provider == "" {
		errs = append(errs, errors.New("llm.provider is required"))
	} else if !slices.Contains(ValidLLMProviders, cfg.LLM.Provider) {
		slog.Warn("unknown LLM provider name",
			"name", cfg.LLM.Provider,
			"known", ValidLLMProviders,
		)
	}
	if cfg.LLM.Model == "" {
		errs = append(errs, errors.New("llm.model is required"))
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("llm.temperature %.2f is out of range [0.0, 2.0]", cfg.LLM.Temperature))
	}
	if cfg.LLM.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("llm.max_tokens %d must not be negative", cfg.LLM.MaxTokens))
	}

	// MCP retry policy
	if cfg.MCP.Retries != nil && *cfg.MCP.Retries < 0 {
		errs = append(errs, fmt.Errorf("mcp.retries %d must not be negative", *cfg.MCP.Retries))
	}

	// MCP servers
	serverNamesSeen := make(map[string]int, len(cfg.MCP.Servers))
	for i, srv := range cfg.MCP.Servers {
		prefix := fmt.Sprintf("mcp.servers[%d]", i)
		if srv.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		} else {
			if prev, ok := serverNamesSeen[srv.Name]; ok {
				errs = append(errs, fmt.Errorf("%s.name %q is a duplicate of mcp.servers[%d]", prefix, srv.Name, prev))
			}
			serverNamesSeen[srv.Name] = i
		}
		if srv.Transport != "" && !srv.Transport.IsValid() {
			errs = append(errs, fmt.Errorf("%s.transport %q is invalid; valid values: stdio, streamable-http", prefix, srv.Transport))
		}
		if srv.Transport == mcp.TransportStdio && srv.Command == "" {
			errs = append(errs, fmt.Errorf("%s.command is required when transport is stdio", prefix))
		}
		if srv.Transport == mcp.TransportStreamableHTTP && srv.URL == "" {
			errs = append(errs, fmt.Errorf("%s.url is required when transport is streamable-http", prefix))
		}
	}

	if len(cfg.MCP.Servers) == 0 {
		slog.Warn("no MCP servers configured; the assistant will answer without tools")
	}

	return errors.Join(errs...)
}
