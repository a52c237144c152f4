package config

import (
	"strings"
	"testing"
	"time"

	"github.com/KhushalM/MTA-Routing/internal/mcp"
)

const validYAML = `
server:
  metrics_addr: ":9191"
  log_level: debug
llm:
  provider: openai
  model: gpt-4o
  temperature: 0.3
  max_tokens: 1024
mcp:
  retries: 1
  retry_delay: 500ms
  call_timeout: 10s
  servers:
    - name: mta
      transport: stdio
      command: python
      args: ["mta_server.py"]
      env:
        MTA_API_KEY: secret
    - name: search
      transport: streamable-http
      url: http://localhost:8931/mcp
`

func TestLoadFromReader_Valid(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.MetricsAddr != ":9191" {
		t.Errorf("MetricsAddr = %q", cfg.Server.MetricsAddr)
	}
	if cfg.Server.LogLevel != LogDebug {
		t.Errorf("LogLevel = %q", cfg.Server.LogLevel)
	}
	if cfg.LLM.Provider != "openai" || cfg.LLM.Model != "gpt-4o" {
		t.Errorf("LLM = %+v", cfg.LLM)
	}
	if cfg.LLM.Temperature != 0.3 || cfg.LLM.MaxTokens != 1024 {
		t.Errorf("LLM sampling = %+v", cfg.LLM)
	}

	if got := cfg.MCP.RetriesOrDefault(); got != 1 {
		t.Errorf("RetriesOrDefault = %d, want 1", got)
	}
	if got := cfg.MCP.RetryDelayOrDefault(); got != 500*time.Millisecond {
		t.Errorf("RetryDelayOrDefault = %v", got)
	}
	if got := cfg.MCP.CallTimeoutOrDefault(); got != 10*time.Second {
		t.Errorf("CallTimeoutOrDefault = %v", got)
	}

	if len(cfg.MCP.Servers) != 2 {
		t.Fatalf("servers = %d, want 2", len(cfg.MCP.Servers))
	}
	sc := cfg.MCP.Servers[0].ServerConfig()
	if sc.Name != "mta" || sc.Transport != mcp.TransportStdio || sc.Command != "python" {
		t.Errorf("ServerConfig = %+v", sc)
	}
	if sc.Env["MTA_API_KEY"] != "secret" {
		t.Errorf("Env = %v", sc.Env)
	}
	if cfg.MCP.Servers[1].Transport != mcp.TransportStreamableHTTP {
		t.Errorf("second server transport = %q", cfg.MCP.Servers[1].Transport)
	}
}

func TestLoadFromReader_Defaults(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(`
llm:
  provider: ollama
  model: llama3
`))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if got := cfg.Server.MetricsAddrOrDefault(); got != DefaultMetricsAddr {
		t.Errorf("MetricsAddrOrDefault = %q", got)
	}
	if got := cfg.MCP.RetriesOrDefault(); got != DefaultRetries {
		t.Errorf("RetriesOrDefault = %d", got)
	}
	if got := cfg.MCP.RetryDelayOrDefault(); got != DefaultRetryDelay {
		t.Errorf("RetryDelayOrDefault = %v", got)
	}
	if got := cfg.MCP.CallTimeoutOrDefault(); got != DefaultCallTimeout {
		t.Errorf("CallTimeoutOrDefault = %v", got)
	}
}

func TestLoadFromReader_ExplicitZeroRetries(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(`
llm:
  provider: ollama
  model: llama3
mcp:
  retries: 0
`))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if got := cfg.MCP.RetriesOrDefault(); got != 0 {
		t.Errorf("RetriesOrDefault = %d, want 0 (explicit zero must not fall back)", got)
	}
}

func TestLoadFromReader_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_LLM_KEY", "sk-expanded")

	cfg, err := LoadFromReader(strings.NewReader(`
llm:
  provider: openai
  model: gpt-4o
  api_key: ${TEST_LLM_KEY}
`))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.LLM.APIKey != "sk-expanded" {
		t.Errorf("APIKey = %q, want the expanded value", cfg.LLM.APIKey)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader(`
llm:
  provider: openai
  model: gpt-4o
  temprature: 0.5
`))
	if err == nil {
		t.Error("misspelled field accepted")
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{LogLevel: "verbose"},
		LLM:    LLMConfig{Temperature: 3.0},
		MCP: MCPConfig{
			Servers: []MCPServer{
				{Name: "", Transport: "stdio"},
				{Name: "x", Transport: "carrier-pigeon"},
				{Name: "y", Transport: mcp.TransportStreamableHTTP},
			},
		},
	}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Validate accepted an invalid config")
	}
	msg := err.Error()
	for _, want := range []string{
		"server.log_level",
		"llm.provider is required",
		"llm.model is required",
		"llm.temperature",
		"mcp.servers[0].name",
		"mcp.servers[0].command",
		"mcp.servers[1].transport",
		"mcp.servers[2].url",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("joined error missing %q:\n%s", want, msg)
		}
	}
}

func TestValidate_DuplicateServerNames(t *testing.T) {
	cfg := &Config{
		LLM: LLMConfig{Provider: "openai", Model: "gpt-4o"},
		MCP: MCPConfig{
			Servers: []MCPServer{
				{Name: "mta", Transport: mcp.TransportStdio, Command: "python"},
				{Name: "mta", Transport: mcp.TransportStdio, Command: "python"},
			},
		},
	}

	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("duplicate server names not reported: %v", err)
	}
}

func TestValidate_NegativeRetries(t *testing.T) {
	n := -1
	cfg := &Config{
		LLM: LLMConfig{Provider: "openai", Model: "gpt-4o"},
		MCP: MCPConfig{Retries: &n},
	}

	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "mcp.retries") {
		t.Errorf("negative retries not reported: %v", err)
	}
}

func TestLoadFromReader_InvalidDuration(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader(`
llm:
  provider: openai
  model: gpt-4o
mcp:
  retry_delay: soon
`))
	if err == nil || !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("invalid duration not reported: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/assistant.yaml"); err == nil {
		t.Error("Load accepted a missing file")
	}
}
