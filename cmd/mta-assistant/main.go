// Command mta-assistant is an interactive transit assistant: a chat loop
// whose model can plan subway trips and answer transit questions by calling
// tools exposed over MCP servers.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/KhushalM/MTA-Routing/internal/assistant"
	"github.com/KhushalM/MTA-Routing/internal/config"
	"github.com/KhushalM/MTA-Routing/internal/health"
	"github.com/KhushalM/MTA-Routing/internal/mcp"
	"github.com/KhushalM/MTA-Routing/internal/mcp/client"
	"github.com/KhushalM/MTA-Routing/internal/observe"
	"github.com/KhushalM/MTA-Routing/internal/transit"
	"github.com/KhushalM/MTA-Routing/pkg/provider/llm"
	"github.com/KhushalM/MTA-Routing/pkg/provider/llm/anyllm"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "assistant.yaml", "path to the YAML configuration file")
	envPath := flag.String("env", ".env", "path to an optional dotenv file with API keys")
	flag.Parse()

	// ── Environment ───────────────────────────────────────────────────────────
	// Missing dotenv files are fine; keys may come from the real environment.
	if err := godotenv.Load(*envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "mta-assistant: load %q: %v\n", *envPath, err)
		return 1
	}

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "mta-assistant: config file %q not found; copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "mta-assistant: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("mta-assistant starting",
		"config", *configPath,
		"llm_provider", cfg.LLM.Provider,
		"model", cfg.LLM.Model,
		"mcp_servers", len(cfg.MCP.Servers),
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "mta-assistant",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Model provider ────────────────────────────────────────────────────────
	provider, err := buildModelProvider(cfg)
	if err != nil {
		slog.Error("failed to build model provider", "err", err)
		return 1
	}

	// ── Tool server connections ───────────────────────────────────────────────
	conns, err := buildConnections(cfg)
	if err != nil {
		slog.Error("failed to build MCP connections", "err", err)
		return 1
	}

	// ── Assistant ─────────────────────────────────────────────────────────────
	formatters := assistant.NewFormatterRegistry()
	formatters.Register(transit.ToolName, transit.TripFormatter)

	a := assistant.New(provider, conns,
		assistant.WithSessionOptions(assistant.WithFormatters(formatters)),
	)
	defer func() {
		tdCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		a.Teardown(tdCtx)
	}()

	// ── Metrics & health endpoint ─────────────────────────────────────────────
	metricsSrv := startMetricsServer(cfg, provider, a)
	defer func() {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsSrv.Shutdown(shCtx); err != nil {
			slog.Warn("metrics server shutdown error", "err", err)
		}
	}()

	printStartupSummary(cfg)

	// ── Chat loop ─────────────────────────────────────────────────────────────
	if err := chatLoop(ctx, a); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("chat loop error", "err", err)
		return 1
	}

	slog.Info("goodbye")
	return 0
}

// version is stamped at build time via -ldflags.
var version = "dev"

// buildModelProvider constructs the anyllm backend selected by the config.
func buildModelProvider(cfg *config.Config) (*anyllm.Provider, error) {
	var opts []anyllmlib.Option
	if cfg.LLM.APIKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(cfg.LLM.APIKey))
	}
	if cfg.LLM.BaseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(cfg.LLM.BaseURL))
	}

	p, err := anyllm.New(cfg.LLM.Provider, cfg.LLM.Model, opts...)
	if err != nil {
		return nil, err
	}
	p.Temperature = cfg.LLM.Temperature
	p.MaxTokens = cfg.LLM.MaxTokens
	return p, nil
}

// buildConnections creates one (unconnected) client per configured MCP
// server with the shared retry policy. The assistant initializes them
// lazily on the first message.
func buildConnections(cfg *config.Config) ([]mcp.Connection, error) {
	conns := make([]mcp.Connection, 0, len(cfg.MCP.Servers))
	for _, srv := range cfg.MCP.Servers {
		conn, err := client.New(srv.ServerConfig(),
			client.WithRetries(cfg.MCP.RetriesOrDefault()),
			client.WithRetryDelay(cfg.MCP.RetryDelayOrDefault()),
			client.WithCallTimeout(cfg.MCP.CallTimeoutOrDefault()),
		)
		if err != nil {
			return nil, fmt.Errorf("server %q: %w", srv.Name, err)
		}
		conns = append(conns, conn)
	}
	return conns, nil
}

// startMetricsServer serves /metrics, /healthz, and /readyz in the
// background and returns the server for shutdown. Readiness follows live
// state: the wired model provider and the assistant's lazily-built tool
// catalogue.
func startMetricsServer(cfg *config.Config, provider llm.Provider, a *assistant.Assistant) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())

	h := health.New(
		health.ModelProvider(provider),
		health.ToolCatalogue(a.Catalogue),
	)
	h.Register(mux)

	srv := &http.Server{
		Addr:              cfg.Server.MetricsAddrOrDefault(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server error", "err", err)
		}
	}()
	slog.Info("metrics endpoint listening", "addr", srv.Addr)
	return srv
}

// chatLoop reads user messages from stdin until EOF, "quit", or a shutdown
// signal, submitting each to the assistant.
func chatLoop(ctx context.Context, a *assistant.Assistant) error {
	fmt.Println(`Type a message and press Enter. "reset" clears the conversation, "quit" exits.`)

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		fmt.Print("You: ")
		select {
		case <-ctx.Done():
			fmt.Println()
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				fmt.Println()
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}

			text := strings.TrimSpace(line)
			switch {
			case text == "":
				continue
			case strings.EqualFold(text, "quit"), strings.EqualFold(text, "exit"):
				return nil
			case strings.EqualFold(text, "reset"):
				a.Reset()
				fmt.Println("Conversation cleared.")
				continue
			}

			reply, err := a.Submit(ctx, text)
			if err != nil {
				return err
			}
			fmt.Println("Assistant:", reply)
		}
	}
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        MTA assistant startup          ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printField("Model", cfg.LLM.Provider+" / "+cfg.LLM.Model)
	printField("MCP servers", fmt.Sprintf("%d", len(cfg.MCP.Servers)))
	for _, srv := range cfg.MCP.Servers {
		printField("  "+srv.Name, string(srv.Transport))
	}
	printField("Metrics addr", cfg.Server.MetricsAddrOrDefault())
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printField(name, value string) {
	fmt.Printf("║  %-15s : %-19s ║\n", name, truncate(value, 19))
}

// truncate shortens s to at most max runes, marking the cut with an ellipsis.
// Cutting by rune keeps multi-byte station and model names intact.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "…"
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
