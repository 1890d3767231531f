// Tycho is a stock trading decision agent.
//
// It runs a sequential tool-calling conversation against the Anthropic
// Messages API: the model gathers market data and web research one tool
// call at a time, then produces a final trading recommendation. Each run
// is printed as a structured report and optionally persisted to a SQLite
// history database. Configuration is loaded from a single YAML file
// discovered automatically (see [config.DefaultSearchPaths]).
//
// Usage:
//
//	tycho analyze [prompt]   Run an analysis (prompt defaults to config)
//	tycho history [-n N]     Show recent runs from the history database
//	tycho init [dir]         Initialize a working directory with defaults
//	tycho version            Print version and build information
//	tycho -o json version    Output version information as JSON
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tycho-agent/tycho/internal/agent"
	"github.com/tycho-agent/tycho/internal/buildinfo"
	"github.com/tycho-agent/tycho/internal/config"
	"github.com/tycho-agent/tycho/internal/llm"
	"github.com/tycho-agent/tycho/internal/market"
	"github.com/tycho-agent/tycho/internal/search"
	"github.com/tycho-agent/tycho/internal/tools"
)

// main is intentionally minimal. It constructs the OS-level environment
// (context, stdio, argv) and delegates immediately to [run]. This keeps
// os.Exit, os.Stdout, and os.Args out of the application logic so the
// whole command surface can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point for the tycho command. All OS-level
// dependencies are injected as parameters: ctx controls the lifetime of
// the run, stdout receives the analysis report, stderr receives logs,
// and args is os.Args[1:].
//
// run returns nil on success and a non-nil error for any failure. The
// caller (main) is responsible for printing the error and exiting.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	// Parse arguments by hand. The flag package relies on package-level
	// globals (flag.CommandLine), which makes it impossible to call run()
	// concurrently from tests. Our argument surface is small enough that
	// manual parsing is clearer than bringing in a CLI framework.
	var configPath string
	var outputFmt string // "text" (default) or "json"
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++ // skip the value
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case (args[i] == "-o" || args[i] == "--output") && i+1 < len(args):
			outputFmt = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-o="):
			outputFmt = strings.TrimPrefix(args[i], "-o=")
		case strings.HasPrefix(args[i], "--output="):
			outputFmt = strings.TrimPrefix(args[i], "--output=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				// Collect remaining args as subcommand arguments.
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	// Default to human-readable text output.
	if outputFmt == "" {
		outputFmt = "text"
	}
	if outputFmt != "text" && outputFmt != "json" {
		return fmt.Errorf("unknown output format: %q (expected text or json)", outputFmt)
	}

	switch command {
	case "analyze":
		return runAnalyze(ctx, stdout, stderr, configPath, outputFmt, cmdArgs)
	case "history":
		return runHistory(stdout, configPath, outputFmt, cmdArgs)
	case "init":
		dir := "."
		if len(cmdArgs) > 0 {
			dir = cmdArgs[0]
		}
		return runInit(stdout, dir)
	case "version":
		return runVersion(stdout, outputFmt)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runAnalyze handles the "tycho analyze [prompt]" subcommand. It wires
// the full agent: Anthropic client, tool registry (market data, trading
// recommendations, web search), executor, and conversation loop, then
// runs a single analysis and prints the report to stdout.
func runAnalyze(ctx context.Context, stdout io.Writer, stderr io.Writer, configPath, outputFmt string, args []string) error {
	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	// Logs go to stderr so stdout carries only the report (and can be
	// piped or redirected cleanly).
	level := slog.LevelInfo
	if cfg.LogLevel != "" {
		level, err = config.ParseLogLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
	}
	logger := newLogger(stderr, level)
	logger.Info("starting Tycho", "version", buildinfo.Version, "config", cfgPath, "model", cfg.Agent.Name)

	if cfg.Anthropic.APIKey == "" {
		return fmt.Errorf("anthropic api key not configured (set ANTHROPIC_API_KEY or anthropic.api_key in %s)", cfgPath)
	}
	llmClient := llm.NewAnthropicClient(cfg.Anthropic.APIKey, logger)

	registry, err := buildRegistry(cfg, logger)
	if err != nil {
		return fmt.Errorf("register tools: %w", err)
	}
	logger.Debug("tools registered", "tools", registry.Names())

	executor := tools.NewExecutor(registry, logger, tools.ExecutorOptions{
		Timeout:    cfg.Conversation.ToolTimeout(),
		MaxRetries: cfg.Conversation.MaxRetries,
		RetryDelay: cfg.Conversation.RetryDelay(),
	})

	loop := agent.NewLoop(logger, llmClient, registry, executor, cfg)

	// Run history is best-effort: a missing or unwritable data directory
	// degrades to an unpersisted run rather than a failed one.
	if cfg.DataDir != "" {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			logger.Warn("create data directory failed, run will not be persisted", "dir", cfg.DataDir, "error", err)
		} else {
			store, err := agent.OpenRunStore(filepath.Join(cfg.DataDir, "runs.db"))
			if err != nil {
				logger.Warn("open run store failed, run will not be persisted", "error", err)
			} else {
				defer store.Close()
				loop.SetStore(store)
			}
		}
	}

	prompt := strings.Join(args, " ")
	if prompt == "" {
		prompt = cfg.Prompt
	}

	summary, err := loop.Run(ctx, prompt)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	if outputFmt == "json" {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}
	summary.Render(stdout)
	return nil
}

// buildRegistry constructs the tool registry: Yahoo Finance market data
// and recommendation tools, plus web search backed by the configured
// provider chain.
func buildRegistry(cfg *config.Config, logger *slog.Logger) (*tools.Registry, error) {
	registry := tools.NewRegistry()

	marketClient := market.NewClient(cfg.Market.BaseURL, logger)
	if err := market.RegisterTools(registry, marketClient); err != nil {
		return nil, err
	}

	mgr := newSearchManager(cfg)
	err := registry.Register(&tools.Tool{
		Name:        "web_search",
		Description: "Search the web for current information, news, and data to supplement analysis. Returns structured results with sources and citations.",
		Parameters:  search.ToolDefinition(),
		Handler:     search.ToolHandler(mgr),
	})
	if err != nil {
		return nil, err
	}

	return registry, nil
}

// newSearchManager builds the web search provider chain from config.
// DuckDuckGo is always registered since it needs no credentials; Brave
// and SearXNG join the chain when configured. The primary provider is
// whatever search.provider names.
func newSearchManager(cfg *config.Config) *search.Manager {
	mgr := search.NewManager(cfg.Search.Provider)
	mgr.Register(search.NewDuckDuckGo())
	if cfg.Search.Brave.APIKey != "" {
		mgr.Register(search.NewBrave(cfg.Search.Brave.APIKey))
	}
	if cfg.Search.SearXNG.URL != "" {
		mgr.Register(search.NewSearXNG(cfg.Search.SearXNG.URL))
	}
	return mgr
}

// runHistory handles the "tycho history [-n N]" subcommand. It lists
// recent runs from the history database, newest first.
func runHistory(stdout io.Writer, configPath, outputFmt string, args []string) error {
	limit := 20
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-n" && i+1 < len(args):
			n, err := strconv.Atoi(args[i+1])
			if err != nil || n < 1 {
				return fmt.Errorf("invalid -n value: %s", args[i+1])
			}
			limit = n
			i++
		case strings.HasPrefix(args[i], "-n="):
			n, err := strconv.Atoi(strings.TrimPrefix(args[i], "-n="))
			if err != nil || n < 1 {
				return fmt.Errorf("invalid -n value: %s", args[i])
			}
			limit = n
		default:
			return fmt.Errorf("unknown history argument: %s", args[i])
		}
	}

	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if cfg.DataDir == "" {
		return fmt.Errorf("data_dir not configured; run history is not persisted")
	}

	dbPath := filepath.Join(cfg.DataDir, "runs.db")
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("no run history found at %s", dbPath)
	}

	store, err := agent.OpenRunStore(dbPath)
	if err != nil {
		return fmt.Errorf("open run store: %w", err)
	}
	defer store.Close()

	runs, err := store.List(limit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	if outputFmt == "json" {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(stdout, "No runs recorded yet.")
		return nil
	}

	for _, r := range runs {
		status := "ok"
		if !r.Success {
			status = "failed"
		}
		prompt := r.Prompt
		if len(prompt) > 60 {
			prompt = prompt[:57] + "..."
		}
		fmt.Fprintf(stdout, "%s  %-8s  %-6s  iter %d/%d  tools %d  %s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			shortID(r.ID), status, r.Iterations, r.MaxIterations, r.ToolsExecuted, prompt)
	}
	return nil
}

// shortID returns the trailing segment of a UUID for compact display.
func shortID(id string) string {
	if i := strings.LastIndex(id, "-"); i >= 0 && i+1 < len(id) {
		return id[i+1:]
	}
	return id
}

// runVersion prints build metadata in the requested output format.
func runVersion(w io.Writer, outputFmt string) error {
	info := buildinfo.Info()
	if outputFmt == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(w, buildinfo.String())
	// Print fields in a stable order for human readability.
	for _, k := range []string{"version", "git_commit", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

// printUsage writes the top-level help text to w. It is called when
// tycho is invoked with no arguments, or with -h / --help.
func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Tycho - Stock Trading Decision Agent")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: tycho [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  analyze [prompt]  Run an analysis (prompt defaults to config)")
	fmt.Fprintln(w, "  history [-n N]    Show the N most recent runs (default: 20)")
	fmt.Fprintln(w, "  init [dir]        Initialize working directory with defaults (default: .)")
	fmt.Fprintln(w, "  version           Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -o, --output fmt  Output format: text (default) or json")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintln(w, "  ./config.yaml, ~/.config/tycho/config.yaml, /etc/tycho/config.yaml")
	return nil
}

// newLogger creates a structured text logger that writes to w at the
// given level. All log output in Tycho goes through slog; this helper
// standardizes the handler configuration (including TRACE level naming)
// across subcommands.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))
}

// loadConfig locates and parses the YAML configuration file. If explicit
// is non-empty, that exact path is used (and must exist). Otherwise,
// [config.FindConfig] searches the default locations. Returns the parsed
// config, the path that was loaded, and any error.
func loadConfig(explicit string) (*config.Config, string, error) {
	cfgPath, err := config.FindConfig(explicit)
	if err != nil {
		return nil, "", err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	return cfg, cfgPath, nil
}
