package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"gopkg.in/yaml.v3"

	"github.com/ferrolab/podflow/internal/agent"
	"github.com/ferrolab/podflow/internal/api"
	"github.com/ferrolab/podflow/internal/canvas"
	"github.com/ferrolab/podflow/internal/config"
	"github.com/ferrolab/podflow/internal/doctor"
	"github.com/ferrolab/podflow/internal/events"
	"github.com/ferrolab/podflow/internal/lock"
	"github.com/ferrolab/podflow/internal/log"
	"github.com/ferrolab/podflow/internal/storage"
	"github.com/ferrolab/podflow/internal/tui/watch"
	"github.com/ferrolab/podflow/internal/workflow"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	// --- NOUNS ---
	case "system":
		os.Exit(runSystemNoun(args))
	case "config":
		os.Exit(runConfigNoun(args))
	case "agent":
		os.Exit(runAgentNoun(args))

	// --- ROOT ALIASES ---
	case "start":
		os.Exit(runStart(args))
	case "watch":
		os.Exit(runWatch(args))
	case "doctor":
		os.Exit(runConfigCheck(args))
	case "version":
		fmt.Printf("podflow version %s\n", version)
		os.Exit(0)
	case "help", "--help", "-h":
		printUsage()
		os.Exit(0)

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`podflow - Canvas workflow engine for agent pods

Usage:
  podflow <noun> <action> [flags]

Core Resources (Nouns):
  system    Service lifecycle and health
  config    System configuration and integrity
  agent     Agent discovery and health

System Commands:
  system start      Start the workflow service in foreground
  system status     Show whether a service instance is running
  system watch      Live event stream TUI

Config Commands:
  config lock       Authorize current state (update integrity hashes)
  config check      Validate syntax, policy, and integrity
  config show       Show the resolved configuration

Agent Commands:
  agent list        Show discovered agents
  agent check       Run health checks against discovered agents

General:
  version           Show version information
  help              Show this help message

Use 'podflow <noun> help' for resource-specific flags.
`)
}

// --- NOUN DISPATCHERS ---

func runSystemNoun(args []string) int {
	if len(args) < 1 {
		printSystemNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printSystemNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "start":
		if hasHelpFlag(actionArgs) {
			printSystemStartHelp()
			return 0
		}
		return runStart(actionArgs)
	case "status":
		if hasHelpFlag(actionArgs) {
			printSystemStatusHelp()
			return 0
		}
		return runStatus(actionArgs)
	case "watch":
		if hasHelpFlag(actionArgs) {
			printSystemWatchHelp()
			return 0
		}
		return runWatch(actionArgs)
	case "help":
		printSystemNounHelp(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown system action: %s\n", action)
		return 1
	}
}

func runConfigNoun(args []string) int {
	if len(args) < 1 {
		printConfigNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printConfigNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "lock", "hash-update":
		if hasHelpFlag(actionArgs) {
			printConfigLockHelp()
			return 0
		}
		return runConfigHashUpdate(actionArgs)
	case "check":
		if hasHelpFlag(actionArgs) {
			printConfigCheckHelp()
			return 0
		}
		return runConfigCheck(actionArgs)
	case "show":
		if hasHelpFlag(actionArgs) {
			printConfigShowHelp()
			return 0
		}
		return runConfigShow(actionArgs)
	case "help":
		printConfigNounHelp(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown config action: %s\n", action)
		return 1
	}
}

func runAgentNoun(args []string) int {
	if len(args) < 1 {
		printAgentNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printAgentNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "list":
		if hasHelpFlag(actionArgs) {
			printAgentListHelp()
			return 0
		}
		return runAgentList(actionArgs)
	case "check":
		if hasHelpFlag(actionArgs) {
			printAgentCheckHelp()
			return 0
		}
		return runAgentCheck(actionArgs)
	case "help":
		printAgentNounHelp(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown agent action: %s\n", action)
		return 1
	}
}

func isHelpToken(token string) bool {
	return token == "help" || token == "--help" || token == "-h"
}

func hasHelpFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--help" || arg == "-h" {
			return true
		}
	}
	return false
}

func printSystemNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: podflow system <action>")
	fmt.Fprintln(w, "Actions: start, status, watch")
}

func printConfigNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: podflow config <action> [flags]")
	fmt.Fprintln(w, "Actions: lock, check, show")
}

func printAgentNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: podflow agent <action>")
	fmt.Fprintln(w, "Actions: list, check")
}

func printSystemStartHelp() {
	fmt.Println("Usage: podflow system start [--config PATH]")
	fmt.Println("Start the workflow service in the foreground.")
}

func printSystemStatusHelp() {
	fmt.Println("Usage: podflow system status [--config PATH]")
	fmt.Println("Show whether a service instance holds the PID lock.")
}

func printSystemWatchHelp() {
	fmt.Println("Usage: podflow system watch [flags]")
	fmt.Println()
	fmt.Println("Live workflow event stream TUI.")
	fmt.Println("Shows pod triggers, queue activity, decisions, and merges as they happen.")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  --api-url URL    Service API URL (default: http://localhost:8080)")
	fmt.Println("  --api-key KEY    API Bearer Token (or PODFLOW_API_KEY env var)")
	fmt.Println()
	fmt.Println("Keybindings:")
	fmt.Println("  q, Ctrl+C        Quit")
	fmt.Println("  ↑/↓, k/j         Scroll events")
}

func printConfigLockHelp() {
	fmt.Println("Usage: podflow config lock [--config PATH] [-v|--verbose] [--dry-run]")
	fmt.Println("Authorize current configuration state by regenerating integrity hashes.")
}

func printConfigCheckHelp() {
	fmt.Println("Usage: podflow config check [--config PATH] [--format human|json] [--strict] [--json]")
	fmt.Println("Validate configuration syntax, policy, and integrity.")
}

func printConfigShowHelp() {
	fmt.Println("Usage: podflow config show [--config PATH]")
	fmt.Println("Show the full resolved configuration as YAML.")
}

func printAgentListHelp() {
	fmt.Println("Usage: podflow agent list [--config PATH]")
	fmt.Println("Show discovered agents and the commands they declare.")
}

func printAgentCheckHelp() {
	fmt.Println("Usage: podflow agent check [--config PATH]")
	fmt.Println("Run the health command against every discovered agent that declares one.")
}

// --- ACTION IMPLEMENTATIONS ---

func runStart(args []string) int {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, resolvedPath, err := loadConfigForTool(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel, cfg.Service.LogFormat)
	logger := log.WithComponent("main")
	logger.Info("podflow starting", "version", version, "config", resolvedPath)

	pidLockPath := getPIDLockPath(cfg)
	pidLock, err := lock.AcquirePIDLock(pidLockPath)
	if err != nil {
		logger.Error("failed to acquire PID lock (another instance may be running)", "path", pidLockPath, "error", err)
		return 1
	}
	defer pidLock.Release()
	logger.Info("acquired PID lock", "path", pidLockPath)

	ctx := context.Background()
	db, err := storage.OpenSQLite(ctx, cfg.State.Path)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.State.Path, "error", err)
		return 1
	}
	defer db.Close()
	if err := storage.BootstrapSQLite(ctx, db); err != nil {
		logger.Error("failed to bootstrap database schema", "error", err)
		return 1
	}
	logger.Info("database opened", "path", cfg.State.Path)

	store := canvas.NewStore(db)

	registry, err := agent.Discover(cfg.Agents.Dir, func(level, msg string, args ...any) {
		switch level {
		case "debug":
			logger.Debug(msg, args...)
		case "info":
			logger.Info(msg, args...)
		case "warn":
			logger.Warn(msg, args...)
		case "error":
			logger.Error(msg, args...)
		}
	})
	if err != nil {
		logger.Error("agent discovery failed", "agents_dir", cfg.Agents.Dir, "error", err)
		return 1
	}
	logger.Info("agent discovery complete", "count", len(registry.All()))

	runner := agent.NewRunner(registry, store, agent.Timeouts{
		Summarize: cfg.Agents.Timeouts.Summarize,
		Decide:    cfg.Agents.Timeouts.Decide,
		Chat:      cfg.Agents.Timeouts.Chat,
		Health:    cfg.Agents.Timeouts.Health,
	})

	hub := events.NewHub(256)
	engine := workflow.New(
		workflow.Config{DirectMergeWindow: cfg.Workflow.DirectMergeWindow},
		store, store, runner, runner, runner, hub, log.Get(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)

	if cfg.API.Enabled {
		apiServer := api.New(api.Config{
			Listen: cfg.API.Listen,
			APIKey: cfg.API.Auth.APIKey,
		}, store, engine, hub, log.WithComponent("api"))
		go func() {
			if err := apiServer.Start(ctx); err != nil && err != context.Canceled {
				errCh <- fmt.Errorf("api: %w", err)
			}
		}()
		logger.Info("API server enabled", "listen", cfg.API.Listen)
	} else {
		logger.Warn("API server disabled; pod completions cannot be reported")
	}

	logger.Info("podflow running (press Ctrl+C to stop)")

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	case err := <-errCh:
		logger.Error("component failed", "error", err)
		cancel()
		return 1
	}

	logger.Info("podflow stopped")
	return 0
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, _, err := loadConfigForTool(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	pidLockPath := getPIDLockPath(cfg)
	pid, err := lock.ReadPID(pidLockPath)
	if err != nil {
		fmt.Printf("podflow is not running (no lock at %s)\n", pidLockPath)
		return 0
	}

	// The PID file survives a crash; probing the lock tells us whether the
	// recorded process still holds it.
	if l, err := lock.AcquirePIDLock(pidLockPath); err == nil {
		_ = l.Release()
		fmt.Printf("podflow is not running (stale lock file, last PID %d)\n", pid)
		return 0
	}

	fmt.Printf("podflow is running (PID %d)\n", pid)
	return 0
}

func runWatch(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	apiURL := fs.String("api-url", "http://localhost:8080", "Service API URL")
	apiKey := fs.String("api-key", os.Getenv("PODFLOW_API_KEY"), "API Bearer Token")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	m := watch.New(*apiURL, *apiKey)
	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
		return 1
	}
	return 0
}

func runConfigCheck(args []string) int {
	var configPath string
	var strict, jsonOut bool
	var format string

	fs := flag.NewFlagSet("check", flag.ExitOnError)
	fs.StringVar(&configPath, "config", "", "Path to configuration")
	fs.BoolVar(&strict, "strict", false, "Treat warnings as errors")
	fs.StringVar(&format, "format", "human", "Output format (human, json)")
	fs.BoolVar(&jsonOut, "json", false, "Output in JSON")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	if jsonOut {
		format = "json"
	}

	cfg, _, err := loadConfigForTool(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config load error: %v\n", err)
		return 1
	}

	registry, discoverErr := agent.Discover(cfg.Agents.Dir, func(level, msg string, args ...any) {})
	if discoverErr != nil {
		registry = nil
	}

	doc := doctor.New(cfg, registry)
	result := doc.Validate()

	switch format {
	case "json":
		out, err := doctor.FormatJSON(result)
		if err != nil {
			fmt.Fprintf(os.Stderr, "JSON format error: %v\n", err)
			return 1
		}
		fmt.Println(out)
	default:
		fmt.Print(doctor.FormatHuman(result))
	}

	if !result.Valid {
		return 1
	}
	if strict && len(result.Warnings) > 0 {
		return 2
	}
	return 0
}

func runConfigHashUpdate(args []string) int {
	var configPath string
	var verbose, verboseShort, dryRun bool

	fs := flag.NewFlagSet("lock", flag.ExitOnError)
	fs.StringVar(&configPath, "config", "", "Path to configuration")
	fs.BoolVar(&verbose, "verbose", false, "Verbose output")
	fs.BoolVar(&verboseShort, "v", false, "Verbose output")
	fs.BoolVar(&dryRun, "dry-run", false, "Dry run")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	isVerbose := verbose || verboseShort

	resolvedPath, err := resolveConfigPath(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to discover config: %v\n", err)
		return 1
	}

	configDir := filepath.Dir(resolvedPath)
	configFile := filepath.Base(resolvedPath)

	report, err := config.GenerateChecksumsWithReport(configDir, []string{configFile}, dryRun)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to lock config in %s: %v\n", configDir, err)
		return 1
	}

	if isVerbose {
		fmt.Printf("Processing directory: %s\n", configDir)
		for _, file := range report.Files {
			if file.Exists {
				fmt.Printf("  HASH %s: %s\n", file.Filename, file.Hash)
				continue
			}
			fmt.Printf("  SKIP %s: not found (optional)\n", file.Filename)
		}
		if dryRun {
			fmt.Printf("  DRY-RUN .checksums: %s (not written)\n", report.ChecksumPath)
		} else {
			fmt.Printf("  WROTE .checksums: %s\n", report.ChecksumPath)
		}
	}

	if dryRun {
		fmt.Printf("Dry run completed for %s (no files written)\n", configDir)
	} else {
		fmt.Printf("Successfully locked configuration in %s\n", configDir)
	}
	return 0
}

func runConfigShow(args []string) int {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, _, err := loadConfigForTool(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load error: %v\n", err)
		return 1
	}

	if cfg.API.Auth.APIKey != "" {
		cfg.API.Auth.APIKey = "<redacted>"
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Marshal error: %v\n", err)
		return 1
	}
	fmt.Print(string(data))
	return 0
}

func runAgentList(args []string) int {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, _, err := loadConfigForTool(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	registry, err := agent.Discover(cfg.Agents.Dir, func(level, msg string, args ...any) {})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Agent discovery error: %v\n", err)
		return 1
	}

	agents := registry.All()
	if len(agents) == 0 {
		fmt.Printf("No agents discovered in %s\n", cfg.Agents.Dir)
		return 0
	}

	names := make([]string, 0, len(agents))
	for name := range agents {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		a := agents[name]
		ver := a.Version
		if ver == "" {
			ver = "-"
		}
		fmt.Printf("%-20s %-10s %s\n", name, ver, strings.Join(a.Commands, ","))
	}
	return 0
}

func runAgentCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, _, err := loadConfigForTool(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup("ERROR", "text")

	registry, err := agent.Discover(cfg.Agents.Dir, func(level, msg string, args ...any) {})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Agent discovery error: %v\n", err)
		return 1
	}

	runner := agent.NewRunner(registry, nil, agent.Timeouts{
		Health: cfg.Agents.Timeouts.Health,
	})

	agents := registry.All()
	if len(agents) == 0 {
		fmt.Printf("No agents discovered in %s\n", cfg.Agents.Dir)
		return 0
	}

	names := make([]string, 0, len(agents))
	for name := range agents {
		names = append(names, name)
	}
	sort.Strings(names)

	failures := 0
	for _, name := range names {
		if !agents[name].SupportsCommand("health") {
			fmt.Printf("SKIP %s: no health command\n", name)
			continue
		}
		if err := runner.CheckHealth(context.Background(), name); err != nil {
			fmt.Printf("FAIL %s: %v\n", name, err)
			failures++
			continue
		}
		fmt.Printf("OK   %s\n", name)
	}

	if failures > 0 {
		return 1
	}
	return 0
}

// --- HELPERS ---

func resolveConfigPath(configPath string) (string, error) {
	if configPath != "" {
		if stat, err := os.Stat(configPath); err == nil && stat.IsDir() {
			return filepath.Join(configPath, "config.yaml"), nil
		}
		return configPath, nil
	}
	return config.DiscoverConfigPath()
}

func loadConfigForTool(configPath string) (*config.Config, string, error) {
	resolved, err := resolveConfigPath(configPath)
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.Load(resolved)
	if err != nil {
		return nil, "", err
	}
	return cfg, resolved, nil
}

func getPIDLockPath(cfg *config.Config) string {
	dbPath := cfg.State.Path
	dbDir := filepath.Dir(dbPath)
	dbBase := filepath.Base(dbPath)
	ext := filepath.Ext(dbBase)
	nameWithoutExt := dbBase[:len(dbBase)-len(ext)]
	return filepath.Join(dbDir, nameWithoutExt+".pid")
}
