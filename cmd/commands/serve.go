package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/babybirdprd/mcp-rg-editor/internal/audit"
	"github.com/babybirdprd/mcp-rg-editor/internal/config"
	"github.com/babybirdprd/mcp-rg-editor/internal/editblock"
	"github.com/babybirdprd/mcp-rg-editor/internal/fsops"
	"github.com/babybirdprd/mcp-rg-editor/internal/mcpserver"
	"github.com/babybirdprd/mcp-rg-editor/internal/pathguard"
	"github.com/babybirdprd/mcp-rg-editor/internal/procsvc"
	"github.com/babybirdprd/mcp-rg-editor/internal/ripgrep"
	"github.com/babybirdprd/mcp-rg-editor/internal/session"
	"github.com/babybirdprd/mcp-rg-editor/internal/tools"
)

const maxConcurrentRipgrep = 4

// NewServeCommand returns the serve subcommand, which is also the root
// command's default action.
func NewServeCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Start the tool server (stdio or SSE, per config/MCP_TRANSPORT)",
		Action: runServe,
	}
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	if err := config.LoadDotenv(config.DefaultDotenvPath()); err != nil {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	setupLogging(cmd.Bool("debug"), cfg.LogLevel)
	store := config.NewStore(cmd.String("config"), cfg)

	auditSink, err := audit.Open(cfg.AuditLogFile, cfg.AuditLogMaxSizeMB, cfg.FilesRoot)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer auditSink.Close()

	fuzzySink, err := audit.OpenFuzzySink(cfg.FuzzySearchLogFile)
	if err != nil {
		return fmt.Errorf("open fuzzy-search log: %w", err)
	}
	defer fuzzySink.Close()

	guard := pathguard.New(cfg.FilesRoot, cfg.EffectiveAllowedDirectories())
	store.OnChange(func(next *config.Config) {
		guard.SetAllowedDirectories(next.EffectiveAllowedDirectories())
	})

	deps := tools.Deps{
		Config:    store,
		FS:        fsops.New(guard, cfg.FileReadLineLimit, cfg.FileWriteLineLimit, nil),
		Search:    ripgrep.New(guard, maxConcurrentRipgrep),
		Edit:      editblock.New(guard, fuzzySink),
		Sessions:  session.New(uuid.NewString),
		Processes: procsvc.New(),
	}

	registry := tools.NewRegistry(deps)
	dispatcher := tools.NewDispatcher(registry, auditSink)
	server := mcpserver.NewServer(registry, dispatcher)

	go runReaper(ctx, deps.Sessions)

	switch cfg.Transport {
	case "disabled":
		slog.Info("mcp transport disabled, exiting")
		return nil
	case "sse":
		httpServer := mcpserver.NewHTTPServer(server, cfg.SSEHost, cfg.SSEPort)
		slog.Info("serving MCP over SSE", "host", cfg.SSEHost, "port", cfg.SSEPort)
		errCh := make(chan error, 1)
		go func() { errCh <- httpServer.Start() }()
		select {
		case <-ctx.Done():
			deps.Sessions.Shutdown()
			return httpServer.Shutdown(context.Background())
		case err := <-errCh:
			deps.Sessions.Shutdown()
			return err
		}
	default:
		slog.Info("serving MCP over stdio")
		err := mcpserver.RunStdio(ctx, server)
		deps.Sessions.Shutdown()
		return err
	}
}

const reapInterval = 30 * time.Second

// runReaper periodically removes sessions past their terminal-state grace
// period, the housekeeping task session.Manager.ReapExpired documents as
// intended to be driven externally.
func runReaper(ctx context.Context, mgr *session.Manager) {
	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			mgr.ReapExpired()
		}
	}
}

// setupLogging resolves the initial slog level from cfg's log_level, with
// --debug taking precedence as an operator override.
func setupLogging(debug bool, logLevel string) {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
