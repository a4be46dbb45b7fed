package tools

import (
	"context"

	"github.com/babybirdprd/mcp-rg-editor/internal/config"
	"github.com/babybirdprd/mcp-rg-editor/internal/session"
)

func executeCommandSpec() *Spec {
	return &Spec{
		Name:        "execute_command",
		Description: "Run a shell command. Returns immediately on completion, or backgrounds it past timeout_ms and returns a session_id to poll with read_output.",
		Dangerous:   true,
		Parameters: map[string]ParamSpec{
			"command":    {Type: "string", Description: "Command line to run", Required: true},
			"timeout_ms": {Type: "integer", Description: "How long to wait before backgrounding (default 1000)"},
			"shell":      {Type: "string", Description: "Shell override; defaults to the configured default_shell"},
		},
	}
}

func newExecuteCommandHandler(mgr *session.Manager, store *config.Store) Handler {
	return func(ctx context.Context, argsJSON string) (string, error) {
		args, err := parseArgs(argsJSON)
		if err != nil {
			return "", err
		}
		command, err := requireString(args, "command")
		if err != nil {
			return "", err
		}
		cfg := store.Current()
		res, err := mgr.Execute(ctx, session.ExecuteOptions{
			Command:         command,
			TimeoutMillis:   optInt(args, "timeout_ms", 1000),
			Shell:           optString(args, "shell", ""),
			DefaultShell:    cfg.DefaultShell,
			BlockedCommands: cfg.BlockedCommands,
		})
		if err != nil {
			return "", err
		}
		return marshalResult(res)
	}
}

func readOutputSpec() *Spec {
	return &Spec{
		Name:        "read_output",
		Description: "Read output appended since the last read_output for a backgrounded session, advancing its cursor.",
		Parameters: map[string]ParamSpec{
			"session_id": {Type: "string", Description: "Session returned by execute_command", Required: true},
		},
	}
}

func newReadOutputHandler(mgr *session.Manager) Handler {
	return func(_ context.Context, argsJSON string) (string, error) {
		args, err := parseArgs(argsJSON)
		if err != nil {
			return "", err
		}
		sessionID, err := requireString(args, "session_id")
		if err != nil {
			return "", err
		}
		res, err := mgr.ReadOutput(sessionID)
		if err != nil {
			return "", err
		}
		return marshalResult(res)
	}
}

func forceTerminateSpec() *Spec {
	return &Spec{
		Name:        "force_terminate",
		Description: "Signal a backgrounded session's process group (SIGTERM, escalating to SIGKILL), marking it ForceKilled.",
		Dangerous:   true,
		Parameters: map[string]ParamSpec{
			"session_id": {Type: "string", Description: "Session to terminate", Required: true},
		},
	}
}

func newForceTerminateHandler(mgr *session.Manager) Handler {
	return func(_ context.Context, argsJSON string) (string, error) {
		args, err := parseArgs(argsJSON)
		if err != nil {
			return "", err
		}
		sessionID, err := requireString(args, "session_id")
		if err != nil {
			return "", err
		}
		res, err := mgr.ForceTerminate(sessionID)
		if err != nil {
			return "", err
		}
		return marshalResult(res)
	}
}

func listSessionsSpec() *Spec {
	return &Spec{
		Name:        "list_sessions",
		Description: "List backgrounded command sessions with their command, pid, runtime, and state.",
		Parameters:  map[string]ParamSpec{},
	}
}

type listSessionsResult struct {
	Sessions []session.ListedSession `json:"sessions"`
}

func newListSessionsHandler(mgr *session.Manager) Handler {
	return func(_ context.Context, _ string) (string, error) {
		return marshalResult(listSessionsResult{Sessions: mgr.ListSessions()})
	}
}
