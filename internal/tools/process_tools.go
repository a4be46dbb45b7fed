package tools

import (
	"context"

	"github.com/babybirdprd/mcp-rg-editor/internal/procsvc"
)

func listProcessesSpec() *Spec {
	return &Spec{
		Name:        "list_processes",
		Description: "List OS processes visible to this user, with pid, name, cpu%, memory, command line, and status.",
		Parameters:  map[string]ParamSpec{},
	}
}

type listProcessesResult struct {
	Processes []procsvc.ProcessInfo `json:"processes"`
}

func newListProcessesHandler(svc *procsvc.Service) Handler {
	return func(_ context.Context, _ string) (string, error) {
		procs, err := svc.ListProcesses()
		if err != nil {
			return "", err
		}
		return marshalResult(listProcessesResult{Processes: procs})
	}
}

func killProcessSpec() *Spec {
	return &Spec{
		Name:        "kill_process",
		Description: "Send a kill signal to an OS process by pid.",
		Dangerous:   true,
		Parameters: map[string]ParamSpec{
			"pid": {Type: "integer", Description: "Process ID to kill", Required: true},
		},
	}
}

type killProcessResult struct {
	OK  bool  `json:"ok"`
	PID int32 `json:"pid"`
}

func newKillProcessHandler(svc *procsvc.Service) Handler {
	return func(_ context.Context, argsJSON string) (string, error) {
		args, err := parseArgs(argsJSON)
		if err != nil {
			return "", err
		}
		pid := optInt(args, "pid", 0)
		if pid == 0 {
			return "", requireIntErr("pid")
		}
		if err := svc.KillProcess(int32(pid)); err != nil {
			return "", err
		}
		return marshalResult(killProcessResult{OK: true, PID: int32(pid)})
	}
}
