package procsvc

import (
	"os"
	"testing"

	"github.com/babybirdprd/mcp-rg-editor/internal/toolerr"
)

func TestListProcesses_IncludesSelf(t *testing.T) {
	s := New()
	procs, err := s.ListProcesses()
	if err != nil {
		t.Fatalf("ListProcesses: %v", err)
	}
	self := int32(os.Getpid())
	found := false
	for _, p := range procs {
		if p.PID == self {
			found = true
		}
	}
	if !found {
		t.Errorf("expected to find own pid %d among %d processes", self, len(procs))
	}
}

func TestKillProcess_NotFound(t *testing.T) {
	s := New()
	// A PID astronomically unlikely to exist.
	err := s.KillProcess(1 << 30)
	if err == nil {
		t.Fatal("expected not-found error")
	}
	te, ok := toolerr.As(err)
	if !ok || te.Kind != toolerr.SessionNotFound {
		t.Errorf("got %v, want SessionNotFound", err)
	}
}
