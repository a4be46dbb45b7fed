package session

import (
	"context"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/babybirdprd/mcp-rg-editor/internal/toolerr"
)

func newTestManager() *Manager {
	var n atomic.Int64
	return New(func() string { return strconv.FormatInt(n.Add(1), 10) })
}

func TestExecute_CompletesWithinTimeout(t *testing.T) {
	m := newTestManager()
	res, err := m.Execute(context.Background(), ExecuteOptions{
		Command:       "echo TestEcho",
		TimeoutMillis: 2000,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Completed {
		t.Errorf("Completed = false, want true")
	}
	if !strings.Contains(res.Output, "TestEcho") {
		t.Errorf("Output = %q, want substring TestEcho", res.Output)
	}
}

func TestExecute_BlockedCommand(t *testing.T) {
	m := newTestManager()
	_, err := m.Execute(context.Background(), ExecuteOptions{
		Command:         "rm -rf /",
		TimeoutMillis:   1000,
		BlockedCommands: []string{"rm"},
	})
	if err == nil {
		t.Fatal("expected CommandBlocked error")
	}
	te, ok := toolerr.As(err)
	if !ok || te.Kind != toolerr.CommandBlocked {
		t.Errorf("got %v, want CommandBlocked", err)
	}
}

func TestExecute_TimesOutAndBackgrounds(t *testing.T) {
	m := newTestManager()
	res, err := m.Execute(context.Background(), ExecuteOptions{
		Command:       "sleep 2",
		TimeoutMillis: 50,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Completed {
		t.Errorf("Completed = true, want false (should still be running)")
	}
	if !res.TimedOut {
		t.Errorf("TimedOut = false, want true")
	}

	time.Sleep(2500 * time.Millisecond)
	out, err := m.ReadOutput(res.SessionID)
	if err != nil {
		t.Fatalf("ReadOutput: %v", err)
	}
	if out.State != StateExited {
		t.Errorf("State = %v, want Exited", out.State)
	}
}

func TestReadOutput_Monotonic(t *testing.T) {
	m := newTestManager()
	res, err := m.Execute(context.Background(), ExecuteOptions{Command: "echo one; sleep 0.2; echo two", TimeoutMillis: 50})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	time.Sleep(500 * time.Millisecond)

	first, err := m.ReadOutput(res.SessionID)
	if err != nil {
		t.Fatalf("ReadOutput: %v", err)
	}
	second, err := m.ReadOutput(res.SessionID)
	if err != nil {
		t.Fatalf("ReadOutput: %v", err)
	}
	if second.Output != "" {
		t.Errorf("second read should be empty once caught up, got %q", second.Output)
	}
	// Execute already returned (and consumed) whatever arrived before its
	// timeout, so the chunks concatenated in call order hold both lines.
	if got := res.Output + first.Output; !strings.Contains(got, "one\ntwo") {
		t.Errorf("execute output + first read = %q, want one then two", got)
	}
}

func TestReadOutput_UnknownSession(t *testing.T) {
	m := newTestManager()
	_, err := m.ReadOutput("does-not-exist")
	if err == nil {
		t.Fatal("expected SessionNotFound")
	}
	te, ok := toolerr.As(err)
	if !ok || te.Kind != toolerr.SessionNotFound {
		t.Errorf("got %v, want SessionNotFound", err)
	}
}

func TestForceTerminate(t *testing.T) {
	m := newTestManager()
	res, err := m.Execute(context.Background(), ExecuteOptions{Command: "sleep 30", TimeoutMillis: 50})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	out, err := m.ForceTerminate(res.SessionID)
	if err != nil {
		t.Fatalf("ForceTerminate: %v", err)
	}
	if out.State != StateForceKilled {
		t.Errorf("State = %v, want ForceKilled", out.State)
	}
}

func TestShutdown_TerminatesRunningSessions(t *testing.T) {
	m := newTestManager()
	res, err := m.Execute(context.Background(), ExecuteOptions{Command: "sleep 30", TimeoutMillis: 50})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	m.Shutdown()

	out, err := m.ReadOutput(res.SessionID)
	if err != nil {
		t.Fatalf("ReadOutput: %v", err)
	}
	if out.State != StateForceKilled {
		t.Errorf("State = %v, want ForceKilled", out.State)
	}
}

func TestListSessions(t *testing.T) {
	m := newTestManager()
	res, err := m.Execute(context.Background(), ExecuteOptions{Command: "echo hi", TimeoutMillis: 2000})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	sessions := m.ListSessions()
	found := false
	for _, s := range sessions {
		if s.ID == res.SessionID {
			found = true
		}
	}
	if !found {
		t.Errorf("ListSessions() = %v, missing %s", sessions, res.SessionID)
	}
}

func TestHeadToken_SkipsEnvAssignmentAndLowercases(t *testing.T) {
	got := headToken(`FOO=bar RM -rf /`)
	if got != "rm" {
		t.Errorf("headToken() = %q, want rm", got)
	}
}

func TestHeadToken_Simple(t *testing.T) {
	if got := headToken("echo hi"); got != "echo" {
		t.Errorf("headToken() = %q, want echo", got)
	}
}

func TestRingBuffer_TrimsOldestOnOverflow(t *testing.T) {
	rb := newRingBuffer()
	big := make([]byte, maxBufferBytes+1024)
	for i := range big {
		big[i] = 'x'
	}
	rb.Write(big)
	data, cursor := rb.ReadFrom(0)
	if int64(len(data)) != cursor-rb.trimmed {
		t.Errorf("len(data) = %d, want %d", len(data), cursor-rb.trimmed)
	}
	if !strings.Contains(string(data), "truncated") {
		t.Errorf("expected overflow marker in retained data")
	}
}
