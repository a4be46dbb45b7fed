// Package session implements the backgrounded child-process manager:
// spawn, merged stdout+stderr capture into a per-session ring buffer, soft
// timeout with background continuation, cooperative read-since semantics,
// and forced termination. It repurposes this codebase's conversation
// session registry shape for process lifecycles, and generalizes the PTY
// replay-buffer's reader-cursor idiom (stripped of all terminal-emulation
// concerns) into the plain output_buffer/read_cursor the contract calls for.
package session

import (
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"mvdan.cc/sh/v3/syntax"

	"github.com/babybirdprd/mcp-rg-editor/internal/toolerr"
)

// State is a session's lifecycle stage.
type State string

const (
	StateRunning            State = "Running"
	StateExited             State = "Exited"
	StateTerminatedBySignal State = "TerminatedBySignal"
	StateForceKilled        State = "ForceKilled"
	StateFailed             State = "Failed"
)

const reapGrace = 2 * time.Minute

// Session is one backgrounded child process.
type Session struct {
	ID        string
	Command   string
	PID       int
	StartedAt time.Time

	mu        sync.Mutex
	state     State
	exitCode  int
	failure   string
	buffer    *ringBuffer
	readCursor int64
	cmd       *exec.Cmd
	doneCh    chan struct{}
	reapAt    time.Time
}

func (s *Session) snapshot() (State, int, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.exitCode, s.failure
}

func (s *Session) setTerminal(state State, exitCode int, failure string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRunning {
		return
	}
	s.state = state
	s.exitCode = exitCode
	s.failure = failure
	s.reapAt = time.Now().Add(reapGrace)
}

// RuntimeMillis returns elapsed time since spawn.
func (s *Session) RuntimeMillis() int64 {
	return time.Since(s.StartedAt).Milliseconds()
}

// Manager owns the registry of live/recently-terminated sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	newID    func() string
}

// New builds a Manager. newID supplies session IDs (google/uuid.NewString
// in production; a deterministic counter in tests).
func New(newID func() string) *Manager {
	return &Manager{sessions: make(map[string]*Session), newID: newID}
}

// ExecuteOptions configures one execute_command call.
type ExecuteOptions struct {
	Command       string
	TimeoutMillis int
	Shell         string // explicit override
	DefaultShell  string // config fallback
	BlockedCommands []string
}

// ExecuteResult is execute_command's response.
type ExecuteResult struct {
	SessionID   string `json:"session_id"`
	Completed   bool   `json:"completed"`
	TimedOut    bool   `json:"timed_out,omitempty"`
	Output      string `json:"output"`
	ExitCode    int    `json:"exit_code,omitempty"`
	PID         int    `json:"pid,omitempty"`
}

// Execute tokenizes, blocklist-checks, spawns, and either waits for
// completion or backgrounds the child past TimeoutMillis.
func (m *Manager) Execute(ctx context.Context, opts ExecuteOptions) (*ExecuteResult, error) {
	head := headToken(opts.Command)
	for _, b := range opts.BlockedCommands {
		if head == b {
			return nil, toolerr.New(toolerr.CommandBlocked, "execute_command: %q is blocked", head)
		}
	}

	shell := opts.Shell
	if shell == "" {
		shell = opts.DefaultShell
	}
	if shell == "" {
		shell = defaultShell()
	}

	timeout := time.Duration(opts.TimeoutMillis) * time.Millisecond
	if timeout <= 0 {
		timeout = time.Second
	}

	cmd := shellCommand(context.Background(), shell, opts.Command)
	setProcessGroup(cmd)

	id := m.newID()
	sess := &Session{
		ID:        id,
		Command:   opts.Command,
		StartedAt: time.Now(),
		state:     StateRunning,
		buffer:    newRingBuffer(),
		doneCh:    make(chan struct{}),
	}

	cmd.Stdout = sess.buffer
	cmd.Stderr = sess.buffer

	if err := cmd.Start(); err != nil {
		return nil, toolerr.New(toolerr.Internal, "execute_command: spawn failed: %v", err)
	}
	sess.PID = cmd.Process.Pid
	sess.cmd = cmd

	m.mu.Lock()
	m.sessions[id] = sess
	m.mu.Unlock()

	go m.reap(sess)

	select {
	case <-sess.doneCh:
		state, exitCode, failure := sess.snapshot()
		output, cursor := sess.buffer.ReadFrom(0)
		sess.mu.Lock()
		sess.readCursor = cursor
		sess.mu.Unlock()
		if state == StateFailed {
			return nil, toolerr.New(toolerr.Internal, "execute_command: %s", failure)
		}
		return &ExecuteResult{SessionID: id, Completed: true, Output: string(output), ExitCode: exitCode, PID: sess.PID}, nil
	case <-time.After(timeout):
		output, cursor := sess.buffer.ReadFrom(0)
		sess.mu.Lock()
		sess.readCursor = cursor
		sess.mu.Unlock()
		return &ExecuteResult{SessionID: id, Completed: false, TimedOut: true, Output: string(output), PID: sess.PID}, nil
	}
}

func (m *Manager) reap(sess *Session) {
	err := sess.cmd.Wait()
	switch {
	case err == nil:
		sess.setTerminal(StateExited, 0, "")
	default:
		if exitErr, ok := err.(*exec.ExitError); ok {
			sess.setTerminal(StateExited, exitErr.ExitCode(), "")
		} else {
			slog.Warn("session wait failed", "session_id", sess.ID, "err", err)
			sess.setTerminal(StateFailed, -1, err.Error())
		}
	}
	close(sess.doneCh)
}

// ReadOutputResult is read_output's response.
type ReadOutputResult struct {
	Output   string `json:"output"`
	State    State  `json:"state"`
	ExitCode int    `json:"exit_code,omitempty"`
}

// ReadOutput returns bytes appended since the session's read cursor and
// advances it.
func (m *Manager) ReadOutput(sessionID string) (*ReadOutputResult, error) {
	sess, err := m.get(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	cursor := sess.readCursor
	sess.mu.Unlock()

	data, newCursor := sess.buffer.ReadFrom(cursor)

	sess.mu.Lock()
	sess.readCursor = newCursor
	sess.mu.Unlock()

	state, exitCode, _ := sess.snapshot()
	return &ReadOutputResult{Output: string(data), State: state, ExitCode: exitCode}, nil
}

// ForceTerminate signals the session's process group (SIGTERM, escalating
// to SIGKILL after a grace window), marking it ForceKilled.
func (m *Manager) ForceTerminate(sessionID string) (*ReadOutputResult, error) {
	sess, err := m.get(sessionID)
	if err != nil {
		return nil, err
	}

	state, _, _ := sess.snapshot()
	if state == StateRunning {
		// Mark before signaling: the reap goroutine would otherwise record
		// the signal-induced exit as Exited first, making this a no-op.
		sess.setTerminal(StateForceKilled, -1, "")
		terminateProcessGroup(sess.cmd)
	}

	data, cursor := sess.buffer.ReadFrom(0)
	sess.mu.Lock()
	sess.readCursor = cursor
	sess.mu.Unlock()

	finalState, exitCode, _ := sess.snapshot()
	return &ReadOutputResult{Output: string(data), State: finalState, ExitCode: exitCode}, nil
}

// ListedSession is one list_sessions entry.
type ListedSession struct {
	ID        string `json:"id"`
	Command   string `json:"command"`
	PID       int    `json:"pid"`
	RuntimeMs int64  `json:"runtime_ms"`
	State     State  `json:"state"`
}

// ListSessions enumerates non-reaped sessions.
func (m *Manager) ListSessions() []ListedSession {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ListedSession, 0, len(m.sessions))
	for _, sess := range m.sessions {
		state, _, _ := sess.snapshot()
		out = append(out, ListedSession{
			ID:        sess.ID,
			Command:   sess.Command,
			PID:       sess.PID,
			RuntimeMs: sess.RuntimeMillis(),
			State:     state,
		})
	}
	return out
}

// ReapExpired removes terminal sessions past their grace period. Intended
// to be called periodically by the server's background housekeeping.
func (m *Manager) ReapExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for id, sess := range m.sessions {
		sess.mu.Lock()
		expired := sess.state != StateRunning && !sess.reapAt.IsZero() && now.After(sess.reapAt)
		sess.mu.Unlock()
		if expired {
			delete(m.sessions, id)
		}
	}
}

// Shutdown force-terminates every still-running session's process group.
// Called when the protocol frontend's input stream closes, per the
// cancellation contract: session children are sent SIGTERM then SIGKILL
// after a grace window rather than left orphaned.
func (m *Manager) Shutdown() {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		sessions = append(sessions, sess)
	}
	m.mu.RUnlock()

	for _, sess := range sessions {
		if state, _, _ := sess.snapshot(); state == StateRunning {
			sess.setTerminal(StateForceKilled, -1, "")
			terminateProcessGroup(sess.cmd)
		}
	}
}

func (m *Manager) get(sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[sessionID]
	if !ok {
		return nil, toolerr.New(toolerr.SessionNotFound, "unknown session_id %q", sessionID)
	}
	return sess, nil
}

// headToken tokenizes command with a real shell lexer and returns its
// lowercased first word token (skipping leading env-var assignments),
// instead of a naive strings.Fields split that would mis-tokenize quoting.
func headToken(command string) string {
	parser := syntax.NewParser()
	var head string
	err := parser.Stmts(strings.NewReader(command), func(stmt *syntax.Stmt) bool {
		if head != "" {
			return false
		}
		if call, ok := stmt.Cmd.(*syntax.CallExpr); ok {
			for _, w := range call.Args {
				if lit, ok := literalString(w); ok {
					head = strings.ToLower(lit)
					return false
				}
			}
		}
		return true
	})
	if err != nil || head == "" {
		fields := strings.Fields(command)
		if len(fields) > 0 {
			return strings.ToLower(fields[0])
		}
		return ""
	}
	return head
}

func literalString(w *syntax.Word) (string, bool) {
	if len(w.Parts) != 1 {
		return "", false
	}
	lit, ok := w.Parts[0].(*syntax.Lit)
	if !ok {
		return "", false
	}
	return lit.Value, true
}

func shellCommand(ctx context.Context, shell, command string) *exec.Cmd {
	return exec.CommandContext(ctx, shell, "-c", command)
}
