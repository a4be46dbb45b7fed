// Package ripgrep drives the external rg binary for search_code. It
// follows the exec.CommandContext + deadline idiom used throughout this
// codebase's command-execution code, generalized to the real ripgrep
// flag surface and to killing the whole process group on timeout rather
// than just closing pipes.
package ripgrep

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/babybirdprd/mcp-rg-editor/internal/pathguard"
	"github.com/babybirdprd/mcp-rg-editor/internal/toolerr"
)

// Match is one parsed ripgrep result line.
type Match struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Column  int    `json:"column,omitempty"`
	Text    string `json:"text"`
}

// Options configures one search_code invocation.
type Options struct {
	CaseSensitive bool
	FilePattern   string
	ContextLines  int
	IncludeHidden bool
	Timeout       time.Duration
	MaxResults    int
}

// Driver runs bounded-concurrency rg invocations under a jailed root.
type Driver struct {
	Guard *pathguard.Guard
	sem   *semaphore.Weighted
}

// New builds a Driver allowing at most maxConcurrent simultaneous rg
// child processes.
func New(guard *pathguard.Guard, maxConcurrent int64) *Driver {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &Driver{Guard: guard, sem: semaphore.NewWeighted(maxConcurrent)}
}

// Search runs rg against path (resolved through the jail) with pattern and
// opts, returning parsed matches. It surfaces ToolUnavailable if rg is not
// on PATH and Timeout if the deadline is exceeded, in which case the whole
// process group is killed, not merely the pipes.
func (d *Driver) Search(ctx context.Context, path, pattern string, opts Options) ([]Match, error) {
	if _, err := exec.LookPath("rg"); err != nil {
		return nil, toolerr.New(toolerr.ToolUnavailable, "search_code: rg not found in PATH")
	}

	absPath, err := d.Guard.ResolveDir(path)
	if err != nil {
		return nil, pathguard.ToolErr(err)
	}

	if err := d.sem.Acquire(ctx, 1); err != nil {
		return nil, toolerr.New(toolerr.Internal, "search_code: acquire concurrency slot: %v", err)
	}
	defer d.sem.Release(1)

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := buildArgs(pattern, opts)
	cmd := exec.CommandContext(cctx, "rg", args...)
	cmd.Dir = absPath
	setProcessGroup(cmd)
	cmd.Cancel = killProcessGroup(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, toolerr.New(toolerr.Internal, "search_code: stdout pipe: %v", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, toolerr.New(toolerr.Internal, "search_code: start: %v", err)
	}

	matches, parseErr := parseOutput(stdout, opts.MaxResults)
	waitErr := cmd.Wait()

	if cctx.Err() != nil {
		return matches, toolerr.New(toolerr.Timeout, "search_code: timed out after %s", timeout)
	}
	if parseErr != nil {
		return nil, toolerr.New(toolerr.Internal, "search_code: parse: %v", parseErr)
	}
	// rg exits 1 when there are simply no matches; that is not an error.
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) && exitErr.ExitCode() == 1 {
			return matches, nil
		}
		return nil, toolerr.New(toolerr.Internal, "search_code: rg: %v", waitErr)
	}
	return matches, nil
}

func buildArgs(pattern string, opts Options) []string {
	args := []string{"--line-number", "--column", "--no-heading", "--color", "never"}
	if !opts.CaseSensitive {
		args = append(args, "-i")
	}
	if opts.FilePattern != "" {
		args = append(args, "-g", opts.FilePattern)
	}
	if opts.ContextLines > 0 {
		args = append(args, "-C", strconv.Itoa(opts.ContextLines))
	}
	if opts.IncludeHidden {
		args = append(args, "--hidden")
	}
	if opts.MaxResults > 0 {
		args = append(args, "-m", strconv.Itoa(opts.MaxResults))
	}
	args = append(args, "--", pattern, ".")
	return args
}

// parseOutput parses rg's "--no-heading --column" lines of the form
// file:line:column:text into Match records, stopping early at maxResults.
func parseOutput(r io.Reader, maxResults int) ([]Match, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var matches []Match
	for scanner.Scan() {
		if maxResults > 0 && len(matches) >= maxResults {
			break
		}
		line := scanner.Text()
		m, ok := parseLine(line)
		if ok {
			matches = append(matches, m)
		}
	}
	return matches, scanner.Err()
}

func parseLine(line string) (Match, bool) {
	// file:line:column:text — split on the first three colons only, since
	// text itself may contain colons.
	first := strings.IndexByte(line, ':')
	if first < 0 {
		return Match{}, false
	}
	rest := line[first+1:]
	second := strings.IndexByte(rest, ':')
	if second < 0 {
		return Match{}, false
	}
	lineNo, err := strconv.Atoi(rest[:second])
	if err != nil {
		return Match{}, false
	}
	rest2 := rest[second+1:]
	third := strings.IndexByte(rest2, ':')
	if third < 0 {
		return Match{}, false
	}
	colNo, err := strconv.Atoi(rest2[:third])
	if err != nil {
		return Match{}, false
	}
	return Match{
		File:   line[:first],
		Line:   lineNo,
		Column: colNo,
		Text:   rest2[third+1:],
	}, true
}

// FormatLine renders a Match in the stable "<relative_path>:<line>:<content>"
// output contract (column is not part of the stable format).
func FormatLine(m Match) string {
	return fmt.Sprintf("%s:%d:%s", m.File, m.Line, m.Text)
}
