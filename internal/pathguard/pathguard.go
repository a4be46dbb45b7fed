// Package pathguard canonicalizes and authorizes every external path
// argument against a configured directory jail. It generalizes the
// single-WorkDir symlink-safe containment check used elsewhere in this
// codebase's lineage into an ordered multi-directory allowlist with tilde
// expansion and a root-sentinel escape hatch.
package pathguard

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/babybirdprd/mcp-rg-editor/internal/toolerr"
)

// Kind identifies the class of path-guard failure, mirroring the error
// kinds tools surface to callers.
type Kind int

const (
	KindOutsideJail Kind = iota
	KindNotFound
	KindNotADirectory
)

// Error is returned by Guard.Resolve on rejection.
type Error struct {
	Kind Kind
	Path string
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func newErr(kind Kind, path, msg string) *Error {
	return &Error{Kind: kind, Path: path, Msg: msg}
}

// ToolErr maps a guard Error onto the shared tool error taxonomy so
// callers can return it straight to the dispatcher.
func ToolErr(err error) error {
	perr, ok := err.(*Error)
	if !ok {
		return err
	}
	switch perr.Kind {
	case KindOutsideJail:
		return toolerr.New(toolerr.PathOutsideJail, "%s", perr.Msg)
	case KindNotADirectory:
		return toolerr.New(toolerr.PathNotADirectory, "%s", perr.Msg)
	default:
		return toolerr.New(toolerr.PathNotFound, "%s", perr.Msg)
	}
}

// Guard enforces a jail: a reference root used to resolve relative inputs,
// plus an ordered list of allowed absolute directories checked by canonical
// ancestor prefix.
type Guard struct {
	filesRoot string

	mu      sync.RWMutex
	allowed []string
}

// New builds a Guard. allowedDirectories should already be absolute
// (config.Load/applyDefaults does this); an empty list means "just
// filesRoot", matching the config-level default.
func New(filesRoot string, allowedDirectories []string) *Guard {
	allowed := allowedDirectories
	if len(allowed) == 0 {
		allowed = []string{filesRoot}
	}
	return &Guard{filesRoot: filesRoot, allowed: allowed}
}

// SetAllowedDirectories swaps in a new allowlist, taking effect on the next
// Resolve call. Wired to config.Store.OnChange so a set_config_value
// mutation of allowed_directories is reflected without a restart.
func (g *Guard) SetAllowedDirectories(dirs []string) {
	if len(dirs) == 0 {
		dirs = []string{g.filesRoot}
	}
	g.mu.Lock()
	g.allowed = append([]string(nil), dirs...)
	g.mu.Unlock()
}

// Resolve canonicalizes input and checks it against the jail.
//
// Resolution order: (a) expand a leading "~"; (b) if relative, join against
// filesRoot; (c) canonicalize by resolving symlinks on the longest existing
// ancestor, then re-joining any remaining (not-yet-existing) segments;
// (d) check the canonical result against the allowlist by ancestor-segment
// prefix, not raw string prefix; (e) only if mustExist is true must the
// final segment itself exist — otherwise only its parent must canonicalize
// cleanly.
func (g *Guard) Resolve(input string, mustExist bool) (string, error) {
	expanded, err := expandTilde(input)
	if err != nil {
		return "", newErr(KindNotFound, input, fmt.Sprintf("path guard: expand ~: %v", err))
	}

	joined := expanded
	if !filepath.IsAbs(joined) {
		joined = filepath.Join(g.filesRoot, joined)
	}
	joined = filepath.Clean(joined)

	canonical, err := canonicalize(joined)
	if err != nil {
		return "", newErr(KindNotFound, input, fmt.Sprintf("path guard: %v", err))
	}

	if !g.isAllowed(canonical) {
		return "", newErr(KindOutsideJail, input, fmt.Sprintf("path guard: %q resolves outside the allowed directories", input))
	}

	if mustExist {
		info, statErr := os.Lstat(canonical)
		if statErr != nil {
			return "", newErr(KindNotFound, input, fmt.Sprintf("path guard: %s: not found", input))
		}
		_ = info
	}

	return canonical, nil
}

// ResolveDir is like Resolve but additionally requires the result to be an
// existing directory.
func (g *Guard) ResolveDir(input string) (string, error) {
	canonical, err := g.Resolve(input, true)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(canonical)
	if err != nil {
		return "", newErr(KindNotFound, input, fmt.Sprintf("path guard: %s: not found", input))
	}
	if !info.IsDir() {
		return "", newErr(KindNotADirectory, input, fmt.Sprintf("path guard: %s: not a directory", input))
	}
	return canonical, nil
}

func (g *Guard) isAllowed(canonical string) bool {
	g.mu.RLock()
	allowed := g.allowed
	g.mu.RUnlock()
	for _, a := range allowed {
		if isRootSentinel(a) {
			return true
		}
		ac, err := canonicalize(a)
		if err != nil {
			ac = filepath.Clean(a)
		}
		if isUnder(canonical, ac) {
			return true
		}
	}
	return false
}

func isRootSentinel(dir string) bool {
	clean := filepath.Clean(dir)
	return clean == string(filepath.Separator) || clean == filepath.VolumeName(clean)+string(filepath.Separator)
}

// isUnder reports whether child equals parent or sits under it, compared
// by full path segments (never a naive string-prefix check, which would
// wrongly match "/allowed-evil" against allowed dir "/allowed").
func isUnder(child, parent string) bool {
	if child == parent {
		return true
	}
	sep := string(filepath.Separator)
	p := parent
	if !strings.HasSuffix(p, sep) {
		p += sep
	}
	return strings.HasPrefix(child, p)
}

// canonicalize resolves symlinks on the longest existing ancestor of path,
// then rejoins any not-yet-existing trailing segments onto that resolved
// ancestor. This lets the guard authorize a not-yet-created file while
// still catching a symlinked existing ancestor directory that escapes the
// jail.
func canonicalize(path string) (string, error) {
	path = filepath.Clean(path)
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	if dir == path {
		// reached the filesystem root without finding an existing ancestor
		return path, nil
	}
	resolvedDir, err := canonicalize(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedDir, base), nil
}

func expandTilde(p string) (string, error) {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		if p == "~" {
			return home, nil
		}
		return filepath.Join(home, p[2:]), nil
	}
	return p, nil
}
