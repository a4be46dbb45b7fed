package config

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// Store holds the live Config behind an atomic pointer so readers never
// block and never observe a torn write. Mutations go through SetValue or
// Reload, both of which build a full replacement Config and swap it in;
// fields are never mutated in place on the shared struct.
type Store struct {
	configPath string
	current    atomic.Pointer[Config]
	mu         sync.Mutex // serializes SetValue/Reload against each other
	listeners  []func(*Config)
}

// NewStore creates a Store seeded with initial.
func NewStore(configPath string, initial *Config) *Store {
	s := &Store{configPath: configPath}
	s.current.Store(initial)
	return s
}

// Current returns the current config snapshot (lock-free read).
func (s *Store) Current() *Config {
	return s.current.Load()
}

// OnChange registers a callback invoked after every successful mutation.
func (s *Store) OnChange(fn func(*Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Reload re-reads the config file from disk and swaps it in wholesale.
func (s *Store) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := Load(s.configPath)
	if err != nil {
		return fmt.Errorf("reload config: %w", err)
	}
	s.current.Store(cfg)
	slog.Info("config reloaded", "path", s.configPath)
	s.notifyLocked(cfg)
	return nil
}

// SettableKeys lists the config fields set_config_value is allowed to
// mutate at runtime. files_root and the derived log paths are excluded:
// changing the jail root live would invalidate in-flight path resolutions.
var SettableKeys = []string{
	"allowed_directories",
	"blocked_commands",
	"default_shell",
	"file_read_line_limit",
	"file_write_line_limit",
	"log_level",
}

// SetValue applies a single validated key/value mutation atomically,
// building and swapping in a full replacement Config. log_level is
// accepted but, per its documented semantics, does not reconfigure the
// already-running log sink.
func (s *Store) SetValue(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.Load().Clone()
	switch key {
	case "allowed_directories":
		ss, err := toStringSlice(value)
		if err != nil {
			return fmt.Errorf("allowed_directories: %w", err)
		}
		resolved := make([]string, len(ss))
		for i, d := range ss {
			r, err := expandAndAbs(d)
			if err != nil {
				return fmt.Errorf("allowed_directories[%d]: %w", i, err)
			}
			resolved[i] = r
		}
		next.AllowedDirectories = resolved
	case "blocked_commands":
		ss, err := toStringSlice(value)
		if err != nil {
			return fmt.Errorf("blocked_commands: %w", err)
		}
		next.BlockedCommands = lowercaseAll(ss)
	case "default_shell":
		s, err := toString(value)
		if err != nil {
			return fmt.Errorf("default_shell: %w", err)
		}
		next.DefaultShell = s
	case "file_read_line_limit":
		n, err := toPositiveInt(value)
		if err != nil {
			return fmt.Errorf("file_read_line_limit: %w", err)
		}
		next.FileReadLineLimit = n
	case "file_write_line_limit":
		n, err := toPositiveInt(value)
		if err != nil {
			return fmt.Errorf("file_write_line_limit: %w", err)
		}
		next.FileWriteLineLimit = n
	case "log_level":
		lvl, err := toString(value)
		if err != nil {
			return fmt.Errorf("log_level: %w", err)
		}
		next.LogLevel = lvl
	default:
		return fmt.Errorf("unknown or read-only config key %q (settable: %s)", key, strings.Join(SettableKeys, ", "))
	}

	s.current.Store(next)
	s.notifyLocked(next)
	return nil
}

func (s *Store) notifyLocked(cfg *Config) {
	for _, fn := range s.listeners {
		fn(cfg)
	}
}

func toStringSlice(v any) ([]string, error) {
	switch t := v.(type) {
	case []string:
		return t, nil
	case []any:
		out := make([]string, len(t))
		for i, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("element %d is not a string", i)
			}
			out[i] = s
		}
		return out, nil
	case string:
		return splitCSV(t), nil
	default:
		return nil, fmt.Errorf("expected a string array, got %T", v)
	}
}

func toString(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("expected a string, got %T", v)
	}
	return s, nil
}

func toPositiveInt(v any) (int, error) {
	switch t := v.(type) {
	case float64:
		if t <= 0 {
			return 0, fmt.Errorf("must be positive")
		}
		return int(t), nil
	case int:
		if t <= 0 {
			return 0, fmt.Errorf("must be positive")
		}
		return t, nil
	case string:
		n, err := strconv.Atoi(t)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("must be a positive integer")
		}
		return n, nil
	default:
		return 0, fmt.Errorf("expected a positive integer, got %T", v)
	}
}
