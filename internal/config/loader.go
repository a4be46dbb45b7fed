package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/marcozac/go-jsonc"
)

var envTemplateRe = regexp.MustCompile(`\$\{\{\s*\.Env\.(\w+)\s*\}\}`)

// Load reads a JSONC config file, strips comments, expands ${{ .Env.VAR }}
// templates, unmarshals into Config, applies environment-variable overrides,
// then fills in defaults. A missing file is not an error: it is treated as
// an empty document so the server can run purely off environment variables.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			expanded := expandEnvTemplates(string(data))
			if err := jsonc.Unmarshal([]byte(expanded), &cfg); err != nil {
				return nil, fmt.Errorf("unmarshal config: %w", err)
			}
		case os.IsNotExist(err):
			// fall through with zero-value cfg
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// expandEnvTemplates replaces ${{ .Env.VAR }} with the env var's value.
func expandEnvTemplates(s string) string {
	return envTemplateRe.ReplaceAllStringFunc(s, func(match string) string {
		parts := envTemplateRe.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		return os.Getenv(parts[1])
	})
}

// applyEnvOverrides layers the recognized environment variables on top of
// whatever the JSONC file set, env taking precedence (it is the outermost,
// most-recently-applied layer).
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FILES_ROOT"); v != "" {
		cfg.FilesRoot = v
	}
	if v := os.Getenv("ALLOWED_DIRECTORIES"); v != "" {
		cfg.AllowedDirectories = splitCSV(v)
	}
	if v := os.Getenv("BLOCKED_COMMANDS"); v != "" {
		cfg.BlockedCommands = lowercaseAll(splitCSV(v))
	}
	if v := os.Getenv("DEFAULT_SHELL"); v != "" {
		cfg.DefaultShell = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("MCP_TRANSPORT"); v != "" {
		cfg.Transport = v
	}
	if v := os.Getenv("MCP_SSE_HOST"); v != "" {
		cfg.SSEHost = v
	}
	if v := os.Getenv("MCP_SSE_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SSEPort = n
		}
	}
	if v := os.Getenv("FILE_READ_LINE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.FileReadLineLimit = n
		}
	}
	if v := os.Getenv("FILE_WRITE_LINE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.FileWriteLineLimit = n
		}
	}
	if v := os.Getenv("MCP_LOG_DIR"); v != "" {
		cfg.McpLogDir = v
	}
	if v := os.Getenv("AUDIT_LOG_MAX_SIZE_MB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.AuditLogMaxSizeMB = n
		}
	}
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func lowercaseAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.ToLower(s)
	}
	return out
}

// applyDefaults fills zero-value fields, canonicalizes FilesRoot to an
// absolute path, and derives the log file paths from McpLogDir.
func applyDefaults(cfg *Config) error {
	if cfg.FilesRoot == "" {
		return fmt.Errorf("config: files_root is required (set via config file or FILES_ROOT)")
	}
	root, err := expandAndAbs(cfg.FilesRoot)
	if err != nil {
		return fmt.Errorf("config: files_root: %w", err)
	}
	cfg.FilesRoot = root

	resolved := make([]string, len(cfg.AllowedDirectories))
	for i, d := range cfg.AllowedDirectories {
		r, err := expandAndAbs(d)
		if err != nil {
			return fmt.Errorf("config: allowed_directories[%d]: %w", i, err)
		}
		resolved[i] = r
	}
	cfg.AllowedDirectories = resolved

	if cfg.FileReadLineLimit == 0 {
		cfg.FileReadLineLimit = 1000
	}
	if cfg.FileWriteLineLimit == 0 {
		cfg.FileWriteLineLimit = 50
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Transport == "" {
		cfg.Transport = "stdio"
	}
	if cfg.McpLogDir == "" {
		cfg.McpLogDir = filepath.Join(cfg.FilesRoot, ".mcp-rg-editor", "logs")
	} else {
		logDir, err := expandAndAbs(cfg.McpLogDir)
		if err != nil {
			return fmt.Errorf("config: mcp_log_dir: %w", err)
		}
		cfg.McpLogDir = logDir
	}
	if cfg.AuditLogMaxSizeMB == 0 {
		cfg.AuditLogMaxSizeMB = 10
	}
	cfg.AuditLogFile = filepath.Join(cfg.McpLogDir, "audit.jsonl")
	cfg.FuzzySearchLogFile = filepath.Join(cfg.McpLogDir, "fuzzy-search.jsonl")
	return nil
}

// expandAndAbs expands a leading "~" to the user's home directory, then
// resolves the result to an absolute, cleaned path. It does not require the
// path to exist — that is the path guard's job.
func expandAndAbs(p string) (string, error) {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		if p == "~" {
			p = home
		} else {
			p = filepath.Join(home, p[2:])
		}
	}
	return filepath.Abs(p)
}
