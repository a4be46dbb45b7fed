package config

import (
	"os"
	"path/filepath"
)

// DefaultConfigPath returns the path to the JSONC config file: $MCP_RG_EDITOR_CONFIG
// if set, otherwise ~/.mcp-rg-editor/config.jsonc.
func DefaultConfigPath() string {
	if v := os.Getenv("MCP_RG_EDITOR_CONFIG"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".mcp-rg-editor", "config.jsonc")
	}
	return filepath.Join(home, ".mcp-rg-editor", "config.jsonc")
}

// DefaultDotenvPath returns the .env file consulted at startup, alongside
// the config file, for convenience environment loading.
func DefaultDotenvPath() string {
	if v := os.Getenv("MCP_RG_EDITOR_DOTENV"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".mcp-rg-editor", ".env")
	}
	return filepath.Join(home, ".mcp-rg-editor", ".env")
}
