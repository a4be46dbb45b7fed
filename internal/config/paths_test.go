package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigPath_Default(t *testing.T) {
	t.Setenv("MCP_RG_EDITOR_CONFIG", "")

	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatal(err)
	}

	got := DefaultConfigPath()
	want := filepath.Join(home, ".mcp-rg-editor", "config.jsonc")
	if got != want {
		t.Errorf("DefaultConfigPath() = %q, want %q", got, want)
	}
}

func TestDefaultConfigPath_EnvOverride(t *testing.T) {
	t.Setenv("MCP_RG_EDITOR_CONFIG", "/tmp/custom-config.jsonc")

	got := DefaultConfigPath()
	want := "/tmp/custom-config.jsonc"
	if got != want {
		t.Errorf("DefaultConfigPath() = %q, want %q", got, want)
	}
}

func TestDefaultDotenvPath(t *testing.T) {
	t.Setenv("MCP_RG_EDITOR_DOTENV", "/tmp/test/.env")

	got := DefaultDotenvPath()
	want := "/tmp/test/.env"
	if got != want {
		t.Errorf("DefaultDotenvPath() = %q, want %q", got, want)
	}
}
