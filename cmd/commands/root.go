// Package commands holds the CLI subcommands for the mcp-rg-editor
// entrypoint, split one command per file the way the teacher's
// cmd/commands package does.
package commands

import (
	"github.com/urfave/cli/v3"

	"github.com/babybirdprd/mcp-rg-editor/internal/config"
)

// NewRootCommand returns the top-level CLI command. serve is the default
// action when no subcommand is given, matching the spec's "single
// executable" CLI surface while keeping the teacher's subcommand shape
// available for future tools (e.g. a future `audit-tail`).
func NewRootCommand(version string) *cli.Command {
	root := &cli.Command{
		Name:    "mcp-rg-editor",
		Usage:   "Tool server exposing filesystem, search, edit, and process capabilities over MCP",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the JSONC config file",
				Value:   config.DefaultConfigPath(),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			NewServeCommand(),
		},
		Action: runServe,
	}
	return root
}
