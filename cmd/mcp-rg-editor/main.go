// Command mcp-rg-editor is the tool-server executable: it loads config,
// wires the path guard, filesystem/search/edit/session/process components,
// and the tool dispatcher, then serves them over MCP (stdio by default, or
// SSE per config/MCP_TRANSPORT).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/babybirdprd/mcp-rg-editor/cmd/commands"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cmd := commands.NewRootCommand(version)
	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
