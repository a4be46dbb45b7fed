package mcpserver

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/babybirdprd/mcp-rg-editor/internal/tools"
)

const (
	serverName    = "mcp-rg-editor"
	serverVersion = "0.1.0"
)

// NewServer builds an mcp.Server exposing every tool in registry. Every
// call is routed through dispatcher rather than directly against the
// registry's InvokableTool, so the audit entry and panic recovery the
// dispatcher provides apply uniformly whether the caller reached the tool
// over stdio or SSE.
func NewServer(registry *tools.Registry, dispatcher *tools.Dispatcher) *mcpsdk.Server {
	server := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}, nil)

	for _, spec := range registry.Specs() {
		mcpTool := specToMCPTool(spec)
		toolName := spec.Name

		server.AddTool(mcpTool, func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
			args := string(req.Params.Arguments)
			result, err := dispatcher.Call(ctx, toolName, args)
			if err != nil {
				slog.Debug("tool call failed", "tool", toolName, "error", err)
				return &mcpsdk.CallToolResult{
					IsError: true,
					Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
				}, nil
			}
			return &mcpsdk.CallToolResult{
				Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: result}},
			}, nil
		})
	}

	return server
}
