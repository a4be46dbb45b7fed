// Package mcpserver is the protocol frontend (C10): it publishes the tool
// registry over the Model Context Protocol, via stdio for direct agent
// embedding and via SSE-over-HTTP (chi) for networked clients. It
// generalizes this codebase's mcp/server.go and mcp/convert.go from a
// plugin-registry source to the fixed eighteen-tool dispatcher.
package mcpserver

import (
	"sort"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/babybirdprd/mcp-rg-editor/internal/tools"
)

// specToMCPTool converts a tools.Spec to an mcp.Tool with a JSON Schema
// input shape, matching the same prop/required construction this
// codebase's convert.go uses.
func specToMCPTool(spec *tools.Spec) *mcpsdk.Tool {
	props := make(map[string]any, len(spec.Parameters))
	var required []string

	for name, p := range spec.Parameters {
		prop := map[string]any{
			"type":        p.Type,
			"description": p.Description,
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		if p.Items != nil {
			prop["items"] = map[string]any{"type": p.Items.Type}
		}
		props[name] = prop

		if p.Required {
			required = append(required, name)
		}
	}
	sort.Strings(required)

	inputSchema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		inputSchema["required"] = required
	}

	return &mcpsdk.Tool{
		Name:        spec.Name,
		Description: spec.Description,
		InputSchema: inputSchema,
	}
}
