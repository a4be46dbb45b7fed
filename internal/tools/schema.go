// Package tools implements the static tool registry and dispatcher (C9):
// schema-typed routing from a JSON-RPC tools/call onto one of the eighteen
// concrete handlers, each wrapping a C2–C8 component. It generalizes this
// codebase's PluginManifest/ToolSpec/ParamSpec shape — dropping the
// WASM/Extism loading path entirely, since every handler here is native Go,
// not loaded guest code — and its Eino InvokableTool adapter.
package tools

import (
	"context"
	"sort"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
)

// ParamSpec describes one JSON argument field, enough to build both an
// Eino schema.ParameterInfo and a JSON-Schema property object for the
// protocol frontend's tools/list.
type ParamSpec struct {
	Type        string
	Description string
	Required    bool
	Enum        []string
	Default     any
	Items       *ParamSpec
}

// Spec describes one tool's name, description, and argument schema.
type Spec struct {
	Name        string
	Description string
	Dangerous   bool
	Parameters  map[string]ParamSpec
}

// SortedParamNames returns Parameters' keys sorted, for callers that need a
// stable parameter order. The protocol frontend sorts its required-field
// list itself and does not call this.
func (s *Spec) SortedParamNames() []string {
	names := make([]string, 0, len(s.Parameters))
	for n := range s.Parameters {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ToToolInfo builds the Eino schema.ToolInfo consumed by InvokableTool.Info.
func (s *Spec) ToToolInfo() *schema.ToolInfo {
	info := &schema.ToolInfo{Name: s.Name, Desc: s.Description}
	if len(s.Parameters) == 0 {
		return info
	}
	params := make(map[string]*schema.ParameterInfo, len(s.Parameters))
	for name, p := range s.Parameters {
		params[name] = &schema.ParameterInfo{
			Type:     paramTypeToDataType(p.Type),
			Desc:     p.Description,
			Required: p.Required,
			Enum:     p.Enum,
		}
	}
	info.ParamsOneOf = schema.NewParamsOneOfByParams(params)
	return info
}

func paramTypeToDataType(t string) schema.DataType {
	switch t {
	case "number":
		return schema.Number
	case "integer":
		return schema.Integer
	case "boolean":
		return schema.Boolean
	case "array":
		return schema.Array
	case "object":
		return schema.Object
	default:
		return schema.String
	}
}

// Handler is the concrete per-tool implementation: parse args, run the
// effect, marshal the result. Every tool in the registry implements Eino's
// tool.InvokableTool directly via invokableTool below, so the dispatcher
// never needs reflection-based dynamic dispatch across tool boundaries.
type Handler func(ctx context.Context, argsJSON string) (string, error)

// invokableTool adapts a Spec + Handler pair to tool.InvokableTool.
type invokableTool struct {
	spec    *Spec
	handler Handler
}

func (t *invokableTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return t.spec.ToToolInfo(), nil
}

func (t *invokableTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	return t.handler(ctx, argumentsInJSON)
}

var _ tool.InvokableTool = (*invokableTool)(nil)
