package tools

import (
	"context"
	"encoding/json"

	"github.com/babybirdprd/mcp-rg-editor/internal/audit"
	"github.com/babybirdprd/mcp-rg-editor/internal/toolerr"
)

// Dispatcher routes one tools/call onto the Registry, recording exactly one
// audit entry per invocation (success or failure) and converting a handler
// panic into a toolerr.Internal rather than letting it unwind across the
// protocol frontend.
type Dispatcher struct {
	Registry *Registry
	Audit    *audit.Sink
}

// NewDispatcher builds a Dispatcher over registry, auditing through sink.
func NewDispatcher(registry *Registry, sink *audit.Sink) *Dispatcher {
	return &Dispatcher{Registry: registry, Audit: sink}
}

// Call validates name against the registry, invokes its handler, records an
// audit entry, and returns the handler's raw JSON result string.
func (d *Dispatcher) Call(ctx context.Context, name string, argsJSON string) (result string, err error) {
	args, parseErr := parseArgsForAudit(argsJSON)

	defer func() {
		if rec := recover(); rec != nil {
			err = toolerr.New(toolerr.Internal, "tool %q panicked: %v", name, rec)
			d.Audit.Record(name, args, toolerr.Outcome(err))
		}
	}()

	t := d.Registry.Tool(name)
	if t == nil {
		err = toolerr.New(toolerr.InvalidArguments, "unknown tool %q", name)
		d.Audit.Record(name, args, toolerr.Outcome(err))
		return "", err
	}

	if parseErr != nil {
		err = parseErr
		d.Audit.Record(name, args, toolerr.Outcome(err))
		return "", err
	}

	result, err = t.InvokableRun(ctx, argsJSON)
	d.Audit.Record(name, args, toolerr.Outcome(err))
	return result, err
}

// parseArgsForAudit best-effort decodes argsJSON for logging purposes. On
// failure it still returns a non-nil map (carrying the raw payload under
// "_raw") so the audit trail captures what was sent, plus the parse error
// for the caller to propagate as InvalidArguments.
func parseArgsForAudit(argsJSON string) (map[string]any, error) {
	if argsJSON == "" {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(argsJSON), &m); err != nil {
		return map[string]any{"_raw": argsJSON}, toolerr.New(toolerr.InvalidArguments, "invalid arguments: %v", err)
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}
