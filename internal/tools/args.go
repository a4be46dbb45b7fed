package tools

import (
	"encoding/json"

	"github.com/babybirdprd/mcp-rg-editor/internal/toolerr"
)

// parseArgs decodes a tools/call argument payload into a generic map, used
// both for audit logging and as the source for each handler's typed get*
// lookups below.
func parseArgs(argsJSON string) (map[string]any, error) {
	if argsJSON == "" {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(argsJSON), &m); err != nil {
		return nil, toolerr.New(toolerr.InvalidArguments, "invalid arguments: %v", err)
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

func requireIntErr(key string) error {
	return toolerr.New(toolerr.InvalidArguments, "%q is required and must be a nonzero integer", key)
}

func requireString(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", toolerr.New(toolerr.InvalidArguments, "%q is required", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", toolerr.New(toolerr.InvalidArguments, "%q must be a non-empty string", key)
	}
	return s, nil
}

func optString(args map[string]any, key, fallback string) string {
	v, ok := args[key]
	if !ok {
		return fallback
	}
	s, ok := v.(string)
	if !ok {
		return fallback
	}
	return s
}

func optBool(args map[string]any, key string, fallback bool) bool {
	v, ok := args[key]
	if !ok {
		return fallback
	}
	b, ok := v.(bool)
	if !ok {
		return fallback
	}
	return b
}

func optInt(args map[string]any, key string, fallback int) int {
	v, ok := args[key]
	if !ok {
		return fallback
	}
	switch t := v.(type) {
	case float64:
		return int(t)
	case int:
		return t
	default:
		return fallback
	}
}

func requireStringSlice(args map[string]any, key string) ([]string, error) {
	v, ok := args[key]
	if !ok {
		return nil, toolerr.New(toolerr.InvalidArguments, "%q is required", key)
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, toolerr.New(toolerr.InvalidArguments, "%q must be an array of strings", key)
	}
	out := make([]string, len(arr))
	for i, e := range arr {
		s, ok := e.(string)
		if !ok {
			return nil, toolerr.New(toolerr.InvalidArguments, "%q[%d] must be a string", key, i)
		}
		out[i] = s
	}
	return out, nil
}

func marshalResult(v any) (string, error) {
	out, err := json.Marshal(v)
	if err != nil {
		return "", toolerr.New(toolerr.Internal, "marshal result: %v", err)
	}
	return string(out), nil
}
