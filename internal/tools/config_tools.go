package tools

import (
	"context"

	"github.com/babybirdprd/mcp-rg-editor/internal/config"
	"github.com/babybirdprd/mcp-rg-editor/internal/toolerr"
)

func getConfigSpec() *Spec {
	return &Spec{
		Name:        "get_config",
		Description: "Return the server's current effective configuration.",
		Parameters:  map[string]ParamSpec{},
	}
}

func newGetConfigHandler(store *config.Store) Handler {
	return func(_ context.Context, _ string) (string, error) {
		return marshalResult(store.Current())
	}
}

func setConfigValueSpec() *Spec {
	return &Spec{
		Name:        "set_config_value",
		Description: "Update one runtime-settable configuration key. Settable keys: allowed_directories, blocked_commands, default_shell, file_read_line_limit, file_write_line_limit, log_level.",
		Dangerous:   true,
		Parameters: map[string]ParamSpec{
			"key": {
				Type:        "string",
				Description: "Configuration key to set",
				Required:    true,
				Enum:        config.SettableKeys,
			},
			"value": {
				Type:        "string",
				Description: "New value; a string, array of strings, or number depending on key",
				Required:    true,
			},
		},
	}
}

type setConfigValueResult struct {
	OK     bool         `json:"ok"`
	Config *config.Config `json:"config"`
}

func newSetConfigValueHandler(store *config.Store) Handler {
	return func(_ context.Context, argsJSON string) (string, error) {
		args, err := parseArgs(argsJSON)
		if err != nil {
			return "", err
		}
		key, err := requireString(args, "key")
		if err != nil {
			return "", err
		}
		value, ok := args["value"]
		if !ok {
			return "", toolerr.New(toolerr.InvalidArguments, "%q is required", "value")
		}
		if err := store.SetValue(key, value); err != nil {
			return "", toolerr.New(toolerr.InvalidArguments, "set_config_value: %v", err)
		}
		return marshalResult(setConfigValueResult{OK: true, Config: store.Current()})
	}
}
