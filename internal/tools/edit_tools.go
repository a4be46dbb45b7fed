package tools

import (
	"context"

	"github.com/babybirdprd/mcp-rg-editor/internal/editblock"
)

func editBlockSpec() *Spec {
	return &Spec{
		Name:        "edit_block",
		Description: "Replace old_string with new_string in file_path. expected_replacements (default 1) is the exact occurrence count required; 0 replaces all occurrences. When no exact occurrence is found, the call falls through to a reported, non-applied fuzzy match.",
		Dangerous:   true,
		Parameters: map[string]ParamSpec{
			"file_path":             {Type: "string", Description: "File to edit", Required: true},
			"old_string":            {Type: "string", Description: "Text to find", Required: true},
			"new_string":            {Type: "string", Description: "Replacement text", Required: true},
			"expected_replacements": {Type: "integer", Description: "Exact occurrence count required; 0 means replace all occurrences (default 1)"},
		},
	}
}

func newEditBlockHandler(engine *editblock.Engine) Handler {
	return func(_ context.Context, argsJSON string) (string, error) {
		args, err := parseArgs(argsJSON)
		if err != nil {
			return "", err
		}
		filePath, err := requireString(args, "file_path")
		if err != nil {
			return "", err
		}
		oldString, err := requireString(args, "old_string")
		if err != nil {
			return "", err
		}
		newString, _ := args["new_string"].(string)
		expected := optInt(args, "expected_replacements", 1)

		res, err := engine.Block(filePath, oldString, newString, expected)
		if err != nil {
			return "", err
		}
		return marshalResult(res)
	}
}
