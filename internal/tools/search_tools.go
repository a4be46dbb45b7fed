package tools

import (
	"context"
	"time"

	"github.com/babybirdprd/mcp-rg-editor/internal/ripgrep"
)

func searchCodeSpec() *Spec {
	return &Spec{
		Name:        "search_code",
		Description: "Search file contents with ripgrep. Output lines are formatted \"path:line:text\".",
		Parameters: map[string]ParamSpec{
			"path":           {Type: "string", Description: "Directory to search under", Required: true},
			"pattern":        {Type: "string", Description: "Pattern passed to rg", Required: true},
			"case_sensitive": {Type: "boolean", Description: "Match case-sensitively (default false)"},
			"file_pattern":   {Type: "string", Description: "Glob filter, passed as rg -g"},
			"context_lines":  {Type: "integer", Description: "Lines of context around each match"},
			"include_hidden": {Type: "boolean", Description: "Search hidden files/directories too"},
			"timeout_ms":     {Type: "integer", Description: "Search timeout in milliseconds (default 30000)"},
			"max_results":    {Type: "integer", Description: "Cap on the number of matches returned"},
		},
	}
}

type searchCodeResult struct {
	Lines []string `json:"lines"`
}

func newSearchCodeHandler(driver *ripgrep.Driver) Handler {
	return func(ctx context.Context, argsJSON string) (string, error) {
		args, err := parseArgs(argsJSON)
		if err != nil {
			return "", err
		}
		path, err := requireString(args, "path")
		if err != nil {
			return "", err
		}
		pattern, err := requireString(args, "pattern")
		if err != nil {
			return "", err
		}

		opts := ripgrep.Options{
			CaseSensitive: optBool(args, "case_sensitive", false),
			FilePattern:   optString(args, "file_pattern", ""),
			ContextLines:  optInt(args, "context_lines", 0),
			IncludeHidden: optBool(args, "include_hidden", false),
			Timeout:       time.Duration(optInt(args, "timeout_ms", 30000)) * time.Millisecond,
			MaxResults:    optInt(args, "max_results", 0),
		}

		matches, err := driver.Search(ctx, path, pattern, opts)
		if err != nil {
			return "", err
		}

		lines := make([]string, len(matches))
		for i, m := range matches {
			lines[i] = ripgrep.FormatLine(m)
		}
		return marshalResult(searchCodeResult{Lines: lines})
	}
}
