package tools

import (
	"context"
	"time"

	"github.com/babybirdprd/mcp-rg-editor/internal/fsops"
)

func readFileSpec() *Spec {
	return &Spec{
		Name:        "read_file",
		Description: "Read a text or image file (or fetch a URL when is_url is set). Text is returned line-sliced; images are returned as base64.",
		Parameters: map[string]ParamSpec{
			"path":    {Type: "string", Description: "Path to the file, or a URL when is_url is true", Required: true},
			"offset":  {Type: "integer", Description: "0-based line offset to start reading from"},
			"length":  {Type: "integer", Description: "Maximum number of lines to return"},
			"is_url":  {Type: "boolean", Description: "Fetch path as an http(s) URL instead of a local file"},
		},
	}
}

func newReadFileHandler(ops *fsops.Ops) Handler {
	return func(ctx context.Context, argsJSON string) (string, error) {
		args, err := parseArgs(argsJSON)
		if err != nil {
			return "", err
		}
		path, err := requireString(args, "path")
		if err != nil {
			return "", err
		}
		offset := optInt(args, "offset", 0)
		length := optInt(args, "length", 0)
		isURL := optBool(args, "is_url", false)

		res, err := ops.ReadFile(ctx, path, offset, length, isURL)
		if err != nil {
			return "", err
		}
		return marshalResult(res)
	}
}

func readMultipleFilesSpec() *Spec {
	return &Spec{
		Name:        "read_multiple_files",
		Description: "Read several files in one call; a failure on one path never aborts the batch.",
		Parameters: map[string]ParamSpec{
			"paths": {Type: "array", Description: "Paths to read", Required: true, Items: &ParamSpec{Type: "string"}},
		},
	}
}

func newReadMultipleFilesHandler(ops *fsops.Ops) Handler {
	return func(ctx context.Context, argsJSON string) (string, error) {
		args, err := parseArgs(argsJSON)
		if err != nil {
			return "", err
		}
		paths, err := requireStringSlice(args, "paths")
		if err != nil {
			return "", err
		}
		return marshalResult(ops.ReadMultipleFiles(ctx, paths))
	}
}

func writeFileSpec() *Spec {
	return &Spec{
		Name:        "write_file",
		Description: "Write or append text content to a file, creating parent directories as needed. Rejects content beyond the configured line limit.",
		Dangerous:   true,
		Parameters: map[string]ParamSpec{
			"path":    {Type: "string", Description: "Destination path", Required: true},
			"content": {Type: "string", Description: "Text to write", Required: true},
			"mode":    {Type: "string", Description: "rewrite (default) or append", Enum: []string{"rewrite", "append"}},
		},
	}
}

func newWriteFileHandler(ops *fsops.Ops) Handler {
	return func(_ context.Context, argsJSON string) (string, error) {
		args, err := parseArgs(argsJSON)
		if err != nil {
			return "", err
		}
		path, err := requireString(args, "path")
		if err != nil {
			return "", err
		}
		content, _ := args["content"].(string)
		mode := fsops.ModeRewrite
		if optString(args, "mode", "rewrite") == "append" {
			mode = fsops.ModeAppend
		}
		res, err := ops.WriteFile(path, content, mode)
		if err != nil {
			return "", err
		}
		return marshalResult(res)
	}
}

func createDirectorySpec() *Spec {
	return &Spec{
		Name:        "create_directory",
		Description: "Create a directory and any missing parents. Idempotent if it already exists.",
		Parameters: map[string]ParamSpec{
			"path": {Type: "string", Description: "Directory to create", Required: true},
		},
	}
}

type createDirectoryResult struct {
	Path string `json:"path"`
}

func newCreateDirectoryHandler(ops *fsops.Ops) Handler {
	return func(_ context.Context, argsJSON string) (string, error) {
		args, err := parseArgs(argsJSON)
		if err != nil {
			return "", err
		}
		path, err := requireString(args, "path")
		if err != nil {
			return "", err
		}
		abs, err := ops.CreateDirectory(path)
		if err != nil {
			return "", err
		}
		return marshalResult(createDirectoryResult{Path: abs})
	}
}

func listDirectorySpec() *Spec {
	return &Spec{
		Name:        "list_directory",
		Description: "List a directory's immediate entries as lines prefixed [DIR] or [FILE], sorted case-insensitively.",
		Parameters: map[string]ParamSpec{
			"path": {Type: "string", Description: "Directory to list", Required: true},
		},
	}
}

type listDirectoryResult struct {
	Entries []string `json:"entries"`
}

func newListDirectoryHandler(ops *fsops.Ops) Handler {
	return func(_ context.Context, argsJSON string) (string, error) {
		args, err := parseArgs(argsJSON)
		if err != nil {
			return "", err
		}
		path, err := requireString(args, "path")
		if err != nil {
			return "", err
		}
		entries, err := ops.ListDirectory(path)
		if err != nil {
			return "", err
		}
		return marshalResult(listDirectoryResult{Entries: entries})
	}
}

func moveFileSpec() *Spec {
	return &Spec{
		Name:        "move_file",
		Description: "Move or rename a file, falling back to copy+remove across devices.",
		Dangerous:   true,
		Parameters: map[string]ParamSpec{
			"source":      {Type: "string", Description: "Existing path", Required: true},
			"destination": {Type: "string", Description: "New path", Required: true},
		},
	}
}

type moveFileResult struct {
	Path string `json:"path"`
}

func newMoveFileHandler(ops *fsops.Ops) Handler {
	return func(_ context.Context, argsJSON string) (string, error) {
		args, err := parseArgs(argsJSON)
		if err != nil {
			return "", err
		}
		source, err := requireString(args, "source")
		if err != nil {
			return "", err
		}
		destination, err := requireString(args, "destination")
		if err != nil {
			return "", err
		}
		abs, err := ops.MoveFile(source, destination)
		if err != nil {
			return "", err
		}
		return marshalResult(moveFileResult{Path: abs})
	}
}

func searchFilesSpec() *Spec {
	return &Spec{
		Name:        "search_files",
		Description: "Recursively find file/directory names containing pattern as a case-insensitive substring.",
		Parameters: map[string]ParamSpec{
			"path":       {Type: "string", Description: "Directory to search under", Required: true},
			"pattern":    {Type: "string", Description: "Substring to match against entry names", Required: true},
			"timeout_ms": {Type: "integer", Description: "Search timeout in milliseconds (default 30000)"},
		},
	}
}

type searchFilesResult struct {
	Matches []string `json:"matches"`
}

func newSearchFilesHandler(ops *fsops.Ops) Handler {
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
		timeoutMs := optInt(args, "timeout_ms", 30000)
		matches, err := ops.SearchFiles(ctx, path, pattern, time.Duration(timeoutMs)*time.Millisecond)
		if err != nil {
			return "", err
		}
		return marshalResult(searchFilesResult{Matches: matches})
	}
}

func getFileInfoSpec() *Spec {
	return &Spec{
		Name:        "get_file_info",
		Description: "Stat a path: size, type, mtime, and platform permission/read-only bits. Symlinks are resolved first, so the result describes the link's target and no symlink target is reported.",
		Parameters: map[string]ParamSpec{
			"path": {Type: "string", Description: "Path to stat", Required: true},
		},
	}
}

func newGetFileInfoHandler(ops *fsops.Ops) Handler {
	return func(_ context.Context, argsJSON string) (string, error) {
		args, err := parseArgs(argsJSON)
		if err != nil {
			return "", err
		}
		path, err := requireString(args, "path")
		if err != nil {
			return "", err
		}
		info, err := ops.GetFileInfo(path)
		if err != nil {
			return "", err
		}
		return marshalResult(info)
	}
}
