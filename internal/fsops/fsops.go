// Package fsops implements the filesystem-facing tool operations: read,
// write, list, move, create, stat, and name-search, all routed through a
// path guard first. It generalizes the teacher's native_readfile.go,
// native_writefile.go, native_listdir.go, and fsbackend.go into the eight
// operations this server exposes, changing list_directory's output shape
// to the stable "[DIR]"/"[FILE]" line format the protocol contract requires.
package fsops

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/babybirdprd/mcp-rg-editor/internal/pathguard"
	"github.com/babybirdprd/mcp-rg-editor/internal/toolerr"
)

// Ops bundles the path guard and the line-limit knobs every filesystem
// operation needs.
type Ops struct {
	Guard             *pathguard.Guard
	ReadLineLimit     int
	WriteLineLimit    int
	HTTPClient        *http.Client
}

// New builds an Ops. If httpClient is nil a 30s-timeout default is used.
func New(guard *pathguard.Guard, readLineLimit, writeLineLimit int, httpClient *http.Client) *Ops {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Ops{Guard: guard, ReadLineLimit: readLineLimit, WriteLineLimit: writeLineLimit, HTTPClient: httpClient}
}

// ReadResult is the outcome of a single ReadFile call.
type ReadResult struct {
	Path      string `json:"path"`
	Content   string `json:"content,omitempty"`
	IsImage   bool   `json:"is_image,omitempty"`
	IsBinary  bool   `json:"is_binary,omitempty"`
	MimeType  string `json:"mime_type,omitempty"`
	ImageB64  string `json:"image_base64,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`
	Lines     int    `json:"lines,omitempty"`
}

var imageSubtypes = map[string]bool{"png": true, "jpeg": true, "gif": true, "webp": true}

// ReadFile reads path (or, when isURL is set, fetches it over http/https),
// returning a line-sliced text payload, a base64 image payload, or, for
// other binary content, the raw bytes flagged IsBinary.
func (o *Ops) ReadFile(ctx context.Context, path string, offsetLines, lengthLines int, isURL bool) (*ReadResult, error) {
	if isURL {
		return o.readURL(ctx, path)
	}

	abs, err := o.Guard.Resolve(path, true)
	if err != nil {
		return nil, pathguard.ToolErr(err)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, toolerr.New(toolerr.PathNotFound, "read_file: %s: %v", path, err)
	}

	mt := mimetype.Detect(data)
	subtype := strings.TrimPrefix(mt.String(), "image/")
	if idx := strings.IndexByte(subtype, ';'); idx >= 0 {
		subtype = subtype[:idx]
	}
	if imageSubtypes[subtype] {
		return &ReadResult{
			Path:     abs,
			IsImage:  true,
			MimeType: "image/" + subtype,
			ImageB64: base64.StdEncoding.EncodeToString(data),
		}, nil
	}

	if !mt.Is("text/plain") {
		// Non-image binary: line slicing doesn't apply, so hand back the
		// raw bytes whole, flagged so the caller doesn't try to treat them
		// as text.
		return &ReadResult{Path: abs, Content: string(data), IsBinary: true, MimeType: mt.String()}, nil
	}

	if lengthLines <= 0 {
		lengthLines = o.ReadLineLimit
	}
	lines := splitLinesKeepEmpty(data)
	total := len(lines)
	start := offsetLines
	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	end := start + lengthLines
	truncated := false
	if end < total {
		truncated = true
	} else {
		end = total
	}

	content := strings.Join(lines[start:end], "\n")
	return &ReadResult{Path: abs, Content: content, Lines: end - start, Truncated: truncated}, nil
}

func (o *Ops) readURL(ctx context.Context, url string) (*ReadResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, toolerr.New(toolerr.InvalidArguments, "read_file: bad url %q: %v", url, err)
	}
	resp, err := o.HTTPClient.Do(req)
	if err != nil {
		return nil, toolerr.New(toolerr.Timeout, "read_file: fetch %q: %v", url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, toolerr.New(toolerr.Internal, "read_file: read body: %v", err)
	}

	mt := mimetype.Detect(data)
	subtype := strings.TrimPrefix(mt.String(), "image/")
	if imageSubtypes[subtype] {
		return &ReadResult{Path: url, IsImage: true, MimeType: "image/" + subtype, ImageB64: base64.StdEncoding.EncodeToString(data)}, nil
	}
	return &ReadResult{Path: url, Content: string(data)}, nil
}

func splitLinesKeepEmpty(data []byte) []string {
	s := string(data)
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// MultiReadResult is one entry of a read_multiple_files batch response.
type MultiReadResult struct {
	Path   string      `json:"path"`
	Result *ReadResult `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// ReadMultipleFiles reads each path independently; one failure never aborts
// the batch.
func (o *Ops) ReadMultipleFiles(ctx context.Context, paths []string) []MultiReadResult {
	out := make([]MultiReadResult, len(paths))
	for i, p := range paths {
		r, err := o.ReadFile(ctx, p, 0, 0, false)
		if err != nil {
			out[i] = MultiReadResult{Path: p, Error: err.Error()}
			continue
		}
		out[i] = MultiReadResult{Path: p, Result: r}
	}
	return out
}

// WriteMode selects rewrite-vs-append semantics for WriteFile.
type WriteMode string

const (
	ModeRewrite WriteMode = "rewrite"
	ModeAppend  WriteMode = "append"
)

// WriteResult reports what WriteFile did.
type WriteResult struct {
	Path         string `json:"path"`
	BytesWritten int    `json:"bytes_written"`
}

// WriteFile enforces the write line limit, creates parent directories, and
// writes or appends content.
func (o *Ops) WriteFile(path, content string, mode WriteMode) (*WriteResult, error) {
	lineCount := strings.Count(content, "\n") + 1
	if content == "" {
		lineCount = 0
	}
	if lineCount > o.WriteLineLimit {
		return nil, toolerr.WithDetails(toolerr.ContentTooLong, map[string]any{
			"received": lineCount,
			"limit":    o.WriteLineLimit,
		}, "write_file: content has %d lines, limit is %d; split the write into multiple calls", lineCount, o.WriteLineLimit)
	}

	abs, err := o.Guard.Resolve(path, false)
	if err != nil {
		return nil, pathguard.ToolErr(err)
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, toolerr.New(toolerr.Internal, "write_file: mkdir: %v", err)
	}

	switch mode {
	case ModeAppend:
		f, err := os.OpenFile(abs, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, toolerr.New(toolerr.Internal, "write_file: open: %v", err)
		}
		defer f.Close()
		payload := ensureLeadingNewlineBoundary(f, content)
		n, err := f.WriteString(payload)
		if err != nil {
			return nil, toolerr.New(toolerr.Internal, "write_file: append: %v", err)
		}
		return &WriteResult{Path: abs, BytesWritten: n}, nil
	default:
		if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
			return nil, toolerr.New(toolerr.Internal, "write_file: %v", err)
		}
		return &WriteResult{Path: abs, BytesWritten: len(content)}, nil
	}
}

// ensureLeadingNewlineBoundary inserts a newline before an append payload
// when the existing file does not already end in one, so two writes never
// merge into a single logical line.
func ensureLeadingNewlineBoundary(f *os.File, content string) string {
	info, err := f.Stat()
	if err != nil || info.Size() == 0 {
		return content
	}
	buf := make([]byte, 1)
	if _, err := f.ReadAt(buf, info.Size()-1); err != nil {
		return content
	}
	if buf[0] == '\n' {
		return content
	}
	return "\n" + content
}

// CreateDirectory creates path and all missing parents; it is idempotent on
// an already-existing directory and fails if path exists as a file.
func (o *Ops) CreateDirectory(path string) (string, error) {
	abs, err := o.Guard.Resolve(path, false)
	if err != nil {
		return "", pathguard.ToolErr(err)
	}
	if info, err := os.Stat(abs); err == nil && !info.IsDir() {
		return "", toolerr.New(toolerr.PathNotADirectory, "create_directory: %s exists and is not a directory", path)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return "", toolerr.New(toolerr.Internal, "create_directory: %v", err)
	}
	return abs, nil
}

// ListDirectory returns entries formatted as "[DIR] name" / "[FILE] name",
// sorted case-insensitively by name — the stable, tested output contract.
func (o *Ops) ListDirectory(path string) ([]string, error) {
	abs, err := o.Guard.ResolveDir(path)
	if err != nil {
		return nil, pathguard.ToolErr(err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, toolerr.New(toolerr.Internal, "list_directory: %v", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return strings.ToLower(entries[i].Name()) < strings.ToLower(entries[j].Name())
	})
	out := make([]string, len(entries))
	for i, e := range entries {
		tag := "[FILE]"
		if e.IsDir() {
			tag = "[DIR]"
		}
		out[i] = fmt.Sprintf("%s %s", tag, e.Name())
	}
	return out, nil
}

// MoveFile renames source to destination, falling back to copy+unlink on a
// cross-device rename failure.
func (o *Ops) MoveFile(source, destination string) (string, error) {
	absSrc, err := o.Guard.Resolve(source, true)
	if err != nil {
		return "", pathguard.ToolErr(err)
	}
	absDst, err := o.Guard.Resolve(destination, false)
	if err != nil {
		return "", pathguard.ToolErr(err)
	}

	if err := os.MkdirAll(filepath.Dir(absDst), 0o755); err != nil {
		return "", toolerr.New(toolerr.Internal, "move_file: mkdir: %v", err)
	}

	if err := os.Rename(absSrc, absDst); err != nil {
		if !isCrossDevice(err) {
			return "", toolerr.New(toolerr.Internal, "move_file: %v", err)
		}
		if err := copyThenRemove(absSrc, absDst); err != nil {
			return "", toolerr.New(toolerr.Internal, "move_file: cross-device copy: %v", err)
		}
	}
	return absDst, nil
}

func copyThenRemove(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	_ = os.Chtimes(dst, time.Now(), info.ModTime())
	return os.Remove(src)
}

// SearchFiles walks root, case-insensitively matching pattern as a
// substring of each entry's name, bounded by timeout.
func (o *Ops) SearchFiles(ctx context.Context, root, pattern string, timeout time.Duration) ([]string, error) {
	absRoot, err := o.Guard.ResolveDir(root)
	if err != nil {
		return nil, pathguard.ToolErr(err)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	needle := strings.ToLower(pattern)
	var matches []string
	walkErr := filepath.WalkDir(absRoot, func(p string, d os.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			return nil
		}
		if skipDirName(d.Name()) && d.IsDir() && p != absRoot {
			return filepath.SkipDir
		}
		if strings.Contains(strings.ToLower(d.Name()), needle) {
			matches = append(matches, p)
		}
		return nil
	})
	if walkErr != nil && ctx.Err() != nil {
		return matches, toolerr.New(toolerr.Timeout, "search_files: timed out after %s", timeout)
	}
	return matches, nil
}

var skipDirs = map[string]bool{".git": true, "node_modules": true, "vendor": true, ".hg": true}

func skipDirName(name string) bool { return skipDirs[name] }

// Info is the stat payload returned by GetFileInfo.
type Info struct {
	Path        string    `json:"path"`
	Size        int64     `json:"size"`
	IsFile      bool      `json:"is_file"`
	IsDir       bool      `json:"is_dir"`
	ModTime     time.Time `json:"mtime"`
	ChangeTime  time.Time `json:"ctime,omitzero"`
	AccessTime  time.Time `json:"atime,omitzero"`
	SymlinkDest string    `json:"symlink_target,omitempty"`
	Permissions string    `json:"permissions,omitempty"`
	ReadOnly    *bool     `json:"read_only,omitempty"`
}

// GetFileInfo stats path and reports POSIX permission bits or a read-only
// flag, depending on platform (see fileinfo_unix.go / fileinfo_windows.go).
// The path guard resolves symlinks before the stat, so a symlink is
// reported as its target and SymlinkDest stays empty.
func (o *Ops) GetFileInfo(path string) (*Info, error) {
	abs, err := o.Guard.Resolve(path, true)
	if err != nil {
		return nil, pathguard.ToolErr(err)
	}
	fi, err := os.Lstat(abs)
	if err != nil {
		return nil, toolerr.New(toolerr.PathNotFound, "get_file_info: %s: %v", path, err)
	}

	info := &Info{
		Path:    abs,
		Size:    fi.Size(),
		IsFile:  fi.Mode().IsRegular(),
		IsDir:   fi.IsDir(),
		ModTime: fi.ModTime(),
	}
	if fi.Mode()&os.ModeSymlink != 0 {
		if target, err := os.Readlink(abs); err == nil {
			info.SymlinkDest = target
		}
	}
	populatePlatformInfo(info, fi)
	return info, nil
}

func isCrossDevice(err error) bool {
	return strings.Contains(err.Error(), "cross-device") || strings.Contains(err.Error(), "invalid cross-device link")
}
