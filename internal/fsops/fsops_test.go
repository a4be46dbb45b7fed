package fsops

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/babybirdprd/mcp-rg-editor/internal/pathguard"
	"github.com/babybirdprd/mcp-rg-editor/internal/toolerr"
)

func newOps(t *testing.T) (*Ops, string) {
	t.Helper()
	root := t.TempDir()
	g := pathguard.New(root, nil)
	return New(g, 1000, 50, nil), root
}

func TestReadFile_Basic(t *testing.T) {
	ops, root := newOps(t)
	if err := os.WriteFile(filepath.Join(root, "test_read.txt"), []byte("Hello from test_read.txt\n"), 0644); err != nil {
		t.Fatal(err)
	}

	r, err := ops.ReadFile(context.Background(), "test_read.txt", 0, 0, false)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(r.Content, "Hello from test_read.txt") {
		t.Errorf("Content = %q, want substring", r.Content)
	}
}

func TestReadFile_EmptyFileNoError(t *testing.T) {
	ops, root := newOps(t)
	if err := os.WriteFile(filepath.Join(root, "empty.txt"), nil, 0644); err != nil {
		t.Fatal(err)
	}
	r, err := ops.ReadFile(context.Background(), "empty.txt", 0, 0, false)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if r.Content != "" {
		t.Errorf("Content = %q, want empty", r.Content)
	}
}

func TestWriteFile_RoundTrip(t *testing.T) {
	ops, _ := newOps(t)
	if _, err := ops.WriteFile("out.txt", "hello world", ModeRewrite); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	r, err := ops.ReadFile(context.Background(), "out.txt", 0, 0, false)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if r.Content != "hello world" {
		t.Errorf("Content = %q, want %q", r.Content, "hello world")
	}
}

func TestWriteFile_ContentTooLong(t *testing.T) {
	ops, _ := newOps(t)
	ops.WriteLineLimit = 2
	content := "a\nb\nc\n"
	_, err := ops.WriteFile("out.txt", content, ModeRewrite)
	if err == nil {
		t.Fatal("expected ContentTooLong error")
	}
	te, ok := toolerr.As(err)
	if !ok || te.Kind != toolerr.ContentTooLong {
		t.Errorf("got %v, want ContentTooLong", err)
	}
}

func TestWriteFile_BoundaryExactLimitSucceeds(t *testing.T) {
	ops, _ := newOps(t)
	ops.WriteLineLimit = 3
	content := "a\nb\nc"
	if _, err := ops.WriteFile("out.txt", content, ModeRewrite); err != nil {
		t.Errorf("expected exact-limit write to succeed, got %v", err)
	}
}

func TestCreateDirectory_IdempotentAndListed(t *testing.T) {
	ops, _ := newOps(t)
	if _, err := ops.CreateDirectory("sub/dir"); err != nil {
		t.Fatalf("CreateDirectory: %v", err)
	}
	if _, err := ops.CreateDirectory("sub/dir"); err != nil {
		t.Errorf("second CreateDirectory should be idempotent, got %v", err)
	}
	entries, err := ops.ListDirectory("sub")
	if err != nil {
		t.Fatalf("ListDirectory: %v", err)
	}
	found := false
	for _, e := range entries {
		if e == "[DIR] dir" {
			found = true
		}
	}
	if !found {
		t.Errorf("ListDirectory = %v, want entry '[DIR] dir'", entries)
	}
}

func TestListDirectory_Format(t *testing.T) {
	ops, root := newOps(t)
	if err := os.WriteFile(filepath.Join(root, "b.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(root, "A"), 0755); err != nil {
		t.Fatal(err)
	}
	entries, err := ops.ListDirectory(".")
	if err != nil {
		t.Fatalf("ListDirectory: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %v", entries)
	}
	// case-insensitive sort: "A" before "b.txt"
	if entries[0] != "[DIR] A" || entries[1] != "[FILE] b.txt" {
		t.Errorf("entries = %v", entries)
	}
}

func TestMoveFile(t *testing.T) {
	ops, root := newOps(t)
	if err := os.WriteFile(filepath.Join(root, "src.txt"), []byte("content"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ops.MoveFile("src.txt", "dst.txt"); err != nil {
		t.Fatalf("MoveFile: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "src.txt")); !os.IsNotExist(err) {
		t.Errorf("source should no longer exist")
	}
	data, err := os.ReadFile(filepath.Join(root, "dst.txt"))
	if err != nil || string(data) != "content" {
		t.Errorf("dst.txt = %q, %v", data, err)
	}
}

func TestSearchFiles_SubstringCaseInsensitive(t *testing.T) {
	ops, root := newOps(t)
	if err := os.WriteFile(filepath.Join(root, "MyFile.go"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	matches, err := ops.SearchFiles(context.Background(), ".", "myfile", time.Second)
	if err != nil {
		t.Fatalf("SearchFiles: %v", err)
	}
	if len(matches) != 1 {
		t.Errorf("matches = %v, want 1", matches)
	}
}

func TestGetFileInfo(t *testing.T) {
	ops, root := newOps(t)
	if err := os.WriteFile(filepath.Join(root, "f.txt"), []byte("12345"), 0644); err != nil {
		t.Fatal(err)
	}
	info, err := ops.GetFileInfo("f.txt")
	if err != nil {
		t.Fatalf("GetFileInfo: %v", err)
	}
	if info.Size != 5 || !info.IsFile || info.IsDir {
		t.Errorf("info = %+v", info)
	}
}

func TestReadFile_OutsideJailRejected(t *testing.T) {
	ops, _ := newOps(t)
	if _, err := ops.ReadFile(context.Background(), "/etc/passwd", 0, 0, false); err == nil {
		t.Fatal("expected jail rejection")
	}
}
