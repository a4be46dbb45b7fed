package editblock

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/babybirdprd/mcp-rg-editor/internal/pathguard"
	"github.com/babybirdprd/mcp-rg-editor/internal/toolerr"
)

type fakeFuzzyLogger struct{ entries []FuzzyLogEntry }

func (f *fakeFuzzyLogger) LogFuzzyAttempt(e FuzzyLogEntry) { f.entries = append(f.entries, e) }

func newEngine(t *testing.T) (*Engine, string, *fakeFuzzyLogger) {
	t.Helper()
	root := t.TempDir()
	g := pathguard.New(root, nil)
	logger := &fakeFuzzyLogger{}
	return New(g, logger), root, logger
}

func TestBlock_ExactReplace(t *testing.T) {
	e, root, _ := newEngine(t)
	path := filepath.Join(root, "test_edit.txt")
	if err := os.WriteFile(path, []byte("Initial content for edit."), 0644); err != nil {
		t.Fatal(err)
	}

	res, err := e.Block("test_edit.txt", "Initial content for edit.", "Edited exact content.", 1)
	if err != nil {
		t.Fatalf("Block: %v", err)
	}
	if res.ReplacementsMade != 1 {
		t.Errorf("ReplacementsMade = %d, want 1", res.ReplacementsMade)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "Edited exact content." {
		t.Errorf("file content = %q", data)
	}
}

func TestBlock_FuzzyFallbackDoesNotModify(t *testing.T) {
	e, root, _ := newEngine(t)
	path := filepath.Join(root, "test_edit.txt")
	original := "Edited exact content."
	if err := os.WriteFile(path, []byte(original), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := e.Block("test_edit.txt", "Edited exact content that is slightly different", "X", 1)
	if err == nil {
		t.Fatal("expected fuzzy-fallback error")
	}
	if !strings.Contains(err.Error(), "Found a similar text with") {
		t.Errorf("error = %q, want substring 'Found a similar text with'", err.Error())
	}

	data, _ := os.ReadFile(path)
	if string(data) != original {
		t.Errorf("file was modified during fuzzy fallback: %q", data)
	}
}

func TestBlock_ReplacementCountMismatch(t *testing.T) {
	e, root, _ := newEngine(t)
	path := filepath.Join(root, "f.txt")
	if err := os.WriteFile(path, []byte("aXaXa"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := e.Block("f.txt", "a", "b", 1)
	if err == nil {
		t.Fatal("expected mismatch error")
	}
	te, ok := toolerr.As(err)
	if !ok || te.Kind != toolerr.ReplacementCountMismatch {
		t.Errorf("got %v, want ReplacementCountMismatch", err)
	}
	if te.Details["expected"] != 1 || te.Details["actual"] != 3 {
		t.Errorf("details = %v", te.Details)
	}
}

func TestBlock_ZeroMeansReplaceAll(t *testing.T) {
	e, root, _ := newEngine(t)
	path := filepath.Join(root, "f.txt")
	if err := os.WriteFile(path, []byte("aXaXa"), 0644); err != nil {
		t.Fatal(err)
	}
	res, err := e.Block("f.txt", "a", "Z", 0)
	if err != nil {
		t.Fatalf("Block: %v", err)
	}
	if res.ReplacementsMade != 3 {
		t.Errorf("ReplacementsMade = %d, want 3", res.ReplacementsMade)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "ZXZXZ" {
		t.Errorf("content = %q", data)
	}
}

func TestBlock_ZeroWithNoOccurrencesFallsThroughToFuzzy(t *testing.T) {
	e, root, _ := newEngine(t)
	path := filepath.Join(root, "f.txt")
	if err := os.WriteFile(path, []byte("completely different content here"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := e.Block("f.txt", "nonexistent string", "Z", 0)
	if err == nil {
		t.Fatal("expected fuzzy fallback error")
	}
}

func TestBlock_PreservesCRLF(t *testing.T) {
	e, root, _ := newEngine(t)
	path := filepath.Join(root, "f.txt")
	if err := os.WriteFile(path, []byte("line1\r\nline2\r\nline3\r\n"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := e.Block("f.txt", "line2", "replaced", 1)
	if err != nil {
		t.Fatalf("Block: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "line1\r\nreplaced\r\nline3\r\n" {
		t.Errorf("content = %q", data)
	}
}

func TestBlock_ErrorLeavesFileByteIdentical(t *testing.T) {
	e, root, _ := newEngine(t)
	path := filepath.Join(root, "f.txt")
	original := []byte("some original content")
	if err := os.WriteFile(path, original, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Block("f.txt", "totally absent needle text xyz", "Z", 2); err == nil {
		t.Fatal("expected error")
	}
	data, _ := os.ReadFile(path)
	if string(data) != string(original) {
		t.Errorf("file mutated on error path: %q", data)
	}
}

func TestRenderBracketedDiff_MinimizesRegion(t *testing.T) {
	got := renderBracketedDiff("hello world", "hello there")
	want := "hello {-world-}{+there+}"
	if got != want {
		t.Errorf("renderBracketedDiff() = %q, want %q", got, want)
	}
}
