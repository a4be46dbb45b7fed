package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/babybirdprd/mcp-rg-editor/internal/editblock"
)

func TestFuzzySink_WritesHeaderThenRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fuzzy-search.jsonl")

	s, err := OpenFuzzySink(path)
	if err != nil {
		t.Fatalf("OpenFuzzySink: %v", err)
	}

	s.LogFuzzyAttempt(editblock.FuzzyLogEntry{
		FilePath:  filepath.Join(dir, "a.txt"),
		OldString: "foo",
		Window:    "fob",
		Score:     0.8,
		Timestamp: time.Now(),
	})
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		t.Fatal("expected a header line")
	}
	var header map[string]string
	if err := json.Unmarshal(scanner.Bytes(), &header); err != nil {
		t.Fatalf("unmarshal header: %v", err)
	}
	if header["file_path"] != "file_path" {
		t.Errorf("header row = %v, want column-name header", header)
	}

	if !scanner.Scan() {
		t.Fatal("expected a data row")
	}
	var row editblock.FuzzyLogEntry
	if err := json.Unmarshal(scanner.Bytes(), &row); err != nil {
		t.Fatalf("unmarshal row: %v", err)
	}
	if row.Score != 0.8 || row.OldString != "foo" {
		t.Errorf("row = %+v, want score 0.8 / old_string foo", row)
	}
}

func TestFuzzySink_ReopenDoesNotDuplicateHeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fuzzy-search.jsonl")

	s1, err := OpenFuzzySink(path)
	if err != nil {
		t.Fatalf("OpenFuzzySink: %v", err)
	}
	s1.LogFuzzyAttempt(editblock.FuzzyLogEntry{FilePath: "a", OldString: "b", Window: "c", Score: 0.9, Timestamp: time.Now()})
	s1.Close()

	s2, err := OpenFuzzySink(path)
	if err != nil {
		t.Fatalf("reopen OpenFuzzySink: %v", err)
	}
	s2.LogFuzzyAttempt(editblock.FuzzyLogEntry{FilePath: "d", OldString: "e", Window: "f", Score: 0.95, Timestamp: time.Now()})
	s2.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := 0
	for _, b := range data {
		if b == '\n' {
			lines++
		}
	}
	if lines != 3 {
		t.Errorf("got %d lines, want 3 (1 header + 2 rows)", lines)
	}
}
