package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/babybirdprd/mcp-rg-editor/internal/editblock"
)

// FuzzySink is the JSONL writer for edit_block's fuzzy-fallback log, the
// "fuzzy-search log" named in spec.md §6. It satisfies editblock.FuzzyLogger.
// The first line of a freshly created file is a header row, matching the
// spec's "first line a header" requirement for the CSV/JSONL fuzzy log.
type FuzzySink struct {
	mu   sync.Mutex
	file *os.File
}

type fuzzyHeader struct {
	FilePath  string `json:"file_path"`
	OldString string `json:"old_string"`
	Window    string `json:"window"`
	Score     string `json:"score"`
	Timestamp string `json:"ts"`
}

// OpenFuzzySink creates the parent directory and opens (or creates) the
// fuzzy-search log at path, writing a header row on first creation.
func OpenFuzzySink(path string) (*FuzzySink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("fuzzylog: mkdir: %w", err)
	}
	_, statErr := os.Stat(path)
	needsHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("fuzzylog: open: %w", err)
	}

	s := &FuzzySink{file: f}
	if needsHeader {
		header, _ := json.Marshal(fuzzyHeader{
			FilePath:  "file_path",
			OldString: "old_string",
			Window:    "window",
			Score:     "score",
			Timestamp: "ts",
		})
		if _, werr := s.file.Write(append(header, '\n')); werr != nil {
			f.Close()
			return nil, fmt.Errorf("fuzzylog: write header: %w", werr)
		}
	}
	return s, nil
}

// LogFuzzyAttempt appends one fuzzy-match attempt row. Marshal failures and
// write errors are reported to stderr rather than propagated: a logging
// failure must never fail the edit_block call that triggered it.
func (s *FuzzySink) LogFuzzyAttempt(e editblock.FuzzyLogEntry) {
	line, err := json.Marshal(e)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fuzzylog: marshal failed: %v\n", err)
		return
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.file.Write(line); err != nil {
		fmt.Fprintf(os.Stderr, "fuzzylog: write failed: %v\n", err)
	}
}

// Close closes the underlying file.
func (s *FuzzySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
