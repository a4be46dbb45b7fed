package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSink_RecordAppendsJSONL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.jsonl")
	s, err := Open(path, 10, dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	s.Record("read_file", map[string]any{"path": filepath.Join(dir, "a.txt")}, "ok")
	s.Record("execute_command", map[string]any{"command": "rm -rf /"}, "err(CommandBlocked)")

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("unmarshal line: %v", err)
		}
		entries = append(entries, e)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[1].Outcome != "err(CommandBlocked)" {
		t.Errorf("entries[1].Outcome = %q, want err(CommandBlocked)", entries[1].Outcome)
	}
}

func TestSink_AppendsWithRotationDisabled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.jsonl")
	// maxSizeMB is checked in whole-MB units and 0 disables rotation; this
	// test only checks that a plain append still produces the log file.
	s, err := Open(path, 10, dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.maxSizeMB = 0 // disabled: this path only checks normal append works
	s.Record("get_config", map[string]any{}, "ok")
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected log file to exist: %v", err)
	}
}

func TestSanitize_RedactsOutsidePathAndTruncates(t *testing.T) {
	allowed := "/jail"
	args := map[string]any{
		"path":    "/etc/passwd",
		"in_jail": "/jail/sub/file.txt",
		"big":     string(make([]byte, 300)),
	}
	out := Sanitize(args, allowed)
	if out["path"] != "[redacted-path]" {
		t.Errorf("path = %v, want redacted", out["path"])
	}
	if out["in_jail"] != "/jail/sub/file.txt" {
		t.Errorf("in_jail = %v, want unchanged", out["in_jail"])
	}
	if s, ok := out["big"].(string); !ok || len(s) <= 300 && len(s) != len(args["big"].(string))+len("...[truncated]") {
		// just check it was shortened relative to the 256 cap plus suffix
		if len(s) != maxSanitizedStringLen+len("...[truncated]") {
			t.Errorf("big value not truncated as expected, len=%d", len(s))
		}
	}
}

func TestEntry_RoundTripsTimestamp(t *testing.T) {
	e := Entry{Timestamp: time.Now().UTC().Truncate(time.Second), Tool: "x", Outcome: "ok"}
	b, err := json.Marshal(e)
	if err != nil {
		t.Fatal(err)
	}
	var got Entry
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	if !got.Timestamp.Equal(e.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, e.Timestamp)
	}
}
