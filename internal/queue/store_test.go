package queue

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(t.TempDir())
	s.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return s
}

func writeQueue(t *testing.T, s *Store, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(s.Path()), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(s.Path(), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestHistoryMissingFile(t *testing.T) {
	s := newTestStore(t)
	cmds, err := s.History()
	if err != nil {
		t.Fatalf("History() error: %v", err)
	}
	if cmds == nil || len(cmds) != 0 {
		t.Errorf("History() = %#v, want empty list", cmds)
	}
}

func TestHistoryEmptyFile(t *testing.T) {
	s := newTestStore(t)
	writeQueue(t, s, "")
	cmds, err := s.History()
	if err != nil {
		t.Fatalf("History() error: %v", err)
	}
	if len(cmds) != 0 {
		t.Errorf("History() = %v, want empty", cmds)
	}
}

func TestHistoryExisting(t *testing.T) {
	s := newTestStore(t)
	writeQueue(t, s, `commands:
- cmd_id: cmd_001
  priority: high
  status: done
  timestamp: '2026-01-01T00:00:00'
  instruction: first
- cmd_id: cmd_002
  status: pending
  instruction: |
    second
    order
`)
	cmds, err := s.History()
	if err != nil {
		t.Fatalf("History() error: %v", err)
	}
	if len(cmds) != 2 {
		t.Fatalf("got %d commands, want 2", len(cmds))
	}
	if cmds[0].CmdID != "cmd_001" || cmds[0].Priority != "high" {
		t.Errorf("cmds[0] = %+v", cmds[0])
	}
	if cmds[1].CmdID != "cmd_002" || cmds[1].Instruction != "second\norder\n" {
		t.Errorf("cmds[1] = %+v", cmds[1])
	}
}

func TestAddNewFile(t *testing.T) {
	s := newTestStore(t)
	id, err := s.Add("Test instruction")
	if err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if id != "cmd_001" {
		t.Errorf("Add() = %q, want cmd_001", id)
	}

	data, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "commands:\n") {
		t.Errorf("file missing header:\n%s", data)
	}
	if !strings.Contains(string(data), "instruction: |\n") {
		t.Errorf("instruction not written as literal block:\n%s", data)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("written file is not valid YAML: %v\n%s", err, data)
	}
	if len(doc.Commands) != 1 {
		t.Fatalf("got %d commands, want 1", len(doc.Commands))
	}
	c := doc.Commands[0]
	if c.CmdID != "cmd_001" || c.Status != StatusPending || c.Priority != PriorityNormal {
		t.Errorf("command = %+v", c)
	}
	if strings.TrimSpace(string(c.Instruction)) != "Test instruction" {
		t.Errorf("instruction = %q", c.Instruction)
	}
	if c.Timestamp != "2026-01-02T03:04:05" {
		t.Errorf("timestamp = %q", c.Timestamp)
	}
}

func TestAddIncrementsID(t *testing.T) {
	s := newTestStore(t)
	writeQueue(t, s, "commands:\n- cmd_id: cmd_001\n  status: done\n  instruction: old\n")

	id, err := s.Add("New instruction")
	if err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if id != "cmd_002" {
		t.Errorf("Add() = %q, want cmd_002", id)
	}

	cmds, err := s.History()
	if err != nil {
		t.Fatal(err)
	}
	if len(cmds) != 2 || cmds[1].CmdID != "cmd_002" {
		t.Errorf("History() = %+v", cmds)
	}
	// The existing entry must be untouched.
	data, _ := os.ReadFile(s.Path())
	if !strings.HasPrefix(string(data), "commands:\n- cmd_id: cmd_001\n  status: done\n  instruction: old\n") {
		t.Errorf("existing entry rewritten:\n%s", data)
	}
}

func TestAddWithGaps(t *testing.T) {
	s := newTestStore(t)
	writeQueue(t, s, "commands:\n- cmd_id: cmd_001\n- cmd_id: cmd_005\n- cmd_id: cmd_003\n- cmd_id: custom\n")

	id, err := s.Add("after gaps")
	if err != nil {
		t.Fatal(err)
	}
	if id != "cmd_006" {
		t.Errorf("Add() = %q, want cmd_006", id)
	}
}

func TestAddMissingTrailingNewline(t *testing.T) {
	s := newTestStore(t)
	writeQueue(t, s, "commands:\n- cmd_id: cmd_001\n  instruction: old")

	if _, err := s.Add("next"); err != nil {
		t.Fatal(err)
	}
	cmds, err := s.History()
	if err != nil {
		t.Fatalf("History() after append: %v", err)
	}
	if len(cmds) != 2 {
		t.Errorf("got %d commands, want 2", len(cmds))
	}
}

func TestAddMultiline(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Add("line one\n\nline three\n"); err != nil {
		t.Fatal(err)
	}
	cmds, err := s.History()
	if err != nil {
		t.Fatal(err)
	}
	if cmds[0].Instruction != "line one\n\nline three\n" {
		t.Errorf("instruction = %q", cmds[0].Instruction)
	}
}

func TestAddEmpty(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Add("  \n"); err == nil {
		t.Error("Add() of blank instruction should fail")
	}
}

func TestNextID(t *testing.T) {
	tests := []struct {
		ids  []string
		want string
	}{
		{nil, "cmd_001"},
		{[]string{"cmd_009"}, "cmd_010"},
		{[]string{"cmd_999"}, "cmd_1000"},
		{[]string{"cmd_abc", "other"}, "cmd_001"},
	}
	for _, tt := range tests {
		var cmds []Command
		for _, id := range tt.ids {
			cmds = append(cmds, Command{CmdID: id})
		}
		if got := nextID(cmds); got != tt.want {
			t.Errorf("nextID(%v) = %q, want %q", tt.ids, got, tt.want)
		}
	}
}
