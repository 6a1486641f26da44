// Package queue reads and appends the shogun to karo command queue file.
package queue

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	queueFile = "queue/shogun_to_karo.yaml"
	header    = "commands:\n"
	idPrefix  = "cmd_"

	PriorityNormal = "normal"
	StatusPending  = "pending"
)

// Command is one entry of the queue file.
type Command struct {
	CmdID       string      `yaml:"cmd_id" json:"cmd_id"`
	Priority    string      `yaml:"priority" json:"priority"`
	Status      string      `yaml:"status" json:"status"`
	Timestamp   string      `yaml:"timestamp" json:"timestamp"`
	Instruction Instruction `yaml:"instruction" json:"instruction"`
}

// Instruction is written as a literal block scalar so multi-line orders stay
// readable in the file.
type Instruction string

func (i Instruction) MarshalYAML() (interface{}, error) {
	return &yaml.Node{
		Kind:  yaml.ScalarNode,
		Style: yaml.LiteralStyle,
		Value: string(i),
	}, nil
}

type document struct {
	Commands []Command `yaml:"commands"`
}

// Store manages queue/shogun_to_karo.yaml under a base directory.
type Store struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

func NewStore(baseDir string) *Store {
	return &Store{
		path: filepath.Join(baseDir, queueFile),
		now:  time.Now,
	}
}

func (s *Store) Path() string {
	return s.path
}

// History returns the queued commands in file order. A missing or empty file
// yields an empty list.
func (s *Store) History() ([]Command, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() ([]Command, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []Command{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading queue: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing queue: %w", err)
	}
	if doc.Commands == nil {
		return []Command{}, nil
	}
	return doc.Commands, nil
}

// Add appends a pending command and returns its id. Existing entries are
// never rewritten.
func (s *Store) Add(instruction string) (string, error) {
	instruction = strings.TrimRight(instruction, "\n")
	if strings.TrimSpace(instruction) == "" {
		return "", errors.New("instruction is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.load()
	if err != nil {
		return "", err
	}
	cmd := Command{
		CmdID:       nextID(existing),
		Priority:    PriorityNormal,
		Status:      StatusPending,
		Timestamp:   s.now().Format("2006-01-02T15:04:05"),
		Instruction: Instruction(instruction + "\n"),
	}

	entry, err := encodeEntry(cmd)
	if err != nil {
		return "", err
	}
	if err := s.appendEntry(entry); err != nil {
		return "", err
	}
	return cmd.CmdID, nil
}

func encodeEntry(cmd Command) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode([]Command{cmd}); err != nil {
		return nil, fmt.Errorf("encoding command: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding command: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *Store) appendEntry(entry []byte) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating queue dir: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening queue: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat queue: %w", err)
	}

	var prefix string
	switch {
	case info.Size() == 0:
		prefix = header
	default:
		last := make([]byte, 1)
		if _, err := f.ReadAt(last, info.Size()-1); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("reading queue: %w", err)
		}
		if last[0] != '\n' {
			prefix = "\n"
		}
	}

	if _, err := f.Write(append([]byte(prefix), entry...)); err != nil {
		return fmt.Errorf("writing queue: %w", err)
	}
	return nil
}

// nextID returns cmd_NNN one past the highest numeric id in cmds.
func nextID(cmds []Command) string {
	max := 0
	for _, c := range cmds {
		if !strings.HasPrefix(c.CmdID, idPrefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(c.CmdID, idPrefix))
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return fmt.Sprintf("%s%03d", idPrefix, max+1)
}
