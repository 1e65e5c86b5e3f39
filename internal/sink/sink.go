package sink

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"mnemoscan/internal/dedup"
)

// Sink is the single shared append destination for accepted lines.
// Writers take the mutex and block on contention; at most one worker
// writes at a time. Under concurrency the output order is not
// guaranteed to match input order.
type Sink struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	index  *dedup.Index // nil when dedup is disabled
}

// New opens the output file for appending, creating the parent
// directory if needed. index may be nil.
func New(path string, index *dedup.Index) (*Sink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open output file: %w", err)
	}

	return &Sink{
		file:   f,
		writer: bufio.NewWriter(f),
		index:  index,
	}, nil
}

// Write appends one line, newline-terminated. It reports whether the
// line was actually written: with dedup enabled, a line already seen
// by this or an earlier run is dropped. A write error is fatal to the
// run and is returned as-is.
func (s *Sink) Write(line string) (bool, error) {
	if s.index != nil {
		fresh, err := s.index.MarkSeen(line)
		if err != nil {
			return false, fmt.Errorf("failed to update dedup index: %w", err)
		}
		if !fresh {
			return false, nil
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.writer.WriteString(line); err != nil {
		return false, fmt.Errorf("failed to write output line: %w", err)
	}
	if err := s.writer.WriteByte('\n'); err != nil {
		return false, fmt.Errorf("failed to write output line: %w", err)
	}

	return true, nil
}

// Flush forces buffered lines to disk.
func (s *Sink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}
	return nil
}

// Close flushes and closes the output file.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writer.Flush(); err != nil {
		s.file.Close()
		return fmt.Errorf("failed to flush output: %w", err)
	}
	return s.file.Close()
}
