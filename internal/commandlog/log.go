package commandlog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"
)

// ExportMode selects what Export does with the queue after writing it
type ExportMode int

const (
	// ExportSnapshot writes the queue and leaves it intact
	ExportSnapshot ExportMode = iota
	// ExportDrain writes the queue and empties it once the write succeeds
	ExportDrain
)

func (m ExportMode) String() string {
	switch m {
	case ExportDrain:
		return "drain"
	default:
		return "snapshot"
	}
}

// ParseExportMode maps "snapshot" and "drain" to their ExportMode
func ParseExportMode(s string) (ExportMode, error) {
	switch s {
	case "", "snapshot":
		return ExportSnapshot, nil
	case "drain":
		return ExportDrain, nil
	}
	return ExportSnapshot, fmt.Errorf("unknown export mode %q", s)
}

// Log is a FIFO queue of commands awaiting export
type Log struct {
	mu       sync.Mutex
	commands []Command
}

// NewLog creates an empty command queue
func NewLog() *Log {
	return &Log{}
}

// Append queues cmd
func (l *Log) Append(cmd Command) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.commands = append(l.commands, cmd)
}

// AppendAll queues cmds in order
func (l *Log) AppendAll(cmds []Command) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.commands = append(l.commands, cmds...)
}

// Lines returns the queued commands rendered in log form
func (l *Log) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	lines := make([]string, len(l.commands))
	for i, cmd := range l.commands {
		lines[i] = cmd.String()
	}
	return lines
}

// Commands returns a copy of the queue
func (l *Log) Commands() []Command {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Command, len(l.commands))
	copy(out, l.commands)
	return out
}

// Len returns the number of queued commands
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.commands)
}

// Reset empties the queue
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.commands = nil
}

// Export writes every queued command to w, one per line, and returns the
// number of commands written. In ExportDrain mode the queue is emptied only
// after the whole queue has been written and flushed.
func (l *Log) Export(w io.Writer, mode ExportMode) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	bw := bufio.NewWriter(w)
	for _, cmd := range l.commands {
		if _, err := bw.WriteString(cmd.String() + "\n"); err != nil {
			return 0, fmt.Errorf("failed to write command log: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return 0, fmt.Errorf("failed to flush command log: %w", err)
	}

	written := len(l.commands)
	if mode == ExportDrain {
		l.commands = nil
	}
	return written, nil
}

// ExportFile creates or truncates path and exports the queue into it
func (l *Log) ExportFile(path string, mode ExportMode) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}

	n, err := l.Export(f, mode)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close %s: %w", path, closeErr)
	}
	return n, err
}
