package logbook

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rowanvale/waymark/internal/document"
)

// Level represents the severity of a log entry.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// DefaultMaxLines bounds a branch log before rotation trims the oldest
// entries.
const DefaultMaxLines = 400

// Logbook persists a branch's raw operation log to its log.doc. The log
// always grows at the tail; when it exceeds maxLines it is truncated to
// the most recent tail so recency is preserved.
type Logbook struct {
	path     string
	maxLines int
	mu       sync.Mutex
}

// New creates a logbook that writes to the provided path.
func New(path string, maxLines int) *Logbook {
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}
	return &Logbook{path: path, maxLines: maxLines}
}

// Path returns the file backing this logbook.
func (l *Logbook) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Append writes a single entry. Write failures are swallowed: the
// operation log is advisory and must never fail the operation it records.
func (l *Logbook) Append(level Level, message string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	line := fmt.Sprintf("%s %-5s %s",
		time.Now().UTC().Format(time.RFC3339),
		string(level),
		strings.TrimSpace(message),
	)
	_ = document.AppendRotating(l.path, line, l.maxLines)
}

// Tail returns up to maxLines of the most recent log entries.
func (l *Logbook) Tail(maxLines int) []string {
	if l == nil || maxLines <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	content, ok := document.Read(l.path)
	if !ok {
		return nil
	}
	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	if len(lines) == 0 || (len(lines) == 1 && lines[0] == "") {
		return nil
	}
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	return lines
}

// Info appends an informational entry.
func (l *Logbook) Info(format string, args ...any) {
	l.Append(LevelInfo, fmt.Sprintf(format, args...))
}

// Warn appends a warning entry.
func (l *Logbook) Warn(format string, args ...any) {
	l.Append(LevelWarn, fmt.Sprintf(format, args...))
}

// Error appends an error entry.
func (l *Logbook) Error(format string, args ...any) {
	l.Append(LevelError, fmt.Sprintf(format, args...))
}
