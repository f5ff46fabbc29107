// Package logging writes the process log: one line per CLI invocation
// event, kept apart from the per-branch operation logs so hook failures
// can be diagnosed even when no branch document was touched.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rowanvale/waymark/internal/layout"
)

// Logger appends timestamped lines to logs/waymark.log inside the tree.
// A nil Logger accepts every call and does nothing, so callers that could
// not open the log need no guards.
type Logger struct {
	out *os.File
}

// Open attaches a logger to the tree's process log, creating the logs
// directory on first use.
func Open(tree *layout.Tree) (*Logger, error) {
	path := tree.ProcessLogPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open %s: %w", path, err)
	}
	return &Logger{out: f}, nil
}

// Close releases the file handle.
func (l *Logger) Close() error {
	if l == nil || l.out == nil {
		return nil
	}
	return l.out.Close()
}

// Printf writes a single timestamped line.
func (l *Logger) Printf(format string, args ...any) {
	if l == nil || l.out == nil {
		return
	}
	line := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	fmt.Fprintf(l.out, "[%s] %s\n", time.Now().Format(time.RFC3339), line)
}
