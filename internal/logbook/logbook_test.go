package logbook

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestTailReturnsRecentLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.doc")
	book := New(path, 0)
	for i := 0; i < 5; i++ {
		book.Info("entry-%d", i)
	}
	lines := book.Tail(3)
	if len(lines) != 3 {
		t.Fatalf("len(lines) = %d, want 3", len(lines))
	}
	for idx, want := range []string{"entry-2", "entry-3", "entry-4"} {
		if !strings.Contains(lines[idx], want) {
			t.Fatalf("line %d = %q, missing %s", idx, lines[idx], want)
		}
	}
}

func TestAppendRotatesPastMaxLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.doc")
	book := New(path, 4)
	for i := 0; i < 10; i++ {
		book.Info("entry-%d", i)
	}
	lines := book.Tail(100)
	if len(lines) != 4 {
		t.Fatalf("len(lines) = %d, want rotation bound 4", len(lines))
	}
	if !strings.Contains(lines[0], "entry-6") || !strings.Contains(lines[3], "entry-9") {
		t.Fatalf("rotation kept wrong tail: %v", lines)
	}
}

func TestLevelsAreRecorded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.doc")
	book := New(path, 0)
	book.Info("fine")
	book.Warn("hmm")
	book.Error("bad")
	lines := book.Tail(10)
	if len(lines) != 3 {
		t.Fatalf("len(lines) = %d, want 3", len(lines))
	}
	for idx, want := range []string{"INFO", "WARN", "ERROR"} {
		if !strings.Contains(lines[idx], want) {
			t.Fatalf("line %d = %q, missing level %s", idx, lines[idx], want)
		}
	}
}
