// Package document provides the low-level read/modify/write primitives for
// journal and registry documents: section-anchored insertion, bullet-section
// replacement, rotating append, and safe creation without clobbering.
//
// Every operation touches exactly one file. Writes go through a
// write-temp-then-rename so a crash mid-operation cannot tear the anchor
// structure of an existing document.
package document

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrMissingDocument indicates the target document does not exist.
var ErrMissingDocument = errors.New("document: missing document")

// PlaceholderSuffix marks seed bullets that are dropped once a section
// gains real entries.
const PlaceholderSuffix = "(placeholder)"

// Ensure writes template to path iff nothing exists there yet. Existing
// content is never overwritten.
func Ensure(path, template string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("document: stat %s: %w", path, err)
	}
	return writeAtomic(path, []byte(template))
}

// Read returns the document contents and whether it existed. Read errors on
// an existing file degrade to "absent" so callers can apply their documented
// defaults (missing registry means main, missing journal means C001).
func Read(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(data), true
}

// InsertAfterAnchor inserts text immediately after the first occurrence of a
// literal anchor line. When the anchor is absent it falls back to inserting
// after the first blank-line boundary, which tolerates documents that begin
// directly with a title block; as a last resort the text is appended at the
// end so caller data is never dropped.
func InsertAfterAnchor(path, anchor, text string) error {
	content, ok := Read(path)
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissingDocument, path)
	}
	updated := spliceAfterAnchor(content, anchor, text)
	return writeAtomic(path, []byte(updated))
}

func spliceAfterAnchor(content, anchor, text string) string {
	if idx := strings.Index(content, anchor); idx >= 0 {
		lineEnd := strings.Index(content[idx:], "\n")
		if lineEnd < 0 {
			return content + "\n\n" + text
		}
		at := idx + lineEnd + 1
		return content[:at] + "\n" + text + strings.TrimLeft(content[at:], "\n")
	}
	if at := strings.Index(content, "\n\n"); at >= 0 {
		return content[:at+2] + text + content[at+2:]
	}
	return strings.TrimRight(content, "\n") + "\n\n" + text
}

// ReplaceSection prepends newEntry to the bullet body under the named
// heading, retaining at most cap entries (newest first). Placeholder seed
// bullets are dropped once a real entry exists. A missing heading degrades
// to appending the heading and entry at the end of the document.
func ReplaceSection(path, heading, newEntry string, cap int) error {
	return UpdateSection(path, heading, func(entries []string) []string {
		updated := append([]string{newEntry}, entries...)
		if cap > 0 && len(updated) > cap {
			updated = updated[:cap]
		}
		return updated
	})
}

// UpdateSection rewrites the bullet body under the named heading through fn.
// fn receives the existing entries (placeholder seeds already removed,
// leading "- " stripped) and returns the replacement set in order.
func UpdateSection(path, heading string, fn func(entries []string) []string) error {
	content, ok := Read(path)
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissingDocument, path)
	}
	updated := spliceSection(content, heading, fn)
	return writeAtomic(path, []byte(updated))
}

// SectionEntries returns the bullet entries under the named heading,
// placeholder seeds excluded.
func SectionEntries(content, heading string) []string {
	_, entries, _ := cutSection(content, heading)
	return entries
}

func spliceSection(content, heading string, fn func([]string) []string) string {
	head, entries, tail := cutSection(content, heading)
	if head == "" {
		// Heading absent: degrade to appending a fresh section at the end.
		entries = fn(nil)
		var b strings.Builder
		b.WriteString(strings.TrimRight(content, "\n"))
		b.WriteString("\n\n" + heading + "\n\n")
		writeBullets(&b, entries)
		return b.String()
	}
	entries = fn(entries)
	var b strings.Builder
	b.WriteString(head)
	writeBullets(&b, entries)
	b.WriteString(tail)
	return b.String()
}

func writeBullets(b *strings.Builder, entries []string) {
	for _, entry := range entries {
		b.WriteString("- " + entry + "\n")
	}
}

// cutSection splits content around the bullet body of the named heading.
// head runs through the heading line and any blank lines before the bullets;
// tail is everything after the last bullet. A zero-value head means the
// heading was not found.
func cutSection(content, heading string) (head string, entries []string, tail string) {
	lines := strings.SplitAfter(content, "\n")
	headingAt := -1
	for i, line := range lines {
		if strings.TrimRight(line, "\n") == heading {
			headingAt = i
			break
		}
	}
	if headingAt < 0 {
		return "", nil, ""
	}
	bodyStart := headingAt + 1
	for bodyStart < len(lines) && strings.TrimSpace(lines[bodyStart]) == "" {
		bodyStart++
	}
	bodyEnd := bodyStart
	for bodyEnd < len(lines) {
		trimmed := strings.TrimRight(lines[bodyEnd], "\n")
		if !strings.HasPrefix(trimmed, "- ") {
			break
		}
		entry := strings.TrimPrefix(trimmed, "- ")
		if !strings.HasSuffix(entry, PlaceholderSuffix) {
			entries = append(entries, entry)
		}
		bodyEnd++
	}
	return strings.Join(lines[:bodyStart], ""), entries, strings.Join(lines[bodyEnd:], "")
}

// AppendRotating appends a line to an always-growing log, truncating to the
// most recent maxLines lines when the total exceeds the limit.
func AppendRotating(path, line string, maxLines int) error {
	content, _ := Read(path)
	var lines []string
	if content != "" {
		lines = strings.Split(strings.TrimRight(content, "\n"), "\n")
	}
	lines = append(lines, strings.TrimRight(line, "\n"))
	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	return writeAtomic(path, []byte(strings.Join(lines, "\n")+"\n"))
}

// ReplaceAll rewrites the whole document. Used for header patches where the
// caller has already re-rendered the full contents.
func ReplaceAll(path, content string) error {
	return writeAtomic(path, []byte(content))
}

// writeAtomic writes data to a temp file in the target directory and renames
// it over path, so readers never observe a half-written document.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("document: create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("document: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("document: close temp for %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("document: replace %s: %w", path, err)
	}
	return nil
}
