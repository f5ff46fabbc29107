// Package journal defines the commit block format shared by every branch
// journal, allocates commit identifiers, and parses journals back into
// commit records for the context reader.
package journal

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Anchor is the literal line commits are inserted after. It must stay
// byte-stable within a deployment: both the allocator and the document
// store locate it by exact match.
const Anchor = "## Milestone Journal"

// TimestampLayout is minute precision; commits never need finer grain.
const TimestampLayout = "2006-01-02 15:04"

// FirstID is the identifier allocated on an empty or missing journal.
const FirstID = "C001"

// Commit is one milestone record inside a branch journal.
type Commit struct {
	ID        string
	Timestamp string
	Branch    string
	Title     string
	What      string
	Why       string
	Files     []string
	Next      string
}

// commitHeadRe matches the first line of a commit block. The allocator
// keys off the id capture; the parser uses all four.
var commitHeadRe = regexp.MustCompile(`(?m)^### C(\d{3,}) - (\d{4}-\d{2}-\d{2} \d{2}:\d{2}) \[([^\]]+)\] (.*)$`)

// NextID derives the next commit identifier from a journal's text. Commits
// are newest first, so the first marker in the document carries the highest
// number. An absent or marker-less journal yields FirstID. Numbering is
// per branch: two branches independently count from C001 so each journal
// reads cleanly standalone.
func NextID(journalText string) string {
	m := commitHeadRe.FindStringSubmatch(journalText)
	if m == nil {
		return FirstID
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return FirstID
	}
	return FormatID(n + 1)
}

// FormatID renders a commit number as C + zero-padded 3 digits. Width grows
// naturally past 999 (C1000).
func FormatID(n int) string {
	return fmt.Sprintf("C%03d", n)
}

// FormatCommit renders a commit block. The block ends with a blank line so
// consecutive blocks stay separated after anchor insertion.
func FormatCommit(c Commit) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### %s - %s [%s] %s\n\n", c.ID, c.Timestamp, c.Branch, c.Title)
	fmt.Fprintf(&b, "- What: %s\n", c.What)
	fmt.Fprintf(&b, "- Why: %s\n", c.Why)
	fmt.Fprintf(&b, "- Files: %s\n", strings.Join(c.Files, ", "))
	fmt.Fprintf(&b, "- Next: %s\n\n", c.Next)
	return b.String()
}

// Stamp renders a timestamp in the journal's layout.
func Stamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// ParseCommits extracts commit records from a journal's text, in document
// order (newest first). Malformed blocks are skipped rather than failing
// the whole document.
func ParseCommits(journalText string) []Commit {
	heads := commitHeadRe.FindAllStringSubmatchIndex(journalText, -1)
	commits := make([]Commit, 0, len(heads))
	for i, head := range heads {
		bodyStart := head[1]
		bodyEnd := len(journalText)
		if i+1 < len(heads) {
			bodyEnd = heads[i+1][0]
		}
		c := Commit{
			ID:        "C" + journalText[head[2]:head[3]],
			Timestamp: journalText[head[4]:head[5]],
			Branch:    journalText[head[6]:head[7]],
			Title:     journalText[head[8]:head[9]],
		}
		parseFields(&c, journalText[bodyStart:bodyEnd])
		commits = append(commits, c)
	}
	return commits
}

func parseFields(c *Commit, body string) {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "- What: "):
			c.What = strings.TrimPrefix(trimmed, "- What: ")
		case strings.HasPrefix(trimmed, "- Why: "):
			c.Why = strings.TrimPrefix(trimmed, "- Why: ")
		case strings.HasPrefix(trimmed, "- Files: "):
			c.Files = splitFiles(strings.TrimPrefix(trimmed, "- Files: "))
		case strings.HasPrefix(trimmed, "- Next: "):
			c.Next = strings.TrimPrefix(trimmed, "- Next: ")
		}
	}
}

func splitFiles(s string) []string {
	parts := strings.Split(s, ",")
	files := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			files = append(files, trimmed)
		}
	}
	return files
}

// Block renders a parsed commit back to its block form; used by the reader
// when returning search hits and id lookups.
func (c Commit) Block() string {
	return FormatCommit(c)
}

// MatchesTerm reports whether the commit's text contains term,
// case-insensitively.
func (c Commit) MatchesTerm(term string) bool {
	if term == "" {
		return false
	}
	needle := strings.ToLower(term)
	return strings.Contains(strings.ToLower(c.Block()), needle)
}
