// Package contextview renders read-only, layered views of a project's
// journal state. Higher levels disclose more: the summary alone, recent
// commits, the branch header, a deeper commit slice, and finally targeted
// lookups. Callers with a small budget ask for level 1; level 5 is the
// whole toolbox.
package contextview

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rowanvale/waymark/internal/document"
	"github.com/rowanvale/waymark/internal/journal"
	"github.com/rowanvale/waymark/internal/layout"
	"github.com/rowanvale/waymark/internal/registry"
	"github.com/rowanvale/waymark/internal/summary"
)

// ErrInvalidLevel reports a level outside 1-5. An out-of-range level is an
// error, never a silent fallback.
var ErrInvalidLevel = errors.New("contextview: level must be between 1 and 5")

// ErrUnknownBranch reports a requested branch with no storage.
var ErrUnknownBranch = errors.New("contextview: unknown branch")

const (
	recentSlice = 3
	deepSlice   = 10
	searchCap   = 5
)

// Request selects what to disclose.
type Request struct {
	Level      int
	Branch     string // empty means the active branch
	CommitID   string // level 5 only
	SearchTerm string // level 5 only
}

// Reader assembles context text from the document tree. It never writes.
type Reader struct {
	tree *layout.Tree
	reg  *registry.Registry
}

// New builds a reader over the given tree.
func New(tree *layout.Tree) *Reader {
	return &Reader{tree: tree, reg: registry.New(tree.RegistryPath())}
}

// Render produces the context text for a request.
func (r *Reader) Render(req Request) (string, error) {
	if req.Level < 1 || req.Level > 5 {
		return "", fmt.Errorf("%w (got %d)", ErrInvalidLevel, req.Level)
	}
	branch := req.Branch
	if branch == "" {
		branch = r.reg.Active()
	}
	if branch != layout.MainBranch && !r.tree.BranchExists(branch) {
		return "", fmt.Errorf("%w: %s", ErrUnknownBranch, branch)
	}

	var b strings.Builder
	summaryText, ok := document.Read(r.tree.SummaryPath())
	if !ok {
		summaryText = summary.Template()
	}
	b.WriteString(strings.TrimRight(summaryText, "\n"))
	b.WriteString("\n")

	if req.Level >= 3 && branch != layout.MainBranch {
		r.writeHeader(&b, branch)
	}
	if req.Level >= 2 {
		slice := recentSlice
		if req.Level >= 4 {
			slice = deepSlice
		}
		r.writeCommits(&b, branch, slice)
	}
	if req.Level == 5 {
		if req.CommitID != "" {
			r.writeLookup(&b, branch, req.CommitID)
		}
		if req.SearchTerm != "" {
			r.writeSearch(&b, req.SearchTerm)
		}
	}
	return b.String(), nil
}

func (r *Reader) writeHeader(b *strings.Builder, branch string) {
	content, ok := document.Read(r.tree.JournalPath(branch))
	if !ok {
		return
	}
	header, _, err := journal.ParseHeader([]byte(content))
	if err != nil {
		return
	}
	fmt.Fprintf(b, "\n## Branch: %s\n\n%s", branch, header.HeaderText())
}

func (r *Reader) writeCommits(b *strings.Builder, branch string, limit int) {
	commits := r.branchCommits(branch)
	fmt.Fprintf(b, "\n## Recent Commits [%s]\n\n", branch)
	if len(commits) == 0 {
		b.WriteString("(no commits yet)\n")
		return
	}
	if len(commits) > limit {
		commits = commits[:limit]
	}
	for _, c := range commits {
		b.WriteString(c.Block())
	}
}

func (r *Reader) writeLookup(b *strings.Builder, branch, id string) {
	fmt.Fprintf(b, "\n## Lookup: %s\n\n", id)
	for _, c := range r.branchCommits(branch) {
		if c.ID == id {
			b.WriteString(c.Block())
			return
		}
	}
	fmt.Fprintf(b, "no commit %s on branch %s\n", id, branch)
}

func (r *Reader) writeSearch(b *strings.Builder, term string) {
	fmt.Fprintf(b, "\n## Search: %q\n\n", term)
	matches := 0
	for _, branch := range r.allBranches() {
		for _, c := range r.branchCommits(branch) {
			if c.MatchesTerm(term) {
				b.WriteString(c.Block())
				matches++
				if matches >= searchCap {
					return
				}
			}
		}
	}
	if matches == 0 {
		fmt.Fprintf(b, "no commits match %q\n", term)
	}
}

func (r *Reader) branchCommits(branch string) []journal.Commit {
	content, ok := document.Read(r.tree.JournalPath(branch))
	if !ok {
		return nil
	}
	return journal.ParseCommits(content)
}

// allBranches lists every branch with storage, main first so search hits on
// the main line surface before exploration noise.
func (r *Reader) allBranches() []string {
	entries, err := os.ReadDir(r.tree.BranchesDir())
	if err != nil {
		return nil
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() && entry.Name() != layout.MainBranch {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	if r.tree.BranchExists(layout.MainBranch) {
		names = append([]string{layout.MainBranch}, names...)
	}
	return names
}
