package lifecycle

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rowanvale/waymark/internal/document"
	"github.com/rowanvale/waymark/internal/layout"
	"github.com/rowanvale/waymark/internal/registry"
	"github.com/rowanvale/waymark/internal/summary"
)

var testClock = func() time.Time {
	return time.Date(2026, 8, 26, 14, 5, 0, 0, time.UTC)
}

func newTestManager(t *testing.T) (*Manager, *layout.Tree) {
	t.Helper()
	tree := layout.New(filepath.Join(t.TempDir(), ".waymark"))
	return NewManager(tree, WithClock(testClock), WithMilestoneCap(5)), tree
}

func commitInput(title string) CommitInput {
	return CommitInput{
		Title: title,
		What:  "added client",
		Why:   "latency",
		Files: []string{"cache.go"},
		Next:  "add tests",
	}
}

func TestSequentialCommitsOnMain(t *testing.T) {
	m, tree := newTestManager(t)
	first, err := m.Commit(commitInput("first"))
	if err != nil {
		t.Fatalf("first commit: %v", err)
	}
	second, err := m.Commit(commitInput("second"))
	if err != nil {
		t.Fatalf("second commit: %v", err)
	}
	if first.ID != "C001" || second.ID != "C002" {
		t.Fatalf("ids = %s, %s; want C001, C002", first.ID, second.ID)
	}
	if first.Branch != "main" || second.Branch != "main" {
		t.Fatalf("branches = %s, %s; want main", first.Branch, second.Branch)
	}
	text, _ := document.Read(tree.JournalPath("main"))
	if strings.Index(text, "C002") > strings.Index(text, "C001") {
		t.Fatalf("C002's block must appear before C001's:\n%s", text)
	}
}

func TestCommitValidation(t *testing.T) {
	m, tree := newTestManager(t)
	cases := []CommitInput{
		{What: "w", Why: "y", Files: []string{"f"}, Next: "n"},
		{Title: "t", Why: "y", Files: []string{"f"}, Next: "n"},
		{Title: "t", What: "w", Files: []string{"f"}, Next: "n"},
		{Title: "t", What: "w", Why: "y", Next: "n"},
		{Title: "t", What: "w", Why: "y", Files: []string{"f"}},
		{Title: "t", What: "w", Why: "y", Files: []string{" "}, Next: "n"},
	}
	for i, in := range cases {
		if _, err := m.Commit(in); !errors.Is(err, ErrValidation) {
			t.Fatalf("case %d: err = %v, want validation error", i, err)
		}
	}
	if _, err := os.Stat(tree.SummaryPath()); !os.IsNotExist(err) {
		t.Fatal("rejected commit must not create documents")
	}
}

func TestBranchNameValidation(t *testing.T) {
	m, tree := newTestManager(t)
	for _, name := range []string{"Bad_Name", "UPPER", "1-starts-digit", "-leading", "trailing-", "main"} {
		if _, err := m.Branch(name, "p", "h"); !errors.Is(err, ErrValidation) {
			t.Fatalf("name %q: err = %v, want validation error", name, err)
		}
		if tree.BranchExists(name) {
			t.Fatalf("rejected name %q must not create a branch directory", name)
		}
	}
}

func TestBranchWhileNotOnMainFailsWithoutSideEffects(t *testing.T) {
	m, tree := newTestManager(t)
	if _, err := m.Branch("explore-cache", "test redis", "faster reads"); err != nil {
		t.Fatalf("branch: %v", err)
	}
	before, _ := document.Read(tree.SummaryPath())

	if _, err := m.Branch("another-try", "p", "h"); !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if tree.BranchExists("another-try") {
		t.Fatal("guard violation must not create branch storage")
	}
	after, _ := document.Read(tree.SummaryPath())
	if before != after {
		t.Fatal("guard violation must leave the summary unchanged")
	}
}

func TestMergedNameIsNeverReusable(t *testing.T) {
	m, _ := newTestManager(t)
	if _, err := m.Branch("explore-cache", "test redis", "faster reads"); err != nil {
		t.Fatalf("branch: %v", err)
	}
	if _, err := m.Merge("explore-cache", OutcomeSuccess, "fine"); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if _, err := m.Branch("explore-cache", "again", "again"); !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want validation error for reused name", err)
	}
}

func TestMergeGuards(t *testing.T) {
	m, _ := newTestManager(t)
	if _, err := m.Merge("main", OutcomeSuccess, "x"); !errors.Is(err, ErrValidation) {
		t.Fatalf("merging main: err = %v, want validation error", err)
	}
	if _, err := m.Merge("explore-cache", OutcomeSuccess, "x"); !errors.Is(err, ErrValidation) {
		t.Fatalf("merging while on main: err = %v, want validation error", err)
	}
	if _, err := m.Branch("explore-cache", "p", "h"); err != nil {
		t.Fatalf("branch: %v", err)
	}
	if _, err := m.Merge("explore-cache", Outcome("sideways"), "x"); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad outcome: err = %v, want validation error", err)
	}
}

// Mirrors the end-to-end scenario from the product brief: branch, commit,
// merge, then verify every document.
func TestBranchCommitMergeScenario(t *testing.T) {
	m, tree := newTestManager(t)

	if _, err := m.Branch("explore-cache", "test redis", "faster reads"); err != nil {
		t.Fatalf("branch: %v", err)
	}
	if got := m.Active(); got != "explore-cache" {
		t.Fatalf("active = %q, want explore-cache", got)
	}

	c, err := m.Commit(commitInput("wire redis"))
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if c.ID != "C001" || c.Branch != "explore-cache" {
		t.Fatalf("commit result = %+v", c)
	}

	merged, err := m.Merge("explore-cache", OutcomeSuccess, "40% faster")
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if merged.MergeCommitID != "C001" {
		t.Fatalf("merge commit id = %q, want C001 (main numbers independently)", merged.MergeCommitID)
	}
	if got := m.Active(); got != "main" {
		t.Fatalf("active after merge = %q, want main", got)
	}

	mainText, _ := document.Read(tree.JournalPath("main"))
	if !strings.Contains(mainText, "Merge: explore-cache (success)") {
		t.Fatalf("main journal missing merge commit:\n%s", mainText)
	}
	if strings.Count(mainText, "### C") != 1 {
		t.Fatalf("main journal should contain exactly one commit:\n%s", mainText)
	}

	rows := registry.New(tree.RegistryPath()).Rows()
	if len(rows) != 1 || rows[0].Name != "explore-cache" || rows[0].Status != registry.StatusMerged {
		t.Fatalf("registry rows = %+v", rows)
	}

	summaryText, _ := document.Read(tree.SummaryPath())
	if names := summary.OpenBranches(summaryText); len(names) != 0 {
		t.Fatalf("open branches = %v, want none after merge", names)
	}

	branchText, _ := document.Read(tree.JournalPath("explore-cache"))
	if !strings.Contains(branchText, "success: 40% faster") {
		t.Fatalf("branch header conclusion not patched:\n%s", branchText)
	}
	if !strings.Contains(branchText, "wire redis") {
		t.Fatalf("branch commits must survive the merge:\n%s", branchText)
	}
}

func TestPerBranchIdentifiersAreIndependent(t *testing.T) {
	m, _ := newTestManager(t)
	if _, err := m.Commit(commitInput("on main")); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if _, err := m.Branch("explore-cache", "p", "h"); err != nil {
		t.Fatalf("branch: %v", err)
	}
	c, err := m.Commit(commitInput("on branch"))
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if c.ID != "C001" {
		t.Fatalf("branch commit id = %q, want C001 (independent numbering)", c.ID)
	}
}

func TestCommitWritesAuditLogLine(t *testing.T) {
	m, tree := newTestManager(t)
	if _, err := m.Commit(commitInput("logged")); err != nil {
		t.Fatalf("commit: %v", err)
	}
	logText, ok := document.Read(tree.LogPath("main"))
	if !ok || !strings.Contains(logText, "commit C001") {
		t.Fatalf("main log missing audit line: %q", logText)
	}
}
