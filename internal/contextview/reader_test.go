package contextview

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rowanvale/waymark/internal/layout"
	"github.com/rowanvale/waymark/internal/lifecycle"
)

var testClock = func() time.Time {
	return time.Date(2026, 8, 26, 14, 5, 0, 0, time.UTC)
}

func newPopulatedTree(t *testing.T) *layout.Tree {
	t.Helper()
	tree := layout.New(filepath.Join(t.TempDir(), ".waymark"))
	m := lifecycle.NewManager(tree, lifecycle.WithClock(testClock))
	for i := 1; i <= 12; i++ {
		_, err := m.Commit(lifecycle.CommitInput{
			Title: fmt.Sprintf("milestone %d", i),
			What:  fmt.Sprintf("did thing %d", i),
			Why:   "progress",
			Files: []string{"main.go"},
			Next:  "continue",
		})
		if err != nil {
			t.Fatalf("commit %d: %v", i, err)
		}
	}
	if _, err := m.Branch("explore-cache", "test redis", "faster reads"); err != nil {
		t.Fatalf("branch: %v", err)
	}
	if _, err := m.Commit(lifecycle.CommitInput{
		Title: "wire redis",
		What:  "added client",
		Why:   "latency",
		Files: []string{"cache.go"},
		Next:  "add tests",
	}); err != nil {
		t.Fatalf("branch commit: %v", err)
	}
	return tree
}

func TestInvalidLevelIsAnError(t *testing.T) {
	r := New(newPopulatedTree(t))
	for _, level := range []int{0, -1, 6} {
		if _, err := r.Render(Request{Level: level}); !errors.Is(err, ErrInvalidLevel) {
			t.Fatalf("level %d: err = %v, want ErrInvalidLevel", level, err)
		}
	}
}

func TestLevelOneIsSummaryOnly(t *testing.T) {
	r := New(newPopulatedTree(t))
	text, err := r.Render(Request{Level: 1, Branch: "main"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(text, "# Project Summary") {
		t.Fatalf("missing summary:\n%s", text)
	}
	if strings.Contains(text, "Recent Commits") {
		t.Fatalf("level 1 must not include commits:\n%s", text)
	}
}

func TestLevelTwoShowsThreeMostRecentCommits(t *testing.T) {
	r := New(newPopulatedTree(t))
	text, err := r.Render(Request{Level: 2, Branch: "main"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got := strings.Count(text, "### C"); got != 3 {
		t.Fatalf("commit blocks = %d, want 3:\n%s", got, text)
	}
	// The summary's milestone list also names older commits, so the slice
	// check must look at the commits section alone.
	commitsAt := strings.Index(text, "## Recent Commits")
	if commitsAt < 0 {
		t.Fatalf("missing commits section:\n%s", text)
	}
	slice := text[commitsAt:]
	if !strings.Contains(slice, "milestone 12") || strings.Contains(slice, "milestone 9") {
		t.Fatalf("wrong slice:\n%s", slice)
	}
}

func TestLevelThreeOnMainMatchesLevelTwoByteForByte(t *testing.T) {
	r := New(newPopulatedTree(t))
	two, err := r.Render(Request{Level: 2, Branch: "main"})
	if err != nil {
		t.Fatalf("level 2: %v", err)
	}
	three, err := r.Render(Request{Level: 3, Branch: "main"})
	if err != nil {
		t.Fatalf("level 3: %v", err)
	}
	if two != three {
		t.Fatalf("level 3 on main must equal level 2:\n--- two\n%s\n--- three\n%s", two, three)
	}
}

func TestLevelThreeAddsBranchHeader(t *testing.T) {
	r := New(newPopulatedTree(t))
	text, err := r.Render(Request{Level: 3, Branch: "explore-cache"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{"## Branch: explore-cache", "Purpose: test redis", "Hypothesis: faster reads"} {
		if !strings.Contains(text, want) {
			t.Fatalf("missing %q:\n%s", want, text)
		}
	}
}

func TestLevelFourSupersedesLevelTwoSlice(t *testing.T) {
	r := New(newPopulatedTree(t))
	text, err := r.Render(Request{Level: 4, Branch: "main"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got := strings.Count(text, "### C"); got != 10 {
		t.Fatalf("commit blocks = %d, want 10:\n%s", got, text)
	}
	if strings.Count(text, "Recent Commits") != 1 {
		t.Fatalf("level 2 slice must be superseded, not duplicated:\n%s", text)
	}
}

func TestLevelFiveLookupAndSearch(t *testing.T) {
	r := New(newPopulatedTree(t))
	text, err := r.Render(Request{Level: 5, Branch: "main", CommitID: "C005"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(text, "## Lookup: C005") || !strings.Contains(text, "milestone 5") {
		t.Fatalf("lookup failed:\n%s", text)
	}

	text, err = r.Render(Request{Level: 5, Branch: "main", SearchTerm: "REDIS"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(text, "wire redis") {
		t.Fatalf("case-insensitive search missed the branch commit:\n%s", text)
	}

	text, err = r.Render(Request{Level: 5, Branch: "main", SearchTerm: "zeppelin"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(text, `no commits match "zeppelin"`) {
		t.Fatalf("absent match must be reported explicitly:\n%s", text)
	}
}

func TestLevelFiveSearchIsCapped(t *testing.T) {
	r := New(newPopulatedTree(t))
	text, err := r.Render(Request{Level: 5, Branch: "main", SearchTerm: "milestone"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	searchAt := strings.Index(text, "## Search:")
	if got := strings.Count(text[searchAt:], "### C"); got != 5 {
		t.Fatalf("search hits = %d, want cap of 5", got)
	}
}

func TestLevelFiveMissingLookupIsReported(t *testing.T) {
	r := New(newPopulatedTree(t))
	text, err := r.Render(Request{Level: 5, Branch: "explore-cache", CommitID: "C099"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(text, "no commit C099 on branch explore-cache") {
		t.Fatalf("missing lookup must be reported:\n%s", text)
	}
}

func TestUnknownBranchIsAnError(t *testing.T) {
	r := New(newPopulatedTree(t))
	if _, err := r.Render(Request{Level: 2, Branch: "ghost"}); !errors.Is(err, ErrUnknownBranch) {
		t.Fatalf("err = %v, want ErrUnknownBranch", err)
	}
}
