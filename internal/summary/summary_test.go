package summary

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func summaryPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "summary.doc")
}

func readSummary(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	return string(data)
}

func TestAddMilestoneCapsListNewestFirst(t *testing.T) {
	path := summaryPath(t)
	entries := []string{"one", "two", "three", "four"}
	for _, e := range entries {
		if err := AddMilestone(path, MilestoneEntry("2026-08-26", "main", e), 3); err != nil {
			t.Fatalf("add %s: %v", e, err)
		}
	}
	got := Milestones(readSummary(t, path))
	if len(got) != 3 {
		t.Fatalf("len(milestones) = %d, want cap 3", len(got))
	}
	if !strings.HasSuffix(got[0], "four") {
		t.Fatalf("newest entry must be first, got %v", got)
	}
	for _, e := range got {
		if strings.HasSuffix(e, "one") {
			t.Fatalf("oldest entry should be capped away: %v", got)
		}
	}
}

func TestOpenBranchesAddRemoveAndSentinel(t *testing.T) {
	path := summaryPath(t)
	if err := Ensure(path); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if names := OpenBranches(readSummary(t, path)); len(names) != 0 {
		t.Fatalf("fresh summary should list no branches, got %v", names)
	}

	if err := AddOpenBranch(path, "explore-cache"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := AddOpenBranch(path, "explore-cache"); err != nil {
		t.Fatalf("re-add: %v", err)
	}
	content := readSummary(t, path)
	if strings.Contains(content, NoBranchesSentinel) {
		t.Fatalf("sentinel must disappear once a branch is open:\n%s", content)
	}
	names := OpenBranches(content)
	if len(names) != 1 || names[0] != "explore-cache" {
		t.Fatalf("names = %v, entries must stay unique", names)
	}

	if err := RemoveOpenBranch(path, "explore-cache"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	content = readSummary(t, path)
	if !strings.Contains(content, "- "+NoBranchesSentinel) {
		t.Fatalf("sentinel must return when the list empties:\n%s", content)
	}
	if names := OpenBranches(content); len(names) != 0 {
		t.Fatalf("names = %v, want none", names)
	}
}
