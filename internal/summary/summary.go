// Package summary maintains the per-project summary.doc: the current focus
// narrative, the capped recent-milestones list, and the open-branches list.
package summary

import (
	"fmt"

	"github.com/rowanvale/waymark/internal/document"
)

// Section headings. Stable anchor tokens: the document store locates them
// by exact match.
const (
	Title             = "# Project Summary"
	HeadingFocus      = "## Current Focus"
	HeadingMilestones = "## Recent Milestones"
	HeadingBranches   = "## Open Branches"
)

// NoBranchesSentinel is the single entry shown when no exploration branches
// are open.
const NoBranchesSentinel = "(none)"

// Template renders a fresh summary document.
func Template() string {
	return Title + "\n\n" +
		HeadingFocus + "\n\n" +
		"(set the current focus here)\n\n" +
		HeadingMilestones + "\n\n" +
		"- (placeholder)\n\n" +
		HeadingBranches + "\n\n" +
		"- " + NoBranchesSentinel + "\n"
}

// Ensure creates summary.doc if the project does not have one yet.
func Ensure(path string) error {
	return document.Ensure(path, Template())
}

// MilestoneEntry renders one recent-milestones bullet.
func MilestoneEntry(date, branch, title string) string {
	return fmt.Sprintf("%s [%s] %s", date, branch, title)
}

// AddMilestone prepends a milestone entry, retaining at most cap entries.
func AddMilestone(path, entry string, cap int) error {
	if err := Ensure(path); err != nil {
		return err
	}
	return document.ReplaceSection(path, HeadingMilestones, entry, cap)
}

// Milestones returns the current recent-milestones entries, newest first.
func Milestones(content string) []string {
	return document.SectionEntries(content, HeadingMilestones)
}

// AddOpenBranch records a newly created branch. Entries stay unique and the
// empty-state sentinel is dropped once a real branch is open.
func AddOpenBranch(path, name string) error {
	if err := Ensure(path); err != nil {
		return err
	}
	return document.UpdateSection(path, HeadingBranches, func(entries []string) []string {
		updated := []string{name}
		for _, entry := range entries {
			if entry != name && entry != NoBranchesSentinel {
				updated = append(updated, entry)
			}
		}
		return updated
	})
}

// RemoveOpenBranch drops a merged branch from the open list, restoring the
// empty-state sentinel when no branches remain.
func RemoveOpenBranch(path, name string) error {
	if err := Ensure(path); err != nil {
		return err
	}
	return document.UpdateSection(path, HeadingBranches, func(entries []string) []string {
		var updated []string
		for _, entry := range entries {
			if entry != name && entry != NoBranchesSentinel {
				updated = append(updated, entry)
			}
		}
		if len(updated) == 0 {
			updated = []string{NoBranchesSentinel}
		}
		return updated
	})
}

// OpenBranches returns the currently open branch names, sentinel excluded.
func OpenBranches(content string) []string {
	entries := document.SectionEntries(content, HeadingBranches)
	var names []string
	for _, entry := range entries {
		if entry != NoBranchesSentinel {
			names = append(names, entry)
		}
	}
	return names
}
