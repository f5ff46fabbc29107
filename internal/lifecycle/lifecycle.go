// Package lifecycle is the state machine governing branch creation, commit
// recording, and merge. Guard checks run before any write so a rejected
// operation leaves every document unchanged; within an operation, writes
// are sequenced so the least-reversible step (the registry flip) happens
// last.
package lifecycle

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rowanvale/waymark/internal/document"
	"github.com/rowanvale/waymark/internal/journal"
	"github.com/rowanvale/waymark/internal/layout"
	"github.com/rowanvale/waymark/internal/logbook"
	"github.com/rowanvale/waymark/internal/registry"
	"github.com/rowanvale/waymark/internal/summary"
)

// ErrValidation wraps every guard violation. No document is touched when a
// validation error is returned.
var ErrValidation = errors.New("lifecycle: validation")

// branchNameRe is the kebab-case rule for created branch names. main is
// implicit and exempt.
var branchNameRe = regexp.MustCompile(`^[a-z][a-z0-9]*(-[a-z0-9]+)*$`)

// Outcome classifies a merged branch's result.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomePartial Outcome = "partial"
)

// ParseOutcome validates a caller-supplied outcome string.
func ParseOutcome(s string) (Outcome, error) {
	switch Outcome(strings.ToLower(strings.TrimSpace(s))) {
	case OutcomeSuccess:
		return OutcomeSuccess, nil
	case OutcomeFailure:
		return OutcomeFailure, nil
	case OutcomePartial:
		return OutcomePartial, nil
	default:
		return "", fmt.Errorf("%w: outcome must be success, failure, or partial (got %q)", ErrValidation, s)
	}
}

// CommitInput carries the fields of a milestone record.
type CommitInput struct {
	Title string
	What  string
	Why   string
	Files []string
	Next  string
}

// CommitResult reports the allocated identifier and the branch it landed on.
type CommitResult struct {
	ID     string
	Branch string
}

// BranchResult reports the created branch.
type BranchResult struct {
	Branch string
}

// MergeResult reports the synthetic merge commit written to main.
type MergeResult struct {
	MergeCommitID string
}

// Manager orchestrates commit/branch/merge over a project's document tree.
// Every operation re-reads state from disk; the manager holds no caches.
type Manager struct {
	tree         *layout.Tree
	reg          *registry.Registry
	milestoneCap int
	logMaxLines  int
	now          func() time.Time
}

// Option customizes a Manager during construction.
type Option func(*Manager)

// WithClock overrides the clock used for commit timestamps.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) {
		m.now = clock
	}
}

// WithMilestoneCap overrides the summary recent-milestones cap.
func WithMilestoneCap(cap int) Option {
	return func(m *Manager) {
		if cap > 0 {
			m.milestoneCap = cap
		}
	}
}

// WithLogMaxLines overrides the branch log rotation bound.
func WithLogMaxLines(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.logMaxLines = n
		}
	}
}

// NewManager builds a manager over the given tree.
func NewManager(tree *layout.Tree, opts ...Option) *Manager {
	m := &Manager{
		tree:         tree,
		reg:          registry.New(tree.RegistryPath()),
		milestoneCap: 10,
		logMaxLines:  logbook.DefaultMaxLines,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Active returns the currently active branch name.
func (m *Manager) Active() string {
	return m.reg.Active()
}

// Registry exposes the underlying ledger for read-only callers.
func (m *Manager) Registry() *registry.Registry {
	return m.reg
}

// Commit records a milestone on the active branch: allocates the next
// identifier, inserts the block at the front of the branch journal, and
// prepends a capped entry to the summary's recent milestones.
func (m *Manager) Commit(in CommitInput) (CommitResult, error) {
	if err := validateCommit(in); err != nil {
		return CommitResult{}, err
	}
	if err := m.ensureBaseline(); err != nil {
		return CommitResult{}, err
	}
	branch := m.reg.Active()
	if err := m.ensureBranchStorage(branch); err != nil {
		return CommitResult{}, err
	}

	journalPath := m.tree.JournalPath(branch)
	text, _ := document.Read(journalPath)
	id := journal.NextID(text)
	now := m.now()
	block := journal.FormatCommit(journal.Commit{
		ID:        id,
		Timestamp: journal.Stamp(now),
		Branch:    branch,
		Title:     in.Title,
		What:      in.What,
		Why:       in.Why,
		Files:     in.Files,
		Next:      in.Next,
	})
	if err := document.InsertAfterAnchor(journalPath, journal.Anchor, block); err != nil {
		return CommitResult{}, fmt.Errorf("lifecycle: insert commit: %w", err)
	}

	entry := summary.MilestoneEntry(now.Format("2006-01-02"), branch, in.Title)
	if err := summary.AddMilestone(m.tree.SummaryPath(), entry, m.milestoneCap); err != nil {
		return CommitResult{}, fmt.Errorf("lifecycle: update summary: %w", err)
	}
	m.branchLog(branch).Info("commit %s: %s", id, in.Title)
	return CommitResult{ID: id, Branch: branch}, nil
}

// Branch creates an exploration branch and makes it active. Only allowed
// from main; names follow the kebab-case rule and must not collide with any
// branch directory ever created, merged or not.
func (m *Manager) Branch(name, purpose, hypothesis string) (BranchResult, error) {
	if active := m.reg.Active(); active != layout.MainBranch {
		return BranchResult{}, fmt.Errorf("%w: cannot branch while on %q; merge it first", ErrValidation, active)
	}
	if name == layout.MainBranch || !branchNameRe.MatchString(name) {
		return BranchResult{}, fmt.Errorf("%w: branch name %q must be kebab-case (lowercase letters, digits, hyphens)", ErrValidation, name)
	}
	if m.tree.BranchExists(name) {
		return BranchResult{}, fmt.Errorf("%w: branch %q already exists (merged names are not reusable)", ErrValidation, name)
	}

	if err := m.ensureBaseline(); err != nil {
		return BranchResult{}, err
	}
	now := m.now()
	template, err := journal.BranchTemplate(journal.Header{
		Branch:     name,
		Purpose:    purpose,
		Hypothesis: hypothesis,
		Conclusion: journal.ConclusionSentinel,
		Created:    now.Format("2006-01-02"),
	})
	if err != nil {
		return BranchResult{}, fmt.Errorf("lifecycle: render branch header: %w", err)
	}
	if err := m.tree.EnsureBranchDir(name); err != nil {
		return BranchResult{}, fmt.Errorf("lifecycle: create branch dir: %w", err)
	}
	if err := document.Ensure(m.tree.JournalPath(name), template); err != nil {
		return BranchResult{}, fmt.Errorf("lifecycle: create branch journal: %w", err)
	}
	if err := summary.AddOpenBranch(m.tree.SummaryPath(), name); err != nil {
		return BranchResult{}, fmt.Errorf("lifecycle: update summary: %w", err)
	}
	if err := m.reg.RecordCreated(name, now.Format("2006-01-02")); err != nil {
		return BranchResult{}, fmt.Errorf("lifecycle: record branch: %w", err)
	}
	m.branchLog(name).Info("branch created: %s", purpose)
	// The active-pointer flip is the least reversible step; it runs last.
	if err := m.reg.SetActive(name); err != nil {
		return BranchResult{}, fmt.Errorf("lifecycle: activate branch: %w", err)
	}
	return BranchResult{Branch: name}, nil
}

// Merge closes the named branch: patches its header conclusion, writes a
// synthetic merge commit on main, updates the summary, and returns the
// active pointer to main. The registry flips (status, then active pointer)
// run last so a failure mid-merge never reports a merge that was not
// written.
func (m *Manager) Merge(name string, outcome Outcome, conclusion string) (MergeResult, error) {
	if name == layout.MainBranch {
		return MergeResult{}, fmt.Errorf("%w: main cannot be merged", ErrValidation)
	}
	parsed, err := ParseOutcome(string(outcome))
	if err != nil {
		return MergeResult{}, err
	}
	outcome = parsed
	if active := m.reg.Active(); active != name {
		return MergeResult{}, fmt.Errorf("%w: cannot merge %q while on %q", ErrValidation, name, active)
	}
	if !m.tree.BranchExists(name) {
		return MergeResult{}, fmt.Errorf("%w: branch %q has no storage", ErrValidation, name)
	}
	if err := m.ensureBaseline(); err != nil {
		return MergeResult{}, err
	}

	conclusionText := strings.TrimSpace(conclusion)
	if conclusionText == "" {
		conclusionText = string(outcome)
	}
	header := m.patchConclusion(name, fmt.Sprintf("%s: %s", outcome, conclusionText))

	mainJournal := m.tree.JournalPath(layout.MainBranch)
	text, _ := document.Read(mainJournal)
	id := journal.NextID(text)
	now := m.now()
	block := journal.FormatCommit(journal.Commit{
		ID:        id,
		Timestamp: journal.Stamp(now),
		Branch:    layout.MainBranch,
		Title:     fmt.Sprintf("Merge: %s (%s)", name, outcome),
		What:      conclusionText,
		Why:       header.Purpose,
		Files:     []string{layout.BranchesDir + "/" + name + "/" + layout.FileJournal},
		Next:      fmt.Sprintf("see %s's journal for the full exploration", name),
	})
	if err := document.InsertAfterAnchor(mainJournal, journal.Anchor, block); err != nil {
		return MergeResult{}, fmt.Errorf("lifecycle: insert merge commit: %w", err)
	}

	entry := summary.MilestoneEntry(now.Format("2006-01-02"), layout.MainBranch,
		fmt.Sprintf("Merge: %s (%s)", name, outcome))
	if err := summary.AddMilestone(m.tree.SummaryPath(), entry, m.milestoneCap); err != nil {
		return MergeResult{}, fmt.Errorf("lifecycle: update summary: %w", err)
	}
	if err := summary.RemoveOpenBranch(m.tree.SummaryPath(), name); err != nil {
		return MergeResult{}, fmt.Errorf("lifecycle: update summary: %w", err)
	}

	m.branchLog(name).Info("merged into main as %s (%s)", id, outcome)
	m.branchLog(layout.MainBranch).Info("merge %s from %s (%s)", id, name, outcome)

	if err := m.reg.SetStatus(name, registry.StatusMerged); err != nil {
		return MergeResult{}, fmt.Errorf("lifecycle: mark merged: %w", err)
	}
	if err := m.reg.SetActive(layout.MainBranch); err != nil {
		return MergeResult{}, fmt.Errorf("lifecycle: return to main: %w", err)
	}
	return MergeResult{MergeCommitID: id}, nil
}

// patchConclusion rewrites the branch header's conclusion field and returns
// the header for reuse in the merge commit. A journal without a parseable
// header degrades to an empty header rather than failing the merge.
func (m *Manager) patchConclusion(name, conclusion string) journal.Header {
	path := m.tree.JournalPath(name)
	content, ok := document.Read(path)
	if !ok {
		return journal.Header{Branch: name}
	}
	header, _, err := journal.ParseHeader([]byte(content))
	if err != nil {
		return journal.Header{Branch: name}
	}
	patched, err := journal.PatchConclusion([]byte(content), conclusion)
	if err == nil {
		_ = document.ReplaceAll(path, string(patched))
	}
	header.Conclusion = conclusion
	return header
}

// ensureBaseline makes sure the skeleton documents every operation relies
// on exist: the tree, the summary, the registry, and main's storage.
func (m *Manager) ensureBaseline() error {
	if err := m.tree.Scaffold(); err != nil {
		return fmt.Errorf("lifecycle: scaffold tree: %w", err)
	}
	if err := summary.Ensure(m.tree.SummaryPath()); err != nil {
		return fmt.Errorf("lifecycle: ensure summary: %w", err)
	}
	if err := m.reg.Ensure(); err != nil {
		return fmt.Errorf("lifecycle: ensure registry: %w", err)
	}
	return m.ensureBranchStorage(layout.MainBranch)
}

// ensureBranchStorage guarantees a branch directory and journal exist. A
// non-main branch whose storage vanished gets a minimal header so commit
// insertion still has an anchor to land under.
func (m *Manager) ensureBranchStorage(name string) error {
	if err := m.tree.EnsureBranchDir(name); err != nil {
		return fmt.Errorf("lifecycle: ensure branch dir: %w", err)
	}
	template := journal.MainTemplate()
	if name != layout.MainBranch {
		rendered, err := journal.BranchTemplate(journal.Header{
			Branch:     name,
			Conclusion: journal.ConclusionSentinel,
			Created:    m.now().Format("2006-01-02"),
		})
		if err != nil {
			return fmt.Errorf("lifecycle: render branch header: %w", err)
		}
		template = rendered
	}
	if err := document.Ensure(m.tree.JournalPath(name), template); err != nil {
		return fmt.Errorf("lifecycle: ensure journal: %w", err)
	}
	return nil
}

func (m *Manager) branchLog(name string) *logbook.Logbook {
	return logbook.New(m.tree.LogPath(name), m.logMaxLines)
}

func validateCommit(in CommitInput) error {
	missing := func(field string) error {
		return fmt.Errorf("%w: %s is required", ErrValidation, field)
	}
	if strings.TrimSpace(in.Title) == "" {
		return missing("title")
	}
	if strings.TrimSpace(in.What) == "" {
		return missing("what")
	}
	if strings.TrimSpace(in.Why) == "" {
		return missing("why")
	}
	if strings.TrimSpace(in.Next) == "" {
		return missing("next")
	}
	if len(in.Files) == 0 {
		return missing("files")
	}
	for _, f := range in.Files {
		if strings.TrimSpace(f) == "" {
			return fmt.Errorf("%w: files must not contain empty entries", ErrValidation)
		}
	}
	return nil
}
