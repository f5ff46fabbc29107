// Package migrate performs the one-shot upgrade from the legacy flat layout
// (one shared journal and log for the whole project, plus flat per-branch
// metadata files) into the per-branch layout. Legacy files are moved or
// folded into the new tree and then renamed aside as backups; nothing the
// user wrote is ever deleted, so an accidental second invocation cannot
// lose data.
package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rowanvale/waymark/internal/document"
	"github.com/rowanvale/waymark/internal/journal"
	"github.com/rowanvale/waymark/internal/layout"
)

// Migrator upgrades a project's document tree in place.
type Migrator struct {
	tree *layout.Tree
	now  func() time.Time
}

// Option customizes a Migrator during construction.
type Option func(*Migrator)

// WithClock overrides the clock used for the completion marker.
func WithClock(clock func() time.Time) Option {
	return func(m *Migrator) {
		m.now = clock
	}
}

// New builds a migrator over the given tree.
func New(tree *layout.Tree, opts ...Option) *Migrator {
	m := &Migrator{tree: tree, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NeedsMigration reports whether the legacy layout is present and the
// upgrade has not been applied yet.
func (m *Migrator) NeedsMigration() bool {
	return m.tree.HasLegacyJournal() && !m.tree.MigrationApplied()
}

// Migrate applies the upgrade: main absorbs the legacy shared journal and
// log, flat branch files become per-branch storage with a synthesized
// header, and a timestamped marker records completion. Callers are expected
// to check NeedsMigration first; running twice anyway is safe because every
// source file ends up renamed aside as a backup.
func (m *Migrator) Migrate() error {
	if err := m.tree.EnsureBranchDir(layout.MainBranch); err != nil {
		return fmt.Errorf("migrate: ensure main storage: %w", err)
	}
	if err := m.moveOrAppend(m.tree.LegacyJournalPath(), m.tree.JournalPath(layout.MainBranch)); err != nil {
		return fmt.Errorf("migrate: move legacy journal: %w", err)
	}
	if err := m.moveOrAppend(m.tree.LegacyLogPath(), m.tree.LogPath(layout.MainBranch)); err != nil {
		return fmt.Errorf("migrate: move legacy log: %w", err)
	}
	if err := m.convertFlatBranches(); err != nil {
		return err
	}
	marker := m.now().UTC().Format(time.RFC3339) + "\n"
	if err := document.ReplaceAll(m.tree.MigratedMarkerPath(), marker); err != nil {
		return fmt.Errorf("migrate: write marker: %w", err)
	}
	return nil
}

// moveOrAppend relocates src to dst. When dst already exists (a re-entrant
// or partially migrated tree) the legacy content is appended after the
// existing content instead of overwriting it, and src is renamed aside as
// a backup.
func (m *Migrator) moveOrAppend(src, dst string) error {
	srcContent, ok := document.Read(src)
	if !ok {
		return nil
	}
	if _, exists := document.Read(dst); !exists {
		return os.Rename(src, dst)
	}
	dstContent, _ := document.Read(dst)
	combined := strings.TrimRight(dstContent, "\n") + "\n\n" + srcContent
	if err := document.ReplaceAll(dst, combined); err != nil {
		return err
	}
	return os.Rename(src, backupPathFor(src))
}

// convertFlatBranches upgrades every legacy flat per-branch file under
// branches/. The registry document and anything already a directory are
// left alone.
func (m *Migrator) convertFlatBranches() error {
	entries, err := os.ReadDir(m.tree.BranchesDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("migrate: read branches dir: %w", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == layout.FileRegistry {
			continue
		}
		if !strings.HasSuffix(name, ".doc") || strings.HasSuffix(name, layout.LegacyBackupSuffix) {
			continue
		}
		branch := strings.TrimSuffix(name, ".doc")
		if err := m.convertFlatBranch(branch); err != nil {
			return fmt.Errorf("migrate: convert branch %s: %w", branch, err)
		}
	}
	return nil
}

func (m *Migrator) convertFlatBranch(branch string) error {
	legacyPath := m.tree.LegacyBranchPath(branch)
	content, ok := document.Read(legacyPath)
	if !ok {
		return nil
	}
	sections, remainder := parseLegacySections(content)
	header := journal.Header{
		Branch:     branch,
		Purpose:    sections["purpose"],
		Hypothesis: sections["hypothesis"],
		Findings:   sections["findings"],
		Conclusion: sections["conclusion"],
		Created:    m.now().Format("2006-01-02"),
	}
	if header.Conclusion == "" {
		header.Conclusion = journal.ConclusionSentinel
	}
	template, err := journal.BranchTemplate(header)
	if err != nil {
		return err
	}
	if err := m.tree.EnsureBranchDir(branch); err != nil {
		return err
	}
	journalPath := m.tree.JournalPath(branch)
	if err := document.Ensure(journalPath, template); err != nil {
		return err
	}
	if remainder != "" {
		if err := document.InsertAfterAnchor(journalPath, journal.Anchor, remainder+"\n"); err != nil {
			return err
		}
	}
	return os.Rename(legacyPath, backupPathFor(legacyPath))
}

// parseLegacySections pulls the Purpose / Hypothesis / Findings /
// Conclusion bodies out of a legacy flat branch file by heading text.
// Everything else (free-form notes, unknown headings with their bodies)
// is returned as the remainder, which the conversion carries into the new
// journal so no legacy content goes live-invisible. The legacy title line
// is dropped; the new journal renders its own.
func parseLegacySections(content string) (map[string]string, string) {
	sections := map[string]string{}
	known := []string{"purpose", "hypothesis", "findings", "conclusion"}
	current := ""
	var body []string
	var rest []string
	flush := func() {
		if current != "" {
			sections[current] = strings.TrimSpace(strings.Join(body, "\n"))
		}
		body = body[:0]
	}
	for i, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			heading := strings.ToLower(strings.TrimSpace(strings.TrimLeft(trimmed, "#")))
			flush()
			current = ""
			for _, k := range known {
				if heading == k {
					current = k
					break
				}
			}
			if current == "" {
				if i == 0 && strings.HasPrefix(trimmed, "# ") {
					continue
				}
				rest = append(rest, line)
			}
			continue
		}
		if current != "" {
			body = append(body, line)
		} else {
			rest = append(rest, line)
		}
	}
	flush()
	return sections, strings.TrimSpace(strings.Join(rest, "\n"))
}

// backupPathFor reports where a migrated legacy file is parked.
func backupPathFor(path string) string {
	return filepath.Clean(path) + layout.LegacyBackupSuffix
}
