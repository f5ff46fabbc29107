// internal/layout/layout.go
//
// Defines the journal directory structure and file constants.
// All journal state is stored in .waymark/ so it can be git-tracked
// alongside the project it describes.

package layout

import (
	"os"
	"path/filepath"
)

// Directory names within .waymark/
const (
	BranchesDir = "branches"
	LogsDir     = "logs"
)

// File names for journal documents
const (
	FileSummary  = "summary.doc"
	FileRegistry = "_registry.doc"
	FileJournal  = "journal.doc"
	FileLog      = "log.doc"
	FileConfig   = "config.yaml"
)

// Marker files
const (
	MarkerMigrated = ".migrated-marker"
)

// MainBranch is the implicit, always-present branch. It is exempt from
// the kebab-case rule applied to created branch names.
const MainBranch = "main"

// Suffix appended to legacy files moved aside during migration.
const LegacyBackupSuffix = ".legacy.bak"

// Tree resolves paths inside a project's .waymark directory.
type Tree struct {
	// Base path to the .waymark directory
	baseDir string
}

// New creates a Tree rooted at the given .waymark directory.
func New(baseDir string) *Tree {
	return &Tree{baseDir: baseDir}
}

// Dir returns the base .waymark directory path.
func (t *Tree) Dir() string {
	return t.baseDir
}

// SummaryPath returns the path to summary.doc.
func (t *Tree) SummaryPath() string {
	return filepath.Join(t.baseDir, FileSummary)
}

// ConfigPath returns the path to config.yaml.
func (t *Tree) ConfigPath() string {
	return filepath.Join(t.baseDir, FileConfig)
}

// BranchesDir returns the path to the branches/ directory.
func (t *Tree) BranchesDir() string {
	return filepath.Join(t.baseDir, BranchesDir)
}

// RegistryPath returns the path to branches/_registry.doc.
func (t *Tree) RegistryPath() string {
	return filepath.Join(t.BranchesDir(), FileRegistry)
}

// BranchDir returns the storage directory for a named branch.
func (t *Tree) BranchDir(name string) string {
	return filepath.Join(t.BranchesDir(), name)
}

// JournalPath returns the journal document for a named branch.
func (t *Tree) JournalPath(name string) string {
	return filepath.Join(t.BranchDir(name), FileJournal)
}

// LogPath returns the operation log for a named branch.
func (t *Tree) LogPath(name string) string {
	return filepath.Join(t.BranchDir(name), FileLog)
}

// MigratedMarkerPath returns the path to the migration-complete marker.
func (t *Tree) MigratedMarkerPath() string {
	return filepath.Join(t.baseDir, MarkerMigrated)
}

// ProcessLogPath returns the path to logs/waymark.log.
func (t *Tree) ProcessLogPath() string {
	return filepath.Join(t.baseDir, LogsDir, "waymark.log")
}

// LegacyJournalPath returns the pre-migration shared journal path.
func (t *Tree) LegacyJournalPath() string {
	return filepath.Join(t.baseDir, FileJournal)
}

// LegacyLogPath returns the pre-migration shared log path.
func (t *Tree) LegacyLogPath() string {
	return filepath.Join(t.baseDir, FileLog)
}

// LegacyBranchPath returns the pre-migration flat file for a named branch.
func (t *Tree) LegacyBranchPath(name string) string {
	return filepath.Join(t.BranchesDir(), name+".doc")
}

// BranchExists reports whether a branch's storage directory exists.
// Existence is the uniqueness check for branch creation: a merged branch
// keeps its directory, so its name is never reusable.
func (t *Tree) BranchExists(name string) bool {
	info, err := os.Stat(t.BranchDir(name))
	return err == nil && info.IsDir()
}

// EnsureBranchDir creates a branch's storage directory.
func (t *Tree) EnsureBranchDir(name string) error {
	return os.MkdirAll(t.BranchDir(name), 0o755)
}

// Scaffold creates the base directory skeleton.
func (t *Tree) Scaffold() error {
	dirs := []string{
		t.baseDir,
		t.BranchesDir(),
		filepath.Join(t.baseDir, LogsDir),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// fileExistsAt reports whether a regular file exists at the path.
func fileExistsAt(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// MigrationApplied reports whether the migration marker is present.
func (t *Tree) MigrationApplied() bool {
	return fileExistsAt(t.MigratedMarkerPath())
}

// HasLegacyJournal reports whether the pre-migration shared journal exists.
func (t *Tree) HasLegacyJournal() bool {
	return fileExistsAt(t.LegacyJournalPath())
}
