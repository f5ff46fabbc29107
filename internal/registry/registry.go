// Package registry tracks which branch is active and the lifecycle status
// of every branch ever created. It is a dumb ledger over _registry.doc;
// the single-active-branch rule is enforced by the lifecycle manager,
// not here.
package registry

import (
	"fmt"
	"strings"

	"github.com/rowanvale/waymark/internal/document"
)

// Status is a branch lifecycle state in the history table.
type Status string

const (
	StatusActive Status = "active"
	StatusMerged Status = "merged"
)

// ActiveLabel is the literal prefix of the active-branch line. It must stay
// byte-stable within a deployment.
const ActiveLabel = "Active branch: "

// DefaultBranch is reported when the registry is missing or unparseable.
const DefaultBranch = "main"

const tableHead = "| Branch | Status | Created |"
const tableRule = "|--------|--------|---------|"

// Row is one history entry. Names are never removed; only the status
// column transitions.
type Row struct {
	Name    string
	Status  Status
	Created string
}

// Registry reads and mutates a project's _registry.doc.
type Registry struct {
	path string
}

// New returns a registry backed by the document at path.
func New(path string) *Registry {
	return &Registry{path: path}
}

// Template renders a fresh registry document with main active and no
// history rows.
func Template() string {
	var b strings.Builder
	b.WriteString("# Branch Registry\n\n")
	b.WriteString(ActiveLabel + DefaultBranch + "\n\n")
	b.WriteString(tableHead + "\n")
	b.WriteString(tableRule + "\n")
	return b.String()
}

// Ensure creates the registry document if it does not exist yet.
func (r *Registry) Ensure() error {
	return document.Ensure(r.path, Template())
}

// Active returns the currently active branch name, defaulting to main when
// the registry is missing or carries no active-branch line.
func (r *Registry) Active() string {
	content, ok := document.Read(r.path)
	if !ok {
		return DefaultBranch
	}
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, ActiveLabel) {
			if name := strings.TrimSpace(strings.TrimPrefix(line, ActiveLabel)); name != "" {
				return name
			}
		}
	}
	return DefaultBranch
}

// SetActive overwrites the active-branch line. Idempotent; a registry
// without the line gains one.
func (r *Registry) SetActive(name string) error {
	if err := r.Ensure(); err != nil {
		return err
	}
	content, _ := document.Read(r.path)
	lines := strings.Split(content, "\n")
	replaced := false
	for i, line := range lines {
		if strings.HasPrefix(line, ActiveLabel) {
			lines[i] = ActiveLabel + name
			replaced = true
			break
		}
	}
	if !replaced {
		lines = append([]string{ActiveLabel + name, ""}, lines...)
	}
	return document.ReplaceAll(r.path, strings.Join(lines, "\n"))
}

// RecordCreated appends a history row with status active. The table is
// created when a legacy registry lacks one.
func (r *Registry) RecordCreated(name, created string) error {
	if err := r.Ensure(); err != nil {
		return err
	}
	content, _ := document.Read(r.path)
	row := fmt.Sprintf("| %s | %s | %s |", name, StatusActive, created)
	if !strings.Contains(content, tableHead) {
		content = strings.TrimRight(content, "\n") + "\n\n" + tableHead + "\n" + tableRule + "\n"
	}
	content = strings.TrimRight(content, "\n") + "\n" + row + "\n"
	return document.ReplaceAll(r.path, content)
}

// SetStatus rewrites the named row's status column in place. A row that is
// absent is a no-op rather than an error.
func (r *Registry) SetStatus(name string, status Status) error {
	content, ok := document.Read(r.path)
	if !ok {
		return nil
	}
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		row, parsed := parseRow(line)
		if parsed && row.Name == name {
			lines[i] = fmt.Sprintf("| %s | %s | %s |", row.Name, status, row.Created)
			return document.ReplaceAll(r.path, strings.Join(lines, "\n"))
		}
	}
	return nil
}

// Rows returns the history table in document order.
func (r *Registry) Rows() []Row {
	content, ok := document.Read(r.path)
	if !ok {
		return nil
	}
	var rows []Row
	for _, line := range strings.Split(content, "\n") {
		if row, parsed := parseRow(line); parsed {
			rows = append(rows, row)
		}
	}
	return rows
}

func parseRow(line string) (Row, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "|") || !strings.HasSuffix(trimmed, "|") {
		return Row{}, false
	}
	cells := strings.Split(strings.Trim(trimmed, "|"), "|")
	if len(cells) != 3 {
		return Row{}, false
	}
	name := strings.TrimSpace(cells[0])
	status := strings.TrimSpace(cells[1])
	created := strings.TrimSpace(cells[2])
	if name == "" || name == "Branch" || strings.HasPrefix(name, "---") {
		return Row{}, false
	}
	if status != string(StatusActive) && status != string(StatusMerged) {
		return Row{}, false
	}
	return Row{Name: name, Status: Status(status), Created: created}, true
}
