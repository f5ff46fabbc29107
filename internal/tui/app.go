// internal/tui/app.go
//
// Read-only TUI for browsing a project's journal.
// It uses bubbletea, which follows The Elm Architecture:
//
// 1. Model: Your application state
// 2. Update: A function that updates state based on messages
// 3. View: A function that renders state to a string
//
// The flow is: User Input -> Message -> Update -> New Model -> View -> Screen

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fsnotify/fsnotify"

	"github.com/rowanvale/waymark/internal/contextview"
	"github.com/rowanvale/waymark/internal/layout"
	"github.com/rowanvale/waymark/internal/registry"
)

// appState represents which "screen" we're on
type appState int

const (
	stateBrowse appState = iota // branch list + rendered context
	stateSearch                 // typing a search term
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	statusStyle = lipgloss.NewStyle().Faint(true)
	paneStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// treeChangedMsg is emitted when fsnotify sees a write under the tree.
type treeChangedMsg struct{}

type watchErrMsg struct{ err error }

// branchItem implements list.Item for the branch picker.
type branchItem struct {
	name    string
	status  string
	created string
}

func (i branchItem) Title() string { return i.name }
func (i branchItem) Description() string {
	if i.created == "" {
		return i.status
	}
	return fmt.Sprintf("%s · created %s", i.status, i.created)
}
func (i branchItem) FilterValue() string { return i.name }

// App is the browser model. It never writes to the tree; every refresh
// re-reads the documents, matching the no-cache rule the rest of the
// system follows.
type App struct {
	tree    *layout.Tree
	reader  *contextview.Reader
	reg     *registry.Registry
	watcher *fsnotify.Watcher

	state    appState
	branches list.Model
	view     viewport.Model
	search   textinput.Model

	selected string
	status   string
	err      error

	width  int
	height int
}

// NewApp creates the browser over a project tree.
func NewApp(tree *layout.Tree) (*App, error) {
	branches := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	branches.Title = "⬡ WAYMARK"
	branches.SetShowStatusBar(false)
	branches.SetFilteringEnabled(false)

	search := textinput.New()
	search.Placeholder = "search commits"
	search.CharLimit = 80

	app := &App{
		tree:     tree,
		reader:   contextview.New(tree),
		reg:      registry.New(tree.RegistryPath()),
		state:    stateBrowse,
		branches: branches,
		view:     viewport.New(0, 0),
		search:   search,
		selected: layout.MainBranch,
	}
	app.reloadBranches()
	app.renderSelected(0)

	// A lost watcher only disables live refresh; browsing still works.
	if watcher, err := fsnotify.NewWatcher(); err == nil {
		_ = watcher.Add(tree.Dir())
		_ = watcher.Add(tree.BranchesDir())
		for _, item := range app.branchNames() {
			_ = watcher.Add(tree.BranchDir(item))
		}
		app.watcher = watcher
	}
	return app, nil
}

// Init starts the fsnotify pump.
func (a *App) Init() tea.Cmd {
	return a.waitForChange()
}

func (a *App) waitForChange() tea.Cmd {
	if a.watcher == nil {
		return nil
	}
	return func() tea.Msg {
		for {
			select {
			case event, ok := <-a.watcher.Events:
				if !ok {
					return watchErrMsg{err: fmt.Errorf("tui: watcher closed")}
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					return treeChangedMsg{}
				}
			case err, ok := <-a.watcher.Errors:
				if !ok {
					return watchErrMsg{err: fmt.Errorf("tui: watcher closed")}
				}
				return watchErrMsg{err: err}
			}
		}
	}
}

// Update handles messages.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.layoutPanes()
		return a, nil

	case treeChangedMsg:
		a.reloadBranches()
		a.renderSelected(a.branches.Index())
		return a, a.waitForChange()

	case watchErrMsg:
		a.err = msg.err
		return a, nil

	case tea.KeyMsg:
		if a.state == stateSearch {
			return a.updateSearch(msg)
		}
		switch msg.String() {
		case "q", "ctrl+c":
			if a.watcher != nil {
				_ = a.watcher.Close()
			}
			return a, tea.Quit
		case "enter":
			a.renderSelected(a.branches.Index())
			return a, nil
		case "/":
			a.state = stateSearch
			a.search.SetValue("")
			return a, a.search.Focus()
		}
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	a.branches, cmd = a.branches.Update(msg)
	cmds = append(cmds, cmd)
	a.view, cmd = a.view.Update(msg)
	cmds = append(cmds, cmd)
	return a, tea.Batch(cmds...)
}

func (a *App) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.state = stateBrowse
		a.search.Blur()
		return a, nil
	case "enter":
		a.state = stateBrowse
		a.search.Blur()
		a.renderSearch(a.search.Value())
		return a, nil
	}
	var cmd tea.Cmd
	a.search, cmd = a.search.Update(msg)
	return a, cmd
}

// View renders the branch list beside the context pane.
func (a *App) View() string {
	left := paneStyle.Render(a.branches.View())
	right := paneStyle.Render(a.view.View())
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, right)

	status := a.status
	if a.err != nil {
		status = "error: " + a.err.Error()
	}
	footer := statusStyle.Render(status + "  ·  enter: view · /: search · q: quit")
	if a.state == stateSearch {
		footer = a.search.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(" waymark journal "),
		body,
		footer,
	)
}

func (a *App) layoutPanes() {
	listWidth := a.width / 3
	if listWidth < 24 {
		listWidth = 24
	}
	bodyHeight := a.height - 4
	if bodyHeight < 4 {
		bodyHeight = 4
	}
	a.branches.SetSize(listWidth, bodyHeight)
	a.view.Width = a.width - listWidth - 6
	a.view.Height = bodyHeight
}

// reloadBranches rebuilds the picker from the registry history plus main.
func (a *App) reloadBranches() {
	items := []list.Item{branchItem{name: layout.MainBranch, status: "active line"}}
	for _, row := range a.reg.Rows() {
		items = append(items, branchItem{
			name:    row.Name,
			status:  string(row.Status),
			created: row.Created,
		})
	}
	a.branches.SetItems(items)
	a.status = fmt.Sprintf("active: %s", a.reg.Active())
}

func (a *App) branchNames() []string {
	names := []string{layout.MainBranch}
	for _, row := range a.reg.Rows() {
		names = append(names, row.Name)
	}
	return names
}

// renderSelected shows reader level 4 for the highlighted branch.
func (a *App) renderSelected(index int) {
	items := a.branches.Items()
	if index >= 0 && index < len(items) {
		if item, ok := items[index].(branchItem); ok {
			a.selected = item.name
		}
	}
	text, err := a.reader.Render(contextview.Request{Level: 4, Branch: a.selected})
	if err != nil {
		a.err = err
		return
	}
	a.err = nil
	a.view.SetContent(text)
	a.view.GotoTop()
}

// renderSearch shows reader level 5 with the typed term.
func (a *App) renderSearch(term string) {
	term = strings.TrimSpace(term)
	if term == "" {
		a.renderSelected(a.branches.Index())
		return
	}
	text, err := a.reader.Render(contextview.Request{
		Level:      5,
		Branch:     a.selected,
		SearchTerm: term,
	})
	if err != nil {
		a.err = err
		return
	}
	a.err = nil
	a.view.SetContent(text)
	a.view.GotoTop()
	a.status = fmt.Sprintf("search: %q", term)
}
