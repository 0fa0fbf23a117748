package cmd

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"spt-installer/logger"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var tuiCmd = &cobra.Command{
	Use:     "tui",
	Aliases: []string{"gui"},
	Short:   "Browse, install and uninstall mods interactively",
	Long:    `Opens a full-screen list of the mod archives in resources/mods and the mods installed in the game.`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(func(a *app) error { return runModBrowser(cmd.Context(), a) })
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

// ModRow is one line of the mod browser.
type ModRow struct {
	Name      string
	Version   string
	Files     int
	Available bool // an archive exists in resources/mods
	Installed bool // the manifest records the mod
	Selected  bool
}

// Status is the row's state column.
func (r ModRow) Status() string {
	switch {
	case r.Installed:
		return "installed"
	case r.Available:
		return "available"
	default:
		return "missing"
	}
}

// modActions are the operations the browser triggers. They return a one-line result message.
type modActions struct {
	load      func() ([]ModRow, error)
	install   func(names []string) string
	uninstall func(names []string) string
}

// ModBrowser is the bubbletea model of the mod browser.
type ModBrowser struct {
	rows         []ModRow
	cursor       int
	loading      bool
	busy         bool
	err          string
	message      string
	spinnerFrame int
	actions      modActions
}

func newModBrowser(actions modActions) ModBrowser {
	return ModBrowser{loading: true, actions: actions}
}

func (m ModBrowser) Init() tea.Cmd {
	return tea.Batch(m.loadRows(), tickSpinner())
}

func tickSpinner() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg {
		return spinnerTickMsg{}
	})
}

type rowsLoadedMsg struct{ rows []ModRow }
type errorMsg string
type spinnerTickMsg struct{}
type actionDoneMsg struct{ message string }
type clearMessageMsg struct{}

func (m ModBrowser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case rowsLoadedMsg:
		m.rows = msg.rows
		m.loading = false
		if m.cursor >= len(m.rows) {
			m.cursor = max(len(m.rows)-1, 0)
		}
	case spinnerTickMsg:
		m.spinnerFrame = (m.spinnerFrame + 1) % len(spinnerFrames)
		if m.loading || m.busy {
			return m, tickSpinner()
		}
	case errorMsg:
		m.err = string(msg)
		m.loading = false
		m.busy = false
	case actionDoneMsg:
		m.busy = false
		m.message = msg.message
		m.loading = true
		return m, tea.Batch(
			m.loadRows(),
			tickSpinner(),
			tea.Tick(3*time.Second, func(time.Time) tea.Msg { return clearMessageMsg{} }),
		)
	case clearMessageMsg:
		m.message = ""
	}
	return m, nil
}

func (m ModBrowser) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	}
	if m.busy || m.loading {
		return m, nil
	}
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
	case " ":
		if len(m.rows) > 0 {
			m.rows[m.cursor].Selected = !m.rows[m.cursor].Selected
		}
	case "i":
		names := m.selected(func(r ModRow) bool { return r.Available })
		return m.run(names, m.actions.install, "No installable mods selected")
	case "u":
		names := m.selected(func(r ModRow) bool { return r.Installed })
		return m.run(names, m.actions.uninstall, "No installed mods selected")
	}
	return m, nil
}

func (m ModBrowser) selected(eligible func(ModRow) bool) []string {
	var names []string
	for _, r := range m.rows {
		if r.Selected && eligible(r) {
			names = append(names, r.Name)
		}
	}
	return names
}

func (m ModBrowser) run(names []string, action func([]string) string, empty string) (tea.Model, tea.Cmd) {
	if len(names) == 0 {
		m.message = empty
		return m, nil
	}
	m.busy = true
	return m, tea.Batch(tickSpinner(), func() tea.Msg {
		return actionDoneMsg{message: action(names)}
	})
}

func (m ModBrowser) loadRows() tea.Cmd {
	return func() tea.Msg {
		rows, err := m.actions.load()
		if err != nil {
			logger.Log.Errorw("Failed to load mods", zap.Error(err))
			return errorMsg(fmt.Sprintf("Failed to load mods: %v", err))
		}
		return rowsLoadedMsg{rows: rows}
	}
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

func (m ModBrowser) View() string {
	spin := spinnerFrames[m.spinnerFrame]
	busyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)

	if m.err != "" {
		return fmt.Sprintf("Error: %s\n", m.err)
	}
	if m.loading && len(m.rows) == 0 {
		return busyStyle.Render(spin+" Loading mods...") + "\n"
	}
	if m.busy {
		return busyStyle.Render(spin+" Working...") + "\n"
	}
	if len(m.rows) == 0 {
		return "No mods found. Put mod archives into resources/mods.\n"
	}

	var b strings.Builder
	b.WriteString(renderHeader())
	b.WriteString("\n")
	for i, r := range m.rows {
		b.WriteString(m.renderRow(i, r))
		b.WriteString("\n")
	}
	b.WriteString("\n" + renderFooter())
	if m.message != "" {
		b.WriteString("\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.message))
	}
	return b.String()
}

func renderHeader() string {
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1).
		Render(fmt.Sprintf("  %-40s %-15s %-8s %-12s", "Mod", "Version", "Files", "Status"))
}

func renderFooter() string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true).
		Render("↑/k: up  ↓/j: down  space: select  i: install  u: uninstall  q: quit")
}

func (m ModBrowser) renderRow(index int, r ModRow) string {
	var statusColor string
	switch r.Status() {
	case "installed":
		statusColor = "10"
	case "available":
		statusColor = "11"
	default:
		statusColor = "9"
	}

	rowStyle := lipgloss.NewStyle().Padding(0, 1)
	if index == m.cursor {
		rowStyle = rowStyle.Background(lipgloss.Color("8")).Bold(true)
	}
	mark := " "
	if r.Selected {
		mark = "✓"
	}
	files := ""
	if r.Installed {
		files = fmt.Sprint(r.Files)
	}
	status := lipgloss.NewStyle().Foreground(lipgloss.Color(statusColor)).Render(fmt.Sprintf("%-12s", r.Status()))
	return rowStyle.Render(fmt.Sprintf("%s %-40s %-15s %-8s %s", mark, truncate(r.Name, 38), truncate(r.Version, 13), files, status))
}

func truncate(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen-3] + "..."
	}
	return s
}

// browserActions binds the browser to the mod manager of a.
func browserActions(ctx context.Context, a *app) modActions {
	return modActions{
		load: func() ([]ModRow, error) {
			root, err := a.root()
			if err != nil {
				return nil, err
			}
			return collectRows(a, root)
		},
		install: func(names []string) string {
			root, _ := a.root()
			pkgs, err := pickPackages(a, names)
			if err != nil {
				return err.Error()
			}
			ok := 0
			for _, p := range pkgs {
				if _, err := a.mods.Install(ctx, root, p, nil); err != nil {
					logger.Log.Warnw("Failed to install mod", zap.String("mod", p.Name), zap.Error(err))
					continue
				}
				ok++
			}
			return fmt.Sprintf("Installed %d/%d selected mods", ok, len(pkgs))
		},
		uninstall: func(names []string) string {
			root, _ := a.root()
			var errs []error
			for _, n := range names {
				if _, err := a.mods.Uninstall(root, n); err != nil {
					errs = append(errs, err)
				}
			}
			if err := errors.Join(errs...); err != nil {
				logger.Log.Warnw("Uninstall finished with errors", zap.Error(err))
			}
			return fmt.Sprintf("Uninstalled %d/%d selected mods", len(names)-len(errs), len(names))
		},
	}
}

func collectRows(a *app, root string) ([]ModRow, error) {
	pkgs, err := a.mods.Discover()
	if err != nil {
		return nil, err
	}
	installed, err := a.mods.Installed(root)
	if err != nil {
		return nil, err
	}

	byName := map[string]*ModRow{}
	for _, p := range pkgs {
		byName[p.Name] = &ModRow{Name: p.Name, Available: true}
	}
	for name, rec := range installed {
		r, ok := byName[name]
		if !ok {
			r = &ModRow{Name: name}
			byName[name] = r
		}
		r.Installed = true
		r.Version = rec.Version
		r.Files = len(rec.Files)
	}

	rows := make([]ModRow, 0, len(byName))
	for _, r := range byName {
		rows = append(rows, *r)
	}
	sort.Slice(rows, func(i, j int) bool {
		return strings.ToLower(rows[i].Name) < strings.ToLower(rows[j].Name)
	})
	return rows, nil
}

func runModBrowser(ctx context.Context, a *app) error {
	if _, err := a.root(); err != nil {
		return err
	}
	if _, err := a.coord.Close(true); err != nil {
		return err
	}
	p := tea.NewProgram(newModBrowser(browserActions(ctx, a)), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
