package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var errInterrupted = errors.New("interrupted")

// taskFunc is the body of a task. ctx is cancelled when the user interrupts it.
type taskFunc func(ctx context.Context, report func(string)) error

// taskEvent is a status line or the final outcome of a background task.
type taskEvent struct {
	status string
	done   bool
	err    error
}

// taskModel shows a spinner with the latest status line while a task runs.
type taskModel struct {
	spinner spinner.Model
	title   string
	status  string
	events  chan taskEvent
	ctx     context.Context
	cancel  context.CancelFunc
	run     taskFunc

	done bool
	err  error
}

func newTaskModel(ctx context.Context, title string, run taskFunc) taskModel {
	ctx, cancel := context.WithCancel(ctx)
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return taskModel{
		spinner: s,
		title:   title,
		status:  "Starting...",
		events:  make(chan taskEvent, 16),
		ctx:     ctx,
		cancel:  cancel,
		run:     run,
	}
}

func (m taskModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.start(), m.waitForActivity())
}

func (m taskModel) start() tea.Cmd {
	return func() tea.Msg {
		go func() {
			err := m.run(m.ctx, func(s string) {
				select {
				case m.events <- taskEvent{status: s}:
				default:
				}
			})
			m.events <- taskEvent{done: true, err: err}
		}()
		return nil
	}
}

func (m taskModel) waitForActivity() tea.Cmd {
	return func() tea.Msg {
		return <-m.events
	}
}

func (m taskModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.cancel()
			m.err = errInterrupted
			return m, tea.Quit
		}
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case taskEvent:
		if msg.done {
			m.cancel()
			m.done = true
			m.err = msg.err
			return m, tea.Quit
		}
		m.status = msg.status
		return m, m.waitForActivity()
	}
	return m, nil
}

func (m taskModel) View() string {
	symbol := m.spinner.View()
	if m.done {
		if m.err != nil {
			symbol = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Render("✗")
		} else {
			symbol = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render("✓")
		}
	}
	return fmt.Sprintf("\n %s %s  %s\n", symbol, lipgloss.NewStyle().Bold(true).Render(m.title), m.status)
}

// runTask runs fn behind a spinner, or with plain status lines when plain is set.
// Interrupting the spinner cancels the context passed to fn.
func runTask(ctx context.Context, title string, plain bool, fn taskFunc) error {
	if plain {
		fmt.Println(title)
		return fn(ctx, func(s string) { fmt.Println("  " + s) })
	}
	final, err := tea.NewProgram(newTaskModel(ctx, title, fn)).Run()
	if err != nil {
		return err
	}
	return final.(taskModel).err
}
