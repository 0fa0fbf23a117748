package cmd

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestTaskModelStatusAndFinish(t *testing.T) {
	m := newTaskModel(context.Background(), "Starting SPT", func(context.Context, func(string)) error { return nil })

	next, cmd := m.Update(taskEvent{status: "Waiting for the server..."})
	m = next.(taskModel)
	if m.status != "Waiting for the server..." || cmd == nil {
		t.Fatalf("status = %q", m.status)
	}
	if !strings.Contains(m.View(), "Starting SPT") {
		t.Fatalf("view = %q", m.View())
	}

	boom := errors.New("boom")
	next, cmd = m.Update(taskEvent{done: true, err: boom})
	m = next.(taskModel)
	if !m.done || !errors.Is(m.err, boom) || cmd == nil {
		t.Fatalf("final model = %+v", m)
	}
	if !strings.Contains(m.View(), "✗") {
		t.Fatalf("failed task should render a cross: %q", m.View())
	}
}

func TestRunTaskPlain(t *testing.T) {
	var reported []string
	err := runTask(context.Background(), "work", true, func(_ context.Context, report func(string)) error {
		report("step one")
		reported = append(reported, "step one")
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(reported) != 1 {
		t.Fatalf("reported = %v", reported)
	}
}

func TestTaskInterruptCancelsContext(t *testing.T) {
	m := newTaskModel(context.Background(), "Starting SPT", func(ctx context.Context, _ func(string)) error {
		<-ctx.Done()
		return ctx.Err()
	})
	ctx := m.ctx

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = next.(taskModel)
	if cmd == nil {
		t.Fatal("interrupt should quit the program")
	}
	if !errors.Is(m.err, errInterrupted) {
		t.Fatalf("err = %v", m.err)
	}
	if !errors.Is(ctx.Err(), context.Canceled) {
		t.Fatalf("task context not cancelled: %v", ctx.Err())
	}
}
