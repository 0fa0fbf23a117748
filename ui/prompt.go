package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/erikgeiser/promptkit"
	"github.com/erikgeiser/promptkit/confirmation"
	"github.com/erikgeiser/promptkit/selection"
	"github.com/erikgeiser/promptkit/textinput"
)

var (
	// ErrAborted is returned when the user cancels a prompt.
	ErrAborted = errors.New("cancelled")
	// ErrNeedsInput is returned in non-interactive mode when a prompt has no default to fall back on.
	ErrNeedsInput = errors.New("input required but running non-interactively")
)

// Prompter asks the user questions. With NonInteractive set, every question is answered from its default.
type Prompter struct {
	NonInteractive bool
}

// Confirm asks a yes/no question.
func (p *Prompter) Confirm(question string, def bool) (bool, error) {
	if p.NonInteractive {
		return def, nil
	}
	value := confirmation.No
	if def {
		value = confirmation.Yes
	}
	ok, err := confirmation.New(question, value).RunPrompt()
	return ok, translate(err)
}

// Input asks for a line of text. An empty answer returns def; with no def an answer is required.
func (p *Prompter) Input(question, def string) (string, error) {
	if p.NonInteractive {
		if def == "" {
			return "", fmt.Errorf("%w: %s", ErrNeedsInput, question)
		}
		return def, nil
	}
	in := textinput.New(question)
	in.InitialValue = def
	in.Validate = func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New("value required")
		}
		return nil
	}
	answer, err := in.RunPrompt()
	if err != nil {
		return "", translate(err)
	}
	return strings.TrimSpace(answer), nil
}

// Select asks the user to pick one of choices and returns its index.
func (p *Prompter) Select(question string, choices []string) (int, error) {
	if len(choices) == 0 {
		return -1, errors.New("nothing to choose from")
	}
	if p.NonInteractive {
		if len(choices) == 1 {
			return 0, nil
		}
		return -1, fmt.Errorf("%w: %s", ErrNeedsInput, question)
	}
	sel := selection.New(question, choices)
	sel.PageSize = 10
	picked, err := sel.RunPrompt()
	if err != nil {
		return -1, translate(err)
	}
	for i, c := range choices {
		if c == picked {
			return i, nil
		}
	}
	return -1, ErrAborted
}

// Pause waits for Enter so a console window opened by double-click stays readable.
func (p *Prompter) Pause() {
	if p.NonInteractive {
		return
	}
	fmt.Print(Dim("Press Enter to continue..."))
	_, _ = fmt.Scanln()
}

func translate(err error) error {
	if errors.Is(err, promptkit.ErrAborted) {
		return ErrAborted
	}
	return err
}
