// Package prompt asks the user interactive questions.
package prompt

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// ConfirmFunc runs a confirmation dialog and stores the answer in value.
type ConfirmFunc func(question string, value *bool) error

// Terminal asks questions through huh forms on the controlling terminal.
type Terminal struct {
	interactive bool
	confirm     ConfirmFunc
}

// NewTerminal creates a Terminal. Questions are only asked when interactive is
// set and stdin is a terminal; otherwise the default answer is returned.
func NewTerminal(interactive bool) *Terminal {
	return &Terminal{
		interactive: interactive && term.IsTerminal(int(os.Stdin.Fd())),
		confirm:     runConfirm,
	}
}

// NewTerminalWithConfirm creates an interactive Terminal with a custom dialog.
// This is useful for testing.
func NewTerminalWithConfirm(confirm ConfirmFunc) *Terminal {
	return &Terminal{interactive: true, confirm: confirm}
}

// Interactive reports whether questions are actually asked.
func (t *Terminal) Interactive() bool {
	return t.interactive
}

// Confirm asks a yes/no question. Aborting the dialog yields the default.
func (t *Terminal) Confirm(question string, defaultAnswer bool) (bool, error) {
	if !t.interactive {
		return defaultAnswer, nil
	}

	value := defaultAnswer
	if err := t.confirm(question, &value); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return defaultAnswer, nil
		}
		return false, fmt.Errorf("failed to ask question: %w", err)
	}
	return value, nil
}

func runConfirm(question string, value *bool) error {
	return huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(question).
			Affirmative("Yes.").
			Negative("No.").
			Value(value),
	)).Run()
}
