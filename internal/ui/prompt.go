package ui

import (
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"golang.org/x/term"
)

// CanPrompt reports whether stdin is an interactive terminal. Piped
// invocations cannot answer prompts and must pass --yes instead.
func CanPrompt() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Confirm asks a yes/no question on the terminal.
func Confirm(message string, def bool) (bool, error) {
	answer := def
	if err := survey.AskOne(&survey.Confirm{Message: message, Default: def}, &answer); err != nil {
		return false, fmt.Errorf("ui: prompt: %w", err)
	}
	return answer, nil
}
