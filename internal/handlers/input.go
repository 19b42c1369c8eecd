package handlers

import (
	"errors"
	"strings"
)

// validateInput enforces that a research request carries exactly one of
// a free-text prompt or a symbol list.
func validateInput(prompt string, symbols []string) error {
	hasPrompt := strings.TrimSpace(prompt) != ""
	hasSymbols := len(symbols) > 0
	switch {
	case hasPrompt && hasSymbols:
		return errors.New("provide either prompt or symbols, not both")
	case !hasPrompt && !hasSymbols:
		return errors.New("either prompt or symbols is required")
	}
	return nil
}

// normalizeSymbols trims, uppercases, and drops empty entries.
func normalizeSymbols(in []string) []string {
	var out []string
	for _, s := range in {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
