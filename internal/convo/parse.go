package convo

import (
	"regexp"
	"strconv"
	"strings"
)

var bareNumber = regexp.MustCompile(`^\$?\d+(?:\.\d+)?$`)

// selectionPattern matches the structured account-selection answers the UI
// sends when the user taps an option: "3", "account 3", "account:3".
var selectionPattern = regexp.MustCompile(`^(?:account[\s:#=_]*)?(\d+)$`)

// parseAmount reads a follow-up answer that should be nothing but a money
// amount, tolerating a leading $ and thousands separators.
func parseAmount(text string) (float64, bool) {
	text = strings.ReplaceAll(strings.TrimSpace(strings.ToLower(text)), ",", "")
	if !bareNumber.MatchString(text) {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimPrefix(text, "$"), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseCount reads a bare integer answer, e.g. a check count.
func parseCount(text string) (int, bool) {
	text = strings.TrimSpace(text)
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseSelection reads a structured account-selection answer and returns the
// chosen account id.
func parseSelection(text string) (int64, bool) {
	m := selectionPattern.FindStringSubmatch(strings.TrimSpace(strings.ToLower(text)))
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
