package utils

import (
	"fmt"
	"regexp"
	"strings"
)

// PanelCommandUsage is shown when /payment-link cannot be parsed
const PanelCommandUsage = "Usage: /payment-link <opportunity_id>"

var recordIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.:-]{0,63}$`)

// SplitArgsQuoted splits a command string into arguments, treating quoted
// and bracketed substrings as single arguments.
func SplitArgsQuoted(input string) []string {
	var args []string
	var current strings.Builder
	inQuotes := false
	var quoteChar rune

	flush := func() {
		if current.Len() > 0 {
			args = append(args, current.String())
			current.Reset()
		}
	}

	for _, r := range input {
		switch {
		case !inQuotes && (r == '"' || r == '\'' || r == '['):
			inQuotes = true
			quoteChar = r
			if r == '[' {
				quoteChar = ']'
			}
		case inQuotes && r == quoteChar:
			inQuotes = false
			flush()
		case !inQuotes && (r == ' ' || r == '\t'):
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()

	return args
}

// ParsePanelCommand extracts the opportunity id from /payment-link text
func ParsePanelCommand(text string) (string, error) {
	parts := SplitArgsQuoted(strings.TrimSpace(text))

	if len(parts) == 0 {
		return "", fmt.Errorf("missing opportunity id. %s", PanelCommandUsage)
	}
	if len(parts) > 1 {
		return "", fmt.Errorf("expected a single opportunity id, got %d arguments. %s", len(parts), PanelCommandUsage)
	}

	recordID := strings.TrimSpace(parts[0])
	if !IsValidRecordID(recordID) {
		return "", fmt.Errorf("invalid opportunity id '%s'", recordID)
	}
	return recordID, nil
}

// IsValidRecordID checks that id is safe to use as a record key and URL path segment
func IsValidRecordID(id string) bool {
	return recordIDPattern.MatchString(id)
}
