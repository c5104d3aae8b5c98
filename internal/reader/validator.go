package reader

import (
	"strings"

	"github.com/zuhrulumam/mortchart/internal/errors"
)

// validateHeaders validates CSV header fields.
// Column names are free text (the source files carry accents and spaces)
// and may repeat, so only a missing header row is rejected.
func validateHeaders(headers []string) error {
	if len(headers) == 0 {
		return errors.ErrInvalidCSV
	}
	return nil
}

// DuplicateColumns returns each non-blank column name that appears more than
// once, in first-seen order. Row lookups resolve such names to the last column.
func DuplicateColumns(headers []string) []string {
	seen := make(map[string]int, len(headers))
	var dups []string
	for _, header := range headers {
		name := strings.TrimSpace(header)
		if name == "" {
			continue
		}
		seen[name]++
		if seen[name] == 2 {
			dups = append(dups, name)
		}
	}
	return dups
}

// MissingColumns returns the required column names absent from headers
func MissingColumns(headers []string, required ...string) []string {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}

	var missing []string
	for _, name := range required {
		if !present[name] {
			missing = append(missing, name)
		}
	}
	return missing
}
