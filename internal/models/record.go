package models

// Row represents a single raw CSV row with its metadata.
// Fields are untyped strings; a Row never reaches the chart.
type Row struct {
	// LineNumber is the original line number in the CSV source (1-indexed, header is line 1)
	LineNumber int

	// Source is the base name of the CSV file or URL the row came from
	Source string

	// Data contains the parsed CSV fields
	Data []string

	// Headers contains the column names from the header row
	Headers []string
}

// NewRow creates a new Row instance
func NewRow(lineNumber int, source string, data []string, headers []string) *Row {
	return &Row{
		LineNumber: lineNumber,
		Source:     source,
		Data:       data,
		Headers:    headers,
	}
}

// GetField returns the value at the specified column index
// Returns empty string if index is out of bounds
func (r *Row) GetField(index int) string {
	if index < 0 || index >= len(r.Data) {
		return ""
	}
	return r.Data[index]
}

// Lookup returns the value for the named column and whether the row carries it.
// A short (ragged) row reports false for columns past its last field. When a
// header repeats a name the last such column wins.
func (r *Row) Lookup(columnName string) (string, bool) {
	for i := len(r.Headers) - 1; i >= 0; i-- {
		if r.Headers[i] == columnName {
			if i >= len(r.Data) {
				return "", false
			}
			return r.Data[i], true
		}
	}
	return "", false
}

// GetFieldByName returns the value for the specified column name
// Returns empty string if column name not found
func (r *Row) GetFieldByName(columnName string) string {
	v, _ := r.Lookup(columnName)
	return v
}

// Map returns the row as a header-keyed map, for diagnostics.
func (r *Row) Map() map[string]string {
	m := make(map[string]string, len(r.Headers))
	for i, h := range r.Headers {
		m[h] = r.GetField(i)
	}
	return m
}

// Record is one validated cause-of-mortality entry.
// Only the validation step constructs Records; an invalid row never becomes one.
type Record struct {
	// Cause is the mortality cause label, never empty
	Cause string

	// PatientCount is finite and non-negative
	PatientCount float64

	// LineNumber is the source line, kept for stable ordering and diagnostics
	LineNumber int
}
