package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions
var (
	// ErrLoadFailure matches every failure to read or parse the source
	ErrLoadFailure = errors.New("load failure")

	// ErrEmptyDataset indicates no valid rows survived loading
	ErrEmptyDataset = errors.New("empty dataset")

	// ErrInvalidCSV indicates the CSV source format is invalid
	ErrInvalidCSV = errors.New("invalid CSV format")

	// ErrInvalidRow indicates a row is malformed
	ErrInvalidRow = errors.New("invalid row")

	// ErrFileNotFound indicates the file doesn't exist
	ErrFileNotFound = errors.New("file not found")

	// ErrBadStatus indicates a remote source answered with a non-2xx status
	ErrBadStatus = errors.New("unexpected HTTP status")
)

// Kind is the user-facing failure class of an error
type Kind int

const (
	KindNone Kind = iota
	KindLoadFailure
	KindEmptyDataset
)

// String returns the kind name used in logs
func (k Kind) String() string {
	switch k {
	case KindLoadFailure:
		return "load_failure"
	case KindEmptyDataset:
		return "empty_dataset"
	default:
		return "none"
	}
}

// KindOf classifies err. Anything that is neither an empty dataset nor nil
// is treated as a load failure.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrEmptyDataset):
		return KindEmptyDataset
	default:
		return KindLoadFailure
	}
}

// LoadError wraps errors with additional context
type LoadError struct {
	// Op is the operation that failed
	Op string

	// Source is the path or URL being loaded
	Source string

	// LineNumber is the line where the error occurred
	LineNumber int

	// Err is the underlying error
	Err error
}

// Error implements the error interface
func (e *LoadError) Error() string {
	if e.LineNumber > 0 {
		return fmt.Sprintf("%s: %s:%d: %v", e.Op, e.Source, e.LineNumber, e.Err)
	}
	if e.Source != "" {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Source, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *LoadError) Unwrap() error {
	return e.Err
}

// Is makes every LoadError match ErrLoadFailure
func (e *LoadError) Is(target error) bool {
	return target == ErrLoadFailure
}

// NewLoadError creates a new LoadError
func NewLoadError(op, source string, lineNumber int, err error) *LoadError {
	return &LoadError{
		Op:         op,
		Source:     source,
		LineNumber: lineNumber,
		Err:        err,
	}
}

// EmptyDatasetError reports that nothing is left to draw.
// RowsRead distinguishes an empty source from one whose rows were all invalid.
type EmptyDatasetError struct {
	Source   string
	RowsRead int
}

// Error implements the error interface
func (e *EmptyDatasetError) Error() string {
	if e.RowsRead == 0 {
		return fmt.Sprintf("%s: no rows found", e.Source)
	}
	return fmt.Sprintf("%s: no valid rows after cleaning (%d read)", e.Source, e.RowsRead)
}

// Is makes every EmptyDatasetError match ErrEmptyDataset
func (e *EmptyDatasetError) Is(target error) bool {
	return target == ErrEmptyDataset
}

// NoRows reports whether the source had no data rows at all
func (e *EmptyDatasetError) NoRows() bool {
	return e.RowsRead == 0
}

// RowWarning represents a rejected row. It is a diagnostic, not a failure.
type RowWarning struct {
	Source  string
	Line    int
	Field   string
	Value   string
	Message string
}

// Error implements the error interface
func (e *RowWarning) Error() string {
	return fmt.Sprintf("row discarded: %s:%d: field=%s, value=%q, message=%s",
		e.Source, e.Line, e.Field, e.Value, e.Message)
}

// Unwrap lets errors.Is(w, ErrInvalidRow) succeed
func (e *RowWarning) Unwrap() error {
	return ErrInvalidRow
}

// NewRowWarning creates a new RowWarning
func NewRowWarning(source string, line int, field, value, message string) *RowWarning {
	return &RowWarning{
		Source:  source,
		Line:    line,
		Field:   field,
		Value:   value,
		Message: message,
	}
}
