package models

import (
	"time"
)

// ValidationStatus represents the outcome of validating a row
type ValidationStatus string

const (
	StatusKept      ValidationStatus = "KEPT"
	StatusDiscarded ValidationStatus = "DISCARDED"
)

// Result represents the outcome of validating a single row
type Result struct {
	// Row is the original row that was validated
	Row *Row

	// Status indicates the validation outcome
	Status ValidationStatus

	// Record is the typed record; only meaningful when Status is StatusKept
	Record Record

	// Error explains why the row was discarded
	Error error

	// ValidatedAt is when this row was validated
	ValidatedAt time.Time

	// Duration is how long validation took
	Duration time.Duration
}

// NewKeptResult creates a result for a row that produced a valid record
func NewKeptResult(row *Row, record Record, duration time.Duration) *Result {
	return &Result{
		Row:         row,
		Status:      StatusKept,
		Record:      record,
		ValidatedAt: time.Now(),
		Duration:    duration,
	}
}

// NewDiscardedResult creates a result for a rejected row
func NewDiscardedResult(row *Row, err error, duration time.Duration) *Result {
	return &Result{
		Row:         row,
		Status:      StatusDiscarded,
		Error:       err,
		ValidatedAt: time.Now(),
		Duration:    duration,
	}
}

// IsKept returns true if the row produced a record
func (r *Result) IsKept() bool {
	return r.Status == StatusKept
}

// IsDiscarded returns true if the row was rejected
func (r *Result) IsDiscarded() bool {
	return r.Status == StatusDiscarded
}

// LoadSummary represents aggregated results of one load
type LoadSummary struct {
	// Source is the path or URL that was loaded
	Source string

	// RowsRead is the number of data rows read (header excluded)
	RowsRead int

	// Kept is the number of rows that became records
	Kept int

	// Discarded is the number of rejected rows
	Discarded int

	// StartTime is when loading started
	StartTime time.Time

	// EndTime is when loading completed
	EndTime time.Time

	// Duration is the total load time
	Duration time.Duration

	// Cached is true when the dataset was served from the cache
	Cached bool
}

// NewLoadSummary creates a new LoadSummary instance
func NewLoadSummary(source string) *LoadSummary {
	return &LoadSummary{
		Source:    source,
		StartTime: time.Now(),
	}
}

// AddResult updates the summary with a new result
func (s *LoadSummary) AddResult(result *Result) {
	s.RowsRead++

	switch result.Status {
	case StatusKept:
		s.Kept++
	case StatusDiscarded:
		s.Discarded++
	}
}

// Finalize completes the summary calculation
func (s *LoadSummary) Finalize() {
	s.EndTime = time.Now()
	s.Duration = s.EndTime.Sub(s.StartTime)
}

// KeptRate returns the percentage of rows kept
func (s *LoadSummary) KeptRate() float64 {
	if s.RowsRead == 0 {
		return 0
	}
	return float64(s.Kept) / float64(s.RowsRead) * 100
}

// DiscardRate returns the percentage of rows discarded
func (s *LoadSummary) DiscardRate() float64 {
	if s.RowsRead == 0 {
		return 0
	}
	return float64(s.Discarded) / float64(s.RowsRead) * 100
}
