package processor

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/zuhrulumam/mortchart/internal/errors"
	"github.com/zuhrulumam/mortchart/internal/models"
)

// Default column names of the mortality source file
const (
	DefaultCountField = "numero_pacientes"
	DefaultLabelField = "mortalidad"
)

// Processor defines the contract for validating CSV rows
type Processor interface {
	// Process validates a single row and returns the result.
	// A discarded row is a result, not an error; errors are reserved for
	// cancellation and other conditions that stop processing.
	Process(ctx context.Context, row *models.Row) (*models.Result, error)
}

// ProcessorFunc is a function type that implements the Processor interface
type ProcessorFunc func(ctx context.Context, row *models.Row) (*models.Result, error)

// Process calls the function itself
func (f ProcessorFunc) Process(ctx context.Context, row *models.Row) (*models.Result, error) {
	return f(ctx, row)
}

// RecordValidator turns rows into typed Records
type RecordValidator struct {
	countField string
	labelField string
}

// NewRecordValidator creates a validator reading the given columns.
// Empty names fall back to the defaults.
func NewRecordValidator(countField, labelField string) *RecordValidator {
	if countField == "" {
		countField = DefaultCountField
	}
	if labelField == "" {
		labelField = DefaultLabelField
	}
	return &RecordValidator{countField: countField, labelField: labelField}
}

// CountField returns the numeric column name
func (v *RecordValidator) CountField() string { return v.countField }

// LabelField returns the label column name
func (v *RecordValidator) LabelField() string { return v.labelField }

// Process implements the Processor interface
func (v *RecordValidator) Process(ctx context.Context, row *models.Row) (*models.Result, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	start := time.Now()

	rawCount, _ := row.Lookup(v.countField)
	count, reason := ParseCount(rawCount)
	if reason != "" {
		w := errors.NewRowWarning(row.Source, row.LineNumber, v.countField, rawCount, reason)
		return models.NewDiscardedResult(row, w, time.Since(start)), nil
	}

	label, ok := row.Lookup(v.labelField)
	if !ok {
		w := errors.NewRowWarning(row.Source, row.LineNumber, v.labelField, "", "missing label")
		return models.NewDiscardedResult(row, w, time.Since(start)), nil
	}
	if label == "" {
		w := errors.NewRowWarning(row.Source, row.LineNumber, v.labelField, label, "empty label")
		return models.NewDiscardedResult(row, w, time.Since(start)), nil
	}

	record := models.Record{
		Cause:        label,
		PatientCount: count,
		LineNumber:   row.LineNumber,
	}
	return models.NewKeptResult(row, record, time.Since(start)), nil
}

// ParseCount coerces a patient count. It returns a non-empty reason when
// the value is empty, non-numeric, NaN, infinite or negative.
func ParseCount(raw string) (float64, string) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, "empty count"
	}

	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// ParseFloat reports out-of-range values as ±Inf with an error
		if math.IsInf(n, 0) {
			return 0, "count out of range"
		}
		return 0, "not a number"
	}

	switch {
	case math.IsNaN(n):
		return 0, "not a number"
	case math.IsInf(n, 0):
		return 0, "count is infinite"
	case n < 0:
		return 0, "negative count"
	}

	return n, ""
}
