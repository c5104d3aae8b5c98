package errors

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/zuhrulumam/mortchart/internal/models"
)

func testRow(line int) *models.Row {
	return models.NewRow(line, "test.csv", []string{"Flu", "abc"}, []string{"mortalidad", "numero_pacientes"})
}

func TestCollector_Add(t *testing.T) {
	collector := NewCollector(CollectorConfig{})

	if !collector.Add(NewRowWarning("test.csv", 2, "numero_pacientes", "abc", "not a number"), testRow(2)) {
		t.Error("Add() should store the entry")
	}

	if collector.Count() != 1 {
		t.Errorf("expected 1 entry, got %d", collector.Count())
	}

	if !collector.HasEntries() {
		t.Error("HasEntries() returned false, want true")
	}

	if collector.Add(nil, nil) {
		t.Error("Add(nil) should be a no-op")
	}
}

func TestCollector_MaxEntries(t *testing.T) {
	collector := NewCollector(CollectorConfig{MaxEntries: 2})

	for i := 0; i < 5; i++ {
		collector.Add(fmt.Errorf("warning %d", i), testRow(i+2))
	}

	if got := len(collector.Entries()); got != 2 {
		t.Errorf("stored %d entries, want 2", got)
	}
	if got := collector.Count(); got != 5 {
		t.Errorf("Count() = %d, want 5 (dropped entries still count)", got)
	}
}

func TestCollector_Warnings(t *testing.T) {
	collector := NewCollector(CollectorConfig{})

	collector.Add(NewRowWarning("test.csv", 2, "mortalidad", "", "empty label"), testRow(2))
	collector.Add(errors.New("not a warning"), nil)
	collector.Add(NewRowWarning("test.csv", 5, "numero_pacientes", "x", "not a number"), testRow(5))

	warnings := collector.Warnings()
	if len(warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %d", len(warnings))
	}
	if warnings[0].Line != 2 || warnings[1].Line != 5 {
		t.Errorf("warnings out of order: %d, %d", warnings[0].Line, warnings[1].Line)
	}
}

func TestCollector_ByCategory(t *testing.T) {
	collector := NewCollector(CollectorConfig{})

	collector.Add(NewRowWarning("test.csv", 2, "mortalidad", "", "empty label"), nil)
	collector.Add(NewLoadError("open", "test.csv", 0, ErrFileNotFound), nil)
	collector.AddWithCategory(errors.New("bar width NaN"), nil, CategoryRender)

	byCategory := collector.ByCategory()

	if len(byCategory[CategoryValidation]) != 1 {
		t.Errorf("expected 1 validation entry, got %d", len(byCategory[CategoryValidation]))
	}
	if len(byCategory[CategoryIO]) != 1 {
		t.Errorf("expected 1 IO entry, got %d", len(byCategory[CategoryIO]))
	}
	if len(byCategory[CategoryRender]) != 1 {
		t.Errorf("expected 1 render entry, got %d", len(byCategory[CategoryRender]))
	}
}

func TestCollector_Summary(t *testing.T) {
	collector := NewCollector(CollectorConfig{})

	for i := 0; i < 10; i++ {
		collector.IncrementProcessed()
	}

	collector.Add(NewRowWarning("test.csv", 2, "mortalidad", "", "empty label"), nil)
	collector.Add(NewRowWarning("test.csv", 3, "numero_pacientes", "", "empty count"), nil)
	collector.Add(NewLoadError("open", "test.csv", 0, ErrFileNotFound), nil)

	summary := collector.Summary()

	if summary.Total != 3 {
		t.Errorf("expected 3 total, got %d", summary.Total)
	}
	if summary.TotalProcessed != 10 {
		t.Errorf("expected 10 processed, got %d", summary.TotalProcessed)
	}
	if summary.Rate != 0.3 {
		t.Errorf("expected rate 0.30, got %.2f", summary.Rate)
	}
	if summary.BySeverity[SeverityLow] != 2 || summary.BySeverity[SeverityHigh] != 1 {
		t.Errorf("unexpected severities: %v", summary.BySeverity)
	}

	t.Logf("Summary: %s", summary.String())
}

func TestCollector_Clear(t *testing.T) {
	collector := NewCollector(CollectorConfig{})

	collector.Add(errors.New("error 1"), nil)
	collector.Add(errors.New("error 2"), nil)
	collector.Clear()

	if collector.Count() != 0 {
		t.Errorf("expected 0 entries after clear, got %d", collector.Count())
	}
	if collector.HasEntries() {
		t.Error("HasEntries() returned true after clear")
	}
}

func TestCollector_ConcurrentAdd(t *testing.T) {
	collector := NewCollector(CollectorConfig{})

	const goroutines = 10
	const perGoroutine = 100

	done := make(chan bool)

	for i := 0; i < goroutines; i++ {
		go func(id int) {
			for j := 0; j < perGoroutine; j++ {
				collector.Add(fmt.Errorf("warning %d-%d", id, j), testRow(id))
				collector.IncrementProcessed()
			}
			done <- true
		}(i)
	}

	for i := 0; i < goroutines; i++ {
		<-done
	}

	if collector.Count() != goroutines*perGoroutine {
		t.Errorf("expected %d entries, got %d", goroutines*perGoroutine, collector.Count())
	}
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Category
	}{
		{"row warning", NewRowWarning("a", 1, "f", "v", "m"), CategoryValidation},
		{"invalid row sentinel", ErrInvalidRow, CategoryValidation},
		{"load error", NewLoadError("open", "a", 0, errors.New("x")), CategoryIO},
		{"file not found", ErrFileNotFound, CategoryIO},
		{"timeout", context.DeadlineExceeded, CategoryTimeout},
		{"unknown", errors.New("unknown"), CategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := categorize(tt.err); got != tt.expected {
				t.Errorf("categorize() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestSeverityOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Severity
	}{
		{"invalid row", ErrInvalidRow, SeverityLow},
		{"load error", NewLoadError("open", "a", 0, errors.New("x")), SeverityHigh},
		{"canceled", fmt.Errorf("read: %w", context.Canceled), SeverityHigh},
		{"other", errors.New("other"), SeverityMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := severityOf(tt.err); got != tt.expected {
				t.Errorf("severityOf() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestReporter(t *testing.T) {
	collector := NewCollector(CollectorConfig{})
	collector.IncrementProcessed()
	collector.IncrementProcessed()
	collector.Add(NewRowWarning("test.csv", 3, "numero_pacientes", "abc", "not a number"), testRow(3))

	var buf bytes.Buffer
	reporter := NewReporter(collector, &buf)

	reporter.PrintSummary()
	reporter.PrintDetailed(10)
	reporter.PrintTopReasons(3)

	out := buf.String()
	for _, want := range []string{"Total Discarded:   1", "Line:      3", "not a number", "Top 1 Discard Reasons"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestFormatEntry(t *testing.T) {
	entry := Entry{
		Error:    errors.New("bad"),
		Row:      testRow(7),
		Category: CategoryValidation,
	}

	if got, want := FormatEntry(entry), "test.csv:7 [VALIDATION] bad"; got != want {
		t.Errorf("FormatEntry() = %q, want %q", got, want)
	}
}

func BenchmarkCollector_Add(b *testing.B) {
	collector := NewCollector(CollectorConfig{})
	row := testRow(1)
	err := errors.New("benchmark warning")

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		collector.Add(err, row)
	}
}
