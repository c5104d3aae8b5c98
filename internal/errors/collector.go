package errors

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zuhrulumam/mortchart/internal/models"
)

// Collector collects and aggregates diagnostics during a load or render
type Collector struct {
	// entries stores collected diagnostics, capped at maxEntries
	entries []Entry

	// mu protects entries and counters
	mu sync.RWMutex

	// maxEntries is the maximum number of entries to keep (0 = unlimited)
	maxEntries int

	// total counts every Add, including entries dropped by the cap
	total int

	// totalProcessed tracks rows seen by the validator
	totalProcessed uint64
}

// Entry represents a single diagnostic with context
type Entry struct {
	Error     error
	Row       *models.Row
	Timestamp time.Time
	Category  Category
	Severity  Severity
}

// Category categorizes diagnostics
type Category string

const (
	CategoryValidation Category = "VALIDATION"
	CategoryIO         Category = "IO"
	CategoryRender     Category = "RENDER"
	CategoryTimeout    Category = "TIMEOUT"
	CategoryUnknown    Category = "UNKNOWN"
)

// Severity indicates diagnostic severity
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// CollectorConfig holds configuration for the collector
type CollectorConfig struct {
	// MaxEntries is the maximum number of entries to store (0 = unlimited).
	// Entries past the cap are still counted.
	MaxEntries int
}

// NewCollector creates a new collector
func NewCollector(config CollectorConfig) *Collector {
	return &Collector{
		entries:    make([]Entry, 0),
		maxEntries: config.MaxEntries,
	}
}

// Add records a diagnostic. It reports whether the entry was stored.
func (c *Collector) Add(err error, row *models.Row) bool {
	if err == nil {
		return false
	}
	return c.AddWithCategory(err, row, categorize(err))
}

// AddWithCategory records a diagnostic with an explicit category
func (c *Collector) AddWithCategory(err error, row *models.Row, category Category) bool {
	if err == nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.total++
	if c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		return false
	}

	c.entries = append(c.entries, Entry{
		Error:     err,
		Row:       row,
		Timestamp: time.Now(),
		Category:  category,
		Severity:  severityOf(err),
	})

	return true
}

// IncrementProcessed increments the total processed count
func (c *Collector) IncrementProcessed() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalProcessed++
}

// Entries returns a copy of the stored diagnostics
func (c *Collector) Entries() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Entry, len(c.entries))
	copy(out, c.entries)

	return out
}

// Warnings returns the stored row warnings in the order they were added
func (c *Collector) Warnings() []*RowWarning {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []*RowWarning
	for _, e := range c.entries {
		var w *RowWarning
		if errors.As(e.Error, &w) {
			out = append(out, w)
		}
	}
	return out
}

// ByCategory returns entries grouped by category
func (c *Collector) ByCategory() map[Category][]Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	grouped := make(map[Category][]Entry)
	for _, entry := range c.entries {
		grouped[entry.Category] = append(grouped[entry.Category], entry)
	}

	return grouped
}

// HasEntries returns true if anything was collected
func (c *Collector) HasEntries() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.total > 0
}

// Count returns the number of diagnostics added, including dropped ones
func (c *Collector) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.total
}

// Rate returns diagnostics per processed row (0.0-1.0)
func (c *Collector) Rate() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.totalProcessed == 0 {
		return 0
	}
	return float64(c.total) / float64(c.totalProcessed)
}

// Clear clears all collected diagnostics
func (c *Collector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make([]Entry, 0)
	c.total = 0
	c.totalProcessed = 0
}

// Summary returns aggregated statistics
func (c *Collector) Summary() Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	summary := Summary{
		Total:          c.total,
		Stored:         len(c.entries),
		TotalProcessed: c.totalProcessed,
		ByCategory:     make(map[Category]int),
		BySeverity:     make(map[Severity]int),
	}
	if c.totalProcessed > 0 {
		summary.Rate = float64(c.total) / float64(c.totalProcessed)
	}

	for _, entry := range c.entries {
		summary.ByCategory[entry.Category]++
		summary.BySeverity[entry.Severity]++
	}

	return summary
}

// Summary provides aggregated diagnostic statistics
type Summary struct {
	Total          int
	Stored         int
	TotalProcessed uint64
	Rate           float64
	ByCategory     map[Category]int
	BySeverity     map[Severity]int
}

// String returns a string representation of the summary
func (s Summary) String() string {
	return fmt.Sprintf(
		"Diagnostics: %d/%d rows (%.1f%%), stored: %d",
		s.Total,
		s.TotalProcessed,
		s.Rate*100,
		s.Stored,
	)
}

func categorize(err error) Category {
	var w *RowWarning
	switch {
	case errors.As(err, &w), errors.Is(err, ErrInvalidRow):
		return CategoryValidation
	case errors.Is(err, context.DeadlineExceeded):
		return CategoryTimeout
	case errors.Is(err, ErrLoadFailure), errors.Is(err, ErrFileNotFound):
		return CategoryIO
	default:
		return CategoryUnknown
	}
}

func severityOf(err error) Severity {
	switch {
	case errors.Is(err, ErrInvalidRow):
		return SeverityLow
	case errors.Is(err, ErrLoadFailure), errors.Is(err, context.Canceled):
		return SeverityHigh
	default:
		return SeverityMedium
	}
}
