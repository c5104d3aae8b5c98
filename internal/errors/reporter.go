package errors

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// Reporter formats and reports collected diagnostics
type Reporter struct {
	collector *Collector
	writer    io.Writer
}

// NewReporter creates a new reporter
func NewReporter(collector *Collector, writer io.Writer) *Reporter {
	return &Reporter{
		collector: collector,
		writer:    writer,
	}
}

// PrintSummary prints a summary of all diagnostics
func (r *Reporter) PrintSummary() {
	summary := r.collector.Summary()

	fmt.Fprintf(r.writer, "\n")
	fmt.Fprintf(r.writer, "========================================\n")
	fmt.Fprintf(r.writer, "Discarded Rows\n")
	fmt.Fprintf(r.writer, "========================================\n")
	fmt.Fprintf(r.writer, "Total Discarded:   %d\n", summary.Total)
	fmt.Fprintf(r.writer, "Rows Checked:      %d\n", summary.TotalProcessed)
	fmt.Fprintf(r.writer, "Discard Rate:      %.2f%%\n", summary.Rate*100)
	fmt.Fprintf(r.writer, "\n")

	if len(summary.ByCategory) > 0 {
		fmt.Fprintf(r.writer, "By Category:\n")
		for _, category := range sortedKeys(summary.ByCategory) {
			fmt.Fprintf(r.writer, "  %-15s: %d\n", category, summary.ByCategory[category])
		}
		fmt.Fprintf(r.writer, "\n")
	}

	fmt.Fprintf(r.writer, "========================================\n")
}

// PrintDetailed prints one block per stored diagnostic, up to max (0 = all)
func (r *Reporter) PrintDetailed(max int) {
	entries := r.collector.Entries()

	if len(entries) == 0 {
		fmt.Fprintf(r.writer, "No rows discarded.\n")
		return
	}

	fmt.Fprintf(r.writer, "\n")
	fmt.Fprintf(r.writer, "========================================\n")
	fmt.Fprintf(r.writer, "Discarded Row Details\n")
	fmt.Fprintf(r.writer, "========================================\n")

	count := len(entries)
	if max > 0 && max < count {
		count = max
	}

	for i := 0; i < count; i++ {
		entry := entries[i]

		fmt.Fprintf(r.writer, "\n#%d:\n", i+1)
		fmt.Fprintf(r.writer, "  Time:      %s\n", entry.Timestamp.Format(time.RFC3339))
		fmt.Fprintf(r.writer, "  Category:  %s\n", entry.Category)

		if entry.Row != nil {
			fmt.Fprintf(r.writer, "  Source:    %s\n", entry.Row.Source)
			fmt.Fprintf(r.writer, "  Line:      %d\n", entry.Row.LineNumber)
		}

		fmt.Fprintf(r.writer, "  Reason:    %v\n", entry.Error)
	}

	if max > 0 && len(entries) > max {
		fmt.Fprintf(r.writer, "\n... and %d more\n", len(entries)-max)
	}

	fmt.Fprintf(r.writer, "\n========================================\n")
}

// PrintTopReasons prints the most common discard reasons
func (r *Reporter) PrintTopReasons(topN int) {
	warnings := r.collector.Warnings()

	if len(warnings) == 0 {
		return
	}

	// Group by field + message so values don't split identical reasons
	counts := make(map[string]int)
	for _, w := range warnings {
		counts[w.Field+": "+w.Message]++
	}

	type reasonCount struct {
		reason string
		count  int
	}

	sorted := make([]reasonCount, 0, len(counts))
	for reason, count := range counts {
		sorted = append(sorted, reasonCount{reason, count})
	}

	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].count != sorted[j].count {
			return sorted[i].count > sorted[j].count
		}
		return sorted[i].reason < sorted[j].reason
	})

	if topN > len(sorted) {
		topN = len(sorted)
	}

	fmt.Fprintf(r.writer, "\n")
	fmt.Fprintf(r.writer, "========================================\n")
	fmt.Fprintf(r.writer, "Top %d Discard Reasons\n", topN)
	fmt.Fprintf(r.writer, "========================================\n")

	for i := 0; i < topN; i++ {
		fmt.Fprintf(r.writer, "%d. (%d rows) %s\n", i+1, sorted[i].count, truncateString(sorted[i].reason, 100))
	}

	fmt.Fprintf(r.writer, "========================================\n")
}

// truncateString truncates a string to maxLen
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// FormatEntry formats a single entry on one line
func FormatEntry(entry Entry) string {
	var parts []string

	if entry.Row != nil {
		parts = append(parts, fmt.Sprintf("%s:%d", entry.Row.Source, entry.Row.LineNumber))
	}

	parts = append(parts, fmt.Sprintf("[%s]", entry.Category))
	parts = append(parts, entry.Error.Error())

	return strings.Join(parts, " ")
}

func sortedKeys(m map[Category]int) []Category {
	keys := make([]Category, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
