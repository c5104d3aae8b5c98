package models

import (
	"sort"
)

// Dataset is an ordered sequence of valid Records, sorted by PatientCount
// descending with ties kept in source order.
type Dataset struct {
	Records []Record
}

// NewDataset sorts records and wraps them. The input slice is not modified.
func NewDataset(records []Record) Dataset {
	sorted := make([]Record, len(records))
	copy(sorted, records)

	// Records may arrive out of order from concurrent validation, so the
	// line number is the tie-break rather than arrival order.
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].PatientCount != sorted[j].PatientCount {
			return sorted[i].PatientCount > sorted[j].PatientCount
		}
		return sorted[i].LineNumber < sorted[j].LineNumber
	})

	return Dataset{Records: sorted}
}

// Len returns the number of records
func (d Dataset) Len() int {
	return len(d.Records)
}

// IsEmpty reports whether the dataset has no records
func (d Dataset) IsEmpty() bool {
	return len(d.Records) == 0
}

// Max returns the largest patient count, or 0 for an empty dataset
func (d Dataset) Max() float64 {
	max := 0.0
	for i, r := range d.Records {
		if i == 0 || r.PatientCount > max {
			max = r.PatientCount
		}
	}
	return max
}

// Causes returns the cause labels in dataset order, duplicates removed
// (first occurrence wins).
func (d Dataset) Causes() []string {
	seen := make(map[string]bool, len(d.Records))
	causes := make([]string, 0, len(d.Records))
	for _, r := range d.Records {
		if seen[r.Cause] {
			continue
		}
		seen[r.Cause] = true
		causes = append(causes, r.Cause)
	}
	return causes
}

// Total returns the sum of all patient counts
func (d Dataset) Total() float64 {
	total := 0.0
	for _, r := range d.Records {
		total += r.PatientCount
	}
	return total
}
