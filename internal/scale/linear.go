package scale

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DomainHeadroom stretches the top of the count domain past the largest
// value so the longest bar never touches the edge.
const DomainHeadroom = 1.1

// DefaultTickCount is the approximate number of axis ticks
const DefaultTickCount = 10

var (
	e10 = math.Sqrt(50)
	e5  = math.Sqrt(10)
	e2  = math.Sqrt(2)
)

// Linear maps a continuous domain onto a continuous range
type Linear struct {
	d0, d1 float64
	r0, r1 float64
}

// NewLinear returns a scale mapping [d0, d1] onto [r0, r1]
func NewLinear(d0, d1, r0, r1 float64) *Linear {
	return &Linear{d0: d0, d1: d1, r0: r0, r1: r1}
}

// CountScale returns the scale for bar lengths: [0, max*1.1] onto [0, width]
func CountScale(max, width float64) *Linear {
	return NewLinear(0, max*DomainHeadroom, 0, width)
}

// Domain returns the input interval
func (l *Linear) Domain() (float64, float64) {
	return l.d0, l.d1
}

// Range returns the output interval
func (l *Linear) Range() (float64, float64) {
	return l.r0, l.r1
}

// Map converts a domain value to a range value. A collapsed domain maps
// every value to the start of the range.
func (l *Linear) Map(v float64) float64 {
	span := l.d1 - l.d0
	if span == 0 || math.IsNaN(span) {
		return l.r0
	}
	return l.r0 + (v-l.d0)/span*(l.r1-l.r0)
}

// Ticks returns round values spanning the domain, roughly count of them
func (l *Linear) Ticks(count int) []float64 {
	start, stop := l.d0, l.d1
	if start == stop {
		return []float64{start}
	}

	reverse := stop < start
	if reverse {
		start, stop = stop, start
	}

	i1, i2, inc := tickSpec(start, stop, float64(count))
	if i2 < i1 || math.IsInf(inc, 0) || math.IsNaN(inc) {
		return nil
	}

	n := int(i2-i1) + 1
	ticks := make([]float64, n)
	for i := 0; i < n; i++ {
		if inc < 0 {
			ticks[i] = (i1 + float64(i)) / -inc
		} else {
			ticks[i] = (i1 + float64(i)) * inc
		}
	}

	if reverse {
		for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
			ticks[i], ticks[j] = ticks[j], ticks[i]
		}
	}
	return ticks
}

// TickFormat returns a formatter with thousands grouping and just enough
// fraction digits for the tick step.
func (l *Linear) TickFormat(count int) func(float64) string {
	digits := 0
	start, stop := l.d0, l.d1
	if stop < start {
		start, stop = stop, start
	}
	if start != stop {
		if _, _, inc := tickSpec(start, stop, float64(count)); inc < 0 {
			digits = int(math.Ceil(math.Log10(-inc) - 1e-9))
		}
	}

	p := message.NewPrinter(language.English)
	return func(v float64) string {
		return p.Sprintf("%v", number.Decimal(v, number.Scale(digits)))
	}
}

// tickSpec picks a 1, 2 or 5 times power-of-ten increment. A negative
// increment means the inverse, which keeps small steps exact.
func tickSpec(start, stop, count float64) (i1, i2, inc float64) {
	step := (stop - start) / math.Max(0, count)
	power := math.Floor(math.Log10(step))
	err := step / math.Pow(10, power)

	factor := 1.0
	switch {
	case err >= e10:
		factor = 10
	case err >= e5:
		factor = 5
	case err >= e2:
		factor = 2
	}

	if power < 0 {
		inc = math.Pow(10, -power) / factor
		i1 = math.Round(start * inc)
		i2 = math.Round(stop * inc)
		if i1/inc < start {
			i1++
		}
		if i2/inc > stop {
			i2--
		}
		inc = -inc
	} else {
		inc = math.Pow(10, power) * factor
		i1 = math.Round(start / inc)
		i2 = math.Round(stop / inc)
		if i1*inc < start {
			i1++
		}
		if i2*inc > stop {
			i2--
		}
	}

	if i2 < i1 && 0.5 <= count && count < 2 {
		return tickSpec(start, stop, count*2)
	}
	return i1, i2, inc
}
