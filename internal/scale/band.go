package scale

import "math"

// DefaultPadding is the inner and outer padding of the cause axis
const DefaultPadding = 0.1

// Band divides a continuous range into equal bands, one per label.
// Labels keep the order of their first appearance.
type Band struct {
	domain       []string
	index        map[string]int
	r0, r1       float64
	paddingInner float64
	paddingOuter float64
	align        float64

	step      float64
	bandwidth float64
	start     float64
}

// NewBand returns a band scale over labels spanning [r0, r1] with equal
// inner and outer padding.
func NewBand(labels []string, r0, r1, padding float64) *Band {
	b := &Band{
		index:        make(map[string]int, len(labels)),
		r0:           r0,
		r1:           r1,
		paddingInner: math.Min(1, math.Max(0, padding)),
		paddingOuter: math.Max(0, padding),
		align:        0.5,
	}

	for _, label := range labels {
		if _, ok := b.index[label]; ok {
			continue
		}
		b.index[label] = len(b.domain)
		b.domain = append(b.domain, label)
	}

	b.rescale()
	return b
}

func (b *Band) rescale() {
	n := float64(len(b.domain))
	start, stop := b.r0, b.r1
	reverse := stop < start
	if reverse {
		start, stop = stop, start
	}

	b.step = (stop - start) / math.Max(1, n-b.paddingInner+b.paddingOuter*2)
	start += (stop - start - b.step*(n-b.paddingInner)) * b.align
	b.bandwidth = b.step * (1 - b.paddingInner)
	b.start = start

	if reverse {
		b.start = start + b.step*(n-1)
		b.step = -b.step
	}
}

// Domain returns the distinct labels in band order
func (b *Band) Domain() []string {
	out := make([]string, len(b.domain))
	copy(out, b.domain)
	return out
}

// Range returns the output interval
func (b *Band) Range() (float64, float64) {
	return b.r0, b.r1
}

// Map returns the start of label's band; ok is false for unknown labels
func (b *Band) Map(label string) (float64, bool) {
	i, ok := b.index[label]
	if !ok {
		return math.NaN(), false
	}
	return b.start + b.step*float64(i), true
}

// Bandwidth returns the thickness of each band
func (b *Band) Bandwidth() float64 {
	return b.bandwidth
}

// Step returns the distance between the starts of adjacent bands
func (b *Band) Step() float64 {
	return math.Abs(b.step)
}
