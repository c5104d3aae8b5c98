package scale

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountScale_Headroom(t *testing.T) {
	tests := []struct {
		max  float64
		want float64
	}{
		{200, 220},
		{300, 330},
		{1, 1.1},
	}

	for _, tt := range tests {
		s := CountScale(tt.max, 500)
		d0, d1 := s.Domain()
		assert.Equal(t, 0.0, d0)
		assert.InDelta(t, tt.want, d1, 1e-9)
	}
}

func TestLinear_Map(t *testing.T) {
	s := CountScale(300, 660)

	assert.InDelta(t, 0, s.Map(0), 1e-9)
	assert.InDelta(t, 600, s.Map(300), 1e-9)
	assert.InDelta(t, 300, s.Map(150), 1e-9)
}

func TestLinear_CollapsedDomain(t *testing.T) {
	s := CountScale(0, 400)

	assert.Equal(t, 0.0, s.Map(0))
	assert.Equal(t, []float64{0}, s.Ticks(DefaultTickCount))
}

func TestLinear_Ticks(t *testing.T) {
	tests := []struct {
		name string
		d1   float64
		want []float64
	}{
		{"330", 330, []float64{0, 50, 100, 150, 200, 250, 300}},
		{"220", 220, []float64{0, 20, 40, 60, 80, 100, 120, 140, 160, 180, 200, 220}},
		{"1.1", 1.1, []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1, 1.1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewLinear(0, tt.d1, 0, 100).Ticks(DefaultTickCount)
			require.Len(t, got, len(tt.want))
			for i := range got {
				assert.InDelta(t, tt.want[i], got[i], 1e-9)
			}
		})
	}
}

func TestLinear_TickFormat(t *testing.T) {
	format := NewLinear(0, 11000, 0, 100).TickFormat(DefaultTickCount)
	assert.Equal(t, "1,000", format(1000))
	assert.Equal(t, "0", format(0))

	fine := NewLinear(0, 1.1, 0, 100).TickFormat(DefaultTickCount)
	assert.Equal(t, "0.5", fine(0.5))
}

func TestBand_EveryLabelHasPosition(t *testing.T) {
	labels := []string{"Cancer", "Heart", "Flu", "Stroke"}
	b := NewBand(labels, 0, 540, DefaultPadding)

	for _, label := range labels {
		y, ok := b.Map(label)
		assert.True(t, ok, label)
		assert.False(t, math.IsNaN(y))
		assert.GreaterOrEqual(t, y, 0.0)
		assert.LessOrEqual(t, y+b.Bandwidth(), 540.0)
	}

	_, ok := b.Map("Unknown")
	assert.False(t, ok)
}

func TestBand_Geometry(t *testing.T) {
	b := NewBand([]string{"Cancer", "Heart"}, 0, 540, DefaultPadding)

	step := 540 / 2.1
	assert.InDelta(t, step, b.Step(), 1e-9)
	assert.InDelta(t, step*0.9, b.Bandwidth(), 1e-9)

	y0, _ := b.Map("Cancer")
	y1, _ := b.Map("Heart")
	assert.InDelta(t, step*0.1, y0, 1e-9)
	assert.InDelta(t, y0+step, y1, 1e-9)
}

func TestBand_DeduplicatesInOrder(t *testing.T) {
	b := NewBand([]string{"B", "A", "B", "C"}, 0, 100, DefaultPadding)
	assert.Equal(t, []string{"B", "A", "C"}, b.Domain())
}

func TestBand_Empty(t *testing.T) {
	b := NewBand(nil, 0, 100, DefaultPadding)
	assert.Empty(t, b.Domain())
	_, ok := b.Map("x")
	assert.False(t, ok)
}
