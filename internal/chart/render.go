package chart

import (
	"fmt"
	"log/slog"
	"math"

	cerrors "github.com/zuhrulumam/mortchart/internal/errors"
	"github.com/zuhrulumam/mortchart/internal/models"
	"github.com/zuhrulumam/mortchart/internal/scale"
	"github.com/zuhrulumam/mortchart/internal/tooltip"
)

// Axis titles
const (
	XLabel = "Number of Patients"
	YLabel = "Cause of Mortality"
)

// Margins around the plot area, in surface units
type Margins struct {
	Top    float64
	Right  float64
	Bottom float64
	Left   float64
}

// Options controls chart geometry
type Options struct {
	Margins   Margins
	Height    float64
	TickCount int
	BarColor  string
}

// DefaultOptions returns the standard layout
func DefaultOptions() Options {
	return Options{
		Margins:   Margins{Top: 20, Right: 30, Bottom: 40, Left: 90},
		Height:    600,
		TickCount: scale.DefaultTickCount,
		BarColor:  "steelblue",
	}
}

// Surface is a container a chart can be drawn into
type Surface interface {
	// Width is the current container width
	Width() float64

	// Clear removes any previously drawn chart
	Clear()

	// Draw paints frame; tip supplies hover content and colors
	Draw(frame *Frame, tip *tooltip.Tooltip) error
}

// Bar is one drawn rectangle
type Bar struct {
	Index  int
	Record models.Record
	X      float64
	Y      float64
	Width  float64
	Height float64
	Fill   string

	// Placed is false when the cause had no band position
	Placed bool
}

// SetFill changes the bar color; bars are tooltip highlighters
func (b *Bar) SetFill(color string) {
	b.Fill = color
}

// Tick is an axis tick at Pos (relative to the plot area)
type Tick struct {
	Pos   float64
	Label string
}

// Frame is the computed geometry of one render
type Frame struct {
	Width       float64
	Height      float64
	Margins     Margins
	InnerWidth  float64
	InnerHeight float64

	X *scale.Linear
	Y *scale.Band

	Bars   []*Bar
	XTicks []Tick
	YTicks []Tick

	XLabel string
	YLabel string
}

// BarAt returns the bar covering plot-area y, if any
func (f *Frame) BarAt(y float64) (*Bar, bool) {
	for _, b := range f.Bars {
		if b.Placed && y >= b.Y && y < b.Y+b.Height {
			return b, true
		}
	}
	return nil, false
}

// Layout computes scales, bars and ticks for a container of the given width
func Layout(width float64, ds models.Dataset, opts Options, logger *slog.Logger) (*Frame, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if ds.IsEmpty() {
		return nil, fmt.Errorf("layout: %w", cerrors.ErrEmptyDataset)
	}
	if opts.TickCount <= 0 {
		opts.TickCount = scale.DefaultTickCount
	}

	m := opts.Margins
	f := &Frame{
		Width:       width,
		Height:      opts.Height,
		Margins:     m,
		InnerWidth:  width - m.Left - m.Right,
		InnerHeight: opts.Height - m.Top - m.Bottom,
		XLabel:      XLabel,
		YLabel:      YLabel,
	}

	logger.Debug("chart dimensions",
		"container_width", f.Width,
		"container_height", f.Height,
		"width", f.InnerWidth,
		"height", f.InnerHeight)

	f.X = scale.CountScale(ds.Max(), f.InnerWidth)
	f.Y = scale.NewBand(ds.Causes(), 0, f.InnerHeight, scale.DefaultPadding)

	d0, d1 := f.X.Domain()
	logger.Debug("x scale", "max", ds.Max(), "domain", []float64{d0, d1}, "range", []float64{0, f.InnerWidth})
	logger.Debug("y scale", "domain", f.Y.Domain(), "range", []float64{0, f.InnerHeight})

	format := f.X.TickFormat(opts.TickCount)
	for _, v := range f.X.Ticks(opts.TickCount) {
		f.XTicks = append(f.XTicks, Tick{Pos: f.X.Map(v), Label: format(v)})
	}
	for _, cause := range f.Y.Domain() {
		y, _ := f.Y.Map(cause)
		f.YTicks = append(f.YTicks, Tick{Pos: y + f.Y.Bandwidth()/2, Label: cause})
	}

	f.Bars = make([]*Bar, 0, ds.Len())
	for i, rec := range ds.Records {
		bar := &Bar{
			Index:  i,
			Record: rec,
			Height: f.Y.Bandwidth(),
			Fill:   opts.BarColor,
		}

		y, ok := f.Y.Map(rec.Cause)
		if !ok {
			logger.Error("cause not found in y scale domain", "cause", rec.Cause)
		}
		bar.Y, bar.Placed = y, ok

		bar.Width = f.X.Map(rec.PatientCount)
		if math.IsNaN(bar.Width) || bar.Width < 0 {
			logger.Error("invalid bar width",
				"cause", rec.Cause,
				"count", rec.PatientCount,
				"width", bar.Width)
		}

		f.Bars = append(f.Bars, bar)
	}

	return f, nil
}

// Render clears surface and draws ds into it at the surface's current width
func Render(s Surface, ds models.Dataset, opts Options, tip *tooltip.Tooltip, logger *slog.Logger) (*Frame, error) {
	s.Clear()

	frame, err := Layout(s.Width(), ds, opts, logger)
	if err != nil {
		return nil, err
	}

	if err := s.Draw(frame, tip); err != nil {
		return nil, fmt.Errorf("draw: %w", err)
	}

	return frame, nil
}
