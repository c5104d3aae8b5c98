package terminal

import (
	"io"
	"log/slog"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/zuhrulumam/mortchart/internal/chart"
	"github.com/zuhrulumam/mortchart/internal/scale"
	"github.com/zuhrulumam/mortchart/internal/tooltip"
)

// Layout constants, in terminal cells
const (
	LabelWidth   = 18
	DefaultRows  = 24
	DefaultWidth = 80
	MinWidth     = 40
)

const (
	barRune  = "█"
	axisRune = "─"
)

// cssColors maps the CSS names used by the SVG chart to terminal colors
var cssColors = map[string]string{
	"steelblue": "#4682B4",
	"orange":    "#FFA500",
	"red":       "#FF0000",
	"teal":      "#008080",
	"navy":      "#000080",
	"gold":      "#FFD700",
	"black":     "#000000",
	"gray":      "#808080",
}

// Color converts a CSS color name or hex value into a lipgloss color
func Color(css string) lipgloss.Color {
	if hex, ok := cssColors[strings.ToLower(css)]; ok {
		return lipgloss.Color(hex)
	}
	return lipgloss.Color(css)
}

// Options returns chart options measured in cells for a chart rows lines tall
func Options(rows int, barColor string) chart.Options {
	if rows <= 0 {
		rows = DefaultRows
	}
	if barColor == "" {
		barColor = chart.DefaultOptions().BarColor
	}
	return chart.Options{
		Margins:   chart.Margins{Top: 1, Right: 6, Bottom: 3, Left: LabelWidth + 2},
		Height:    float64(rows),
		TickCount: scale.DefaultTickCount / 2,
		BarColor:  barColor,
	}
}

// Width returns the column count of f when it is a terminal, fallback otherwise
func Width(f *os.File, fallback int) int {
	if f != nil && term.IsTerminal(int(f.Fd())) {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			return w
		}
	}
	if fallback <= 0 {
		return DefaultWidth
	}
	return fallback
}

// Surface draws charts as lines of styled text. Colors follow the
// profile of the writer passed to NewSurface, so a plain buffer gets
// plain text.
type Surface struct {
	renderer *lipgloss.Renderer
	title    lipgloss.Style
	axis     lipgloss.Style
	value    lipgloss.Style

	// ShowValues appends each bar's count after the bar
	ShowValues bool

	// Logger receives bars that cannot get a line of their own (default: discarded)
	Logger *slog.Logger

	mu    sync.RWMutex
	width int
	frame *chart.Frame
}

// NewSurface creates an empty surface width columns wide
func NewSurface(out io.Writer, width int) *Surface {
	if width <= 0 {
		width = DefaultWidth
	}
	r := lipgloss.NewRenderer(out)
	return &Surface{
		renderer: r,
		title:    r.NewStyle().Bold(true),
		axis:     r.NewStyle().Foreground(lipgloss.Color("245")),
		value:    r.NewStyle().Faint(true),
		width:    width,
	}
}

func (s *Surface) Width() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return float64(s.width)
}

// Resize sets the width used by the next render
func (s *Surface) Resize(width int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width = width
}

func (s *Surface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame = nil
}

// Draw keeps frame; bars are painted on every View so fill changes show.
// When the plot has fewer lines than bars, the later bar of a shared line
// is the one painted and each hidden cause is logged.
func (s *Surface) Draw(frame *chart.Frame, _ *tooltip.Tooltip) error {
	s.reportShared(frame)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame = frame
	return nil
}

func (s *Surface) reportShared(f *chart.Frame) {
	if f == nil || s.Logger == nil {
		return
	}
	shown := make(map[int]*chart.Bar, len(f.Bars))
	for _, b := range f.Bars {
		if !b.Placed {
			continue
		}
		row := Row(f, b)
		if prev, ok := shown[row]; ok {
			s.Logger.Error("bar hidden, too few terminal lines",
				"cause", prev.Record.Cause,
				"shown", b.Record.Cause,
				"line", row,
				"bars", len(f.Bars),
				"plot_lines", int(f.InnerHeight))
		}
		shown[row] = b
	}
}

// Frame returns the drawn frame, nil when the surface is empty
func (s *Surface) Frame() *chart.Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frame
}

// Row is the surface line a bar is painted on
func Row(f *chart.Frame, b *chart.Bar) int {
	return int(f.Margins.Top) + int(math.Floor(b.Y+b.Height/2))
}

// BarAt returns the bar painted at column col of line row
func (s *Surface) BarAt(col, row int) (*chart.Bar, bool) {
	f := s.Frame()
	if f == nil {
		return nil, false
	}

	left := int(f.Margins.Left)
	for i := len(f.Bars) - 1; i >= 0; i-- {
		b := f.Bars[i]
		if !b.Placed || Row(f, b) != row {
			continue
		}
		if col >= left && col < left+cells(b.Width) {
			return b, true
		}
		return nil, false
	}
	return nil, false
}

// View renders the current chart; empty when nothing is drawn
func (s *Surface) View() string {
	f := s.Frame()
	if f == nil {
		return ""
	}

	top := int(f.Margins.Top)
	plotRows := max(0, int(f.InnerHeight))
	left := int(f.Margins.Left)
	inner := max(0, int(math.Round(f.InnerWidth)))

	lines := make([]string, 0, top+plotRows+3)
	for i := 0; i < top; i++ {
		if i == 0 {
			lines = append(lines, s.title.Render(f.YLabel))
			continue
		}
		lines = append(lines, "")
	}

	labels := make(map[int]string, len(f.YTicks))
	for _, t := range f.YTicks {
		labels[int(math.Floor(t.Pos))] = t.Label
	}
	bars := make(map[int]*chart.Bar, len(f.Bars))
	for _, b := range f.Bars {
		if b.Placed {
			bars[Row(f, b)-top] = b
		}
	}

	for r := 0; r < plotRows; r++ {
		var sb strings.Builder
		sb.WriteString(gutter(labels[r], left))
		if _, ok := labels[r]; ok {
			sb.WriteString(s.axis.Render("┤"))
		} else {
			sb.WriteString(s.axis.Render("│"))
		}

		if b, ok := bars[r]; ok {
			n := cells(b.Width)
			style := s.renderer.NewStyle().Foreground(Color(b.Fill))
			sb.WriteString(style.Render(strings.Repeat(barRune, n)))

			count := tooltip.FormatCount(b.Record.PatientCount)
			if s.ShowValues && n+1+len(count) <= inner+int(f.Margins.Right) {
				sb.WriteString(" " + s.value.Render(count))
			}
		}
		lines = append(lines, sb.String())
	}

	lines = append(lines, s.axis.Render(s.axisLine(f, left, inner)))
	lines = append(lines, s.tickLabels(f, left))
	lines = append(lines, s.title.Render(runewidth.FillLeft(f.XLabel, max(left+inner, runewidth.StringWidth(f.XLabel)))))

	return strings.Join(lines, "\n")
}

// WriteTo writes the chart followed by a newline. Nothing is written when empty.
func (s *Surface) WriteTo(w io.Writer) (int64, error) {
	view := s.View()
	if view == "" {
		return 0, nil
	}
	n, err := io.WriteString(w, view+"\n")
	return int64(n), err
}

func (s *Surface) axisLine(f *chart.Frame, left, inner int) string {
	line := []rune(strings.Repeat(axisRune, inner+1))
	for _, t := range f.XTicks {
		if c := int(math.Round(t.Pos)); c >= 0 && c < len(line) {
			line[c] = '┬'
		}
	}
	return strings.Repeat(" ", max(0, left-1)) + "└" + string(line)
}

// tickLabels centers each label under its tick, skipping labels that
// would overlap the previous one
func (s *Surface) tickLabels(f *chart.Frame, left int) string {
	buf := []rune(strings.Repeat(" ", s.widthOr(f)))
	next := 0
	for _, t := range f.XTicks {
		label := []rune(t.Label)
		start := left + int(math.Round(t.Pos)) - len(label)/2
		if start < next || start < 0 || start+len(label) > len(buf) {
			continue
		}
		copy(buf[start:], label)
		next = start + len(label) + 1
	}
	return strings.TrimRight(string(buf), " ")
}

func (s *Surface) widthOr(f *chart.Frame) int {
	if w := int(f.Width); w > 0 {
		return w
	}
	return DefaultWidth
}

// gutter is the label column: label right-aligned and truncated to width-2
func gutter(label string, width int) string {
	w := max(1, width-2)
	if label == "" {
		return strings.Repeat(" ", w+1)
	}
	return runewidth.FillLeft(runewidth.Truncate(label, w, "…"), w) + " "
}

func cells(width float64) int {
	if math.IsNaN(width) || width <= 0 {
		return 0
	}
	return int(math.Round(width))
}
