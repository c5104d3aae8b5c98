package tooltip

import (
	"bytes"
	"fmt"
	"strconv"
	"sync"
	"text/template"
	"time"

	"github.com/zuhrulumam/mortchart/internal/models"
)

// DefaultFormat is the tooltip body template
const DefaultFormat = "Cause: {{.Cause}}\nPatients: {{.Count}}"

// Visibility is the tooltip state
type Visibility int

const (
	Hidden Visibility = iota
	Visible
)

func (v Visibility) String() string {
	if v == Visible {
		return "visible"
	}
	return "hidden"
}

// Point is a pointer position in page or cell coordinates
type Point struct {
	X, Y float64
}

// Highlighter is a drawn bar whose fill follows hover state
type Highlighter interface {
	SetFill(color string)
}

// Config holds tooltip appearance and timing
type Config struct {
	ShowOpacity  float64
	ShowDuration time.Duration
	HideDuration time.Duration
	OffsetX      float64
	OffsetY      float64
	BarColor     string
	HoverColor   string
	Format       string
}

// DefaultConfig returns the standard hover behaviour
func DefaultConfig() Config {
	return Config{
		ShowOpacity:  0.9,
		ShowDuration: 200 * time.Millisecond,
		HideDuration: 500 * time.Millisecond,
		OffsetX:      10,
		OffsetY:      -28,
		BarColor:     "steelblue",
		HoverColor:   "orange",
		Format:       DefaultFormat,
	}
}

// Transition describes one state change for a surface to animate
type Transition struct {
	From     Visibility
	To       Visibility
	Opacity  float64
	Duration time.Duration
	Content  string
	Position Point
	Fill     string
}

// Tooltip is the single hover box shared by every bar of a chart.
// It lives for the whole application and is never rebuilt on redraw.
type Tooltip struct {
	cfg  Config
	tmpl *template.Template

	mu       sync.RWMutex
	state    Visibility
	opacity  float64
	content  string
	position Point
	active   *models.Record
}

// New creates a hidden tooltip. It fails only on a malformed format template.
func New(cfg Config) (*Tooltip, error) {
	def := DefaultConfig()
	if cfg.Format == "" {
		cfg.Format = def.Format
	}
	if cfg.BarColor == "" {
		cfg.BarColor = def.BarColor
	}
	if cfg.HoverColor == "" {
		cfg.HoverColor = def.HoverColor
	}
	if cfg.ShowOpacity <= 0 || cfg.ShowOpacity > 1 {
		cfg.ShowOpacity = def.ShowOpacity
	}

	tmpl, err := template.New("tooltip").Option("missingkey=error").Parse(cfg.Format)
	if err != nil {
		return nil, fmt.Errorf("parse tooltip format: %w", err)
	}

	return &Tooltip{cfg: cfg, tmpl: tmpl}, nil
}

// Config returns the tooltip configuration
func (t *Tooltip) Config() Config {
	return t.cfg
}

// Content renders the tooltip body for a record
func (t *Tooltip) Content(rec models.Record) string {
	var buf bytes.Buffer
	data := struct {
		Cause string
		Count string
	}{rec.Cause, FormatCount(rec.PatientCount)}

	if err := t.tmpl.Execute(&buf, data); err != nil {
		return fmt.Sprintf("Cause: %s\nPatients: %s", data.Cause, data.Count)
	}
	return buf.String()
}

// Enter shows the tooltip for rec next to pointer and highlights bar
func (t *Tooltip) Enter(bar Highlighter, rec models.Record, pointer Point) Transition {
	content := t.Content(rec)
	pos := Point{X: pointer.X + t.cfg.OffsetX, Y: pointer.Y + t.cfg.OffsetY}

	t.mu.Lock()
	from := t.state
	t.state = Visible
	t.opacity = t.cfg.ShowOpacity
	t.content = content
	t.position = pos
	r := rec
	t.active = &r
	t.mu.Unlock()

	if bar != nil {
		bar.SetFill(t.cfg.HoverColor)
	}

	return Transition{
		From:     from,
		To:       Visible,
		Opacity:  t.cfg.ShowOpacity,
		Duration: t.cfg.ShowDuration,
		Content:  content,
		Position: pos,
		Fill:     t.cfg.HoverColor,
	}
}

// Leave fades the tooltip out and restores bar's base color.
// Content and position stay as they were so the fade shows the last body.
func (t *Tooltip) Leave(bar Highlighter) Transition {
	t.mu.Lock()
	from := t.state
	t.state = Hidden
	t.opacity = 0
	t.active = nil
	content, pos := t.content, t.position
	t.mu.Unlock()

	if bar != nil {
		bar.SetFill(t.cfg.BarColor)
	}

	return Transition{
		From:     from,
		To:       Hidden,
		Opacity:  0,
		Duration: t.cfg.HideDuration,
		Content:  content,
		Position: pos,
		Fill:     t.cfg.BarColor,
	}
}

func (t *Tooltip) State() Visibility {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

func (t *Tooltip) Opacity() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.opacity
}

func (t *Tooltip) Text() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.content
}

func (t *Tooltip) Position() Point {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.position
}

// Active returns the hovered record, if any
func (t *Tooltip) Active() (models.Record, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.active == nil {
		return models.Record{}, false
	}
	return *t.active, true
}

// FormatCount prints a patient count the way it appeared in the source
func FormatCount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
