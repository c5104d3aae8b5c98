package terminal

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zuhrulumam/mortchart/internal/chart"
	"github.com/zuhrulumam/mortchart/internal/pipeline"
	"github.com/zuhrulumam/mortchart/internal/tooltip"
	"github.com/zuhrulumam/mortchart/internal/tracker"
)

// headerLines is the title line plus the indicator line above the chart
const headerLines = 2

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	helpStyle    = lipgloss.NewStyle().Faint(true)
	tooltipStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("245")).
			Padding(0, 1)
	diagTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
)

// ModelConfig wires the interactive view
type ModelConfig struct {
	Pipeline  *pipeline.Pipeline
	Source    string
	Surface   *Surface
	Indicator *tracker.Indicator
	Title     string
}

type drawnMsg struct {
	frame  *chart.Frame
	err    error
	resize bool
}

// Model is the interactive chart. Pointer motion over a bar is hover,
// up/down walk the bars and a terminal resize redraws the chart.
type Model struct {
	ctx       context.Context
	pipeline  *pipeline.Pipeline
	source    string
	surface   *Surface
	indicator *tracker.Indicator
	tip       *tooltip.Tooltip
	title     string

	viewport viewport.Model
	showDiag bool

	hovered  *chart.Bar
	selected int
	width    int
	height   int
	ready    bool
	err      error
}

// NewModel creates the view; nothing is drawn until the first window size arrives
func NewModel(ctx context.Context, cfg ModelConfig) Model {
	tip := cfg.Pipeline.Tooltip()
	if tip == nil {
		tip, _ = tooltip.New(tooltip.DefaultConfig())
	}
	if cfg.Indicator == nil {
		cfg.Indicator = tracker.NewIndicator()
	}
	if cfg.Title == "" {
		cfg.Title = "Mortality by Cause"
	}

	vp := viewport.New(0, 0)
	vp.SetContent("No rows discarded.")

	return Model{
		ctx:       ctx,
		pipeline:  cfg.Pipeline,
		source:    cfg.Source,
		surface:   cfg.Surface,
		indicator: cfg.Indicator,
		tip:       tip,
		title:     cfg.Title,
		viewport:  vp,
		selected:  -1,
	}
}

// Run starts the program and blocks until the user quits
func Run(ctx context.Context, m Model, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
	}, opts...)

	_, err := tea.NewProgram(m, opts...).Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return nil
}

// draw runs a full cycle off the update loop. Resize uses the quiet
// path that leaves the indicator alone.
func (m Model) draw(resize bool) tea.Cmd {
	return func() tea.Msg {
		var (
			frame *chart.Frame
			err   error
		)
		if resize {
			frame, err = m.pipeline.Redraw(m.ctx, m.surface, m.source)
		} else {
			frame, err = m.pipeline.Draw(m.ctx, m.surface, m.source)
		}
		return drawnMsg{frame: frame, err: err, resize: resize}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			m.selectBar(m.selected - 1)
		case "down", "j":
			m.selectBar(m.selected + 1)
		case "esc":
			m.hover(nil, tooltip.Point{})
			m.selected = -1
		case "d":
			m.showDiag = !m.showDiag
		case "r":
			m.pipeline.Invalidate(m.source)
			return m, m.draw(false)
		default:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case tea.MouseMsg:
		if msg.Action != tea.MouseActionMotion {
			break
		}
		bar, _ := m.surface.BarAt(msg.X, msg.Y-headerLines)
		m.hover(bar, tooltip.Point{X: float64(msg.X), Y: float64(msg.Y)})

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.surface.Resize(msg.Width)
		m.viewport.Width = msg.Width
		m.viewport.Height = max(3, msg.Height-headerLines-m.chartRows()-4)

		resize := m.ready
		m.ready = true
		return m, m.draw(resize)

	case drawnMsg:
		// a new frame resets the hover, including a bar of that frame
		// hovered while it was being drawn
		if m.hovered != nil {
			m.tip.Leave(m.hovered)
			m.hovered = nil
		}
		m.err = msg.err
		if msg.frame == nil || m.selected >= len(msg.frame.Bars) {
			m.selected = -1
		}
		m.refreshViewport()
	}
	return m, nil
}

// hover moves the tooltip to bar, leaving the previous bar first
func (m *Model) hover(bar *chart.Bar, pointer tooltip.Point) {
	if bar == m.hovered {
		return
	}
	if m.hovered != nil {
		m.tip.Leave(m.hovered)
		m.hovered = nil
	}
	if bar != nil {
		m.tip.Enter(bar, bar.Record, pointer)
		m.hovered = bar
	}
}

func (m *Model) selectBar(i int) {
	f := m.surface.Frame()
	if f == nil || len(f.Bars) == 0 {
		return
	}
	i = min(max(i, 0), len(f.Bars)-1)
	m.selected = i

	bar := f.Bars[i]
	m.hover(bar, tooltip.Point{
		X: f.Margins.Left + float64(cells(bar.Width)),
		Y: float64(headerLines + Row(f, bar)),
	})
}

func (m *Model) chartRows() int {
	if f := m.surface.Frame(); f != nil {
		return int(f.Height)
	}
	return DefaultRows
}

func (m *Model) refreshViewport() {
	var sb strings.Builder
	if s := m.pipeline.Summary(); s != nil {
		fmt.Fprintf(&sb, "Rows read: %d, kept: %d, discarded: %d\n", s.RowsRead, s.Kept, s.Discarded)
	}
	if m.err != nil {
		fmt.Fprintf(&sb, "Error: %v\n", m.err)
	}

	warnings := m.pipeline.Warnings()
	if warnings == nil || !warnings.HasEntries() {
		sb.WriteString("No rows discarded.")
	} else {
		fmt.Fprintf(&sb, "Discard rate: %.1f%%\n", warnings.Rate()*100)
		for _, w := range warnings.Warnings() {
			fmt.Fprintf(&sb, "line %d: %s (%s=%q)\n", w.Line, w.Message, w.Field, w.Value)
		}
	}
	m.viewport.SetContent(strings.TrimRight(sb.String(), "\n"))
}

// Hovered returns the bar under the pointer or selection
func (m Model) Hovered() (*chart.Bar, bool) {
	return m.hovered, m.hovered != nil
}

// Err returns the outcome of the last draw
func (m Model) Err() error {
	return m.err
}

func (m Model) View() string {
	if !m.ready {
		return tracker.MsgLoading
	}

	var sections []string
	sections = append(sections, titleStyle.Render(m.title)+"  "+helpStyle.Render(m.source))
	sections = append(sections, m.indicator.View())

	if chartView := m.surface.View(); chartView != "" {
		sections = append(sections, chartView)
	}

	if m.tip.State() == tooltip.Visible {
		box := tooltipStyle.Render(m.tip.Text())
		offset := int(m.tip.Position().X)
		offset = min(max(offset, 0), max(0, m.width-lipgloss.Width(box)))
		sections = append(sections, lipgloss.NewStyle().MarginLeft(offset).Render(box))
	}

	if m.showDiag {
		sections = append(sections, diagTitleStyle.Render("Diagnostics"), m.viewport.View())
	}

	sections = append(sections, helpStyle.Render("↑/↓ select • mouse hover • d diagnostics • r reload • q quit"))
	return strings.Join(sections, "\n")
}
