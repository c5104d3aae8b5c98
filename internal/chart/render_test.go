package chart

import (
	"bytes"
	"encoding/xml"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/zuhrulumam/mortchart/internal/errors"
	"github.com/zuhrulumam/mortchart/internal/models"
	"github.com/zuhrulumam/mortchart/internal/tooltip"
)

func sampleDataset() models.Dataset {
	return models.NewDataset([]models.Record{
		{Cause: "Heart", PatientCount: 150, LineNumber: 2},
		{Cause: "Cancer", PatientCount: 300, LineNumber: 3},
	})
}

func newTip(t *testing.T) *tooltip.Tooltip {
	t.Helper()
	tip, err := tooltip.New(tooltip.DefaultConfig())
	require.NoError(t, err)
	return tip
}

func TestLayout_Geometry(t *testing.T) {
	frame, err := Layout(960, sampleDataset(), DefaultOptions(), nil)
	require.NoError(t, err)

	assert.Equal(t, 840.0, frame.InnerWidth)
	assert.Equal(t, 540.0, frame.InnerHeight)

	d0, d1 := frame.X.Domain()
	assert.Equal(t, 0.0, d0)
	assert.InDelta(t, 330, d1, 1e-9)

	require.Len(t, frame.Bars, 2)
	assert.Equal(t, "Cancer", frame.Bars[0].Record.Cause)
	assert.Equal(t, "Heart", frame.Bars[1].Record.Cause)

	for _, b := range frame.Bars {
		assert.True(t, b.Placed)
		assert.Equal(t, frame.Y.Bandwidth(), b.Height)
		assert.Equal(t, 0.0, b.X)
		assert.Equal(t, "steelblue", b.Fill)
	}
	assert.InDelta(t, 840*300/330.0, frame.Bars[0].Width, 1e-9)
	assert.Less(t, frame.Bars[0].Y, frame.Bars[1].Y)

	labels := make([]string, len(frame.XTicks))
	for i, tick := range frame.XTicks {
		labels[i] = tick.Label
	}
	assert.Equal(t, []string{"0", "50", "100", "150", "200", "250", "300"}, labels)

	require.Len(t, frame.YTicks, 2)
	assert.Equal(t, "Cancer", frame.YTicks[0].Label)
}

func TestLayout_Empty(t *testing.T) {
	_, err := Layout(960, models.NewDataset(nil), DefaultOptions(), nil)
	assert.True(t, errors.Is(err, cerrors.ErrEmptyDataset))
}

func TestLayout_NarrowSurfaceLogsInvalidWidth(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	frame, err := Layout(50, sampleDataset(), DefaultOptions(), logger)
	require.NoError(t, err)

	require.Len(t, frame.Bars, 2)
	assert.Less(t, frame.Bars[0].Width, 0.0)
	assert.Contains(t, logs.String(), "invalid bar width")
	assert.Contains(t, logs.String(), "chart dimensions")
}

func TestFrame_BarAt(t *testing.T) {
	frame, err := Layout(960, sampleDataset(), DefaultOptions(), nil)
	require.NoError(t, err)

	b := frame.Bars[1]
	got, ok := frame.BarAt(b.Y + b.Height/2)
	require.True(t, ok)
	assert.Equal(t, "Heart", got.Record.Cause)

	_, ok = frame.BarAt(-1)
	assert.False(t, ok)
}

func TestRender_Idempotent(t *testing.T) {
	surface := NewSVGSurface(800)
	tip := newTip(t)
	ds := sampleDataset()

	_, err := Render(surface, ds, DefaultOptions(), tip, nil)
	require.NoError(t, err)
	_, err = Render(surface, ds, DefaultOptions(), tip, nil)
	require.NoError(t, err)

	root := surface.Root()
	require.NotNil(t, root)
	assert.Len(t, root.Find("bar"), 2)
	assert.Len(t, root.Find("x-axis"), 1)
	assert.Len(t, root.Find("y-axis"), 1)
}

func TestRender_ResizeUsesNewWidth(t *testing.T) {
	surface := NewSVGSurface(960)
	tip := newTip(t)

	first, err := Render(surface, sampleDataset(), DefaultOptions(), tip, nil)
	require.NoError(t, err)

	surface.Resize(500)
	second, err := Render(surface, sampleDataset(), DefaultOptions(), tip, nil)
	require.NoError(t, err)

	assert.Equal(t, 840.0, first.InnerWidth)
	assert.Equal(t, 380.0, second.InnerWidth)

	width, ok := surface.Root().Attr("width")
	require.True(t, ok)
	assert.Equal(t, "500", width)
}

func TestRender_EmptyClearsSurface(t *testing.T) {
	surface := NewSVGSurface(800)
	_, err := Render(surface, sampleDataset(), DefaultOptions(), nil, nil)
	require.NoError(t, err)

	_, err = Render(surface, models.NewDataset(nil), DefaultOptions(), nil, nil)
	require.Error(t, err)
	assert.Nil(t, surface.Root())
}

func TestSVGSurface_Encode(t *testing.T) {
	surface := NewSVGSurface(960)
	_, err := Render(surface, models.NewDataset([]models.Record{
		{Cause: `Heart & <Lung>`, PatientCount: 10, LineNumber: 2},
	}), DefaultOptions(), newTip(t), nil)
	require.NoError(t, err)

	out, err := surface.Bytes()
	require.NoError(t, err)
	svg := string(out)

	assert.True(t, strings.HasPrefix(svg, "<svg"))
	assert.Contains(t, svg, `xmlns="http://www.w3.org/2000/svg"`)
	assert.Contains(t, svg, `viewBox="0 0 960 600"`)
	assert.Contains(t, svg, `preserveAspectRatio="xMidYMid meet"`)
	assert.Contains(t, svg, "Heart &amp; &lt;Lung&gt;")
	assert.Contains(t, svg, XLabel)
	assert.Contains(t, svg, YLabel)
	assert.Contains(t, svg, "onmouseenter")

	var decoded Node
	require.NoError(t, xml.Unmarshal(out, &decoded))
	assert.Equal(t, "svg", decoded.XMLName.Local)
}

func TestSVGSurface_EmptyWritesNothing(t *testing.T) {
	out, err := NewSVGSurface(100).Bytes()
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestBarNode_WithoutTooltip(t *testing.T) {
	n := barNode(&Bar{Record: models.Record{Cause: "Flu", PatientCount: 3}, Width: -5, Fill: "steelblue"}, nil)

	w, _ := n.Attr("width")
	assert.Equal(t, "0", w)
	_, ok := n.Attr("onmouseenter")
	assert.False(t, ok)
	assert.Empty(t, n.Children)
}

func TestWritePage(t *testing.T) {
	var buf bytes.Buffer
	err := WritePage(&buf, PageData{
		ChartURL:     "/chart.svg",
		Message:      "Loading data...",
		MessageColor: "",
		Tooltip:      tooltip.DefaultConfig(),
	})
	require.NoError(t, err)

	page := buf.String()
	assert.Contains(t, page, `id="loading-message"`)
	assert.Contains(t, page, "Loading data...")
	assert.Contains(t, page, `class="tooltip"`)
	assert.Regexp(t, `showMS:\s+200\s*,`, page)
	assert.Regexp(t, `hideMS:\s+500\s*,`, page)
	assert.Contains(t, page, "chart.svg")
	assert.Contains(t, page, "Mortality by Cause")
}

func TestWritePage_EscapesMessage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePage(&buf, PageData{Message: "<b>x</b>", MessageColor: "red", Tooltip: tooltip.DefaultConfig()}))
	assert.Contains(t, buf.String(), "&lt;b&gt;x&lt;/b&gt;")
	assert.Contains(t, buf.String(), "color: red")
}
