package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zuhrulumam/mortchart/internal/chart"
	cerrors "github.com/zuhrulumam/mortchart/internal/errors"
	"github.com/zuhrulumam/mortchart/internal/fixtures"
	"github.com/zuhrulumam/mortchart/internal/tooltip"
	"github.com/zuhrulumam/mortchart/internal/tracker"
)

func newTestPipeline(t *testing.T, mutate func(*Config)) (*Pipeline, *bytes.Buffer) {
	t.Helper()

	tip, err := tooltip.New(tooltip.DefaultConfig())
	require.NoError(t, err)

	logs := &bytes.Buffer{}
	cfg := Config{
		Workers: 4,
		Tooltip: tip,
		Logger:  slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return New(cfg), logs
}

func causes(t *testing.T, p *Pipeline, source string) []string {
	t.Helper()
	ds, err := p.Load(context.Background(), source)
	require.NoError(t, err)
	return ds.Causes()
}

func TestLoad_EndToEnd(t *testing.T) {
	gen := fixtures.NewGenerator(t.TempDir(), 1)
	file, err := gen.GenerateSample("sample.csv")
	require.NoError(t, err)

	p, logs := newTestPipeline(t, nil)
	surface := chart.NewSVGSurface(960)

	frame, err := p.Draw(context.Background(), surface, file)
	require.NoError(t, err)

	require.Len(t, frame.Bars, 2)
	assert.Equal(t, "Cancer", frame.Bars[0].Record.Cause)
	assert.Equal(t, "Heart", frame.Bars[1].Record.Cause)

	d0, d1 := frame.X.Domain()
	assert.Equal(t, 0.0, d0)
	assert.InDelta(t, 330, d1, 1e-9)

	assert.Len(t, surface.Root().Find("bar"), 2)

	summary := p.Summary()
	require.NotNil(t, summary)
	assert.Equal(t, 3, summary.RowsRead)
	assert.Equal(t, 2, summary.Kept)
	assert.Equal(t, 1, summary.Discarded)

	warnings := p.Warnings().Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, 4, warnings[0].Line)
	assert.Equal(t, "numero_pacientes", warnings[0].Field)

	assert.Contains(t, logs.String(), "row discarded")
	assert.Contains(t, logs.String(), "render_id=")
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		rows [][]string
		want []string
	}{
		{"non-numeric count excluded", [][]string{{"A", "abc"}, {"B", "5"}}, []string{"B"}},
		{"empty count excluded", [][]string{{"A", ""}, {"B", "5"}}, []string{"B"}},
		{"empty label excluded", [][]string{{"", "10"}, {"B", "5"}}, []string{"B"}},
		{"short row excluded", [][]string{{"A"}, {"B", "5"}}, []string{"B"}},
		{"whitespace count accepted", [][]string{{"A", " 7 "}}, []string{"A"}},
		{"negative count excluded", [][]string{{"A", "-1"}, {"B", "1"}}, []string{"B"}},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := fixtures.NewGenerator(t.TempDir(), int64(i))
			file, err := gen.Write("data.csv", fixtures.Header, tt.rows)
			require.NoError(t, err)

			p, _ := newTestPipeline(t, nil)
			assert.Equal(t, tt.want, causes(t, p, file))
		})
	}
}

func TestLoad_StableDescendingOrder(t *testing.T) {
	gen := fixtures.NewGenerator(t.TempDir(), 2)
	file, err := gen.Write("ties.csv", fixtures.Header, [][]string{
		{"A", "10"},
		{"B", "10"},
		{"C", "5"},
	})
	require.NoError(t, err)

	for _, workers := range []int{1, 2, 8} {
		p, _ := newTestPipeline(t, func(c *Config) { c.Workers = workers })
		assert.Equal(t, []string{"A", "B", "C"}, causes(t, p, file), "workers=%d", workers)
	}
}

func TestLoad_LargeFileOrdering(t *testing.T) {
	gen := fixtures.NewGenerator(t.TempDir(), 3)
	file, valid, err := gen.GenerateWithInvalid("large.csv", 2000, 0.1)
	require.NoError(t, err)

	p, _ := newTestPipeline(t, func(c *Config) { c.Workers = 8 })
	ds, err := p.Load(context.Background(), file)
	require.NoError(t, err)

	assert.Equal(t, valid, ds.Len())
	for i := 1; i < ds.Len(); i++ {
		prev, cur := ds.Records[i-1], ds.Records[i]
		require.GreaterOrEqual(t, prev.PatientCount, cur.PatientCount)
		if prev.PatientCount == cur.PatientCount {
			require.Less(t, prev.LineNumber, cur.LineNumber)
		}
	}
}

func TestLoad_EmptyDataset(t *testing.T) {
	dir := t.TempDir()
	gen := fixtures.NewGenerator(dir, 4)

	empty, err := gen.GenerateEmpty("empty.csv")
	require.NoError(t, err)
	headerOnly, err := gen.GenerateHeaderOnly("header.csv")
	require.NoError(t, err)
	invalid, err := gen.Write("invalid.csv", fixtures.Header, [][]string{{"A", "x"}, {"", "1"}})
	require.NoError(t, err)
	wrongColumns, err := gen.Write("columns.csv", []string{"cause", "count"}, [][]string{{"A", "1"}})
	require.NoError(t, err)

	tests := []struct {
		name     string
		file     string
		rowsRead int
	}{
		{"empty file", empty, 0},
		{"header only", headerOnly, 0},
		{"all rows invalid", invalid, 2},
		{"required columns missing", wrongColumns, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTestPipeline(t, nil)
			_, err := p.Load(context.Background(), tt.file)

			require.Error(t, err)
			assert.True(t, errors.Is(err, cerrors.ErrEmptyDataset))
			assert.False(t, errors.Is(err, cerrors.ErrLoadFailure))

			var empty *cerrors.EmptyDatasetError
			require.True(t, errors.As(err, &empty))
			assert.Equal(t, tt.rowsRead, empty.RowsRead)
		})
	}
}

func TestDraw_EmptyDatasetDrawsNothing(t *testing.T) {
	gen := fixtures.NewGenerator(t.TempDir(), 5)
	good, err := gen.GenerateSample("good.csv")
	require.NoError(t, err)
	bad, err := gen.Write("bad.csv", fixtures.Header, [][]string{{"A", "x"}})
	require.NoError(t, err)

	indicator := tracker.NewIndicator()
	p, _ := newTestPipeline(t, func(c *Config) { c.Indicator = indicator })
	surface := chart.NewSVGSurface(800)

	_, err = p.Draw(context.Background(), surface, good)
	require.NoError(t, err)
	assert.Equal(t, tracker.StateHidden, indicator.State())

	_, err = p.Draw(context.Background(), surface, bad)
	require.Error(t, err)
	assert.Nil(t, surface.Root())
	assert.Equal(t, tracker.StateEmpty, indicator.State())
	assert.Equal(t, tracker.MsgNoValidRows, indicator.Message())
}

func TestLoad_Failures(t *testing.T) {
	dir := t.TempDir()

	malformed := filepath.Join(dir, "malformed.csv")
	require.NoError(t, os.WriteFile(malformed, []byte("mortalidad,numero_pacientes\n\"Heart,150\n"), 0o644))
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	tests := []struct {
		name   string
		source string
	}{
		{"missing file", filepath.Join(dir, "nope.csv")},
		{"malformed csv", malformed},
		{"http 404", srv.URL + "/data.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			indicator := tracker.NewIndicator()
			p, _ := newTestPipeline(t, func(c *Config) { c.Indicator = indicator })

			_, err := p.Draw(context.Background(), chart.NewSVGSurface(800), tt.source)
			require.Error(t, err)
			assert.True(t, errors.Is(err, cerrors.ErrLoadFailure), "got %v", err)
			assert.Equal(t, tracker.StateFailed, indicator.State())
		})
	}
}

func TestLoad_Remote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		fmt.Fprint(w, "mortalidad,numero_pacientes\nHeart,150\nCancer,300\n")
	}))
	defer srv.Close()

	p, _ := newTestPipeline(t, func(c *Config) { c.HTTPClient = srv.Client() })
	assert.Equal(t, []string{"Cancer", "Heart"}, causes(t, p, srv.URL+"/mortality.csv"))
}

func TestLoad_Canceled(t *testing.T) {
	gen := fixtures.NewGenerator(t.TempDir(), 7)
	file, err := gen.GenerateValid("valid.csv", 100)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p, _ := newTestPipeline(t, nil)
	_, err = p.Load(ctx, file)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cerrors.ErrLoadFailure))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestLoad_CacheInvalidatedOnChange(t *testing.T) {
	gen := fixtures.NewGenerator(t.TempDir(), 8)
	file, err := gen.Write("data.csv", fixtures.Header, [][]string{{"A", "1"}})
	require.NoError(t, err)

	p, _ := newTestPipeline(t, nil)

	assert.Equal(t, []string{"A"}, causes(t, p, file))
	assert.False(t, p.Summary().Cached)

	assert.Equal(t, []string{"A"}, causes(t, p, file))
	assert.True(t, p.Summary().Cached)

	_, err = gen.Write("data.csv", fixtures.Header, [][]string{{"A", "1"}, {"Bronchitis", "2"}})
	require.NoError(t, err)
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(file, later, later))

	assert.Equal(t, []string{"Bronchitis", "A"}, causes(t, p, file))
	assert.False(t, p.Summary().Cached)

	p.Invalidate(file)
	causes(t, p, file)
	assert.False(t, p.Summary().Cached)
}

func TestLoad_ReloadOnResizeSkipsCache(t *testing.T) {
	gen := fixtures.NewGenerator(t.TempDir(), 9)
	file, err := gen.GenerateSample("sample.csv")
	require.NoError(t, err)

	p, _ := newTestPipeline(t, func(c *Config) { c.ReloadOnResize = true })
	causes(t, p, file)
	causes(t, p, file)
	assert.False(t, p.Summary().Cached)
}

func TestRedraw_LeavesIndicatorAlone(t *testing.T) {
	dir := t.TempDir()
	indicator := tracker.NewIndicator()
	p, logs := newTestPipeline(t, func(c *Config) { c.Indicator = indicator })

	_, err := p.Redraw(context.Background(), chart.NewSVGSurface(800), filepath.Join(dir, "missing.csv"))
	require.Error(t, err)

	assert.Equal(t, tracker.StateLoading, indicator.State())
	assert.Contains(t, logs.String(), "resize=true")
	assert.Contains(t, logs.String(), "load failed")
}

func TestDraw_ResizeRendersOneSet(t *testing.T) {
	gen := fixtures.NewGenerator(t.TempDir(), 10)
	file, err := gen.GenerateSample("sample.csv")
	require.NoError(t, err)

	p, _ := newTestPipeline(t, nil)
	surface := chart.NewSVGSurface(960)

	_, err = p.Draw(context.Background(), surface, file)
	require.NoError(t, err)

	for _, width := range []float64{800, 640, 1200} {
		surface.Resize(width)
		frame, err := p.Redraw(context.Background(), surface, file)
		require.NoError(t, err)
		assert.Equal(t, width-120, frame.InnerWidth)
		assert.Len(t, surface.Root().Find("bar"), 2)
	}
}

func TestDraw_Concurrent(t *testing.T) {
	gen := fixtures.NewGenerator(t.TempDir(), 11)
	file, err := gen.GenerateValid("data.csv", 200)
	require.NoError(t, err)

	p, _ := newTestPipeline(t, func(c *Config) { c.ReloadOnResize = true })
	surface := chart.NewSVGSurface(960)

	const draws = 10
	var wg sync.WaitGroup
	errs := make(chan error, draws)

	for i := 0; i < draws; i++ {
		wg.Add(1)
		go func(width float64) {
			defer wg.Done()
			surface.Resize(width)
			if _, err := p.Draw(context.Background(), surface, file); err != nil {
				errs <- err
			}
		}(float64(600 + i*10))
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("draw error: %v", err)
	}
	assert.Len(t, surface.Root().Find("bar"), 200)
}

func TestPrintReport(t *testing.T) {
	gen := fixtures.NewGenerator(t.TempDir(), 12)
	file, err := gen.GenerateSample("sample.csv")
	require.NoError(t, err)

	p, _ := newTestPipeline(t, nil)
	_, err = p.Load(context.Background(), file)
	require.NoError(t, err)

	var out bytes.Buffer
	p.PrintReport(&out, 10)
	assert.Contains(t, out.String(), "Total Discarded:   1")
	assert.True(t, strings.Contains(out.String(), "empty count"))
}

func TestLoad_ProgressOutput(t *testing.T) {
	gen := fixtures.NewGenerator(t.TempDir(), 13)
	file, err := gen.GenerateSample("sample.csv")
	require.NoError(t, err)

	var progress bytes.Buffer
	p, _ := newTestPipeline(t, func(c *Config) { c.Progress = &progress })
	_, err = p.Load(context.Background(), file)
	require.NoError(t, err)

	assert.Contains(t, progress.String(), "Load Complete")
	assert.Contains(t, progress.String(), "Rows Read:        3")
}

func TestDraw_RenderIDFromContext(t *testing.T) {
	gen := fixtures.NewGenerator(t.TempDir(), 1)
	file, err := gen.GenerateSample("sample.csv")
	require.NoError(t, err)

	p, logs := newTestPipeline(t, nil)
	ctx := WithRenderID(context.Background(), "req-42")

	_, err = p.Draw(ctx, chart.NewSVGSurface(960), file)
	require.NoError(t, err)
	_, err = p.Redraw(ctx, chart.NewSVGSurface(800), file)
	require.NoError(t, err)

	out := logs.String()
	assert.Contains(t, out, "render_id=req-42 resize=true")
	assert.Equal(t, strings.Count(out, "render_id="), strings.Count(out, "render_id=req-42"))
}

func TestLoad_LogsMissingColumns(t *testing.T) {
	gen := fixtures.NewGenerator(t.TempDir(), 1)
	file, err := gen.Write("columns.csv", []string{"cause", "count"}, [][]string{{"A", "1"}, {"B", "2"}})
	require.NoError(t, err)

	p, logs := newTestPipeline(t, nil)
	_, err = p.Load(context.Background(), file)
	require.ErrorIs(t, err, cerrors.ErrEmptyDataset)

	assert.Equal(t, 1, strings.Count(logs.String(), "required columns missing"))
	assert.Contains(t, logs.String(), "numero_pacientes")
}

func TestLoad_DuplicateColumns(t *testing.T) {
	gen := fixtures.NewGenerator(t.TempDir(), 1)
	file, err := gen.Write("notes.csv",
		[]string{"mortalidad", "numero_pacientes", "nota", "nota", "numero_pacientes"},
		[][]string{
			{"Heart", "x", "a", "b", "150"},
			{"Cancer", "x", "c", "d", "300"},
		})
	require.NoError(t, err)

	p, logs := newTestPipeline(t, nil)
	ds, err := p.Load(context.Background(), file)
	require.NoError(t, err)

	assert.Equal(t, []string{"Cancer", "Heart"}, ds.Causes())
	assert.Equal(t, 300.0, ds.Max())
	assert.Equal(t, 1, strings.Count(logs.String(), "duplicate columns"))
	assert.Contains(t, logs.String(), "nota")
}
