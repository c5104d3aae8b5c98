package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zuhrulumam/mortchart/internal/chart"
	"github.com/zuhrulumam/mortchart/internal/errors"
	"github.com/zuhrulumam/mortchart/internal/models"
	"github.com/zuhrulumam/mortchart/internal/processor"
	"github.com/zuhrulumam/mortchart/internal/reader"
	"github.com/zuhrulumam/mortchart/internal/tooltip"
	"github.com/zuhrulumam/mortchart/internal/tracker"
	"github.com/zuhrulumam/mortchart/internal/worker"
)

// Pipeline loads mortality CSVs and draws them onto chart surfaces.
// It is safe for concurrent use; overlapping draws each replace the
// surface contents, so the last one to finish wins.
type Pipeline struct {
	config    Config
	validator processor.Processor
	logger    *slog.Logger

	mu       sync.Mutex
	cache    map[string]cacheEntry
	summary  *models.LoadSummary
	warnings *errors.Collector
}

// Config holds pipeline configuration
type Config struct {
	// Validation
	CountField string
	LabelField string

	// Processing
	Workers    int
	BufferSize int

	// LoadTimeout bounds one load (0 = no timeout)
	LoadTimeout time.Duration

	// ReloadOnResize disables the dataset cache so every draw re-reads the source
	ReloadOnResize bool

	// MaxWarnings caps stored row warnings per load (0 = unlimited)
	MaxWarnings int

	// Chart layout and hover behaviour
	Chart   chart.Options
	Tooltip *tooltip.Tooltip

	// Indicator, when set, reflects the outcome of Draw
	Indicator *tracker.Indicator

	// Progress receives load progress lines (nil = none)
	Progress io.Writer

	HTTPClient *http.Client
	Logger     *slog.Logger
}

type renderIDKey struct{}

// WithRenderID makes Draw and Redraw on ctx log under id instead of a fresh one
func WithRenderID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, renderIDKey{}, id)
}

func renderID(ctx context.Context) string {
	if id, ok := ctx.Value(renderIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

type cacheEntry struct {
	stamp    reader.Stamp
	dataset  models.Dataset
	summary  models.LoadSummary
	warnings *errors.Collector
}

// New creates a pipeline
func New(config Config) *Pipeline {
	if config.CountField == "" {
		config.CountField = processor.DefaultCountField
	}
	if config.LabelField == "" {
		config.LabelField = processor.DefaultLabelField
	}
	if config.Chart.Height == 0 {
		config.Chart = chart.DefaultOptions()
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}

	return &Pipeline{
		config:    config,
		validator: processor.NewRecordValidator(config.CountField, config.LabelField),
		logger:    config.Logger,
		cache:     make(map[string]cacheEntry),
	}
}

// Load reads, validates and sorts source. Zero surviving rows is an
// *errors.EmptyDatasetError; anything that stops the read is an
// *errors.LoadError.
func (p *Pipeline) Load(ctx context.Context, source string) (models.Dataset, error) {
	return p.load(ctx, source, p.logger)
}

func (p *Pipeline) load(ctx context.Context, source string, logger *slog.Logger) (models.Dataset, error) {
	logger = logger.With("source", source)

	stamp, cacheable := reader.StatSource(source)
	cacheable = cacheable && !p.config.ReloadOnResize

	if cacheable {
		p.mu.Lock()
		entry, ok := p.cache[source]
		p.mu.Unlock()

		if ok && entry.stamp.Equal(stamp) {
			summary := entry.summary
			summary.Cached = true
			p.setLast(&summary, entry.warnings)
			logger.Debug("dataset served from cache", "records", entry.dataset.Len())
			return entry.dataset, nil
		}
	}

	ds, summary, warnings, err := p.read(ctx, source, logger)
	p.setLast(summary, warnings)
	if err != nil {
		return models.Dataset{}, err
	}

	if cacheable {
		p.mu.Lock()
		p.cache[source] = cacheEntry{stamp: stamp, dataset: ds, summary: *summary, warnings: warnings}
		p.mu.Unlock()
	}

	return ds, nil
}

// read runs reader -> worker pool -> collector for one source
func (p *Pipeline) read(ctx context.Context, source string, logger *slog.Logger) (models.Dataset, *models.LoadSummary, *errors.Collector, error) {
	if p.config.LoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.LoadTimeout)
		defer cancel()
	}

	summary := models.NewLoadSummary(source)
	warnings := errors.NewCollector(errors.CollectorConfig{MaxEntries: p.config.MaxWarnings})

	progress := tracker.NewLoadTracker(tracker.Config{Writer: p.config.Progress})
	if p.config.Progress != nil {
		if err := progress.Start(); err != nil {
			return models.Dataset{}, summary, warnings, fmt.Errorf("start progress: %w", err)
		}
		defer progress.StopAndPrintFinal()
	}

	csvReader := reader.NewCSVReader(reader.Config{
		Source:     source,
		BufferSize: p.config.BufferSize,
		HTTPClient: p.config.HTTPClient,
	})
	rowCh, readErrCh := csvReader.Read(ctx)

	pool := worker.NewPool(worker.Config{
		Context:          ctx,
		Workers:          p.config.Workers,
		Processor:        p.validator,
		InputChannel:     rowCh,
		OutputBufferSize: p.config.BufferSize,
	})
	if err := pool.Start(); err != nil {
		return models.Dataset{}, summary, warnings, fmt.Errorf("start worker pool: %w", err)
	}

	var records []models.Record
	headerChecked := false
	for result := range pool.Results() {
		if !headerChecked && result.Row != nil {
			headerChecked = true
			if missing := reader.MissingColumns(result.Row.Headers, p.config.CountField, p.config.LabelField); len(missing) > 0 {
				logger.Warn("required columns missing", "columns", missing)
			}
			if dups := reader.DuplicateColumns(result.Row.Headers); len(dups) > 0 {
				logger.Warn("duplicate columns, using the last of each", "columns", dups)
			}
		}

		summary.AddResult(result)
		progress.RecordResult(result)
		warnings.IncrementProcessed()

		if result.IsKept() {
			records = append(records, result.Record)
			continue
		}

		warnings.Add(result.Error, result.Row)
		var w *errors.RowWarning
		if stderrors.As(result.Error, &w) {
			logger.Warn("row discarded",
				"line", w.Line,
				"field", w.Field,
				"value", w.Value,
				"reason", w.Message)
		}
	}

	if logger.Enabled(ctx, slog.LevelDebug) {
		for _, ws := range pool.Stats() {
			logger.Debug("worker done", "worker", ws.ID, "kept", ws.Kept, "discarded", ws.Discarded)
		}
	}

	var workerErr error
	for err := range pool.Errors() {
		if workerErr == nil {
			workerErr = err
		}
	}

	// A stopped pool leaves the reader blocked on a full channel until ctx
	// ends; drain so its goroutine can exit.
	for range rowCh {
	}
	readErr := <-readErrCh

	summary.Finalize()

	switch {
	case readErr != nil:
		logger.Error("load failed", "error", readErr)
		return models.Dataset{}, summary, warnings, readErr
	case workerErr != nil:
		err := errors.NewLoadError("validate", source, 0, workerErr)
		logger.Error("load failed", "error", err)
		return models.Dataset{}, summary, warnings, err
	case ctx.Err() != nil:
		err := errors.NewLoadError("load", source, 0, ctx.Err())
		logger.Error("load failed", "error", err)
		return models.Dataset{}, summary, warnings, err
	}

	logger.Info("rows read",
		"rows", summary.RowsRead,
		"kept", summary.Kept,
		"discarded", summary.Discarded,
		"duration", summary.Duration)

	if len(records) == 0 {
		err := &errors.EmptyDatasetError{Source: reader.SourceName(source), RowsRead: summary.RowsRead}
		logger.Warn("nothing to draw", "error", err)
		return models.Dataset{}, summary, warnings, err
	}

	ds := models.NewDataset(records)
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		for _, rec := range ds.Records {
			logger.Debug("clean record", "cause", rec.Cause, "count", rec.PatientCount, "line", rec.LineNumber)
		}
	}

	return ds, summary, warnings, nil
}

// Render draws ds onto surface, replacing whatever it showed before
func (p *Pipeline) Render(surface chart.Surface, ds models.Dataset) (*chart.Frame, error) {
	return p.render(surface, ds, p.logger)
}

func (p *Pipeline) render(surface chart.Surface, ds models.Dataset, logger *slog.Logger) (*chart.Frame, error) {
	frame, err := chart.Render(surface, ds, p.config.Chart, p.config.Tooltip, logger)
	if err != nil {
		logger.Error("render failed", "error", err)
		return nil, err
	}
	return frame, nil
}

// Draw is one full render cycle: load source then render it onto surface.
// The indicator, if configured, shows loading and then the outcome.
func (p *Pipeline) Draw(ctx context.Context, surface chart.Surface, source string) (*chart.Frame, error) {
	logger := p.logger.With("render_id", renderID(ctx))

	if p.config.Indicator != nil {
		p.config.Indicator.Begin()
	}

	frame, err := p.cycle(ctx, surface, source, logger)

	if p.config.Indicator != nil {
		p.config.Indicator.Finish(err)
	}
	return frame, err
}

// Redraw is the resize path. It behaves like Draw but leaves the
// indicator alone; failures are only logged.
func (p *Pipeline) Redraw(ctx context.Context, surface chart.Surface, source string) (*chart.Frame, error) {
	logger := p.logger.With("render_id", renderID(ctx), "resize", true)
	return p.cycle(ctx, surface, source, logger)
}

func (p *Pipeline) cycle(ctx context.Context, surface chart.Surface, source string, logger *slog.Logger) (*chart.Frame, error) {
	ds, err := p.load(ctx, source, logger)
	if err != nil {
		surface.Clear()
		return nil, err
	}
	return p.render(surface, ds, logger)
}

// Invalidate drops the cached dataset for source
func (p *Pipeline) Invalidate(source string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.cache, source)
}

func (p *Pipeline) setLast(summary *models.LoadSummary, warnings *errors.Collector) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.summary = summary
	p.warnings = warnings
}

// Summary returns the summary of the most recent load
func (p *Pipeline) Summary() *models.LoadSummary {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.summary
}

// Warnings returns the discarded-row diagnostics of the most recent load
func (p *Pipeline) Warnings() *errors.Collector {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.warnings
}

// Tooltip returns the shared tooltip
func (p *Pipeline) Tooltip() *tooltip.Tooltip {
	return p.config.Tooltip
}

// PrintReport writes the discarded-row report of the most recent load
func (p *Pipeline) PrintReport(w io.Writer, details int) {
	warnings := p.Warnings()
	if warnings == nil || !warnings.HasEntries() {
		return
	}

	reporter := errors.NewReporter(warnings, w)
	reporter.PrintSummary()
	if warnings.Count() > details {
		reporter.PrintTopReasons(5)
	} else {
		reporter.PrintDetailed(details)
	}
}
