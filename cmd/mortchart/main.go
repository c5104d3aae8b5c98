package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/zuhrulumam/mortchart/internal/chart"
	"github.com/zuhrulumam/mortchart/internal/config"
	"github.com/zuhrulumam/mortchart/internal/models"
	"github.com/zuhrulumam/mortchart/internal/pipeline"
	"github.com/zuhrulumam/mortchart/internal/server"
	"github.com/zuhrulumam/mortchart/internal/terminal"
	"github.com/zuhrulumam/mortchart/internal/tooltip"
	"github.com/zuhrulumam/mortchart/internal/tracker"
)

var (
	// Version information
	version   = "1.0.0"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// Exit codes
const (
	exitOK    = 0
	exitFail  = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// globalOptions are the flags accepted before the command name
type globalOptions struct {
	configPath  string
	verbose     bool
	quiet       bool
	showVersion bool
}

// app is what every command needs once configuration is loaded
type app struct {
	cfg    *config.Config
	opts   globalOptions
	logger *slog.Logger
	stdout io.Writer
	stderr io.Writer
}

func run(args []string, stdout, stderr io.Writer) int {
	var opts globalOptions

	fs := flag.NewFlagSet("mortchart", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printUsage(stderr) }
	fs.StringVar(&opts.configPath, "config", "", "Config file path")
	fs.BoolVar(&opts.verbose, "verbose", false, "Verbose output")
	fs.BoolVar(&opts.quiet, "quiet", false, "Suppress all output except errors")
	fs.BoolVar(&opts.showVersion, "version", false, "Show version information")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	if opts.showVersion {
		printVersion(stdout)
		return exitOK
	}

	// Quiet mode overrides verbose
	if opts.quiet {
		opts.verbose = false
	}

	rest := fs.Args()
	if len(rest) == 0 {
		printUsage(stderr)
		return exitUsage
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error: %v\n", err)
		return exitFail
	}

	a := &app{cfg: cfg, opts: opts, stdout: stdout, stderr: stderr}
	a.logger = newLogger(stderr, a.level())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch rest[0] {
	case "render":
		return a.runRender(ctx, rest[1:])
	case "text":
		return a.runText(ctx, rest[1:])
	case "view":
		return a.runView(ctx, rest[1:])
	case "serve":
		return a.runServe(ctx, rest[1:])
	case "help":
		printUsage(stdout)
		return exitOK
	default:
		fmt.Fprintf(stderr, "mortchart: unknown command %q\n\n", rest[0])
		printUsage(stderr)
		return exitUsage
	}
}

func (a *app) level() slog.Level {
	switch {
	case a.opts.verbose:
		return slog.LevelDebug
	case a.opts.quiet:
		return slog.LevelError
	default:
		return a.cfg.Level()
	}
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// newPipeline builds a pipeline over the loaded config with chart geometry opts
func (a *app) newPipeline(opts chart.Options, indicator *tracker.Indicator, logger *slog.Logger) (*pipeline.Pipeline, error) {
	tip, err := tooltip.New(a.cfg.TooltipConfig())
	if err != nil {
		return nil, err
	}

	var progress io.Writer
	if a.opts.verbose {
		progress = a.stderr
	}

	return pipeline.New(pipeline.Config{
		CountField:     a.cfg.CountField,
		LabelField:     a.cfg.LabelField,
		Workers:        a.cfg.Workers,
		LoadTimeout:    a.cfg.LoadTimeout.Duration(),
		ReloadOnResize: a.cfg.ReloadOnResize,
		Chart:          opts,
		Tooltip:        tip,
		Indicator:      indicator,
		Progress:       progress,
		Logger:         logger,
	}), nil
}

// source is the command's positional argument, falling back to the config
func (a *app) source(fs *flag.FlagSet) (string, bool) {
	if fs.NArg() > 0 {
		return fs.Arg(0), true
	}
	if a.cfg.Source != "" {
		return a.cfg.Source, true
	}
	fmt.Fprintf(a.stderr, "mortchart %s: no source given and none configured\n", fs.Name())
	return "", false
}

func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

// fail reports a draw error the way the indicator would show it
func (a *app) fail(indicator *tracker.Indicator, err error) int {
	fmt.Fprintf(a.stderr, "mortchart: %s\n", indicator.Message())
	if !a.opts.quiet {
		fmt.Fprintf(a.stderr, "  %v\n", err)
	}
	return exitFail
}

func (a *app) runRender(ctx context.Context, args []string) int {
	fs := a.flagSet("render")
	output := fs.String("o", "", "Output file (.svg or .html, default: SVG on stdout)")
	width := fs.Float64("width", a.cfg.DefaultWidth, "Chart width")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	source, ok := a.source(fs)
	if !ok {
		return exitUsage
	}

	indicator := tracker.NewIndicator()
	p, err := a.newPipeline(a.cfg.ChartOptions(), indicator, a.logger)
	if err != nil {
		fmt.Fprintf(a.stderr, "Configuration error: %v\n", err)
		return exitFail
	}

	surface := chart.NewSVGSurface(*width)
	if _, err := p.Draw(ctx, surface, source); err != nil {
		p.PrintReport(a.stderr, 10)
		return a.fail(indicator, err)
	}

	svg, err := surface.Bytes()
	if err != nil {
		fmt.Fprintf(a.stderr, "Failed to encode chart: %v\n", err)
		return exitFail
	}

	var out io.Writer = a.stdout
	if *output != "" {
		file, err := os.Create(*output)
		if err != nil {
			fmt.Fprintf(a.stderr, "Failed to create output file: %v\n", err)
			return exitFail
		}
		defer file.Close()
		out = file
	}

	if strings.EqualFold(filepath.Ext(*output), ".html") {
		err = chart.WritePage(out, chart.PageData{
			SVG:     template.HTML(svg),
			Tooltip: p.Tooltip().Config(),
		})
	} else {
		_, err = out.Write(svg)
	}
	if err != nil {
		fmt.Fprintf(a.stderr, "Failed to write chart: %v\n", err)
		return exitFail
	}

	a.finish(p, *output)
	return exitOK
}

func (a *app) runText(ctx context.Context, args []string) int {
	stdoutFile, _ := a.stdout.(*os.File)

	fs := a.flagSet("text")
	width := fs.Int("width", terminal.Width(stdoutFile, terminal.DefaultWidth), "Chart width in columns")
	rows := fs.Int("rows", terminal.DefaultRows, "Chart height in lines")
	values := fs.Bool("values", true, "Print counts after the bars")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	source, ok := a.source(fs)
	if !ok {
		return exitUsage
	}

	indicator := tracker.NewIndicator()
	p, err := a.newPipeline(terminal.Options(*rows, a.cfg.BarColor), indicator, a.logger)
	if err != nil {
		fmt.Fprintf(a.stderr, "Configuration error: %v\n", err)
		return exitFail
	}

	surface := terminal.NewSurface(a.stdout, max(*width, terminal.MinWidth))
	surface.ShowValues = *values
	surface.Logger = a.logger
	if _, err := p.Draw(ctx, surface, source); err != nil {
		p.PrintReport(a.stderr, 10)
		return a.fail(indicator, err)
	}

	if _, err := surface.WriteTo(a.stdout); err != nil {
		fmt.Fprintf(a.stderr, "Failed to write chart: %v\n", err)
		return exitFail
	}

	a.finish(p, "")
	return exitOK
}

func (a *app) runView(ctx context.Context, args []string) int {
	fs := a.flagSet("view")
	rows := fs.Int("rows", terminal.DefaultRows, "Chart height in lines")
	logPath := fs.String("log", "", "Write the diagnostic log to FILE (default: discarded)")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	source, ok := a.source(fs)
	if !ok {
		return exitUsage
	}

	// The alternate screen owns the terminal, so logs go to a file or nowhere
	logger := slog.New(slog.DiscardHandler)
	if *logPath != "" {
		file, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(a.stderr, "Failed to open log file: %v\n", err)
			return exitFail
		}
		defer file.Close()
		logger = newLogger(file, a.level())
	}

	indicator := tracker.NewIndicator()
	opts := terminal.Options(*rows, a.cfg.BarColor)
	p, err := a.newPipeline(opts, indicator, logger)
	if err != nil {
		fmt.Fprintf(a.stderr, "Configuration error: %v\n", err)
		return exitFail
	}

	surface := terminal.NewSurface(a.stdout, terminal.DefaultWidth)
	surface.Logger = logger

	model := terminal.NewModel(ctx, terminal.ModelConfig{
		Pipeline:  p,
		Source:    source,
		Surface:   surface,
		Indicator: indicator,
	})
	if err := terminal.Run(ctx, model); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(a.stderr, "mortchart view: %v\n", err)
		return exitFail
	}
	return exitOK
}

func (a *app) runServe(ctx context.Context, args []string) int {
	fs := a.flagSet("serve")
	addr := fs.String("addr", a.cfg.Server.Addr, "Listen address")
	maxConcurrent := fs.Int("max-concurrent", a.cfg.Server.MaxConcurrent, "Maximum simultaneous chart renders")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	source, ok := a.source(fs)
	if !ok {
		return exitUsage
	}

	// Every request draws onto its own surface; the page shows the status
	p, err := a.newPipeline(a.cfg.ChartOptions(), nil, a.logger)
	if err != nil {
		fmt.Fprintf(a.stderr, "Configuration error: %v\n", err)
		return exitFail
	}

	if !a.opts.quiet {
		printServeInfo(a.stderr, source, *addr, *maxConcurrent)
	}

	srv := server.New(p, server.Config{
		Source:        source,
		DefaultWidth:  a.cfg.DefaultWidth,
		MaxConcurrent: *maxConcurrent,
		Logger:        a.logger,
	})
	if err := srv.ListenAndServe(ctx, *addr); err != nil {
		fmt.Fprintf(a.stderr, "Server failed: %v\n", err)
		return exitFail
	}
	return exitOK
}

// finish prints the post-draw output: the tracker banner and row report in
// verbose mode, a short summary otherwise
func (a *app) finish(p *pipeline.Pipeline, output string) {
	switch {
	case a.opts.quiet:
	case a.opts.verbose:
		p.PrintReport(a.stderr, 10)
	default:
		if s := p.Summary(); s != nil {
			printSummary(a.stderr, s, output)
		}
	}
}

// printUsage prints usage information
func printUsage(w io.Writer) {
	fmt.Fprintf(w, `mortchart - Mortality by cause bar charts

Usage:
  mortchart [global options] <command> [options] [source]

Commands:
  render   Render the chart as SVG or a standalone HTML page
  text     Print the chart to the terminal
  view     Interactive terminal chart with hover and resize
  serve    Serve the chart over HTTP, redrawn to the browser width

Global options:
  -config FILE   Config file (default: ./.mortchart.yaml, then $XDG_CONFIG_HOME/mortchart/config.yaml)
  -verbose       Debug logging, load progress and discarded row report
  -quiet         Suppress all output except errors
  -version       Show version information

Render options:
  -o FILE        Output file, .svg or .html (default: SVG on stdout)
  -width N       Chart width (default: default_width from config)

Text options:
  -width N       Columns (default: terminal width)
  -rows N        Lines (default: 24)
  -values        Print counts after the bars (default: true)

View options:
  -rows N        Lines (default: 24)
  -log FILE      Diagnostic log file (default: discarded)

Serve options:
  -addr ADDR            Listen address (default: :8080)
  -max-concurrent N     Simultaneous renders (default: 4)

The source is a CSV path or http(s) URL with the columns mortalidad and
numero_pacientes. When omitted, the source from the config file is used.

Examples:
  # Write an SVG
  mortchart render -o chart.svg data/mortality.csv

  # Standalone page with hover tooltips
  mortchart render -o chart.html -width 1200 data/mortality.csv

  # Quick look in the terminal
  mortchart text data/mortality.csv

  # Serve with debug logging
  mortchart -verbose serve -addr :9000 https://example.org/mortality.csv
`)
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "mortchart version %s\n", version)
	fmt.Fprintf(w, "Build time: %s\n", buildTime)
	fmt.Fprintf(w, "Git commit: %s\n", gitCommit)
	fmt.Fprintf(w, "Go version: %s\n", runtime.Version())
	fmt.Fprintf(w, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// printServeInfo prints server startup information
func printServeInfo(w io.Writer, source, addr string, maxConcurrent int) {
	fmt.Fprintln(w, "========================================")
	fmt.Fprintln(w, "mortchart Server Starting")
	fmt.Fprintln(w, "========================================")
	fmt.Fprintf(w, "Source:         %s\n", source)
	fmt.Fprintf(w, "Address:        %s\n", addr)
	fmt.Fprintf(w, "Max Renders:    %d\n", maxConcurrent)
	fmt.Fprintln(w, "========================================")
	fmt.Fprintln(w)
}

// printSummary prints the load summary of a finished draw
func printSummary(w io.Writer, s *models.LoadSummary, output string) {
	fmt.Fprintln(w, "========================================")
	fmt.Fprintln(w, "Chart Summary")
	fmt.Fprintln(w, "========================================")
	fmt.Fprintf(w, "Source:           %s\n", s.Source)
	fmt.Fprintf(w, "Rows Read:        %d\n", s.RowsRead)
	fmt.Fprintf(w, "Bars Drawn:       %d (%.1f%%)\n", s.Kept, s.KeptRate())
	fmt.Fprintf(w, "Discarded:        %d\n", s.Discarded)
	fmt.Fprintf(w, "Duration:         %s\n", s.Duration.Round(time.Millisecond))
	if output != "" {
		fmt.Fprintf(w, "Output File:      %s\n", output)
	}
	fmt.Fprintln(w, "========================================")
}
