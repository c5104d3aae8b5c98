package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zuhrulumam/mortchart/internal/chart"
	"github.com/zuhrulumam/mortchart/internal/processor"
	"github.com/zuhrulumam/mortchart/internal/tooltip"
)

// Duration is a time.Duration that unmarshals from YAML strings (e.g. "200ms").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration back in its string form.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the standard time.Duration.
func (d Duration) Duration() time.Duration { return time.Duration(d) }

// Margins around the plot area
type Margins struct {
	Top    float64 `yaml:"top"`
	Right  float64 `yaml:"right"`
	Bottom float64 `yaml:"bottom"`
	Left   float64 `yaml:"left"`
}

// Tooltip timing and placement
type Tooltip struct {
	ShowOpacity  float64  `yaml:"show_opacity"`
	ShowDuration Duration `yaml:"show_duration"`
	HideDuration Duration `yaml:"hide_duration"`
	OffsetX      float64  `yaml:"offset_x"`
	OffsetY      float64  `yaml:"offset_y"`
}

// Server holds HTTP settings
type Server struct {
	Addr          string `yaml:"addr"`
	MaxConcurrent int    `yaml:"max_concurrent"`
}

// Config is the application configuration read from .mortchart.yaml
type Config struct {
	Source     string `yaml:"source"`
	CountField string `yaml:"count_field"`
	LabelField string `yaml:"label_field"`

	Margins      Margins `yaml:"margins"`
	FixedHeight  float64 `yaml:"fixed_height"`
	DefaultWidth float64 `yaml:"default_width"`

	BarColor      string  `yaml:"bar_color"`
	HoverColor    string  `yaml:"hover_color"`
	TooltipFormat string  `yaml:"tooltip_format"`
	Tooltip       Tooltip `yaml:"tooltip"`

	Workers        int      `yaml:"workers"`
	ReloadOnResize bool     `yaml:"reload_on_resize"`
	LoadTimeout    Duration `yaml:"load_timeout"`
	LogLevel       string   `yaml:"log_level"`

	Server Server `yaml:"server"`

	// Path is the file the config was read from, empty for defaults
	Path string `yaml:"-"`
}

// FileName is the per-directory config file
const FileName = ".mortchart.yaml"

// Default returns the built-in configuration
func Default() *Config {
	tip := tooltip.DefaultConfig()
	return &Config{
		CountField:    processor.DefaultCountField,
		LabelField:    processor.DefaultLabelField,
		Margins:       Margins{Top: 20, Right: 30, Bottom: 40, Left: 90},
		FixedHeight:   600,
		DefaultWidth:  960,
		BarColor:      tip.BarColor,
		HoverColor:    tip.HoverColor,
		TooltipFormat: tip.Format,
		Tooltip: Tooltip{
			ShowOpacity:  tip.ShowOpacity,
			ShowDuration: Duration(tip.ShowDuration),
			HideDuration: Duration(tip.HideDuration),
			OffsetX:      tip.OffsetX,
			OffsetY:      tip.OffsetY,
		},
		LogLevel: "info",
		Server: Server{
			Addr:          ":8080",
			MaxConcurrent: 4,
		},
	}
}

// Parse reads YAML over the defaults; keys absent from data keep their default.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Locations returns the config files searched when no path is given
func Locations() []string {
	locations := []string{FileName}

	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".config")
		}
	}
	if dir != "" {
		locations = append(locations, filepath.Join(dir, "mortchart", "config.yaml"))
	}
	return locations
}

// Load reads the config at path, or the first file found in Locations when
// path is empty. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	candidates := Locations()
	if path != "" {
		candidates = []string{path}
	}

	cfg := Default()
	for _, location := range candidates {
		data, err := os.ReadFile(location)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) && path == "" {
				continue
			}
			return nil, fmt.Errorf("read config %s: %w", location, err)
		}

		parsed, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", location, err)
		}
		cfg = parsed
		cfg.Path = location
		break
	}

	applyEnvironmentOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvironmentOverrides(cfg *Config) {
	if val := os.Getenv("MORTCHART_SOURCE"); val != "" {
		cfg.Source = val
	}
	if val := os.Getenv("MORTCHART_LOG_LEVEL"); val != "" {
		cfg.LogLevel = val
	}
	if val := os.Getenv("MORTCHART_ADDR"); val != "" {
		cfg.Server.Addr = val
	}
	if val := os.Getenv("MORTCHART_WORKERS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil && i > 0 {
			cfg.Workers = i
		}
	}
	if val := os.Getenv("MORTCHART_RELOAD_ON_RESIZE"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.ReloadOnResize = b
		}
	}
}

// Validate rejects values that cannot produce a chart
func (c *Config) Validate() error {
	switch {
	case c.CountField == "":
		return fmt.Errorf("count_field must not be empty")
	case c.LabelField == "":
		return fmt.Errorf("label_field must not be empty")
	case c.FixedHeight <= 0:
		return fmt.Errorf("fixed_height must be positive, got %v", c.FixedHeight)
	case c.DefaultWidth <= 0:
		return fmt.Errorf("default_width must be positive, got %v", c.DefaultWidth)
	case c.Margins.Top < 0 || c.Margins.Right < 0 || c.Margins.Bottom < 0 || c.Margins.Left < 0:
		return fmt.Errorf("margins must not be negative")
	case c.Workers < 0:
		return fmt.Errorf("workers must not be negative")
	case c.LoadTimeout < 0:
		return fmt.Errorf("load_timeout must not be negative")
	case c.Server.MaxConcurrent < 0:
		return fmt.Errorf("server.max_concurrent must not be negative")
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ChartOptions returns the chart geometry
func (c *Config) ChartOptions() chart.Options {
	opts := chart.DefaultOptions()
	opts.Margins = chart.Margins{
		Top:    c.Margins.Top,
		Right:  c.Margins.Right,
		Bottom: c.Margins.Bottom,
		Left:   c.Margins.Left,
	}
	opts.Height = c.FixedHeight
	opts.BarColor = c.BarColor
	return opts
}

// TooltipConfig returns the hover settings
func (c *Config) TooltipConfig() tooltip.Config {
	return tooltip.Config{
		ShowOpacity:  c.Tooltip.ShowOpacity,
		ShowDuration: c.Tooltip.ShowDuration.Duration(),
		HideDuration: c.Tooltip.HideDuration.Duration(),
		OffsetX:      c.Tooltip.OffsetX,
		OffsetY:      c.Tooltip.OffsetY,
		BarColor:     c.BarColor,
		HoverColor:   c.HoverColor,
		Format:       c.TooltipFormat,
	}
}

// Level returns the configured slog level
func (c *Config) Level() slog.Level {
	level, _ := ParseLevel(c.LogLevel)
	return level
}

// ParseLevel maps debug, info, warn and error to slog levels
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log_level %q", s)
	}
}
