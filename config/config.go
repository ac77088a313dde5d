// Package config holds the settings of a conversion run and loads them
// from a JSON file.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/wudi/notekit/assemble"
	"github.com/wudi/notekit/band"
	"github.com/wudi/notekit/trace"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config is the complete set of knobs. Zero values are not meaningful;
// start from Default.
type Config struct {
	// Ranges maps a band name to its closed intensity interval [lo, hi].
	// Bands left out keep their default range.
	Ranges map[string][2]int `json:"ranges,omitempty"`
	// Palette maps a band name to "#RRGGBB", "#RRGGBBAA" or "transparent".
	Palette map[string]string `json:"palette,omitempty"`

	Trace TraceConfig `json:"trace"`

	// Workers bounds the page workers; zero means one per CPU.
	Workers int `json:"workers"`
	// Partial keeps converting a file when one of its pages fails.
	Partial bool `json:"partial"`
	// Policy is "abort" or "exclude-failed" for failed inputs of a merge.
	Policy string `json:"policy"`
	// IncludeBackground also draws the page template layer (BGLAYER).
	IncludeBackground bool `json:"include_background"`

	Pages  string `json:"pages,omitempty"`
	Filter string `json:"filter,omitempty"`

	Titles TitlesConfig `json:"titles"`
	Output OutputConfig `json:"output"`
}

type TraceConfig struct {
	Smooth    bool    `json:"smooth"`
	Tolerance float64 `json:"tolerance"`
	AlphaMax  float64 `json:"alpha_max"`
	TurdSize  int     `json:"turd_size"`
}

type TitlesConfig struct {
	OCR       bool     `json:"ocr"`
	Languages []string `json:"languages,omitempty"`
	// Sheet is a Markdown title sheet consulted before OCR.
	Sheet string `json:"sheet,omitempty"`
	// Cache is a JSON file of remembered transcriptions.
	Cache string `json:"cache,omitempty"`
}

type OutputConfig struct {
	Compression int  `json:"compression"`
	EvenOdd     bool `json:"even_odd"`
	// Font is a TrueType file used for the hidden title text.
	Font   string `json:"font,omitempty"`
	Author string `json:"author,omitempty"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	opts := trace.DefaultOptions()
	return Config{
		Trace: TraceConfig{
			Smooth:    opts.Smooth,
			Tolerance: opts.Tolerance,
			AlphaMax:  opts.AlphaMax,
			TurdSize:  opts.TurdSize,
		},
		Policy: assemble.AbortOnFailure.String(),
		Titles: TitlesConfig{Languages: []string{"eng"}},
		Output: OutputConfig{Compression: 6},
	}
}

// Load reads path on top of Default.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(bytes.NewReader(data))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a JSON document on top of Default. Unknown fields are
// rejected so that typos do not pass silently.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every field that can be checked without touching the
// file system.
func (c Config) Validate() error {
	if _, err := c.Bands(); err != nil {
		return err
	}
	if _, err := c.MergePolicy(); err != nil {
		return err
	}
	switch {
	case c.Workers < 0:
		return fmt.Errorf("%w: workers must not be negative", ErrInvalidConfig)
	case c.Trace.Tolerance < 0 || c.Trace.AlphaMax < 0 || c.Trace.TurdSize < 0:
		return fmt.Errorf("%w: trace settings must not be negative", ErrInvalidConfig)
	case c.Output.Compression < -1 || c.Output.Compression > 9:
		return fmt.Errorf("%w: compression %d outside -1..9", ErrInvalidConfig, c.Output.Compression)
	}
	return nil
}

// Bands builds the banding configuration from Ranges and Palette.
func (c Config) Bands() (*band.Config, error) {
	ranges := band.DefaultRanges()
	for name, r := range c.Ranges {
		b, err := band.ParseBand(name)
		if err != nil {
			return nil, fmt.Errorf("%w: ranges: %v", ErrInvalidConfig, err)
		}
		if r[0] < 0 || r[1] > 0xFF || r[0] > r[1] {
			return nil, fmt.Errorf("%w: ranges: %s [%d,%d] outside 0..255", ErrInvalidConfig, name, r[0], r[1])
		}
		ranges[b] = band.Range{Lo: uint8(r[0]), Hi: uint8(r[1])}
	}
	palette := band.DefaultPalette()
	for name, s := range c.Palette {
		b, err := band.ParseBand(name)
		if err != nil {
			return nil, fmt.Errorf("%w: palette: %v", ErrInvalidConfig, err)
		}
		col, err := band.ParseColor(s)
		if err != nil {
			return nil, fmt.Errorf("%w: palette: %v", ErrInvalidConfig, err)
		}
		palette[b] = col
	}
	cfg, err := band.NewConfig(ranges, palette)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// TraceOptions converts the trace section.
func (c Config) TraceOptions() trace.Options {
	return trace.Options{
		Smooth:    c.Trace.Smooth,
		Tolerance: c.Trace.Tolerance,
		AlphaMax:  c.Trace.AlphaMax,
		TurdSize:  c.Trace.TurdSize,
	}
}

// MergePolicy parses Policy.
func (c Config) MergePolicy() (assemble.Policy, error) {
	switch strings.ToLower(strings.TrimSpace(c.Policy)) {
	case "", "abort":
		return assemble.AbortOnFailure, nil
	case "exclude-failed", "exclude":
		return assemble.ExcludeFailed, nil
	}
	return 0, fmt.Errorf("%w: policy %q", ErrInvalidConfig, c.Policy)
}
