package config

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"os"

	"palette-porter/internal/algorithms/rangemask"
	"palette-porter/internal/algorithms/regiondiff"
	"palette-porter/internal/logger"

	"gopkg.in/yaml.v3"
)

// Config represents the complete palette-porter configuration
type Config struct {
	LogLevel string         `yaml:"log_level"` // debug, info, warn, error
	Transfer TransferConfig `yaml:"transfer"`
	Mask     MaskConfig     `yaml:"mask"`
	Diff     DiffConfig     `yaml:"diff"`
	Viewer   ViewerConfig   `yaml:"viewer"`
}

// TransferConfig holds the colour transfer defaults
type TransferConfig struct {
	Clip          bool `yaml:"clip"`
	PreservePaper bool `yaml:"preserve_paper"`
}

// MaskConfig holds the HSV range mask defaults
type MaskConfig struct {
	Lower  [3]int `yaml:"lower"`  // h, s, v
	Upper  [3]int `yaml:"upper"`  // h, s, v
	Output string `yaml:"output"` // masked, mask, inverted
}

// DiffConfig holds the region change detector settings
type DiffConfig struct {
	Regions          []RegionConfig `yaml:"regions"`
	DefaultThreshold float64        `yaml:"default_threshold"`
	MinArea          float64        `yaml:"min_area"`
	BlurKernel       int            `yaml:"blur_kernel"`
}

// RegionConfig is one watched rectangle
type RegionConfig struct {
	X         int     `yaml:"x"`
	Y         int     `yaml:"y"`
	Width     int     `yaml:"width"`
	Height    int     `yaml:"height"`
	Threshold float64 `yaml:"threshold"`
}

// ViewerConfig contains display settings
type ViewerConfig struct {
	Width int `yaml:"width"` // per-image width in pixels
}

func Default() *Config {
	return &Config{
		LogLevel: "info",
		Transfer: TransferConfig{
			Clip:          true,
			PreservePaper: true,
		},
		Mask: MaskConfig{
			Lower:  [3]int{0, 0, 255},
			Upper:  [3]int{255, 255, 255},
			Output: rangemask.OutputMasked,
		},
		Diff: DiffConfig{
			DefaultThreshold: 20,
			MinArea:          300,
			BlurKernel:       11,
		},
		Viewer: ViewerConfig{
			Width: 300,
		},
	}
}

// Load reads a YAML file over the defaults. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Parse(data []byte) (*Config, error) {
	cfg := Default()

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return err
	}

	if err := rangemask.NewProcessor(logger.NewNop()).ValidateParameters(c.MaskParams()); err != nil {
		return fmt.Errorf("mask: %w", err)
	}

	for i, r := range c.Diff.Regions {
		if r.Width <= 0 || r.Height <= 0 {
			return fmt.Errorf("diff: region %d must have positive size, got %dx%d", i, r.Width, r.Height)
		}
		if r.X < 0 || r.Y < 0 {
			return fmt.Errorf("diff: region %d origin must not be negative, got (%d,%d)", i, r.X, r.Y)
		}
	}

	if err := regiondiff.NewProcessor(logger.NewNop()).ValidateParameters(c.DiffParams()); err != nil {
		return fmt.Errorf("diff: %w", err)
	}

	if c.Viewer.Width <= 0 {
		return fmt.Errorf("viewer: width must be positive, got %d", c.Viewer.Width)
	}

	return nil
}

// TransferParams returns the Color Transfer algorithm parameters.
func (c *Config) TransferParams() map[string]interface{} {
	return map[string]interface{}{
		"clip":           c.Transfer.Clip,
		"preserve_paper": c.Transfer.PreservePaper,
	}
}

// MaskParams returns the Color Range Mask algorithm parameters.
func (c *Config) MaskParams() map[string]interface{} {
	return map[string]interface{}{
		"lower_h": c.Mask.Lower[0],
		"lower_s": c.Mask.Lower[1],
		"lower_v": c.Mask.Lower[2],
		"upper_h": c.Mask.Upper[0],
		"upper_s": c.Mask.Upper[1],
		"upper_v": c.Mask.Upper[2],
		"output":  c.Mask.Output,
	}
}

// DiffParams returns the Region Change algorithm parameters.
func (c *Config) DiffParams() map[string]interface{} {
	return map[string]interface{}{
		"regions":           c.Regions(),
		"default_threshold": c.Diff.DefaultThreshold,
		"min_area":          c.Diff.MinArea,
		"blur_kernel":       c.Diff.BlurKernel,
	}
}

// Regions converts the configured rectangles; a zero threshold means the
// default one.
func (c *Config) Regions() []regiondiff.Region {
	if len(c.Diff.Regions) == 0 {
		return nil
	}

	regions := make([]regiondiff.Region, 0, len(c.Diff.Regions))
	for _, r := range c.Diff.Regions {
		threshold := r.Threshold
		if threshold == 0 {
			threshold = c.Diff.DefaultThreshold
		}
		regions = append(regions, regiondiff.Region{
			Rect:      image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height),
			Threshold: threshold,
		})
	}
	return regions
}
