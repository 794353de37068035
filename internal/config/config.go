// Package config handles etchplate settings: defaults, an optional YAML file and command
// line overrides.
package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/rneatherway/etchplate/grid"
	"github.com/rneatherway/etchplate/mesh"
	"github.com/rneatherway/etchplate/raster"
)

// FileName is the config file looked for when none is given explicitly.
const FileName = "etchplate.yaml"

// Overwrite policies for an existing output file.
const (
	OverwriteAsk    = "ask"
	OverwriteAlways = "always"
	OverwriteNever  = "never"
)

// Config holds all settings.
type Config struct {
	Plate   PlateConfig   `yaml:"plate"`
	Image   ImageConfig   `yaml:"image"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// PlateConfig holds the plate geometry.
type PlateConfig struct {
	Thickness  float64 `yaml:"thickness"`
	Depth      float64 `yaml:"depth"`
	PixelSize  float64 `yaml:"pixel_size"`
	PixelPitch float64 `yaml:"pixel_pitch"`
	Scale      float64 `yaml:"scale"`       // applied to the image before thresholding
	Border     int     `yaml:"border"`      // cells added around the image
	BorderFill string  `yaml:"border_fill"` // "recessed" or "raised"
}

// ImageConfig controls how the input image is loaded and thresholded.
type ImageConfig struct {
	Threshold int  `yaml:"threshold"`
	Dither    bool `yaml:"dither"`
	Invert    bool `yaml:"invert"`
	GDAL      bool `yaml:"gdal"` // read the image through GDAL
}

// OutputConfig controls the written file.
type OutputConfig struct {
	ASCII     bool   `yaml:"ascii"`
	Overwrite string `yaml:"overwrite"`
	Check     bool   `yaml:"check"` // inspect the mesh before writing it
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with the stock plate dimensions.
func Default() *Config {
	p := mesh.DefaultParams()
	o := raster.DefaultOptions()
	return &Config{
		Plate: PlateConfig{
			Thickness:  p.Thickness,
			Depth:      p.Depth,
			PixelSize:  p.PixelSize,
			PixelPitch: p.PixelPitch,
			Scale:      o.Scale,
			Border:     0,
			BorderFill: grid.Recessed.String(),
		},
		Image: ImageConfig{
			Threshold: int(o.Threshold),
			Dither:    o.Dither,
		},
		Output: OutputConfig{
			Overwrite: OverwriteAsk,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Params returns the mesh geometry.
func (c *Config) Params() mesh.Params {
	return mesh.Params{
		Thickness:  c.Plate.Thickness,
		Depth:      c.Plate.Depth,
		PixelSize:  c.Plate.PixelSize,
		PixelPitch: c.Plate.PixelPitch,
	}
}

// RasterOptions returns the image reduction settings.
func (c *Config) RasterOptions() raster.Options {
	return raster.Options{
		Scale:     c.Plate.Scale,
		Threshold: uint8(c.Image.Threshold),
		Dither:    c.Image.Dither,
		Invert:    c.Image.Invert,
	}
}

// BorderFill returns the state of the cells added around the image.
func (c *Config) BorderFill() grid.Pixel {
	p, _ := grid.ParsePixel(c.Plate.BorderFill)
	return p
}

// Validate checks everything the mesh builder does not.
func (c *Config) Validate() error {
	if err := c.Params().Validate(); err != nil {
		return err
	}
	switch {
	case !(c.Plate.Scale > 0):
		return errors.Errorf("scale %g must be positive", c.Plate.Scale)
	case c.Plate.Border < 0:
		return errors.Errorf("border %d must not be negative", c.Plate.Border)
	case c.Image.Threshold < 0 || c.Image.Threshold > 255:
		return errors.Errorf("threshold %d outside 0..255", c.Image.Threshold)
	}
	if _, err := grid.ParsePixel(c.Plate.BorderFill); err != nil {
		return errors.Wrap(err, "border_fill")
	}
	switch c.Output.Overwrite {
	case OverwriteAsk, OverwriteAlways, OverwriteNever:
	default:
		return errors.Errorf("unknown overwrite policy %q", c.Output.Overwrite)
	}
	return nil
}

// Load returns the defaults merged with the config file at path. An empty path looks for
// FileName in the working directory and then in ConfigDir; finding none is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, errors.Wrapf(err, "loading config from %s", path)
		}
	}
	return cfg, nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{FileName}
	if dir := ConfigDir(); dir != "" {
		candidates = append(candidates, filepath.Join(dir, FileName))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the per-user config directory, or "" if there is none.
func ConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "etchplate")
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Save writes the config to path as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
