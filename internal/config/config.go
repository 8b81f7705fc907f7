// Package config loads the settings of the backdrop command from a YAML file,
// an optional .env file and BACKDROP_* environment variables.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/image/colornames"
	"gopkg.in/yaml.v3"

	"github.com/esimov/backdrop"
)

// EnvPrefix is prepended to every environment variable read by Load.
const EnvPrefix = "BACKDROP_"

// Config holds the processing options of a run.
type Config struct {
	Filter          string `yaml:"filter"`
	Background      string `yaml:"background"`
	BackgroundColor string `yaml:"background_color"`
	KeyColor        string `yaml:"key_color"`
	KeyTolerance    int    `yaml:"key_tolerance"`
	Resample        string `yaml:"resample"`
	Workers         int    `yaml:"workers"`
	Debug           bool   `yaml:"debug"`
	LogFile         string `yaml:"log_file"`
}

// Error describes an invalid configuration value.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		Filter:       backdrop.FilterNone.String(),
		KeyTolerance: 40,
		Resample:     backdrop.ResampleNearest.String(),
		Workers:      4,
	}
}

// Load reads the YAML file at path (if not empty), then a .env file in the
// working directory (if present) and finally applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("unable to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("unable to parse config file %s: %w", path, err)
		}
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("unable to load .env file: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"FILTER":           &c.Filter,
		"BACKGROUND":       &c.Background,
		"BACKGROUND_COLOR": &c.BackgroundColor,
		"KEY_COLOR":        &c.KeyColor,
		"RESAMPLE":         &c.Resample,
		"LOG_FILE":         &c.LogFile,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"KEY_TOLERANCE": &c.KeyTolerance,
		"WORKERS":       &c.Workers,
	}
	for key, dst := range ints {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return &Error{Field: EnvPrefix + key, Message: fmt.Sprintf("%q is not a number", v)}
			}
			*dst = n
		}
	}

	if v, ok := os.LookupEnv(EnvPrefix + "DEBUG"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return &Error{Field: EnvPrefix + "DEBUG", Message: fmt.Sprintf("%q is not a boolean", v)}
		}
		c.Debug = b
	}
	return nil
}

// Validate checks that every option can be understood by the pipeline.
func (c Config) Validate() error {
	if _, err := backdrop.ParseFilterKind(c.Filter); err != nil {
		return &Error{Field: "filter", Message: err.Error()}
	}
	if _, err := backdrop.ParseResampler(c.Resample); err != nil {
		return &Error{Field: "resample", Message: err.Error()}
	}
	if c.BackgroundColor != "" {
		if _, err := ParseColor(c.BackgroundColor); err != nil {
			return &Error{Field: "background_color", Message: err.Error()}
		}
	}
	if c.KeyColor != "" {
		if _, err := ParseColor(c.KeyColor); err != nil {
			return &Error{Field: "key_color", Message: err.Error()}
		}
	}
	if c.KeyTolerance < 0 || c.KeyTolerance > 255 {
		return &Error{Field: "key_tolerance", Message: "must be between 0 and 255"}
	}
	if c.Workers < 1 {
		return &Error{Field: "workers", Message: "must be at least 1"}
	}
	if c.Background != "" && c.BackgroundColor != "" {
		return &Error{Field: "background", Message: "background and background_color are mutually exclusive"}
	}
	return nil
}

// ParseColor accepts an SVG colour name (blue, red, green...) or a hex
// triplet in the #rgb or #rrggbb form.
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := colornames.Map[s]; ok {
		return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}, nil
	}
	hex := strings.TrimPrefix(s, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.NRGBA{}, fmt.Errorf("unknown colour %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("unknown colour %q", s)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// FilterKind returns the configured filter.
func (c Config) FilterKind() backdrop.FilterKind {
	k, _ := backdrop.ParseFilterKind(c.Filter)
	return k
}

// Resampler returns the configured background resampler.
func (c Config) Resampler() backdrop.Resampler {
	r, _ := backdrop.ParseResampler(c.Resample)
	return r
}

// Remover returns a colour key remover when a key colour is configured,
// nil otherwise.
func (c Config) Remover() backdrop.Remover {
	if c.KeyColor == "" {
		return nil
	}
	key, _ := ParseColor(c.KeyColor)
	return backdrop.ColorKey{Key: key, Tolerance: uint8(c.KeyTolerance)}
}
