package config

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esimov/backdrop"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, backdrop.FilterNone, cfg.FilterKind())
	assert.Equal(t, backdrop.ResampleNearest, cfg.Resampler())
	assert.Nil(t, cfg.Remover())
}

func TestLoadYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := writeFile(t, dir, "backdrop.yaml", `
filter: sepia
background_color: blue
key_color: "#00ff00"
key_tolerance: 25
workers: 2
`)
	writeFile(t, dir, ".env", "BACKDROP_RESAMPLE=bilinear\n")
	t.Cleanup(func() { os.Unsetenv("BACKDROP_RESAMPLE") })
	t.Setenv("BACKDROP_WORKERS", "8")
	t.Setenv("BACKDROP_DEBUG", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, backdrop.FilterSepia, cfg.FilterKind())
	assert.Equal(t, backdrop.ResampleBilinear, cfg.Resampler())
	assert.Equal(t, 8, cfg.Workers)
	assert.True(t, cfg.Debug)
	assert.Equal(t, backdrop.ColorKey{Key: color.NRGBA{G: 0xff, A: 0xff}, Tolerance: 25}, cfg.Remover())
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := writeFile(t, dir, "bad.yaml", "filter: [")
	_, err = Load(bad)
	assert.Error(t, err)

	t.Setenv("BACKDROP_WORKERS", "many")
	_, err = Load("")
	var cfgErr *Error
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "BACKDROP_WORKERS", cfgErr.Field)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		field  string
		mutate func(*Config)
	}{
		{"filter", func(c *Config) { c.Filter = "blur" }},
		{"resample", func(c *Config) { c.Resample = "lanczos" }},
		{"background_color", func(c *Config) { c.BackgroundColor = "not-a-colour" }},
		{"key_color", func(c *Config) { c.KeyColor = "#12" }},
		{"key_tolerance", func(c *Config) { c.KeyTolerance = 300 }},
		{"workers", func(c *Config) { c.Workers = 0 }},
		{"background", func(c *Config) { c.Background = "bg.png"; c.BackgroundColor = "red" }},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			var cfgErr *Error
			require.ErrorAs(t, cfg.Validate(), &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
	assert.NoError(t, Default().Validate())
}

func TestParseColor(t *testing.T) {
	tests := map[string]color.NRGBA{
		"blue":    {B: 0xff, A: 0xff},
		"Red":     {R: 0xff, A: 0xff},
		"green":   {G: 0x80, A: 0xff},
		"#0a0b0c": {R: 0x0a, G: 0x0b, B: 0x0c, A: 0xff},
		"#fff":    {R: 0xff, G: 0xff, B: 0xff, A: 0xff},
	}
	for in, want := range tests {
		got, err := ParseColor(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "#12345", "#zzzzzz", "sepia"} {
		_, err := ParseColor(in)
		assert.Error(t, err, in)
	}
}
