package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.Segmentation.Enabled)
	assert.Equal(t, 0.05, cfg.Processing.ProfileWindowProportion)
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestSaveAndLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Processing.NumCores = 3
	cfg.Processing.MedianLength = 150
	cfg.Segmentation.MinimumSpacing = 25
	cfg.Output.Directory = "results"
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadConfigPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("segmentation:\n  enabled: false\n"), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.False(t, cfg.Segmentation.Enabled)
	assert.Equal(t, 5, cfg.Segmentation.ExtremumWindow, "unset fields keep defaults")
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"no cores", func(c *Config) { c.Processing.NumCores = 0 }, "NumCores"},
		{"window too wide", func(c *Config) { c.Processing.ProfileWindowProportion = 0.6 }, "ProfileWindowProportion"},
		{"tiny median", func(c *Config) { c.Processing.MedianLength = 2 }, "MedianLength"},
		{"no extremum window", func(c *Config) { c.Segmentation.ExtremumWindow = 0 }, "ExtremumWindow"},
		{"no output", func(c *Config) { c.Output.Directory = "" }, "Directory"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)

			var verrs validator.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.Equal(t, tt.field, verrs[0].Field())
		})
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("processing:\n  numCores: -1\n"), 0644))
	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestCreateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, CreateDefaultConfigFile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "profileWindowProportion: 0.05")
}
