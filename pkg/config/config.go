// Package config provides configuration loading and management for morphoprofile.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// validate is shared by every Config; validator caches struct metadata.
var validate = validator.New()

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// NumCores specifies how many CPU cores to use for parallel processing
		NumCores int `yaml:"numCores" validate:"gte=1"`

		// ProfileWindowProportion is the fraction of the border either side of
		// a point used to measure its angle
		ProfileWindowProportion float64 `yaml:"profileWindowProportion" validate:"gt=0,lt=0.5"`

		// MedianLength overrides the consensus length. Zero uses the median
		// member length.
		MedianLength int `yaml:"medianLength" validate:"omitempty,gte=3"`
	} `yaml:"processing"`

	// Segmentation parameters
	Segmentation struct {
		// Enabled turns automatic segmentation of the consensus on or off
		Enabled bool `yaml:"enabled"`

		// SmoothingWindow is the half-width of the moving average applied
		// before boundary detection
		SmoothingWindow int `yaml:"smoothingWindow" validate:"gte=0"`

		// ExtremumWindow is the half-width used to detect turning points
		ExtremumWindow int `yaml:"extremumWindow" validate:"gte=1"`

		// MinimumSpacing is the least number of points between boundaries
		MinimumSpacing int `yaml:"minimumSpacing" validate:"gte=0"`
	} `yaml:"segmentation"`

	// Output parameters
	Output struct {
		// Directory receives the result file and charts
		Directory string `yaml:"directory" validate:"required"`

		// Plots determines whether consensus charts are rendered
		Plots bool `yaml:"plots"`

		// PlotWidth and PlotHeight size each chart, in centimetres
		PlotWidth  float64 `yaml:"plotWidth" validate:"gt=0"`
		PlotHeight float64 `yaml:"plotHeight" validate:"gt=0"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default processing parameters
	cfg.Processing.NumCores = runtime.NumCPU() // Use all available cores by default
	cfg.Processing.ProfileWindowProportion = 0.05
	cfg.Processing.MedianLength = 0

	// Set default segmentation parameters
	cfg.Segmentation.Enabled = true
	cfg.Segmentation.SmoothingWindow = 2
	cfg.Segmentation.ExtremumWindow = 5
	cfg.Segmentation.MinimumSpacing = 10

	// Set default output parameters
	cfg.Output.Directory = "output"
	cfg.Output.Plots = true
	cfg.Output.PlotWidth = 16
	cfg.Output.PlotHeight = 10
	cfg.Output.Verbose = false

	return cfg
}

// Validate checks every field against its constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
