// Package config provides configuration loading and management for photonpath.
// It handles loading run configurations from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"photonpath/internal/models"
	"photonpath/pkg/montecarlo"
	"photonpath/pkg/tissue"
)

// MaxPhotons is the largest photon count a single run may request
const MaxPhotons = 10000000

// Layer stack models
const (
	ModelCustom = "custom"
	ModelSingle = "single"
	ModelSkin   = "skin"
	ModelBrain  = "brain"
)

// ErrInvalidConfig is returned by Validate for unusable configurations
var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the application configuration loaded from YAML
type Config struct {
	// Simulation parameters
	Simulation struct {
		// Photons is the number of photon packets to trace
		Photons int `yaml:"photons"`

		// Seed is the master random seed, 0 picks one from the clock
		Seed uint64 `yaml:"seed"`

		// Workers specifies how many goroutines trace packets in parallel
		Workers int `yaml:"workers"`

		// AmbientIndex is the refractive index of the medium above the tissue
		AmbientIndex float64 `yaml:"ambientIndex"`

		// MaxSteps caps the number of steps of a single packet
		MaxSteps int `yaml:"maxSteps"`

		// Wavelength in nm, used for tissue lookups
		Wavelength float64 `yaml:"wavelength"`

		// Geometry is the source geometry
		Geometry string `yaml:"geometry"`
	} `yaml:"simulation"`

	// Binning is the spatial scoring grid
	Binning montecarlo.Binning `yaml:"binning"`

	// Tissue model parameters
	Tissue struct {
		// Database is a tissue table file; empty uses the built-in table
		Database string `yaml:"database"`

		// Model selects how the layer stack is built: custom, single, skin or brain
		Model string `yaml:"model"`

		// TissueID is the tissue of a single layer model
		TissueID string `yaml:"tissueId"`

		// MelaninFraction is the epidermal melanin volume fraction of the skin model
		MelaninFraction float64 `yaml:"melaninFraction"`

		// SkullThickness of the brain model in mm
		SkullThickness float64 `yaml:"skullThickness"`

		// GrayMatterThickness of the brain model in mm
		GrayMatterThickness float64 `yaml:"grayMatterThickness"`

		// IncludeSkull adds scalp, skull and CSF above the brain
		IncludeSkull bool `yaml:"includeSkull"`
	} `yaml:"tissue"`

	// Layers is the explicit layer stack of the custom model
	Layers []models.LayerSpec `yaml:"layers"`

	// Output parameters
	Output struct {
		// Directory receives all output files
		Directory string `yaml:"directory"`

		// WriteJSON writes the result summary as JSON
		WriteJSON bool `yaml:"writeJSON"`

		// WriteCSV writes the depth and radial fluence tables
		WriteCSV bool `yaml:"writeCSV"`

		// WritePlots renders the fluence map and the depth profile
		WritePlots bool `yaml:"writePlots"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default simulation parameters
	cfg.Simulation.Photons = 100000
	cfg.Simulation.Workers = runtime.NumCPU() // Use all available cores by default
	cfg.Simulation.AmbientIndex = 1.0
	cfg.Simulation.MaxSteps = montecarlo.DefaultMaxSteps
	cfg.Simulation.Wavelength = 630
	cfg.Simulation.Geometry = montecarlo.PencilBeam

	cfg.Binning = montecarlo.DefaultBinning()

	// Set default tissue parameters
	cfg.Tissue.Model = ModelSingle
	cfg.Tissue.TissueID = "brain_gray_matter"
	cfg.Tissue.MelaninFraction = tissue.DefaultMelaninFraction
	cfg.Tissue.SkullThickness = tissue.DefaultSkullThickness
	cfg.Tissue.GrayMatterThickness = tissue.DefaultGrayMatterThickness

	// Set default output parameters
	cfg.Output.Directory = "output"
	cfg.Output.WriteJSON = true
	cfg.Output.WriteCSV = true
	cfg.Output.WritePlots = false
	cfg.Output.Verbose = false

	return cfg
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

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

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

// Validate checks the limits that apply before a run is attempted. The
// physical parameters are validated by the simulator itself.
func (c *Config) Validate() error {
	if c.Simulation.Photons > MaxPhotons {
		return fmt.Errorf("%w: %d photons requested, at most %d allowed", ErrInvalidConfig, c.Simulation.Photons, MaxPhotons)
	}
	if c.Simulation.Wavelength <= 0 || math.IsNaN(c.Simulation.Wavelength) {
		return fmt.Errorf("%w: wavelength %g nm", ErrInvalidConfig, c.Simulation.Wavelength)
	}

	switch c.Tissue.Model {
	case ModelCustom:
		if len(c.Layers) == 0 {
			return fmt.Errorf("%w: custom model without layers", ErrInvalidConfig)
		}
	case ModelSingle:
		if c.Tissue.TissueID == "" {
			return fmt.Errorf("%w: single layer model without tissueId", ErrInvalidConfig)
		}
	case ModelSkin, ModelBrain:
	default:
		return fmt.Errorf("%w: unknown tissue model %q", ErrInvalidConfig, c.Tissue.Model)
	}

	return nil
}

// TissueDatabase opens the configured tissue table, or the built-in one
func (c *Config) TissueDatabase() (*tissue.Database, error) {
	if c.Tissue.Database == "" {
		return tissue.Default()
	}
	return tissue.Load(c.Tissue.Database)
}

// LayerStack builds the layers of the configured tissue model
func (c *Config) LayerStack(db *tissue.Database) ([]models.LayerSpec, error) {
	wl := c.Simulation.Wavelength

	switch c.Tissue.Model {
	case ModelCustom:
		return append([]models.LayerSpec(nil), c.Layers...), nil
	case ModelSingle:
		return tissue.SingleLayer(db, c.Tissue.TissueID, wl)
	case ModelSkin:
		return tissue.SkinModel(db, wl, c.Tissue.MelaninFraction)
	case ModelBrain:
		return tissue.BrainModel(db, wl, c.Tissue.SkullThickness, c.Tissue.GrayMatterThickness, c.Tissue.IncludeSkull)
	default:
		return nil, fmt.Errorf("%w: unknown tissue model %q", ErrInvalidConfig, c.Tissue.Model)
	}
}

// Params assembles simulator parameters from the configuration. The
// database is only consulted by the tissue based models and may be nil for
// a custom stack.
func (c *Config) Params(db *tissue.Database) (*montecarlo.Params, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if db == nil && c.Tissue.Model != ModelCustom {
		return nil, fmt.Errorf("%w: model %q needs a tissue database", ErrInvalidConfig, c.Tissue.Model)
	}

	layers, err := c.LayerStack(db)
	if err != nil {
		return nil, err
	}

	return &montecarlo.Params{
		Layers:       layers,
		Photons:      c.Simulation.Photons,
		AmbientIndex: c.Simulation.AmbientIndex,
		Binning:      c.Binning,
		Workers:      c.Simulation.Workers,
		Seed:         c.Simulation.Seed,
		MaxSteps:     c.Simulation.MaxSteps,
		Wavelength:   c.Simulation.Wavelength,
		Geometry:     c.Simulation.Geometry,
	}, nil
}
