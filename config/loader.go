// Package config provides configuration loading and parsing functionality
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigFormat represents the configuration file format
type ConfigFormat string

const (
	FormatYAML ConfigFormat = "yaml"
	FormatJSON ConfigFormat = "json"
)

// DefaultEnvPrefix prefixes every environment override, e.g. SIMACTOR_LOG_LEVEL.
const DefaultEnvPrefix = "SIMACTOR"

// Loader handles configuration loading from various sources
type Loader struct {
	// Configuration search paths
	searchPaths []string

	// Environment variable prefix
	envPrefix string

	// Default configuration
	defaultConfig *Config

	// Environment lookup, os.LookupEnv unless replaced in tests
	lookupEnv func(string) (string, bool)
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	paths := []string{".", "./config", "./configs"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".simactor"))
	}

	return &Loader{
		searchPaths:   paths,
		envPrefix:     DefaultEnvPrefix,
		defaultConfig: DefaultConfig(),
		lookupEnv:     os.LookupEnv,
	}
}

// SetSearchPaths sets the configuration file search paths
func (l *Loader) SetSearchPaths(paths []string) *Loader {
	l.searchPaths = paths
	return l
}

// SetEnvPrefix sets the environment variable prefix
func (l *Loader) SetEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// SetDefaultConfig sets the default configuration
func (l *Loader) SetDefaultConfig(config *Config) *Loader {
	l.defaultConfig = config
	return l
}

// Load loads configuration from filename, or discovers one in the search
// paths when filename is empty.
func (l *Loader) Load(filename string) (*Config, error) {
	if filename == "" {
		return l.AutoLoad()
	}
	return l.LoadFromFile(filename)
}

// LoadFromFile loads configuration from a specific file. Fields the file
// leaves out keep their default values.
func (l *Loader) LoadFromFile(filename string) (*Config, error) {
	format, err := formatFromPath(filename)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigFileNotFound, filename)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config, err := l.parseConfig(data, format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	return l.finish(config)
}

// LoadFromReader loads configuration from an io.Reader
func (l *Loader) LoadFromReader(reader io.Reader, format ConfigFormat) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration data: %w", err)
	}

	config, err := l.parseConfig(data, format)
	if err != nil {
		return nil, err
	}

	return l.finish(config)
}

// AutoLoad automatically discovers and loads configuration, falling back
// to the defaults when no file is found.
func (l *Loader) AutoLoad() (*Config, error) {
	configFile, err := l.FindConfigFile()
	if errors.Is(err, ErrConfigFileNotFound) {
		return l.finish(l.defaults())
	}
	if err != nil {
		return nil, err
	}

	return l.LoadFromFile(configFile)
}

// FindConfigFile searches for configuration files in search paths
func (l *Loader) FindConfigFile() (string, error) {
	filenames := []string{
		"simactor.yaml", "simactor.yml",
		"config.yaml", "config.yml",
		"simactor.json", "config.json",
	}

	for _, searchPath := range l.searchPaths {
		for _, filename := range filenames {
			fullPath := filepath.Join(searchPath, filename)
			if info, err := os.Stat(fullPath); err == nil && !info.IsDir() {
				return fullPath, nil
			}
		}
	}

	return "", ErrConfigFileNotFound
}

// finish applies environment overrides and validates
func (l *Loader) finish(config *Config) (*Config, error) {
	if err := l.loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// defaults returns a private copy of the default configuration
func (l *Loader) defaults() *Config {
	base := l.defaultConfig
	if base == nil {
		base = DefaultConfig()
	}

	config := *base
	config.Custom = maps.Clone(base.Custom)
	if config.Custom == nil {
		config.Custom = make(map[string]interface{})
	}
	return &config
}

// parseConfig decodes data over a copy of the defaults
func (l *Loader) parseConfig(data []byte, format ConfigFormat) (*Config, error) {
	config := l.defaults()

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("%w: yaml: %w", ErrConfigParseError, err)
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(config); err != nil {
			return nil, fmt.Errorf("%w: json: %w", ErrConfigParseError, err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	return config, nil
}

// loadFromEnv loads configuration overrides from environment variables
func (l *Loader) loadFromEnv(config *Config) error {
	str := func(key string, dst *string) {
		if val, ok := l.env(key); ok {
			*dst = val
		}
	}

	var errs []error
	parse := func(key string, set func(string) error) {
		if val, ok := l.env(key); ok {
			if err := set(val); err != nil {
				errs = append(errs, fmt.Errorf("%w: %s_%s=%q: %w", ErrEnvironmentVarError, l.envPrefix, key, val, err))
			}
		}
	}

	// App configuration
	str("APP_NAME", &config.App.Name)
	str("APP_VERSION", &config.App.Version)
	if val, ok := l.env("APP_ENVIRONMENT"); ok {
		config.App.Environment = Environment(val)
	}
	parse("APP_DEBUG", func(v string) (err error) {
		config.App.Debug, err = strconv.ParseBool(v)
		return err
	})

	// Log configuration
	if val, ok := l.env("LOG_LEVEL"); ok {
		config.Log.Level = LogLevel(strings.ToLower(val))
	}
	str("LOG_FORMAT", &config.Log.Format)
	str("LOG_OUTPUT", &config.Log.Output)

	// Router configuration
	parse("ROUTER_PRINT_MESSAGES", func(v string) (err error) {
		config.Router.PrintMessages, err = strconv.ParseBool(v)
		return err
	})
	str("ROUTER_TRACE_FILE", &config.Router.TraceFile)
	parse("ROUTER_MAX_DISPATCHES", func(v string) (err error) {
		config.Router.MaxDispatches, err = strconv.ParseUint(v, 10, 64)
		return err
	})

	// Simulation configuration
	parse("SIMULATION_POPULATION", func(v string) (err error) {
		config.Simulation.Population, err = strconv.Atoi(v)
		return err
	})
	parse("SIMULATION_SEED", func(v string) (err error) {
		config.Simulation.Seed, err = strconv.ParseUint(v, 10, 64)
		return err
	})
	parse("SIMULATION_MAX_TIME", func(v string) (err error) {
		config.Simulation.MaxTime, err = strconv.ParseFloat(v, 64)
		return err
	})
	parse("SIMULATION_FORCE_OF_INFECTION", func(v string) (err error) {
		config.Simulation.ForceOfInfection, err = strconv.ParseFloat(v, 64)
		return err
	})
	parse("SIMULATION_INFECTION_DURATION", func(v string) (err error) {
		config.Simulation.InfectionDuration, err = strconv.ParseFloat(v, 64)
		return err
	})
	str("SIMULATION_REPORT_FILE", &config.Simulation.ReportFile)

	return errors.Join(errs...)
}

func (l *Loader) env(key string) (string, bool) {
	lookup := l.lookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	val, ok := lookup(l.envPrefix + "_" + key)
	if !ok || val == "" {
		return "", false
	}
	return val, true
}

// formatFromPath determines the format from the file extension
func formatFromPath(path string) (ConfigFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}
