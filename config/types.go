// Package config provides configuration management for simactor programs
package config

// Environment represents the deployment environment
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// String returns the string representation of Environment
func (e Environment) String() string {
	return string(e)
}

// IsValid checks if the environment is valid
func (e Environment) IsValid() bool {
	switch e {
	case EnvDevelopment, EnvTesting, EnvProduction:
		return true
	default:
		return false
	}
}

// LogLevel represents the logging level
type LogLevel string

const (
	LogLevelTrace LogLevel = "trace"
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// String returns the string representation of LogLevel
func (l LogLevel) String() string {
	return string(l)
}

// IsValid checks if the log level is valid
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelTrace, LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true
	default:
		return false
	}
}

// Config represents the complete program configuration
type Config struct {
	// Application configuration
	App AppConfig `yaml:"app" json:"app"`

	// Logging configuration
	Log LogConfig `yaml:"log" json:"log"`

	// Router diagnostics and limits
	Router RouterConfig `yaml:"router" json:"router"`

	// Model parameters
	Simulation SimulationConfig `yaml:"simulation" json:"simulation"`

	// Custom configurations (for user-defined models)
	Custom map[string]interface{} `yaml:"custom,omitempty" json:"custom,omitempty"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	// Application name
	Name string `yaml:"name" json:"name"`

	// Application version
	Version string `yaml:"version" json:"version"`

	// Deployment environment
	Environment Environment `yaml:"environment" json:"environment"`

	// Debug mode
	Debug bool `yaml:"debug" json:"debug"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	// Log level
	Level LogLevel `yaml:"level" json:"level"`

	// Log format (json, text)
	Format string `yaml:"format" json:"format"`

	// Output destination (stdout, stderr, file path)
	Output string `yaml:"output" json:"output"`

	// Include source file and line
	AddSource bool `yaml:"add_source" json:"add_source"`
}

// RouterConfig contains router configuration
type RouterConfig struct {
	// Print every dispatched envelope to stdout
	PrintMessages bool `yaml:"print_messages" json:"print_messages"`

	// Write a msgpack dispatch trace to this file
	TraceFile string `yaml:"trace_file,omitempty" json:"trace_file,omitempty"`

	// Abort a run after this many dispatches, 0 for unlimited
	MaxDispatches uint64 `yaml:"max_dispatches" json:"max_dispatches"`
}

// SimulationConfig contains the basic-infection model parameters
type SimulationConfig struct {
	// Number of people
	Population int `yaml:"population" json:"population"`

	// Random seed
	Seed uint64 `yaml:"seed" json:"seed"`

	// No infection attempts are scheduled after this time
	MaxTime float64 `yaml:"max_time" json:"max_time"`

	// Force of infection, attempts per unit time across the population
	ForceOfInfection float64 `yaml:"force_of_infection" json:"force_of_infection"`

	// Mean time spent infected
	InfectionDuration float64 `yaml:"infection_duration" json:"infection_duration"`

	// CSV incidence report path, stdout when empty
	ReportFile string `yaml:"report_file,omitempty" json:"report_file,omitempty"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "basic-infection",
			Version:     "1.0.0",
			Environment: EnvDevelopment,
			Debug:       false,
		},
		Log: LogConfig{
			Level:  LogLevelInfo,
			Format: "text",
			Output: "stderr",
		},
		Router: RouterConfig{
			PrintMessages: false,
			MaxDispatches: 0,
		},
		Simulation: SimulationConfig{
			Population:        1000,
			Seed:              123,
			MaxTime:           303.0,
			ForceOfInfection:  0.1,
			InfectionDuration: 5.0,
		},
		Custom: make(map[string]interface{}),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate app config
	if c.App.Name == "" {
		return ErrInvalidAppName
	}
	if !c.App.Environment.IsValid() {
		return ErrInvalidEnvironment
	}

	// Validate log config
	if !c.Log.Level.IsValid() {
		return ErrInvalidLogLevel
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return ErrInvalidLogFormat
	}

	// Validate simulation config
	sim := c.Simulation
	if sim.Population <= 0 {
		return ErrInvalidPopulation
	}
	if sim.MaxTime <= 0 {
		return ErrInvalidMaxTime
	}
	if sim.ForceOfInfection <= 0 {
		return ErrInvalidForceOfInfection
	}
	if sim.InfectionDuration <= 0 {
		return ErrInvalidInfectionDuration
	}

	return nil
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == EnvDevelopment
}

// GetLogLevel returns the log level, raised to debug in debug mode
func (c *Config) GetLogLevel() LogLevel {
	if c.App.Debug && (c.Log.Level == LogLevelInfo || c.Log.Level == LogLevelWarn || c.Log.Level == LogLevelError) {
		return LogLevelDebug
	}
	return c.Log.Level
}
