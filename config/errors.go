// Package config provides error definitions for configuration management
package config

import "errors"

// Configuration validation errors
var (
	ErrInvalidAppName           = errors.New("invalid application name")
	ErrInvalidEnvironment       = errors.New("invalid environment")
	ErrInvalidLogLevel          = errors.New("invalid log level")
	ErrInvalidLogFormat         = errors.New("invalid log format")
	ErrInvalidPopulation        = errors.New("invalid population size")
	ErrInvalidMaxTime           = errors.New("invalid max time")
	ErrInvalidForceOfInfection  = errors.New("invalid force of infection")
	ErrInvalidInfectionDuration = errors.New("invalid infection duration")
)

// Configuration loading errors
var (
	ErrConfigFileNotFound  = errors.New("configuration file not found")
	ErrConfigParseError    = errors.New("configuration parse error")
	ErrUnsupportedFormat   = errors.New("unsupported configuration format")
	ErrEnvironmentVarError = errors.New("environment variable error")
)
