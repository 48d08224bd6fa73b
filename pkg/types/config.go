package types

import (
	"errors"
	"strings"
)

// Config holds storage and runtime parameters for the statcraft tooling.
type Config struct {
	Backend           string   `json:"backend" yaml:"backend"`
	DataDir           string   `json:"data_dir" yaml:"data_dir"`
	LogLevel          string   `json:"log_level" yaml:"log_level"`
	FrameworkPrefixes []string `json:"framework_prefixes" yaml:"framework_prefixes"`
	ContentDir        string   `json:"content_dir" yaml:"content_dir"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// Supported log levels. An empty level means info.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Config validation errors.
var (
	ErrBackendEmpty    = errors.New("backend must not be empty")
	ErrBackendUnknown  = errors.New("unknown backend")
	ErrLogLevelUnknown = errors.New("unknown log level")
	ErrFrameworkPrefix = errors.New("framework prefix must not be empty")
)

var knownBackends = map[string]bool{
	BackendSQLite: true,
}

var knownLogLevels = map[string]bool{
	"":            true,
	LogLevelDebug: true,
	LogLevelInfo:  true,
	LogLevelWarn:  true,
	LogLevelError: true,
}

// DefaultFrameworkPrefixes lists module path prefixes that are never searched
// for stats: the standard library and the Go toolchain's own modules.
var DefaultFrameworkPrefixes = []string{
	"runtime",
	"reflect",
	"internal/",
	"golang.org/x/",
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if !knownLogLevels[strings.ToLower(c.LogLevel)] {
		return ErrLogLevelUnknown
	}
	for _, p := range c.FrameworkPrefixes {
		if strings.TrimSpace(p) == "" {
			return ErrFrameworkPrefix
		}
	}
	return nil
}
