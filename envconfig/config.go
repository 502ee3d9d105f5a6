// Package envconfig reads cunum configuration from CUNUM_* environment
// variables. Getters are closures so values are re-read on every call and
// tests can flip them with t.Setenv.
package envconfig

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Var returns an environment variable, trimmed of whitespace and quotes.
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}

// LogLevel returns the log level.
// Configurable via CUNUM_DEBUG: 0/false = INFO (default), 1/true = DEBUG, 2 = TRACE.
func LogLevel() slog.Level {
	level := slog.LevelInfo
	if s := Var("CUNUM_DEBUG"); s != "" {
		if b, _ := strconv.ParseBool(s); b {
			level = slog.LevelDebug
		} else if i, _ := strconv.ParseInt(s, 10, 64); i != 0 {
			level = slog.Level(i * -4)
		}
	}

	return level
}

// Bool returns a function that reads a boolean (default false).
func Bool(k string) func() bool {
	return func() bool {
		if s := Var(k); s != "" {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return true
			}
			return b
		}
		return false
	}
}

// Uint returns a function that reads a uint with a default value.
func Uint(key string, defaultValue uint) func() uint {
	return func() uint {
		if s := Var(key); s != "" {
			if n, err := strconv.ParseUint(s, 10, 64); err != nil {
				slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			} else {
				return uint(n)
			}
		}
		return defaultValue
	}
}

var (
	// GeneratorSize is the default bit generator thread count (CUNUM_GENERATOR_SIZE).
	// The default matches a 1000-block x 256-thread launch.
	GeneratorSize = Uint("CUNUM_GENERATOR_SIZE", 256000)

	// SimDevices is the simulated runtime's device count (CUNUM_SIM_DEVICES).
	SimDevices = Uint("CUNUM_SIM_DEVICES", 2)
)

type EnvVar struct {
	Name        string
	Value       any
	Description string
}

// AsMap returns the documented configuration variables and their current values.
func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"CUNUM_DEBUG":          {"CUNUM_DEBUG", LogLevel(), "Show additional debug information (e.g. CUNUM_DEBUG=1)"},
		"CUNUM_GENERATOR_SIZE": {"CUNUM_GENERATOR_SIZE", GeneratorSize(), "Default bit generator thread count"},
		"CUNUM_SIM_DEVICES":    {"CUNUM_SIM_DEVICES", SimDevices(), "Simulated runtime device count"},
	}
}
