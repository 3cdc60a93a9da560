// Package envconfig loads the GYRE_* environment variables that tune the
// engine's runtime behavior. Only operational knobs live here; rotation
// semantics (theta, position bounds, precision) are explicit API parameters
// and never environment state.
package envconfig

import (
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
)

var (
	// Debug enables debug and trace logging
	Debug bool
	// Workers is the default goroutine count for parallel rotation
	Workers int
	// BlockBytes is the head-vector byte size of one kernel work block
	BlockBytes int
	// GroupBytes is the head-vector byte size of one kernel dispatch grain
	GroupBytes int
)

type EnvVar struct {
	Name        string
	Value       any
	Description string
}

func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"GYRE_DEBUG":       {"GYRE_DEBUG", Debug, "Enable debug and trace logging"},
		"GYRE_WORKERS":     {"GYRE_WORKERS", Workers, "Goroutines used by parallel rotation (default: CPU count)"},
		"GYRE_BLOCK_BYTES": {"GYRE_BLOCK_BYTES", BlockBytes, "Head-vector bytes per kernel work block"},
		"GYRE_GROUP_BYTES": {"GYRE_GROUP_BYTES", GroupBytes, "Head-vector bytes per kernel dispatch grain"},
	}
}

// clean quotes and spaces from the env value
func clean(key string) string {
	return strings.Trim(os.Getenv(key), "\"' ")
}

func init() {
	LoadConfig()
}

// LoadConfig resets every variable to its default and then applies the
// environment. Invalid settings are logged and ignored.
func LoadConfig() {
	Debug = false
	Workers = runtime.NumCPU()
	BlockBytes = 2048
	GroupBytes = 512

	if debug := clean("GYRE_DEBUG"); debug != "" {
		d, err := strconv.ParseBool(debug)
		if err == nil {
			Debug = d
		} else {
			Debug = true
		}
	}

	if workers := clean("GYRE_WORKERS"); workers != "" {
		w, err := strconv.Atoi(workers)
		if err != nil || w <= 0 {
			slog.Error("invalid setting must be greater than zero", "GYRE_WORKERS", workers, "error", err)
		} else {
			Workers = w
		}
	}

	if block := clean("GYRE_BLOCK_BYTES"); block != "" {
		b, err := strconv.Atoi(block)
		if err != nil || b <= 0 {
			slog.Error("invalid setting must be greater than zero", "GYRE_BLOCK_BYTES", block, "error", err)
		} else {
			BlockBytes = b
		}
	}

	if group := clean("GYRE_GROUP_BYTES"); group != "" {
		g, err := strconv.Atoi(group)
		if err != nil || g <= 0 {
			slog.Error("invalid setting must be greater than zero", "GYRE_GROUP_BYTES", group, "error", err)
		} else {
			GroupBytes = g
		}
	}
}
