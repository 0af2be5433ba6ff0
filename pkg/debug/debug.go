// Package debug provides conditional debug logging for gr.
//
// Debug logging is enabled by setting the GR_DEBUG environment variable:
//
//	GR_DEBUG=1 gr data/energy.csv
//
// When enabled, debug messages are written to stderr with timestamps.
// When disabled (default), all debug functions are no-ops with zero overhead.
// The TUI owns stdout, so stderr is the only safe sink; redirect it when
// debugging interactively (2>gr.log).
//
// Usage:
//
//	import "github.com/vanderheijden86/grapher/pkg/debug"
//
//	func myFunc() {
//	    debug.Log("loaded %d observations", count)
//	    // ...
//	    debug.LogTiming("myFunc", elapsed)
//	}
package debug

import (
	"log"
	"os"
	"time"
)

var (
	// enabled is true when GR_DEBUG env var is set
	enabled bool
	// logger writes to stderr with [GR_DEBUG] prefix
	logger *log.Logger
)

func init() {
	if os.Getenv("GR_DEBUG") != "" {
		enabled = true
		logger = log.New(os.Stderr, "[GR_DEBUG] ", log.Ltime|log.Lmicroseconds)
	}
}

// Enabled returns whether debug logging is enabled.
func Enabled() bool {
	return enabled
}

// SetEnabled allows programmatic control of debug logging. The environment
// variable is only read once at startup, so this is the override for code
// (and tests) that decides after init.
func SetEnabled(e bool) {
	enabled = e
	if e && logger == nil {
		logger = log.New(os.Stderr, "[GR_DEBUG] ", log.Ltime|log.Lmicroseconds)
	}
}

// Log writes a debug message if debug logging is enabled.
// Uses printf-style formatting.
func Log(format string, args ...any) {
	if !enabled {
		return
	}
	logger.Printf(format, args...)
}

// LogTiming writes a timing message if debug logging is enabled.
func LogTiming(name string, d time.Duration) {
	if !enabled {
		return
	}
	logger.Printf("%s took %v", name, d)
}

// Dump logs a value with its type for debugging complex structures.
func Dump(name string, v any) {
	if !enabled {
		return
	}
	logger.Printf("%s: %T = %+v", name, v, v)
}

// Section logs a section header for visual organization in debug output.
func Section(name string) {
	if !enabled {
		return
	}
	logger.Printf("=== %s ===", name)
}
