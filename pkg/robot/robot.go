// Package robot supports non-interactive invocations: headless exports,
// JSON summaries for scripts, and anything else that must not touch the
// terminal.
package robot

import (
	"io"
	"os"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/grapher/pkg/analysis"
	"github.com/vanderheijden86/grapher/pkg/model"
)

// init runs before Bubble Tea acquires the terminal (and before any TUI
// starts).
//
// In PTY capture environments, lipgloss/termenv background detection can
// emit OSC/DSR control sequences to stdout. Those sequences are harmless
// in a real terminal but corrupt JSON consumed from robot-mode output.
// Termenv skips TTY probing when CI is set, so robot invocations get
// CI=1 before anything probes.
func init() {
	if os.Getenv("CI") != "" {
		return
	}
	if !shouldSuppressTTYQueries(os.Args, os.Getenv("GR_ROBOT") == "1", os.Getenv("GR_TEST_MODE") != "") {
		return
	}
	_ = os.Setenv("CI", "1")
}

func shouldSuppressTTYQueries(args []string, envRobot, envTest bool) bool {
	if envRobot || envTest {
		return true
	}

	for _, arg := range args {
		name := strings.TrimLeft(arg, "-")
		if name == arg {
			continue // positional, not a flag
		}
		if i := strings.IndexByte(name, '='); i >= 0 {
			name = name[:i]
		}
		switch name {
		case "export", "robot-summary", "version", "help":
			return true
		}
	}

	return false
}

// WriteSummary emits the dataset summary as indented JSON, the contract
// for -robot-summary consumers.
func WriteSummary(w io.Writer, ds *model.Dataset) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(analysis.Summarize(ds))
}
