// Package terminal provides helpers for detecting capabilities of the
// diagnostic stream: whether it is connected to a terminal and whether that
// terminal should receive ANSI color sequences. The warning handler in
// internal/logging consults this package to decide how to render diagnostics.
package terminal

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// colorTerminals lists TERM values (or prefixes) that are known to support
// basic terminal colors. Declared at package scope to avoid reallocating the
// slice on every SupportsColor call.
var colorTerminals = []string{
	"xterm",
	"screen",
	"tmux",
	"rxvt",
	"vt100",
	"vt220",
	"ansi",
	"linux",
	"cygwin",
	"putty",
}

// DetectorOptions contains options for controlling capability detection.
type DetectorOptions struct {
	ForceColor   bool // Force color output regardless of environment
	DisableColor bool // Disable color output regardless of environment
}

// Capabilities defines methods for detecting diagnostic-stream capabilities.
type Capabilities interface {
	IsTerminal() bool
	SupportsColor() bool
}

// DefaultCapabilities implements Capabilities for a given file descriptor.
type DefaultCapabilities struct {
	fd      int
	options DetectorOptions
}

// NewCapabilities creates a Capabilities instance for the given file
// descriptor (normally the one backing the diagnostic stream, i.e. stderr).
func NewCapabilities(fd int, options DetectorOptions) Capabilities {
	return &DefaultCapabilities{
		fd:      fd,
		options: options,
	}
}

// IsTerminal checks if the monitored descriptor is connected to a terminal.
func (c *DefaultCapabilities) IsTerminal() bool {
	return term.IsTerminal(c.fd)
}

// SupportsColor returns true if color output should be enabled.
// Priority order:
//  1. Command line options (highest priority)
//  2. CLICOLOR_FORCE environment variable
//  3. NO_COLOR environment variable (any value, even empty)
//  4. Terminal capability auto-detection via TERM
func (c *DefaultCapabilities) SupportsColor() bool {
	if c.options.ForceColor {
		return true
	}
	if c.options.DisableColor {
		return false
	}

	if cliColorForce := os.Getenv("CLICOLOR_FORCE"); cliColorForce != "" {
		if isTruthy(cliColorForce) {
			return true
		}
	}

	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return false
	}

	return c.IsTerminal() && termSupportsColor(os.Getenv("TERM"))
}

// termSupportsColor reports whether the TERM value names a color-capable
// terminal. Unknown terminals default to no color: better to miss color
// support than to write escape sequences to a terminal that cannot
// interpret them.
func termSupportsColor(termValue string) bool {
	termValue = strings.ToLower(strings.TrimSpace(termValue))
	if termValue == "" || termValue == "dumb" {
		return false
	}

	for _, colorTerm := range colorTerminals {
		if termValue == colorTerm || strings.HasPrefix(termValue, colorTerm+"-") {
			return true
		}
	}

	return false
}

// isTruthy checks if a string value should be considered "true".
// Supports: "1", "true", "yes" (case insensitive).
func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}
