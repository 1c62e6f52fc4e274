// Package color provides small helpers for coloring terminal output using
// ANSI escape sequences. Diagnostic handlers use these to highlight warnings
// and errors when the diagnostic stream is a terminal.
//
//nolint:revive // package name conflicts with standard library
package color

// ANSI color codes
const (
	resetCode  = "\033[0m"
	grayCode   = "\033[90m" // Bright black/gray
	yellowCode = "\033[33m"
	redCode    = "\033[31m"
)

// Color represents a color function that wraps text with ANSI escape
// sequences.
type Color func(text string) string

// NewColor creates a color function with the specified ANSI code.
func NewColor(ansiCode string) Color {
	return func(text string) string {
		return ansiCode + text + resetCode
	}
}

// Predefined color functions
var (
	// Gray colors text in gray (bright black)
	Gray = NewColor(grayCode)

	// Yellow colors text in yellow
	Yellow = NewColor(yellowCode)

	// Red colors text in red
	Red = NewColor(redCode)
)

// None returns the text unchanged. It is used in place of a real color
// function when color output is disabled.
func None(text string) string {
	return text
}
