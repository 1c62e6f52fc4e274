// Package logging provides the diagnostic output path for fldd. Diagnostics
// go to a stream distinct from the result stream: resolved library paths are
// written to stdout (or the requested output file), while warnings about
// malformed binaries, unreadable dependencies, and bad pointers are rendered
// by WarnHandler on stderr. Quiet mode raises the handler level so that
// recoverable warnings are suppressed without affecting fatal errors or the
// produced dependency list.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/isseis/go-safe-fldd/internal/color"
	"github.com/isseis/go-safe-fldd/internal/terminal"
)

// Static errors for WarnHandler validation
var (
	ErrWarnHandlerWriterRequired       = errors.New("WarnHandler: Writer is required")
	ErrWarnHandlerCapabilitiesRequired = errors.New("WarnHandler: Capabilities is required")
)

// WarnHandlerOptions configures the WarnHandler.
type WarnHandlerOptions struct {
	// Level is the minimum record level that will be rendered.
	// Quiet mode passes slog.LevelError here to drop warnings.
	Level slog.Leveler

	// Capabilities provides terminal feature detection for the writer.
	Capabilities terminal.Capabilities

	// Writer is the diagnostic destination, normally os.Stderr.
	Writer io.Writer
}

// WarnHandler is a slog handler that renders records in the tool's
// single-line diagnostic format:
//
//	Warning fldd: cannot open /usr/bin/foo, skipping
//	Error fldd: cannot access /usr/bin/foo
//
// Attributes are appended as key=value pairs. Warning and error lines are
// colored when the destination supports it.
type WarnHandler struct {
	level        slog.Leveler
	capabilities terminal.Capabilities
	writer       io.Writer
	attrs        []slog.Attr

	// mu serializes writes so concurrent loggers cannot interleave lines.
	mu *sync.Mutex
}

// NewWarnHandler creates a new WarnHandler. Returns an error if any
// required options are missing.
func NewWarnHandler(opts WarnHandlerOptions) (*WarnHandler, error) {
	if opts.Writer == nil {
		return nil, ErrWarnHandlerWriterRequired
	}
	if opts.Capabilities == nil {
		return nil, ErrWarnHandlerCapabilitiesRequired
	}

	level := opts.Level
	if level == nil {
		level = slog.LevelWarn
	}

	return &WarnHandler{
		level:        level,
		capabilities: opts.Capabilities,
		writer:       opts.Writer,
		mu:           &sync.Mutex{},
	}, nil
}

// Enabled reports whether the handler handles records at the given level.
func (h *WarnHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle renders a single record as one diagnostic line.
func (h *WarnHandler) Handle(_ context.Context, r slog.Record) error {
	var sb strings.Builder
	sb.WriteString(h.prefix(r.Level))
	sb.WriteString(r.Message)

	for _, attr := range h.attrs {
		writeAttr(&sb, attr)
	}
	r.Attrs(func(attr slog.Attr) bool {
		writeAttr(&sb, attr)
		return true
	})

	line := sb.String()
	if h.capabilities.SupportsColor() {
		line = h.colorFor(r.Level)(line)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprintln(h.writer, line)
	return err
}

// WithAttrs returns a new handler with additional attributes.
func (h *WarnHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

// WithGroup returns the handler unchanged: the single-line warning format
// has no use for attribute grouping.
func (h *WarnHandler) WithGroup(string) slog.Handler {
	return h
}

func (h *WarnHandler) prefix(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "Error fldd: "
	case level >= slog.LevelWarn:
		return "Warning fldd: "
	default:
		return "fldd: "
	}
}

func (h *WarnHandler) colorFor(level slog.Level) color.Color {
	switch {
	case level >= slog.LevelError:
		return color.Red
	case level >= slog.LevelWarn:
		return color.Yellow
	default:
		return color.Gray
	}
}

func writeAttr(sb *strings.Builder, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	sb.WriteString(" ")
	sb.WriteString(attr.Key)
	sb.WriteString("=")
	sb.WriteString(attr.Value.String())
}
