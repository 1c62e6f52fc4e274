package terminal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTermSupportsColor(t *testing.T) {
	tests := []struct {
		name     string
		term     string
		expected bool
	}{
		{"empty TERM", "", false},
		{"dumb terminal", "dumb", false},
		{"xterm", "xterm", true},
		{"xterm with variant", "xterm-256color", true},
		{"screen", "screen", true},
		{"tmux variant", "tmux-256color", true},
		{"linux console", "linux", true},
		{"unknown terminal", "mystery-term", false},
		{"uppercase is normalized", "XTERM", true},
		{"surrounding whitespace", "  xterm  ", true},
		{"prefix without dash separator", "xtermfoo", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, termSupportsColor(tt.term))
		})
	}
}

func TestIsTruthy(t *testing.T) {
	tests := []struct {
		value    string
		expected bool
	}{
		{"1", true},
		{"true", true},
		{"yes", true},
		{"TRUE", true},
		{" yes ", true},
		{"0", false},
		{"false", false},
		{"no", false},
		{"", false},
		{"maybe", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.expected, isTruthy(tt.value))
		})
	}
}

func TestSupportsColorPreferences(t *testing.T) {
	t.Run("force color wins over everything", func(t *testing.T) {
		t.Setenv("NO_COLOR", "1")
		c := NewCapabilities(-1, DetectorOptions{ForceColor: true})
		assert.True(t, c.SupportsColor())
	})

	t.Run("disable color wins over CLICOLOR_FORCE", func(t *testing.T) {
		t.Setenv("CLICOLOR_FORCE", "1")
		c := NewCapabilities(-1, DetectorOptions{DisableColor: true})
		assert.False(t, c.SupportsColor())
	})

	t.Run("CLICOLOR_FORCE enables color without a terminal", func(t *testing.T) {
		t.Setenv("CLICOLOR_FORCE", "1")
		c := NewCapabilities(-1, DetectorOptions{})
		assert.True(t, c.SupportsColor())
	})

	t.Run("NO_COLOR disables color even when set empty", func(t *testing.T) {
		t.Setenv("CLICOLOR_FORCE", "")
		t.Setenv("NO_COLOR", "")
		c := NewCapabilities(-1, DetectorOptions{})
		assert.False(t, c.SupportsColor())
	})

	t.Run("non-terminal descriptor yields no color by default", func(t *testing.T) {
		t.Setenv("CLICOLOR_FORCE", "")
		t.Setenv("TERM", "xterm")
		// fd -1 is never a terminal
		c := NewCapabilities(-1, DetectorOptions{})
		assert.False(t, c.SupportsColor())
	})
}
