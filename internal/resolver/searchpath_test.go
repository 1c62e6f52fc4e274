package resolver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isseis/go-safe-fldd/internal/common"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestSearchPathsOrdering(t *testing.T) {
	paths := NewSearchPaths(common.NewDefaultFileSystem())
	paths.Add("/lib")
	paths.Add("/usr/lib")
	paths.Add("/opt/lib")

	// Most recently added is searched first.
	assert.Equal(t, []string{"/opt/lib", "/usr/lib", "/lib"}, paths.Dirs())
}

func TestSearchPathsIdempotentAdd(t *testing.T) {
	paths := NewSearchPaths(common.NewDefaultFileSystem())
	paths.Add("/lib")
	paths.Add("/usr/lib")

	// Re-adding keeps the original priority.
	paths.Add("/lib")
	assert.Equal(t, []string{"/usr/lib", "/lib"}, paths.Dirs())
}

func TestSearchPathsSearch(t *testing.T) {
	lowDir := t.TempDir()
	highDir := t.TempDir()
	writeFile(t, filepath.Join(lowDir, "libboth.so"))
	writeFile(t, filepath.Join(highDir, "libboth.so"))
	writeFile(t, filepath.Join(lowDir, "liblow.so"))

	paths := NewSearchPaths(common.NewDefaultFileSystem())
	paths.Add(lowDir)
	paths.Add(highDir)

	t.Run("higher priority directory wins", func(t *testing.T) {
		resolved, found := paths.Search("libboth.so")
		require.True(t, found)
		assert.Equal(t, filepath.Join(highDir, "libboth.so"), resolved)
	})

	t.Run("falls through to lower priority", func(t *testing.T) {
		resolved, found := paths.Search("liblow.so")
		require.True(t, found)
		assert.Equal(t, filepath.Join(lowDir, "liblow.so"), resolved)
	})

	t.Run("miss across all directories", func(t *testing.T) {
		_, found := paths.Search("libmissing.so")
		assert.False(t, found)
	})
}

func TestDependencySet(t *testing.T) {
	set := NewDependencySet()
	assert.Zero(t, set.Len())
	assert.False(t, set.Contains("/lib/libc.so.6"))

	set.Add("/lib/libc.so.6")
	set.Add("/lib/libm.so.6")
	assert.True(t, set.Contains("/lib/libc.so.6"))
	assert.Equal(t, 2, set.Len())

	// Re-adding is a no-op and keeps the first-seen position.
	set.Add("/lib/libc.so.6")
	assert.Equal(t, 2, set.Len())
	assert.Equal(t, []string{"/lib/libm.so.6", "/lib/libc.so.6"}, set.Paths())
}
