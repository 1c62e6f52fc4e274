// Package resolver computes the transitive closure of shared-library
// dependencies. The two pieces of run state, the search-path registry and
// the dependency set, are constructed by the caller and passed in, so each
// test builds its own fresh state and nothing in this package is ambient.
package resolver

import (
	"path/filepath"

	"github.com/isseis/go-safe-fldd/internal/common"
)

// SearchPaths is the ordered, deduplicated registry of directories a
// library name is resolved against. The most recently added directory is
// searched first, which reproduces loader semantics where a binary's own
// RPATH/RUNPATH outranks the platform defaults registered at startup.
type SearchPaths struct {
	// dirs holds the directories most-recently-added first.
	dirs []string
	seen map[string]struct{}
	fs   common.FileSystem
}

// NewSearchPaths creates an empty registry probing files through fs.
func NewSearchPaths(fs common.FileSystem) *SearchPaths {
	return &SearchPaths{
		seen: make(map[string]struct{}),
		fs:   fs,
	}
}

// Add registers dir as the highest-priority directory. Adding a directory
// that is already registered is a no-op: its original priority is kept.
func (p *SearchPaths) Add(dir string) {
	if _, ok := p.seen[dir]; ok {
		return
	}
	p.seen[dir] = struct{}{}
	p.dirs = append([]string{dir}, p.dirs...)
}

// Search probes <dir>/<name> for read access in priority order and returns
// the first readable hit.
func (p *SearchPaths) Search(name string) (string, bool) {
	for _, dir := range p.dirs {
		candidate := filepath.Join(dir, name)
		if p.fs.Readable(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// Dirs returns the registered directories in search order (highest
// priority first).
func (p *SearchPaths) Dirs() []string {
	out := make([]string, len(p.dirs))
	copy(out, p.dirs)
	return out
}
