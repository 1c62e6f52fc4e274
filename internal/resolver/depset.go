package resolver

// DependencySet accumulates the resolved library paths (and the loader
// path) of one resolution run. Entries are unique; an entry, once present,
// is never re-resolved, which is what terminates resolution on dependency
// cycles.
type DependencySet struct {
	// paths holds the entries most-recently-added first, the order the
	// final list is emitted in.
	paths []string
	seen  map[string]struct{}
}

// NewDependencySet creates an empty set.
func NewDependencySet() *DependencySet {
	return &DependencySet{
		seen: make(map[string]struct{}),
	}
}

// Contains reports whether path is already in the set.
func (s *DependencySet) Contains(path string) bool {
	_, ok := s.seen[path]
	return ok
}

// Add inserts path if absent. Re-adding an existing path is a no-op, not
// an error.
func (s *DependencySet) Add(path string) {
	if s.Contains(path) {
		return
	}
	s.seen[path] = struct{}{}
	s.paths = append([]string{path}, s.paths...)
}

// Len returns the number of entries.
func (s *DependencySet) Len() int {
	return len(s.paths)
}

// Paths returns the entries most-recently-added first.
func (s *DependencySet) Paths() []string {
	out := make([]string, len(s.paths))
	copy(out, s.paths)
	return out
}
