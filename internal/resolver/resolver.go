package resolver

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/isseis/go-safe-fldd/internal/elfimage"
	"github.com/isseis/go-safe-fldd/internal/elfscan"
)

// Resolver drives the recursive closure over one search-path registry and
// one dependency set. Every failure it encounters is recoverable: the
// offending file is skipped with a warning and the run continues, so a
// partial dependency list is still produced when a branch of the graph
// cannot be resolved.
type Resolver struct {
	paths *SearchPaths
	deps  *DependencySet
	log   *slog.Logger
}

// New creates a Resolver over the given registry and set.
func New(paths *SearchPaths, deps *DependencySet, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		paths: paths,
		deps:  deps,
		log:   logger,
	}
}

// Dependencies returns the accumulated resolved paths, most recently
// resolved first.
func (r *Resolver) Dependencies() []string {
	return r.deps.Paths()
}

// ResolveExecutable scans the binary at path and resolves everything it
// declares: the interpreter goes into the dependency set as-is, declared
// search directories are registered at top priority, and each needed name
// is resolved against the registry and recursed into. The mapped image is
// released before any recursion, so peak memory stays at one binary plus
// the collected metadata.
func (r *Resolver) ResolveExecutable(path string) {
	info := r.scan(path)
	if info == nil {
		return
	}

	for _, dir := range info.SearchDirs {
		r.paths.Add(dir)
	}
	for _, name := range info.Needed {
		r.resolveLibrary(name)
	}
}

// scan maps path, extracts the interpreter and dynamic info, and unmaps.
// A nil return means the file was skipped (already warned about).
func (r *Resolver) scan(path string) *elfscan.DynamicInfo {
	img, err := elfimage.Open(path)
	if err != nil {
		r.warnFileError(err, path)
		return nil
	}
	defer func() {
		if closeErr := img.Close(); closeErr != nil {
			r.log.Warn(fmt.Sprintf("cannot unmap %s: %v", path, closeErr))
		}
	}()

	hdr, err := elfscan.ParseHeader(img)
	if err != nil {
		r.warnFileError(err, path)
		return nil
	}

	interp, found, err := elfscan.FindInterp(img, hdr)
	if err != nil {
		r.warnFileError(err, path)
		return nil
	}
	if found {
		// The loader path is recorded as-is, not searched via the
		// registry.
		r.deps.Add(interp)
	}

	info, err := elfscan.FindDynamicInfo(img, hdr)
	if err != nil {
		r.warnFileError(err, path)
		return nil
	}
	return info
}

// resolveLibrary resolves one needed name against the registry and, on the
// first readable hit, records it and recurses: a shared library can itself
// declare further dependencies and search directories.
func (r *Resolver) resolveLibrary(name string) {
	if r.deps.Contains(name) {
		return
	}

	resolved, found := r.paths.Search(name)
	if !found {
		r.log.Warn(fmt.Sprintf("cannot find %s, skipping", name))
		return
	}
	if r.deps.Contains(resolved) {
		return
	}

	r.deps.Add(resolved)
	r.ResolveExecutable(resolved)
}

// warnFileError maps a scan failure onto the tool's diagnostic wording.
func (r *Resolver) warnFileError(err error, path string) {
	var boundsErr *elfimage.BoundsError
	switch {
	case errors.Is(err, elfimage.ErrInaccessible):
		r.log.Warn(fmt.Sprintf("cannot open %s, skipping", path))
	case errors.Is(err, elfimage.ErrUnmappable):
		r.log.Warn(fmt.Sprintf("cannot map %s, skipping", path))
	case errors.Is(err, elfscan.ErrNotELF):
		r.log.Warn(fmt.Sprintf("%s is not an ELF executable or library", path))
	case errors.As(err, &boundsErr):
		r.log.Warn(fmt.Sprintf("bad pointer %s for %s", boundsErr.Field, path))
	case errors.Is(err, elfscan.ErrNoStringTable):
		r.log.Warn(fmt.Sprintf("no string table in %s, skipping", path))
	default:
		r.log.Warn(fmt.Sprintf("cannot parse %s, skipping: %v", path, err))
	}
}
