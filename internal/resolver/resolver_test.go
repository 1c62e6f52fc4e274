package resolver

import (
	"bytes"
	"encoding/binary"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isseis/go-safe-fldd/internal/common"
	"github.com/isseis/go-safe-fldd/internal/elfscan/elfscantesting"
)

func newTestResolver(logOutput io.Writer) (*Resolver, *SearchPaths, *DependencySet) {
	if logOutput == nil {
		logOutput = io.Discard
	}
	paths := NewSearchPaths(common.NewDefaultFileSystem())
	deps := NewDependencySet()
	logger := slog.New(slog.NewTextHandler(logOutput, nil))
	return New(paths, deps, logger), paths, deps
}

func TestResolveExecutableEndToEnd(t *testing.T) {
	libDir := t.TempDir()
	binDir := t.TempDir()

	libc := filepath.Join(libDir, "libc.so.6")
	elfscantesting.WriteImage(t, libc, elfscantesting.ImageSpec{})

	program := filepath.Join(binDir, "prog")
	elfscantesting.WriteImage(t, program, elfscantesting.ImageSpec{
		Interp: "/lib64/ld-linux-x86-64.so.2",
		Needed: []string{"libc.so.6"},
	})

	res, paths, deps := newTestResolver(nil)
	paths.Add(libDir)
	res.ResolveExecutable(program)

	// Most recently resolved first: libc was added after the loader.
	assert.Equal(t, []string{libc, "/lib64/ld-linux-x86-64.so.2"}, deps.Paths())
	assert.Equal(t, deps.Paths(), res.Dependencies())
}

func TestResolvePriorityOrdering(t *testing.T) {
	defaultDir := t.TempDir()
	runpathDir := t.TempDir()

	// The same name exists in a default directory and in the binary's own
	// RUNPATH directory; the RUNPATH copy must win.
	elfscantesting.WriteImage(t, filepath.Join(defaultDir, "libdup.so"), elfscantesting.ImageSpec{})
	elfscantesting.WriteImage(t, filepath.Join(runpathDir, "libdup.so"), elfscantesting.ImageSpec{})

	program := filepath.Join(t.TempDir(), "prog")
	elfscantesting.WriteImage(t, program, elfscantesting.ImageSpec{
		SearchDirs: []string{runpathDir},
		Needed:     []string{"libdup.so"},
	})

	res, paths, deps := newTestResolver(nil)
	paths.Add(defaultDir)
	res.ResolveExecutable(program)

	assert.Equal(t, []string{filepath.Join(runpathDir, "libdup.so")}, deps.Paths())
}

func TestResolveCycleSafety(t *testing.T) {
	libDir := t.TempDir()

	// liba and libb need each other; legal in real shared-library graphs
	// and must terminate with exactly one entry each.
	elfscantesting.WriteImage(t, filepath.Join(libDir, "liba.so"), elfscantesting.ImageSpec{
		Needed: []string{"libb.so"},
	})
	elfscantesting.WriteImage(t, filepath.Join(libDir, "libb.so"), elfscantesting.ImageSpec{
		Needed: []string{"liba.so"},
	})

	program := filepath.Join(t.TempDir(), "prog")
	elfscantesting.WriteImage(t, program, elfscantesting.ImageSpec{
		Needed: []string{"liba.so"},
	})

	res, paths, deps := newTestResolver(nil)
	paths.Add(libDir)
	res.ResolveExecutable(program)

	assert.ElementsMatch(t, []string{
		filepath.Join(libDir, "liba.so"),
		filepath.Join(libDir, "libb.so"),
	}, deps.Paths())
}

func TestResolveMissingLibraryIsNonFatal(t *testing.T) {
	libDir := t.TempDir()
	elfscantesting.WriteImage(t, filepath.Join(libDir, "libfound.so"), elfscantesting.ImageSpec{})

	program := filepath.Join(t.TempDir(), "prog")
	elfscantesting.WriteImage(t, program, elfscantesting.ImageSpec{
		Needed: []string{"libmissing.so", "libfound.so"},
	})

	logBuf := &bytes.Buffer{}
	res, paths, deps := newTestResolver(logBuf)
	paths.Add(libDir)
	res.ResolveExecutable(program)

	// The miss is warned about and the rest of the graph still resolves.
	assert.Contains(t, logBuf.String(), "cannot find libmissing.so, skipping")
	assert.Equal(t, []string{filepath.Join(libDir, "libfound.so")}, deps.Paths())
}

func TestResolveNonELFInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))

	logBuf := &bytes.Buffer{}
	res, _, deps := newTestResolver(logBuf)
	res.ResolveExecutable(path)

	assert.Contains(t, logBuf.String(), "is not an ELF executable or library")
	assert.Zero(t, deps.Len())
}

func TestResolveInaccessibleInput(t *testing.T) {
	logBuf := &bytes.Buffer{}
	res, _, deps := newTestResolver(logBuf)
	res.ResolveExecutable(filepath.Join(t.TempDir(), "nope"))

	assert.Contains(t, logBuf.String(), "cannot open")
	assert.Contains(t, logBuf.String(), "skipping")
	assert.Zero(t, deps.Len())
}

func TestResolveCorruptedImageKeepsPartialResult(t *testing.T) {
	raw := elfscantesting.BuildImage(t, elfscantesting.ImageSpec{
		Interp: "/lib64/ld-linux-x86-64.so.2",
		Needed: []string{"libc.so.6"},
	})
	// Point the section-header table past the end of the file.
	binary.LittleEndian.PutUint64(raw[40:48], uint64(len(raw))+4096)

	program := filepath.Join(t.TempDir(), "prog")
	require.NoError(t, os.WriteFile(program, raw, 0o755))

	logBuf := &bytes.Buffer{}
	res, _, deps := newTestResolver(logBuf)
	res.ResolveExecutable(program)

	// The interpreter was extracted before the corruption was hit; the
	// run must not crash and must keep the partial result.
	assert.Contains(t, logBuf.String(), "bad pointer")
	assert.Equal(t, []string{"/lib64/ld-linux-x86-64.so.2"}, deps.Paths())
}

func TestResolveRegistersSearchDirsAcrossBinaries(t *testing.T) {
	// A library discovered mid-traversal can add directories that outrank
	// ones registered earlier.
	extraDir := t.TempDir()
	libDir := t.TempDir()

	elfscantesting.WriteImage(t, filepath.Join(extraDir, "libdeep.so"), elfscantesting.ImageSpec{})
	elfscantesting.WriteImage(t, filepath.Join(libDir, "libmid.so"), elfscantesting.ImageSpec{
		SearchDirs: []string{extraDir},
		Needed:     []string{"libdeep.so"},
	})

	program := filepath.Join(t.TempDir(), "prog")
	elfscantesting.WriteImage(t, program, elfscantesting.ImageSpec{
		Needed: []string{"libmid.so"},
	})

	res, paths, deps := newTestResolver(nil)
	paths.Add(libDir)
	res.ResolveExecutable(program)

	assert.Equal(t, []string{
		filepath.Join(extraDir, "libdeep.so"),
		filepath.Join(libDir, "libmid.so"),
	}, deps.Paths())
	assert.Equal(t, []string{extraDir, libDir}, paths.Dirs())
}
