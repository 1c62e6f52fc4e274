// Package common provides shared interfaces and utilities used across the
// fldd packages.
//
//nolint:revive // var-naming: package name "common" is intentional for shared internal utilities
package common

import (
	"errors"
	"io/fs"
	"os"

	"golang.org/x/sys/unix"
)

// Error definitions for static error handling
var (
	ErrEmptyPath = errors.New("path cannot be empty")
)

// FileSystem defines the file system operations needed by the resolver and
// config loader. The interface allows tests to substitute an in-memory
// implementation instead of touching the real root filesystem.
type FileSystem interface {
	// Readable checks whether the file at path can be opened for reading
	// by the current process.
	Readable(path string) bool

	// Stat returns file information
	Stat(path string) (fs.FileInfo, error)

	// ReadFile reads the entire file at path
	ReadFile(path string) ([]byte, error)
}

// DefaultFileSystem implements FileSystem using the real filesystem.
type DefaultFileSystem struct{}

// NewDefaultFileSystem creates a new DefaultFileSystem
func NewDefaultFileSystem() *DefaultFileSystem {
	return &DefaultFileSystem{}
}

// Readable checks read access with access(2) semantics, matching what the
// dynamic loader itself would be allowed to open.
func (d *DefaultFileSystem) Readable(path string) bool {
	if path == "" {
		return false
	}
	return unix.Access(path, unix.R_OK) == nil
}

// Stat returns file information
func (d *DefaultFileSystem) Stat(path string) (fs.FileInfo, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	return os.Stat(path)
}

// ReadFile reads the entire file at path
func (d *DefaultFileSystem) ReadFile(path string) ([]byte, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	return os.ReadFile(path)
}
