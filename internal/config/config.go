// Package config provides the default search-directory list consumed by
// the search-path registry. The built-in platform defaults can be replaced
// by a TOML configuration file, so a build that installs libraries in a
// non-standard location can describe its own layout instead of patching
// the binary.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/isseis/go-safe-fldd/internal/common"
)

// Build-time variables (set via ldflags)
var (
	// InstallLibDir is the library directory of the installation this
	// binary belongs to. Empty means no extra directory.
	InstallLibDir = ""
)

// defaultSearchPaths are the platform default library directories, listed
// lowest priority first: the registry prepends on insert, so the last
// entry here ends up searched first among the defaults. InstallLibDir is
// spliced in ahead of /usr/local/lib when set.
var defaultSearchPaths = []string{
	"/lib",
	"/lib/x86_64-linux-gnu",
	"/lib64",
	"/usr/lib",
	"/usr/lib/x86_64-linux-gnu",
}

// Error definitions for the config package
var (
	// ErrNoSearchPaths is returned when a config file defines no search
	// directories.
	ErrNoSearchPaths = errors.New("config defines no search_paths")

	// ErrRelativeSearchPath is returned when a configured directory is
	// not absolute.
	ErrRelativeSearchPath = errors.New("search path must be absolute")
)

// Config is the on-disk configuration.
type Config struct {
	// SearchPaths lists the default library directories, lowest priority
	// first (matching the built-in default ordering).
	SearchPaths []string `toml:"search_paths"`
}

// Default returns the built-in platform configuration.
func Default() *Config {
	paths := make([]string, 0, len(defaultSearchPaths)+2)
	paths = append(paths, defaultSearchPaths...)
	if InstallLibDir != "" {
		paths = append(paths, InstallLibDir)
	}
	paths = append(paths, "/usr/local/lib")
	return &Config{SearchPaths: paths}
}

// Loader handles loading and validating configuration files.
type Loader struct {
	fs common.FileSystem
}

// NewLoader creates a new config loader
func NewLoader() *Loader {
	return NewLoaderWithFS(common.NewDefaultFileSystem())
}

// NewLoaderWithFS creates a new config loader with a custom FileSystem
func NewLoaderWithFS(fs common.FileSystem) *Loader {
	return &Loader{fs: fs}
}

// Load reads and validates the TOML config at path. Unknown keys are
// rejected so a typo in the file surfaces instead of silently reverting
// to defaults.
func (l *Loader) Load(path string) (*Config, error) {
	data, err := l.fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if err := unmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if len(cfg.SearchPaths) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSearchPaths, path)
	}
	for _, dir := range cfg.SearchPaths {
		if !filepath.IsAbs(dir) {
			return nil, fmt.Errorf("%w: %q in %s", ErrRelativeSearchPath, dir, path)
		}
	}

	return &cfg, nil
}

func unmarshalStrict(data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(cfg)
}
