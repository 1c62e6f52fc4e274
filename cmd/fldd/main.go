// Package main provides the fldd command. It resolves the transitive
// shared-library dependencies of a program by parsing ELF images directly
// and prints one resolved path per line, for a sandboxing tool that needs
// to know which library files to expose inside a restricted filesystem
// view.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/isseis/go-safe-fldd/internal/common"
	"github.com/isseis/go-safe-fldd/internal/config"
	"github.com/isseis/go-safe-fldd/internal/logging"
	"github.com/isseis/go-safe-fldd/internal/resolver"
	"github.com/isseis/go-safe-fldd/internal/terminal"
)

const (
	// quietEnvVar suppresses non-fatal warnings when set to "yes",
	// leaving the exit code and the dependency list unaffected.
	quietEnvVar = "FLDD_QUIET"

	// outputFilePerm is the permission mode for a requested output file.
	outputFilePerm = 0o644
)

// Error definitions
var (
	ErrInvalidArguments = errors.New("invalid arguments")
)

// flags uses ContinueOnError so that a bad flag surfaces as an invalid
// arguments error (exit code 1 with the usage text) instead of the flag
// package's own exit.
var flags = flag.NewFlagSet("fldd", flag.ContinueOnError)

var (
	configPath = flags.String("config", "", "path to a TOML file listing the default search directories")
	quietFlag  = flags.Bool("quiet", false, "suppress warnings about malformed or unresolvable binaries")
	noColor    = flags.Bool("no-color", false, "disable colored diagnostics")
)

func usage() {
	fmt.Println("Usage: fldd [options] program [file]")
	fmt.Println("print a list of shared libraries used by program or store it in the file.")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -config path   read the default search directories from a TOML file")
	fmt.Println("  -quiet         suppress warnings (also enabled by " + quietEnvVar + "=yes)")
	fmt.Println("  -no-color      disable colored diagnostics")
}

// isHelpArg recognizes the accepted help tokens.
func isHelpArg(arg string) bool {
	switch arg {
	case "-h", "--help", "-?":
		return true
	default:
		return false
	}
}

// quietEnabled combines the -quiet flag with the environment toggle.
func quietEnabled(flagValue bool) bool {
	return flagValue || os.Getenv(quietEnvVar) == "yes"
}

func main() {
	// "-?" is not parseable by the flag package; handle help tokens
	// before flag.Parse like the usage contract promises.
	if len(os.Args) >= 2 && isHelpArg(os.Args[1]) {
		usage()
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error fldd: %v\n", err)
		if errors.Is(err, ErrInvalidArguments) {
			usage()
		}
		os.Exit(1)
	}
}

func run() error {
	flags.SetOutput(io.Discard)
	if err := flags.Parse(os.Args[1:]); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}

	args := flags.Args()
	if len(args) < 1 || len(args) > 2 {
		return ErrInvalidArguments
	}
	program := args[0]

	logger, err := setupLogger(quietEnabled(*quietFlag))
	if err != nil {
		return err
	}

	fs := common.NewDefaultFileSystem()
	if !fs.Readable(program) {
		return fmt.Errorf("cannot access %s", program)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := io.Writer(os.Stdout)
	var outFile *os.File
	if len(args) == 2 {
		outFile, err = os.OpenFile(args[1], os.O_CREATE|os.O_TRUNC|os.O_WRONLY, outputFilePerm)
		if err != nil {
			return fmt.Errorf("%w: cannot create %s: %v", ErrInvalidArguments, args[1], err)
		}
		out = outFile
	}

	runID := logging.GenerateRunID()
	logger.Debug("starting resolution", "run_id", runID, "program", program)

	paths := resolver.NewSearchPaths(fs)
	for _, dir := range cfg.SearchPaths {
		paths.Add(dir)
	}
	deps := resolver.NewDependencySet()

	res := resolver.New(paths, deps, logger)
	res.ResolveExecutable(program)

	if err := writeDependencies(out, deps.Paths()); err != nil {
		return err
	}
	if outFile != nil {
		return outFile.Close()
	}
	return nil
}

// setupLogger builds the diagnostic logger. Quiet mode raises the level to
// Error so recoverable warnings are dropped while fatal diagnostics keep
// printing.
func setupLogger(quiet bool) (*slog.Logger, error) {
	level := slog.LevelWarn
	if quiet {
		level = slog.LevelError
	}

	capabilities := terminal.NewCapabilities(int(os.Stderr.Fd()), terminal.DetectorOptions{
		DisableColor: *noColor,
	})
	handler, err := logging.NewWarnHandler(logging.WarnHandlerOptions{
		Level:        level,
		Capabilities: capabilities,
		Writer:       os.Stderr,
	})
	if err != nil {
		return nil, fmt.Errorf("setting up diagnostics: %w", err)
	}
	return slog.New(handler), nil
}

// loadConfig returns the configured search directories: the TOML file when
// -config is given, the built-in platform defaults otherwise.
func loadConfig() (*config.Config, error) {
	if *configPath == "" {
		return config.Default(), nil
	}
	return config.NewLoader().Load(*configPath)
}

// writeDependencies emits one resolved path per line, most recently
// resolved first.
func writeDependencies(w io.Writer, paths []string) error {
	for _, path := range paths {
		if _, err := fmt.Fprintln(w, path); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
	}
	return nil
}
