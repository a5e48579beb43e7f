// Copyright 2026 The Warren Authors
// SPDX-License-Identifier: Apache-2.0

package stage

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"os/exec"
	"os/signal"
	"slices"
	"sync"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/warren-sandbox/warren/cmd/warren/cli"
	"github.com/warren-sandbox/warren/lib/expand"
	"github.com/warren-sandbox/warren/sandbox"
)

// stageOptions holds the flag values for "warren stage".
type stageOptions struct {
	profileName string
	mountsPath  string
	cacheRoot   string
	dryRun      bool
	verbose     bool
}

// Command returns the "stage" command.
func Command() *cli.Command {
	var options stageOptions

	return &cli.Command{
		Name:    "stage",
		Summary: "Stage a mount set and run the sandbox launcher",
		Description: `Resolve a declarative mount set into a safe filesystem view and run
the given launcher command against it.

Mount lines come from a named profile or from a mounts file (one
"source:dest:mode:optional|required" declaration per line). File
sources pass through directly; directory sources are copied into a
private staging root with every symlink dereferenced, so the guest
can never follow a link out of the declared tree.

The wrapped command receives the resolved view in its environment:

  WARREN_MOUNTS        resolved "hostPath:guestPath:mode" triples,
                       newline-separated
  WARREN_STAGING_ROOT  the staging root path (empty when no
                       directory was staged)
  WARREN_TERM_ROWS,    the profile's terminal geometry, when set
  WARREN_TERM_COLS

plus the profile's env entries after shorthand expansion. The staging
root is removed when the command exits, on errors, and on SIGINT,
SIGTERM, and SIGHUP. Staging roots abandoned by earlier crashed
invocations are reclaimed first.

The exit code mirrors the wrapped command's.`,
		Usage: "warren stage [--profile NAME | --mounts FILE] [flags] -- command [args...]",
		Examples: []cli.Example{
			{
				Description: "Stage the dotfiles profile and hand the view to the runtime",
				Command:     "warren stage --profile dotfiles -- cloud-hypervisor --api-socket /tmp/ch.sock",
			},
			{
				Description: "Preview what a mounts file would stage, without staging",
				Command:     "warren stage --mounts mounts.txt --dry-run",
			},
			{
				Description: "Read mount lines from stdin",
				Command:     "generate-mounts | warren stage --mounts - -- launch-vm",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("stage", pflag.ContinueOnError)
			flagSet.StringVar(&options.profileName, "profile", "", "profile to take mount lines from")
			flagSet.StringVar(&options.mountsPath, "mounts", "", "mounts file (\"-\" for stdin)")
			flagSet.StringVar(&options.cacheRoot, "cache-root", "", "staging cache directory (default: user cache)")
			flagSet.BoolVar(&options.dryRun, "dry-run", false, "print the resolution plan without staging or running")
			flagSet.BoolVar(&options.verbose, "verbose", false, "enable debug logging")
			return flagSet
		},
		Run: func(args []string) error {
			return run(options, args, os.Stdout)
		},
	}
}

// run is the stage command body. The wrapped command writes to
// stdout; warren's own plan output goes there too, and everything
// diagnostic goes to the logger on stderr.
func run(options stageOptions, args []string, stdout io.Writer) error {
	level := slog.LevelInfo
	if options.verbose {
		level = slog.LevelDebug
	}
	logger := cli.NewCommandLoggerAt(level).With("command", "stage")

	if options.profileName == "" && options.mountsPath == "" {
		return cli.Validation("one of --profile or --mounts is required")
	}
	if options.profileName != "" && options.mountsPath != "" {
		return cli.Validation("--profile and --mounts are mutually exclusive")
	}
	if len(args) == 0 && !options.dryRun {
		return cli.Validation("no command to run; pass the launcher after \"--\"")
	}

	cacheRoot := options.cacheRoot
	if cacheRoot == "" {
		var err error
		cacheRoot, err = sandbox.DefaultCacheRoot()
		if err != nil {
			return err
		}
	}

	// Crashed earlier invocations leak their staging roots until the
	// next launch; collect them now. Failures must not block this
	// launch.
	if _, err := sandbox.ReclaimStale(cacheRoot, logger); err != nil {
		logger.Warn("stale staging reclamation failed", "error", err)
	}

	specs, profileEnv, terminal, err := loadMounts(options)
	if err != nil {
		return err
	}

	var root *sandbox.StagingRoot
	staging := func() (*sandbox.StagingRoot, error) {
		if root == nil {
			created, err := sandbox.NewStagingRoot(cacheRoot)
			if err != nil {
				return nil, err
			}
			root = created
		}
		return root, nil
	}
	resolver := sandbox.NewResolver(staging)

	if options.dryRun {
		return printPlan(stdout, resolver, specs)
	}

	// Cleanup runs exactly once over every exit path: normal return,
	// resolution failure, and the fatal signals. The signal path
	// re-raises after cleaning so the exit status still reports the
	// signal.
	var cleanupOnce sync.Once
	cleanup := func() {
		cleanupOnce.Do(func() {
			if root == nil {
				return
			}
			if err := root.Cleanup(); err != nil {
				logger.Warn("staging cleanup failed", "path", root.Path(), "error", err)
			}
		})
	}
	defer cleanup()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer func() {
		signal.Stop(signals)
		close(signals)
	}()
	go func() {
		sig, ok := <-signals
		if !ok {
			return
		}
		cleanup()
		signal.Stop(signals)
		if process, err := os.FindProcess(os.Getpid()); err == nil {
			process.Signal(sig)
		}
	}()

	mounts, err := resolver.ResolveAll(specs)
	if err != nil {
		return err
	}

	stagingPath := ""
	if root != nil {
		stagingPath = root.Path()
		logger.Debug("staging complete", "path", stagingPath, "entries", len(root.Entries()))
	}

	logger.Debug("launching", "command", args[0], "mounts", len(mounts))

	child := exec.Command(args[0], args[1:]...)
	child.Stdin = os.Stdin
	child.Stdout = stdout
	child.Stderr = os.Stderr
	child.Env = launchEnviron(os.Environ(), mounts, stagingPath, profileEnv, terminal)

	if err := child.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code := exitErr.ExitCode()
			if code < 0 {
				// Signal-killed child.
				code = 1
			}
			return &cli.ExitError{Code: code}
		}
		return fmt.Errorf("running %s: %w", args[0], err)
	}
	return nil
}

// loadMounts collects the mount specs plus the profile's env and
// terminal geometry. A mounts file contributes specs only.
func loadMounts(options stageOptions) ([]sandbox.MountSpec, map[string]string, sandbox.TerminalConfig, error) {
	if options.profileName != "" {
		loader, err := sandbox.LoadFromSearchPaths()
		if err != nil {
			return nil, nil, sandbox.TerminalConfig{}, err
		}
		profile, err := loader.Resolve(options.profileName)
		if err != nil {
			return nil, nil, sandbox.TerminalConfig{}, err
		}
		specs, err := profile.MountSpecs()
		if err != nil {
			return nil, nil, sandbox.TerminalConfig{}, err
		}
		return specs, profile.Env, profile.Terminal, nil
	}

	var data []byte
	var err error
	source := options.mountsPath
	if source == "-" {
		source = "stdin"
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return nil, nil, sandbox.TerminalConfig{}, fmt.Errorf("reading mounts from %s: %w", source, err)
	}

	specs, err := sandbox.ParseMountLines(string(data))
	if err != nil {
		return nil, nil, sandbox.TerminalConfig{}, fmt.Errorf("%s: %w", source, err)
	}
	return specs, nil, sandbox.TerminalConfig{}, nil
}

// printPlan writes the dry-run resolution table: one row per mount
// line, with expanded paths and what staging would do. A missing
// required source aborts, exactly as the real launch would.
func printPlan(w io.Writer, resolver *sandbox.Resolver, specs []sandbox.MountSpec) error {
	tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "MODE\tSOURCE\tDEST\tSTAGING\n")
	for _, spec := range specs {
		plan, err := resolver.Plan(spec)
		if err != nil {
			if errors.Is(err, sandbox.ErrSkip) {
				fmt.Fprintf(tw, "%s\t%s\t%s\tskipped (missing optional)\n", plan.Mode, plan.Source, plan.Dest)
				continue
			}
			return err
		}
		staging := "-"
		if plan.IsDir {
			staging = "copy"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", plan.Mode, plan.Source, plan.Dest, staging)
	}
	return tw.Flush()
}

// launchEnviron builds the wrapped command's environment: the parent
// environment plus the mount triples, the staging root, the terminal
// geometry, and the profile env entries (expanded, in sorted key
// order).
func launchEnviron(base []string, mounts []sandbox.ResolvedMount, stagingPath string, profileEnv map[string]string, terminal sandbox.TerminalConfig) []string {
	environ := append([]string{}, base...)
	environ = append(environ, "WARREN_MOUNTS="+sandbox.FormatMounts(mounts))
	environ = append(environ, "WARREN_STAGING_ROOT="+stagingPath)
	if terminal.Rows > 0 {
		environ = append(environ, fmt.Sprintf("WARREN_TERM_ROWS=%d", terminal.Rows))
	}
	if terminal.Columns > 0 {
		environ = append(environ, fmt.Sprintf("WARREN_TERM_COLS=%d", terminal.Columns))
	}
	for _, key := range slices.Sorted(maps.Keys(profileEnv)) {
		environ = append(environ, key+"="+expand.FromEnv(profileEnv[key]))
	}
	return environ
}
