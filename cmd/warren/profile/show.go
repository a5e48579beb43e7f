// Copyright 2026 The Warren Authors
// SPDX-License-Identifier: Apache-2.0

package profile

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/spf13/pflag"

	"github.com/warren-sandbox/warren/cmd/warren/cli"
	"github.com/warren-sandbox/warren/sandbox"
)

func showCommand() *cli.Command {
	var resolveMounts bool

	return &cli.Command{
		Name:    "show",
		Summary: "Show a profile after inheritance",
		Description: `Show a profile with inheritance applied: its mounts, environment, and
terminal geometry.

With --resolve, each mount is additionally checked against this host:
variables are expanded, optional mounts are checked for existence, and
directory mounts are marked as staged copies. The check is
informational and never fails the command; "warren stage --dry-run"
is the strict version.`,
		Usage: "warren profile show <name> [--resolve]",
		Examples: []cli.Example{
			{
				Description: "Show the built-in dotfiles profile",
				Command:     "warren profile show dotfiles",
			},
			{
				Description: "Check how its mounts resolve on this host",
				Command:     "warren profile show dotfiles --resolve",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("show", pflag.ContinueOnError)
			flagSet.BoolVar(&resolveMounts, "resolve", false, "resolve mounts against this host")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return cli.Validation("usage: warren profile show <name> [--resolve]")
			}

			loader, err := sandbox.LoadFromSearchPaths()
			if err != nil {
				return err
			}
			resolved, err := loader.Resolve(args[0])
			if err != nil {
				return err
			}
			return printProfile(os.Stdout, resolved, resolveMounts)
		},
	}
}

func printProfile(w io.Writer, resolved *sandbox.Profile, resolveMounts bool) error {
	fmt.Fprintf(w, "Name:         %s\n", resolved.Name)
	if resolved.Description != "" {
		fmt.Fprintf(w, "Description:  %s\n", resolved.Description)
	}
	if resolved.Terminal.Rows > 0 || resolved.Terminal.Columns > 0 {
		fmt.Fprintf(w, "Terminal:     %dx%d\n", resolved.Terminal.Columns, resolved.Terminal.Rows)
	}

	if len(resolved.Mounts) > 0 {
		fmt.Fprintf(w, "\nMounts:\n")
		if resolveMounts {
			if err := printResolvedMounts(w, resolved); err != nil {
				return err
			}
		} else {
			for _, line := range resolved.Mounts {
				fmt.Fprintf(w, "  %s\n", line)
			}
		}
	}

	if len(resolved.Env) > 0 {
		fmt.Fprintf(w, "\nEnv:\n")
		for _, key := range slices.Sorted(maps.Keys(resolved.Env)) {
			fmt.Fprintf(w, "  %s: %s\n", key, resolved.Env[key])
		}
	}
	return nil
}

// printResolvedMounts expands and checks each mount without staging
// anything. Problems are reported inline per mount rather than as
// command errors.
func printResolvedMounts(w io.Writer, resolved *sandbox.Profile) error {
	specs, err := resolved.MountSpecs()
	if err != nil {
		return err
	}

	resolver := sandbox.NewResolver(nil)
	for _, spec := range specs {
		plan, err := resolver.Plan(spec)
		switch {
		case errors.Is(err, sandbox.ErrSkip):
			fmt.Fprintf(w, "  %s -> %s (%s, skipped: optional source missing)\n", plan.Source, plan.Dest, plan.Mode)
		case err != nil:
			fmt.Fprintf(w, "  %s (%v)\n", spec.Source, err)
		case plan.IsDir:
			fmt.Fprintf(w, "  %s -> %s (%s, staged copy)\n", plan.Source, plan.Dest, plan.Mode)
		default:
			fmt.Fprintf(w, "  %s -> %s (%s)\n", plan.Source, plan.Dest, plan.Mode)
		}
	}
	return nil
}
