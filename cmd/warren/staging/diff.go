// Copyright 2026 The Warren Authors
// SPDX-License-Identifier: Apache-2.0

package staging

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/warren-sandbox/warren/cmd/warren/cli"
	"github.com/warren-sandbox/warren/lib/treehash"
	"github.com/warren-sandbox/warren/sandbox"
)

func diffCommand() *cli.Command {
	var cacheRoot string

	return &cli.Command{
		Name:    "diff",
		Summary: "Check a staging root for modifications",
		Description: `Rehash every staged entry in a staging root and compare against the
digests recorded at staging time. A read-write directory mount drifts
when the sandbox writes to the staged copy.

Exits 0 when every entry is clean and 1 when any entry is modified or
missing.`,
		Usage: "warren staging diff <pid> [--cache-root DIR]",
		Examples: []cli.Example{
			{
				Description: "Check the staging root owned by PID 12345",
				Command:     "warren staging diff 12345",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("diff", pflag.ContinueOnError)
			flagSet.StringVar(&cacheRoot, "cache-root", "", "staging cache directory (default: user cache dir)")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return cli.Validation("usage: warren staging diff <pid> [--cache-root DIR]")
			}
			pid, err := strconv.Atoi(args[0])
			if err != nil || pid <= 0 {
				return cli.Validation("invalid PID %q", args[0])
			}

			root, err := resolveCacheRoot(cacheRoot)
			if err != nil {
				return err
			}
			return diffRoot(filepath.Join(root, strconv.Itoa(pid)), pid)
		},
	}
}

func diffRoot(rootPath string, pid int) error {
	manifest, err := sandbox.ReadManifest(rootPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cli.NotFound("no staging root for PID %d", pid).
				WithHint("Run 'warren staging list' to see existing roots.")
		}
		return err
	}

	if len(manifest.Entries) == 0 {
		fmt.Printf("Staging root for PID %d has no staged entries.\n", pid)
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "ENTRY\tDEST\tSTATUS\n")
	drifted := 0
	for _, entry := range manifest.Entries {
		stagedPath := filepath.Join(rootPath, strconv.Itoa(entry.Index))
		status := "clean"
		stat, err := treehash.Tree(stagedPath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			status = "missing"
			drifted++
		case err != nil:
			return fmt.Errorf("checking entry %d: %w", entry.Index, err)
		case stat.Digest.String() != entry.Digest:
			status = "modified"
			drifted++
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", entry.Index, entry.GuestPath, status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if drifted > 0 {
		return &cli.ExitError{Code: 1}
	}
	return nil
}
