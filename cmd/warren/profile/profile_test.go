// Copyright 2026 The Warren Authors
// SPDX-License-Identifier: Apache-2.0

package profile

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/warren-sandbox/warren/sandbox"
)

func TestPrintProfile(t *testing.T) {
	resolved := &sandbox.Profile{
		Name:        "dev",
		Description: "development environment",
		Mounts: []string{
			"$HOME/.gitconfig:/root/.gitconfig:ro:optional",
			"$HOME/project:/work/project:rw:required",
		},
		Env: map[string]string{
			"EDITOR": "vim",
			"CI":     "false",
		},
		Terminal: sandbox.TerminalConfig{Rows: 24, Columns: 80},
	}

	var buf bytes.Buffer
	if err := printProfile(&buf, resolved, false); err != nil {
		t.Fatal(err)
	}
	output := buf.String()

	for _, want := range []string{
		"Name:         dev",
		"Description:  development environment",
		"Terminal:     80x24",
		"  $HOME/.gitconfig:/root/.gitconfig:ro:optional",
		"  $HOME/project:/work/project:rw:required",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}

	// Env keys print sorted.
	if strings.Index(output, "CI: false") > strings.Index(output, "EDITOR: vim") {
		t.Errorf("env not sorted:\n%s", output)
	}
}

func TestPrintProfileResolved(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if err := os.WriteFile(filepath.Join(home, "cfg"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(home, "proj"), 0o755); err != nil {
		t.Fatal(err)
	}

	resolved := &sandbox.Profile{
		Name: "host-check",
		Mounts: []string{
			"$HOME/cfg:/root/cfg:ro:required",
			"$HOME/proj:/work:rw:required",
			"$HOME/absent:/a:ro:optional",
			"$HOME/gone:/g:ro:required",
		},
	}

	var buf bytes.Buffer
	if err := printProfile(&buf, resolved, true); err != nil {
		t.Fatal(err)
	}
	output := buf.String()

	for _, want := range []string{
		home + "/cfg -> /root/cfg (ro)",
		home + "/proj -> /work (rw, staged copy)",
		home + "/absent -> /a (ro, skipped: optional source missing)",
		"$HOME/gone (mount source not found: " + home + "/gone)",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}

func TestShowUnknownProfile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("WARREN_CONFIG_DIR", t.TempDir())

	err := showCommand().Run([]string{"no-such-profile"})
	if err == nil || !strings.Contains(err.Error(), "profile not found") {
		t.Errorf("err = %v, want a profile-not-found message", err)
	}
}

func TestShowRequiresName(t *testing.T) {
	err := showCommand().Run(nil)
	if err == nil || !strings.Contains(err.Error(), "usage:") {
		t.Errorf("err = %v, want a usage message", err)
	}
}

func TestListRejectsArguments(t *testing.T) {
	err := listCommand().Run([]string{"extra"})
	if err == nil || !strings.Contains(err.Error(), "unexpected argument") {
		t.Errorf("err = %v, want an unexpected-argument message", err)
	}
}
