// Copyright 2026 The Warren Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"testing"

	"github.com/warren-sandbox/warren/lib/tmux"
)

func TestPaneSet_IDSequence(t *testing.T) {
	set := newPaneSet()

	for i, want := range []string{"debug-1", "debug-2", "debug-3"} {
		p := set.create("", "true")
		if p.id != want {
			t.Errorf("pane %d id = %q, want %q", i, p.id, want)
		}
	}

	// Removing a pane does not recycle its ID.
	set.remove("debug-2")
	if p := set.create("", "true"); p.id != "debug-4" {
		t.Errorf("id after remove = %q, want debug-4", p.id)
	}
}

func TestPaneSet_NameDefaultsToID(t *testing.T) {
	set := newPaneSet()

	unnamed := set.create("", "make test")
	if unnamed.name != unnamed.id {
		t.Errorf("unnamed pane name = %q, want %q", unnamed.name, unnamed.id)
	}

	named := set.create("build", "make test")
	if named.name != "build" {
		t.Errorf("named pane name = %q, want build", named.name)
	}
}

func TestPaneSet_Remove(t *testing.T) {
	set := newPaneSet()
	set.create("a", "true")
	set.create("b", "true")
	set.create("c", "true")

	set.remove("debug-2")

	if set.get("debug-2") != nil {
		t.Error("removed pane still retrievable")
	}
	if set.len() != 2 {
		t.Errorf("len = %d, want 2", set.len())
	}

	// Creation order survives the removal.
	panes := set.list()
	if panes[0].id != "debug-1" || panes[1].id != "debug-3" {
		t.Errorf("order after remove = [%s, %s], want [debug-1, debug-3]",
			panes[0].id, panes[1].id)
	}

	// Removing an unknown ID is a no-op.
	set.remove("debug-99")
	if set.len() != 2 {
		t.Errorf("len after bogus remove = %d, want 2", set.len())
	}
}

func TestPaneSet_MarkFromWindows(t *testing.T) {
	set := newPaneSet()
	set.create("", "sleep 60")
	set.create("", "false")
	set.create("", "cat")
	set.get("debug-3").exited = true

	// debug-2's command finished, debug-3's window is absent from the
	// listing, and tmux mentions a window warren never created.
	set.markFromWindows([]tmux.Window{
		{Name: "debug-1", PID: 100, Dead: false},
		{Name: "debug-2", PID: 0, Dead: true},
		{Name: "stray", Dead: true},
	})

	if got := set.get("debug-1").status(); got != "running" {
		t.Errorf("debug-1 status = %q, want running", got)
	}
	if got := set.get("debug-2").status(); got != "exited" {
		t.Errorf("debug-2 status = %q, want exited", got)
	}

	// Absent windows keep their last known status rather than being
	// guessed at or dropped.
	if got := set.get("debug-3").status(); got != "exited" {
		t.Errorf("debug-3 status = %q, want exited", got)
	}
	if set.len() != 3 {
		t.Errorf("len = %d, want 3 (listing must not drop panes)", set.len())
	}
}
