// Copyright 2026 The Warren Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"fmt"

	"github.com/warren-sandbox/warren/lib/tmux"
)

// pane is a tracked debug pane: one tmux window in the debug session.
type pane struct {
	// id is the window name in tmux ("debug-1", "debug-2", ...).
	id string

	// name is the optional human label given at creation.
	name string

	// command is the shell command the pane was created with.
	command string

	// exited records whether the command has finished. The window
	// itself stays alive under remain-on-exit so output remains
	// capturable.
	exited bool
}

// status returns the pane state as shown in listings.
func (p *pane) status() string {
	if p.exited {
		return "exited"
	}
	return "running"
}

// paneSet tracks the panes created through this server, in creation
// order. IDs are never reused within a server's lifetime.
type paneSet struct {
	panes  map[string]*pane
	order  []string
	nextID int
}

func newPaneSet() *paneSet {
	return &paneSet{
		panes:  make(map[string]*pane),
		nextID: 1,
	}
}

// create allocates the next pane ID and tracks a new pane for it. The
// name defaults to the ID when empty.
func (s *paneSet) create(name, command string) *pane {
	id := fmt.Sprintf("debug-%d", s.nextID)
	s.nextID++
	if name == "" {
		name = id
	}
	p := &pane{id: id, name: name, command: command}
	s.panes[id] = p
	s.order = append(s.order, id)
	return p
}

// get returns the tracked pane for id, or nil if the ID is unknown.
func (s *paneSet) get(id string) *pane {
	return s.panes[id]
}

// remove drops a pane from tracking. Its ID is not reused.
func (s *paneSet) remove(id string) {
	if _, ok := s.panes[id]; !ok {
		return
	}
	delete(s.panes, id)
	for i, other := range s.order {
		if other == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// list returns the tracked panes in creation order.
func (s *paneSet) list() []*pane {
	result := make([]*pane, 0, len(s.panes))
	for _, id := range s.order {
		result = append(result, s.panes[id])
	}
	return result
}

func (s *paneSet) len() int {
	return len(s.panes)
}

// markFromWindows updates pane statuses from a tmux window listing.
// Windows are named by pane ID. Panes whose window is absent from the
// listing keep their last known status.
func (s *paneSet) markFromWindows(windows []tmux.Window) {
	for _, w := range windows {
		if p, ok := s.panes[w.Name]; ok {
			p.exited = w.Dead
		}
	}
}
