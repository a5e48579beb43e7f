// Copyright 2026 The Warren Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/warren-sandbox/warren/cmd/warren/cli"
	"github.com/warren-sandbox/warren/lib/tmux"
)

// Tool names.
const (
	toolCreatePane  = "tmux_create_pane"
	toolSendKeys    = "tmux_send_keys"
	toolCapturePane = "tmux_capture_pane"
	toolKillPane    = "tmux_kill_pane"
	toolListPanes   = "tmux_list_panes"
)

// Capture line limits.
const (
	defaultCaptureLines = 100
	maxCaptureLines     = 1000
)

const paneListHint = "Use tmux_list_panes to see active panes."

// toolCatalog returns the descriptions of every tool this server
// implements, in the order they appear in tools/list.
func toolCatalog() []toolDescription {
	return []toolDescription{
		{
			Name: toolCreatePane,
			Description: "Create a tmux pane running a shell command. Use it to spawn " +
				"servers, test runners, or interactive shells. Returns a pane ID " +
				"for later calls.",
			InputSchema: inputSchema{
				Type: "object",
				Properties: map[string]schemaProperty{
					"command": {
						Type:        "string",
						Description: "Shell command to run in the pane (e.g. 'warren stage --profile dev -- make test')",
					},
					"name": {
						Type:        "string",
						Description: "Optional human-readable name for the pane",
					},
				},
				Required: []string{"command"},
			},
		},
		{
			Name: toolSendKeys,
			Description: "Send keystrokes to a pane for interactive input or signals. " +
				"Keys go to tmux verbatim: send 'Enter' to submit a line, " +
				"'C-c' to interrupt.",
			InputSchema: inputSchema{
				Type: "object",
				Properties: map[string]schemaProperty{
					"pane_id": {
						Type:        "string",
						Description: "Target pane ID from tmux_create_pane or tmux_list_panes",
					},
					"keys": {
						Type:        "string",
						Description: "Keystrokes to send, in tmux send-keys syntax",
					},
				},
				Required: []string{"pane_id", "keys"},
			},
		},
		{
			Name: toolCapturePane,
			Description: "Capture recent output from a pane. Works on running and " +
				"exited panes alike; output survives command exit.",
			InputSchema: inputSchema{
				Type: "object",
				Properties: map[string]schemaProperty{
					"pane_id": {
						Type:        "string",
						Description: "Target pane ID",
					},
					"lines": {
						Type:        "number",
						Description: "Lines of history to capture (default 100, max 1000)",
					},
				},
				Required: []string{"pane_id"},
			},
			Annotations: &toolAnnotations{
				ReadOnlyHint:   boolPtr(true),
				IdempotentHint: boolPtr(true),
			},
		},
		{
			Name: toolKillPane,
			Description: "Kill a pane and its process. Use for cleanup when " +
				"done debugging.",
			InputSchema: inputSchema{
				Type: "object",
				Properties: map[string]schemaProperty{
					"pane_id": {
						Type:        "string",
						Description: "Target pane ID",
					},
				},
				Required: []string{"pane_id"},
			},
		},
		{
			Name: toolListPanes,
			Description: "List active panes with their IDs, names, commands, and " +
				"running/exited status.",
			InputSchema: inputSchema{
				Type:       "object",
				Properties: map[string]schemaProperty{},
			},
			Annotations: &toolAnnotations{
				ReadOnlyHint:   boolPtr(true),
				IdempotentHint: boolPtr(true),
			},
		},
	}
}

func boolPtr(value bool) *bool {
	return &value
}

// Tool argument structs. Optional numeric fields use pointers so that
// an explicit zero is distinguishable from an absent field.

type createPaneArgs struct {
	Command string `json:"command"`
	Name    string `json:"name"`
}

type sendKeysArgs struct {
	PaneID string `json:"pane_id"`
	Keys   string `json:"keys"`
}

type capturePaneArgs struct {
	PaneID string `json:"pane_id"`
	Lines  *int   `json:"lines"`
}

type killPaneArgs struct {
	PaneID string `json:"pane_id"`
}

// runTool dispatches a tools/call to the named tool's handler and
// returns the result text. Errors are tool-level failures that become
// isError results, never protocol errors.
func (s *Server) runTool(name string, arguments json.RawMessage) (string, error) {
	catalog := toolCatalog()
	known := false
	for _, t := range catalog {
		if t.Name == name {
			known = true
			break
		}
	}
	if !known {
		return "", cli.Validation("unknown tool %q", name).
			WithHint("Available tools: " + strings.Join(s.availableTools(), ", "))
	}
	if !s.config.toolAllowed(name) {
		return "", cli.Forbidden("tool %q is not allowed by this server's configuration", name)
	}

	switch name {
	case toolCreatePane:
		return s.createPane(arguments)
	case toolSendKeys:
		return s.sendKeys(arguments)
	case toolCapturePane:
		return s.capturePane(arguments)
	case toolKillPane:
		return s.killPane(arguments)
	default:
		return s.listPanes()
	}
}

// availableTools returns the names of the tools this server will
// accept, in catalog order.
func (s *Server) availableTools() []string {
	var names []string
	for _, t := range toolCatalog() {
		if s.config.toolAllowed(t.Name) {
			names = append(names, t.Name)
		}
	}
	return names
}

func (s *Server) createPane(arguments json.RawMessage) (string, error) {
	var args createPaneArgs
	if err := unmarshalArgs(arguments, &args); err != nil {
		return "", err
	}
	if args.Command == "" {
		return "", cli.Validation("missing required parameter %q", "command").
			WithHint("Provide the shell command to run in the pane.")
	}

	p := s.panes.create(args.Name, args.Command)
	if err := s.startPaneWindow(p, args.Command); err != nil {
		s.panes.remove(p.id)
		return "", tmuxToolError(err)
	}

	s.audit.recordCreate(p.id, args.Command, args.Name)
	return fmt.Sprintf("Created pane %q (id: %s) running: %s", p.name, p.id, args.Command), nil
}

// startPaneWindow creates the tmux window for a pane, enables
// remain-on-exit on it, and starts the command.
func (s *Server) startPaneWindow(p *pane, command string) error {
	if err := s.session.NewWindow(p.id); err != nil {
		return err
	}
	if err := s.session.SetWindowOption(p.id, "remain-on-exit", "on"); err != nil {
		return err
	}
	return s.session.SendKeys(p.id, command, "Enter")
}

func (s *Server) sendKeys(arguments json.RawMessage) (string, error) {
	var args sendKeysArgs
	if err := unmarshalArgs(arguments, &args); err != nil {
		return "", err
	}
	if args.PaneID == "" {
		return "", missingPaneID()
	}
	if args.Keys == "" {
		return "", cli.Validation("missing required parameter %q", "keys").
			WithHint("Provide the keystrokes to send.")
	}

	p := s.panes.get(args.PaneID)
	if p == nil {
		return "", unknownPane(args.PaneID)
	}

	// Keys pass through verbatim; the caller sends "Enter" explicitly
	// when it wants the line submitted.
	if err := s.session.SendKeys(p.id, args.Keys); err != nil {
		return "", tmuxToolError(err)
	}

	s.audit.recordSendKeys(p.id, args.Keys)
	return fmt.Sprintf("Sent keys to pane %q", p.id), nil
}

func (s *Server) capturePane(arguments json.RawMessage) (string, error) {
	var args capturePaneArgs
	if err := unmarshalArgs(arguments, &args); err != nil {
		return "", err
	}
	if args.PaneID == "" {
		return "", missingPaneID()
	}

	p := s.panes.get(args.PaneID)
	if p == nil {
		return "", unknownPane(args.PaneID)
	}

	lines := clampLines(args.Lines)
	output, err := s.session.CapturePane(p.id, lines)
	if err != nil {
		return "", tmuxToolError(err)
	}

	s.audit.recordCapture(p.id, lines, output)
	s.refreshStatuses()
	return output, nil
}

func (s *Server) killPane(arguments json.RawMessage) (string, error) {
	var args killPaneArgs
	if err := unmarshalArgs(arguments, &args); err != nil {
		return "", err
	}
	if args.PaneID == "" {
		return "", missingPaneID()
	}

	p := s.panes.get(args.PaneID)
	if p == nil {
		return "", unknownPane(args.PaneID)
	}

	if err := s.session.KillWindow(p.id); err != nil {
		return "", tmuxToolError(err)
	}

	s.panes.remove(p.id)
	s.audit.recordKill(p.id)
	return fmt.Sprintf("Killed pane %q", p.id), nil
}

func (s *Server) listPanes() (string, error) {
	s.refreshStatuses()
	s.audit.recordList()

	if s.panes.len() == 0 {
		return "No active panes. Use tmux_create_pane to create one.", nil
	}

	listing := make([]paneListing, 0, s.panes.len())
	for _, p := range s.panes.list() {
		listing = append(listing, paneListing{
			ID:      p.id,
			Name:    p.name,
			Status:  p.status(),
			Command: p.command,
		})
	}
	out, err := json.MarshalIndent(listing, "", "  ")
	if err != nil {
		return "", cli.Internal("serializing pane listing: %w", err)
	}
	return string(out), nil
}

// paneListing is the JSON shape of one pane in tmux_list_panes output.
type paneListing struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Status  string `json:"status"`
	Command string `json:"command"`
}

// refreshStatuses updates tracked pane statuses from tmux. Best
// effort: a listing failure leaves the last known statuses in place.
func (s *Server) refreshStatuses() {
	windows, err := s.session.ListWindows()
	if err != nil {
		return
	}
	s.panes.markFromWindows(windows)
}

// unmarshalArgs decodes tool call arguments into a typed struct.
func unmarshalArgs(arguments json.RawMessage, target any) error {
	if len(arguments) == 0 || string(arguments) == "null" {
		return nil
	}
	if err := json.Unmarshal(arguments, target); err != nil {
		return cli.Validation("invalid arguments: %w", err)
	}
	return nil
}

// clampLines resolves the optional lines argument to a capture depth.
func clampLines(lines *int) int {
	if lines == nil {
		return defaultCaptureLines
	}
	n := *lines
	if n < 1 {
		return 1
	}
	if n > maxCaptureLines {
		return maxCaptureLines
	}
	return n
}

func missingPaneID() error {
	return cli.Validation("missing required parameter %q", "pane_id").WithHint(paneListHint)
}

func unknownPane(id string) error {
	return cli.NotFound("pane %q not found", id).WithHint(paneListHint)
}

// tmuxToolError maps a tmux failure onto a tool error category. The
// session classification from lib/tmux already carries the stderr
// excerpt in the message.
func tmuxToolError(err error) error {
	switch {
	case errors.Is(err, tmux.ErrWindowNotFound):
		return cli.NotFound("%v", err).WithHint(paneListHint)
	case errors.Is(err, tmux.ErrSessionNotFound):
		return cli.NotFound("%v", err).
			WithHint("The debug session is gone; tmux_create_pane starts a fresh one.")
	default:
		return cli.Internal("%v", err)
	}
}
