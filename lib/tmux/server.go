// Copyright 2026 The Warren Authors
// SPDX-License-Identifier: Apache-2.0

// Package tmux drives the tmux binary for warren's debug tooling. The
// debug MCP server keeps every pane it spawns inside one dedicated
// session on the developer's default tmux server, so a human can
// attach with "tmux attach -t <session>" and watch the same panes the
// agent is driving. All tmux commands go through Server, which owns
// the session name and injects the session-qualified target for every
// window operation.
//
// The session is created lazily on first use with remain-on-exit
// enabled: panes whose command has exited stay visible for capture
// until they are explicitly killed.
package tmux

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Classified tmux failures. Callers match these with errors.Is to turn
// a raw tmux stderr line into an actionable message.
var (
	// ErrSessionNotFound reports that the session is gone or the tmux
	// server is not running.
	ErrSessionNotFound = errors.New("tmux session not found")

	// ErrWindowNotFound reports that the targeted window does not
	// exist in the session.
	ErrWindowNotFound = errors.New("tmux window not found")
)

// Runner executes one tmux command and returns its stdout and stderr.
// The production runner shells out to the tmux binary; tests install a
// scripted runner instead.
type Runner func(args ...string) (stdout, stderr string, err error)

// execRunner runs the real tmux binary.
func execRunner(args ...string) (string, string, error) {
	cmd := exec.Command("tmux", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// Server manages one tmux session. Windows inside the session are the
// unit of work: each debug pane is a window, named by its pane ID, and
// every operation targets "<session>:<window>".
//
// Server is not safe for concurrent use. The MCP server serializes
// tool calls, which is the only caller.
type Server struct {
	session string
	width   int
	height  int
	created bool
	run     Runner
}

// NewServer returns a Server that drives the tmux binary. The session
// is created on first use at the given width and height.
func NewServer(session string, width, height int) *Server {
	return NewServerWithRunner(session, width, height, execRunner)
}

// NewServerWithRunner is NewServer with a replacement command runner.
// Tests use this to script tmux responses without a live server.
func NewServerWithRunner(session string, width, height int, run Runner) *Server {
	return &Server{
		session: session,
		width:   width,
		height:  height,
		run:     run,
	}
}

// Session returns the session name.
func (s *Server) Session() string {
	return s.session
}

// Created reports whether the session has been created.
func (s *Server) Created() bool {
	return s.created
}

// target returns the session-qualified window target.
func (s *Server) target(window string) string {
	return s.session + ":" + window
}

// command executes a tmux command and classifies the common failure
// modes from stderr. Anything unrecognized surfaces as a generic
// error carrying the full command line and the stderr excerpt.
func (s *Server) command(args ...string) (string, error) {
	stdout, stderr, err := s.run(args...)
	if err == nil {
		return stdout, nil
	}

	trimmed := strings.TrimSpace(stderr)
	switch {
	case strings.Contains(trimmed, "session not found"),
		strings.Contains(trimmed, "no server running"):
		// The session observably does not exist (killed externally, or
		// its last window closed). The next EnsureSession recreates it.
		s.created = false
		return "", fmt.Errorf("session %q: %w", s.session, ErrSessionNotFound)
	case strings.Contains(trimmed, "can't find window"),
		strings.Contains(trimmed, "window not found"),
		strings.Contains(trimmed, "no such window"):
		return "", fmt.Errorf("%w (%s)", ErrWindowNotFound, trimmed)
	}
	return "", fmt.Errorf("tmux %s: %w (%s)", strings.Join(args, " "), err, trimmed)
}

// EnsureSession creates the detached session on first call and is a
// no-op afterwards. The session gets remain-on-exit so panes survive
// their command's exit and stay available for capture.
func (s *Server) EnsureSession() error {
	if s.created {
		return nil
	}

	if _, err := s.command("new-session", "-d", "-s", s.session,
		"-x", strconv.Itoa(s.width), "-y", strconv.Itoa(s.height)); err != nil {
		return fmt.Errorf("creating session %q: %w", s.session, err)
	}
	if _, err := s.command("set-option", "-t", s.session, "remain-on-exit", "on"); err != nil {
		return fmt.Errorf("configuring session %q: %w", s.session, err)
	}

	s.created = true
	return nil
}

// NewWindow creates a window named name, creating the session first if
// it does not exist yet.
func (s *Server) NewWindow(name string) error {
	if err := s.EnsureSession(); err != nil {
		return err
	}
	if _, err := s.command("new-window", "-t", s.session, "-n", name); err != nil {
		return fmt.Errorf("creating window %q: %w", name, err)
	}
	return nil
}

// SetWindowOption sets a tmux option on a single window. Session-level
// options set before a window exists do not apply to windows created
// later, so remain-on-exit is set again per window.
func (s *Server) SetWindowOption(window, key, value string) error {
	if _, err := s.command("set-option", "-t", s.target(window), key, value); err != nil {
		return fmt.Errorf("setting %s on window %q: %w", key, window, err)
	}
	return nil
}

// SendKeys sends keystrokes to the window's active pane. Each element
// is passed through to tmux send-keys, which interprets key names like
// "Enter" and "^C"; literal text goes through unchanged.
func (s *Server) SendKeys(window string, keys ...string) error {
	args := append([]string{"send-keys", "-t", s.target(window)}, keys...)
	if _, err := s.command(args...); err != nil {
		return fmt.Errorf("sending keys to window %q: %w", window, err)
	}
	return nil
}

// CapturePane returns the last lines lines of the window's pane
// content, scrollback included. The pane may be dead (remain-on-exit
// keeps it around), which is the normal case when capturing the final
// output of an exited command.
func (s *Server) CapturePane(window string, lines int) (string, error) {
	output, err := s.command("capture-pane", "-t", s.target(window),
		"-p", "-S", "-"+strconv.Itoa(lines))
	if err != nil {
		return "", fmt.Errorf("capturing window %q: %w", window, err)
	}
	return output, nil
}

// KillWindow removes a window and terminates whatever runs in it.
func (s *Server) KillWindow(window string) error {
	if _, err := s.command("kill-window", "-t", s.target(window)); err != nil {
		return fmt.Errorf("killing window %q: %w", window, err)
	}
	return nil
}

// Window describes one window in the session as reported by tmux.
type Window struct {
	// Name is the window name, which warren sets to the pane ID.
	Name string

	// PID is the process ID of the pane's command. Zero when tmux
	// reports no PID.
	PID int

	// Dead reports whether the pane's command has exited. The window
	// itself persists under remain-on-exit.
	Dead bool
}

// Status returns "exited" or "running" for display.
func (w Window) Status() string {
	if w.Dead {
		return "exited"
	}
	return "running"
}

// listFormat is the tmux format string ListWindows parses. Field order
// is load-bearing: name, pane PID, pane dead flag.
const listFormat = "#{window_name}|#{pane_pid}|#{pane_dead}"

// ListWindows returns every window in the session. Before the session
// exists there is nothing to list and the result is empty.
func (s *Server) ListWindows() ([]Window, error) {
	if !s.created {
		return nil, nil
	}

	output, err := s.command("list-windows", "-t", s.session, "-F", listFormat)
	if err != nil {
		return nil, fmt.Errorf("listing windows: %w", err)
	}

	var windows []Window
	for _, line := range strings.Split(output, "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "|", 3)
		if len(parts) < 3 {
			continue
		}
		// A pane with no process reports an empty PID. Atoi failure
		// leaves it at zero.
		pid, _ := strconv.Atoi(parts[1])
		windows = append(windows, Window{
			Name: parts[0],
			PID:  pid,
			Dead: parts[2] == "1",
		})
	}
	return windows, nil
}

// KillSession tears the session down. A session that is already gone
// or a stopped tmux server are normal conditions during cleanup, not
// errors.
func (s *Server) KillSession() error {
	if !s.created {
		return nil
	}
	s.created = false

	if _, err := s.command("kill-session", "-t", s.session); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil
		}
		return fmt.Errorf("killing session %q: %w", s.session, err)
	}
	return nil
}
