// Copyright 2026 The Warren Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/warren-sandbox/warren/lib/version"
)

const (
	// defaultInitPath is executed when no command is given.
	defaultInitPath = "/warren-init.sh"

	rowsEnv = "WARREN_TERM_ROWS"
	colsEnv = "WARREN_TERM_COLS"

	defaultRows = 24
	defaultCols = 80
)

func main() {
	os.Exit(run())
}

type options struct {
	transcriptPath string
	rows           int
	cols           int
	showVersion    bool
	command        []string
}

// parseArgs separates relay flags from the child command. Flag
// parsing stops at the first non-flag argument so the child's own
// flags pass through untouched.
func parseArgs(args []string) (*options, error) {
	opts := &options{}
	flagSet := pflag.NewFlagSet("warren-relay", pflag.ContinueOnError)
	flagSet.SetInterspersed(false)
	flagSet.StringVar(&opts.transcriptPath, "transcript", "", "append session output to this file (.zst selects zstd)")
	flagSet.IntVar(&opts.rows, "rows", 0, "terminal rows (overrides "+rowsEnv+")")
	flagSet.IntVar(&opts.cols, "cols", 0, "terminal columns (overrides "+colsEnv+")")
	flagSet.BoolVar(&opts.showVersion, "version", false, "print version and exit")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			fmt.Fprintf(os.Stderr, "usage: warren-relay [flags] [--] [command [args...]]\n\n"+
				"Runs the command (default %s) on a fresh PTY and relays I/O\n"+
				"to the microVM console. Spawned by the VM init; not intended\n"+
				"for direct use.\n\nFlags:\n%s", defaultInitPath, flagSet.FlagUsages())
			return nil, err
		}
		return nil, err
	}

	opts.command = flagSet.Args()
	if len(opts.command) == 0 {
		opts.command = []string{defaultInitPath}
	}
	return opts, nil
}

// terminalSize returns the PTY geometry: flag values win over the
// launcher's environment variables, and anything unset or
// non-positive falls back to 24x80.
func terminalSize(opts *options) (rows, cols uint16) {
	rows, cols = defaultRows, defaultCols
	if value, err := strconv.Atoi(os.Getenv(rowsEnv)); err == nil && value > 0 && value <= 0xffff {
		rows = uint16(value)
	}
	if value, err := strconv.Atoi(os.Getenv(colsEnv)); err == nil && value > 0 && value <= 0xffff {
		cols = uint16(value)
	}
	if opts.rows > 0 && opts.rows <= 0xffff {
		rows = uint16(opts.rows)
	}
	if opts.cols > 0 && opts.cols <= 0xffff {
		cols = uint16(opts.cols)
	}
	return rows, cols
}

// restoreCarriageReturns rewrites LF to CR in place. The console's
// ICRNL already turned Enter into LF; the child's line discipline
// wants the CR back.
func restoreCarriageReturns(buf []byte) {
	for i, b := range buf {
		if b == '\n' {
			buf[i] = '\r'
		}
	}
}

// exitStatus maps the child's wait status to the relay's exit code:
// the child's own code when it exited, 1 when a signal killed it.
func exitStatus(status unix.WaitStatus) int {
	if status.Exited() {
		return status.ExitStatus()
	}
	return 1
}

func run() int {
	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		fmt.Fprintf(os.Stderr, "warren-relay: %v\n", err)
		return 1
	}
	if opts.showVersion {
		version.Print("warren-relay")
		return 0
	}

	rows, cols := terminalSize(opts)

	master, slavePath, err := openPTY()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warren-relay: %v\n", err)
		return 1
	}
	defer master.Close()

	// Fd also detaches the file from the runtime poller; all further
	// master I/O goes through the raw fd.
	masterFd := int(master.Fd())
	if err := unix.SetNonblock(masterFd, true); err != nil {
		fmt.Fprintf(os.Stderr, "warren-relay: set PTY non-blocking: %v\n", err)
		return 1
	}

	// Size the PTY before the child starts so it never observes the
	// kernel default geometry.
	if err := setWindowSize(masterFd, rows, cols); err != nil {
		fmt.Fprintf(os.Stderr, "warren-relay: set PTY size: %v\n", err)
		return 1
	}

	// Reap via SIGCHLD + Wait4 rather than exec.Cmd.Wait: the relay
	// loop needs to notice the exit between poll ticks.
	sigchld := make(chan os.Signal, 1)
	signal.Notify(sigchld, syscall.SIGCHLD)

	child, err := startChild(opts.command, slavePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warren-relay: starting %s: %v\n", opts.command[0], err)
		return 127
	}

	var transcriptOut *transcript
	if opts.transcriptPath != "" {
		transcriptOut, err = openTranscript(opts.transcriptPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warren-relay: %v\n", err)
			transcriptOut = nil
		} else {
			defer transcriptOut.Close()
		}
	}

	// Raw mode on the console when it supports it; if not, input is
	// line-buffered but Enter still works via the LF rewrite.
	consoleFd := int(os.Stdin.Fd())
	if state, err := term.MakeRaw(consoleFd); err == nil {
		defer term.Restore(consoleFd, state)
	}

	session := &relaySession{
		consoleFd:  consoleFd,
		masterFd:   masterFd,
		stdout:     os.Stdout,
		transcript: transcriptOut,
		sigchld:    sigchld,
		childPid:   child.Process.Pid,
	}
	session.relay()
	session.drain()
	if !session.exited {
		session.reap(true)
	}
	return exitStatus(session.status)
}

// relaySession is the relay's runtime state: the console and PTY
// master endpoints, the child being waited on, and the exit status
// recorded by reap.
type relaySession struct {
	consoleFd  int
	masterFd   int
	stdout     io.Writer
	transcript *transcript
	sigchld    <-chan os.Signal
	childPid   int

	exited bool
	status unix.WaitStatus
}

// reap collects the child's wait status, blocking when asked to.
func (s *relaySession) reap(block bool) {
	flags := unix.WNOHANG
	if block {
		flags = 0
	}
	for {
		pid, err := unix.Wait4(s.childPid, &s.status, flags, nil)
		if err == unix.EINTR {
			continue
		}
		if err == nil && pid == s.childPid {
			s.exited = true
		}
		return
	}
}

// relay copies bytes between the console and the PTY master until the
// child exits or either side hangs up. Console input has LF rewritten
// to CR before it reaches the master; master output is forwarded
// verbatim.
func (s *relaySession) relay() {
	buf := make([]byte, 4096)
	for !s.exited {
		select {
		case <-s.sigchld:
			s.reap(false)
			continue
		default:
		}

		fds := []unix.PollFd{
			{Fd: int32(s.consoleFd), Events: unix.POLLIN},
			{Fd: int32(s.masterFd), Events: unix.POLLIN},
		}
		// The timeout bounds how long an exit can go unnoticed if
		// the SIGCHLD slipped past the select above.
		ready, err := unix.Poll(fds, 200)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return
		}
		if ready == 0 {
			continue
		}

		if fds[0].Revents&unix.POLLIN != 0 {
			n, _ := unix.Read(s.consoleFd, buf)
			if n <= 0 {
				return
			}
			restoreCarriageReturns(buf[:n])
			if err := writeMaster(s.masterFd, buf[:n]); err != nil {
				return
			}
		}

		if fds[1].Revents&unix.POLLIN != 0 {
			n, err := unix.Read(s.masterFd, buf)
			if n > 0 {
				s.stdout.Write(buf[:n])
				s.transcript.Record(buf[:n])
			} else if err != nil && err != unix.EAGAIN && err != unix.EIO {
				return
			}
		}

		if fds[0].Revents&(unix.POLLHUP|unix.POLLERR) != 0 {
			return
		}
		// POLLERR on the master is normal while the child exits;
		// only a hangup ends the loop from that side.
		if fds[1].Revents&unix.POLLHUP != 0 {
			return
		}
	}
}

// drain forwards whatever output is still buffered in the PTY after
// the relay loop ends, so a final prompt or crash backtrace is not
// lost.
func (s *relaySession) drain() {
	buf := make([]byte, 4096)
	for {
		n, _ := unix.Read(s.masterFd, buf)
		if n <= 0 {
			return
		}
		s.stdout.Write(buf[:n])
		s.transcript.Record(buf[:n])
	}
}

// writeMaster writes all of data to the PTY master, waiting for the
// input buffer to drain when the child is slow to read.
func writeMaster(fd int, data []byte) error {
	for len(data) > 0 {
		n, err := unix.Write(fd, data)
		if n > 0 {
			data = data[n:]
			continue
		}
		switch err {
		case unix.EAGAIN:
			fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
			if _, pollErr := unix.Poll(fds, 200); pollErr != nil && pollErr != unix.EINTR {
				return pollErr
			}
		case unix.EINTR:
		case nil:
			return io.ErrShortWrite
		default:
			return err
		}
	}
	return nil
}

// startChild runs the command on the PTY slave as the leader of a new
// session, with the slave as its controlling terminal.
func startChild(command []string, slavePath string) (*exec.Cmd, error) {
	slave, err := os.OpenFile(slavePath, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open PTY slave %s: %w", slavePath, err)
	}

	child := exec.Command(command[0], command[1:]...)
	child.Stdin = slave
	child.Stdout = slave
	child.Stderr = slave
	child.SysProcAttr = &syscall.SysProcAttr{
		Setsid:  true,
		Setctty: true,
		Ctty:    0, // fd 0 in child = slave PTY
	}

	err = child.Start()
	// The child holds its own copies via fd 0/1/2.
	slave.Close()
	if err != nil {
		return nil, err
	}
	return child, nil
}
