// Package runner provides abstractions for running a language server process
// with its standard streams attached.
// It enables testability by allowing mock implementations to be substituted
// for real process execution.
package runner

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
)

// Command describes a process to start.
type Command struct {
	Name string
	Args []string
	Dir  string // Working directory (empty = current)
}

// Pipes holds the standard streams of a started process.
type Pipes struct {
	Stdin  io.WriteCloser
	Stdout io.ReadCloser
	Stderr io.ReadCloser
}

// ProcessRunner abstracts interactive subprocess execution.
type ProcessRunner interface {
	// Start spawns a process and returns its stdio pipes.
	// The process runs until Wait is called or the context is cancelled.
	Start(ctx context.Context, cmd Command) (*Pipes, error)

	// Wait blocks until the process exits and returns the exit error.
	// Must be called after Start to avoid resource leaks.
	Wait() error

	// Kill terminates the process immediately with SIGKILL.
	// Safe to call multiple times or if process already exited.
	Kill() error
}

// ExecProcessRunner implements ProcessRunner using os/exec.
// It is the production implementation for running real processes.
type ExecProcessRunner struct {
	mu      sync.Mutex
	cmd     *exec.Cmd
	started bool
}

// NewExecProcessRunner creates a new ExecProcessRunner.
func NewExecProcessRunner() *ExecProcessRunner {
	return &ExecProcessRunner{}
}

// Start spawns the described process.
// The returned stdout and stderr can be read concurrently.
func (r *ExecProcessRunner) Start(ctx context.Context, c Command) (*Pipes, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return nil, fmt.Errorf("process already started")
	}

	r.cmd = exec.CommandContext(ctx, c.Name, c.Args...)
	r.cmd.Dir = c.Dir

	stdin, err := r.cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}

	stdout, err := r.cmd.StdoutPipe()
	if err != nil {
		_ = stdin.Close()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	stderr, err := r.cmd.StderrPipe()
	if err != nil {
		_ = stdin.Close()
		_ = stdout.Close()
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := r.cmd.Start(); err != nil {
		_ = stdin.Close()
		_ = stdout.Close()
		_ = stderr.Close()
		return nil, fmt.Errorf("start process: %w", err)
	}

	r.started = true
	return &Pipes{Stdin: stdin, Stdout: stdout, Stderr: stderr}, nil
}

// Wait blocks until the process exits and returns the exit error.
func (r *ExecProcessRunner) Wait() error {
	r.mu.Lock()
	cmd := r.cmd
	r.mu.Unlock()

	if cmd == nil {
		return fmt.Errorf("process not started")
	}

	return cmd.Wait()
}

// Kill terminates the process immediately with SIGKILL.
func (r *ExecProcessRunner) Kill() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cmd == nil || r.cmd.Process == nil {
		return nil // Not started or already cleaned up
	}

	return r.cmd.Process.Kill()
}

// PID returns the process id, or 0 if the process has not started.
func (r *ExecProcessRunner) PID() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cmd == nil || r.cmd.Process == nil {
		return 0
	}
	return r.cmd.Process.Pid
}
