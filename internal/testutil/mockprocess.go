// Package testutil provides test infrastructure for unit and integration testing.
package testutil

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/npratt/cclsmon/internal/runner"
)

// Errors returned by MockProcessRunner.
var (
	ErrProcessAlreadyStarted = errors.New("process already started")
	ErrProcessNotStarted     = errors.New("process not started")
	ErrProcessKilled         = errors.New("process killed")
)

// ServeFunc plays the child process. It reads what the parent writes to
// stdin and writes the process output to stdout. The process exits when
// ServeFunc returns.
type ServeFunc func(stdin io.Reader, stdout io.WriteCloser)

// MockProcessRunner implements runner.ProcessRunner for testing.
// Its stdio is wired to an in-process ServeFunc and calls are recorded.
type MockProcessRunner struct {
	mu sync.Mutex

	// Configuration
	serve    ServeFunc
	stderr   string
	startErr error
	waitErr  error

	// State tracking
	started    bool
	killed     bool
	waitCalled bool
	startCount int
	commands   []runner.Command

	stdinR  *io.PipeReader
	stdoutW *io.PipeWriter
	exited  chan struct{}
}

var _ runner.ProcessRunner = (*MockProcessRunner)(nil)

// NewMockProcessRunner creates a mock whose process runs serve.
// A nil serve exits as soon as stdin is closed.
func NewMockProcessRunner(serve ServeFunc) *MockProcessRunner {
	return &MockProcessRunner{serve: serve}
}

// SetStderr configures the stderr content of the process.
func (m *MockProcessRunner) SetStderr(content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stderr = content
}

// SetStartError configures an error to return from Start.
func (m *MockProcessRunner) SetStartError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startErr = err
}

// SetWaitError configures an error to return from Wait.
func (m *MockProcessRunner) SetWaitError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.waitErr = err
}

// Start implements runner.ProcessRunner.Start.
func (m *MockProcessRunner) Start(ctx context.Context, cmd runner.Command) (*runner.Pipes, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return nil, ErrProcessAlreadyStarted
	}

	m.startCount++
	m.commands = append(m.commands, cmd)

	if m.startErr != nil {
		return nil, m.startErr
	}

	stdinR, stdinW := io.Pipe()
	stdoutR, stdoutW := io.Pipe()

	m.started = true
	m.killed = false
	m.waitCalled = false
	m.stdinR = stdinR
	m.stdoutW = stdoutW
	m.exited = make(chan struct{})

	serve := m.serve
	if serve == nil {
		serve = func(stdin io.Reader, _ io.WriteCloser) {
			_, _ = io.Copy(io.Discard, stdin)
		}
	}

	exited := m.exited
	go func() {
		defer close(exited)
		serve(stdinR, stdoutW)
		_ = stdoutW.Close()
		_ = stdinR.Close()
	}()

	return &runner.Pipes{
		Stdin:  stdinW,
		Stdout: stdoutR,
		Stderr: io.NopCloser(strings.NewReader(m.stderr)),
	}, nil
}

// Wait implements runner.ProcessRunner.Wait. It blocks until the
// process exits or is killed.
func (m *MockProcessRunner) Wait() error {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return ErrProcessNotStarted
	}
	m.waitCalled = true
	exited := m.exited
	m.mu.Unlock()

	<-exited

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.killed {
		return ErrProcessKilled
	}
	return m.waitErr
}

// Kill implements runner.ProcessRunner.Kill.
func (m *MockProcessRunner) Kill() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return nil // Safe to call if not started
	}

	m.killed = true

	// Break the pipes so the serve func unblocks
	_ = m.stdinR.CloseWithError(ErrProcessKilled)
	_ = m.stdoutW.CloseWithError(ErrProcessKilled)

	return nil
}

// StartCount returns the number of times Start was called.
func (m *MockProcessRunner) StartCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startCount
}

// Commands returns a copy of all recorded process starts.
func (m *MockProcessRunner) Commands() []runner.Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]runner.Command, len(m.commands))
	copy(result, m.commands)
	return result
}

// Killed returns whether the process was killed.
func (m *MockProcessRunner) Killed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.killed
}

// WaitCalled returns whether Wait was called.
func (m *MockProcessRunner) WaitCalled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.waitCalled
}
