package daemon

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"
)

const (
	// daemonEnvVar marks the re-executed background process.
	daemonEnvVar = "CCLSMON_DAEMONIZED"

	// socketWaitTimeout bounds how long the parent waits for the control socket.
	socketWaitTimeout = 2 * time.Second

	socketCheckInterval = 50 * time.Millisecond
)

// errChildExited is returned by waitForSocketReady when the background
// process exits before its socket accepts connections.
var errChildExited = errors.New("monitor exited during startup")

// Daemonize runs the monitor in the background by re-executing the binary
// with CCLSMON_DAEMONIZED=1 in a new session. It returns shouldExit=true in
// the parent and shouldExit=false in the child.
//
// The child's stderr is appended to logPath so failures before logging is
// set up (ccls missing, bad config) are still visible through "cclsmon logs".
// The parent waits up to 2s for socketPath and reports the outcome to out.
func Daemonize(socketPath, logPath string, out io.Writer) (shouldExit bool, pid int, err error) {
	if IsDaemonized() {
		return false, os.Getpid(), nil
	}

	executable, err := os.Executable()
	if err != nil {
		return false, 0, fmt.Errorf("get executable path: %w", err)
	}

	cmd := exec.Command(executable, os.Args[1:]...)
	cmd.Env = append(os.Environ(), daemonEnvVar+"=1")
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if logPath != "" {
		if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
			return false, 0, fmt.Errorf("create log directory: %w", err)
		}
		stderr, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return false, 0, fmt.Errorf("open log file: %w", err)
		}
		defer func() { _ = stderr.Close() }()
		cmd.Stderr = stderr
	}

	if err := cmd.Start(); err != nil {
		return false, 0, fmt.Errorf("start background monitor: %w", err)
	}

	childPID := cmd.Process.Pid
	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	switch err := waitForSocketReady(socketPath, socketWaitTimeout, exited); {
	case err == nil:
		_, _ = fmt.Fprintf(out, "Started monitor (pid %d)\n", childPID)
	case errors.Is(err, errChildExited):
		return true, childPID, fmt.Errorf("%w (see %s)", err, logPath)
	default:
		// ccls may still be starting; the socket comes up later.
		_, _ = fmt.Fprintf(out, "Started monitor (pid %d), control socket not yet available\n", childPID)
	}

	return true, childPID, nil
}

// IsDaemonized reports whether this process is the background monitor.
func IsDaemonized() bool {
	return os.Getenv(daemonEnvVar) == "1"
}

// waitForSocketReady polls socketPath until it accepts a connection, the
// timeout passes, or exited delivers the child's exit status.
func waitForSocketReady(socketPath string, timeout time.Duration, exited <-chan error) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("unix", socketPath, socketCheckInterval)
		if err == nil {
			_ = conn.Close()
			return nil
		}

		select {
		case werr := <-exited:
			if werr != nil {
				return fmt.Errorf("%w: %v", errChildExited, werr)
			}
			return errChildExited
		case <-time.After(socketCheckInterval):
		}
	}
	return fmt.Errorf("socket not available after %v", timeout)
}
