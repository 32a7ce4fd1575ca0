package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"time"
)

// DefaultClientTimeout bounds one request, from dial to response.
const DefaultClientTimeout = 5 * time.Second

// ErrNotRunning is returned when no monitor is listening on the socket.
var ErrNotRunning = errors.New("monitor not running")

var errTimeout = errors.New("monitor request timed out")

// Client talks to a running monitor over its control socket. Each call
// uses its own connection.
type Client struct {
	sockPath string
	timeout  time.Duration
}

// NewClient creates a client for the socket at sockPath.
func NewClient(sockPath string) *Client {
	return &Client{
		sockPath: sockPath,
		timeout:  DefaultClientTimeout,
	}
}

// SetTimeout sets the per-request timeout.
func (c *Client) SetTimeout(d time.Duration) {
	c.timeout = d
}

// Status returns the monitor's current snapshot and counters.
func (c *Client) Status() (*StatusResponse, error) {
	var status StatusResponse
	if err := c.call(MethodStatus, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Refresh asks the monitor to poll now. The returned poll count lets the
// caller wait for the refreshed status.
func (c *Client) Refresh() (*RefreshResponse, error) {
	var resp RefreshResponse
	if err := c.call(MethodRefresh, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop asks the monitor to shut down and returns its pid.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.call(MethodStop, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// WaitForPoll polls Status until the monitor has completed more than
// after polls or the timeout passes.
func (c *Client) WaitForPoll(after int, timeout time.Duration) (*StatusResponse, error) {
	deadline := time.Now().Add(timeout)
	for {
		status, err := c.Status()
		if err != nil {
			return nil, err
		}
		if status.Polls > after {
			return status, nil
		}
		if time.Now().After(deadline) {
			return status, fmt.Errorf("no poll completed within %v", timeout)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

// IsRunning reports whether something accepts connections on the socket.
func (c *Client) IsRunning() bool {
	conn, err := net.DialTimeout("unix", c.sockPath, time.Second)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// call sends one request and decodes its result into out.
func (c *Client) call(method string, out any) error {
	conn, err := net.DialTimeout("unix", c.sockPath, c.timeout)
	if err != nil {
		return dialError(err)
	}
	defer func() { _ = conn.Close() }()

	if err := conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return fmt.Errorf("set deadline: %w", err)
	}
	if err := json.NewEncoder(conn).Encode(Request{Method: method}); err != nil {
		return fmt.Errorf("send %s request: %w", method, err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return errTimeout
		}
		return fmt.Errorf("read %s response: %w", method, err)
	}
	if resp.Error != "" {
		return fmt.Errorf("monitor error: %s", resp.Error)
	}
	if out == nil || len(resp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}

// dialError maps a failed dial to ErrNotRunning where no monitor listens.
func dialError(err error) error {
	switch {
	case errors.Is(err, syscall.ENOENT), errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("%w (socket not found)", ErrNotRunning)
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("%w (connection refused)", ErrNotRunning)
	case errors.Is(err, os.ErrDeadlineExceeded):
		return errTimeout
	}
	return fmt.Errorf("connect to monitor: %w", err)
}
