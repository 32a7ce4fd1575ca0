package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"
)

const (
	// maxRequestSize bounds one request line.
	maxRequestSize = 64 * 1024
	// readTimeout bounds how long a client may take to send its request.
	readTimeout = 30 * time.Second
	// socketPermissions restricts the socket to its owner.
	socketPermissions = 0600
	// maxSocketPath is the portable limit for sun_path.
	maxSocketPath = 104
)

// Start listens on the control socket and serves requests until ctx is
// cancelled or Stop is called. The socket file is removed on return.
func (d *Daemon) Start(ctx context.Context) error {
	listener, err := d.listen()
	if err != nil {
		return err
	}
	d.logger.Info("control socket listening", "socket", d.sockPath)

	stopOnCancel := context.AfterFunc(ctx, func() { _ = d.Stop() })
	defer stopOnCancel()

	for {
		conn, err := listener.Accept()
		if errors.Is(err, net.ErrClosed) {
			return d.Stop()
		}
		if err != nil {
			d.logger.Warn("accept failed", "error", err)
			continue
		}
		go d.serveConn(ctx, conn)
	}
}

// listen replaces any stale socket file and marks the daemon running.
func (d *Daemon) listen() (net.Listener, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return nil, errors.New("daemon already running")
	}
	if len(d.sockPath) >= maxSocketPath {
		return nil, fmt.Errorf("socket path too long (%d bytes): %s", len(d.sockPath), d.sockPath)
	}
	if err := os.MkdirAll(filepath.Dir(d.sockPath), 0755); err != nil {
		return nil, fmt.Errorf("create socket directory: %w", err)
	}
	_ = os.Remove(d.sockPath)

	listener, err := net.Listen("unix", d.sockPath)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}
	if err := os.Chmod(d.sockPath, socketPermissions); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("set socket permissions: %w", err)
	}

	d.listener = listener
	d.running = true
	d.startTime = time.Now()
	return listener, nil
}

// Stop closes the listener and removes the socket file. Safe to call more
// than once.
func (d *Daemon) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return nil
	}
	d.running = false

	if err := d.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		d.logger.Warn("close control socket", "error", err)
	}
	d.listener = nil
	_ = os.Remove(d.sockPath)

	d.logger.Info("control socket closed")
	return nil
}

// serveConn answers the single request sent on conn.
func (d *Daemon) serveConn(ctx context.Context, conn net.Conn) {
	defer func() { _ = conn.Close() }()

	if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		return
	}
	enc := json.NewEncoder(conn)

	var req Request
	if err := json.NewDecoder(io.LimitReader(conn, maxRequestSize)).Decode(&req); err != nil {
		_ = enc.Encode(Response{Error: fmt.Sprintf("decode error: %v", err)})
		return
	}
	if ctx.Err() != nil {
		_ = enc.Encode(Response{Error: "monitor is shutting down", ID: req.ID})
		return
	}

	d.logger.Debug("control request", "method", req.Method)
	_ = enc.Encode(d.respond(&req))
}

// respond runs req and encodes its result.
func (d *Daemon) respond(req *Request) Response {
	resp := Response{ID: req.ID}

	result, err := d.dispatch(req.Method)
	if err != nil {
		resp.Error = err.Error()
		return resp
	}
	raw, err := json.Marshal(result)
	if err != nil {
		resp.Error = fmt.Sprintf("encode %s result: %v", req.Method, err)
		return resp
	}
	resp.Result = raw
	return resp
}
