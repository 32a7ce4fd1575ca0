package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/npratt/cclsmon/internal/monitor"
	"github.com/npratt/cclsmon/internal/runner"
)

// DefaultShutdownTimeout bounds the shutdown handshake in Close.
const DefaultShutdownTimeout = 3 * time.Second

// Options configures a ccls client.
type Options struct {
	Command runner.Command

	// RootDir is the workspace root sent as rootUri.
	RootDir string

	// InitOptions are passed through as initializationOptions.
	InitOptions map[string]any

	// CompilationDatabaseDirectory overrides the directory ccls reads
	// compile_commands.json from. Empty leaves the ccls default.
	CompilationDatabaseDirectory string

	// RequestTimeout bounds each info request. Zero means no timeout.
	RequestTimeout time.Duration

	Logger *slog.Logger
}

// Client is a running ccls language server. It implements monitor.InfoClient.
type Client struct {
	proc   runner.ProcessRunner
	conn   *Conn
	opts   Options
	logger *slog.Logger

	stderrDone chan struct{}
}

var _ monitor.InfoClient = (*Client)(nil)

// Start spawns ccls via proc and performs the initialize handshake.
func Start(ctx context.Context, proc runner.ProcessRunner, opts Options) (*Client, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Command.Name == "" {
		return nil, errors.New("ccls command is empty")
	}

	root, err := filepath.Abs(opts.RootDir)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", opts.RootDir, err)
	}
	if opts.Command.Dir == "" {
		opts.Command.Dir = root
	}

	pipes, err := proc.Start(ctx, opts.Command)
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", opts.Command.Name, err)
	}

	c := &Client{
		proc:       proc,
		opts:       opts,
		logger:     logger,
		stderrDone: make(chan struct{}),
	}
	c.conn = NewConn(pipes.Stdout, pipes.Stdin,
		WithConnLogger(logger),
		WithNotificationHandler(c.handleNotification),
	)
	go c.forwardStderr(pipes.Stderr)

	if err := c.initialize(ctx, root); err != nil {
		_ = c.conn.Close()
		_ = proc.Kill()
		_ = proc.Wait()
		return nil, err
	}

	logger.Info("ccls started", "command", opts.Command.Name, "root", root)
	return c, nil
}

func (c *Client) initialize(ctx context.Context, root string) error {
	uri := FileURI(root)
	params := InitializeParams{
		ProcessID:             os.Getpid(),
		RootURI:               uri,
		RootPath:              root,
		InitializationOptions: c.initOptions(),
		Capabilities:          map[string]any{},
		WorkspaceFolders:      []WorkspaceFolder{{URI: uri, Name: filepath.Base(root)}},
	}

	var result InitializeResult
	if err := c.conn.Call(ctx, MethodInitialize, params, &result); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	if result.ServerInfo != nil {
		c.logger.Debug("ccls server info", "name", result.ServerInfo.Name, "version", result.ServerInfo.Version)
	}

	if err := c.conn.Notify(MethodInitialized, struct{}{}); err != nil {
		return fmt.Errorf("initialized: %w", err)
	}
	return nil
}

// initOptions merges the configured options with the database directory.
func (c *Client) initOptions() map[string]any {
	opts := make(map[string]any, len(c.opts.InitOptions)+1)
	maps.Copy(opts, c.opts.InitOptions)
	if c.opts.CompilationDatabaseDirectory != "" {
		opts["compilationDatabaseDirectory"] = c.opts.CompilationDatabaseDirectory
	}
	if len(opts) == 0 {
		return nil
	}
	return opts
}

// Info issues a $ccls/info request.
func (c *Client) Info(ctx context.Context) (*monitor.InfoResponse, error) {
	if c.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.RequestTimeout)
		defer cancel()
	}

	var info monitor.InfoResponse
	if err := c.conn.Call(ctx, MethodCCLSInfo, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Done is closed when the connection to ccls is lost.
func (c *Client) Done() <-chan struct{} {
	return c.conn.Done()
}

// Close performs the shutdown/exit handshake and waits for the process.
// The process is killed if it does not exit within ctx or DefaultShutdownTimeout.
func (c *Client) Close(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, DefaultShutdownTimeout)
	defer cancel()

	if err := c.conn.Call(shutdownCtx, MethodShutdown, nil, nil); err != nil {
		c.logger.Debug("ccls shutdown request failed", "error", err)
	} else if err := c.conn.Notify(MethodExit, nil); err != nil {
		c.logger.Debug("ccls exit notification failed", "error", err)
	}
	_ = c.conn.Close()

	exited := make(chan error, 1)
	go func() {
		exited <- c.proc.Wait()
	}()

	select {
	case err := <-exited:
		<-c.stderrDone
		c.logger.Info("ccls stopped")
		return ignoreExitError(err)
	case <-shutdownCtx.Done():
		c.logger.Warn("ccls did not exit, killing")
		_ = c.proc.Kill()
		<-exited
		<-c.stderrDone
		return nil
	}
}

func (c *Client) handleNotification(method string, params json.RawMessage) {
	if method == "window/logMessage" || method == "window/showMessage" {
		c.logger.Debug("ccls message", "method", method, "params", string(params))
		return
	}
	c.logger.Debug("ccls notification", "method", method)
}

// forwardStderr copies ccls log output into the logger.
func (c *Client) forwardStderr(r io.Reader) {
	defer close(c.stderrDone)
	if r == nil {
		return
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		c.logger.Debug("ccls stderr", "line", scanner.Text())
	}
}

// FileURI converts an absolute path into a file:// URI.
func FileURI(path string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}

func ignoreExitError(err error) error {
	var exitErr interface{ ExitCode() int }
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}
