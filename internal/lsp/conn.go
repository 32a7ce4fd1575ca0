package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
)

const (
	// maxMessageSize bounds a single message body (32MB).
	maxMessageSize = 32 * 1024 * 1024
	headerLength   = "Content-Length"
)

// Handler answers a request sent by the peer. The returned value is encoded
// as the result; a *ResponseError is sent as-is, other errors as internal errors.
type Handler func(ctx context.Context, method string, params json.RawMessage) (any, error)

// NotificationHandler receives notifications sent by the peer.
type NotificationHandler func(method string, params json.RawMessage)

// Conn is a JSON-RPC 2.0 connection using LSP base-protocol framing.
// One goroutine reads; writes are serialised.
type Conn struct {
	r      *bufio.Reader
	w      io.Writer
	closer io.Closer
	logger *slog.Logger

	handler  Handler
	onNotify NotificationHandler

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[int64]chan *message
	nextID  int64
	closed  bool
	err     error

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// ConnOption configures a Conn.
type ConnOption func(*Conn)

// WithHandler sets the handler for incoming requests.
// Without one, every request is answered with a null result.
func WithHandler(h Handler) ConnOption {
	return func(c *Conn) {
		c.handler = h
	}
}

// WithNotificationHandler sets the handler for incoming notifications.
func WithNotificationHandler(h NotificationHandler) ConnOption {
	return func(c *Conn) {
		c.onNotify = h
	}
}

// WithConnLogger sets the logger.
func WithConnLogger(logger *slog.Logger) ConnOption {
	return func(c *Conn) {
		c.logger = logger
	}
}

// NewConn starts reading messages from r. Messages are written to w, which
// is closed by Close.
func NewConn(r io.Reader, w io.WriteCloser, opts ...ConnOption) *Conn {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Conn{
		r:       bufio.NewReader(r),
		w:       w,
		closer:  w,
		logger:  slog.Default(),
		pending: make(map[int64]chan *message),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.readLoop()
	return c
}

// Call sends a request and decodes the result into result (if non-nil).
// It returns when the response arrives, ctx is done, or the connection breaks.
func (c *Conn) Call(ctx context.Context, method string, params, result any) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return c.closedErr()
	}
	c.nextID++
	id := c.nextID
	ch := make(chan *message, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	rawID := json.RawMessage(strconv.FormatInt(id, 10))
	if err := c.write(outgoing{JSONRPC: "2.0", ID: &rawID, Method: method, Params: params}); err != nil {
		return fmt.Errorf("send request: %w", err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return c.closedErr()
	case resp := <-ch:
		if resp.Error != nil {
			return resp.Error
		}
		if result == nil || len(resp.Result) == 0 {
			return nil
		}
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
		return nil
	}
}

// Notify sends a notification.
func (c *Conn) Notify(method string, params any) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return c.closedErr()
	}

	if err := c.write(outgoing{JSONRPC: "2.0", Method: method, Params: params}); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}

// Close closes the writer and fails all pending calls. Safe to call more than once.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	return c.closer.Close()
}

// Done is closed when the read loop exits.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Err returns the error that stopped the read loop, if any.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Conn) closedErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil && !errors.Is(c.err, io.EOF) {
		return fmt.Errorf("%w: %v", ErrClosed, c.err)
	}
	return ErrClosed
}

// write frames and sends one message.
func (c *Conn) write(msg outgoing) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if _, err := fmt.Fprintf(c.w, "%s: %d\r\n\r\n", headerLength, len(body)); err != nil {
		return err
	}
	_, err = c.w.Write(body)
	return err
}

// readLoop dispatches incoming messages until the reader fails.
func (c *Conn) readLoop() {
	defer close(c.done)

	for {
		body, err := readMessage(c.r)
		if err != nil {
			c.mu.Lock()
			c.err = err
			c.closed = true
			c.mu.Unlock()
			c.cancel()
			if !errors.Is(err, io.EOF) {
				c.logger.Debug("lsp read loop stopped", "error", err)
			}
			return
		}

		var msg message
		if err := json.Unmarshal(body, &msg); err != nil {
			c.logger.Warn("invalid lsp message", "error", err)
			continue
		}
		c.dispatch(&msg)
	}
}

func (c *Conn) dispatch(msg *message) {
	switch {
	case msg.Method != "" && msg.ID != nil:
		go c.reply(msg)

	case msg.Method != "":
		if c.onNotify != nil {
			c.onNotify(msg.Method, msg.Params)
		} else {
			c.logger.Debug("lsp notification", "method", msg.Method)
		}

	case msg.ID != nil:
		id, err := strconv.ParseInt(string(*msg.ID), 10, 64)
		if err != nil {
			c.logger.Warn("response with unexpected id", "id", string(*msg.ID))
			return
		}
		c.mu.Lock()
		ch, ok := c.pending[id]
		c.mu.Unlock()
		if !ok {
			c.logger.Debug("response for unknown request", "id", id)
			return
		}
		// The read loop must never block on a caller.
		select {
		case ch <- msg:
		default:
			c.logger.Warn("duplicate response", "id", id)
		}

	default:
		c.logger.Warn("lsp message without id or method")
	}
}

// reply answers a peer request.
func (c *Conn) reply(msg *message) {
	var (
		result any
		err    error
	)
	if c.handler != nil {
		result, err = c.handler(c.ctx, msg.Method, msg.Params)
	}

	resp := outgoing{JSONRPC: "2.0", ID: msg.ID}
	if err != nil {
		var rpcErr *ResponseError
		if !errors.As(err, &rpcErr) {
			rpcErr = &ResponseError{Code: CodeInternalError, Message: err.Error()}
		}
		resp.Error = rpcErr
	} else {
		raw, mErr := json.Marshal(result)
		if mErr != nil {
			resp.Error = &ResponseError{Code: CodeInternalError, Message: mErr.Error()}
		} else {
			rawResult := json.RawMessage(raw)
			resp.Result = &rawResult
		}
	}

	if err := c.write(resp); err != nil {
		c.logger.Debug("reply failed", "method", msg.Method, "error", err)
	}
}

// readMessage reads one framed message body.
func readMessage(r *bufio.Reader) ([]byte, error) {
	length := -1
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("malformed header %q", line)
		}
		if strings.EqualFold(strings.TrimSpace(name), headerLength) {
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return nil, fmt.Errorf("invalid content length %q: %w", value, err)
			}
			length = n
		}
	}

	if length < 0 {
		return nil, errors.New("missing content length")
	}
	if length > maxMessageSize {
		return nil, fmt.Errorf("message too large: %d bytes", length)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return body, nil
}
