package testutil

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/npratt/cclsmon/internal/lsp"
	"github.com/npratt/cclsmon/internal/monitor"
)

// FakeCCLS is an in-process language server answering the requests
// cclsmon sends to ccls. Use its Serve method with NewMockProcessRunner.
type FakeCCLS struct {
	mu sync.Mutex

	info      monitor.InfoResponse
	infoErr   *lsp.ResponseError
	infoDelay time.Duration

	initParams lsp.InitializeParams
	methods    []string
	infoCalls  int
	shutdown   bool
	exited     bool
}

// NewFakeCCLS creates a server reporting an idle, empty project.
func NewFakeCCLS() *FakeCCLS {
	return &FakeCCLS{}
}

// SetInfo sets the $ccls/info result and clears any configured error.
func (f *FakeCCLS) SetInfo(info monitor.InfoResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.info = info
	f.infoErr = nil
}

// SetInfoError makes $ccls/info fail with the given message.
func (f *FakeCCLS) SetInfoError(code int, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.infoErr = &lsp.ResponseError{Code: code, Message: message}
}

// SetInfoDelay delays every $ccls/info response.
func (f *FakeCCLS) SetInfoDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.infoDelay = d
}

// Serve runs the server until the client sends exit or closes stdin.
func (f *FakeCCLS) Serve(stdin io.Reader, stdout io.WriteCloser) {
	exit := make(chan struct{})
	var once sync.Once

	conn := lsp.NewConn(stdin, stdout,
		lsp.WithHandler(f.handle),
		lsp.WithNotificationHandler(func(method string, _ json.RawMessage) {
			f.record(method)
			if method == lsp.MethodExit {
				f.mu.Lock()
				f.exited = true
				f.mu.Unlock()
				once.Do(func() { close(exit) })
			}
		}),
	)

	select {
	case <-exit:
	case <-conn.Done():
	}
	_ = conn.Close()
}

func (f *FakeCCLS) handle(ctx context.Context, method string, params json.RawMessage) (any, error) {
	f.record(method)

	switch method {
	case lsp.MethodInitialize:
		var p lsp.InitializeParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, &lsp.ResponseError{Code: lsp.CodeInvalidParams, Message: err.Error()}
		}
		f.mu.Lock()
		f.initParams = p
		f.mu.Unlock()
		return map[string]any{
			"capabilities": map[string]any{},
			"serverInfo":   map[string]string{"name": "ccls", "version": "fake"},
		}, nil

	case lsp.MethodCCLSInfo:
		f.mu.Lock()
		f.infoCalls++
		info, infoErr, delay := f.info, f.infoErr, f.infoDelay
		f.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if infoErr != nil {
			return nil, infoErr
		}
		return info, nil

	case lsp.MethodShutdown:
		f.mu.Lock()
		f.shutdown = true
		f.mu.Unlock()
		return nil, nil

	default:
		return nil, &lsp.ResponseError{Code: lsp.CodeMethodNotFound, Message: "method not found: " + method}
	}
}

func (f *FakeCCLS) record(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.methods = append(f.methods, method)
}

// InitializeParams returns the params of the initialize request.
func (f *FakeCCLS) InitializeParams() lsp.InitializeParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.initParams
}

// Methods returns the methods received, in order.
func (f *FakeCCLS) Methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]string, len(f.methods))
	copy(result, f.methods)
	return result
}

// InfoCalls returns the number of $ccls/info requests received.
func (f *FakeCCLS) InfoCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.infoCalls
}

// ShutdownReceived reports whether shutdown and exit were both received.
func (f *FakeCCLS) ShutdownReceived() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shutdown && f.exited
}
