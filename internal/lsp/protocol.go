// Package lsp implements the parts of the Language Server Protocol needed to
// talk to ccls: base-protocol framing, JSON-RPC 2.0 calls and the ccls
// extension methods.
package lsp

import (
	"encoding/json"
	"errors"
)

// JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Method names.
const (
	MethodInitialize  = "initialize"
	MethodInitialized = "initialized"
	MethodShutdown    = "shutdown"
	MethodExit        = "exit"
	MethodCCLSInfo    = "$ccls/info"
)

// ErrClosed is returned for calls on a closed or broken connection.
var ErrClosed = errors.New("connection closed")

// ResponseError is a JSON-RPC error object returned by the server.
type ResponseError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *ResponseError) Error() string {
	return e.Message
}

// message is the union of request, notification and response.
type message struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id,omitempty"`
	Method  string           `json:"method,omitempty"`
	Params  json.RawMessage  `json:"params,omitempty"`
	Result  json.RawMessage  `json:"result,omitempty"`
	Error   *ResponseError   `json:"error,omitempty"`
}

// outgoing is the wire form of messages this package sends.
type outgoing struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id,omitempty"`
	Method  string           `json:"method,omitempty"`
	Params  any              `json:"params,omitempty"`
	Result  *json.RawMessage `json:"result,omitempty"`
	Error   *ResponseError   `json:"error,omitempty"`
}

// InitializeParams is the subset of LSP initialize params ccls needs.
type InitializeParams struct {
	ProcessID             int               `json:"processId"`
	RootURI               string            `json:"rootUri"`
	RootPath              string            `json:"rootPath,omitempty"`
	InitializationOptions map[string]any    `json:"initializationOptions,omitempty"`
	Capabilities          map[string]any    `json:"capabilities"`
	WorkspaceFolders      []WorkspaceFolder `json:"workspaceFolders,omitempty"`
}

// WorkspaceFolder is an LSP workspace folder.
type WorkspaceFolder struct {
	URI  string `json:"uri"`
	Name string `json:"name"`
}

// InitializeResult is the subset of the initialize result that is logged.
type InitializeResult struct {
	ServerInfo *struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"serverInfo,omitempty"`
}
