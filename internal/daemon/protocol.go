package daemon

import "encoding/json"

// Request is one newline-delimited JSON request from a client.
type Request struct {
	Method string `json:"method"`
	ID     int    `json:"id,omitempty"`
}

// Response answers a Request. Exactly one of Result and Error is set.
type Response struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
	ID     int             `json:"id,omitempty"`
}

// Method names served by the control socket.
const (
	MethodStatus  = "status"
	MethodRefresh = "refresh"
	MethodStop    = "stop"
)

// StatusResponse is the result of MethodStatus: the current snapshot plus
// poll counters of the monitor.
type StatusResponse struct {
	Title     string `json:"title"`
	Detail    string `json:"detail"`
	Severity  string `json:"severity"`
	Target    string `json:"target,omitempty"`
	Uptime    string `json:"uptime"`
	StartTime string `json:"start_time"`
	Polls     int    `json:"polls"`
	Failures  int    `json:"failures"`
	PID       int    `json:"pid"`
}

// RefreshResponse is the result of MethodRefresh. Polls is the poll count
// when the refresh was queued; a status with a higher count reflects it.
type RefreshResponse struct {
	Polls int `json:"polls"`
}

// StopResponse is the result of MethodStop.
type StopResponse struct {
	PID int `json:"pid"`
}
