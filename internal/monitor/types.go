// Package monitor polls a ccls server for indexing progress and publishes
// the latest status snapshot to a display surface.
package monitor

import (
	"context"
	"encoding/json"
	"math"
)

// Severity is the display severity of a snapshot.
type Severity int

const (
	// SeverityNormal is used for loading and successful polls.
	SeverityNormal Severity = iota
	// SeverityError is used after a failed poll.
	SeverityError
)

// String returns the lowercase name of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	default:
		return "normal"
	}
}

// Snapshot is the rendered status. Each poll replaces it entirely.
type Snapshot struct {
	Title    string   `json:"title"`
	Detail   string   `json:"detail"`
	Severity Severity `json:"severity"`
}

// InfoResponse is the result of the $ccls/info request.
// Missing objects or counters decode to zero.
type InfoResponse struct {
	DB       DBInfo       `json:"db"`
	Pipeline PipelineInfo `json:"pipeline"`
	Project  ProjectInfo  `json:"project"`
}

// Count is an info counter. Any JSON number decodes, fractions are
// truncated; null, negative and non-numeric values decode to zero.
type Count int

// UnmarshalJSON implements json.Unmarshaler.
func (c *Count) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err != nil || f < 0 || math.IsNaN(f) {
		*c = 0
		return nil
	}
	if f > math.MaxInt32 {
		f = math.MaxInt32
	}
	*c = Count(f)
	return nil
}

// DBInfo holds index database counts.
type DBInfo struct {
	Files Count `json:"files"`
	Funcs Count `json:"funcs"`
	Types Count `json:"types"`
	Vars  Count `json:"vars"`
}

// PipelineInfo holds indexing pipeline counters.
type PipelineInfo struct {
	LastIdle  Count `json:"lastIdle"`
	Completed Count `json:"completed"`
	Enqueued  Count `json:"enqueued"`
}

// ProjectInfo holds project-level counts.
type ProjectInfo struct {
	Entries Count `json:"entries"`
}

// InfoClient issues the info request to the indexing backend.
type InfoClient interface {
	Info(ctx context.Context) (*InfoResponse, error)
}

// Surface is a single status indicator that displays one snapshot.
type Surface interface {
	SetTitle(title string)
	SetDetail(detail string)
	SetSeverity(sev Severity)
	Show()
	Dispose()
}

// Flusher is implemented by surfaces that render once per update
// instead of once per setter call.
type Flusher interface {
	Flush()
}

// Revealer brings a diagnostic log into view.
type Revealer interface {
	Reveal()
}

// LabelResolver derives the short target label shown in the title.
type LabelResolver interface {
	ResolveLabel() string
}

// Stats contains poll counters for status reporting.
type Stats struct {
	Polls    int
	Failures int
	Target   string
}
