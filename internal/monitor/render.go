package monitor

import "fmt"

const (
	loadingTitle  = "ccls: loading"
	loadingDetail = "ccls is starting / loading project metadata"
	errorTitle    = "ccls: error"
)

// LoadingSnapshot is shown before the first poll completes.
func LoadingSnapshot() Snapshot {
	return Snapshot{
		Title:    loadingTitle,
		Detail:   loadingDetail,
		Severity: SeverityNormal,
	}
}

// RenderInfo formats a successful info response for the given target label.
func RenderInfo(info *InfoResponse, target string) Snapshot {
	if info == nil {
		info = &InfoResponse{}
	}
	p := info.Pipeline

	detail := fmt.Sprintf(`%d files,
%d functions,
%d types,
%d variables,
%d entries in project.

completed %d/%d index requests
last idle: %d`,
		info.DB.Files,
		info.DB.Funcs,
		info.DB.Types,
		info.DB.Vars,
		info.Project.Entries,
		p.Completed, p.Enqueued,
		p.LastIdle,
	)

	return Snapshot{
		Title:    fmt.Sprintf("ccls(%s): %d/%d jobs", target, p.Completed, p.Enqueued),
		Detail:   detail,
		Severity: SeverityNormal,
	}
}

// RenderError formats a failed info request.
func RenderError(err error) Snapshot {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return Snapshot{
		Title:    errorTitle,
		Detail:   "Failed to perform info request: " + msg,
		Severity: SeverityError,
	}
}
