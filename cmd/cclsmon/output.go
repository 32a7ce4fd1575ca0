package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/npratt/cclsmon/internal/config"
	"github.com/npratt/cclsmon/internal/daemon"
)

// printStatus writes a human-readable status report.
func printStatus(w io.Writer, status *daemon.StatusResponse, now time.Time) {
	_, _ = fmt.Fprintf(w, "Status: %s\n", status.Title)
	if status.Severity != "" && status.Severity != "normal" {
		_, _ = fmt.Fprintf(w, "Severity: %s\n", status.Severity)
	}
	if status.Target != "" {
		_, _ = fmt.Fprintf(w, "Target: %s\n", status.Target)
	}

	started := status.StartTime
	if t, err := time.Parse(time.RFC3339, status.StartTime); err == nil {
		started = fmt.Sprintf("%s (%s)", humanize.RelTime(t, now, "ago", "from now"), status.StartTime)
	}
	_, _ = fmt.Fprintf(w, "Started: %s\n", started)
	_, _ = fmt.Fprintf(w, "Uptime: %s\n", status.Uptime)
	_, _ = fmt.Fprintf(w, "PID: %d\n", status.PID)
	_, _ = fmt.Fprintf(w, "Polls: %s (%s failed)\n", humanize.Comma(int64(status.Polls)), humanize.Comma(int64(status.Failures)))

	if status.Detail != "" {
		_, _ = fmt.Fprintln(w, "Detail:")
		for _, line := range strings.Split(status.Detail, "\n") {
			_, _ = fmt.Fprintf(w, "  %s\n", line)
		}
	}
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// writeConfig writes the effective configuration as YAML, preceded by
// comments naming the files it was loaded from.
func writeConfig(w io.Writer, cfg *config.Config, files []string) error {
	if len(files) == 0 {
		_, _ = fmt.Fprintln(w, "# no config files found")
	}
	for _, f := range files {
		_, _ = fmt.Fprintf(w, "# loaded from %s\n", f)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}

// labelResolver is the part of target.Resolver printTarget uses.
type labelResolver interface {
	DatabaseDirectory() string
	Resolve() (string, error)
}

// printTarget writes the database directory and its target label.
func printTarget(w io.Writer, r labelResolver) error {
	dir := r.DatabaseDirectory()
	if dir == "" {
		_, _ = fmt.Fprintln(w, "No compilation database directory")
		return nil
	}
	_, _ = fmt.Fprintf(w, "Directory: %s\n", dir)

	label, err := r.Resolve()
	if err != nil {
		return err
	}
	if label == "" {
		label = "(none)"
	}
	_, _ = fmt.Fprintf(w, "Target: %s\n", label)
	return nil
}
