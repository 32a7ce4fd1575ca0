// Package logview reads and follows the JSON debug log and renders its
// records as short human-readable lines.
package logview

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"
)

// PollInterval is how often Follow checks for new data.
var PollInterval = 100 * time.Millisecond

// maxLineSize bounds a single log record.
const maxLineSize = 1024 * 1024

// Last returns the last n formatted records of the log at path.
// A missing file yields no lines and no error.
func Last(path string, n int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// Ring buffer of the last n raw lines
	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		if n > 0 && len(lines) == n {
			lines = lines[1:]
		}
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log file: %w", err)
	}

	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, FormatLine(line))
	}
	return out, nil
}

// Tail writes the last n formatted records of the log at path to w.
func Tail(w io.Writer, path string, n int) error {
	lines, err := Last(path, n)
	if err != nil {
		return err
	}

	if len(lines) == 0 {
		_, err := fmt.Fprintln(w, "No log entries yet")
		return err
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// waitForFile waits for a file to be created and returns the opened file.
func waitForFile(ctx context.Context, path string) (*os.File, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(PollInterval):
			file, err := os.Open(path)
			if err == nil {
				return file, nil
			}
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("open file: %w", err)
			}
		}
	}
}

// Follow writes records appended to the log at path until ctx is done.
// It waits for the file if it does not exist yet.
func Follow(ctx context.Context, w io.Writer, path string) error {
	file, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("open log file: %w", err)
		}
		file, err = waitForFile(ctx, path)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
	} else if _, err := file.Seek(0, io.SeekEnd); err != nil {
		_ = file.Close()
		return fmt.Errorf("seek to end: %w", err)
	}
	defer func() { _ = file.Close() }()

	reader := bufio.NewReader(file)
	var partial string
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		chunk, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				// Keep incomplete lines until the writer finishes them
				partial += chunk
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(PollInterval):
				}
				continue
			}
			return fmt.Errorf("read log: %w", err)
		}

		line := strings.TrimSuffix(partial+chunk, "\n")
		partial = ""
		if strings.TrimSpace(line) == "" {
			continue
		}
		if _, err := fmt.Fprintln(w, FormatLine(line)); err != nil {
			return err
		}
	}
}

// FormatLine renders one slog JSON record as "[15:04:05] LEVEL msg k=v ...".
// Lines that are not JSON objects are returned unchanged.
func FormatLine(line string) string {
	var record map[string]any
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		return line
	}

	timestamp := ""
	if ts, ok := record["time"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			timestamp = t.Local().Format("15:04:05")
		} else {
			timestamp = ts
		}
	}

	level, _ := record["level"].(string)
	msg, _ := record["msg"].(string)

	keys := make([]string, 0, len(record))
	for k := range record {
		switch k {
		case "time", "level", "msg":
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", timestamp, level)
	if msg != "" {
		b.WriteString(" ")
		b.WriteString(msg)
	}
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%s", k, formatValue(record[k]))
	}
	return b.String()
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		if strings.ContainsAny(val, " \t\n\"") {
			return fmt.Sprintf("%q", val)
		}
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	case nil:
		return "null"
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(data)
	}
}
