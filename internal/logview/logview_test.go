package logview

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestFormatLine(t *testing.T) {
	ts := time.Date(2026, 3, 4, 10, 20, 30, 0, time.UTC)
	clock := ts.Local().Format("15:04:05")

	tests := []struct {
		name string
		line string
		want string
	}{
		{
			name: "message only",
			line: `{"time":"2026-03-04T10:20:30Z","level":"INFO","msg":"ccls started"}`,
			want: "[" + clock + "] INFO ccls started",
		},
		{
			name: "sorted attributes",
			line: `{"time":"2026-03-04T10:20:30Z","level":"WARN","msg":"info request failed","target":"CLANG","error":"connection refused"}`,
			want: "[" + clock + `] WARN info request failed error="connection refused" target=CLANG`,
		},
		{
			name: "numbers and nested values",
			line: `{"time":"2026-03-04T10:20:30Z","level":"DEBUG","msg":"poll","polls":3,"ratio":0.5,"cfg":{"a":1},"none":null}`,
			want: "[" + clock + `] DEBUG poll cfg={"a":1} none=null polls=3 ratio=0.5`,
		},
		{
			name: "unparseable timestamp kept",
			line: `{"time":"yesterday","level":"INFO","msg":"x"}`,
			want: "[yesterday] INFO x",
		},
		{
			name: "not json",
			line: "plain text line",
			want: "plain text line",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatLine(tt.line); got != tt.want {
				t.Errorf("FormatLine() = %q, want %q", got, tt.want)
			}
		})
	}
}

func writeLog(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cclsmon.log")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLast(t *testing.T) {
	path := writeLog(t, "one", "two", "", "three", "four")

	got, err := Last(path, 2)
	if err != nil {
		t.Fatalf("Last failed: %v", err)
	}
	if len(got) != 2 || got[0] != "three" || got[1] != "four" {
		t.Errorf("Last(2) = %v, want [three four]", got)
	}

	all, err := Last(path, 0)
	if err != nil {
		t.Fatalf("Last failed: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("Last(0) should return every non-empty line, got %v", all)
	}
}

func TestLast_MissingFile(t *testing.T) {
	got, err := Last(filepath.Join(t.TempDir(), "missing.log"), 10)
	if err != nil {
		t.Errorf("missing file should not error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no lines, got %v", got)
	}
}

func TestTail(t *testing.T) {
	path := writeLog(t, "a", "b", "c")

	var buf bytes.Buffer
	if err := Tail(&buf, path, 2); err != nil {
		t.Fatalf("Tail failed: %v", err)
	}
	if buf.String() != "b\nc\n" {
		t.Errorf("Tail output = %q, want %q", buf.String(), "b\nc\n")
	}
}

func TestTail_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := Tail(&buf, filepath.Join(t.TempDir(), "missing.log"), 5); err != nil {
		t.Fatalf("Tail failed: %v", err)
	}
	if !strings.Contains(buf.String(), "No log entries yet") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

// syncBuffer is a bytes.Buffer safe for concurrent use.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitForOutput(t *testing.T, buf *syncBuffer, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(buf.String(), want) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("output %q does not contain %q", buf.String(), want)
}

func TestFollow_AppendedLines(t *testing.T) {
	old := PollInterval
	PollInterval = 10 * time.Millisecond
	t.Cleanup(func() { PollInterval = old })

	path := writeLog(t, "existing")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var buf syncBuffer
	done := make(chan error, 1)
	go func() {
		done <- Follow(ctx, &buf, path)
	}()

	// Give Follow time to seek to the end
	time.Sleep(50 * time.Millisecond)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = f.WriteString("part")
	time.Sleep(30 * time.Millisecond)
	_, _ = f.WriteString("ial\nnext\n")
	_ = f.Close()

	waitForOutput(t, &buf, "partial\nnext\n")
	if strings.Contains(buf.String(), "existing") {
		t.Error("Follow should skip lines written before it started")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Follow returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Follow did not stop after cancel")
	}
}

func TestFollow_WaitsForFile(t *testing.T) {
	old := PollInterval
	PollInterval = 10 * time.Millisecond
	t.Cleanup(func() { PollInterval = old })

	path := filepath.Join(t.TempDir(), "later.log")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var buf syncBuffer
	go func() {
		_ = Follow(ctx, &buf, path)
	}()

	time.Sleep(30 * time.Millisecond)
	if err := os.WriteFile(path, []byte("first\n"), 0644); err != nil {
		t.Fatal(err)
	}

	waitForOutput(t, &buf, "first\n")
}

func TestFollow_CancelBeforeFileExists(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf syncBuffer
	if err := Follow(ctx, &buf, filepath.Join(t.TempDir(), "never.log")); err != nil {
		t.Errorf("cancelled Follow should return nil, got %v", err)
	}
}
