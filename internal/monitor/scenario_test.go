package monitor_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/npratt/cclsmon/internal/monitor"
	"github.com/npratt/cclsmon/internal/target"
)

type scriptedClient struct {
	mu    sync.Mutex
	info  *monitor.InfoResponse
	err   error
	calls int
}

func (c *scriptedClient) set(info *monitor.InfoResponse, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.info, c.err = info, err
}

func (c *scriptedClient) Info(ctx context.Context) (*monitor.InfoResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.info, c.err
}

func (c *scriptedClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type recordingSurface struct {
	mu      sync.Mutex
	renders int
	title   string
	detail  string
	sev     monitor.Severity
}

func (s *recordingSurface) SetTitle(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renders++
	s.title = title
}

func (s *recordingSurface) SetDetail(detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detail = detail
}

func (s *recordingSurface) SetSeverity(sev monitor.Severity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sev = sev
}

func (s *recordingSurface) Show()    {}
func (s *recordingSurface) Dispose() {}

func (s *recordingSurface) state() (int, string, string, monitor.Severity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renders, s.title, s.detail, s.sev
}

type countingRevealer struct {
	mu sync.Mutex
	n  int
}

func (r *countingRevealer) Reveal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.n++
}

func (r *countingRevealer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}

type roots []string

func (r roots) Roots() []string { return r }

type noConfig struct{}

func (noConfig) CompilationDatabaseDirectory() string { return "" }

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for condition")
}

func TestScenario_SuccessfulPollWithWorkspaceTarget(t *testing.T) {
	root := t.TempDir()
	realDB := filepath.Join(root, "compile_commands_clang.json")
	if err := os.WriteFile(realDB, []byte("[]"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(realDB, filepath.Join(root, "compile_commands.json")); err != nil {
		t.Fatal(err)
	}

	client := &scriptedClient{}
	client.set(&monitor.InfoResponse{
		DB:       monitor.DBInfo{Files: 10, Funcs: 20, Types: 5, Vars: 3},
		Pipeline: monitor.PipelineInfo{LastIdle: 1, Completed: 4, Enqueued: 4},
		Project:  monitor.ProjectInfo{Entries: 2},
	}, nil)
	surface := &recordingSurface{}
	resolver := target.New(noConfig{}, roots{root})

	m := monitor.New(client, surface, &countingRevealer{}, resolver, 1000*time.Millisecond)
	defer m.Dispose()

	waitUntil(t, func() bool { return client.Calls() >= 1 })
	waitUntil(t, func() bool {
		_, title, _, _ := surface.state()
		return title != "ccls: loading"
	})

	_, title, detail, sev := surface.state()
	if title != "ccls(CLANG): 4/4 jobs" {
		t.Errorf("unexpected title %q", title)
	}
	if sev != monitor.SeverityNormal {
		t.Errorf("expected normal severity, got %v", sev)
	}
	if !strings.Contains(detail, "10 files,") || !strings.Contains(detail, "2 entries in project.") {
		t.Errorf("unexpected detail %q", detail)
	}
}

func TestScenario_MissingDatabaseStillRenders(t *testing.T) {
	client := &scriptedClient{}
	client.set(&monitor.InfoResponse{Pipeline: monitor.PipelineInfo{Completed: 1, Enqueued: 3}}, nil)
	surface := &recordingSurface{}
	resolver := target.New(noConfig{}, roots{t.TempDir()})

	m := monitor.New(client, surface, nil, resolver, time.Hour, monitor.WithImmediatePoll())
	defer m.Dispose()

	waitUntil(t, func() bool {
		_, title, _, _ := surface.state()
		return title == "ccls(): 1/3 jobs"
	})
}

func TestScenario_ConnectionRefusedDebounced(t *testing.T) {
	client := &scriptedClient{}
	client.set(nil, errors.New("connection refused"))
	surface := &recordingSurface{}
	revealer := &countingRevealer{}

	m := monitor.New(client, surface, revealer, nil, 10*time.Millisecond)
	defer m.Dispose()

	waitUntil(t, func() bool { return client.Calls() >= 3 })

	renders, title, detail, sev := surface.state()
	if renders != 2 {
		t.Errorf("expected loading + one error render, got %d", renders)
	}
	if title != "ccls: error" {
		t.Errorf("unexpected title %q", title)
	}
	if sev != monitor.SeverityError {
		t.Errorf("expected error severity, got %v", sev)
	}
	if !strings.Contains(detail, "connection refused") {
		t.Errorf("expected error message in detail, got %q", detail)
	}
	if revealer.count() != 1 {
		t.Errorf("expected one reveal, got %d", revealer.count())
	}
}
