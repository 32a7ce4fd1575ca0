package lsp_test

import (
	"context"
	"errors"
	"io"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/npratt/cclsmon/internal/lsp"
	"github.com/npratt/cclsmon/internal/monitor"
	"github.com/npratt/cclsmon/internal/runner"
	"github.com/npratt/cclsmon/internal/testutil"
)

func startFake(t *testing.T, opts lsp.Options) (*lsp.Client, *testutil.FakeCCLS, *testutil.MockProcessRunner) {
	t.Helper()
	fake := testutil.NewFakeCCLS()
	proc := testutil.NewMockProcessRunner(fake.Serve)

	if opts.Command.Name == "" {
		opts.Command = runner.Command{Name: "ccls"}
	}
	if opts.RootDir == "" {
		opts.RootDir = t.TempDir()
	}

	client, err := lsp.Start(context.Background(), proc, opts)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close(context.Background())
	})
	return client, fake, proc
}

func TestStart_InitializeHandshake(t *testing.T) {
	root := t.TempDir()
	client, fake, proc := startFake(t, lsp.Options{
		Command:                      runner.Command{Name: "ccls", Args: []string{"-v=1"}},
		RootDir:                      root,
		InitOptions:                  map[string]any{"cache": map[string]any{"directory": ".ccls-cache"}},
		CompilationDatabaseDirectory: "build",
	})

	// Info goes through after initialized, so both are recorded by now.
	if _, err := client.Info(context.Background()); err != nil {
		t.Fatalf("Info failed: %v", err)
	}

	params := fake.InitializeParams()
	if params.RootURI != lsp.FileURI(root) {
		t.Errorf("rootUri = %q, want %q", params.RootURI, lsp.FileURI(root))
	}
	if params.InitializationOptions["compilationDatabaseDirectory"] != "build" {
		t.Errorf("compilationDatabaseDirectory = %v, want build", params.InitializationOptions["compilationDatabaseDirectory"])
	}
	if _, ok := params.InitializationOptions["cache"]; !ok {
		t.Error("configured init options should be passed through")
	}
	if len(params.WorkspaceFolders) != 1 || params.WorkspaceFolders[0].URI != params.RootURI {
		t.Errorf("unexpected workspace folders %+v", params.WorkspaceFolders)
	}

	want := []string{lsp.MethodInitialize, lsp.MethodInitialized, lsp.MethodCCLSInfo}
	if got := fake.Methods(); !slices.Equal(got, want) {
		t.Errorf("methods = %v, want %v", got, want)
	}

	cmds := proc.Commands()
	if len(cmds) != 1 || cmds[0].Dir != root || !slices.Equal(cmds[0].Args, []string{"-v=1"}) {
		t.Errorf("unexpected command %+v", cmds)
	}
}

func TestStart_NoInitOptions(t *testing.T) {
	_, fake, _ := startFake(t, lsp.Options{})

	if opts := fake.InitializeParams().InitializationOptions; opts != nil {
		t.Errorf("expected no initializationOptions, got %v", opts)
	}
}

func TestClient_Info(t *testing.T) {
	client, fake, _ := startFake(t, lsp.Options{})

	want := monitor.InfoResponse{
		DB:       monitor.DBInfo{Files: 12, Funcs: 340, Types: 56, Vars: 78},
		Pipeline: monitor.PipelineInfo{LastIdle: 9, Completed: 4, Enqueued: 4},
		Project:  monitor.ProjectInfo{Entries: 12},
	}
	fake.SetInfo(want)

	got, err := client.Info(context.Background())
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}
	if *got != want {
		t.Errorf("Info() = %+v, want %+v", *got, want)
	}
	if fake.InfoCalls() != 1 {
		t.Errorf("InfoCalls = %d, want 1", fake.InfoCalls())
	}
}

func TestClient_InfoError(t *testing.T) {
	client, fake, _ := startFake(t, lsp.Options{})
	fake.SetInfoError(lsp.CodeInternalError, "index not ready")

	_, err := client.Info(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}

	snap := monitor.RenderError(err)
	if snap.Detail != "Failed to perform info request: index not ready" {
		t.Errorf("detail = %q", snap.Detail)
	}
}

func TestClient_InfoTimeout(t *testing.T) {
	client, fake, _ := startFake(t, lsp.Options{RequestTimeout: 20 * time.Millisecond})
	fake.SetInfoDelay(time.Second)

	_, err := client.Info(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestClient_Close(t *testing.T) {
	fake := testutil.NewFakeCCLS()
	proc := testutil.NewMockProcessRunner(fake.Serve)
	proc.SetStderr("ccls: indexing started\n")

	client, err := lsp.Start(context.Background(), proc, lsp.Options{
		Command: runner.Command{Name: "ccls"},
		RootDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := client.Close(context.Background()); err != nil {
		t.Errorf("Close failed: %v", err)
	}

	if !fake.ShutdownReceived() {
		t.Error("expected shutdown and exit to be sent")
	}
	if !proc.WaitCalled() {
		t.Error("expected Wait to be called")
	}
	if proc.Killed() {
		t.Error("process should exit without being killed")
	}

	select {
	case <-client.Done():
	case <-time.After(time.Second):
		t.Error("connection should be done after Close")
	}

	if _, err := client.Info(context.Background()); !errors.Is(err, lsp.ErrClosed) {
		t.Errorf("Info after Close: expected ErrClosed, got %v", err)
	}
}

func TestStart_EmptyCommand(t *testing.T) {
	proc := testutil.NewMockProcessRunner(nil)

	_, err := lsp.Start(context.Background(), proc, lsp.Options{RootDir: t.TempDir()})
	if err == nil {
		t.Fatal("expected error for empty command")
	}
	if proc.StartCount() != 0 {
		t.Error("process should not be started")
	}
}

func TestStart_StartError(t *testing.T) {
	proc := testutil.NewMockProcessRunner(nil)
	proc.SetStartError(errors.New("executable file not found"))

	_, err := lsp.Start(context.Background(), proc, lsp.Options{
		Command: runner.Command{Name: "ccls"},
		RootDir: t.TempDir(),
	})
	if err == nil || !strings.Contains(err.Error(), "executable file not found") {
		t.Errorf("expected start error, got %v", err)
	}
}

func TestStart_ServerExitsDuringInitialize(t *testing.T) {
	proc := testutil.NewMockProcessRunner(func(stdin io.Reader, stdout io.WriteCloser) {})

	_, err := lsp.Start(context.Background(), proc, lsp.Options{
		Command: runner.Command{Name: "ccls"},
		RootDir: t.TempDir(),
	})
	if err == nil {
		t.Fatal("expected initialize to fail")
	}
	if !strings.Contains(err.Error(), "initialize") {
		t.Errorf("error should mention initialize: %v", err)
	}
	if !proc.Killed() {
		t.Error("process should be killed after a failed handshake")
	}
}

func TestFileURI(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/home/user/project", "file:///home/user/project"},
		{"/tmp/with space", "file:///tmp/with%20space"},
	}

	for _, tt := range tests {
		if got := lsp.FileURI(tt.path); got != tt.want {
			t.Errorf("FileURI(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
