package runner

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestExecProcessRunner_StartAndWait(t *testing.T) {
	r := NewExecProcessRunner()

	pipes, err := r.Start(context.Background(), Command{Name: "echo", Args: []string{"hello"}})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	out, err := io.ReadAll(pipes.Stdout)
	if err != nil {
		t.Fatalf("ReadAll stdout failed: %v", err)
	}
	if string(out) != "hello\n" {
		t.Errorf("stdout = %q, want %q", string(out), "hello\n")
	}

	errOut, err := io.ReadAll(pipes.Stderr)
	if err != nil {
		t.Fatalf("ReadAll stderr failed: %v", err)
	}
	if len(errOut) != 0 {
		t.Errorf("stderr = %q, want empty", string(errOut))
	}

	if err := r.Wait(); err != nil {
		t.Errorf("Wait failed: %v", err)
	}
}

func TestExecProcessRunner_Stdin(t *testing.T) {
	r := NewExecProcessRunner()

	pipes, err := r.Start(context.Background(), Command{Name: "cat"})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if _, err := io.WriteString(pipes.Stdin, "ping\n"); err != nil {
		t.Fatalf("write stdin: %v", err)
	}

	line, err := bufio.NewReader(pipes.Stdout).ReadString('\n')
	if err != nil {
		t.Fatalf("read echo: %v", err)
	}
	if line != "ping\n" {
		t.Errorf("echo = %q, want %q", line, "ping\n")
	}

	_ = pipes.Stdin.Close()
	_, _ = io.ReadAll(pipes.Stderr)
	if err := r.Wait(); err != nil {
		t.Errorf("Wait failed: %v", err)
	}
}

func TestExecProcessRunner_Dir(t *testing.T) {
	dir := t.TempDir()
	r := NewExecProcessRunner()

	pipes, err := r.Start(context.Background(), Command{Name: "pwd", Dir: dir})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	out, _ := io.ReadAll(pipes.Stdout)
	_, _ = io.ReadAll(pipes.Stderr)
	_ = r.Wait()

	got, _ := filepath.EvalSymlinks(strings.TrimSpace(string(out)))
	want, _ := filepath.EvalSymlinks(dir)
	if got != want {
		t.Errorf("pwd = %q, want %q", got, want)
	}
}

func TestExecProcessRunner_Stderr(t *testing.T) {
	r := NewExecProcessRunner()

	pipes, err := r.Start(context.Background(), Command{Name: "sh", Args: []string{"-c", "echo error >&2"}})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	_, _ = io.ReadAll(pipes.Stdout)
	errOut, err := io.ReadAll(pipes.Stderr)
	if err != nil {
		t.Fatalf("ReadAll stderr failed: %v", err)
	}
	if string(errOut) != "error\n" {
		t.Errorf("stderr = %q, want %q", string(errOut), "error\n")
	}

	_ = r.Wait()
}

func TestExecProcessRunner_AlreadyStarted(t *testing.T) {
	r := NewExecProcessRunner()

	if _, err := r.Start(context.Background(), Command{Name: "echo", Args: []string{"first"}}); err != nil {
		t.Fatalf("First Start failed: %v", err)
	}

	if _, err := r.Start(context.Background(), Command{Name: "echo", Args: []string{"second"}}); err == nil {
		t.Error("Second Start should fail")
	}

	_ = r.Wait()
}

func TestExecProcessRunner_WaitNotStarted(t *testing.T) {
	r := NewExecProcessRunner()

	if err := r.Wait(); err == nil {
		t.Error("Wait without Start should fail")
	}
	if r.PID() != 0 {
		t.Errorf("PID before Start = %d, want 0", r.PID())
	}
}

func TestExecProcessRunner_Kill(t *testing.T) {
	r := NewExecProcessRunner()

	pipes, err := r.Start(context.Background(), Command{Name: "sleep", Args: []string{"10"}})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if r.PID() == os.Getpid() || r.PID() == 0 {
		t.Errorf("unexpected child PID %d", r.PID())
	}

	if err := r.Kill(); err != nil {
		t.Errorf("Kill failed: %v", err)
	}

	if err := r.Wait(); err == nil {
		t.Error("Wait after Kill should return error")
	}

	_ = pipes.Stdout.Close()
}

func TestExecProcessRunner_KillNotStarted(t *testing.T) {
	r := NewExecProcessRunner()

	if err := r.Kill(); err != nil {
		t.Errorf("Kill before Start should not error: %v", err)
	}
}

func TestExecProcessRunner_ContextCancel(t *testing.T) {
	r := NewExecProcessRunner()

	ctx, cancel := context.WithCancel(context.Background())

	pipes, err := r.Start(ctx, Command{Name: "sleep", Args: []string{"10"}})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	cancel()

	if err := r.Wait(); err == nil {
		t.Error("Wait after context cancel should return error")
	}

	_ = pipes.Stdout.Close()
}

func TestExecProcessRunner_ConcurrentAccess(t *testing.T) {
	r := NewExecProcessRunner()

	pipes, err := r.Start(context.Background(), Command{Name: "sleep", Args: []string{"1"}})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.Kill()
		}()
	}

	wg.Wait()
	_ = r.Wait()
	_ = pipes.Stdout.Close()
	_ = pipes.Stderr.Close()
}

func TestExecProcessRunner_InvalidCommand(t *testing.T) {
	r := NewExecProcessRunner()

	if _, err := r.Start(context.Background(), Command{Name: "nonexistent-command-12345"}); err == nil {
		t.Error("Start with invalid command should fail")
	}
}

func TestExecProcessRunner_Timeout(t *testing.T) {
	r := NewExecProcessRunner()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	pipes, err := r.Start(ctx, Command{Name: "sleep", Args: []string{"10"}})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := r.Wait(); err == nil {
		t.Error("Wait should fail after timeout")
	}

	_ = pipes.Stdout.Close()
}
