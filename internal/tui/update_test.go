package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/npratt/cclsmon/internal/monitor"
)

func sizedModel(t *testing.T, onQuit, onRefresh func(), logPath string) model {
	t.Helper()
	m := newModel(newBridge(), onQuit, onRefresh, logPath)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	return updated.(model)
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestUpdate_WindowSize(t *testing.T) {
	m := sizedModel(t, nil, nil, "")

	if m.width != 80 || m.height != 30 {
		t.Errorf("size = %dx%d, want 80x30", m.width, m.height)
	}
	if m.viewport.Width != 76 {
		t.Errorf("viewport width = %d, want 76", m.viewport.Width)
	}
}

func TestUpdate_QuitKey(t *testing.T) {
	for _, k := range []tea.KeyMsg{key("q"), {Type: tea.KeyCtrlC}} {
		quitCalled := false
		m := sizedModel(t, func() { quitCalled = true }, nil, "")

		_, cmd := m.Update(k)
		if cmd == nil {
			t.Fatalf("%s: expected quit command", k)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%s: expected tea.QuitMsg", k)
		}
		if !quitCalled {
			t.Errorf("%s: onQuit not invoked", k)
		}
	}
}

func TestUpdate_RefreshKey(t *testing.T) {
	refreshed := 0
	m := sizedModel(t, nil, func() { refreshed++ }, "")

	updated, cmd := m.Update(key("r"))
	if cmd != nil {
		t.Error("refresh should not return a command")
	}
	if refreshed != 1 {
		t.Errorf("onRefresh called %d times, want 1", refreshed)
	}
	if updated.(model).logOpen {
		t.Error("refresh should not open the log")
	}
}

func TestUpdate_ToggleLog(t *testing.T) {
	m := sizedModel(t, nil, nil, "")

	updated, cmd := m.Update(key("l"))
	m = updated.(model)
	if !m.logOpen {
		t.Fatal("l should open the log pane")
	}
	if cmd == nil {
		t.Fatal("opening the log should load it")
	}
	if msg, ok := cmd().(logLoadedMsg); !ok || msg.err != nil {
		t.Errorf("expected empty logLoadedMsg, got %#v", msg)
	}

	updated, _ = m.Update(key("l"))
	if updated.(model).logOpen {
		t.Error("second l should close the log pane")
	}
}

func TestUpdate_SurfaceUpdate(t *testing.T) {
	m := sizedModel(t, nil, nil, "")

	snap := monitor.Snapshot{Title: "ccls(FOO): 2/3 jobs", Detail: "1 files,", Severity: monitor.SeverityNormal}
	updated, cmd := m.Update(updateMsg{Snapshot: snap, Shown: true})
	m = updated.(model)

	if m.snapshot != snap || !m.shown {
		t.Errorf("snapshot not applied: %+v", m.snapshot)
	}
	if m.logOpen {
		t.Error("log should stay closed without a reveal")
	}
	if cmd == nil {
		t.Error("expected a command to wait for the next update")
	}

	view := m.View()
	if !strings.Contains(view, "ccls(FOO): 2/3 jobs") || !strings.Contains(view, "1 files,") {
		t.Errorf("view missing status:\n%s", view)
	}
}

func TestUpdate_RevealOpensLogOnce(t *testing.T) {
	m := sizedModel(t, nil, nil, "")

	errSnap := monitor.RenderError(errors.New("connection refused"))
	updated, _ := m.Update(updateMsg{Snapshot: errSnap, Shown: true, Reveals: 1})
	m = updated.(model)
	if !m.logOpen || m.reveals != 1 {
		t.Fatalf("reveal should open the log, logOpen=%v reveals=%d", m.logOpen, m.reveals)
	}

	// User closes the log; the same reveal count must not reopen it.
	updated, _ = m.Update(key("l"))
	m = updated.(model)
	updated, _ = m.Update(updateMsg{Snapshot: errSnap, Shown: true, Reveals: 1})
	m = updated.(model)
	if m.logOpen {
		t.Error("log should stay closed until the next reveal")
	}

	updated, _ = m.Update(updateMsg{Snapshot: errSnap, Shown: true, Reveals: 2})
	if !updated.(model).logOpen {
		t.Error("a new reveal should reopen the log")
	}
}

func TestUpdate_LogLoaded(t *testing.T) {
	m := sizedModel(t, nil, nil, "/tmp/cclsmon.log")
	updated, _ := m.Update(key("l"))
	m = updated.(model)

	updated, _ = m.Update(logLoadedMsg{lines: []string{"[10:00:00] WARN info request failed error=boom"}})
	m = updated.(model)

	view := m.View()
	if !strings.Contains(view, "info request failed") {
		t.Errorf("log line missing from view:\n%s", view)
	}
	if !strings.Contains(view, "/tmp/cclsmon.log") {
		t.Errorf("log path missing from view:\n%s", view)
	}

	updated, _ = m.Update(logLoadedMsg{err: errors.New("permission denied")})
	if !strings.Contains(updated.(model).View(), "cannot read log: permission denied") {
		t.Error("log read error should be shown")
	}
}

func TestUpdate_Disposed(t *testing.T) {
	m := sizedModel(t, nil, nil, "")

	_, cmd := m.Update(disposedMsg{})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("disposal should quit the program")
	}
}

func TestView_States(t *testing.T) {
	m := newModel(newBridge(), nil, nil, "")
	if m.View() != "Loading..." {
		t.Errorf("unsized view = %q", m.View())
	}

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 20, Height: 5})
	if !strings.Contains(updated.(model).View(), "Terminal too small") {
		t.Error("expected too-small message")
	}

	m = sizedModel(t, nil, nil, "")
	if !strings.Contains(m.View(), "waiting for monitor") {
		t.Errorf("unshown surface should show waiting state:\n%s", m.View())
	}

	updated, _ = m.Update(updateMsg{Snapshot: monitor.LoadingSnapshot(), Shown: true})
	m = updated.(model)
	if !m.loading() {
		t.Error("loading snapshot should be detected")
	}
	if !strings.Contains(m.View(), "ccls: loading") {
		t.Errorf("loading title missing:\n%s", m.View())
	}
	if !strings.Contains(m.View(), "l: show log") {
		t.Error("footer should offer to show the log")
	}
}
