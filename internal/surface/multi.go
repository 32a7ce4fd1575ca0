package surface

import (
	"github.com/npratt/cclsmon/internal/monitor"
)

// Multi forwards every call to each of its surfaces in order.
type Multi []monitor.Surface

var (
	_ monitor.Surface = Multi(nil)
	_ monitor.Flusher = Multi(nil)
)

func (m Multi) SetTitle(title string) {
	for _, s := range m {
		s.SetTitle(title)
	}
}

func (m Multi) SetDetail(detail string) {
	for _, s := range m {
		s.SetDetail(detail)
	}
}

func (m Multi) SetSeverity(sev monitor.Severity) {
	for _, s := range m {
		s.SetSeverity(sev)
	}
}

func (m Multi) Show() {
	for _, s := range m {
		s.Show()
	}
}

// Flush flushes the surfaces that buffer updates.
func (m Multi) Flush() {
	for _, s := range m {
		if f, ok := s.(monitor.Flusher); ok {
			f.Flush()
		}
	}
}

func (m Multi) Dispose() {
	for _, s := range m {
		s.Dispose()
	}
}

// Revealers reveals each of its revealers in order.
type Revealers []monitor.Revealer

func (r Revealers) Reveal() {
	for _, rv := range r {
		rv.Reveal()
	}
}

// RevealerFunc adapts a function to monitor.Revealer.
type RevealerFunc func()

func (f RevealerFunc) Reveal() {
	f()
}
