package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// ErrLocked is returned by Write when another process holds the PID file.
var ErrLocked = errors.New("pid file locked")

// PIDRecord is the content of a PID file: the monitor's PID and, once it
// has started, the PID of its ccls server.
type PIDRecord struct {
	Monitor int
	CCLS    int
}

func (r PIDRecord) String() string {
	if r.CCLS > 0 {
		return fmt.Sprintf("%d %d", r.Monitor, r.CCLS)
	}
	return strconv.Itoa(r.Monitor)
}

// parsePIDRecord reads "<monitor> [<ccls>]". A malformed monitor PID
// yields the zero record.
func parsePIDRecord(s string) PIDRecord {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return PIDRecord{}
	}
	monitor, err := strconv.Atoi(fields[0])
	if err != nil || monitor <= 0 {
		return PIDRecord{}
	}
	rec := PIDRecord{Monitor: monitor}
	if len(fields) > 1 {
		if ccls, err := strconv.Atoi(fields[1]); err == nil && ccls > 0 {
			rec.CCLS = ccls
		}
	}
	return rec
}

// PIDFile is a flock-protected file ensuring one monitor per project.
// While held, it also records the ccls server so a crashed monitor's
// orphan can be reported by the next run.
type PIDFile struct {
	path string
	file *os.File
	rec  PIDRecord
}

// NewPIDFile creates a PIDFile for path.
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{path: path}
}

// Path returns the PID file path.
func (p *PIDFile) Path() string {
	return p.path
}

// Write locks the PID file and records the current process.
// It returns ErrLocked if another monitor holds the lock.
func (p *PIDFile) Write() error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0755); err != nil {
		return fmt.Errorf("create pid directory: %w", err)
	}

	file, err := os.OpenFile(p.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("open pid file: %w", err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = file.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			return fmt.Errorf("%w: monitor already running for this project (pid %d)", ErrLocked, p.Read().Monitor)
		}
		return fmt.Errorf("lock pid file: %w", err)
	}

	p.file = file
	if err := p.store(PIDRecord{Monitor: os.Getpid()}); err != nil {
		unlockAndClose(file)
		p.file = nil
		return err
	}
	return nil
}

// SetCCLS records the PID of the ccls server. Write must have succeeded.
func (p *PIDFile) SetCCLS(pid int) error {
	if p.file == nil {
		return errors.New("pid file not locked")
	}
	rec := p.rec
	rec.CCLS = pid
	return p.store(rec)
}

// store rewrites the locked file with rec.
func (p *PIDFile) store(rec PIDRecord) error {
	if err := p.file.Truncate(0); err != nil {
		return fmt.Errorf("truncate pid file: %w", err)
	}
	if _, err := p.file.WriteAt([]byte(rec.String()+"\n"), 0); err != nil {
		return fmt.Errorf("write pid: %w", err)
	}
	if err := p.file.Sync(); err != nil {
		return fmt.Errorf("sync pid file: %w", err)
	}
	p.rec = rec
	return nil
}

// Read returns the recorded PIDs, or the zero record if the file is
// missing or malformed.
func (p *PIDFile) Read() PIDRecord {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return PIDRecord{}
	}
	return parsePIDRecord(string(data))
}

// Remove releases the lock and removes the PID file.
func (p *PIDFile) Remove() error {
	if p.file != nil {
		unlockAndClose(p.file)
		p.file = nil
	}
	_ = os.Remove(p.path)
	return nil
}

func unlockAndClose(file *os.File) {
	_ = syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
	_ = file.Close()
}

// IsProcessRunning reports whether pid is a live process (signal 0 check).
func IsProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}

// IsRunning reports whether the recorded monitor is alive.
func (p *PIDFile) IsRunning() bool {
	return IsProcessRunning(p.Read().Monitor)
}

// CleanupStale removes the PID file and socket left by a monitor that is no
// longer running. It returns the stale record, or the zero record if there
// was nothing to clean. A non-zero CCLS field that is still alive is an
// orphaned server the caller may want to report.
func (p *PIDFile) CleanupStale(socketPath string) PIDRecord {
	rec := p.Read()
	if IsProcessRunning(rec.Monitor) {
		return PIDRecord{}
	}
	_ = os.Remove(p.path)
	if socketPath != "" {
		_ = os.Remove(socketPath)
	}
	return rec
}
