package daemon

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// stopDelay lets the stop response reach the client before shutdown.
const stopDelay = 100 * time.Millisecond

var errNoMonitor = errors.New("no monitor available")

// handler produces the result of one method.
type handler func() (any, error)

func (d *Daemon) handlers() map[string]handler {
	return map[string]handler{
		MethodStatus:  d.needMonitor(d.status),
		MethodRefresh: d.needMonitor(d.refresh),
		MethodStop:    d.stop,
	}
}

func (d *Daemon) needMonitor(h handler) handler {
	return func() (any, error) {
		if d.monitor == nil {
			return nil, errNoMonitor
		}
		return h()
	}
}

// dispatch runs the handler for method.
func (d *Daemon) dispatch(method string) (any, error) {
	h, ok := d.handlers()[method]
	if !ok {
		return nil, fmt.Errorf("unknown method: %s", method)
	}
	return h()
}

func (d *Daemon) status() (any, error) {
	snap := d.monitor.Snapshot()
	stats := d.monitor.Stats()
	started := d.StartTime()

	return StatusResponse{
		Title:     snap.Title,
		Detail:    snap.Detail,
		Severity:  snap.Severity.String(),
		Target:    stats.Target,
		Uptime:    time.Since(started).Truncate(time.Second).String(),
		StartTime: started.Format(time.RFC3339),
		Polls:     stats.Polls,
		Failures:  stats.Failures,
		PID:       os.Getpid(),
	}, nil
}

func (d *Daemon) refresh() (any, error) {
	polls := d.monitor.Stats().Polls
	d.monitor.Trigger()
	return RefreshResponse{Polls: polls}, nil
}

func (d *Daemon) stop() (any, error) {
	time.AfterFunc(stopDelay, func() {
		if d.onStop != nil {
			d.onStop()
		}
		_ = d.Stop()
	})
	return StopResponse{PID: os.Getpid()}, nil
}
