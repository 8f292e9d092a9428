// Package service talks to the process supervisor: systemd readiness and
// watchdog notifications, and device resets as process exits.
package service

import (
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/rs/zerolog"
)

// ResetExitCode asks the supervisor to start the sign again.
const ResetExitCode = 3

// Notifier sends sd_notify messages. Outside systemd every call is a no-op.
type Notifier struct {
	log      zerolog.Logger
	notify   func(state string) (bool, error)
	interval time.Duration
	now      func() time.Time

	mu   sync.Mutex
	last time.Time
}

// NewNotifier reads the watchdog interval from the environment. Heartbeats
// are sent at half of it.
func NewNotifier(log zerolog.Logger) *Notifier {
	n := &Notifier{
		log:    log,
		notify: func(state string) (bool, error) { return daemon.SdNotify(false, state) },
		now:    time.Now,
	}
	if d, err := daemon.SdWatchdogEnabled(false); err == nil && d > 0 {
		n.interval = d / 2
		log.Info().Dur("interval", n.interval).Msg("systemd watchdog enabled")
	}
	return n
}

func (n *Notifier) send(state string) {
	if ok, err := n.notify(state); err != nil {
		n.log.Warn().Err(err).Str("state", state).Msg("sd_notify failed")
	} else if ok {
		n.log.Debug().Str("state", state).Msg("sd_notify")
	}
}

func (n *Notifier) Ready()    { n.send(daemon.SdNotifyReady) }
func (n *Notifier) Stopping() { n.send(daemon.SdNotifyStopping) }

// Heartbeat pets the watchdog, at most once per interval. It is cheap
// enough to call every scheduler iteration.
func (n *Notifier) Heartbeat() {
	if n.interval <= 0 {
		return
	}
	n.mu.Lock()
	now := n.now()
	due := now.Sub(n.last) >= n.interval
	if due {
		n.last = now
	}
	n.mu.Unlock()
	if due {
		n.send(daemon.SdNotifyWatchdog)
	}
}

// ProcessReset resets the device by exiting the process.
type ProcessReset struct {
	Log zerolog.Logger
	// Before runs once before exiting, e.g. to blank the strip.
	Before func()
	Exit   func(code int)

	once sync.Once
}

func (r *ProcessReset) Reset(reason string) {
	r.once.Do(func() {
		r.Log.Warn().Str("reason", reason).Msg("device reset")
		if r.Before != nil {
			r.Before()
		}
		r.Exit(ResetExitCode)
	})
}
