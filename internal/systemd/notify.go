// Package systemd reports service readiness and liveness to systemd over
// the sd_notify protocol. Outside a Type=notify unit every call is a no-op.
package systemd

import (
	"context"
	"log/slog"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Notifier sends sd_notify messages.
type Notifier struct {
	logger *slog.Logger
}

// NewNotifier creates a notifier.
func NewNotifier(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{logger: logger}
}

// Ready tells systemd startup has finished.
func (n *Notifier) Ready() bool {
	return n.send(daemon.SdNotifyReady)
}

// Stopping tells systemd shutdown has begun.
func (n *Notifier) Stopping() bool {
	return n.send(daemon.SdNotifyStopping)
}

// Status sets the free-form status line shown by systemctl status.
func (n *Notifier) Status(status string) bool {
	return n.send("STATUS=" + status)
}

// RunWatchdog pets the watchdog at half of WatchdogSec until ctx is
// cancelled, refreshing the status line from status on each beat. It
// returns at once when the unit has no watchdog.
func (n *Notifier) RunWatchdog(ctx context.Context, status func() string) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		n.logger.Warn("Invalid watchdog settings", "error", err)
		return
	}
	if interval <= 0 {
		return
	}
	n.runWatchdog(ctx, interval/2, status)
}

func (n *Notifier) runWatchdog(ctx context.Context, every time.Duration, status func() string) {
	n.logger.Info("Systemd watchdog enabled", "interval", every)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.send(daemon.SdNotifyWatchdog)
			if status != nil {
				n.Status(status())
			}
		}
	}
}

func (n *Notifier) send(state string) bool {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		n.logger.Warn("Failed to notify systemd", "state", state, "error", err)
		return false
	}
	return sent
}
