package session

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/smazurov/playout/internal/media"
	"github.com/smazurov/playout/internal/pacer"
)

// DefaultReportInterval is how often drop summaries are emitted.
const DefaultReportInterval = 10 * time.Second

// Runner drives a session from a fixed-rate loop, standing in for a host
// render loop. Interlaced sources are ticked once per field.
type Runner struct {
	session     *Session
	logger      *slog.Logger
	errors      *rate.Limiter
	reportEvery atomic.Int64
	presented   atomic.Int64
}

// NewRunner creates a runner for s. A zero reportInterval uses
// DefaultReportInterval.
func NewRunner(s *Session, reportInterval time.Duration) *Runner {
	r := &Runner{
		session: s,
		logger:  s.logger,
		errors:  rate.NewLimiter(rate.Every(5*time.Second), 1),
	}
	r.SetReportInterval(reportInterval)
	return r
}

// SetReportInterval changes the drop report period. It is safe to call while
// Run is active; the new period applies after the current one elapses.
func (r *Runner) SetReportInterval(d time.Duration) {
	if d <= 0 {
		d = DefaultReportInterval
	}
	r.reportEvery.Store(int64(d))
}

// Presented returns the number of ready ticks so far.
func (r *Runner) Presented() int64 {
	return r.presented.Load()
}

// Run ticks the session until ctx is cancelled or the session halts. It
// returns nil on cancellation or Close, and the session error otherwise.
func (r *Runner) Run(ctx context.Context) error {
	frameDuration := r.session.FrameDuration()
	ticker := time.NewTicker(tickInterval(frameDuration, r.session.source.IsProgressive()))
	defer ticker.Stop()

	reportInterval := time.Duration(r.reportEvery.Load())
	report := time.NewTicker(reportInterval)
	defer report.Stop()

	for {
		select {
		case <-ctx.Done():
			r.session.Report(reportInterval)
			return nil

		case <-report.C:
			r.session.Report(reportInterval)
			if next := time.Duration(r.reportEvery.Load()); next != reportInterval {
				reportInterval = next
				report.Reset(reportInterval)
			}

		case <-ticker.C:
			_, ready, err := r.session.Tick()
			switch {
			case errors.Is(err, ErrClosed):
				return nil
			case err != nil && r.session.Err() != nil:
				return err
			case err != nil:
				if r.errors.Allow() {
					r.logger.Warn("Tick failed", "error", err)
				}
			case ready:
				r.presented.Add(1)
			}

			if fd := r.session.FrameDuration(); fd != frameDuration {
				frameDuration = fd
				ticker.Reset(tickInterval(fd, r.session.source.IsProgressive()))
			}
		}
	}
}

// RunMasterClock advances clock by wall time every interval until ctx is
// cancelled. It must be the clock's only writer.
func RunMasterClock(ctx context.Context, clock *pacer.MasterClock, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			clock.Advance(media.TicksFromDuration(now.Sub(last)))
			last = now
		}
	}
}

// tickInterval is one frame for progressive sources and one field for
// interlaced ones. Unknown rates fall back to 60 Hz polling.
func tickInterval(frameDuration media.Ticks, progressive bool) time.Duration {
	d := frameDuration.Duration()
	if d <= 0 {
		return time.Second / 60
	}
	if !progressive {
		d /= 2
	}
	return d
}
