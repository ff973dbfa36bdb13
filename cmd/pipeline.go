// Package cmd holds the playout subcommands and the pipeline they share.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smazurov/playout/internal/capture"
	"github.com/smazurov/playout/internal/config"
	"github.com/smazurov/playout/internal/events"
	"github.com/smazurov/playout/internal/logging"
	"github.com/smazurov/playout/internal/pacer"
	"github.com/smazurov/playout/internal/session"
)

// masterClockInterval is how often the shared clock is advanced.
const masterClockInterval = 5 * time.Millisecond

// PassCounter is a session sink that counts presented frames per pass.
type PassCounter struct {
	passes [3]atomic.Int64
}

// Commit implements session.Sink.
func (c *PassCounter) Commit(p session.Presentation) error {
	if p.Selection.Pass < 0 || p.Selection.Pass >= len(c.passes) {
		return fmt.Errorf("unexpected pass %d", p.Selection.Pass)
	}
	c.passes[p.Selection.Pass].Add(1)
	return nil
}

// Counts returns presentations for passes 0, 1 and 2.
func (c *PassCounter) Counts() [3]int64 {
	return [3]int64{c.passes[0].Load(), c.passes[1].Load(), c.passes[2].Load()}
}

type pipelineSession struct {
	session *session.Session
	device  *capture.Simulator
	runner  *session.Runner
	sink    *PassCounter
}

// Pipeline runs one simulated capture device and session per configured
// entry, optionally phase-locked to a shared master clock.
type Pipeline struct {
	Registry *session.Registry

	bus      events.Publisher
	master   *pacer.MasterClock
	sessions []*pipelineSession
	logger   *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	errs   []error
}

// NewPipeline builds sessions for every entry in f. Nothing runs until Start.
func NewPipeline(f config.File, bus events.Publisher) (*Pipeline, error) {
	p := &Pipeline{
		Registry: session.NewRegistry(),
		bus:      bus,
		logger:   logging.GetLogger("main"),
	}
	if f.Pacing.MasterClock {
		p.master = pacer.NewMasterClock()
	}

	for _, sc := range f.Sessions {
		ps, err := p.build(sc, f.Pacing)
		if err != nil {
			p.Registry.CloseAll()
			return nil, err
		}
		p.sessions = append(p.sessions, ps)
	}
	return p, nil
}

func (p *Pipeline) build(sc config.SessionConfig, pacing config.PacingConfig) (*pipelineSession, error) {
	pf, err := sc.PixelFormat()
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sc.ID, err)
	}
	fd, err := sc.FrameDuration()
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sc.ID, err)
	}

	device := capture.NewSimulator(capture.SimulatorConfig{
		Dimensions:    sc.Dimensions(),
		FrameDuration: fd,
		Progressive:   sc.Progressive,
		Capacity:      sc.Capacity,
		Jitter:        time.Duration(sc.Jitter),
		RateScale:     sc.RateScale,
	}, logging.GetLogger("capture").With("session_id", sc.ID))

	opts := session.Options{
		Format:            pf,
		TargetQueueLength: pacing.TargetQueueLength,
		Publisher:         p.bus,
	}
	if p.master != nil {
		opts.Clock = p.master.Reader()
	}

	sink := &PassCounter{}
	s, err := session.New(sc.ID, device, sink, opts)
	if err != nil {
		return nil, err
	}
	if err := p.Registry.Add(s); err != nil {
		s.Close()
		return nil, err
	}
	return &pipelineSession{
		session: s,
		device:  device,
		runner:  session.NewRunner(s, time.Duration(pacing.ReportInterval)),
		sink:    sink,
	}, nil
}

// Start launches the devices, the runners and the master clock.
func (p *Pipeline) Start(ctx context.Context) error {
	ctx, p.cancel = context.WithCancel(ctx)

	if p.master != nil {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			session.RunMasterClock(ctx, p.master, masterClockInterval)
		}()
	}

	for _, ps := range p.sessions {
		if err := ps.device.Start(ctx); err != nil {
			p.cancel()
			return fmt.Errorf("start device %s: %w", ps.session.ID(), err)
		}
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			if err := ps.runner.Run(ctx); err != nil {
				p.logger.Error("Session halted", "session_id", ps.session.ID(), "error", err)
				p.mu.Lock()
				p.errs = append(p.errs, err)
				p.mu.Unlock()
			}
		}()
	}
	p.logger.Info("Pipeline started", "sessions", len(p.sessions), "master_clock", p.master != nil)
	return nil
}

// ApplyPacing applies reloaded [pacing] settings to every live session.
func (p *Pipeline) ApplyPacing(cfg config.PacingConfig) error {
	n, err := p.SetTargetQueueLength(cfg.TargetQueueLength)
	if err != nil {
		return err
	}
	for _, ps := range p.sessions {
		ps.runner.SetReportInterval(time.Duration(cfg.ReportInterval))
	}
	p.logger.Info("Pacing reloaded",
		"target_queue_length", cfg.TargetQueueLength,
		"report_interval", time.Duration(cfg.ReportInterval),
		"sessions", n)
	return nil
}

// SetTargetQueueLength changes the target on every session and announces
// it on the event bus. It returns the number of sessions updated.
func (p *Pipeline) SetTargetQueueLength(target int) (int, error) {
	n, err := p.Registry.SetTargetQueueLength(target)
	if err != nil {
		return 0, err
	}
	if p.bus != nil {
		p.bus.Publish(events.PacingReloadedEvent{
			TargetQueueLength: target,
			Sessions:          n,
			Timestamp:         time.Now().UTC().Format(time.RFC3339),
		})
	}
	return n, nil
}

// PassCounts returns per-pass presentation counts for a session.
func (p *Pipeline) PassCounts(id string) ([3]int64, bool) {
	for _, ps := range p.sessions {
		if ps.session.ID() == id {
			return ps.sink.Counts(), true
		}
	}
	return [3]int64{}, false
}

// Stop cancels the runners, waits for them and closes every session. It
// returns the errors of sessions that halted.
func (p *Pipeline) Stop() error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	closeErr := p.Registry.CloseAll()
	p.mu.Lock()
	defer p.mu.Unlock()
	return errors.Join(append(p.errs, closeErr)...)
}
