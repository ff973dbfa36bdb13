package capture

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/smazurov/playout/internal/media"
)

// ErrSimulatorRunning is returned by Start when the producer is already running.
var ErrSimulatorRunning = errors.New("simulator already running")

// SimulatorConfig describes the simulated device.
type SimulatorConfig struct {
	Dimensions    media.Dimensions
	FrameDuration media.Ticks
	Progressive   bool
	// Capacity bounds the device queue. Frames arriving while the queue is
	// full are counted as device drops.
	Capacity int
	// Jitter is the maximum random deviation applied to each frame interval.
	Jitter time.Duration
	// RateScale stretches the producer cadence; 1.0 is nominal, values below
	// one produce frames faster than the nominal rate.
	RateScale float64
}

// Simulator is an in-memory capture device. Frames are produced by a
// goroutine at the configured cadence; consumers only see counters.
type Simulator struct {
	mu           sync.Mutex
	cfg          SimulatorConfig
	queue        []media.Ticks // timecodes of buffered frames
	nextTimecode media.Ticks
	drops        int64
	dequeued     int64
	cancel       context.CancelFunc
	done         chan struct{}
	logger       *slog.Logger
}

// NewSimulator creates a simulated device. It does not produce frames until
// Start is called; Push can be used to feed frames manually.
func NewSimulator(cfg SimulatorConfig, logger *slog.Logger) *Simulator {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 16
	}
	if cfg.RateScale <= 0 {
		cfg.RateScale = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Simulator{
		cfg:    cfg,
		queue:  make([]media.Ticks, 0, cfg.Capacity),
		logger: logger,
	}
}

// Start launches the producer goroutine. It stops when ctx is cancelled or
// Close is called.
func (s *Simulator) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return ErrSimulatorRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.produce(ctx)
	return nil
}

func (s *Simulator) produce(ctx context.Context) {
	defer close(s.done)

	cfg := s.config()
	s.logger.Debug("Simulated capture started",
		"dimensions", cfg.Dimensions.String(),
		"frame_duration", cfg.FrameDuration.String(),
		"progressive", cfg.Progressive)

	for {
		// SetFrameDuration may change the cadence between frames
		cfg = s.config()
		interval := time.Duration(float64(cfg.FrameDuration.Duration()) * cfg.RateScale)
		if cfg.Jitter > 0 {
			interval += time.Duration(rand.Int64N(int64(2*cfg.Jitter))) - cfg.Jitter
		}
		if interval <= 0 {
			interval = time.Millisecond
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Debug("Simulated capture stopped")
			return
		case <-timer.C:
			s.Push(1)
		}
	}
}

func (s *Simulator) config() SimulatorConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Push enqueues n frames, counting a device drop for each frame that does
// not fit.
func (s *Simulator) Push(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for range n {
		tc := s.nextTimecode
		s.nextTimecode += s.cfg.FrameDuration
		if len(s.queue) >= s.cfg.Capacity {
			s.drops++
			continue
		}
		s.queue = append(s.queue, tc)
	}
}

// Flush discards all buffered frames without counting drops, like a device
// losing signal.
func (s *Simulator) Flush() {
	s.mu.Lock()
	s.queue = s.queue[:0]
	s.mu.Unlock()
}

// ResetDropCount zeroes the device drop counter, as a reconnecting device does.
func (s *Simulator) ResetDropCount() {
	s.mu.Lock()
	s.drops = 0
	s.mu.Unlock()
}

// SetFrameDuration switches the simulated video format.
func (s *Simulator) SetFrameDuration(d media.Ticks) {
	s.mu.Lock()
	s.cfg.FrameDuration = d
	s.mu.Unlock()
}

// QueuedFrameCount implements Source.
func (s *Simulator) QueuedFrameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// DequeueFrame implements Source.
func (s *Simulator) DequeueFrame() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return
	}
	s.queue = s.queue[1:]
	s.dequeued++
}

// Dequeued returns how many frames have been retired through DequeueFrame.
func (s *Simulator) Dequeued() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dequeued
}

// FrameDuration implements Source.
func (s *Simulator) FrameDuration() media.Ticks {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.FrameDuration
}

// FrameDimensions implements Source.
func (s *Simulator) FrameDimensions() media.Dimensions {
	return s.cfg.Dimensions
}

// IsProgressive implements Source.
func (s *Simulator) IsProgressive() bool {
	return s.cfg.Progressive
}

// DropCount implements Source.
func (s *Simulator) DropCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drops
}

// CurrentTimecode implements Source.
func (s *Simulator) CurrentTimecode() media.Ticks {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return s.nextTimecode
	}
	return s.queue[0]
}

// Close stops the producer and waits for it to exit.
func (s *Simulator) Close() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}
