// Package session wires a capture source, a pacer, the drop detector and
// the format policy into one presentation pipeline per device.
package session

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/smazurov/playout/internal/capture"
	"github.com/smazurov/playout/internal/drops"
	"github.com/smazurov/playout/internal/events"
	"github.com/smazurov/playout/internal/format"
	"github.com/smazurov/playout/internal/logging"
	"github.com/smazurov/playout/internal/media"
	"github.com/smazurov/playout/internal/metrics"
	"github.com/smazurov/playout/internal/pacer"
)

// ErrClosed is returned by Tick after Close.
var ErrClosed = errors.New("session closed")

// State is the lifecycle state of a session.
type State string

// Session states.
const (
	StateBuffering State = "buffering" // Waiting for preroll
	StatePlaying   State = "playing"   // Presenting frames
	StateFailed    State = "failed"    // Halted on a configuration error
	StateClosed    State = "closed"    // Torn down
)

// Presentation is what the sink receives for a ready tick.
type Presentation struct {
	SessionID   string
	Selection   format.Selection
	FieldParity media.FieldParity
	Timecode    media.Timecode
	QueueDepth  int
}

// Sink receives the current frame once per ready tick. Commit must not
// block; the pixel transfer itself belongs to the sink.
type Sink interface {
	Commit(p Presentation) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Presentation) error

// Commit calls f(p).
func (f SinkFunc) Commit(p Presentation) error { return f(p) }

// Options configures a session.
type Options struct {
	Format            format.PixelFormat
	TargetQueueLength int
	// Clock overrides the wall clock, e.g. with a shared master clock reader.
	Clock     pacer.Clock
	Publisher events.Publisher
	Logger    *slog.Logger
}

// Stats is a diagnostic snapshot of a session.
type Stats struct {
	ID                string           `json:"id"`
	State             State            `json:"state"`
	Format            string           `json:"format"`
	Dimensions        media.Dimensions `json:"dimensions"`
	Progressive       bool             `json:"progressive"`
	FrameRate         float64          `json:"frame_rate"`
	QueueDepth        int              `json:"queue_depth"`
	TargetQueueLength int              `json:"target_queue_length"`
	MaxQueueLength    int              `json:"max_queue_length"`
	Prerolled         bool             `json:"prerolled"`
	Timecode          string           `json:"timecode"`
	Drops             drops.Record     `json:"drops"`
	Error             string           `json:"error,omitempty"`
}

// Session runs the pacing pipeline for one capture source. Tick and Close
// are serialized so the source is never torn down mid-tick.
type Session struct {
	id       string
	format   format.PixelFormat
	source   capture.Source
	sink     Sink
	pacer    *pacer.Pacer
	detector *drops.Detector
	bus      events.Publisher
	logger   *slog.Logger
	warnings *rate.Limiter

	mu            sync.Mutex
	frameDuration media.Ticks
	lastDepth     int
	err           error
	closed        bool
}

// New creates a session. The pixel format is checked up front so a session
// never starts with a format the policy cannot map.
func New(id string, source capture.Source, sink Sink, opts Options) (*Session, error) {
	if _, err := format.Lookup(opts.Format); err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}
	if opts.TargetQueueLength == 0 {
		opts.TargetQueueLength = pacer.DefaultTargetQueueLength
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.GetLogger("session")
	}
	logger = logger.With("session_id", id)

	s := &Session{
		id:            id,
		format:        opts.Format,
		source:        source,
		sink:          sink,
		bus:           opts.Publisher,
		logger:        logger,
		warnings:      rate.NewLimiter(rate.Every(time.Second), 5),
		frameDuration: source.FrameDuration(),
	}
	s.detector = drops.NewDetector(id, logging.GetLogger("drops"), opts.Publisher)

	p, err := pacer.New(source, opts.Clock, s.detector, pacer.Config{TargetQueueLength: opts.TargetQueueLength})
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}
	p.SetObserver(s.observe)
	s.pacer = p

	metrics.SetTargetQueueLength(id, opts.TargetQueueLength)
	metrics.SetPrerolled(id, false)
	s.publishState(StateBuffering)

	logger.Info("Session created",
		"format", opts.Format,
		"dimensions", source.FrameDimensions(),
		"frame_duration", s.frameDuration,
		"target_queue_length", opts.TargetQueueLength)
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// FrameDuration returns the frame duration currently reported by the source.
func (s *Session) FrameDuration() media.Ticks { return s.source.FrameDuration() }

// Tick runs one pacing step. When a frame is ready it is committed to the
// sink and returned. A format error halts the session: this and every
// later call returns it.
func (s *Session) Tick() (Presentation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Presentation{}, false, ErrClosed
	}
	if s.err != nil {
		return Presentation{}, false, s.err
	}

	if fd := s.source.FrameDuration(); fd != s.frameDuration {
		s.logger.Info("Source format changed", "old_frame_duration", s.frameDuration, "new_frame_duration", fd)
		s.frameDuration = fd
		wasPrerolled := s.pacer.State().Prerolled
		s.pacer.Reset()
		if wasPrerolled {
			s.prerollChanged(false, s.source.QueuedFrameCount())
		}
	}

	ready := s.pacer.Tick()
	depth := s.source.QueuedFrameCount()
	s.lastDepth = depth
	if !ready {
		metrics.ObserveTick(s.id, metrics.ResultNotReady, depth)
		return Presentation{}, false, nil
	}

	parity := s.pacer.CurrentFieldParity()
	sel, err := format.Select(s.format, s.source.FrameDimensions(), s.source.IsProgressive(), parity)
	if err != nil {
		s.fail(err)
		metrics.ObserveTick(s.id, metrics.ResultError, depth)
		return Presentation{}, false, s.err
	}
	s.detector.Update(s.source.DropCount())

	p := Presentation{
		SessionID:   s.id,
		Selection:   sel,
		FieldParity: parity,
		Timecode:    media.NewTimecode(s.source.CurrentTimecode(), s.frameDuration),
		QueueDepth:  depth,
	}
	if err := s.sink.Commit(p); err != nil {
		metrics.ObserveTick(s.id, metrics.ResultError, depth)
		return p, false, fmt.Errorf("commit frame: %w", err)
	}
	metrics.ObserveTick(s.id, metrics.ResultReady, depth)
	return p, true, nil
}

// SetTargetQueueLength changes the playout cushion. It applies to the next
// preroll and to trimming from the next tick on.
func (s *Session) SetTargetQueueLength(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.pacer.SetTargetQueueLength(n); err != nil {
		return err
	}
	metrics.SetTargetQueueLength(s.id, n)
	s.logger.Info("Target queue length changed", "target_queue_length", n)
	return nil
}

// Drops returns the current drop counters.
func (s *Session) Drops() drops.Record {
	return s.detector.Snapshot()
}

// Report returns drops since the previous report and publishes a summary
// when anything was lost.
func (s *Session) Report(interval time.Duration) (pacerDrops, deviceDrops int64) {
	pacerDrops, deviceDrops = s.detector.Report()
	if pacerDrops == 0 && deviceDrops == 0 {
		return 0, 0
	}
	s.logger.Warn("Frames dropped since last report",
		"pacer_drops", pacerDrops,
		"device_drops", deviceDrops,
		"interval", interval)
	if s.bus != nil {
		s.bus.Publish(events.DropReportEvent{
			SessionID:   s.id,
			PacerDrops:  pacerDrops,
			DeviceDrops: deviceDrops,
			Interval:    interval.String(),
			Timestamp:   timestamp(),
		})
	}
	return pacerDrops, deviceDrops
}

// Err returns the error that halted the session, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Stats returns a diagnostic snapshot.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.pacer.State()
	fd := s.source.FrameDuration()
	stats := Stats{
		ID:                s.id,
		State:             s.stateLocked(),
		Format:            s.format.String(),
		Dimensions:        s.source.FrameDimensions(),
		Progressive:       s.source.IsProgressive(),
		FrameRate:         fd.FramesPerSecond(),
		QueueDepth:        s.lastDepth,
		TargetQueueLength: st.TargetQueueLength,
		MaxQueueLength:    st.MaxQueueLength,
		Prerolled:         st.Prerolled,
		Timecode:          media.NewTimecode(s.source.CurrentTimecode(), fd).String(),
		Drops:             s.detector.Snapshot(),
	}
	if s.err != nil {
		stats.Error = s.err.Error()
	}
	return stats
}

// Close ends the session. It waits for an in-flight Tick and closes the
// source when it implements io.Closer. Calling Close more than once is safe.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var err error
	if c, ok := s.source.(io.Closer); ok {
		err = c.Close()
	}
	metrics.DeleteSessionMetrics(s.id)
	s.publishState(StateClosed)
	s.logger.Info("Session closed", "drops", s.detector.Snapshot())
	return err
}

func (s *Session) stateLocked() State {
	switch {
	case s.closed:
		return StateClosed
	case s.err != nil:
		return StateFailed
	case s.pacer.State().Prerolled:
		return StatePlaying
	default:
		return StateBuffering
	}
}

func (s *Session) fail(err error) {
	s.err = fmt.Errorf("session %s: %w", s.id, err)
	s.logger.Error("Presentation halted", "format", s.format, "error", err)
	if s.bus != nil {
		s.bus.Publish(events.FormatErrorEvent{
			SessionID: s.id,
			Format:    s.format.String(),
			Error:     err.Error(),
			Timestamp: timestamp(),
		})
	}
	s.publishState(StateFailed)
}

// observe runs synchronously inside pacer.Tick with s.mu held.
func (s *Session) observe(e pacer.Event) {
	switch e.Kind {
	case pacer.EventPrerolled:
		s.prerollChanged(true, e.QueueDepth)
	case pacer.EventStarved:
		metrics.IncPrerollResets(s.id)
		s.prerollChanged(false, e.QueueDepth)
	case pacer.EventTrimmed:
		if s.warnings.Allow() {
			s.logger.Warn("Queue overrun, trimmed frames", "frames", e.Frames, "queue_depth", e.QueueDepth)
		}
	}
}

func (s *Session) prerollChanged(prerolled bool, depth int) {
	metrics.SetPrerolled(s.id, prerolled)
	if prerolled {
		s.logger.Info("Preroll complete", "queue_depth", depth)
		s.publishState(StatePlaying)
	} else {
		if s.warnings.Allow() {
			s.logger.Warn("Queue underrun, back to preroll", "queue_depth", depth)
		}
		s.publishState(StateBuffering)
	}
	if s.bus != nil {
		s.bus.Publish(events.PrerollChangedEvent{
			SessionID:  s.id,
			Prerolled:  prerolled,
			QueueDepth: depth,
			Timestamp:  timestamp(),
		})
	}
}

func (s *Session) publishState(state State) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.SessionStateEvent{
		SessionID: s.id,
		State:     string(state),
		Timestamp: timestamp(),
	})
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
