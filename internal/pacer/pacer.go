// Package pacer decides, once per render tick, whether a captured frame is
// ready for presentation. It keeps the capture queue between a preroll
// cushion and an overrun cap, advances a frame clock and tracks field parity
// for interlaced sources.
//
// A Pacer is driven from a single goroutine and holds no locks. It never
// blocks: every Tick performs a bounded number of queue operations.
package pacer

import (
	"errors"
	"fmt"

	"github.com/smazurov/playout/internal/capture"
	"github.com/smazurov/playout/internal/media"
)

// Queue length policy.
const (
	MinTargetQueueLength     = 1
	MaxTargetQueueLength     = 6
	DefaultTargetQueueLength = 3

	// MaxExtraFrames caps how far above the target the queue may grow before
	// frames are trimmed.
	MaxExtraFrames = 3

	// minDrainDepth is the depth needed to retire a frame without leaving the
	// next tick with nothing to show.
	minDrainDepth = 2
)

// ErrInvalidTargetQueueLength is returned for target lengths outside 1..6.
var ErrInvalidTargetQueueLength = errors.New("target queue length out of range")

// MaxQueueLength returns the overrun threshold for a target queue length.
func MaxQueueLength(target int) int {
	return target + min(MaxExtraFrames, target)
}

// Config configures a Pacer.
type Config struct {
	TargetQueueLength int
}

func (c Config) validate() error {
	if c.TargetQueueLength < MinTargetQueueLength || c.TargetQueueLength > MaxTargetQueueLength {
		return fmt.Errorf("%w: %d (want %d..%d)", ErrInvalidTargetQueueLength,
			c.TargetQueueLength, MinTargetQueueLength, MaxTargetQueueLength)
	}
	return nil
}

// State is the pacer's mutable state. Only Tick, Reset and
// SetTargetQueueLength change it.
type State struct {
	AccumulatedTime   media.Ticks       `json:"accumulated_time"`
	Prerolled         bool              `json:"prerolled"`
	FieldParity       media.FieldParity `json:"field_parity"`
	TargetQueueLength int               `json:"target_queue_length"`
	MaxQueueLength    int               `json:"max_queue_length"`
}

// DropRecorder receives one call per frame the pacer discards or fails to
// obtain.
type DropRecorder interface {
	Warn()
}

// EventKind identifies a pacer state transition.
type EventKind int

// Pacer transitions reported to the Observer.
const (
	// EventPrerolled: the queue reached the preroll cushion and playback started.
	EventPrerolled EventKind = iota
	// EventStarved: a drain found fewer than two frames; back to preroll.
	EventStarved
	// EventTrimmed: frames were discarded to bring the queue under the cap.
	EventTrimmed
)

func (k EventKind) String() string {
	switch k {
	case EventPrerolled:
		return "prerolled"
	case EventStarved:
		return "starved"
	case EventTrimmed:
		return "trimmed"
	default:
		return fmt.Sprintf("eventkind(%d)", int(k))
	}
}

// Event describes a transition. Frames is the number of frames trimmed for
// EventTrimmed.
type Event struct {
	Kind       EventKind
	QueueDepth int
	Frames     int
}

// Observer is notified of transitions synchronously from Tick. It must not
// block.
type Observer func(Event)

// Pacer is the playout state machine for one capture source.
type Pacer struct {
	source   capture.Source
	clock    Clock
	drops    DropRecorder
	observer Observer
	state    State
}

// New creates a pacer reading from source. clock may be nil to use the wall
// clock; drops may be nil when drop accounting is not needed.
func New(source capture.Source, clock Clock, drops DropRecorder, cfg Config) (*Pacer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = NewWallClock()
	}
	if drops == nil {
		drops = discardDrops{}
	}
	p := &Pacer{
		source: source,
		clock:  clock,
		drops:  drops,
	}
	p.state.FieldParity = media.FieldEven
	p.setTarget(cfg.TargetQueueLength)
	return p, nil
}

// SetObserver registers a transition observer. Pass nil to remove it.
func (p *Pacer) SetObserver(o Observer) {
	p.observer = o
}

// SetClock replaces the time base, e.g. when a master clock is registered
// for the session.
func (p *Pacer) SetClock(c Clock) {
	if c == nil {
		c = NewWallClock()
	}
	p.clock = c
}

// SetTargetQueueLength changes the target queue length. It must be called
// from the goroutine that drives Tick.
func (p *Pacer) SetTargetQueueLength(n int) error {
	if err := (Config{TargetQueueLength: n}).validate(); err != nil {
		return err
	}
	p.setTarget(n)
	return nil
}

func (p *Pacer) setTarget(n int) {
	p.state.TargetQueueLength = n
	p.state.MaxQueueLength = MaxQueueLength(n)
}

// Reset returns to the session-start state, e.g. after the source switched
// video format. The target queue length is kept.
func (p *Pacer) Reset() {
	p.state.AccumulatedTime = 0
	p.state.Prerolled = false
	p.state.FieldParity = media.FieldEven
	if r, ok := p.clock.(interface{ Restart() }); ok {
		r.Restart()
	}
}

// State returns a copy of the current state.
func (p *Pacer) State() State {
	return p.state
}

// CurrentFieldParity returns the field to present for the current frame.
func (p *Pacer) CurrentFieldParity() media.FieldParity {
	return p.state.FieldParity
}

// Tick runs one step of the state machine and reports whether a frame is
// ready for presentation. A ready tick may not retire any frame; the most
// recently retired frame stays current until replaced.
func (p *Pacer) Tick() bool {
	// The clock is sampled every tick so that time spent waiting for the
	// queue is not credited once playback starts.
	elapsed := p.clock.Elapsed()

	depth := p.source.QueuedFrameCount()
	if depth == 0 {
		return false
	}

	if !p.state.Prerolled {
		if depth < 1+p.state.TargetQueueLength {
			return false
		}
		p.state.Prerolled = true
		p.notify(Event{Kind: EventPrerolled, QueueDepth: depth})
	}

	if excess := depth - p.state.MaxQueueLength; excess > 0 {
		for range excess {
			p.source.DequeueFrame()
			p.drops.Warn()
		}
		p.notify(Event{Kind: EventTrimmed, QueueDepth: depth - excess, Frames: excess})
	}

	p.state.AccumulatedTime += elapsed
	p.state.FieldParity = media.FieldEven

	frameDuration := p.source.FrameDuration()
	if frameDuration <= 0 {
		return true
	}

	for p.state.AccumulatedTime >= frameDuration {
		depth = p.source.QueuedFrameCount()
		if depth < minDrainDepth {
			p.state.Prerolled = false
			p.drops.Warn()
			p.notify(Event{Kind: EventStarved, QueueDepth: depth})
			break
		}
		p.source.DequeueFrame()
		p.state.AccumulatedTime -= frameDuration
		p.state.FieldParity = media.FieldOdd
	}

	return true
}

func (p *Pacer) notify(e Event) {
	if p.observer != nil {
		p.observer(e)
	}
}

type discardDrops struct{}

func (discardDrops) Warn() {}
