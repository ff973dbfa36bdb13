package pacer

import (
	"sync/atomic"
	"time"

	"github.com/smazurov/playout/internal/media"
)

// Clock reports how much time passed since it was last asked.
type Clock interface {
	Elapsed() media.Ticks
}

// WallClock measures elapsed time with the monotonic system clock.
type WallClock struct {
	now  func() time.Time
	last time.Time
}

// NewWallClock creates a wall clock whose first reading is measured from now.
func NewWallClock() *WallClock {
	c := &WallClock{now: time.Now}
	c.last = c.now()
	return c
}

// Elapsed returns the wall time since the previous call, in ticks.
func (c *WallClock) Elapsed() media.Ticks {
	now := c.now()
	d := now.Sub(c.last)
	c.last = now
	if d < 0 {
		return 0
	}
	return media.TicksFromDuration(d)
}

// Restart discards time accumulated since the previous reading.
func (c *WallClock) Restart() {
	c.last = c.now()
}

// MasterClock is an authoritative time base shared by several pacers so they
// stay phase-locked. One owner advances it; pacers read it through their own
// MasterClockReader.
type MasterClock struct {
	now atomic.Int64
}

// NewMasterClock creates a master clock starting at zero.
func NewMasterClock() *MasterClock {
	return &MasterClock{}
}

// Advance moves the clock forward by d. Only the owner calls this.
func (m *MasterClock) Advance(d media.Ticks) {
	if d <= 0 {
		return
	}
	m.now.Add(int64(d))
}

// Set publishes an absolute time. Only the owner calls this.
func (m *MasterClock) Set(t media.Ticks) {
	m.now.Store(int64(t))
}

// Now returns the latest published time.
func (m *MasterClock) Now() media.Ticks {
	return media.Ticks(m.now.Load())
}

// Reader returns a Clock that reports master clock progress since the
// reader's previous call. Each pacer needs its own reader.
func (m *MasterClock) Reader() *MasterClockReader {
	return &MasterClockReader{master: m, last: m.Now()}
}

// MasterClockReader is one consumer's view of a MasterClock.
type MasterClockReader struct {
	master *MasterClock
	last   media.Ticks
}

// Elapsed implements Clock. A master clock that moved backwards reports zero
// and re-anchors the reader.
func (r *MasterClockReader) Elapsed() media.Ticks {
	now := r.master.Now()
	d := now - r.last
	r.last = now
	if d < 0 {
		return 0
	}
	return d
}

// Restart discards master clock progress since the previous reading.
func (r *MasterClockReader) Restart() {
	r.last = r.master.Now()
}
