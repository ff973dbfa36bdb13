package pacer

import (
	"testing"
	"time"

	"github.com/smazurov/playout/internal/media"
)

func TestWallClockElapsed(t *testing.T) {
	base := time.Unix(1000, 0)
	now := base
	c := &WallClock{now: func() time.Time { return now }, last: base}

	now = base.Add(40 * time.Millisecond)
	if got := c.Elapsed(); got != media.TicksFromDuration(40*time.Millisecond) {
		t.Errorf("Elapsed() = %d, want 400000", got)
	}

	now = now.Add(10 * time.Millisecond)
	c.Restart()
	now = now.Add(5 * time.Millisecond)
	if got := c.Elapsed(); got != 50000 {
		t.Errorf("Elapsed() after Restart = %d, want 50000", got)
	}

	now = now.Add(-time.Second)
	if got := c.Elapsed(); got != 0 {
		t.Errorf("Elapsed() going backwards = %d, want 0", got)
	}
}

func TestMasterClockReaders(t *testing.T) {
	master := NewMasterClock()
	master.Set(5000)

	a := master.Reader()
	master.Advance(1000)
	b := master.Reader()
	master.Advance(500)

	if got := a.Elapsed(); got != 1500 {
		t.Errorf("reader a Elapsed() = %d, want 1500", got)
	}
	if got := b.Elapsed(); got != 500 {
		t.Errorf("reader b Elapsed() = %d, want 500", got)
	}
	if got := a.Elapsed(); got != 0 {
		t.Errorf("reader a second Elapsed() = %d, want 0", got)
	}

	master.Advance(-10)
	if got := master.Now(); got != 6500 {
		t.Errorf("Now() = %d, want 6500 (negative advance ignored)", got)
	}

	master.Set(100)
	if got := a.Elapsed(); got != 0 {
		t.Errorf("Elapsed() after rewind = %d, want 0", got)
	}
	master.Advance(50)
	if got := a.Elapsed(); got != 50 {
		t.Errorf("Elapsed() after re-anchor = %d, want 50", got)
	}
}

func TestMasterClockDrivesPacer(t *testing.T) {
	master := NewMasterClock()
	src := &fakeSource{depth: 4, frameDuration: 1000}
	p, err := New(src, master.Reader(), nil, Config{TargetQueueLength: 3})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	master.Advance(2000)
	if !p.Tick() {
		t.Fatal("Tick() = false, want true")
	}
	if src.dequeues != 2 {
		t.Errorf("dequeues = %d, want 2", src.dequeues)
	}

	// No master progress, no drain
	if !p.Tick() {
		t.Fatal("Tick() = false, want true")
	}
	if src.dequeues != 2 {
		t.Errorf("dequeues = %d, want 2", src.dequeues)
	}
}
