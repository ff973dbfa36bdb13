package capture

import (
	"context"
	"testing"
	"time"

	"github.com/smazurov/playout/internal/media"
)

func newTestSimulator(capacity int) *Simulator {
	return NewSimulator(SimulatorConfig{
		Dimensions:    media.Dimensions{Width: 1920, Height: 1080},
		FrameDuration: 1000,
		Progressive:   true,
		Capacity:      capacity,
	}, nil)
}

func TestSimulatorPushAndDequeue(t *testing.T) {
	sim := newTestSimulator(4)

	sim.Push(3)
	if got := sim.QueuedFrameCount(); got != 3 {
		t.Fatalf("QueuedFrameCount = %d, want 3", got)
	}
	if got := sim.CurrentTimecode(); got != 0 {
		t.Errorf("CurrentTimecode = %d, want 0", got)
	}

	sim.DequeueFrame()
	if got := sim.QueuedFrameCount(); got != 2 {
		t.Errorf("QueuedFrameCount after dequeue = %d, want 2", got)
	}
	if got := sim.CurrentTimecode(); got != 1000 {
		t.Errorf("CurrentTimecode after dequeue = %d, want 1000", got)
	}
	if got := sim.Dequeued(); got != 1 {
		t.Errorf("Dequeued = %d, want 1", got)
	}
}

func TestSimulatorOverflowCountsDrops(t *testing.T) {
	sim := newTestSimulator(2)

	sim.Push(5)
	if got := sim.QueuedFrameCount(); got != 2 {
		t.Errorf("QueuedFrameCount = %d, want 2", got)
	}
	if got := sim.DropCount(); got != 3 {
		t.Errorf("DropCount = %d, want 3", got)
	}

	sim.ResetDropCount()
	if got := sim.DropCount(); got != 0 {
		t.Errorf("DropCount after reset = %d, want 0", got)
	}
}

func TestSimulatorDequeueEmpty(t *testing.T) {
	sim := newTestSimulator(2)
	sim.DequeueFrame()
	if got := sim.Dequeued(); got != 0 {
		t.Errorf("Dequeued on empty queue = %d, want 0", got)
	}
}

func TestSimulatorFlush(t *testing.T) {
	sim := newTestSimulator(8)
	sim.Push(5)
	sim.Flush()
	if got := sim.QueuedFrameCount(); got != 0 {
		t.Errorf("QueuedFrameCount after flush = %d, want 0", got)
	}
	if got := sim.DropCount(); got != 0 {
		t.Errorf("Flush should not count drops, got %d", got)
	}
}

func TestSimulatorProducer(t *testing.T) {
	sim := NewSimulator(SimulatorConfig{
		Dimensions:    media.Dimensions{Width: 640, Height: 480},
		FrameDuration: media.TicksFromDuration(time.Millisecond),
		Capacity:      1000,
	}, nil)

	if err := sim.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := sim.Start(context.Background()); err != ErrSimulatorRunning {
		t.Errorf("second Start error = %v, want ErrSimulatorRunning", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for sim.QueuedFrameCount() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := sim.QueuedFrameCount(); got < 3 {
		t.Errorf("producer enqueued %d frames, want at least 3", got)
	}

	if err := sim.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := sim.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestSimulatorSetFrameDurationWhileProducing(t *testing.T) {
	sim := NewSimulator(SimulatorConfig{
		Dimensions:    media.Dimensions{Width: 640, Height: 480},
		FrameDuration: media.TicksFromDuration(time.Millisecond),
		Capacity:      1000,
		Jitter:        100 * time.Microsecond,
	}, nil)
	if err := sim.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer sim.Close()

	durations := []media.Ticks{
		media.TicksFromDuration(time.Millisecond),
		media.TicksFromDuration(2 * time.Millisecond),
	}
	for i := range 200 {
		sim.SetFrameDuration(durations[i%2])
		if i%20 == 0 {
			time.Sleep(time.Millisecond)
		}
	}

	want := durations[1]
	if got := sim.FrameDuration(); got != want {
		t.Errorf("FrameDuration() = %v, want %v", got, want)
	}

	deadline := time.Now().Add(2 * time.Second)
	for sim.QueuedFrameCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := sim.QueuedFrameCount(); got < 2 {
		t.Errorf("producer enqueued %d frames after format changes, want at least 2", got)
	}
}
