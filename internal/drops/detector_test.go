package drops

import (
	"sync"
	"testing"

	"github.com/smazurov/playout/internal/events"
	"github.com/smazurov/playout/internal/metrics"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.FrameDroppedEvent
}

func (p *recordingPublisher) Publish(ev events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := ev.(events.FrameDroppedEvent); ok {
		p.events = append(p.events, e)
	}
}

func (p *recordingPublisher) count(origin string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Origin == origin {
			n++
		}
	}
	return n
}

func TestWarnIncrementsPacerCounter(t *testing.T) {
	pub := &recordingPublisher{}
	d := NewDetector("cam0", nil, pub)

	d.Warn()
	d.Warn()

	if got := d.Snapshot().PacerWarnings; got != 2 {
		t.Errorf("PacerWarnings = %d, want 2", got)
	}
	if got := pub.count(events.OriginPacer); got != 2 {
		t.Errorf("pacer events = %d, want 2", got)
	}
}

func TestUpdateEmitsPerUnitIncrease(t *testing.T) {
	pub := &recordingPublisher{}
	d := NewDetector("cam0", nil, pub)

	d.Update(0)
	d.Update(3)

	if got := pub.count(events.OriginDevice); got != 3 {
		t.Errorf("device events = %d, want 3", got)
	}
	snap := d.Snapshot()
	if snap.DeviceDrops != 3 {
		t.Errorf("DeviceDrops = %d, want 3", snap.DeviceDrops)
	}
	if snap.DeviceDropCount != 3 {
		t.Errorf("DeviceDropCount = %d, want 3", snap.DeviceDropCount)
	}

	// Unchanged counter emits nothing
	d.Update(3)
	if got := pub.count(events.OriginDevice); got != 3 {
		t.Errorf("device events after no change = %d, want 3", got)
	}
}

func TestUpdateFirstObservationIsBaseline(t *testing.T) {
	pub := &recordingPublisher{}
	d := NewDetector("cam0", nil, pub)

	// Drops that happened before the session started are not reported
	d.Update(42)
	if got := pub.count(events.OriginDevice); got != 0 {
		t.Errorf("device events = %d, want 0", got)
	}
	d.Update(43)
	rec := d.Snapshot()
	if rec.DeviceDrops != 1 {
		t.Errorf("DeviceDrops = %d, want 1", rec.DeviceDrops)
	}
	if rec.BaselineDeviceDropCount != 42 {
		t.Errorf("BaselineDeviceDropCount = %d, want 42", rec.BaselineDeviceDropCount)
	}
	if rec.DeviceDropCount != 43 {
		t.Errorf("DeviceDropCount = %d, want 43", rec.DeviceDropCount)
	}
}

func TestUpdateToleratesCounterReset(t *testing.T) {
	d := NewDetector("cam0", nil, nil)

	d.Update(0)
	d.Update(10)
	d.Update(2) // device reconnected
	if got := d.Snapshot().DeviceDrops; got != 10 {
		t.Errorf("DeviceDrops after reset = %d, want 10", got)
	}
	if got := d.Snapshot().DeviceDropCount; got != 2 {
		t.Errorf("DeviceDropCount after reset = %d, want 2", got)
	}

	d.Update(5)
	if got := d.Snapshot().DeviceDrops; got != 13 {
		t.Errorf("DeviceDrops = %d, want 13", got)
	}
}

func TestReportReturnsDeltas(t *testing.T) {
	d := NewDetector("cam0", nil, nil)

	d.Update(0)
	d.Warn()
	d.Update(2)

	pacer, device := d.Report()
	if pacer != 1 || device != 2 {
		t.Errorf("Report() = (%d, %d), want (1, 2)", pacer, device)
	}

	pacer, device = d.Report()
	if pacer != 0 || device != 0 {
		t.Errorf("second Report() = (%d, %d), want (0, 0)", pacer, device)
	}

	d.Warn()
	pacer, _ = d.Report()
	if pacer != 1 {
		t.Errorf("Report() pacer = %d, want 1", pacer)
	}

	// Totals are never decremented by reporting
	if got := d.Snapshot().PacerWarnings; got != 2 {
		t.Errorf("PacerWarnings = %d, want 2", got)
	}
}

func TestDropsFeedSessionMetrics(t *testing.T) {
	metrics.DeleteSessionMetrics("drops-metrics")
	defer metrics.DeleteSessionMetrics("drops-metrics")

	d := NewDetector("drops-metrics", nil, nil)
	d.Warn()
	d.Update(10)
	d.Update(13)

	m := metrics.GetSessionMetrics("drops-metrics")
	if m == nil {
		t.Fatal("expected metrics for session")
	}
	if m.PacerDrops != 1 {
		t.Errorf("PacerDrops = %d, want 1", m.PacerDrops)
	}
	if m.DeviceDrops != 3 {
		t.Errorf("DeviceDrops = %d, want 3", m.DeviceDrops)
	}
}
