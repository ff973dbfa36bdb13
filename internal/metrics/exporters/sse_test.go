package exporters

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/playout/internal/events"
	"github.com/smazurov/playout/internal/metrics"
)

type mockEventBus struct {
	mu        sync.Mutex
	events    []events.Event
	published chan struct{}
}

func newMockEventBus() *mockEventBus {
	return &mockEventBus{
		published: make(chan struct{}, 100),
	}
}

func (m *mockEventBus) Publish(ev events.Event) {
	m.mu.Lock()
	m.events = append(m.events, ev)
	m.mu.Unlock()
	select {
	case m.published <- struct{}{}:
	default:
	}
}

func (m *mockEventBus) getEvents() []events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]events.Event, len(m.events))
	copy(result, m.events)
	return result
}

func TestSSEExporterPublishesMetrics(t *testing.T) {
	sessionID := "sse-test-session"
	metrics.DeleteSessionMetrics(sessionID)
	defer metrics.DeleteSessionMetrics(sessionID)

	metrics.ObserveTick(sessionID, metrics.ResultReady, 4)
	metrics.SetPrerolled(sessionID, true)
	metrics.AddDroppedFrames(sessionID, metrics.OriginPacer, 5)
	metrics.AddDroppedFrames(sessionID, metrics.OriginDevice, 2)

	mock := newMockEventBus()
	exporter := NewSSEExporter(mock)
	exporter.interval = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	exporter.Start(ctx)

	select {
	case <-mock.published:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timeout waiting for metrics publish")
	}

	cancel()
	exporter.Stop()

	var found bool
	for _, ev := range mock.getEvents() {
		pme, ok := ev.(events.PacerMetricsEvent)
		if !ok || pme.SessionID != sessionID {
			continue
		}
		found = true
		if pme.QueueDepth != 4 {
			t.Errorf("QueueDepth = %d, want 4", pme.QueueDepth)
		}
		if !pme.Prerolled {
			t.Error("Prerolled = false, want true")
		}
		if pme.PacerDrops != "5" {
			t.Errorf("PacerDrops = %q, want \"5\"", pme.PacerDrops)
		}
		if pme.DeviceDrops != "2" {
			t.Errorf("DeviceDrops = %q, want \"2\"", pme.DeviceDrops)
		}
		break
	}
	if !found {
		t.Error("expected PacerMetricsEvent for test session")
	}
}

func TestSSEExporterNoMetrics(t *testing.T) {
	sessionID := "sse-no-metrics-test"
	metrics.DeleteSessionMetrics(sessionID)

	mock := newMockEventBus()
	exporter := NewSSEExporter(mock)
	exporter.interval = 20 * time.Millisecond

	exporter.Start(t.Context())
	time.Sleep(50 * time.Millisecond)
	exporter.Stop()

	for _, ev := range mock.getEvents() {
		if pme, ok := ev.(events.PacerMetricsEvent); ok && pme.SessionID == sessionID {
			t.Error("expected no events for deleted session")
		}
	}
}

func TestSSEExporterStopIdempotent(t *testing.T) {
	sessionID := "sse-idempotent-test"
	metrics.SetTargetQueueLength(sessionID, 3)
	defer metrics.DeleteSessionMetrics(sessionID)

	mock := newMockEventBus()
	exporter := NewSSEExporter(mock)
	exporter.interval = 10 * time.Millisecond

	exporter.Start(context.Background())
	time.Sleep(30 * time.Millisecond)

	exporter.Stop()
	exporter.Stop()
	exporter.Stop()

	countAfterStop := len(mock.getEvents())
	time.Sleep(30 * time.Millisecond)
	if got := len(mock.getEvents()); got != countAfterStop {
		t.Errorf("events published after stop: got %d, want %d", got, countAfterStop)
	}
}

func TestSSEExporterStopBeforeStart(t *testing.T) {
	sessionID := "sse-stop-before-start-test"
	metrics.SetTargetQueueLength(sessionID, 2)
	defer metrics.DeleteSessionMetrics(sessionID)

	mock := newMockEventBus()
	exporter := NewSSEExporter(mock)
	exporter.interval = 10 * time.Millisecond

	// Stop before start should not panic
	exporter.Stop()

	exporter.Start(t.Context())
	time.Sleep(30 * time.Millisecond)
	exporter.Stop()

	if len(mock.getEvents()) == 0 {
		t.Error("expected events after Start(), got none")
	}
}
