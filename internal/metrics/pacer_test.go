package metrics

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSessionMetricsCache(t *testing.T) {
	sessionID := "test-session-1"
	DeleteSessionMetrics(sessionID)

	if m := GetSessionMetrics(sessionID); m != nil {
		t.Error("expected nil for non-existent session")
	}

	ObserveTick(sessionID, ResultNotReady, 2)
	ObserveTick(sessionID, ResultReady, 4)
	ObserveTick(sessionID, ResultError, 4)
	SetTargetQueueLength(sessionID, 3)
	SetPrerolled(sessionID, true)
	AddDroppedFrames(sessionID, OriginPacer, 2)
	AddDroppedFrames(sessionID, OriginDevice, 1)
	AddDroppedFrames(sessionID, OriginDevice, 0)
	IncPrerollResets(sessionID)

	m := GetSessionMetrics(sessionID)
	if m == nil {
		t.Fatal("expected non-nil metrics")
	}
	want := SessionMetrics{
		QueueDepth:        4,
		TargetQueueLength: 3,
		Prerolled:         true,
		ReadyTicks:        1,
		NotReadyTicks:     1,
		ErrorTicks:        1,
		PacerDrops:        2,
		DeviceDrops:       1,
		PrerollResets:     1,
	}
	if *m != want {
		t.Errorf("metrics = %+v, want %+v", *m, want)
	}

	// Returned copy is independent
	m.QueueDepth = 999
	if GetSessionMetrics(sessionID).QueueDepth != 4 {
		t.Error("cache was modified through returned copy")
	}

	DeleteSessionMetrics(sessionID)
	if GetSessionMetrics(sessionID) != nil {
		t.Error("expected nil after delete")
	}
}

func TestPrometheusValues(t *testing.T) {
	sessionID := "test-session-prom"
	DeleteSessionMetrics(sessionID)
	defer DeleteSessionMetrics(sessionID)

	AddDroppedFrames(sessionID, OriginPacer, 3)
	ObserveTick(sessionID, ResultReady, 5)
	SetPrerolled(sessionID, true)

	if got := testutil.ToFloat64(droppedFrames.WithLabelValues(sessionID, OriginPacer)); got != 3 {
		t.Errorf("dropped_frames_total{pacer} = %v, want 3", got)
	}
	if got := testutil.ToFloat64(queueDepth.WithLabelValues(sessionID)); got != 5 {
		t.Errorf("queue_depth = %v, want 5", got)
	}
	if got := testutil.ToFloat64(prerolled.WithLabelValues(sessionID)); got != 1 {
		t.Errorf("prerolled = %v, want 1", got)
	}

	SetPrerolled(sessionID, false)
	if got := testutil.ToFloat64(prerolled.WithLabelValues(sessionID)); got != 0 {
		t.Errorf("prerolled = %v, want 0", got)
	}
}

func TestGetAllSessionMetrics(t *testing.T) {
	DeleteSessionMetrics("session-a")
	DeleteSessionMetrics("session-b")
	defer DeleteSessionMetrics("session-a")
	defer DeleteSessionMetrics("session-b")

	SetTargetQueueLength("session-a", 2)
	SetTargetQueueLength("session-b", 4)

	all := GetAllSessionMetrics()
	if all["session-a"] == nil || all["session-a"].TargetQueueLength != 2 {
		t.Errorf("session-a = %+v", all["session-a"])
	}
	if all["session-b"] == nil || all["session-b"].TargetQueueLength != 4 {
		t.Errorf("session-b = %+v", all["session-b"])
	}
}

func TestConcurrentUpdates(t *testing.T) {
	sessionID := "test-session-concurrent"
	DeleteSessionMetrics(sessionID)
	defer DeleteSessionMetrics(sessionID)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				ObserveTick(sessionID, ResultReady, 1)
			}
		}()
	}
	wg.Wait()

	if got := GetSessionMetrics(sessionID).ReadyTicks; got != 1000 {
		t.Errorf("ReadyTicks = %d, want 1000", got)
	}
}
