// Package metrics provides Prometheus metrics for playout sessions.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "playout",
		Subsystem: "pacer",
		Name:      "queue_depth",
		Help:      "Frames buffered by the capture device at the last tick",
	}, []string{"session_id"})

	targetQueueLength = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "playout",
		Subsystem: "pacer",
		Name:      "target_queue_length",
		Help:      "Configured playout cushion in frames",
	}, []string{"session_id"})

	prerolled = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "playout",
		Subsystem: "pacer",
		Name:      "prerolled",
		Help:      "1 while the session is presenting, 0 while buffering",
	}, []string{"session_id"})

	ticksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "playout",
		Subsystem: "pacer",
		Name:      "ticks_total",
		Help:      "Pacer ticks by result",
	}, []string{"session_id", "result"})

	droppedFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "playout",
		Subsystem: "pacer",
		Name:      "dropped_frames_total",
		Help:      "Frames lost, by origin (pacer or device)",
	}, []string{"session_id", "origin"})

	prerollResets = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "playout",
		Subsystem: "pacer",
		Name:      "preroll_resets_total",
		Help:      "Times the session starved and went back to preroll",
	}, []string{"session_id"})

	// Local cache for API access.
	sessionCache   = make(map[string]*SessionMetrics)
	sessionCacheMu sync.RWMutex
)

// Tick results.
const (
	ResultReady    = "ready"
	ResultNotReady = "not_ready"
	ResultError    = "error"
)

// Drop origins, matching the event bus labels.
const (
	OriginPacer  = "pacer"
	OriginDevice = "device"
)

// SessionMetrics holds current metric values for a session.
type SessionMetrics struct {
	QueueDepth        int    `json:"queue_depth" doc:"Frames buffered at the last tick"`
	TargetQueueLength int    `json:"target_queue_length" doc:"Configured playout cushion"`
	Prerolled         bool   `json:"prerolled" doc:"Whether playback has started"`
	ReadyTicks        uint64 `json:"ready_ticks" doc:"Ticks that produced a frame"`
	NotReadyTicks     uint64 `json:"not_ready_ticks" doc:"Ticks that produced nothing"`
	ErrorTicks        uint64 `json:"error_ticks" doc:"Ticks that failed"`
	PacerDrops        uint64 `json:"pacer_drops" doc:"Frames lost by the pacer"`
	DeviceDrops       uint64 `json:"device_drops" doc:"Frames lost by the device"`
	PrerollResets     uint64 `json:"preroll_resets" doc:"Times the session starved"`
}

// ObserveTick records the outcome of one tick.
func ObserveTick(sessionID, result string, depth int) {
	ticksTotal.WithLabelValues(sessionID, result).Inc()
	queueDepth.WithLabelValues(sessionID).Set(float64(depth))
	updateCache(sessionID, func(m *SessionMetrics) {
		m.QueueDepth = depth
		switch result {
		case ResultReady:
			m.ReadyTicks++
		case ResultError:
			m.ErrorTicks++
		default:
			m.NotReadyTicks++
		}
	})
}

// SetTargetQueueLength records the configured target for a session.
func SetTargetQueueLength(sessionID string, n int) {
	targetQueueLength.WithLabelValues(sessionID).Set(float64(n))
	updateCache(sessionID, func(m *SessionMetrics) { m.TargetQueueLength = n })
}

// SetPrerolled records whether a session is presenting.
func SetPrerolled(sessionID string, v bool) {
	val := 0.0
	if v {
		val = 1
	}
	prerolled.WithLabelValues(sessionID).Set(val)
	updateCache(sessionID, func(m *SessionMetrics) { m.Prerolled = v })
}

// AddDroppedFrames counts lost frames for an origin.
func AddDroppedFrames(sessionID, origin string, n int64) {
	if n <= 0 {
		return
	}
	droppedFrames.WithLabelValues(sessionID, origin).Add(float64(n))
	updateCache(sessionID, func(m *SessionMetrics) {
		if origin == OriginDevice {
			m.DeviceDrops += uint64(n)
		} else {
			m.PacerDrops += uint64(n)
		}
	})
}

// IncPrerollResets counts a starvation.
func IncPrerollResets(sessionID string) {
	prerollResets.WithLabelValues(sessionID).Inc()
	updateCache(sessionID, func(m *SessionMetrics) { m.PrerollResets++ })
}

// DeleteSessionMetrics removes all metrics for a session.
func DeleteSessionMetrics(sessionID string) {
	queueDepth.DeleteLabelValues(sessionID)
	targetQueueLength.DeleteLabelValues(sessionID)
	prerolled.DeleteLabelValues(sessionID)
	prerollResets.DeleteLabelValues(sessionID)
	ticksTotal.DeletePartialMatch(prometheus.Labels{"session_id": sessionID})
	droppedFrames.DeletePartialMatch(prometheus.Labels{"session_id": sessionID})

	sessionCacheMu.Lock()
	delete(sessionCache, sessionID)
	sessionCacheMu.Unlock()
}

// GetSessionMetrics returns current metric values for a session.
func GetSessionMetrics(sessionID string) *SessionMetrics {
	sessionCacheMu.RLock()
	defer sessionCacheMu.RUnlock()
	if m, ok := sessionCache[sessionID]; ok {
		dup := *m
		return &dup
	}
	return nil
}

// GetAllSessionMetrics returns metrics for all active sessions.
func GetAllSessionMetrics() map[string]*SessionMetrics {
	sessionCacheMu.RLock()
	defer sessionCacheMu.RUnlock()
	result := make(map[string]*SessionMetrics, len(sessionCache))
	for id, m := range sessionCache {
		dup := *m
		result[id] = &dup
	}
	return result
}

func updateCache(sessionID string, update func(*SessionMetrics)) {
	sessionCacheMu.Lock()
	defer sessionCacheMu.Unlock()
	m, ok := sessionCache[sessionID]
	if !ok {
		m = &SessionMetrics{}
		sessionCache[sessionID] = m
	}
	update(m)
}
