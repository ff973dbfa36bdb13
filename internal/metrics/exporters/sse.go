package exporters

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/smazurov/playout/internal/events"
	"github.com/smazurov/playout/internal/metrics"
)

// SSEExporter periodically publishes pacer metrics snapshots on the event bus.
type SSEExporter struct {
	eventBus events.Publisher
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewSSEExporter creates a new SSE exporter.
func NewSSEExporter(eventBus events.Publisher) *SSEExporter {
	return &SSEExporter{
		eventBus: eventBus,
		interval: 1 * time.Second,
	}
}

// Start begins the SSE export loop.
func (s *SSEExporter) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.run()
}

// Stop stops the SSE exporter and waits for the goroutine to finish.
func (s *SSEExporter) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *SSEExporter) run() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.publishMetrics()
		}
	}
}

func (s *SSEExporter) publishMetrics() {
	for sessionID, m := range metrics.GetAllSessionMetrics() {
		s.eventBus.Publish(events.PacerMetricsEvent{
			SessionID:     sessionID,
			QueueDepth:    m.QueueDepth,
			Prerolled:     m.Prerolled,
			PacerDrops:    strconv.FormatUint(m.PacerDrops, 10),
			DeviceDrops:   strconv.FormatUint(m.DeviceDrops, 10),
			PrerollResets: strconv.FormatUint(m.PrerollResets, 10),
		})
	}
}
