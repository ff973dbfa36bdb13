package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/smazurov/playout/internal/events"
)

// eventTypes maps SSE event names to payloads for the OpenAPI document.
var eventTypes = map[string]any{
	"frame-dropped":   events.FrameDroppedEvent{},
	"drop-report":     events.DropReportEvent{},
	"preroll-changed": events.PrerollChangedEvent{},
	"format-error":    events.FormatErrorEvent{},
	"session-state":   events.SessionStateEvent{},
	"pacing-reloaded": events.PacingReloadedEvent{},
	"pacer-metrics":   events.PacerMetricsEvent{},
}

func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time stream of drops, preroll changes, session state and pacer metrics",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, eventTypes, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 64)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.FrameDroppedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.DropReportEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.PrerollChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.FormatErrorEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.SessionStateEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.PacingReloadedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.PacerMetricsEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		// Current state first so clients need not wait for a transition
		now := time.Now().UTC().Format(time.RFC3339)
		for _, st := range s.registry.Stats() {
			if err := send.Data(events.SessionStateEvent{
				SessionID: st.ID,
				State:     string(st.State),
				Timestamp: now,
			}); err != nil {
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-eventCh:
				if err := send.Data(ev); err != nil {
					return
				}
			}
		}
	})
}
