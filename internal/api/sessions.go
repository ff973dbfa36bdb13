package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/playout/internal/api/models"
	"github.com/smazurov/playout/internal/events"
	"github.com/smazurov/playout/internal/metrics"
	"github.com/smazurov/playout/internal/session"
)

func (s *Server) registerSessionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-sessions",
		Method:      http.MethodGet,
		Path:        "/api/sessions",
		Summary:     "List Sessions",
		Description: "Get pacing state and drop counters for every session",
		Tags:        []string{"sessions"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*models.SessionListResponse, error) {
		stats := s.registry.Stats()
		list := make([]models.SessionData, len(stats))
		for i, st := range stats {
			list[i] = toSessionData(st)
		}
		return &models.SessionListResponse{
			Body: models.SessionListData{Sessions: list, Count: len(list)},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-session",
		Method:      http.MethodGet,
		Path:        "/api/sessions/{session_id}",
		Summary:     "Get Session",
		Description: "Get pacing state and drop counters for one session",
		Tags:        []string{"sessions"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(_ context.Context, input *models.SessionRequest) (*models.SessionResponse, error) {
		sess, err := s.registry.Get(input.SessionID)
		if err != nil {
			return nil, mapSessionError(err)
		}
		return &models.SessionResponse{Body: toSessionData(sess.Stats())}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "update-pacing",
		Method:      http.MethodPut,
		Path:        "/api/pacing",
		Summary:     "Update Pacing",
		Description: "Change the target queue length of every session",
		Tags:        []string{"sessions"},
		Errors:      []int{400, 401, 422},
		Security:    withAuth(),
	}, func(_ context.Context, input *models.PacingRequest) (*models.PacingResponse, error) {
		n, err := s.registry.SetTargetQueueLength(input.Body.TargetQueueLength)
		if err != nil {
			return nil, mapSessionError(err)
		}
		now := time.Now()
		s.eventBus.Publish(events.PacingReloadedEvent{
			TargetQueueLength: input.Body.TargetQueueLength,
			Sessions:          n,
			Timestamp:         now.Format(time.RFC3339),
		})
		return &models.PacingResponse{Body: models.PacingResultData{
			TargetQueueLength: input.Body.TargetQueueLength,
			Sessions:          n,
			UpdatedAt:         now,
		}}, nil
	})
}

func toSessionData(st session.Stats) models.SessionData {
	data := models.SessionData{
		SessionID:         st.ID,
		State:             string(st.State),
		Format:            st.Format,
		Width:             st.Dimensions.Width,
		Height:            st.Dimensions.Height,
		Progressive:       st.Progressive,
		FrameRate:         st.FrameRate,
		QueueDepth:        st.QueueDepth,
		TargetQueueLength: st.TargetQueueLength,
		MaxQueueLength:    st.MaxQueueLength,
		Prerolled:         st.Prerolled,
		Timecode:          st.Timecode,
		Drops: models.DropsData{
			PacerDrops:      st.Drops.PacerWarnings,
			DeviceDrops:     st.Drops.DeviceDrops,
			DeviceDropCount: st.Drops.DeviceDropCount,
			BaselineCount:   st.Drops.BaselineDeviceDropCount,
		},
		Error: st.Error,
	}
	if m := metrics.GetSessionMetrics(st.ID); m != nil {
		data.ReadyTicks = m.ReadyTicks
		data.NotReadyTicks = m.NotReadyTicks
		data.PrerollResets = m.PrerollResets
	}
	return data
}

// mapSessionError maps domain errors to HTTP errors.
func mapSessionError(err error) error {
	switch {
	case session.HasCode(err, session.ErrCodeNotFound):
		return huma.Error404NotFound(err.Error())
	case session.HasCode(err, session.ErrCodeExists):
		return huma.Error409Conflict(err.Error())
	case session.HasCode(err, session.ErrCodeInvalidParam):
		return huma.Error400BadRequest(err.Error())
	default:
		return huma.Error500InternalServerError("internal server error", err)
	}
}
