package events

// Event type constants for kelindar/event.
const (
	TypeFrameDropped uint32 = iota + 1
	TypeDropReport
	TypePrerollChanged
	TypeFormatError
	TypeSessionState
	TypePacingReloaded
	TypePacerMetrics
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// Publisher is the publishing half of the bus. Components that only emit
// events depend on this instead of *Bus.
type Publisher interface {
	Publish(ev Event)
}

// Drop origins.
const (
	OriginPacer  = "pacer"
	OriginDevice = "device"
)

// FrameDroppedEvent is published once per lost frame.
type FrameDroppedEvent struct {
	SessionID string `json:"session_id" example:"cam0" doc:"Session identifier"`
	Origin    string `json:"origin" example:"device" doc:"Where the frame was lost: pacer or device"`
	Total     int64  `json:"total" example:"12" doc:"Running total for this origin"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for FrameDroppedEvent.
func (e FrameDroppedEvent) Type() uint32 { return TypeFrameDropped }

// DropReportEvent summarizes drops since the previous report.
type DropReportEvent struct {
	SessionID   string `json:"session_id" example:"cam0" doc:"Session identifier"`
	PacerDrops  int64  `json:"pacer_drops" example:"2" doc:"Frames discarded or missed by the pacer since the last report"`
	DeviceDrops int64  `json:"device_drops" example:"0" doc:"Frames dropped by the device since the last report"`
	Interval    string `json:"interval" example:"10s" doc:"Report interval"`
	Timestamp   string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DropReportEvent.
func (e DropReportEvent) Type() uint32 { return TypeDropReport }

// PrerollChangedEvent is published when a session enters or leaves preroll.
type PrerollChangedEvent struct {
	SessionID  string `json:"session_id" example:"cam0" doc:"Session identifier"`
	Prerolled  bool   `json:"prerolled" example:"true" doc:"Whether playback has started"`
	QueueDepth int    `json:"queue_depth" example:"4" doc:"Frames buffered when the change happened"`
	Timestamp  string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for PrerollChangedEvent.
func (e PrerollChangedEvent) Type() uint32 { return TypePrerollChanged }

// FormatErrorEvent is published when a session halts on an unsupported pixel format.
type FormatErrorEvent struct {
	SessionID string `json:"session_id" example:"cam0" doc:"Session identifier"`
	Format    string `json:"format" example:"pixelformat(9)" doc:"Offending pixel format"`
	Error     string `json:"error" doc:"Detailed error description"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for FormatErrorEvent.
func (e FormatErrorEvent) Type() uint32 { return TypeFormatError }

// SessionStateEvent tracks the session lifecycle.
type SessionStateEvent struct {
	SessionID string `json:"session_id" example:"cam0" doc:"Session identifier"`
	State     string `json:"state" example:"running" doc:"New session state"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SessionStateEvent.
func (e SessionStateEvent) Type() uint32 { return TypeSessionState }

// PacingReloadedEvent is published after pacing settings were hot-reloaded.
type PacingReloadedEvent struct {
	TargetQueueLength int    `json:"target_queue_length" example:"3" doc:"New target queue length"`
	Sessions          int    `json:"sessions" example:"2" doc:"Number of sessions updated"`
	Timestamp         string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for PacingReloadedEvent.
func (e PacingReloadedEvent) Type() uint32 { return TypePacingReloaded }

// PacerMetricsEvent is a periodic snapshot of one session's pacer metrics.
type PacerMetricsEvent struct {
	SessionID     string `json:"session_id" example:"cam0" doc:"Session identifier"`
	QueueDepth    int    `json:"queue_depth" example:"3" doc:"Frames buffered at the last tick"`
	Prerolled     bool   `json:"prerolled" example:"true" doc:"Whether playback has started"`
	PacerDrops    string `json:"pacer_drops" example:"2" doc:"Total frames lost by the pacer"`
	DeviceDrops   string `json:"device_drops" example:"0" doc:"Total frames lost by the device"`
	PrerollResets string `json:"preroll_resets" example:"1" doc:"Times the session starved"`
}

// Type returns the event type identifier for PacerMetricsEvent.
func (e PacerMetricsEvent) Type() uint32 { return TypePacerMetrics }
