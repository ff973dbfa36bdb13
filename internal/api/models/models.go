// Package models defines the request and response bodies of the HTTP API.
package models

import "time"

// Health check models
type HealthData struct {
	Status   string `json:"status" example:"ok" doc:"Service status"`
	Message  string `json:"message" example:"API is healthy" doc:"Status message"`
	Sessions int    `json:"sessions" example:"2" doc:"Number of registered sessions"`
	Failed   int    `json:"failed" example:"0" doc:"Sessions halted on a configuration error"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"dev" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit SHA"`
	BuildDate string `json:"build_date" example:"2024-12-15 14:30" doc:"Build timestamp"`
	BuildID   string `json:"build_id" example:"a1b2c3d4" doc:"Unique build identifier"`
	GoVersion string `json:"go_version" example:"go1.24.0" doc:"Go compiler version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Compiler used"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"Platform"`
}

type VersionResponse struct {
	Body VersionData
}

// DropsData holds drop counters for a session.
type DropsData struct {
	PacerDrops      int64 `json:"pacer_drops" example:"3" doc:"Frames the pacer trimmed or failed to obtain"`
	DeviceDrops     int64 `json:"device_drops" example:"0" doc:"Frames the device dropped since the session started"`
	DeviceDropCount int64 `json:"device_drop_count" example:"12" doc:"Last raw drop counter reported by the device"`
	BaselineCount   int64 `json:"baseline_device_drop_count" example:"12" doc:"Device drop counter when the session started; not counted as drops"`
}

// SessionData describes one playout session.
type SessionData struct {
	SessionID         string    `json:"session_id" example:"cam0" doc:"Session identifier"`
	State             string    `json:"state" example:"playing" enum:"buffering,playing,failed,closed" doc:"Lifecycle state"`
	Format            string    `json:"format" example:"yuv8" doc:"Pixel format"`
	Width             int       `json:"width" example:"1920" doc:"Frame width"`
	Height            int       `json:"height" example:"1080" doc:"Frame height"`
	Progressive       bool      `json:"progressive" example:"false" doc:"Progressive or interlaced source"`
	FrameRate         float64   `json:"frame_rate" example:"29.97" doc:"Frames per second reported by the source"`
	QueueDepth        int       `json:"queue_depth" example:"3" doc:"Frames buffered at the last tick"`
	TargetQueueLength int       `json:"target_queue_length" example:"3" doc:"Frames buffered before playback starts"`
	MaxQueueLength    int       `json:"max_queue_length" example:"6" doc:"Depth above which frames are trimmed"`
	Prerolled         bool      `json:"prerolled" example:"true" doc:"Whether playback has started"`
	Timecode          string    `json:"timecode" example:"00:01:02:15" doc:"Timecode of the oldest buffered frame"`
	Drops             DropsData `json:"drops" doc:"Drop counters"`
	ReadyTicks        uint64    `json:"ready_ticks" example:"1800" doc:"Ticks that presented a frame"`
	NotReadyTicks     uint64    `json:"not_ready_ticks" example:"4" doc:"Ticks that presented nothing"`
	PrerollResets     uint64    `json:"preroll_resets" example:"1" doc:"Times the session starved"`
	Error             string    `json:"error,omitempty" doc:"Error that halted the session"`
}

// SessionListData is the body of the session list.
type SessionListData struct {
	Sessions []SessionData `json:"sessions" doc:"Registered sessions"`
	Count    int           `json:"count" example:"2" doc:"Number of sessions"`
}

type SessionListResponse struct {
	Body SessionListData
}

// SessionRequest selects a session by ID.
type SessionRequest struct {
	SessionID string `path:"session_id" maxLength:"64" example:"cam0" doc:"Session identifier"`
}

type SessionResponse struct {
	Body SessionData
}

// FormatData describes a supported pixel format.
type FormatData struct {
	Name          string `json:"name" example:"yuv8" doc:"Configuration name"`
	FourCC        string `json:"fourcc" example:"UYVY" doc:"FourCC of the wire format"`
	Description   string `json:"description" example:"8-bit 4:2:2 YUV" doc:"Human readable description"`
	BytesPerTexel int    `json:"bytes_per_texel" example:"4" doc:"Bytes per source texel"`
	SourceWidth   int    `json:"source_width" example:"960" doc:"Source buffer width for a 1920x1080 frame"`
	SourceHeight  int    `json:"source_height" example:"1080" doc:"Source buffer height for a 1920x1080 frame"`
}

type FormatListResponse struct {
	Body FormatListData
}

// PacingData holds the live pacing settings.
type PacingData struct {
	TargetQueueLength int `json:"target_queue_length" minimum:"1" maximum:"6" example:"3" doc:"Frames buffered before playback starts"`
}

type PacingRequest struct {
	Body PacingData
}

// PacingResultData reports an applied pacing change.
type PacingResultData struct {
	TargetQueueLength int       `json:"target_queue_length" example:"3" doc:"New target queue length"`
	Sessions          int       `json:"sessions" example:"2" doc:"Sessions updated"`
	UpdatedAt         time.Time `json:"updated_at" doc:"When the change was applied"`
}

type PacingResponse struct {
	Body PacingResultData
}

type FormatListData struct {
	Formats []FormatData `json:"formats" doc:"Supported pixel formats"`
}
