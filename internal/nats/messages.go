package nats

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Subject prefixes for NATS topics.
const (
	SubjectSessionsPrefix = "playout.sessions"
	SubjectControlPacing  = "playout.control.pacing"
)

// Per-session subject suffixes.
const (
	KindState   = "state"
	KindPreroll = "preroll"
	KindDrops   = "drops"
	KindError   = "error"
	KindMetrics = "metrics"
)

// SubjectSession returns the subject for one kind of session event.
func SubjectSession(sessionID, kind string) string {
	return fmt.Sprintf("%s.%s.%s", SubjectSessionsPrefix, subjectToken(sessionID), kind)
}

// subjectToken makes an ID safe to use as a single subject token.
func subjectToken(id string) string {
	if id == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, id)
}

// PacingRequest changes pacing on every session.
type PacingRequest struct {
	TargetQueueLength int `json:"target_queue_length"`
}

// PacingReply answers a PacingRequest.
type PacingReply struct {
	TargetQueueLength int    `json:"target_queue_length,omitempty"`
	Sessions          int    `json:"sessions"`
	Error             string `json:"error,omitempty"`
}

// UnmarshalPacingRequest deserializes a PacingRequest from JSON.
func UnmarshalPacingRequest(data []byte) (PacingRequest, error) {
	var m PacingRequest
	err := json.Unmarshal(data, &m)
	return m, err
}
