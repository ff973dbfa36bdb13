// Package nats mirrors playout events onto NATS and accepts pacing
// control requests from it.
//
// # Subject Hierarchy
//
//	playout.sessions.{session_id}.state     # SessionStateEvent
//	playout.sessions.{session_id}.preroll   # PrerollChangedEvent
//	playout.sessions.{session_id}.drops     # FrameDroppedEvent, DropReportEvent
//	playout.sessions.{session_id}.error     # FormatErrorEvent
//	playout.sessions.{session_id}.metrics   # PacerMetricsEvent
//	playout.control.pacing                  # PacingRequest (request/reply)
//
// Payloads are the JSON encodings of the event types. Publishing is
// fire-and-forget core NATS; the bridge keeps running while disconnected
// and the client library buffers until it reconnects.
//
// An embedded Server is available for single-box deployments and tests.
//
// # Debugging with nats CLI
//
// Monitor everything a box publishes:
//
//	nats sub "playout.sessions.>"
//
// Change the target queue length of every session:
//
//	nats req playout.control.pacing '{"target_queue_length": 4}'
package nats
