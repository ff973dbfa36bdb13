// Package capture defines the contract between the pacer and a capture
// device, plus a simulated device used by the CLI and tests.
package capture

import "github.com/smazurov/playout/internal/media"

// Source is the pacer's view of a capture device. Frame storage and the
// transfer of pixel data stay with the device; the pacer only observes queue
// depth and metadata and retires frames through DequeueFrame.
type Source interface {
	// QueuedFrameCount returns the number of frames currently buffered.
	QueuedFrameCount() int
	// DequeueFrame retires the oldest buffered frame.
	DequeueFrame()
	// FrameDuration is the nominal interval between frames of the current format.
	FrameDuration() media.Ticks
	// FrameDimensions is the raw captured frame size.
	FrameDimensions() media.Dimensions
	IsProgressive() bool
	// DropCount is the device's monotonic dropped-frame counter. It may reset
	// when the device reconnects.
	DropCount() int64
	// CurrentTimecode is the timecode of the frame at the head of the queue.
	CurrentTimecode() media.Ticks
}
