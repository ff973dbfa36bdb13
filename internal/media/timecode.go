package media

import "fmt"

// Timecode is a device timestamp together with the frame duration needed to
// turn it into hours/minutes/seconds/frames. It is only used for diagnostics,
// never for pacing.
type Timecode struct {
	Ticks         Ticks
	FrameDuration Ticks
}

// NewTimecode builds a Timecode from a device tick value.
func NewTimecode(ticks, frameDuration Ticks) Timecode {
	return Timecode{Ticks: ticks, FrameDuration: frameDuration}
}

// Frames returns the number of whole frames elapsed at this timecode.
func (tc Timecode) Frames() int64 {
	if tc.FrameDuration <= 0 {
		return 0
	}
	return int64(tc.Ticks / tc.FrameDuration)
}

// Components splits the timecode into hours, minutes, seconds and the frame
// index within the current second.
func (tc Timecode) Components() (hours, minutes, seconds, frames int) {
	total := tc.Ticks
	if total < 0 {
		total = 0
	}
	secs := int64(total / TicksPerSecond)
	hours = int(secs / 3600)
	minutes = int(secs/60) % 60
	seconds = int(secs % 60)
	if tc.FrameDuration > 0 {
		frames = int((total % TicksPerSecond) / tc.FrameDuration)
	}
	return hours, minutes, seconds, frames
}

// String formats the timecode as HH:MM:SS:FF.
func (tc Timecode) String() string {
	h, m, s, f := tc.Components()
	return fmt.Sprintf("%02d:%02d:%02d:%02d", h, m, s, f)
}
