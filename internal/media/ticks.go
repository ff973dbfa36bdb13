package media

import (
	"fmt"
	"time"
)

// TicksPerSecond is the number of ticks in one second.
const TicksPerSecond Ticks = 10_000_000

// Ticks is a duration or point in time measured in 100ns units.
type Ticks int64

// TicksFromDuration converts a time.Duration to ticks, truncating
// anything below 100ns.
func TicksFromDuration(d time.Duration) Ticks {
	return Ticks(d / 100)
}

// FrameDurationFromRate returns the duration of one frame for a num/den frame
// rate, e.g. 30000/1001 for 29.97 fps.
func FrameDurationFromRate(num, den int) (Ticks, error) {
	if num <= 0 || den <= 0 {
		return 0, fmt.Errorf("invalid frame rate %d/%d", num, den)
	}
	return Ticks(int64(TicksPerSecond) * int64(den) / int64(num)), nil
}

// Duration converts ticks to a time.Duration.
func (t Ticks) Duration() time.Duration {
	return time.Duration(t) * 100
}

// FramesPerSecond returns the frame rate for a frame duration of t.
func (t Ticks) FramesPerSecond() float64 {
	if t <= 0 {
		return 0
	}
	return float64(TicksPerSecond) / float64(t)
}

func (t Ticks) String() string {
	return t.Duration().String()
}
