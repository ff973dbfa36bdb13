// Package led drives a board status LED from the aggregate state of the
// playout sessions.
package led

// Pattern is how an LED is lit.
type Pattern string

// Supported patterns.
const (
	PatternOff       Pattern = "off"
	PatternSolid     Pattern = "solid"
	PatternBlink     Pattern = "blink"
	PatternHeartbeat Pattern = "heartbeat"
)

// Controller abstracts LED hardware across boards. Implementations map the
// logical LED names ("status", "activity") to board-specific devices.
type Controller interface {
	Set(name string, pattern Pattern) error
	// Available returns the logical LED names this board supports, sorted.
	Available() []string
}
