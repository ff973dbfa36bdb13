package led

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const sysfsLEDPath = "/sys/class/leds"

// sysfs drives LEDs through the Linux LED class interface.
type sysfs struct {
	root string
	leds map[string]string // logical name -> sysfs device
}

func newSysfs(root string, leds map[string]string) *sysfs {
	return &sysfs{root: root, leds: leds}
}

// Set writes the trigger, then the brightness. Blink uses the timer trigger
// with its default 500ms period.
func (s *sysfs) Set(name string, pattern Pattern) error {
	device, ok := s.leds[name]
	if !ok {
		return fmt.Errorf("LED %q not supported on this board", name)
	}
	ledPath := filepath.Join(s.root, device)
	if _, err := os.Stat(ledPath); err != nil {
		return fmt.Errorf("LED %q not found at %s: %w", name, ledPath, err)
	}

	trigger, brightness := "none", "1"
	switch pattern {
	case PatternOff:
		brightness = "0"
	case PatternSolid:
	case PatternBlink:
		trigger = "timer"
	case PatternHeartbeat:
		trigger = "heartbeat"
	default:
		return fmt.Errorf("unknown LED pattern %q", pattern)
	}

	if err := os.WriteFile(filepath.Join(ledPath, "trigger"), []byte(trigger), 0o644); err != nil {
		return fmt.Errorf("failed to set LED trigger: %w", err)
	}
	if err := os.WriteFile(filepath.Join(ledPath, "brightness"), []byte(brightness), 0o644); err != nil {
		return fmt.Errorf("failed to set LED brightness: %w", err)
	}
	return nil
}

func (s *sysfs) Available() []string {
	names := make([]string, 0, len(s.leds))
	for name := range s.leds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
