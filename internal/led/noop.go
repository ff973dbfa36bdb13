package led

import "log/slog"

// noop is used on boards without controllable LEDs.
type noop struct {
	logger *slog.Logger
}

func newNoop(logger *slog.Logger) *noop {
	return &noop{logger: logger}
}

func (n *noop) Set(name string, pattern Pattern) error {
	n.logger.Debug("LED control not available (no-op)", "led", name, "pattern", pattern)
	return nil
}

func (n *noop) Available() []string {
	return []string{}
}
