package led

import (
	"log/slog"
	"os"
	"strings"
)

const deviceTreeModelPath = "/proc/device-tree/model"

// boards maps a device-tree model substring to its LED devices.
var boards = []struct {
	model string
	leds  map[string]string
}{
	{"NanoPC-T6", map[string]string{"status": "sys_led", "activity": "usr_led"}},
	{"Orange Pi", map[string]string{"status": "green_led", "activity": "blue_led"}},
	{"Raspberry Pi", map[string]string{"status": "ACT"}},
}

// New detects the board and returns its LED controller. Unknown boards get
// a no-op controller.
func New(logger *slog.Logger) Controller {
	return newForBoard(detectBoard(deviceTreeModelPath), sysfsLEDPath, logger)
}

func newForBoard(model, root string, logger *slog.Logger) Controller {
	if logger == nil {
		logger = slog.Default()
	}
	for _, b := range boards {
		if strings.Contains(model, b.model) {
			logger.Info("Using sysfs LED controller", "board_model", model)
			return newSysfs(root, b.leds)
		}
	}
	logger.Info("No LED support detected, using no-op controller", "board_model", model)
	return newNoop(logger)
}

// detectBoard reads the device tree model, which is NUL-terminated.
func detectBoard(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "unknown"
	}
	return strings.TrimRight(string(data), "\x00")
}
