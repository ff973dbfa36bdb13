// Package drops aggregates frame-loss signals from the capture device and
// from the pacer into one diagnostic stream. It never influences pacing.
package drops

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/smazurov/playout/internal/events"
	"github.com/smazurov/playout/internal/metrics"
)

// Record is a snapshot of the drop counters.
type Record struct {
	// DeviceDropCount is the last device counter observed by Update.
	DeviceDropCount int64 `json:"device_drop_count"`
	// BaselineDeviceDropCount is the device counter at the first Update.
	// Drops it includes happened before the session and are not counted.
	BaselineDeviceDropCount int64 `json:"baseline_device_drop_count"`
	// DeviceDrops is the number of device drops seen since the session
	// started, accumulated across counter resets.
	DeviceDrops int64 `json:"device_drops"`
	// PacerWarnings counts frames the pacer discarded or failed to obtain.
	PacerWarnings int64 `json:"pacer_warnings"`
}

// Detector counts drops for one session.
//
// Warn and Update are called from the pacing goroutine only. Snapshot and
// Report may be called from any goroutine.
type Detector struct {
	sessionID string
	logger    *slog.Logger
	publisher events.Publisher

	lastDeviceCount atomic.Int64
	baselineCount   atomic.Int64
	deviceDrops     atomic.Int64
	pacerWarnings   atomic.Int64

	reportedDevice atomic.Int64
	reportedPacer  atomic.Int64
	baselineSet    bool
}

// NewDetector creates a detector for the given session. publisher may be nil.
func NewDetector(sessionID string, logger *slog.Logger, publisher events.Publisher) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		sessionID: sessionID,
		logger:    logger.With("session_id", sessionID),
		publisher: publisher,
	}
}

// Warn records a pacer-induced drop.
func (d *Detector) Warn() {
	total := d.pacerWarnings.Add(1)
	d.logger.Debug("Pacer dropped frame", "pacer_drops", total)
	d.publish(events.OriginPacer, total)
}

// Update compares the device's drop counter against the previous value and
// emits one diagnostic per dropped frame. The first observation is
// logged and kept as the baseline. A counter that went backwards is
// taken as the new baseline, since devices reset it on reconnect.
func (d *Detector) Update(deviceDropCount int64) {
	if !d.baselineSet {
		d.baselineSet = true
		d.baselineCount.Store(deviceDropCount)
		d.lastDeviceCount.Store(deviceDropCount)
		d.logger.Info("Device drop counter baseline", "device_drop_count", deviceDropCount)
		return
	}

	last := d.lastDeviceCount.Swap(deviceDropCount)
	if deviceDropCount < last {
		d.logger.Info("Device drop counter reset", "previous", last, "current", deviceDropCount)
		return
	}

	for range deviceDropCount - last {
		total := d.deviceDrops.Add(1)
		d.logger.Warn("Device dropped frame", "device_drops", total)
		d.publish(events.OriginDevice, total)
	}
}

// Snapshot returns the current counters.
func (d *Detector) Snapshot() Record {
	return Record{
		DeviceDropCount:         d.lastDeviceCount.Load(),
		BaselineDeviceDropCount: d.baselineCount.Load(),
		DeviceDrops:             d.deviceDrops.Load(),
		PacerWarnings:           d.pacerWarnings.Load(),
	}
}

// Report returns the number of pacer and device drops since the previous
// call to Report.
func (d *Detector) Report() (pacer, device int64) {
	p := d.pacerWarnings.Load()
	dev := d.deviceDrops.Load()
	pacer = p - d.reportedPacer.Swap(p)
	device = dev - d.reportedDevice.Swap(dev)
	return pacer, device
}

func (d *Detector) publish(origin string, total int64) {
	metrics.AddDroppedFrames(d.sessionID, origin, 1)
	if d.publisher == nil {
		return
	}
	d.publisher.Publish(events.FrameDroppedEvent{
		SessionID: d.sessionID,
		Origin:    origin,
		Total:     total,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}
