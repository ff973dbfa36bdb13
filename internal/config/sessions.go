package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/smazurov/playout/internal/format"
	"github.com/smazurov/playout/internal/media"
	"github.com/smazurov/playout/internal/pacer"
)

// Duration is a time.Duration that decodes from TOML strings like "10s".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// PacingConfig is the hot-reloadable [pacing] table.
type PacingConfig struct {
	TargetQueueLength int      `toml:"target_queue_length" json:"target_queue_length"`
	ReportInterval    Duration `toml:"report_interval" json:"report_interval"`
	// MasterClock makes all sessions share one clock instead of each
	// measuring wall time.
	MasterClock bool `toml:"master_clock" json:"master_clock"`
}

// SessionConfig describes one [[sessions]] entry.
type SessionConfig struct {
	ID          string  `toml:"id" json:"id"`
	Format      string  `toml:"format" json:"format"`
	Width       int     `toml:"width" json:"width"`
	Height      int     `toml:"height" json:"height"`
	FPS         float64 `toml:"fps" json:"fps"`
	Progressive bool    `toml:"progressive" json:"progressive"`

	// Simulated device settings
	Capacity  int      `toml:"capacity,omitempty" json:"capacity,omitempty"`
	Jitter    Duration `toml:"jitter,omitempty" json:"jitter,omitempty"`
	RateScale float64  `toml:"rate_scale,omitempty" json:"rate_scale,omitempty"`
}

// PixelFormat parses the configured format name.
func (s SessionConfig) PixelFormat() (format.PixelFormat, error) {
	return format.Parse(s.Format)
}

// Dimensions returns the configured frame size.
func (s SessionConfig) Dimensions() media.Dimensions {
	return media.Dimensions{Width: s.Width, Height: s.Height}
}

// FrameDuration converts FPS to ticks. Common NTSC rates like 29.97 map to
// their exact 1001-based durations.
func (s SessionConfig) FrameDuration() (media.Ticks, error) {
	if s.FPS <= 0 {
		return 0, fmt.Errorf("fps must be positive, got %v", s.FPS)
	}
	for _, base := range []int{24, 30, 60} {
		ntsc := float64(base) * 1000 / 1001
		if s.FPS > ntsc-0.005 && s.FPS < ntsc+0.005 {
			return media.FrameDurationFromRate(base*1000, 1001)
		}
	}
	return media.Ticks(math.Round(float64(media.TicksPerSecond) / s.FPS)), nil
}

// File is the parsed playout.toml.
type File struct {
	Pacing   PacingConfig    `toml:"pacing" json:"pacing"`
	Sessions []SessionConfig `toml:"sessions" json:"sessions"`
}

// DefaultPacing returns the pacing settings used when the file omits them.
func DefaultPacing() PacingConfig {
	return PacingConfig{
		TargetQueueLength: pacer.DefaultTargetQueueLength,
		ReportInterval:    Duration(10 * time.Second),
	}
}

// LoadFile reads and validates session definitions and pacing settings.
func LoadFile(path string) (File, error) {
	f := File{Pacing: DefaultPacing()}

	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to read config: %w", err)
	}
	if err := toml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := f.Validate(); err != nil {
		return File{}, err
	}
	return f, nil
}

// LoadPacing reads only the [pacing] table. It is the loader used for hot
// reload.
func LoadPacing(path string) (PacingConfig, error) {
	f, err := LoadFile(path)
	if err != nil {
		return PacingConfig{}, err
	}
	return f.Pacing, nil
}

// Validate checks the whole file and reports every problem found.
func (f File) Validate() error {
	var errs []error
	if err := f.Pacing.Validate(); err != nil {
		errs = append(errs, err)
	}

	seen := make(map[string]bool, len(f.Sessions))
	for i, s := range f.Sessions {
		if s.ID == "" {
			errs = append(errs, fmt.Errorf("sessions[%d]: id is required", i))
			continue
		}
		if seen[s.ID] {
			errs = append(errs, fmt.Errorf("sessions[%d]: duplicate id %q", i, s.ID))
		}
		seen[s.ID] = true
		if err := s.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", s.ID, err))
		}
	}
	return errors.Join(errs...)
}

// Validate checks the pacing settings.
func (p PacingConfig) Validate() error {
	if p.TargetQueueLength < pacer.MinTargetQueueLength || p.TargetQueueLength > pacer.MaxTargetQueueLength {
		return fmt.Errorf("pacing.target_queue_length %d: %w", p.TargetQueueLength, pacer.ErrInvalidTargetQueueLength)
	}
	if p.ReportInterval < 0 {
		return fmt.Errorf("pacing.report_interval must not be negative")
	}
	return nil
}

// Validate checks one session definition.
func (s SessionConfig) Validate() error {
	if _, err := s.PixelFormat(); err != nil {
		return err
	}
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("invalid dimensions %dx%d", s.Width, s.Height)
	}
	if _, err := s.FrameDuration(); err != nil {
		return err
	}
	if s.Capacity < 0 {
		return fmt.Errorf("capacity must not be negative")
	}
	return nil
}
