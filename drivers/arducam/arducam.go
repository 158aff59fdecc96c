// Package arducam provides a TinyGo driver for SPI camera modules built around
// a capture-controller bridge chip (3MP OV3640-class and 5MP OV5642-class
// sensors). It exposes a two-phase capture API:
//
//	s, err := d.Capture(ctx)        // push dirty settings, trigger, wait, read length
//	n, err := d.Drain(ctx, s, w)    // stream the JPEG payload into w
//
// Settings (resolution, format, tuning, gain) are recorded on the Device and
// written to hardware only inside Capture, and only when they changed since the
// last write.
//
// The Device is not safe for concurrent use. Exactly one register transaction
// or burst transfer may be outstanding on the bus; callers sharing a Device
// must serialise access themselves.
package arducam

import (
	"time"

	"tinygo.org/x/drivers"
)

// PinOutput drives the select line. The bridge is selected while the line is low.
type PinOutput func(level bool)

// Config controls timing and observation. All fields are optional.
type Config struct {
	// WriteSettle is the pause after every register write. Default 1 ms.
	WriteSettle time.Duration
	// IdlePoll is the interval between sensor-state reads in WaitUntilIdle. Default 2 ms.
	IdlePoll time.Duration
	// DonePoll is the interval between capture-done reads. Default 200 ms.
	DonePoll time.Duration
	// IdleTimeout bounds WaitUntilIdle. Zero waits forever.
	IdleTimeout time.Duration
	// CaptureTimeout bounds the capture-done poll. Zero waits forever.
	CaptureTimeout time.Duration
	// SettleWindow is the post-power-up window in which the 5MP sensor rejects
	// captures while auto white balance converges. Default 500 ms.
	SettleWindow time.Duration
	// StartupDelay is the 3MP startup routine pause run by Initialize. Default 500 ms.
	StartupDelay time.Duration
	// WaitSettle makes Initialize sleep through the settle window on the 5MP
	// sensor so the first Capture is never premature.
	WaitSettle bool
	// Debug enables println tracing.
	Debug bool

	// Progress, if set, is called after every chunk drained.
	Progress func(done, total int)
	// OnAnomaly, if set, is called when the FIFO length exceeds MaxFifoLength.
	OnAnomaly func(length int)

	// Now and Sleep override the clock. Nil uses the time package.
	Now   func() time.Time
	Sleep func(time.Duration)
}

func (c *Config) applyDefaults() {
	if c.WriteSettle <= 0 {
		c.WriteSettle = 1 * time.Millisecond
	}
	if c.IdlePoll <= 0 {
		c.IdlePoll = 2 * time.Millisecond
	}
	if c.DonePoll <= 0 {
		c.DonePoll = 200 * time.Millisecond
	}
	if c.SettleWindow <= 0 {
		c.SettleWindow = 500 * time.Millisecond
	}
	if c.StartupDelay <= 0 {
		c.StartupDelay = 500 * time.Millisecond
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Sleep == nil {
		c.Sleep = time.Sleep
	}
}

// Device wraps an SPI connection to a camera module.
type Device struct {
	bus     Bus
	cfg     Config
	variant *Variant

	settings    DirtyTracker
	initialized bool
	initAt      time.Time
	captures    uint32

	chunk [ChunkSize]byte // reused by Drain
}

// New creates a Device. The SPI bus must already be configured (mode 0) and
// the select line driven high. New does not touch the hardware; call Initialize.
func New(spi drivers.SPI, cs PinOutput, cfg Config) *Device {
	cfg.applyDefaults()
	d := &Device{cfg: cfg}
	d.bus = Bus{spi: spi, cs: cs, cfg: &d.cfg}
	return d
}

// Bus returns the register bus used by the Device.
func (d *Device) Bus() *Bus { return &d.bus }

// Variant returns the sensor variant resolved by the last Probe, or nil.
func (d *Device) Variant() *Variant { return d.variant }

func (d *Device) debug(msg string) {
	if d.cfg.Debug {
		println("[arducam]", msg)
	}
}
