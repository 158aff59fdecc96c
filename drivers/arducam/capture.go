package arducam

import (
	"context"
	"time"
)

// State is the lifecycle of one capture session.
type State uint8

const (
	StateIdle State = iota
	StateConfiguring
	StateTriggered
	StatePollingDone
	StateLengthKnown
	StateStreaming
	StateComplete
	StateAbandoned
)

var stateNames = [...]string{"idle", "configuring", "triggered", "polling_done", "length_known", "streaming", "complete", "abandoned"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Session is one capture: created by Capture, consumed by Drain.
type Session struct {
	Seq       uint32
	Total     int // FIFO length reported by the bridge
	Remaining int // bytes not yet clocked out; may go negative on the last chunk
	State     State
	Anomaly   bool // Total exceeded MaxFifoLength
	EndMarker bool // Drain stopped on 0xFF 0xD9 rather than FIFO exhaustion
}

// Initialize resets the module, identifies the sensor and seeds the default
// configuration (JPEG, 640x480) for a forced write on the first capture.
func (d *Device) Initialize(ctx context.Context) error {
	d.initialized = false
	if err := d.bus.WriteRegister(regSensorReset, sensorResetOn); err != nil {
		return err
	}
	if err := d.bus.WaitUntilIdle(ctx); err != nil {
		return err
	}
	if _, err := d.Probe(ctx); err != nil {
		return err
	}
	if err := d.writeAndWait(ctx, regDebugAddress, debugDeviceAddr); err != nil {
		return err
	}
	if err := d.writeAndWait(ctx, regEffect, byte(EffectNormal)); err != nil {
		return err
	}

	d.settings.reset()
	d.settings.seed(fieldEffect, uint16(EffectNormal))
	d.settings.set(fieldFormat, uint16(FormatJPEG))
	d.settings.set(fieldResolution, Res640x480)
	d.initAt = d.cfg.Now()
	d.initialized = true

	switch {
	case d.variant.kind == Variant3MP:
		d.debug("3MP startup routine")
		d.cfg.Sleep(d.cfg.StartupDelay)
		if err := d.bus.WaitUntilIdle(ctx); err != nil {
			return err
		}
	case d.variant.RequiresSettle() && d.cfg.WaitSettle:
		d.cfg.Sleep(d.cfg.SettleWindow)
	}
	return nil
}

// Ready reports whether Capture would pass the settle-window guard now.
func (d *Device) Ready() bool {
	if !d.initialized || d.variant == nil {
		return false
	}
	return !d.variant.RequiresSettle() || d.cfg.Now().Sub(d.initAt) >= d.cfg.SettleWindow
}

// Capture writes dirty settings, triggers a capture, waits for completion and
// reads the FIFO length. A length above MaxFifoLength is reported through
// OnAnomaly and Session.Anomaly but does not fail the capture.
func (d *Device) Capture(ctx context.Context) (*Session, error) {
	if !d.initialized {
		return nil, ErrNotInitialized
	}
	if d.variant == nil {
		return nil, ErrUnknownSensor
	}
	if !d.Ready() {
		return nil, ErrPrematureCapture
	}

	d.captures++
	s := &Session{Seq: d.captures, State: StateConfiguring}

	for f := field(0); f < numFields; f++ {
		if !d.settings.dirty(f) {
			continue
		}
		if err := d.writeField(ctx, f); err != nil {
			s.State = StateAbandoned
			return s, err
		}
		d.settings.markWritten(f)
	}

	if err := d.writeAndWait(ctx, regFifoControl, fifoClearFlag); err != nil {
		s.State = StateAbandoned
		return s, err
	}
	if err := d.bus.WriteRegister(regFifoControl, fifoStart); err != nil {
		s.State = StateAbandoned
		return s, err
	}
	s.State = StateTriggered
	d.debug("capture started")

	s.State = StatePollingDone
	if err := d.waitCaptureDone(ctx); err != nil {
		s.State = StateAbandoned
		return s, err
	}
	if err := d.bus.WaitUntilIdle(ctx); err != nil {
		s.State = StateAbandoned
		return s, err
	}

	n, err := d.readFifoLength()
	if err != nil {
		s.State = StateAbandoned
		return s, err
	}
	s.Total = n
	s.Remaining = n
	s.State = StateLengthKnown
	if n > MaxFifoLength {
		s.Anomaly = true
		println("[arducam] fifo length too long:", n)
		if d.cfg.OnAnomaly != nil {
			d.cfg.OnAnomaly(n)
		}
	}
	return s, nil
}

// writeField pushes one tracked setting to its register(s).
func (d *Device) writeField(ctx context.Context, f field) error {
	v := d.settings.current(f)
	switch f {
	case fieldGain:
		if err := d.writeAndWait(ctx, regGainHigh, byte(v>>8)&0x03); err != nil {
			return err
		}
		return d.writeAndWait(ctx, regGainLow, byte(v))
	case fieldAutoWhiteBalance, fieldAutoExposure, fieldAutoGain:
		return d.writeAndWait(ctx, regAutoControl, byte(v))
	}
	return d.writeAndWait(ctx, fieldRegs[f], byte(v))
}

var fieldRegs = [numFields]byte{
	fieldFormat:       regFormat,
	fieldResolution:   regResolution,
	fieldEffect:       regEffect,
	fieldBrightness:   regBrightness,
	fieldContrast:     regContrast,
	fieldSaturation:   regSaturation,
	fieldExposure:     regExposure,
	fieldWhiteBalance: regWhiteBalance,
	fieldSharpness:    regSharpness,
	fieldQuality:      regImageQuality,
}

func (d *Device) writeAndWait(ctx context.Context, reg, v byte) error {
	if err := d.bus.WriteRegister(reg, v); err != nil {
		return err
	}
	return d.bus.WaitUntilIdle(ctx)
}

func (d *Device) waitCaptureDone(ctx context.Context) error {
	var deadline time.Time
	if d.cfg.CaptureTimeout > 0 {
		deadline = d.cfg.Now().Add(d.cfg.CaptureTimeout)
	}
	for {
		st, err := d.bus.ReadRegister(regTrigger)
		if err != nil {
			return err
		}
		if st&capDoneMask != 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !deadline.IsZero() && d.cfg.Now().After(deadline) {
			return ErrTimeout
		}
		d.cfg.Sleep(d.cfg.DonePoll)
	}
}

// readFifoLength assembles the 24-bit little-endian FIFO length.
func (d *Device) readFifoLength() (int, error) {
	var b [3]byte
	for i, reg := range [3]byte{regFifoSize1, regFifoSize2, regFifoSize3} {
		v, err := d.bus.ReadRegister(reg)
		if err != nil {
			return 0, err
		}
		b[i] = v
	}
	return fifoLength(b[0], b[1], b[2]), nil
}

func fifoLength(b1, b2, b3 byte) int {
	return (int(b3)<<16 | int(b2)<<8 | int(b1)) & 0xFFFFFF
}
