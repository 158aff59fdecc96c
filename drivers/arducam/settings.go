package arducam

import (
	"strings"

	"arducam-go/x/mathx"
)

// PixelFormat is the FIFO output format.
type PixelFormat uint8

const (
	FormatJPEG   PixelFormat = 0x01
	FormatRGB565 PixelFormat = 0x02
	FormatYUV    PixelFormat = 0x03
)

// Effect is a colour effect code.
type Effect uint8

const (
	EffectNormal      Effect = 0x00
	EffectCool        Effect = 0x01
	EffectWarm        Effect = 0x02
	EffectBlackWhite  Effect = 0x04
	EffectReverse     Effect = 0x05
	EffectGreenish    Effect = 0x06
	EffectLightYellow Effect = 0x09 // 3MP only
)

// WhiteBalance is a white-balance mode code.
type WhiteBalance uint8

const (
	WBAuto   WhiteBalance = 0x00
	WBSunny  WhiteBalance = 0x01
	WBOffice WhiteBalance = 0x02
	WBCloudy WhiteBalance = 0x03
	WBHome   WhiteBalance = 0x04
)

// ParseWhiteBalance maps a mode name to its code. Unknown names select auto.
func ParseWhiteBalance(name string) WhiteBalance {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sunny":
		return WBSunny
	case "office":
		return WBOffice
	case "cloudy":
		return WBCloudy
	case "home":
		return WBHome
	default:
		return WBAuto
	}
}

// Quality is the JPEG quality code.
type Quality uint8

const (
	QualityHigh   Quality = 0x00
	QualityMedium Quality = 0x01
	QualityLow    Quality = 0x02
)

// Step is a signed tuning step (brightness, contrast, saturation, exposure).
type Step int8

// stepCode encodes a step as the bridge expects: 0 → 0x00, +n → 2n-1, -n → 2n.
func stepCode(s Step, limit Step) (byte, error) {
	if !mathx.Between(s, -limit, limit) {
		return 0, ErrInvalidSetting
	}
	switch {
	case s > 0:
		return byte(2*s - 1), nil
	case s < 0:
		return byte(-2 * s), nil
	default:
		return 0, nil
	}
}

// ISO sensitivity bounds for SetISOSensitivity.
const (
	ISOMin = 1
	ISOMax = 32
)

// field indexes the DirtyTracker. The order is the order Capture writes in.
type field uint8

const (
	fieldFormat field = iota
	fieldResolution
	fieldAutoWhiteBalance
	fieldAutoExposure
	fieldAutoGain
	fieldGain
	fieldEffect
	fieldBrightness
	fieldContrast
	fieldSaturation
	fieldExposure
	fieldWhiteBalance
	fieldSharpness
	fieldQuality
	numFields
)

type tracked struct {
	current uint16
	last    uint16
	set     bool // a value has been requested
	written bool // last holds what the hardware has
}

// DirtyTracker pairs every setting's requested value with the value last
// written to hardware. Only the capture sequencer marks entries written.
type DirtyTracker struct {
	f [numFields]tracked
}

func (t *DirtyTracker) set(f field, v uint16) {
	t.f[f].current = v
	t.f[f].set = true
}

// dirty reports whether f must be written on the next capture.
func (t *DirtyTracker) dirty(f field) bool {
	e := &t.f[f]
	return e.set && (!e.written || e.last != e.current)
}

func (t *DirtyTracker) markWritten(f field) {
	e := &t.f[f]
	e.last = e.current
	e.written = true
}

func (t *DirtyTracker) current(f field) uint16 { return t.f[f].current }

// seed records v as both requested and already on the hardware.
func (t *DirtyTracker) seed(f field, v uint16) {
	t.set(f, v)
	t.markWritten(f)
}

func (t *DirtyTracker) reset() { *t = DirtyTracker{} }

// Dirty reports how many settings are waiting to be written.
func (t *DirtyTracker) Dirty() int {
	n := 0
	for f := field(0); f < numFields; f++ {
		if t.dirty(f) {
			n++
		}
	}
	return n
}

// ---------------- Setters (record only; Capture writes) ----------------

// SetResolution selects a resolution by name from the active variant's table.
func (d *Device) SetResolution(name string) error {
	if d.variant == nil {
		return ErrUnknownSensor
	}
	code, ok := d.variant.LookupResolution(name)
	if !ok {
		return &ResolutionError{
			Variant: d.variant.name,
			Name:    name,
			Valid:   d.variant.ResolutionNames(),
		}
	}
	d.settings.set(fieldResolution, uint16(code))
	return nil
}

// Resolution returns the requested resolution code.
func (d *Device) Resolution() byte { return byte(d.settings.current(fieldResolution)) }

func (d *Device) SetPixelFormat(pf PixelFormat) error {
	switch pf {
	case FormatJPEG, FormatRGB565, FormatYUV:
	default:
		return ErrInvalidSetting
	}
	d.settings.set(fieldFormat, uint16(pf))
	return nil
}

// PixelFormat returns the requested pixel format.
func (d *Device) PixelFormat() PixelFormat { return PixelFormat(d.settings.current(fieldFormat)) }

func (d *Device) SetEffect(e Effect) error {
	switch e {
	case EffectNormal, EffectCool, EffectWarm, EffectBlackWhite, EffectReverse, EffectGreenish:
	case EffectLightYellow:
		if d.variant == nil || !d.variant.lightYellow {
			return ErrUnsupported
		}
	default:
		return ErrInvalidSetting
	}
	d.settings.set(fieldEffect, uint16(e))
	return nil
}

// SetBrightness accepts steps in [-4,+4].
func (d *Device) SetBrightness(s Step) error { return d.setStep(fieldBrightness, s, 4) }

// SetContrast accepts steps in [-3,+3].
func (d *Device) SetContrast(s Step) error { return d.setStep(fieldContrast, s, 3) }

// SetSaturation accepts steps in [-3,+3].
func (d *Device) SetSaturation(s Step) error { return d.setStep(fieldSaturation, s, 3) }

// SetExposure accepts steps in [-3,+3].
func (d *Device) SetExposure(s Step) error { return d.setStep(fieldExposure, s, 3) }

func (d *Device) setStep(f field, s, limit Step) error {
	code, err := stepCode(s, limit)
	if err != nil {
		return err
	}
	d.settings.set(f, uint16(code))
	return nil
}

func (d *Device) SetWhiteBalance(wb WhiteBalance) error {
	if wb > WBHome {
		return ErrInvalidSetting
	}
	d.settings.set(fieldWhiteBalance, uint16(wb))
	return nil
}

// SetSharpness selects sharpness level 0 (normal) to 8. 3MP only.
func (d *Device) SetSharpness(level uint8) error {
	if d.variant == nil || !d.variant.sharpness {
		return ErrUnsupported
	}
	if level > 8 {
		return ErrInvalidSetting
	}
	d.settings.set(fieldSharpness, uint16(level))
	return nil
}

func (d *Device) SetImageQuality(q Quality) error {
	if q > QualityLow {
		return ErrInvalidSetting
	}
	d.settings.set(fieldQuality, uint16(q))
	return nil
}

func (d *Device) SetAutoWhiteBalance(on bool) { d.settings.set(fieldAutoWhiteBalance, autoCode(on, autoSelWB)) }
func (d *Device) SetAutoExposure(on bool)     { d.settings.set(fieldAutoExposure, autoCode(on, autoSelExpose)) }
func (d *Device) SetAutoGain(on bool)         { d.settings.set(fieldAutoGain, autoCode(on, autoSelGain)) }

func autoCode(on bool, sel byte) uint16 {
	if on {
		return uint16(autoEnable | sel)
	}
	return uint16(sel)
}

// SetISOSensitivity records a manual gain for iso in [1,32]. Auto gain must be
// disabled (SetAutoGain(false)) for the value to take effect. On the 3MP
// sensor the value is translated through the non-linear gain table.
func (d *Device) SetISOSensitivity(iso int) error {
	if !mathx.Between(iso, ISOMin, ISOMax) {
		return ErrGainRange
	}
	if d.variant == nil {
		return ErrUnknownSensor
	}
	d.settings.set(fieldGain, d.variant.gainFor(iso))
	return nil
}

// Settings exposes the dirty tracker for inspection.
func (d *Device) Settings() *DirtyTracker { return &d.settings }
