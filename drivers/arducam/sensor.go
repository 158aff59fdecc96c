package arducam

import (
	"context"
	"strings"
)

// VariantKind identifies the sensor behind the bridge.
type VariantKind uint8

const (
	VariantUnknown VariantKind = iota
	Variant3MP                 // OV3640 class: non-linear gain table, sharpness
	Variant5MP                 // OV5642 class: settle window, 2592x1944
)

// Resolution is a named capture-resolution register code.
type Resolution struct {
	Name string
	Code byte
}

// Resolution register codes.
const (
	Res320x240   = 0x01
	Res640x480   = 0x02
	Res1280x720  = 0x04
	Res1600x1200 = 0x06
	Res1920x1080 = 0x07
	Res2048x1536 = 0x08 // 3MP only
	Res2592x1944 = 0x09 // 5MP only
	Res96x96     = 0x0A
	Res128x128   = 0x0B
	Res320x320   = 0x0C
)

// Variant is the immutable table set bound to a sensor at probe time.
type Variant struct {
	kind        VariantKind
	name        string
	resolutions []Resolution
	gain        []uint16 // nil: ISO value is written raw
	settle      bool     // captures rejected inside the settle window
	sharpness   bool
	lightYellow bool
}

func (v *Variant) Kind() VariantKind { return v.kind }
func (v *Variant) Name() string      { return v.name }

// Resolutions returns a copy of the valid resolution table, in register order.
func (v *Variant) Resolutions() []Resolution {
	return append([]Resolution(nil), v.resolutions...)
}

// ResolutionNames lists the accepted names in table order.
func (v *Variant) ResolutionNames() []string {
	out := make([]string, len(v.resolutions))
	for i, r := range v.resolutions {
		out[i] = r.Name
	}
	return out
}

// LookupResolution finds a resolution by case-insensitive name.
func (v *Variant) LookupResolution(name string) (byte, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, r := range v.resolutions {
		if r.Name == key {
			return r.Code, true
		}
	}
	return 0, false
}

// RequiresSettle reports whether captures are rejected during the settle window.
func (v *Variant) RequiresSettle() bool { return v.settle }

// gainFor maps an ISO value in [1,32] to the 10-bit manual gain code.
func (v *Variant) gainFor(iso int) uint16 {
	if v.gain == nil {
		return uint16(iso)
	}
	return v.gain[iso-1]
}

// gainTable3MP follows the OV3640 analog-gain response: moderate steps up to
// 0x3F, a jump into 0x72..0x7E, another jump into the fine 0xF0..0xFF range,
// and finally the bit-8 doubling step.
var gainTable3MP = []uint16{
	0x000, 0x010, 0x018, 0x030, 0x034, 0x038, 0x03B, 0x03F,
	0x072, 0x074, 0x076, 0x078, 0x07A, 0x07C, 0x07E, 0x0F0,
	0x0F1, 0x0F2, 0x0F3, 0x0F4, 0x0F5, 0x0F6, 0x0F7, 0x0F8,
	0x0F9, 0x0FA, 0x0FB, 0x0FC, 0x0FD, 0x0FE, 0x0FF, 0x1F0,
}

var variant3MP = &Variant{
	kind: Variant3MP,
	name: "3MP",
	resolutions: []Resolution{
		{"320x240", Res320x240},
		{"640x480", Res640x480},
		{"1280x720", Res1280x720},
		{"1600x1200", Res1600x1200},
		{"1920x1080", Res1920x1080},
		{"2048x1536", Res2048x1536},
		{"96x96", Res96x96},
		{"128x128", Res128x128},
		{"320x320", Res320x320},
	},
	gain:        gainTable3MP,
	sharpness:   true,
	lightYellow: true,
}

var variant5MP = &Variant{
	kind: Variant5MP,
	name: "5MP",
	resolutions: []Resolution{
		{"320x240", Res320x240},
		{"640x480", Res640x480},
		{"1280x720", Res1280x720},
		{"1600x1200", Res1600x1200},
		{"1920x1080", Res1920x1080},
		{"2592x1944", Res2592x1944},
		{"96x96", Res96x96},
		{"128x128", Res128x128},
		{"320x320", Res320x320},
	},
	settle: true,
}

// VariantFor resolves a sensor-ID register value. Unmatched IDs return nil.
func VariantFor(id byte) *Variant {
	switch id {
	case sensorID3MP1, sensorID3MP2:
		return variant3MP
	case sensorID5MP1, sensorID5MP2:
		return variant5MP
	default:
		return nil
	}
}

// Probe reads the sensor-ID register and binds the matching variant. An
// unrecognised ID leaves the variant unset and returns ErrUnknownSensor.
func (d *Device) Probe(ctx context.Context) (*Variant, error) {
	id, err := d.bus.ReadRegister(regSensorID)
	if err != nil {
		return nil, err
	}
	if err := d.bus.WaitUntilIdle(ctx); err != nil {
		return nil, err
	}
	d.variant = VariantFor(id)
	if d.variant == nil {
		return nil, ErrUnknownSensor
	}
	d.debug("sensor " + d.variant.name)
	return d.variant, nil
}
