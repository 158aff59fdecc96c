package config

import "arducam-go/types"

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: device ID (same value placed in ctx with WithDevice)
// Val: per-service configuration published on "config/<service>"
// -----------------------------------------------------------------------------

func ptr[T any](v T) *T { return &v }

var embeddedConfigs = map[string]DeviceConfig{
	// Pico with a 5MP module: full-size stills on request only.
	"pico-5mp": {
		"camera": types.CameraConfig{
			Resolution:       "2592x1944",
			Format:           "jpeg",
			Quality:          "high",
			AutoWhiteBalance: ptr(true),
			AutoExposure:     ptr(true),
			AutoGain:         ptr(true),
		},
	},
	// Pico with a 3MP module: 640x480 every 30 s.
	"pico-3mp": {
		"camera": types.CameraConfig{
			Resolution:   "640x480",
			Format:       "jpeg",
			WhiteBalance: "auto",
			Sharpness:    ptr(uint8(0)),
			AutoGain:     ptr(true),
			IntervalMs:   ptr(uint32(30_000)),
		},
	},
}
