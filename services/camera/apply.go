package camera

import (
	"strings"

	"arducam-go/drivers/arducam"
	"arducam-go/errcode"
	"arducam-go/types"
)

// applyConfig records cfg on the device. Nothing reaches the hardware until
// the next capture, and unchanged values are never rewritten. It stops at the
// first rejected field; fields before it stay recorded.
func applyConfig(d *arducam.Device, cfg types.CameraConfig) error {
	if cfg.Resolution != "" {
		if err := d.SetResolution(cfg.Resolution); err != nil {
			return wrap("resolution", err)
		}
	}
	if cfg.Format != "" {
		pf, ok := parseFormat(cfg.Format)
		if !ok {
			return &errcode.E{C: errcode.InvalidParams, Op: "format", Msg: "unknown format " + cfg.Format}
		}
		if err := d.SetPixelFormat(pf); err != nil {
			return wrap("format", err)
		}
	}
	if cfg.Effect != "" {
		e, ok := parseEffect(cfg.Effect)
		if !ok {
			return &errcode.E{C: errcode.InvalidParams, Op: "effect", Msg: "unknown effect " + cfg.Effect}
		}
		if err := d.SetEffect(e); err != nil {
			return wrap("effect", err)
		}
	}
	if cfg.WhiteBalance != "" {
		if err := d.SetWhiteBalance(arducam.ParseWhiteBalance(cfg.WhiteBalance)); err != nil {
			return wrap("white_balance", err)
		}
	}
	if cfg.Quality != "" {
		q, ok := parseQuality(cfg.Quality)
		if !ok {
			return &errcode.E{C: errcode.InvalidParams, Op: "quality", Msg: "unknown quality " + cfg.Quality}
		}
		if err := d.SetImageQuality(q); err != nil {
			return wrap("quality", err)
		}
	}

	steps := []struct {
		op  string
		set func(arducam.Step) error
		v   *int8
	}{
		{"brightness", d.SetBrightness, cfg.Brightness},
		{"contrast", d.SetContrast, cfg.Contrast},
		{"saturation", d.SetSaturation, cfg.Saturation},
		{"exposure", d.SetExposure, cfg.Exposure},
	}
	for _, st := range steps {
		if st.v == nil {
			continue
		}
		if err := st.set(arducam.Step(*st.v)); err != nil {
			return wrap(st.op, err)
		}
	}

	if cfg.Sharpness != nil {
		if err := d.SetSharpness(*cfg.Sharpness); err != nil {
			return wrap("sharpness", err)
		}
	}
	if cfg.AutoWhiteBalance != nil {
		d.SetAutoWhiteBalance(*cfg.AutoWhiteBalance)
	}
	if cfg.AutoExposure != nil {
		d.SetAutoExposure(*cfg.AutoExposure)
	}
	if cfg.AutoGain != nil {
		d.SetAutoGain(*cfg.AutoGain)
	}
	if cfg.ISO != 0 {
		if err := d.SetISOSensitivity(cfg.ISO); err != nil {
			return wrap("iso", err)
		}
	}
	return nil
}

// mergeConfig copies every field src provides onto dst.
func mergeConfig(dst *types.CameraConfig, src types.CameraConfig) {
	mergeString(&dst.Resolution, src.Resolution)
	mergeString(&dst.Format, src.Format)
	mergeString(&dst.Effect, src.Effect)
	mergeString(&dst.WhiteBalance, src.WhiteBalance)
	mergeString(&dst.Quality, src.Quality)
	mergePtr(&dst.Brightness, src.Brightness)
	mergePtr(&dst.Contrast, src.Contrast)
	mergePtr(&dst.Saturation, src.Saturation)
	mergePtr(&dst.Exposure, src.Exposure)
	mergePtr(&dst.Sharpness, src.Sharpness)
	mergePtr(&dst.AutoWhiteBalance, src.AutoWhiteBalance)
	mergePtr(&dst.AutoExposure, src.AutoExposure)
	mergePtr(&dst.AutoGain, src.AutoGain)
	mergePtr(&dst.IntervalMs, src.IntervalMs)
	if src.ISO != 0 {
		dst.ISO = src.ISO
	}
}

func mergeString(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

func mergePtr[T any](dst **T, src *T) {
	if src != nil {
		v := *src
		*dst = &v
	}
}

func wrap(op string, err error) error {
	return &errcode.E{C: errcode.MapDriverErr(err), Op: op, Msg: err.Error(), Err: err}
}

func parseFormat(name string) (arducam.PixelFormat, bool) {
	switch strings.ToLower(name) {
	case "jpeg", "jpg":
		return arducam.FormatJPEG, true
	case "rgb565", "rgb":
		return arducam.FormatRGB565, true
	case "yuv":
		return arducam.FormatYUV, true
	}
	return 0, false
}

var effects = map[string]arducam.Effect{
	"normal":       arducam.EffectNormal,
	"cool":         arducam.EffectCool,
	"warm":         arducam.EffectWarm,
	"black_white":  arducam.EffectBlackWhite,
	"reverse":      arducam.EffectReverse,
	"greenish":     arducam.EffectGreenish,
	"light_yellow": arducam.EffectLightYellow,
}

func parseEffect(name string) (arducam.Effect, bool) {
	e, ok := effects[strings.ToLower(name)]
	return e, ok
}

func parseQuality(name string) (arducam.Quality, bool) {
	switch strings.ToLower(name) {
	case "high":
		return arducam.QualityHigh, true
	case "medium":
		return arducam.QualityMedium, true
	case "low":
		return arducam.QualityLow, true
	}
	return 0, false
}
