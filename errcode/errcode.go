package errcode

import (
	"context"
	"errors"

	"arducam-go/drivers/arducam"
)

// Code is a stable, bus-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK            Code = "ok"
	Busy          Code = "busy"
	Unsupported   Code = "unsupported"
	InvalidParams Code = "invalid_params"
	NotReady      Code = "not_ready"

	InvalidResolution Code = "invalid_resolution"
	UnknownSensor     Code = "unknown_sensor"
	GainRange         Code = "gain_range"
	Timeout           Code = "timeout"
	FifoLength        Code = "fifo_length"
	PrematureCapture  Code = "premature_capture"
	IOFailure         Code = "io_failure"
	Cancelled         Code = "cancelled"

	Error Code = "error" // generic fallback
)

// Optional wrapper when we want to keep context and a cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	if e.Msg != "" {
		return string(e.C) + ": " + e.Msg
	}
	return string(e.C)
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	type coder interface{ Code() Code }
	var x coder
	if errors.As(err, &x) {
		return x.Code()
	}
	return MapDriverErr(err)
}

// MapDriverErr maps camera driver errors to a Code.
func MapDriverErr(err error) Code {
	switch {
	case err == nil:
		return OK
	case errors.Is(err, arducam.ErrInvalidResolution):
		return InvalidResolution
	case errors.Is(err, arducam.ErrUnknownSensor):
		return UnknownSensor
	case errors.Is(err, arducam.ErrGainRange):
		return GainRange
	case errors.Is(err, arducam.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return Timeout
	case errors.Is(err, arducam.ErrFifoLength):
		return FifoLength
	case errors.Is(err, arducam.ErrPrematureCapture):
		return PrematureCapture
	case errors.Is(err, arducam.ErrIO):
		return IOFailure
	case errors.Is(err, arducam.ErrNotInitialized), errors.Is(err, arducam.ErrNoCapture):
		return NotReady
	case errors.Is(err, arducam.ErrInvalidSetting):
		return InvalidParams
	case errors.Is(err, arducam.ErrUnsupported):
		return Unsupported
	case errors.Is(err, context.Canceled):
		return Cancelled
	}
	return Error
}
