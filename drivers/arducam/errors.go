package arducam

import (
	"errors"
	"strings"

	"arducam-go/x/conv"
)

// Errors returned by the driver (TinyGo-safe; no fmt).
var (
	ErrInvalidResolution = errors.New("arducam: invalid resolution")
	ErrUnknownSensor     = errors.New("arducam: unknown sensor variant")
	ErrGainRange         = errors.New("arducam: iso sensitivity out of range [1,32]")
	ErrTimeout           = errors.New("arducam: timeout")
	ErrFifoLength        = errors.New("arducam: fifo length exceeds 5MB") // anomaly code, never returned
	ErrPrematureCapture  = errors.New("arducam: capture before settle window elapsed")
	ErrIO                = errors.New("arducam: bus failure")

	ErrNotInitialized = errors.New("arducam: not initialized")
	ErrInvalidSetting = errors.New("arducam: invalid setting")
	ErrUnsupported    = errors.New("arducam: not supported by sensor variant")
	ErrNoCapture      = errors.New("arducam: no capture ready to drain")
)

// ResolutionError reports a resolution name missing from the active variant's
// table together with every name that would have been accepted.
type ResolutionError struct {
	Variant string
	Name    string
	Valid   []string
}

func (e *ResolutionError) Error() string {
	return "arducam: invalid resolution \"" + e.Name + "\" for " + e.Variant +
		", valid: " + strings.Join(e.Valid, ", ")
}

func (e *ResolutionError) Is(target error) bool { return target == ErrInvalidResolution }

// BusError wraps a transport failure with the transaction that caused it.
type BusError struct {
	Op  string // "write", "read", "burst"
	Reg byte
	Err error
}

func (e *BusError) Error() string {
	var b [2]byte
	s := "arducam: " + e.Op + " 0x" + string(conv.U8Hex(b[:], e.Reg))
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *BusError) Unwrap() error        { return e.Err }
func (e *BusError) Is(target error) bool { return target == ErrIO }
