package errcode

import (
	"context"
	"errors"
	"testing"

	"arducam-go/drivers/arducam"
)

func TestMapDriverErr(t *testing.T) {
	cases := []struct {
		err  error
		want Code
	}{
		{nil, OK},
		{arducam.ErrGainRange, GainRange},
		{&arducam.ResolutionError{Variant: "3MP", Name: "x"}, InvalidResolution},
		{&arducam.BusError{Op: "write", Reg: 0x21, Err: errors.New("nak")}, IOFailure},
		{arducam.ErrTimeout, Timeout},
		{context.DeadlineExceeded, Timeout},
		{context.Canceled, Cancelled},
		{arducam.ErrPrematureCapture, PrematureCapture},
		{arducam.ErrFifoLength, FifoLength},
		{arducam.ErrUnsupported, Unsupported},
		{arducam.ErrNotInitialized, NotReady},
		{arducam.ErrNoCapture, NotReady},
		{arducam.ErrInvalidSetting, InvalidParams},
		{errors.New("something else"), Error},
	}
	for _, tc := range cases {
		if got := MapDriverErr(tc.err); got != tc.want {
			t.Fatalf("MapDriverErr(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestOfPrefersExplicitCode(t *testing.T) {
	if got := Of(Busy); got != Busy {
		t.Fatalf("Of(Busy) = %q", got)
	}
	wrapped := &E{C: InvalidParams, Op: "set", Err: arducam.ErrGainRange}
	if got := Of(wrapped); got != InvalidParams {
		t.Fatalf("Of(E) = %q", got)
	}
	if !errors.Is(wrapped, arducam.ErrGainRange) {
		t.Fatal("E does not unwrap to its cause")
	}
	if got := Of(arducam.ErrUnknownSensor); got != UnknownSensor {
		t.Fatalf("Of(driver err) = %q", got)
	}
}
