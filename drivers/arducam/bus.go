package arducam

import (
	"context"
	"time"

	"tinygo.org/x/drivers"
)

// Bus frames register transactions and burst transfers on the SPI bus. Every
// transaction asserts the select line for its whole duration and releases it
// afterwards, also on error.
type Bus struct {
	spi drivers.SPI
	cs  PinOutput
	cfg *Config

	// Fixed buffers to avoid per-call heap allocations.
	w [3]byte
	r [3]byte
}

func (b *Bus) selectChip()  { b.cs(false) }
func (b *Bus) releaseChip() { b.cs(true) }

// WriteRegister writes value to addr and waits the post-write settle delay.
func (b *Bus) WriteRegister(addr, value byte) error {
	b.w[0] = addr | writeBit
	b.w[1] = value
	b.selectChip()
	err := b.spi.Tx(b.w[:2], nil)
	b.releaseChip()
	if err != nil {
		return &BusError{Op: "write", Reg: addr, Err: err}
	}
	b.cfg.Sleep(b.cfg.WriteSettle)
	return nil
}

// ReadRegister reads one register: the address byte, one discarded cycle, then
// the data byte, all under a single select assertion.
func (b *Bus) ReadRegister(addr byte) (byte, error) {
	b.w[0] = addr & addrMask
	b.w[1] = 0
	b.w[2] = 0
	b.selectChip()
	err := b.spi.Tx(b.w[:3], b.r[:3])
	b.releaseChip()
	if err != nil {
		return 0, &BusError{Op: "read", Reg: addr, Err: err}
	}
	return b.r[2], nil
}

// stillWaiting is the idle-wait loop predicate. It keeps polling while the
// state field reads as idle, which is what the reference firmware does.
// Reads as inverted; confirm on hardware before flipping it.
func stillWaiting(state byte) bool {
	return state&sensorStateMask == sensorStateIdle
}

// WaitUntilIdle polls the sensor-state register until stillWaiting reports
// false. It returns ErrTimeout once IdleTimeout (if set) has elapsed.
func (b *Bus) WaitUntilIdle(ctx context.Context) error {
	var deadline time.Time
	if b.cfg.IdleTimeout > 0 {
		deadline = b.cfg.Now().Add(b.cfg.IdleTimeout)
	}
	for {
		st, err := b.ReadRegister(regSensorState)
		if err != nil {
			return err
		}
		if !stillWaiting(st) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !deadline.IsZero() && b.cfg.Now().After(deadline) {
			return ErrTimeout
		}
		b.cfg.Sleep(b.cfg.IdlePoll)
	}
}

// beginBurst asserts select and issues the burst-read command followed by the
// dummy byte. The caller must pair it with endBurst.
func (b *Bus) beginBurst() error {
	b.w[0] = cmdBurstRead
	b.selectChip()
	if err := b.spi.Tx(b.w[:1], nil); err != nil {
		b.releaseChip()
		return &BusError{Op: "burst", Reg: cmdBurstRead, Err: err}
	}
	if _, err := b.spi.Transfer(0); err != nil {
		b.releaseChip()
		return &BusError{Op: "burst", Reg: cmdBurstRead, Err: err}
	}
	return nil
}

// readChunk clocks len(buf) bytes out of the FIFO inside an open burst.
func (b *Bus) readChunk(buf []byte) error {
	if err := b.spi.Tx(nil, buf); err != nil {
		return &BusError{Op: "burst", Reg: cmdBurstRead, Err: err}
	}
	return nil
}

func (b *Bus) endBurst() { b.releaseChip() }

// readSingle reads one FIFO byte with the single-read command.
func (b *Bus) readSingle() (byte, error) {
	b.w[0] = cmdSingleRead
	b.w[1] = 0
	b.w[2] = 0
	b.selectChip()
	err := b.spi.Tx(b.w[:3], b.r[:3])
	b.releaseChip()
	if err != nil {
		return 0, &BusError{Op: "read", Reg: cmdSingleRead, Err: err}
	}
	return b.r[2], nil
}
