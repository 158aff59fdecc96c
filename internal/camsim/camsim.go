// Package camsim simulates the capture-controller bridge of an SPI camera
// module for host-side tests. Sim implements tinygo drivers.SPI; its Select
// method is the select line (drive low to select).
package camsim

import (
	"errors"
	"sync"

	"tinygo.org/x/drivers"
)

// Sensor IDs reported by the ID register.
const (
	ID3MP = 0x82
	ID5MP = 0x81
)

// Registers the simulator gives behaviour to.
const (
	RegFifoControl = 0x04
	RegSensorReset = 0x07
	RegSensorID    = 0x40
	RegState       = 0x44
	RegFifoSize1   = 0x45
	RegFifoSize2   = 0x46
	RegFifoSize3   = 0x47
	CmdBurstRead   = 0x3C
	CmdSingleRead  = 0x3D
)

// ErrNotSelected is returned for a transfer with the select line high.
var ErrNotSelected = errors.New("camsim: transfer without chip select")

// Compile-time check.
var _ drivers.SPI = (*Sim)(nil)

// Write is one recorded register write.
type Write struct {
	Reg byte
	Val byte
}

// Sim is a scripted bridge chip. Configure the exported fields before use.
type Sim struct {
	mu sync.Mutex

	// SensorID is returned from the ID register.
	SensorID byte
	// FIFO is the captured payload streamed by burst and single reads.
	FIFO []byte
	// Length overrides the FIFO length registers when LengthSet is true.
	Length    [3]byte
	LengthSet bool
	// DonePolls is how many state reads after a start command report the
	// capture as still running.
	DonePolls int
	// NeverDone keeps the capture-done bit clear forever.
	NeverDone bool
	// StuckIdle makes the state register report the idle code forever.
	StuckIdle bool
	// FailReg and FailErr inject a transport error for transactions whose
	// first byte addresses FailReg.
	FailReg byte
	FailErr error

	// Recorded traffic.
	Writes      []Write
	Reads       []byte
	BurstChunks int
	Selects     int

	regs      [128]byte
	selected  bool
	pos       int
	cmd       byte
	burst     bool
	write     bool
	capturing bool
	done      bool
	pollsLeft int
	fifoPos   int
}

// New returns a simulator reporting sensorID with payload in the FIFO.
func New(sensorID byte, payload []byte) *Sim {
	return &Sim{SensorID: sensorID, FIFO: payload}
}

// Select drives the select line. false selects the chip.
func (s *Sim) Select(level bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !level {
		s.selected = true
		s.Selects++
		s.pos = 0
		s.burst = false
		s.write = false
		return
	}
	s.selected = false
}

// Selected reports whether the select line is currently asserted.
func (s *Sim) Selected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Tx clocks max(len(w), len(r)) bytes full duplex. A nil w clocks zeros.
func (s *Sim) Tx(w, r []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.selected {
		return ErrNotSelected
	}
	if s.FailErr != nil {
		if s.pos == 0 && len(w) > 0 && w[0]&0x7F == s.FailReg {
			return s.FailErr
		}
		if s.pos > 0 && s.cmd&0x7F == s.FailReg {
			return s.FailErr
		}
	}
	if s.burst && s.pos >= 2 && len(w) == 0 {
		s.BurstChunks++
	}
	n := len(w)
	if len(r) > n {
		n = len(r)
	}
	for i := 0; i < n; i++ {
		var in byte
		if i < len(w) {
			in = w[i]
		}
		out := s.clock(in)
		if i < len(r) {
			r[i] = out
		}
	}
	return nil
}

// Transfer clocks a single byte.
func (s *Sim) Transfer(b byte) (byte, error) {
	var r [1]byte
	if err := s.Tx([]byte{b}, r[:]); err != nil {
		return 0, err
	}
	return r[0], nil
}

func (s *Sim) clock(in byte) byte {
	pos := s.pos
	s.pos++
	if pos == 0 {
		s.cmd = in
		switch {
		case in == CmdBurstRead:
			s.burst = true
		case in&0x80 != 0:
			s.write = true
		}
		return 0
	}
	switch {
	case s.burst:
		if pos == 1 {
			return 0 // dummy
		}
		return s.nextFIFO()
	case s.write:
		if pos == 1 {
			s.writeReg(s.cmd&0x7F, in)
		}
		return 0
	default:
		if pos == 2 {
			return s.readReg(s.cmd & 0x7F)
		}
		return 0
	}
}

func (s *Sim) writeReg(reg, v byte) {
	s.Writes = append(s.Writes, Write{Reg: reg, Val: v})
	s.regs[reg] = v
	switch reg {
	case RegFifoControl:
		if v&0x01 != 0 {
			s.capturing = false
			s.done = false
		}
		if v&0x02 != 0 {
			s.capturing = true
			s.done = false
			s.pollsLeft = s.DonePolls
			s.fifoPos = 0
		}
	case RegSensorReset:
		s.capturing = false
		s.done = false
	}
}

func (s *Sim) readReg(reg byte) byte {
	s.Reads = append(s.Reads, reg)
	switch reg {
	case RegSensorID:
		return s.SensorID
	case RegState:
		st := byte(0x02)
		if s.StuckIdle {
			st = 0x01
		}
		if s.capturing && !s.done && !s.NeverDone {
			if s.pollsLeft <= 0 {
				s.done = true
			} else {
				s.pollsLeft--
			}
		}
		if s.done {
			st |= 0x04
		}
		return st
	case RegFifoSize1, RegFifoSize2, RegFifoSize3:
		i := int(reg - RegFifoSize1)
		if s.LengthSet {
			return s.Length[i]
		}
		return byte(len(s.FIFO) >> (8 * i))
	case CmdSingleRead:
		return s.nextFIFO()
	}
	return s.regs[reg]
}

func (s *Sim) nextFIFO() byte {
	if s.fifoPos >= len(s.FIFO) {
		s.fifoPos++
		return 0
	}
	b := s.FIFO[s.fifoPos]
	s.fifoPos++
	return b
}

// WritesTo returns the values written to reg, in order.
func (s *Sim) WritesTo(reg byte) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []byte
	for _, w := range s.Writes {
		if w.Reg == reg {
			out = append(out, w.Val)
		}
	}
	return out
}

// Traffic returns the number of recorded writes, reads and select assertions.
func (s *Sim) Traffic() (writes, reads, selects int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Writes), len(s.Reads), s.Selects
}

// ClearLog drops recorded traffic but keeps register and capture state.
func (s *Sim) ClearLog() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Writes = nil
	s.Reads = nil
	s.BurstChunks = 0
	s.Selects = 0
}
