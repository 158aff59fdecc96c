package arducam

import (
	"context"
	"io"
)

var endMarkerTail = [1]byte{markerEnd}

// Drain streams the captured payload into w, 255 bytes per burst read, and
// stops after the end-of-image marker (0xFF 0xD9), including a marker split
// across two chunks. If the FIFO is exhausted without a marker the transfer
// ends without error; whatever was read has been written. It returns the
// number of bytes written to w.
func (d *Device) Drain(ctx context.Context, s *Session, w io.Writer) (int, error) {
	if s == nil || (s.State != StateLengthKnown && s.State != StateStreaming) {
		return 0, ErrNoCapture
	}
	if err := d.bus.beginBurst(); err != nil {
		s.State = StateAbandoned
		return 0, err
	}
	defer d.bus.endBurst()

	s.State = StateStreaming
	buf := d.chunk[:]
	written := 0
	var last byte // previous chunk's final byte; none before the first chunk

	for s.Remaining > 0 {
		if err := ctx.Err(); err != nil {
			s.State = StateAbandoned
			return written, err
		}
		if err := d.bus.readChunk(buf); err != nil {
			s.State = StateAbandoned
			return written, err
		}
		s.Remaining -= ChunkSize

		out, done := extract(buf, last)
		n, err := w.Write(out)
		written += n
		if err != nil {
			s.State = StateAbandoned
			return written, err
		}
		if done {
			s.State = StateComplete
			s.EndMarker = true
			d.progress(s.Total, s.Total)
			return written, nil
		}
		last = buf[len(buf)-1]
		d.progress(s.Total-s.Remaining, s.Total)
	}
	s.State = StateComplete
	d.debug("fifo exhausted without end marker")
	return written, nil
}

// extract decides what part of chunk goes to the sink. done reports that the
// end-of-image marker was reached.
func extract(chunk []byte, prevLast byte) (out []byte, done bool) {
	if i := markerIndex(chunk); i >= 0 {
		return chunk[:i+2], true
	}
	if prevLast == markerPrefix && len(chunk) > 0 && chunk[0] == markerEnd {
		return endMarkerTail[:], true
	}
	return chunk, false
}

// markerIndex returns the offset of the first 0xFF 0xD9 pair, or -1.
func markerIndex(b []byte) int {
	for i := 0; i+1 < len(b); i++ {
		if b[i] == markerPrefix && b[i+1] == markerEnd {
			return i
		}
	}
	return -1
}

func (d *Device) progress(done, total int) {
	if d.cfg.Progress == nil || total <= 0 {
		return
	}
	if done > total {
		done = total
	}
	d.cfg.Progress(done, total)
}

// ReadByte reads a single FIFO byte outside of a burst.
func (d *Device) ReadByte(s *Session) (byte, error) {
	if s == nil || (s.State != StateLengthKnown && s.State != StateStreaming) {
		return 0, ErrNoCapture
	}
	b, err := d.bus.readSingle()
	if err != nil {
		return 0, err
	}
	s.Remaining--
	s.State = StateStreaming
	return b, nil
}
