// Package camframe frames captured image payloads for a byte stream.
//
// A frame is the 4-byte magic "ACF1", a 16-byte capture ID, then records of
// [len u8][len bytes] with len in 1..255, terminated by a zero-length record.
// The writer side is TinyGo-safe; the reader resynchronises on the magic so a
// receiver can join a stream mid-frame.
package camframe

import (
	"errors"
	"io"
)

// Magic opens every frame.
var Magic = [4]byte{'A', 'C', 'F', '1'}

// MaxRecord is the largest payload carried by one record.
const MaxRecord = 255

var (
	ErrFrameOpen     = errors.New("camframe: frame already open")
	ErrNoFrame       = errors.New("camframe: no frame open")
	ErrFrameTooLarge = errors.New("camframe: frame exceeds size limit")
)

// ---------------- Writer ----------------

// Writer encodes frames onto w. Write calls between Begin and End become
// payload records.
type Writer struct {
	w    io.Writer
	open bool
	hdr  [4 + 16]byte
	rec  [1 + MaxRecord]byte
}

func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

// Begin writes the frame header for id.
func (fw *Writer) Begin(id [16]byte) error {
	if fw.open {
		return ErrFrameOpen
	}
	copy(fw.hdr[:4], Magic[:])
	copy(fw.hdr[4:], id[:])
	if _, err := fw.w.Write(fw.hdr[:]); err != nil {
		return err
	}
	fw.open = true
	return nil
}

// Write splits p into records of at most MaxRecord bytes.
func (fw *Writer) Write(p []byte) (int, error) {
	if !fw.open {
		return 0, ErrNoFrame
	}
	n := 0
	for len(p) > 0 {
		k := len(p)
		if k > MaxRecord {
			k = MaxRecord
		}
		fw.rec[0] = byte(k)
		copy(fw.rec[1:], p[:k])
		if _, err := fw.w.Write(fw.rec[:1+k]); err != nil {
			return n, err
		}
		n += k
		p = p[k:]
	}
	return n, nil
}

// End writes the terminating zero-length record.
func (fw *Writer) End() error {
	if !fw.open {
		return ErrNoFrame
	}
	fw.open = false
	fw.rec[0] = 0
	_, err := fw.w.Write(fw.rec[:1])
	return err
}

// ---------------- Reader ----------------

// Frame is one decoded capture.
type Frame struct {
	ID   [16]byte
	Data []byte
}

// Reader decodes frames from r.
type Reader struct {
	r   io.Reader
	max int
	one [1]byte
	rec [MaxRecord]byte

	Skipped int // bytes discarded while searching for a frame header
}

// NewReader returns a Reader that rejects frames larger than max bytes
// (max <= 0 means unlimited).
func NewReader(r io.Reader, max int) *Reader { return &Reader{r: r, max: max} }

func (fr *Reader) readByte() (byte, error) {
	if _, err := io.ReadFull(fr.r, fr.one[:]); err != nil {
		return 0, err
	}
	return fr.one[0], nil
}

// sync consumes bytes until the magic has been read.
func (fr *Reader) sync() error {
	matched := 0
	for matched < len(Magic) {
		b, err := fr.readByte()
		if err != nil {
			return err
		}
		switch {
		case b == Magic[matched]:
			matched++
		case b == Magic[0]:
			fr.Skipped += matched
			matched = 1
		default:
			fr.Skipped += matched + 1
			matched = 0
		}
	}
	return nil
}

// Next reads the next complete frame. Bytes preceding a frame header are
// skipped. A stream that ends inside a frame returns io.ErrUnexpectedEOF; a
// stream that ends between frames returns io.EOF.
func (fr *Reader) Next() (Frame, error) {
	var f Frame
	if err := fr.sync(); err != nil {
		return f, err
	}
	if _, err := io.ReadFull(fr.r, f.ID[:]); err != nil {
		return f, unexpected(err)
	}
	for {
		n, err := fr.readByte()
		if err != nil {
			return f, unexpected(err)
		}
		if n == 0 {
			return f, nil
		}
		if _, err := io.ReadFull(fr.r, fr.rec[:n]); err != nil {
			return f, unexpected(err)
		}
		if fr.max > 0 && len(f.Data)+int(n) > fr.max {
			return f, ErrFrameTooLarge
		}
		f.Data = append(f.Data, fr.rec[:n]...)
	}
}

func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
