package camframe

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func testID(b byte) (id [16]byte) {
	for i := range id {
		id[i] = b + byte(i)
	}
	return id
}

func encode(t *testing.T, id [16]byte, payloads ...[]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.Begin(id); err != nil {
		t.Fatal(err)
	}
	for _, p := range payloads {
		if _, err := w.Write(p); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.End(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestWriterRecordLayout(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, 300)
	raw := encode(t, testID(1), payload)

	if !bytes.Equal(raw[:4], Magic[:]) {
		t.Fatalf("magic = % X", raw[:4])
	}
	rest := raw[20:]
	if rest[0] != 255 {
		t.Fatalf("first record len = %d", rest[0])
	}
	rest = rest[1+255:]
	if rest[0] != 45 {
		t.Fatalf("second record len = %d", rest[0])
	}
	rest = rest[1+45:]
	if len(rest) != 1 || rest[0] != 0 {
		t.Fatalf("terminator = % X", rest)
	}
}

func TestRoundTripWithChunkedWrites(t *testing.T) {
	a := bytes.Repeat([]byte{1, 2, 3}, 100)
	b := []byte{0xFF, 0xD9}
	raw := encode(t, testID(7), a, b)

	f, err := NewReader(bytes.NewReader(raw), 0).Next()
	if err != nil {
		t.Fatal(err)
	}
	if f.ID != testID(7) {
		t.Fatalf("id = %x", f.ID)
	}
	if !bytes.Equal(f.Data, append(append([]byte{}, a...), b...)) {
		t.Fatalf("payload mismatch (%d bytes)", len(f.Data))
	}
}

func TestReaderResyncsOnGarbage(t *testing.T) {
	var stream []byte
	stream = append(stream, 'x', 'A', 'C', 'A', 'C', 'F', 'y') // partial magics
	stream = append(stream, encode(t, testID(2), []byte("one"))...)
	stream = append(stream, 0x00, 0x13)
	stream = append(stream, encode(t, testID(3), []byte("two"))...)

	r := NewReader(bytes.NewReader(stream), 0)
	f1, err := r.Next()
	if err != nil || string(f1.Data) != "one" || f1.ID != testID(2) {
		t.Fatalf("first frame = %+v, %v", f1, err)
	}
	if r.Skipped != 7 {
		t.Fatalf("skipped = %d, want 7", r.Skipped)
	}
	f2, err := r.Next()
	if err != nil || string(f2.Data) != "two" {
		t.Fatalf("second frame = %+v, %v", f2, err)
	}
	if _, err := r.Next(); err != io.EOF {
		t.Fatalf("end of stream err = %v, want io.EOF", err)
	}
}

func TestReaderTruncatedFrame(t *testing.T) {
	raw := encode(t, testID(4), bytes.Repeat([]byte{9}, 100))
	_, err := NewReader(bytes.NewReader(raw[:50]), 0).Next()
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("err = %v", err)
	}
}

func TestReaderSizeLimit(t *testing.T) {
	raw := encode(t, testID(5), bytes.Repeat([]byte{9}, 600))
	if _, err := NewReader(bytes.NewReader(raw), 512).Next(); !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("err = %v", err)
	}
}

func TestWriterStateErrors(t *testing.T) {
	w := NewWriter(io.Discard)
	if _, err := w.Write([]byte{1}); !errors.Is(err, ErrNoFrame) {
		t.Fatalf("write before begin: %v", err)
	}
	if err := w.End(); !errors.Is(err, ErrNoFrame) {
		t.Fatalf("end before begin: %v", err)
	}
	if err := w.Begin(testID(0)); err != nil {
		t.Fatal(err)
	}
	if err := w.Begin(testID(0)); !errors.Is(err, ErrFrameOpen) {
		t.Fatalf("double begin: %v", err)
	}
}
