package shmring

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"
)

// fakeIO models partial producer progress (accept up to k bytes).
type fakeIO struct{ k int }

func (f fakeIO) write(p []byte) int {
	if len(p) > f.k {
		return f.k
	}
	return len(p)
}

func TestOrderAcrossWrapWithPartialProgress(t *testing.T) {
	r := New(64)
	prod := fakeIO{k: 7}

	// Produce a known sequence [0..N), forcing frequent wraps and partial
	// first-span progress.
	const N = 2000
	src := make([]byte, N)
	for i := range src {
		src[i] = byte(i)
	}

	p := src
	dst := make([]byte, N)
	off := 0

	for off < N {
		if len(p) > 0 {
			step := prod.write(p)
			step = r.TryWriteFrom(p[:step])
			p = p[step:]
		}

		var tmp [17]byte
		n := r.TryReadInto(tmp[:])
		if n > 0 {
			copy(dst[off:], tmp[:n])
			off += n
		}
	}

	if !bytes.Equal(dst, src) {
		t.Fatal("stream reordered or corrupted across wrap")
	}
}

func TestFullRingRejectsWrites(t *testing.T) {
	r := New(8)
	if r.Cap() != 8 || r.Space() != 8 {
		t.Fatalf("cap=%d space=%d", r.Cap(), r.Space())
	}
	if n := r.TryWriteFrom(make([]byte, 12)); n != 8 {
		t.Fatalf("write 12 into 8 -> %d", n)
	}
	if r.Space() != 0 || r.Available() != 8 {
		t.Fatalf("space=%d avail=%d", r.Space(), r.Available())
	}
	if n := r.TryWriteFrom([]byte{1}); n != 0 {
		t.Fatalf("write into full ring -> %d", n)
	}
}

func TestReadableWritableSignals(t *testing.T) {
	r := New(8)
	select {
	case <-r.Readable():
		t.Fatal("unexpected Readable on empty ring")
	default:
	}
	if n := r.TryWriteFrom([]byte{1, 2, 3}); n != 3 {
		t.Fatalf("write 3 -> %d", n)
	}
	select {
	case <-r.Readable():
	default:
		t.Fatal("expected Readable")
	}
	select {
	case <-r.Readable(): // coalesced; no second token yet
		t.Fatal("unexpected extra Readable")
	default:
	}
	r.TryReadInto(make([]byte, 3))
	select {
	case <-r.Writable():
	default:
		t.Fatal("expected Writable after a read freed space")
	}
}

func TestPipeStreamsThroughSmallRing(t *testing.T) {
	p := NewPipe(New(16))
	src := make([]byte, 5000)
	for i := range src {
		src[i] = byte(i * 7)
	}

	errc := make(chan error, 1)
	go func() {
		// Odd-sized writes larger than the ring exercise the blocking path.
		for off := 0; off < len(src); off += 37 {
			end := off + 37
			if end > len(src) {
				end = len(src)
			}
			if _, err := p.Write(src[off:end]); err != nil {
				errc <- err
				return
			}
		}
		errc <- p.Close()
	}()

	got, err := io.ReadAll(p)
	if err != nil {
		t.Fatal(err)
	}
	if err := <-errc; err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, src) {
		t.Fatalf("got %d bytes, mismatch", len(got))
	}
}

func TestPipeCloseUnblocksWriter(t *testing.T) {
	p := NewPipe(New(4))
	errc := make(chan error, 1)
	go func() {
		_, err := p.Write(make([]byte, 10))
		errc <- err
	}()

	time.Sleep(20 * time.Millisecond)
	p.Close()
	select {
	case err := <-errc:
		if !errors.Is(err, io.ErrClosedPipe) {
			t.Fatalf("err = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("writer still blocked after Close")
	}

	// Buffered bytes remain readable, then EOF.
	buf := make([]byte, 8)
	n, err := p.Read(buf)
	if n != 4 || err != nil {
		t.Fatalf("read after close = %d, %v", n, err)
	}
	if _, err := p.Read(buf); err != io.EOF {
		t.Fatalf("err = %v, want io.EOF", err)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
}
