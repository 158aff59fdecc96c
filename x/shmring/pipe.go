package shmring

import (
	"io"
	"sync"
)

// Pipe turns a Ring into a blocking io.Reader/io.Writer pair for exactly one
// writer goroutine and one reader goroutine. Close ends the stream: pending
// bytes can still be read, then Read returns io.EOF; Write fails with
// io.ErrClosedPipe.
type Pipe struct {
	r    *Ring
	done chan struct{}
	once sync.Once
}

func NewPipe(r *Ring) *Pipe {
	return &Pipe{r: r, done: make(chan struct{})}
}

func (p *Pipe) closed() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Write blocks until all of b is in the ring or the pipe is closed.
func (p *Pipe) Write(b []byte) (int, error) {
	n := 0
	for n < len(b) {
		if p.closed() {
			return n, io.ErrClosedPipe
		}
		k := p.r.TryWriteFrom(b[n:])
		n += k
		if k > 0 {
			continue
		}
		select {
		case <-p.r.Writable():
		case <-p.done:
		}
	}
	return n, nil
}

// Read blocks until at least one byte is available or the pipe is closed and
// drained.
func (p *Pipe) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	for {
		if n := p.r.TryReadInto(b); n > 0 {
			return n, nil
		}
		if p.closed() {
			// A write may have landed between the read attempt and Close.
			if n := p.r.TryReadInto(b); n > 0 {
				return n, nil
			}
			return 0, io.EOF
		}
		select {
		case <-p.r.Readable():
		case <-p.done:
		}
	}
}

// Close is idempotent.
func (p *Pipe) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}
