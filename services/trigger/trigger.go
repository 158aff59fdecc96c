// Package trigger turns a push button into capture requests on the bus.
// Edges are captured in interrupt context, debounced in a goroutine and
// published as CaptureRequest messages.
package trigger

import (
	"context"
	"sync/atomic"
	"time"

	"arducam-go/bus"
	"arducam-go/types"
)

// Pin is an input with an edge interrupt. Active-low buttons use Invert.
type Pin interface {
	Get() bool
	SetIRQ(handler func()) error
	ClearIRQ() error
}

type Config struct {
	Topic    bus.Topic
	Tag      string
	Debounce time.Duration // default 50ms
	Invert   bool          // true for a button pulling the pin low
}

type Button struct {
	conn *bus.Connection
	pin  Pin
	cfg  Config

	isrQ  chan bool
	drops uint32 // ISR drop counter
	now   func() time.Time

	lastLevel bool
	lastEvent time.Time
}

func New(conn *bus.Connection, pin Pin, cfg Config) *Button {
	if cfg.Debounce <= 0 {
		cfg.Debounce = 50 * time.Millisecond
	}
	if cfg.Tag == "" {
		cfg.Tag = "button"
	}
	return &Button{
		conn: conn,
		pin:  pin,
		cfg:  cfg,
		isrQ: make(chan bool, 16),
		now:  time.Now,
	}
}

// Run arms the interrupt and publishes one capture request per debounced
// press until ctx is cancelled.
func (b *Button) Run(ctx context.Context) error {
	b.lastLevel = b.level(b.pin.Get())

	if err := b.pin.SetIRQ(b.isr); err != nil {
		return err
	}
	defer b.pin.ClearIRQ()

	for {
		select {
		case <-ctx.Done():
			return nil
		case raw := <-b.isrQ:
			if b.edge(b.level(raw)) {
				b.conn.Publish(b.conn.NewMessage(b.cfg.Topic, types.CaptureRequest{Tag: b.cfg.Tag}, false))
			}
		}
	}
}

// isr runs in interrupt context: fast pin read + non-blocking channel send.
func (b *Button) isr() {
	select {
	case b.isrQ <- b.pin.Get():
	default:
		atomic.AddUint32(&b.drops, 1)
	}
}

func (b *Button) level(raw bool) bool {
	if b.cfg.Invert {
		return !raw
	}
	return raw
}

// edge records level and reports a debounced press (rising edge after
// inversion). Changes inside the debounce window still update the recorded
// level so the next real edge is seen against the pin's actual state.
func (b *Button) edge(level bool) bool {
	if level == b.lastLevel {
		return false
	}
	b.lastLevel = level
	now := b.now()
	if !b.lastEvent.IsZero() && now.Sub(b.lastEvent) < b.cfg.Debounce {
		return false
	}
	b.lastEvent = now
	return level
}

// ISRDrops counts edges lost because the ISR queue was full.
func (b *Button) ISRDrops() uint32 { return atomic.LoadUint32(&b.drops) }
