package bus

import (
	"context"
	"sync/atomic"
)

// Drain buffers messages between a subscription callback and a slower
// consumer. When the buffer is full the oldest message is dropped.
type Drain struct {
	ch       chan Message
	received uint64
	dropped  uint64
}

func NewDrain(size int) *Drain {
	if size <= 0 {
		size = 100
	}
	return &Drain{ch: make(chan Message, size)}
}

// Push never blocks. Safe to use as a Subscribe handler.
func (d *Drain) Push(m Message) {
	atomic.AddUint64(&d.received, 1)
	for {
		select {
		case d.ch <- m:
			return
		default:
		}
		select {
		case <-d.ch:
			atomic.AddUint64(&d.dropped, 1)
		default:
		}
	}
}

// Next waits for the oldest buffered message.
func (d *Drain) Next(ctx context.Context) (Message, error) {
	select {
	case m := <-d.ch:
		return m, nil
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

// Latest waits for a message, then skips ahead to the newest buffered one.
// Skipped messages count as dropped.
func (d *Drain) Latest(ctx context.Context) (Message, error) {
	m, err := d.Next(ctx)
	if err != nil {
		return m, err
	}
	for {
		select {
		case newer := <-d.ch:
			atomic.AddUint64(&d.dropped, 1)
			m = newer
		default:
			return m, nil
		}
	}
}

func (d *Drain) Stats() (received, dropped uint64) {
	return atomic.LoadUint64(&d.received), atomic.LoadUint64(&d.dropped)
}
