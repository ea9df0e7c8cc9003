package coordinator

import (
	"context"
	"sync"

	"github.com/flashbots/aquanet/protocol"
)

// MultiSink fans events out to several sinks. Sinks may be added after the
// coordinator starts, so late-built collectors can still attach.
type MultiSink struct {
	mu    sync.RWMutex
	sinks []EventSink
}

// NewMultiSink creates a fan-out sink over the given sinks.
func NewMultiSink(sinks ...EventSink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Add attaches another sink. It only sees events emitted after the call.
func (m *MultiSink) Add(sink EventSink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sinks = append(m.sinks, sink)
}

// Append forwards the event to every sink, returning the first error.
func (m *MultiSink) Append(event protocol.Event) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var firstErr error
	for _, sink := range m.sinks {
		if err := sink.Append(event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

type subscriber struct {
	ctx context.Context
	ch  chan protocol.Event
}

// emit appends an event to the log, forwards it to the sink and notifies
// subscribers. Callers must hold c.mu.
func (c *Coordinator) emit(event protocol.Event) {
	c.nextSeq++
	event.Seq = c.nextSeq
	event.Timestamp = c.now()

	c.events = append(c.events, event)
	if c.sink != nil {
		if err := c.sink.Append(event); err != nil {
			c.log.Error("event sink append failed", "type", event.Type, "seq", event.Seq, "err", err)
		}
	}

	for _, sub := range c.subscribers {
		select {
		case <-sub.ctx.Done():
			// The watcher goroutine removes and closes it.
			continue
		default:
		}
		select {
		case sub.ch <- event:
		default:
			// Slow subscribers miss events rather than stall the writer.
		}
	}
}

// SubscribeEvents returns a channel receiving every event emitted after the
// call. The channel closes when ctx is done, whether or not further events
// are emitted.
func (c *Coordinator) SubscribeEvents(ctx context.Context) <-chan protocol.Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan protocol.Event, 64)
	c.subscribers = append(c.subscribers, subscriber{ctx: ctx, ch: ch})

	go func() {
		<-ctx.Done()
		c.unsubscribe(ch)
	}()
	return ch
}

// unsubscribe removes a subscriber and closes its channel. The watcher
// goroutine is the only closer, so emit never races a close.
func (c *Coordinator) unsubscribe(ch chan protocol.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, sub := range c.subscribers {
		if sub.ch == ch {
			c.subscribers = append(c.subscribers[:i], c.subscribers[i+1:]...)
			close(ch)
			return
		}
	}
}

// Events returns the in-memory event log, optionally filtered by period.
// Period 0 means all events.
func (c *Coordinator) Events(period protocol.PeriodID) []protocol.Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	if period == 0 {
		out := make([]protocol.Event, len(c.events))
		copy(out, c.events)
		return out
	}

	var out []protocol.Event
	for _, ev := range c.events {
		if ev.Period == period {
			out = append(out, ev)
		}
	}
	return out
}
