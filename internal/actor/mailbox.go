package actor

import (
	"context"
	"sync"
)

// Mailbox is an unbounded FIFO queue feeding exactly one consumer goroutine.
// Put never blocks, so producers cannot be stalled by a slow consumer.
type Mailbox[T any] struct {
	lock   sync.Mutex
	queue  []T
	closed bool
	// notify has a buffer of 1 so that producers never block while the
	// consumer is busy and the consumer always observes at least one wakeup.
	notify chan struct{}
}

// NewMailbox returns an empty, open Mailbox.
func NewMailbox[T any]() *Mailbox[T] {
	return &Mailbox[T]{
		notify: make(chan struct{}, 1),
	}
}

// Put appends v to the mailbox.
// Returns false if the mailbox was closed and v has been dropped.
func (m *Mailbox[T]) Put(v T) bool {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.closed {
		return false
	}
	m.queue = append(m.queue, v)
	m.wake()

	return true
}

// Close stops the mailbox from accepting new messages.
// Messages already queued are still handed out by Next and TryNext.
func (m *Mailbox[T]) Close() {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.closed = true
	m.wake()
}

// Closed reports whether Close has been called.
func (m *Mailbox[T]) Closed() bool {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.closed
}

// Len returns the number of queued messages.
func (m *Mailbox[T]) Len() int {
	m.lock.Lock()
	defer m.lock.Unlock()

	return len(m.queue)
}

// TryNext pops the oldest message without waiting.
func (m *Mailbox[T]) TryNext() (T, bool) {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.pop()
}

// Next blocks until a message is available and pops it.
// Returns false when the mailbox is closed and empty or ctx is done.
func (m *Mailbox[T]) Next(ctx context.Context) (T, bool) {
	for {
		m.lock.Lock()
		v, ok := m.pop()
		closed := m.closed
		m.lock.Unlock()

		if ok {
			return v, true
		}
		if closed {
			return v, false
		}

		select {
		case <-m.notify:
		case <-ctx.Done():
			var zero T
			return zero, false
		}
	}
}

// Wait returns a channel that is signaled whenever a message is put or the
// mailbox is closed. It lets consumers select over several sources.
func (m *Mailbox[T]) Wait() <-chan struct{} {
	return m.notify
}

// must be called with lock held.
func (m *Mailbox[T]) pop() (T, bool) {
	var zero T
	if len(m.queue) == 0 {
		return zero, false
	}
	v := m.queue[0]
	m.queue[0] = zero
	m.queue = m.queue[1:]

	return v, true
}

// must be called with lock held.
func (m *Mailbox[T]) wake() {
	select {
	case m.notify <- struct{}{}:
	default:
	}
}
