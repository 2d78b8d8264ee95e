package eventbus

import "sync"

// TypedBus is a type-safe publish/subscribe bus for events of type T.
// When created with NewRetained the last published event is replayed to
// new subscribers.
type TypedBus[T any] struct {
	mu      sync.RWMutex
	subs    []chan T
	closed  bool
	retain  bool
	last    T
	hasLast bool
	buffer  int
}

// NewTyped creates a new TypedBus.
func NewTyped[T any]() *TypedBus[T] { return &TypedBus[T]{buffer: 8} }

// NewRetained creates a TypedBus replaying the latest event on Subscribe.
func NewRetained[T any]() *TypedBus[T] { return &TypedBus[T]{buffer: 8, retain: true} }

// Publish sends the event to all subscribers without blocking. When a
// subscriber's buffer is full its oldest pending event is dropped, so the
// newest event is always delivered.
func (b *TypedBus[T]) Publish(e T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	if b.retain {
		b.last, b.hasLast = e, true
	}
	for _, ch := range b.subs {
		select {
		case ch <- e:
			continue
		default:
		}
		// Only Publish sends, under b.mu, so one receive frees a slot.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- e:
		default:
		}
	}
}

// Last returns the retained event, if any.
func (b *TypedBus[T]) Last() (T, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.last, b.hasLast
}

// Subscribe registers a subscriber and returns its channel.
func (b *TypedBus[T]) Subscribe() <-chan T {
	ch := make(chan T, b.buffer)
	b.mu.Lock()
	if b.closed {
		close(ch)
	} else {
		if b.hasLast {
			ch <- b.last
		}
		b.subs = append(b.subs, ch)
	}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *TypedBus[T]) Unsubscribe(sub <-chan T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, ch := range b.subs {
		if ch == sub {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			if !b.closed {
				close(ch)
			}
			return
		}
	}
}

// Close closes the bus and all subscriber channels.
func (b *TypedBus[T]) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
	b.mu.Unlock()
}
