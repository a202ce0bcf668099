// Package event provides the subscription mechanism stores use to notify
// observers of state changes.
package event

import "sync"

// Bus fans a value out to subscribers. Handlers run synchronously on the
// publishing goroutine, in subscription order, and must not block.
type Bus[T any] struct {
	mu   sync.RWMutex
	next int
	subs map[int]func(T)
	ids  []int
}

// Subscribe registers fn and returns a function that removes it
func (b *Bus[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	b.mu.Lock()
	if b.subs == nil {
		b.subs = make(map[int]func(T))
	}
	id := b.next
	b.next++
	b.subs[id] = fn
	b.ids = append(b.ids, id)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			for i, v := range b.ids {
				if v == id {
					b.ids = append(b.ids[:i], b.ids[i+1:]...)
					break
				}
			}
			b.mu.Unlock()
		})
	}
}

// Publish delivers v to every current subscriber
func (b *Bus[T]) Publish(v T) {
	b.mu.RLock()
	handlers := make([]func(T), 0, len(b.ids))
	for _, id := range b.ids {
		handlers = append(handlers, b.subs[id])
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(v)
	}
}

// Len returns the number of subscribers
func (b *Bus[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.ids)
}

// Forward returns a handler that sends to ch without blocking. Values are
// dropped when ch is full.
func Forward[T any](ch chan<- T) func(T) {
	return func(v T) {
		select {
		case ch <- v:
		default:
		}
	}
}
