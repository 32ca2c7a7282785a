package event

import "sync"

// kind is the per-type key for a buffer or handler list. kind[A]{} and
// kind[B]{} are distinct map keys, so no reflection is needed.
type kind[T any] struct{}

// Bus is a double-buffered event bus. Events emitted in tick N are readable
// in tick N+1. SwapBuffers() is called at tick start by the schedule.
type Bus struct {
	mu       sync.Mutex // only protects handler registration
	front    map[any][]any
	back     map[any][]any
	handlers map[any][]func(any)
	order    []any // kinds in first-seen order, so dispatch is deterministic
}

func NewBus() *Bus {
	return &Bus{
		front:    make(map[any][]any),
		back:     make(map[any][]any),
		handlers: make(map[any][]func(any)),
	}
}

// Emit queues an event into the back buffer (will be readable next tick).
func Emit[T any](b *Bus, event T) {
	k := kind[T]{}
	b.track(k)
	b.back[k] = append(b.back[k], event)
}

// Subscribe registers a typed handler for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	k := kind[T]{}
	b.track(k)
	b.handlers[k] = append(b.handlers[k], func(ev any) { fn(ev.(T)) })
}

func (b *Bus) track(k any) {
	if _, seen := b.front[k]; seen {
		return
	}
	b.front[k] = nil
	b.back[k] = nil
	b.order = append(b.order, k)
}

// SwapBuffers rotates back→front and clears the new back buffer.
// Called once at tick start.
func (b *Bus) SwapBuffers() {
	b.front, b.back = b.back, b.front
	for k := range b.back {
		b.back[k] = b.back[k][:0]
	}
}

// DispatchAll delivers all front-buffer events to their subscribed handlers,
// grouped by event type in the order the types were first seen.
func (b *Bus) DispatchAll() int {
	n := 0
	for _, k := range b.order {
		handlers := b.handlers[k]
		for _, ev := range b.front[k] {
			for _, h := range handlers {
				h(ev)
			}
			n++
		}
	}
	return n
}

// Pending returns the number of events waiting in the back buffer.
func Pending[T any](b *Bus) int {
	return len(b.back[kind[T]{}])
}
