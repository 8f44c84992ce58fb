// Package eventbus dispatches typed events in process. The client and
// transport publish operation and request events; logging and tracing
// subscribe to them.
package eventbus

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"
)

// Handler processes events of type T.
type Handler[T any] func(context.Context, T)

type entry struct {
	id uint64
	fn func(context.Context, any)
}

// Bus routes each event to the handlers registered for its type. Handlers
// run synchronously on the publishing goroutine, in registration order.
type Bus struct {
	mu       sync.RWMutex
	next     uint64
	handlers map[reflect.Type][]entry
}

// New creates an empty Bus.
func New() *Bus { return &Bus{handlers: make(map[reflect.Type][]entry)} }

// On registers h on b for events of type T.
func On[T any](b *Bus, h Handler[T]) (unsubscribe func()) {
	t := reflect.TypeFor[T]()
	return b.add(t, func(ctx context.Context, v any) { h(ctx, v.(T)) })
}

// Emit delivers e to the handlers of T registered on b. A nil Bus drops it.
func Emit[T any](ctx context.Context, b *Bus, e T) {
	if b == nil {
		return
	}
	b.mu.RLock()
	hs := b.handlers[reflect.TypeFor[T]()]
	b.mu.RUnlock()
	for _, h := range hs {
		h.fn(ctx, e)
	}
}

func (b *Bus) add(t reflect.Type, fn func(context.Context, any)) func() {
	b.mu.Lock()
	b.next++
	id := b.next
	// Copy on write so Emit can range over a snapshot without holding the lock.
	hs := make([]entry, 0, len(b.handlers[t])+1)
	b.handlers[t] = append(append(hs, b.handlers[t]...), entry{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(t, id) })
	}
}

func (b *Bus) remove(t reflect.Type, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	old := b.handlers[t]
	hs := make([]entry, 0, len(old))
	for _, h := range old {
		if h.id != id {
			hs = append(hs, h)
		}
	}
	if len(hs) == 0 {
		delete(b.handlers, t)
		return
	}
	b.handlers[t] = hs
}

var global atomic.Pointer[Bus]

// Use sets the process-wide bus. Passing nil disables publishing.
func Use(b *Bus) { global.Store(b) }

// Subscribe registers h with the process-wide bus. Without one it is a
// no-op.
func Subscribe[T any](h Handler[T]) (unsubscribe func()) {
	if b := global.Load(); b != nil {
		return On(b, h)
	}
	return func() {}
}

// Publish sends e through the process-wide bus.
func Publish[T any](ctx context.Context, e T) {
	Emit(ctx, global.Load(), e)
}
