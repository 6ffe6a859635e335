// Package events implements the named-event registry the whole bot hangs
// off: wire frames are triggered as "msg:<type>" events, internal signals
// (ready, resumed, tournament transitions) share the same bus.
package events

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// Handler consumes one event. The payload is the frame data (json.RawMessage
// for wire events) or whatever the triggering component passed.
type Handler func(ctx context.Context, data any) error

// Bus is a registry from event name (case-insensitive) to handlers, plus an
// edge-triggered waiter primitive. Registration happens at startup;
// triggering is concurrent.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	waiters  map[string][]*Waiter
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
		waiters:  make(map[string][]*Waiter),
	}
}

func key(name string) string { return strings.ToLower(name) }

// On registers a handler. Handlers for one event fire in registration order
// but run concurrently.
func (b *Bus) On(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	k := key(name)
	b.handlers[k] = append(b.handlers[k], h)
}

// Trigger schedules every handler of the event as an independent goroutine
// and pulses all waiters. Handler errors and panics are logged and swallowed;
// one handler failing does not cancel its siblings.
func (b *Bus) Trigger(ctx context.Context, name string, data any) {
	k := key(name)
	b.mu.RLock()
	handlers := b.handlers[k]
	waiters := append([]*Waiter(nil), b.waiters[k]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		h := h
		go func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("event handler panicked", "event", k, "panic", r)
				}
			}()
			if err := h(ctx, data); err != nil {
				slog.Error("event handler failed", "event", k, "error", err)
			}
		}()
	}
	for _, w := range waiters {
		w.pulse(k)
	}
}

// Waiter awaits one or more named events. It must be created before the
// event can fire; events are edge-triggered and a pulse that happens with no
// waiter registered is lost.
type Waiter struct {
	bus   *Bus
	names []string
	ch    chan string
	once  sync.Once
}

// NewWaiter registers a waiter for the given events.
func (b *Bus) NewWaiter(names ...string) *Waiter {
	w := &Waiter{
		bus: b,
		ch:  make(chan string, len(names)),
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, n := range names {
		k := key(n)
		w.names = append(w.names, k)
		b.waiters[k] = append(b.waiters[k], w)
	}
	return w
}

func (w *Waiter) pulse(name string) {
	select {
	case w.ch <- name:
	default: // already pending, drop the duplicate pulse
	}
}

// WaitMode selects whether Wait returns on the first event or all of them.
type WaitMode int

const (
	WaitFirst WaitMode = iota
	WaitAll
)

// Wait blocks until the events fire and returns the set of names seen. The
// waiter is closed when Wait returns.
func (w *Waiter) Wait(ctx context.Context, mode WaitMode) ([]string, error) {
	defer w.Close()

	seen := make(map[string]bool, len(w.names))
	var fired []string
	for {
		select {
		case <-ctx.Done():
			return fired, ctx.Err()
		case name := <-w.ch:
			if !seen[name] {
				seen[name] = true
				fired = append(fired, name)
			}
			if mode == WaitFirst || len(seen) == len(w.names) {
				return fired, nil
			}
		}
	}
}

// Close unregisters the waiter. Safe to call multiple times.
func (w *Waiter) Close() {
	w.once.Do(func() {
		w.bus.mu.Lock()
		defer w.bus.mu.Unlock()
		for _, n := range w.names {
			ws := w.bus.waiters[n]
			for i, x := range ws {
				if x == w {
					w.bus.waiters[n] = append(ws[:i], ws[i+1:]...)
					break
				}
			}
		}
	})
}

// Wait is a convenience that registers and waits in one call. For races
// where the event may fire immediately after a send, register the waiter
// with NewWaiter before sending instead.
func (b *Bus) Wait(ctx context.Context, mode WaitMode, names ...string) ([]string, error) {
	return b.NewWaiter(names...).Wait(ctx, mode)
}
