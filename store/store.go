// Package store holds observable application state: values that notify
// their subscribers on every change, and the lazily fetched current user.
package store

import "sync"

// Readable is a value that can be read and observed but not set.
type Readable[T any] interface {
	Get() T

	// Subscribe calls fn with the current value and then after every
	// change, until the returned function is called.
	Subscribe(fn func(T)) (unsubscribe func())
}

// Writable is an observable value. The zero value is not usable; create
// one with NewWritable.
type Writable[T any] struct {
	mu     sync.Mutex
	value  T
	nextID int
	subs   map[int]func(T)
}

// NewWritable returns a Writable holding initial.
func NewWritable[T any](initial T) *Writable[T] {
	return &Writable[T]{value: initial, subs: make(map[int]func(T))}
}

func (w *Writable[T]) Get() T {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.value
}

// Set replaces the value and notifies every subscriber.
func (w *Writable[T]) Set(v T) {
	w.mu.Lock()
	w.value = v
	subs := w.snapshot()
	w.mu.Unlock()

	for _, fn := range subs {
		fn(v)
	}
}

// Update sets the value to fn applied to the current one. Concurrent
// updates do not lose writes.
func (w *Writable[T]) Update(fn func(T) T) {
	w.mu.Lock()
	v := fn(w.value)
	w.value = v
	subs := w.snapshot()
	w.mu.Unlock()

	for _, fn := range subs {
		fn(v)
	}
}

func (w *Writable[T]) Subscribe(fn func(T)) func() {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.subs[id] = fn
	v := w.value
	w.mu.Unlock()

	fn(v)

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			delete(w.subs, id)
			w.mu.Unlock()
		})
	}
}

// Readonly returns a view of w without Set.
func (w *Writable[T]) Readonly() Readable[T] {
	return readonly[T]{w: w}
}

// snapshot copies the subscribers in subscription order. Callers hold mu.
func (w *Writable[T]) snapshot() []func(T) {
	subs := make([]func(T), 0, len(w.subs))
	for id := 0; id < w.nextID; id++ {
		if fn, ok := w.subs[id]; ok {
			subs = append(subs, fn)
		}
	}
	return subs
}

type readonly[T any] struct {
	w *Writable[T]
}

func (r readonly[T]) Get() T {
	return r.w.Get()
}

func (r readonly[T]) Subscribe(fn func(T)) func() {
	return r.w.Subscribe(fn)
}
