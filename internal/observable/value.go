package observable

import "sync"

// Value holds the latest T and replays every change, in order, to each watcher.
type Value[T any] struct {
	mu       sync.RWMutex
	cur      T
	watchers map[int]*Stream[T]
	next     int
	closed   bool
}

// NewValue returns a Value seeded with initial.
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{cur: initial, watchers: map[int]*Stream[T]{}}
}

// Get returns the current value.
func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.cur
}

// Set stores x and publishes it to all watchers. Ignored after Close.
func (v *Value[T]) Set(x T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.cur = x
	for _, w := range v.watchers {
		w.Push(x)
	}
}

// Watch returns a channel that first yields the current value and then every
// subsequent Set. The cancel func releases the watcher and closes the channel.
func (v *Value[T]) Watch() (<-chan T, func()) {
	s := NewStream[T]()
	v.mu.Lock()
	s.Push(v.cur)
	if v.closed {
		v.mu.Unlock()
		s.CloseIntake()
		return s.Out(), func() { s.Stop() }
	}
	id := v.next
	v.next++
	v.watchers[id] = s
	v.mu.Unlock()

	var once sync.Once
	return s.Out(), func() {
		once.Do(func() {
			v.mu.Lock()
			delete(v.watchers, id)
			v.mu.Unlock()
			s.Stop()
		})
	}
}

// Close freezes the value; watchers receive what is already queued and then
// their channels close.
func (v *Value[T]) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.closed = true
	for id, w := range v.watchers {
		w.CloseIntake()
		delete(v.watchers, id)
	}
}
