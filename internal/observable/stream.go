// Package observable provides ordered, non-blocking value streams used to
// publish state transitions and store snapshots to readers.
package observable

import "sync"

// Stream is an unbounded FIFO in front of a channel. Push never blocks the
// writer; a broker goroutine moves the backlog to Out in push order.
type Stream[T any] struct {
	mu      sync.Mutex
	backlog []T
	closed  bool

	notify   chan struct{}
	out      chan T
	done     chan struct{}
	stopOnce sync.Once
}

// NewStream creates a Stream and starts its broker.
func NewStream[T any]() *Stream[T] {
	s := &Stream[T]{
		notify: make(chan struct{}, 1),
		out:    make(chan T),
		done:   make(chan struct{}),
	}
	go s.broker()
	return s
}

// Push appends v to the backlog. It reports false once intake is closed.
func (s *Stream[T]) Push(v T) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.backlog = append(s.backlog, v)
	s.mu.Unlock()
	s.signal()
	return true
}

// CloseIntake rejects further pushes; Out is closed after the backlog drains.
func (s *Stream[T]) CloseIntake() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.signal()
}

// Stop abandons the backlog and closes Out as soon as the broker notices.
func (s *Stream[T]) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.backlog = nil
		s.mu.Unlock()
		close(s.done)
	})
}

// Out exposes the ordered output channel.
func (s *Stream[T]) Out() <-chan T { return s.out }

func (s *Stream[T]) signal() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Stream[T]) broker() {
	defer close(s.out)
	var zero T
	for {
		s.mu.Lock()
		if len(s.backlog) == 0 {
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return
			}
			select {
			case <-s.notify:
				continue
			case <-s.done:
				return
			}
		}
		item := s.backlog[0]
		s.backlog[0] = zero
		s.backlog = s.backlog[1:]
		s.mu.Unlock()

		select {
		case s.out <- item:
		case <-s.done:
			return
		}
	}
}
