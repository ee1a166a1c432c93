// Package dispatch provides the single-writer loop the state machines apply
// their transitions on.
package dispatch

import (
	"context"
	"sync"
)

// Loop runs posted functions one at a time on its own goroutine. Functions
// posted after Close are dropped, so results of tasks that outlive their
// owner are discarded instead of applied.
type Loop struct {
	ctx     context.Context
	cancel  context.CancelFunc
	actions chan func()
	stopped chan struct{}
	tasks   sync.WaitGroup
}

// NewLoop starts a loop bound to parent.
func NewLoop(parent context.Context) *Loop {
	ctx, cancel := context.WithCancel(parent)
	l := &Loop{
		ctx:     ctx,
		cancel:  cancel,
		actions: make(chan func()),
		stopped: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.stopped)
	for {
		select {
		case <-l.ctx.Done():
			return
		case fn := <-l.actions:
			if l.ctx.Err() != nil {
				return
			}
			fn()
		}
	}
}

// Context is cancelled when the loop closes.
func (l *Loop) Context() context.Context { return l.ctx }

// Post queues fn without waiting for it. It reports false if the loop is closed.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.ctx.Done():
		return false
	default:
	}
	select {
	case l.actions <- fn:
		return true
	case <-l.ctx.Done():
		return false
	}
}

// Do runs fn on the loop and waits for it. Must not be called from the loop itself.
func (l *Loop) Do(fn func()) bool {
	done := make(chan struct{})
	if !l.Post(func() { fn(); close(done) }) {
		return false
	}
	select {
	case <-done:
		return true
	case <-l.stopped:
		return false
	}
}

// Go runs task on a new goroutine. Tasks are not cancelled by Close; they
// should Post their result, which is dropped once the loop is closed.
func (l *Loop) Go(task func()) {
	l.tasks.Add(1)
	go func() {
		defer l.tasks.Done()
		task()
	}()
}

// Wait blocks until every task started with Go has returned.
func (l *Loop) Wait() { l.tasks.Wait() }

// Close stops the loop and waits for the loop goroutine to exit.
func (l *Loop) Close() {
	l.cancel()
	<-l.stopped
}
