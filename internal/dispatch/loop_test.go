package dispatch

import (
	"context"
	"sync/atomic"
	"testing"
)

func TestLoopRunsInPostOrder(t *testing.T) {
	l := NewLoop(context.Background())
	defer l.Close()

	var got []int
	for i := 0; i < 100; i++ {
		i := i
		if !l.Post(func() { got = append(got, i) }) {
			t.Fatalf("post %d rejected", i)
		}
	}
	l.Do(func() {})
	if len(got) != 100 {
		t.Fatalf("expected 100 actions, got %d", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("out of order at %d: %d", i, v)
		}
	}
}

func TestLoopDropsAfterClose(t *testing.T) {
	l := NewLoop(context.Background())
	l.Close()
	var ran atomic.Bool
	if l.Post(func() { ran.Store(true) }) {
		t.Fatalf("post after close accepted")
	}
	if l.Do(func() { ran.Store(true) }) {
		t.Fatalf("do after close reported success")
	}
	if ran.Load() {
		t.Fatalf("action ran after close")
	}
}

func TestLoopTaskResultDiscardedAfterClose(t *testing.T) {
	l := NewLoop(context.Background())
	release := make(chan struct{})
	var applied atomic.Bool
	l.Go(func() {
		<-release
		l.Post(func() { applied.Store(true) })
	})
	l.Close()
	close(release)
	l.Wait()
	if applied.Load() {
		t.Fatalf("stale task result applied")
	}
}
