package observable

import (
	"testing"
	"time"
)

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed")
		}
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for value")
	}
	var zero T
	return zero
}

func TestStreamPreservesOrder(t *testing.T) {
	s := NewStream[int]()
	for i := 0; i < 500; i++ {
		if !s.Push(i) {
			t.Fatalf("push %d rejected", i)
		}
	}
	s.CloseIntake()
	want := 0
	for v := range s.Out() {
		if v != want {
			t.Fatalf("expected %d, got %d", want, v)
		}
		want++
	}
	if want != 500 {
		t.Fatalf("expected 500 items, got %d", want)
	}
	if s.Push(1) {
		t.Fatalf("push after CloseIntake should be rejected")
	}
}

func TestStreamStopClosesOut(t *testing.T) {
	s := NewStream[string]()
	s.Push("a")
	s.Push("b")
	s.Stop()
	s.Stop()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-s.Out():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("Out not closed after Stop")
		}
	}
}

func TestValueWatchReplaysEveryTransition(t *testing.T) {
	v := NewValue("idle")
	ch, cancel := v.Watch()
	defer cancel()

	v.Set("loading")
	v.Set("done")

	for _, want := range []string{"idle", "loading", "done"} {
		if got := recv(t, ch); got != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
	}
	if v.Get() != "done" {
		t.Fatalf("Get: %q", v.Get())
	}
}

func TestValueCancelAndClose(t *testing.T) {
	v := NewValue(0)
	ch1, cancel1 := v.Watch()
	ch2, cancel2 := v.Watch()
	defer cancel2()
	recv(t, ch1)
	recv(t, ch2)

	cancel1()
	cancel1()
	v.Set(1)
	if got := recv(t, ch2); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}

	v.Close()
	v.Set(2)
	if v.Get() != 1 {
		t.Fatalf("Set after Close should be ignored")
	}
	select {
	case _, ok := <-ch2:
		if ok {
			t.Fatalf("expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("watcher not closed by Close")
	}

	ch3, cancel3 := v.Watch()
	defer cancel3()
	if got := recv(t, ch3); got != 1 {
		t.Fatalf("late watcher should see final value, got %d", got)
	}
}
