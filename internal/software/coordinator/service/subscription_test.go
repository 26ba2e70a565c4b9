package service

import (
	"sync"
	"testing"
)

func TestSubscriptionLatestWins(t *testing.T) {
	sub := newSubscription[int](1, nil)

	sub.push(1)
	sub.push(2)
	sub.push(3)

	if got := <-sub.C(); got != 3 {
		t.Fatalf("expected the newest value 3, got %d", got)
	}
	select {
	case v := <-sub.C():
		t.Fatalf("no further value expected, got %d", v)
	default:
	}
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	closed := 0
	sub := newSubscription[int](1, func() { closed++ })

	sub.Close()
	sub.Close()

	if closed != 1 {
		t.Fatalf("onClose must fire exactly once, fired %d times", closed)
	}
	if _, ok := <-sub.C(); ok {
		t.Fatal("channel must be closed")
	}

	// pushes after Close are dropped without panicking
	sub.push(42)
}

func TestSubscriptionConcurrentPushAndClose(t *testing.T) {
	for i := 0; i < 50; i++ {
		sub := newSubscription[int](1, nil)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				sub.push(j)
			}
		}()
		go func() {
			defer wg.Done()
			sub.Close()
		}()
		wg.Wait()
	}
}

func TestSubscriptionBufferedValueSurvivesClose(t *testing.T) {
	sub := newSubscription[string](1, nil)
	sub.push("last")
	sub.Close()

	v, ok := <-sub.C()
	if !ok || v != "last" {
		t.Fatalf("buffered value should be readable after Close, got %q ok=%v", v, ok)
	}
	if _, ok := <-sub.C(); ok {
		t.Fatal("channel must end after the buffered value")
	}
}
