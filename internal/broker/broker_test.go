package broker

import (
	"sync"
	"testing"
	"time"
)

func TestSubscribeAndPublish(t *testing.T) {
	b := New()
	sub := b.Subscribe("live")
	defer sub.Close()

	b.Publish("live")

	select {
	case <-sub.C:
		// success
	case <-time.After(100 * time.Millisecond):
		t.Fatal("expected signal on channel")
	}
}

func TestCloseStopsDelivery(t *testing.T) {
	b := New()
	sub := b.Subscribe("live")
	sub.Close()
	sub.Close()

	b.Publish("live")

	select {
	case <-sub.C:
		t.Fatal("should not receive after close")
	case <-time.After(50 * time.Millisecond):
		// success
	}
}

func TestCrossTopicIsolation(t *testing.T) {
	b := New()
	live := b.Subscribe("live")
	other := b.Subscribe("other")
	defer live.Close()
	defer other.Close()

	b.Publish("live")

	select {
	case <-live.C:
		// expected
	case <-time.After(100 * time.Millisecond):
		t.Fatal("live subscriber should have received signal")
	}

	select {
	case <-other.C:
		t.Fatal("other subscriber should not receive signal from live publish")
	case <-time.After(50 * time.Millisecond):
		// expected
	}
}

func TestNonBlockingCoalescing(t *testing.T) {
	b := New()
	sub := b.Subscribe("live")
	defer sub.Close()

	// Publish multiple times without reading; must not block
	for range 10 {
		b.Publish("live")
	}

	select {
	case <-sub.C:
		// got the coalesced signal
	case <-time.After(100 * time.Millisecond):
		t.Fatal("expected at least one signal")
	}

	select {
	case <-sub.C:
		t.Fatal("expected channel to be drained after one read")
	case <-time.After(50 * time.Millisecond):
		// success
	}
}

func TestMultipleSubscribers(t *testing.T) {
	b := New()
	s1 := b.Subscribe("live")
	s2 := b.Subscribe("live")
	defer s1.Close()
	defer s2.Close()

	if n := b.Subscribers("live"); n != 2 {
		t.Fatalf("Subscribers() = %d, want 2", n)
	}

	b.Publish("live")

	for i, sub := range []*Subscription{s1, s2} {
		select {
		case <-sub.C:
			// expected
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("subscriber %d should have received signal", i)
		}
	}
}

func TestCloseCleansUpEmptyTopic(t *testing.T) {
	b := New()
	sub := b.Subscribe("live")
	sub.Close()

	b.mu.Lock()
	_, exists := b.subs["live"]
	b.mu.Unlock()

	if exists {
		t.Fatal("expected topic entry to be removed after last close")
	}
	if n := b.Subscribers("live"); n != 0 {
		t.Errorf("Subscribers() = %d, want 0", n)
	}
}

func TestPublishWithoutSubscribers(t *testing.T) {
	b := New()
	// Should not panic
	b.Publish("nobody")
}

func TestConcurrentAccess(t *testing.T) {
	b := New()
	var wg sync.WaitGroup

	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub := b.Subscribe("live")
			b.Publish("live")
			<-sub.C
			sub.Close()
		}()
	}

	wg.Wait()
}
