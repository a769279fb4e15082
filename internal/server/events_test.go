package server

import (
	"testing"

	"github.com/muurk/netsetup/internal/backend"
)

func TestHub_PublishReachesSubscribers(t *testing.T) {
	h := NewHub()
	a, cancelA := h.Subscribe()
	b, cancelB := h.Subscribe()
	defer cancelA()
	defer cancelB()

	ev := backend.StatusEvent{Status: backend.LinkConnected, SSID: "HomeWiFi"}
	h.Publish(ev)

	for i, ch := range []<-chan backend.StatusEvent{a, b} {
		if got := <-ch; got != ev {
			t.Errorf("subscriber %d got %+v, want %+v", i, got, ev)
		}
	}

	if last, ok := h.Last(); !ok || last != ev {
		t.Errorf("Last() = %+v, %v", last, ok)
	}
}

func TestHub_SlowSubscriberDropsOldest(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe()
	defer cancel()

	for i := 0; i < subscriberBuffer+3; i++ {
		h.Publish(backend.StatusEvent{Status: backend.LinkStatus(i % 8), SSID: string(rune('a' + i))})
	}

	first := <-ch
	if first.SSID != string(rune('a'+3)) {
		t.Errorf("oldest queued event = %q, want %q", first.SSID, string(rune('a'+3)))
	}
	if got := len(ch); got != subscriberBuffer-1 {
		t.Errorf("queued events = %d, want %d", got, subscriberBuffer-1)
	}
}

func TestHub_CancelClosesChannel(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe()

	cancel()
	cancel()

	if _, ok := <-ch; ok {
		t.Error("channel still open after cancel")
	}
	if h.Subscribers() != 0 {
		t.Errorf("Subscribers() = %d, want 0", h.Subscribers())
	}

	h.Publish(backend.StatusEvent{Status: backend.LinkIdle})
}
