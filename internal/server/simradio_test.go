package server

import (
	"context"
	"testing"
	"time"

	"github.com/muurk/netsetup/internal/backend"
)

func TestSimulatedRadio_JoinOutcomes(t *testing.T) {
	tests := []struct {
		name     string
		ssid     string
		password string
		want     backend.LinkStatus
	}{
		{"correct password", "HomeWiFi", "secret123", backend.LinkConnected},
		{"wrong password", "HomeWiFi", "nope-nope", backend.LinkWrongPassword},
		{"open network", "CoffeeShop", "", backend.LinkConnected},
		{"unknown network", "Nowhere", "whatever1", backend.LinkNoSSID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewSimulatedRadio(DemoNetworks())
			if err := r.Join(context.Background(), tt.ssid, tt.password); err != nil {
				t.Fatalf("Join() error = %v", err)
			}
			if got := r.Status(); got != tt.want {
				t.Errorf("Status() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSimulatedRadio_DelayedJoin(t *testing.T) {
	r := NewSimulatedRadio(DemoNetworks())
	r.JoinDelay = 20 * time.Millisecond

	if got := r.Status(); got != backend.LinkIdle {
		t.Errorf("initial Status() = %v, want idle", got)
	}
	_ = r.Join(context.Background(), "HomeWiFi", "secret123")
	if got := r.Status(); got != backend.LinkDisconnected {
		t.Errorf("Status() during join = %v, want disconnected", got)
	}
	eventually(t, time.Second, func() bool { return r.Status() == backend.LinkConnected })
}

func TestSimulatedRadio_DisconnectAbandonsJoin(t *testing.T) {
	r := NewSimulatedRadio(DemoNetworks())
	r.JoinDelay = 20 * time.Millisecond

	_ = r.Join(context.Background(), "HomeWiFi", "secret123")
	_ = r.Disconnect(context.Background())
	time.Sleep(50 * time.Millisecond)

	if got := r.Status(); got != backend.LinkDisconnected {
		t.Errorf("Status() = %v, want disconnected", got)
	}
}

func TestSimulatedRadio_Scan(t *testing.T) {
	r := NewSimulatedRadio(DemoNetworks())
	got, err := r.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(got) != len(DemoNetworks()) {
		t.Errorf("Scan() returned %d networks, want %d", len(got), len(DemoNetworks()))
	}
	if r.Scans() != 1 {
		t.Errorf("Scans() = %d, want 1", r.Scans())
	}
}
