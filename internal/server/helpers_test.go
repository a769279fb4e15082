package server

import (
	"context"
	"testing"
	"time"
)

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = 0
	cfg.DNSPort = 0
	cfg.Advertise = false
	cfg.StorePath = ":memory:"
	cfg.StatusInterval = 10 * time.Millisecond
	cfg.ShutdownTimeout = 2 * time.Second
	cfg.ConnectRate = 0
	return cfg
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(":memory:")
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestServer(t *testing.T, cfg *Config) (*Server, *SimulatedRadio, *Store) {
	t.Helper()
	radio := NewSimulatedRadio(DemoNetworks())
	store := openTestStore(t)
	srv, err := New(cfg, radio, store)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	srv.scanner.ScanNow(context.Background())
	return srv, radio, store
}

// eventually polls cond until it holds or the timeout expires.
func eventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before timeout")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
