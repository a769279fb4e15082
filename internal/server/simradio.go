package server

import (
	"context"
	"sync"
	"time"

	"github.com/muurk/netsetup/internal/backend"
)

// SimulatedNetwork is a network the simulated radio can see and join.
type SimulatedNetwork struct {
	backend.Network
	Password string
}

// SimulatedRadio is an in-memory Radio for demos and tests. A join
// succeeds when the password matches the network's.
type SimulatedRadio struct {
	// JoinDelay is how long a join takes; zero completes it immediately.
	JoinDelay time.Duration

	mu       sync.Mutex
	networks []SimulatedNetwork
	status   backend.LinkStatus
	ssid     string
	timer    *time.Timer
	gen      int
	scans    int
}

// NewSimulatedRadio creates a simulated radio that sees networks
func NewSimulatedRadio(networks []SimulatedNetwork) *SimulatedRadio {
	return &SimulatedRadio{
		networks: append([]SimulatedNetwork(nil), networks...),
		status:   backend.LinkIdle,
	}
}

// DemoNetworks returns a small neighbourhood for the demo portal.
func DemoNetworks() []SimulatedNetwork {
	return []SimulatedNetwork{
		{Network: backend.Network{SSID: "HomeWiFi", Signal: 82, Security: backend.SecurityWPA2}, Password: "secret123"},
		{Network: backend.Network{SSID: "Neighbour-5G", Signal: 47, Security: backend.SecurityWPA3}, Password: "not-yours-1"},
		{Network: backend.Network{SSID: "CoffeeShop", Signal: 31, Security: backend.SecurityOpen}},
	}
}

// Scan implements Radio
func (r *SimulatedRadio) Scan(ctx context.Context) ([]backend.Network, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.scans++
	out := make([]backend.Network, 0, len(r.networks))
	for _, n := range r.networks {
		out = append(out, n.Network)
	}
	return out, nil
}

// Join implements Radio
func (r *SimulatedRadio) Join(ctx context.Context, ssid, password string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopLocked()
	r.ssid = ssid
	r.status = backend.LinkDisconnected

	outcome := backend.LinkNoSSID
	for _, n := range r.networks {
		if n.SSID != ssid {
			continue
		}
		outcome = backend.LinkWrongPassword
		if n.Password == password {
			outcome = backend.LinkConnected
		}
		break
	}

	if r.JoinDelay <= 0 {
		r.status = outcome
		return nil
	}

	gen := r.gen
	r.timer = time.AfterFunc(r.JoinDelay, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.gen == gen {
			r.status = outcome
		}
	})
	return nil
}

// Status implements Radio
func (r *SimulatedRadio) Status() backend.LinkStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Disconnect implements Radio
func (r *SimulatedRadio) Disconnect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopLocked()
	r.ssid = ""
	r.status = backend.LinkDisconnected
	return nil
}

// SSID returns the network of the last join attempt.
func (r *SimulatedRadio) SSID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ssid
}

// Scans returns how many scans have run.
func (r *SimulatedRadio) Scans() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scans
}

// stopLocked abandons any join in progress.
func (r *SimulatedRadio) stopLocked() {
	r.gen++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}
