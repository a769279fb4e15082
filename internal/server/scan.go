package server

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/muurk/netsetup/internal/backend"
	"github.com/muurk/netsetup/internal/logging"
)

// Scanner rescans for networks on a fixed interval and keeps the latest
// result for the list endpoint.
type Scanner struct {
	radio    Radio
	interval time.Duration

	mu       sync.RWMutex
	networks []backend.Network
	scanned  time.Time

	cron *cron.Cron
}

// NewScanner creates a scanner that scans radio every interval.
func NewScanner(radio Radio, interval time.Duration) *Scanner {
	return &Scanner{
		radio:    radio,
		interval: interval,
		networks: []backend.Network{},
	}
}

// Start runs a scan immediately and schedules the rest. Scans stop when
// ctx is done or Stop is called.
func (s *Scanner) Start(ctx context.Context) {
	s.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	s.cron.Schedule(cron.Every(s.interval), cron.FuncJob(func() {
		if ctx.Err() == nil {
			s.ScanNow(ctx)
		}
	}))
	s.cron.Start()

	go s.ScanNow(ctx)
}

// Stop cancels future scans and waits for a running one to finish.
func (s *Scanner) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

// ScanNow runs one scan. A failed scan keeps the previous result.
func (s *Scanner) ScanNow(ctx context.Context) {
	found, err := s.radio.Scan(ctx)
	if err != nil {
		logging.Warn("Network scan failed", zap.Error(err))
		return
	}

	networks := dedupeNetworks(found)

	s.mu.Lock()
	s.networks = networks
	s.scanned = time.Now()
	s.mu.Unlock()

	logging.Debug("Network scan completed", zap.Int("networks", len(networks)))
}

// Networks returns the most recent scan result, strongest first. It is
// never nil.
func (s *Scanner) Networks() []backend.Network {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]backend.Network{}, s.networks...)
}

// LastScan returns when the current result was taken.
func (s *Scanner) LastScan() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scanned
}

// dedupeNetworks keeps the strongest entry per SSID and drops hidden
// networks.
func dedupeNetworks(found []backend.Network) []backend.Network {
	best := make(map[string]backend.Network, len(found))
	for _, n := range found {
		if n.SSID == "" {
			continue
		}
		if prev, ok := best[n.SSID]; !ok || n.Signal > prev.Signal {
			best[n.SSID] = n
		}
	}

	out := make([]backend.Network, 0, len(best))
	for _, n := range best {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Signal != out[j].Signal {
			return out[i].Signal > out[j].Signal
		}
		return out[i].SSID < out[j].SSID
	})
	return out
}
