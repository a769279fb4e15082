package discovery

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"

	"github.com/muurk/netsetup/internal/urls"
)

const (
	// ServiceType is the mDNS service type portals advertise under
	ServiceType = "_http._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for portal discovery
	DefaultScanTimeout = 5 * time.Second

	// DefaultPort is the default HTTP port for portals
	DefaultPort = 80
)

// browseFunc browses for service entries until ctx is done.
type browseFunc func(ctx context.Context, entries chan<- *zeroconf.ServiceEntry) error

// Scanner handles mDNS portal discovery
type Scanner struct {
	// Timeout is the maximum time to wait for portals to answer
	Timeout time.Duration

	browse browseFunc
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
		browse:  browseZeroconf,
	}
}

func browseZeroconf(ctx context.Context, entries chan<- *zeroconf.ServiceEntry) error {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return fmt.Errorf("failed to create mDNS resolver: %w", err)
	}
	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return fmt.Errorf("failed to browse for mDNS services: %w", err)
	}
	return nil
}

// ScanForPortals collects every portal that answers before the timeout.
// Portals are returned sorted by instance name, one per address.
func (s *Scanner) ScanForPortals(ctx context.Context) ([]*Portal, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)

	var (
		mu      sync.Mutex
		portals = make(map[string]*Portal)
		wg      sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case entry, ok := <-entries:
				if !ok {
					return
				}
				if portal := parseServiceEntry(entry); portal != nil {
					mu.Lock()
					portals[portal.Address()] = portal
					mu.Unlock()
				}
			}
		}
	}()

	if err := s.browse(ctx, entries); err != nil {
		cancel()
		wg.Wait()
		return nil, err
	}

	<-ctx.Done()
	wg.Wait()

	out := make([]*Portal, 0, len(portals))
	for _, p := range portals {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Instance != out[j].Instance {
			return out[i].Instance < out[j].Instance
		}
		return out[i].Address() < out[j].Address()
	})
	return out, nil
}

// WaitForPortal returns the first portal whose instance name matches
// (case-insensitively), or any portal when instance is empty.
func (s *Scanner) WaitForPortal(ctx context.Context, instance string) (*Portal, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	found := make(chan *Portal, 1)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case entry, ok := <-entries:
				if !ok {
					return
				}
				portal := parseServiceEntry(entry)
				if portal == nil {
					continue
				}
				if instance == "" || strings.EqualFold(portal.Instance, instance) {
					found <- portal
					cancel()
					return
				}
			}
		}
	}()

	if err := s.browse(ctx, entries); err != nil {
		return nil, err
	}

	select {
	case portal := <-found:
		return portal, nil
	case <-ctx.Done():
		select {
		case portal := <-found:
			return portal, nil
		default:
		}
		if instance == "" {
			return nil, fmt.Errorf("no setup portal found within %s", s.Timeout)
		}
		return nil, fmt.Errorf("setup portal %q not found within %s", instance, s.Timeout)
	}
}

// parseServiceEntry converts a zeroconf service entry to a Portal.
// Returns nil unless the entry advertises the setup wizard path.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Portal {
	if entry == nil {
		return nil
	}

	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		key, value, _ := strings.Cut(txt, "=")
		metadata[key] = value
	}
	if metadata["path"] != urls.Home {
		return nil
	}

	var ip string
	for _, addr := range entry.AddrIPv4 {
		ip = addr.String()
		break
	}
	if ip == "" && len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	return &Portal{
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Path:         metadata["path"],
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// ScanForPortals is a convenience function to scan with a custom timeout
func ScanForPortals(ctx context.Context, timeout time.Duration) ([]*Portal, error) {
	scanner := NewScanner()
	scanner.Timeout = timeout
	return scanner.ScanForPortals(ctx)
}
