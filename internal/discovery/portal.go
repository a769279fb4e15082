package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Portal is a setup portal found on the local network
type Portal struct {
	// Instance is the advertised mDNS instance name (the device's access point name)
	Instance string

	// Hostname is the mDNS hostname (e.g., "netsetup.local.")
	Hostname string

	// IP is the portal address, IPv4 when one was advertised
	IP string

	// Port is the HTTP port (typically 80)
	Port int

	// Path is the wizard entry path from the TXT record (e.g., "/setup/")
	Path string

	// Metadata contains all mDNS TXT record data
	Metadata map[string]string

	// DiscoveredAt is when the portal was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the portal
func (p *Portal) String() string {
	return fmt.Sprintf("Setup portal %s (%s) at %s", p.Instance, p.Hostname, p.Address())
}

// Address returns host:port, bracketing IPv6 addresses
func (p *Portal) Address() string {
	return net.JoinHostPort(p.IP, strconv.Itoa(p.Port))
}

// BaseURL returns the HTTP base URL for the portal
func (p *Portal) BaseURL() string {
	return "http://" + p.Address()
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (p *Portal) GetMetadata(key string) string {
	if p.Metadata == nil {
		return ""
	}
	return p.Metadata[key]
}
