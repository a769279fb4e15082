package config

import "time"

// Registry represents the entire user configuration file.
// It remembers portals the wizard has talked to and application preferences.
type Registry struct {
	Version     int                `yaml:"version"`
	Portals     map[string]*Portal `yaml:"portals,omitempty"` // Keyed by portal instance name
	Preferences *Preferences       `yaml:"preferences,omitempty"`
}

// Portal represents what the wizard remembers about one setup portal.
type Portal struct {
	Nickname     string    `yaml:"nickname,omitempty"`      // User-friendly name
	LastAddress  string    `yaml:"last_address,omitempty"`  // Last known host:port
	LastSeen     time.Time `yaml:"last_seen,omitempty"`     // Last discovery/connection time
	LastSSID     string    `yaml:"last_ssid,omitempty"`     // Network the device was last set up on
	ConfiguredAt time.Time `yaml:"configured_at,omitempty"` // When setup last completed
}

// Preferences represents application-wide user preferences.
// WiFi passwords are never stored; they are always prompted from the user.
type Preferences struct {
	AutoDiscover    bool `yaml:"auto_discover"`    // Browse for portals over mDNS on startup
	DiscoverTimeout int  `yaml:"discover_timeout"` // mDNS discovery timeout in seconds
	JoinTimeout     int  `yaml:"join_timeout"`     // Seconds to wait for the device to join
	UseEvents       bool `yaml:"use_events"`       // Follow joins over the events websocket
}

func defaultPreferences() *Preferences {
	return &Preferences{
		AutoDiscover:    true,
		DiscoverTimeout: 5,
		JoinTimeout:     30,
		UseEvents:       true,
	}
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     registryVersion,
		Portals:     make(map[string]*Portal),
		Preferences: defaultPreferences(),
	}
}

// GetPortal retrieves portal metadata by instance name.
// Returns nil if the portal doesn't exist in the registry.
func (r *Registry) GetPortal(instance string) *Portal {
	return r.Portals[instance]
}

// EnsurePortal returns the entry for instance, creating it if needed.
func (r *Registry) EnsurePortal(instance string) *Portal {
	if r.Portals == nil {
		r.Portals = make(map[string]*Portal)
	}

	if portal, exists := r.Portals[instance]; exists {
		return portal
	}

	portal := &Portal{}
	r.Portals[instance] = portal
	return portal
}

// UpdatePortalLastSeen updates the last seen timestamp and address for a portal.
func (r *Registry) UpdatePortalLastSeen(instance, address string) {
	portal := r.EnsurePortal(instance)
	portal.LastSeen = time.Now()
	portal.LastAddress = address
}

// RecordSetup remembers that the portal's device was set up on ssid.
func (r *Registry) RecordSetup(instance, ssid string) {
	portal := r.EnsurePortal(instance)
	portal.LastSSID = ssid
	portal.ConfiguredAt = time.Now()
}

// SetPortalNickname sets a user-friendly nickname for a portal.
func (r *Registry) SetPortalNickname(instance, nickname string) {
	portal := r.EnsurePortal(instance)
	portal.Nickname = nickname
}

// FindByAddress returns the instance name last seen at address.
func (r *Registry) FindByAddress(address string) (string, bool) {
	for instance, portal := range r.Portals {
		if portal.LastAddress == address {
			return instance, true
		}
	}
	return "", false
}
