package server

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/muurk/netsetup/internal/urls"
)

// EnvPrefix prefixes every environment variable the portal reads.
const EnvPrefix = "NETSETUP_"

// Radio backends selectable with Config.Radio.
const (
	RadioSimulated = "simulated"
	RadioNmcli     = "nmcli"
)

// Defaults taken from the device firmware.
const (
	DefaultPortalIP          = "192.168.100.24"
	DefaultHTTPPort          = 80
	DefaultDNSPort           = 53
	DefaultDiscoveryInterval = 10 * time.Second
	DefaultStatusInterval    = 250 * time.Millisecond
	DefaultShutdownTimeout   = 10 * time.Second
)

// Config holds the portal configuration
type Config struct {
	Host     string // Listen address ("" = all interfaces)
	Port     int
	DNSPort  int    // Captive DNS port (0 = disabled)
	PortalIP string // Address captive DNS answers with

	// Hostname is the access point name; it is also the mDNS instance name.
	Hostname  string
	Advertise bool

	Radio     string // RadioSimulated or RadioNmcli
	Interface string // Wireless interface for the nmcli radio

	StorePath string // SQLite DSN for the credential store

	DiscoveryInterval time.Duration
	StatusInterval    time.Duration
	ShutdownTimeout   time.Duration

	// NextRoutes are the redirect targets /setup/next rotates through.
	NextRoutes []string

	// ConnectRate limits connect requests per client (per second, with ConnectBurst).
	ConnectRate  float64
	ConnectBurst int

	LogLevel string
}

// DefaultConfig returns the configuration the firmware uses.
func DefaultConfig() *Config {
	return &Config{
		Port:              DefaultHTTPPort,
		DNSPort:           DefaultDNSPort,
		PortalIP:          DefaultPortalIP,
		Hostname:          "netsetup",
		Advertise:         true,
		Radio:             RadioSimulated,
		StorePath:         "netsetup.db",
		DiscoveryInterval: DefaultDiscoveryInterval,
		StatusInterval:    DefaultStatusInterval,
		ShutdownTimeout:   DefaultShutdownTimeout,
		NextRoutes:        []string{urls.Networks, urls.Finish},
		ConnectRate:       1,
		ConnectBurst:      3,
	}
}

// ConfigFromEnv returns DefaultConfig overridden by NETSETUP_* environment
// variables. Callers load any .env file first.
func ConfigFromEnv() (*Config, error) {
	cfg := DefaultConfig()

	cfg.Host = getEnv("HOST", cfg.Host)
	cfg.PortalIP = getEnv("PORTAL_IP", cfg.PortalIP)
	cfg.Hostname = getEnv("HOSTNAME", cfg.Hostname)
	cfg.Radio = getEnv("RADIO", cfg.Radio)
	cfg.Interface = getEnv("INTERFACE", cfg.Interface)
	cfg.StorePath = getEnv("STORE", cfg.StorePath)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	var err error
	if cfg.Port, err = getEnvInt("PORT", cfg.Port); err != nil {
		return nil, err
	}
	if cfg.DNSPort, err = getEnvInt("DNS_PORT", cfg.DNSPort); err != nil {
		return nil, err
	}
	if cfg.ConnectBurst, err = getEnvInt("CONNECT_BURST", cfg.ConnectBurst); err != nil {
		return nil, err
	}
	if cfg.Advertise, err = getEnvBool("ADVERTISE", cfg.Advertise); err != nil {
		return nil, err
	}
	if cfg.DiscoveryInterval, err = getEnvDuration("DISCOVERY_INTERVAL", cfg.DiscoveryInterval); err != nil {
		return nil, err
	}
	if v := getEnv("CONNECT_RATE", ""); v != "" {
		if cfg.ConnectRate, err = strconv.ParseFloat(v, 64); err != nil {
			return nil, fmt.Errorf("invalid %sCONNECT_RATE %q: %w", EnvPrefix, v, err)
		}
	}
	if v := getEnv("NEXT_ROUTES", ""); v != "" {
		cfg.NextRoutes = splitList(v)
	}

	return cfg, cfg.Validate()
}

// Validate checks the configuration for values the portal cannot run with
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.DNSPort < 0 || c.DNSPort > 65535 {
		return fmt.Errorf("invalid DNS port %d", c.DNSPort)
	}
	if net.ParseIP(c.PortalIP).To4() == nil {
		return fmt.Errorf("portal IP %q is not an IPv4 address", c.PortalIP)
	}
	if c.Hostname == "" {
		return fmt.Errorf("hostname cannot be empty")
	}
	switch c.Radio {
	case RadioSimulated, RadioNmcli:
	default:
		return fmt.Errorf("unknown radio %q (want %s or %s)", c.Radio, RadioSimulated, RadioNmcli)
	}
	if c.StorePath == "" {
		return fmt.Errorf("credential store path cannot be empty")
	}
	if c.DiscoveryInterval < time.Second {
		return fmt.Errorf("discovery interval %s is below 1s", c.DiscoveryInterval)
	}
	if len(c.NextRoutes) == 0 {
		return fmt.Errorf("at least one next route is required")
	}
	for _, route := range c.NextRoutes {
		if !strings.HasPrefix(route, "/") {
			return fmt.Errorf("next route %q must be an absolute path", route)
		}
	}
	if c.ConnectRate < 0 || c.ConnectBurst < 0 {
		return fmt.Errorf("connect rate limit cannot be negative")
	}
	return nil
}

// Addr returns the HTTP listen address
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(EnvPrefix + key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s%s %q: %w", EnvPrefix, key, v, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s%s %q: %w", EnvPrefix, key, v, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s%s %q: %w", EnvPrefix, key, v, err)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
