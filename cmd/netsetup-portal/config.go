package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/muurk/netsetup/internal/server"
)

// loadEnvFile loads NETSETUP_* variables from path without overriding
// variables already set. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// loadConfig builds the portal configuration from the environment and
// applies the flags the user set explicitly.
func loadConfig(cmd *cobra.Command) (*server.Config, error) {
	cfg, err := server.ConfigFromEnv()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host = host
	}
	if flags.Changed("port") {
		cfg.Port = port
	}
	if flags.Changed("dns-port") {
		cfg.DNSPort = dnsPort
	}
	if flags.Changed("portal-ip") {
		cfg.PortalIP = portalIP
	}
	if flags.Changed("hostname") {
		cfg.Hostname = hostname
	}
	if flags.Changed("radio") {
		cfg.Radio = radioKind
	}
	if flags.Changed("interface") {
		cfg.Interface = iface
	}
	if flags.Changed("no-advertise") {
		cfg.Advertise = !noAdvertise
	}
	if flags.Changed("store") {
		cfg.StorePath = storePath
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}

	return cfg, cfg.Validate()
}

// newRadio returns the radio cfg selects and a function that releases it
func newRadio(cfg *server.Config) (server.Radio, func()) {
	if cfg.Radio == server.RadioNmcli {
		r := server.NewNmcliRadio(cfg.Interface)
		return r, func() { _ = r.Close() }
	}
	return server.NewSimulatedRadio(server.DemoNetworks()), func() {}
}
