// Package config provides user configuration management for the netsetup wizard.
//
// This package manages a YAML-based configuration file that remembers setup
// portals the wizard has talked to (nickname, last address, the network the
// device was last set up on) and application preferences. The configuration
// follows OS-specific conventions for storage location.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/netsetup/config.yaml or $HOME/.config/netsetup/config.yaml
//   - macOS: $HOME/.config/netsetup/config.yaml
//   - Windows: %LOCALAPPDATA%\netsetup\config.yaml
//
// NETSETUP_CONFIG_DIR overrides the directory.
//
// # Security
//
// IMPORTANT: This package NEVER stores WiFi passwords. They are always
// prompted from the user when needed.
//
// # Usage Example
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	registry.UpdatePortalLastSeen("netsetup", "192.168.100.24:80")
//	registry.RecordSetup("netsetup", "HomeWiFi")
//
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across goroutines.
// File writes are protected by a mutex and are atomic.
package config
