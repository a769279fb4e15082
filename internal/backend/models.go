package backend

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Security types reported for a network.
const (
	SecurityOpen = "OPEN"
	SecurityWEP  = "WEP"
	SecurityWPA  = "WPA"
	SecurityWPA2 = "WPA2"
	SecurityWPA3 = "WPA3"

	// SecurityUnknown marks networks reported without security information.
	SecurityUnknown = "UNKNOWN"
)

// Network is one entry of the portal's scan list.
type Network struct {
	SSID     string `json:"ssid"`
	Signal   int    `json:"signal"`   // Signal strength in percent (0-100)
	Security string `json:"security"` // One of the Security* constants
}

// UnmarshalJSON accepts either a full network object or a bare SSID
// string. Firmware builds without signal reporting publish the latter.
func (n *Network) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, `"`) {
		var ssid string
		if err := json.Unmarshal(data, &ssid); err != nil {
			return err
		}
		*n = Network{SSID: ssid, Security: SecurityUnknown}
		return nil
	}

	type plain Network
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*n = Network(p)
	return nil
}

// IsOpen reports whether the network accepts a join without a password.
func (n Network) IsOpen() bool {
	return n.Security == "" || strings.EqualFold(n.Security, SecurityOpen)
}

// SignalBars converts the signal percentage to a 0-4 bar count.
func (n Network) SignalBars() int {
	switch {
	case n.Signal >= 75:
		return 4
	case n.Signal >= 50:
		return 3
	case n.Signal >= 25:
		return 2
	case n.Signal > 0:
		return 1
	default:
		return 0
	}
}

// LinkStatus is the device's station link status. The numeric values are
// the firmware's wl_status_t codes, which GET /setup/api/status returns as
// plain text.
type LinkStatus int

const (
	LinkIdle           LinkStatus = 0
	LinkNoSSID         LinkStatus = 1
	LinkScanCompleted  LinkStatus = 2
	LinkConnected      LinkStatus = 3
	LinkConnectFailed  LinkStatus = 4
	LinkConnectionLost LinkStatus = 5
	LinkWrongPassword  LinkStatus = 6
	LinkDisconnected   LinkStatus = 7
)

// String returns a human-readable name for the link status
func (s LinkStatus) String() string {
	switch s {
	case LinkIdle:
		return "idle"
	case LinkNoSSID:
		return "no-ssid"
	case LinkScanCompleted:
		return "scan-completed"
	case LinkConnected:
		return "connected"
	case LinkConnectFailed:
		return "connect-failed"
	case LinkConnectionLost:
		return "connection-lost"
	case LinkWrongPassword:
		return "wrong-password"
	case LinkDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("LinkStatus(%d)", int(s))
	}
}

// Terminal reports whether a join attempt has finished in this status.
func (s LinkStatus) Terminal() bool {
	switch s {
	case LinkConnected, LinkNoSSID, LinkConnectFailed, LinkConnectionLost, LinkWrongPassword:
		return true
	default:
		return false
	}
}

// ParseLinkStatus parses the text body of GET /setup/api/status.
func ParseLinkStatus(text string) (LinkStatus, error) {
	code, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return LinkIdle, fmt.Errorf("invalid link status %q: %w", text, err)
	}
	if code < int(LinkIdle) || code > int(LinkDisconnected) {
		return LinkIdle, fmt.Errorf("link status %d out of range", code)
	}
	return LinkStatus(code), nil
}

// StatusEvent is the message pushed on the /setup/api/events websocket.
type StatusEvent struct {
	Status LinkStatus `json:"status"`
	SSID   string     `json:"ssid,omitempty"`
}

// Outcome is the final result of a connection attempt.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// ConnectResult is returned by Client.Connect.
type ConnectResult struct {
	Status      Outcome
	Link        LinkStatus
	ErrorDetail string
}
