package backend

import "fmt"

// 802.11 and WPA passphrase limits
const (
	MaxSSIDLength     = 32
	MinPasswordLength = 8
	MaxPasswordLength = 63
)

// ValidateSSID validates a WiFi SSID.
// SSIDs must be non-empty and <= 32 bytes (802.11 limit).
func ValidateSSID(ssid string) error {
	if ssid == "" {
		return NewValidationError("WiFi SSID cannot be empty")
	}
	if len(ssid) > MaxSSIDLength {
		return NewValidationError(fmt.Sprintf("WiFi SSID too long (max 32 bytes): %d bytes", len(ssid)))
	}
	return nil
}

// ValidatePassword validates a WiFi password against the network's security type.
// Open networks take no password; WPA-family networks need 8-63 characters.
// Networks of unknown security accept either.
func ValidatePassword(password string, security string) error {
	switch security {
	case "", SecurityOpen:
		if password != "" {
			return NewValidationError("open networks do not take a password")
		}
	case SecurityUnknown:
		if password != "" && (len(password) < MinPasswordLength || len(password) > MaxPasswordLength) {
			return NewValidationError(fmt.Sprintf("WiFi password must be empty or 8-63 chars: %d chars", len(password)))
		}
	case SecurityWEP:
		if l := len(password); l != 5 && l != 13 && l != 10 && l != 26 {
			return NewValidationError(fmt.Sprintf("WEP key must be 5, 10, 13 or 26 characters: %d chars", l))
		}
	default:
		if password == "" {
			return NewValidationError(fmt.Sprintf("WiFi password required for %s security", security))
		}
		if len(password) < MinPasswordLength {
			return NewValidationError(fmt.Sprintf("%s password too short (min 8 chars): %d chars", security, len(password)))
		}
		if len(password) > MaxPasswordLength {
			return NewValidationError(fmt.Sprintf("%s password too long (max 63 chars): %d chars", security, len(password)))
		}
	}
	return nil
}
