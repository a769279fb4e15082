package backend

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"syscall"

	"github.com/sony/gobreaker/v2"

	"github.com/muurk/netsetup/internal/urls"
)

// TransportKind classifies why the portal could not be reached.
type TransportKind int

const (
	TransportGeneral TransportKind = iota
	TransportTimeout
	TransportRefused
	TransportDNS
	TransportHostUnreachable
	TransportNetworkUnreachable
	TransportCircuitOpen
)

// String returns a human-readable name for the transport kind
func (k TransportKind) String() string {
	switch k {
	case TransportGeneral:
		return "Network Error"
	case TransportTimeout:
		return "Timeout"
	case TransportRefused:
		return "Connection Refused"
	case TransportDNS:
		return "DNS Error"
	case TransportHostUnreachable:
		return "Host Unreachable"
	case TransportNetworkUnreachable:
		return "Network Unreachable"
	case TransportCircuitOpen:
		return "Circuit Open"
	default:
		return fmt.Sprintf("TransportKind(%d)", int(k))
	}
}

// TransportError means the request never got an answer from the device.
type TransportError struct {
	Kind      TransportKind
	Message   string
	Endpoint  string
	Err       error
	Retryable bool
}

// Error implements the error interface
func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *TransportError) Unwrap() error {
	return e.Err
}

// DeviceKind classifies how the device refused a request.
type DeviceKind int

const (
	DeviceHTTP DeviceKind = iota
	DeviceRejected
	DeviceNoNetwork
	DeviceJoinTimeout
	DeviceBusy
	DeviceParse
	DeviceValidation
)

// String returns a human-readable name for the device error kind
func (k DeviceKind) String() string {
	switch k {
	case DeviceHTTP:
		return "HTTP Error"
	case DeviceRejected:
		return "Rejected"
	case DeviceNoNetwork:
		return "Network Not Found"
	case DeviceJoinTimeout:
		return "Join Timeout"
	case DeviceBusy:
		return "Busy"
	case DeviceParse:
		return "Parse Error"
	case DeviceValidation:
		return "Validation Error"
	default:
		return fmt.Sprintf("DeviceKind(%d)", int(k))
	}
}

// DeviceError means the device answered but refused or failed the request.
type DeviceError struct {
	Kind       DeviceKind
	Message    string
	StatusCode int        // HTTP status code (if applicable)
	Link       LinkStatus // Final link status (join failures only)
	Err        error
	Retryable  bool
}

// Error implements the error interface
func (e *DeviceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *DeviceError) Unwrap() error {
	return e.Err
}

// ClassifyTransportError analyzes a request failure and returns a typed transport error
func ClassifyTransportError(err error, endpoint string) *TransportError {
	if err == nil {
		return nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &TransportError{
			Kind:     TransportCircuitOpen,
			Message:  "too many recent failures, not contacting device",
			Endpoint: endpoint,
			Err:      err,
		}
	}

	if os.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return &TransportError{
			Kind:      TransportTimeout,
			Message:   "request timed out",
			Endpoint:  endpoint,
			Err:       err,
			Retryable: true,
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &TransportError{
			Kind:     TransportDNS,
			Message:  fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name),
			Endpoint: endpoint,
			Err:      err,
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		switch {
		case errors.Is(opErr.Err, syscall.ECONNREFUSED):
			return &TransportError{
				Kind:      TransportRefused,
				Message:   "device refused connection",
				Endpoint:  endpoint,
				Err:       err,
				Retryable: true,
			}
		case errors.Is(opErr.Err, syscall.EHOSTUNREACH):
			return &TransportError{
				Kind:      TransportHostUnreachable,
				Message:   "host unreachable",
				Endpoint:  endpoint,
				Err:       err,
				Retryable: true,
			}
		case errors.Is(opErr.Err, syscall.ENETUNREACH):
			return &TransportError{
				Kind:      TransportNetworkUnreachable,
				Message:   "network unreachable",
				Endpoint:  endpoint,
				Err:       err,
				Retryable: true,
			}
		}
	}

	return &TransportError{
		Kind:      TransportGeneral,
		Message:   "network error occurred",
		Endpoint:  endpoint,
		Err:       err,
		Retryable: true,
	}
}

// NewTransportError creates a transport error with automatic classification
func NewTransportError(message, endpoint string, err error) *TransportError {
	classified := ClassifyTransportError(err, endpoint)
	if classified == nil {
		return &TransportError{Kind: TransportGeneral, Message: message, Endpoint: endpoint, Retryable: true}
	}
	classified.Message = message
	return classified
}

// NewHTTPError creates an HTTP-level device error
func NewHTTPError(statusCode int, message string) *DeviceError {
	if statusCode == 429 {
		return &DeviceError{
			Kind:       DeviceBusy,
			Message:    message,
			StatusCode: statusCode,
			Retryable:  true,
		}
	}
	return &DeviceError{
		Kind:       DeviceHTTP,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  statusCode >= 500,
	}
}

// NewJoinError creates the device error for a join that ended in status.
func NewJoinError(ssid string, status LinkStatus) *DeviceError {
	switch status {
	case LinkNoSSID:
		return &DeviceError{Kind: DeviceNoNetwork, Message: fmt.Sprintf("network %q is not in range", ssid), Link: status}
	case LinkWrongPassword:
		return &DeviceError{Kind: DeviceRejected, Message: fmt.Sprintf("network %q rejected the password", ssid), Link: status}
	default:
		return &DeviceError{Kind: DeviceRejected, Message: fmt.Sprintf("device could not join %q (%s)", ssid, status), Link: status}
	}
}

// NewParseError creates a parse error
func NewParseError(message string, err error) *DeviceError {
	return &DeviceError{Kind: DeviceParse, Message: message, Err: err}
}

// NewValidationError creates a validation error
func NewValidationError(message string) *DeviceError {
	return &DeviceError{Kind: DeviceValidation, Message: message}
}

// IsTransportError reports whether err means the device could not be reached
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsDeviceError reports whether err means the device answered with a refusal
func IsDeviceError(err error) bool {
	var de *DeviceError
	return errors.As(err, &de)
}

// IsValidationError checks if an error is a local validation error
func IsValidationError(err error) bool {
	var de *DeviceError
	return errors.As(err, &de) && de.Kind == DeviceValidation
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}
	var de *DeviceError
	if errors.As(err, &de) {
		return de.Retryable
	}
	return false
}

// ShortMessage returns a concise, user-facing message that distinguishes
// "can't reach device" from "device rejected the request".
func ShortMessage(err error) string {
	var te *TransportError
	if errors.As(err, &te) {
		switch te.Kind {
		case TransportTimeout:
			return "Can't reach device: not responding (timeout)"
		case TransportRefused:
			return "Can't reach device: connection refused"
		case TransportDNS:
			return "Can't reach device: cannot resolve hostname"
		case TransportHostUnreachable, TransportNetworkUnreachable:
			return "Can't reach device: check you are on its WiFi network"
		case TransportCircuitOpen:
			return "Can't reach device: pausing after repeated failures"
		default:
			return "Can't reach device: network error"
		}
	}

	var de *DeviceError
	if errors.As(err, &de) {
		switch de.Kind {
		case DeviceRejected:
			return "Device rejected the request: " + de.Message
		case DeviceNoNetwork:
			return "Device rejected the request: " + de.Message
		case DeviceJoinTimeout:
			return "Device did not finish joining the network in time"
		case DeviceBusy:
			return "Device is busy, try again in a moment"
		case DeviceParse:
			return "Device sent a response that could not be read"
		case DeviceValidation:
			return de.Message
		default:
			return fmt.Sprintf("Device rejected the request (HTTP %d)", de.StatusCode)
		}
	}

	if err == nil {
		return ""
	}
	return err.Error()
}

// TroubleshootingHint returns user-friendly troubleshooting advice for an error
func TroubleshootingHint(err error) string {
	var te *TransportError
	if errors.As(err, &te) {
		hint := []string{"The setup portal could not be reached.", "Troubleshooting:"}
		switch te.Kind {
		case TransportTimeout:
			hint = append(hint,
				"  • Check that the device is powered on",
				"  • Move closer to the device to improve signal strength")
		case TransportRefused:
			hint = append(hint,
				"  • The device may already be configured and no longer serve the portal",
				"  • Reset the device to start setup again")
		case TransportDNS:
			hint = append(hint,
				"  • Use the portal IP address instead of its hostname")
		case TransportCircuitOpen:
			hint = append(hint,
				"  • Wait a few seconds before retrying")
		default:
			hint = append(hint,
				"  • Connect to the device's setup WiFi network",
				"  • Verify the portal address")
		}
		hint = append(hint, "  • See "+urls.Troubleshooting)
		return strings.Join(hint, "\n")
	}

	var de *DeviceError
	if errors.As(err, &de) {
		switch de.Kind {
		case DeviceRejected:
			return strings.Join([]string{
				"The device could not join the network.",
				"Troubleshooting:",
				"  • Re-enter the password (it is case-sensitive)",
				"  • Check the router accepts new clients",
			}, "\n")
		case DeviceNoNetwork:
			return strings.Join([]string{
				"The device cannot see the selected network.",
				"Troubleshooting:",
				"  • Rescan and pick a network with a stronger signal",
				"  • 5GHz-only networks are not supported by most devices",
			}, "\n")
		case DeviceJoinTimeout:
			return "The device is still trying to join. Wait a moment and check the status again."
		case DeviceHTTP:
			if de.StatusCode >= 500 {
				return fmt.Sprintf("The device returned an error (HTTP %d). Try rebooting the device.", de.StatusCode)
			}
			return fmt.Sprintf("The device returned HTTP error %d. Check the request parameters.", de.StatusCode)
		}
		return "Check the error message for details."
	}

	return "An unexpected error occurred. Please try again."
}
