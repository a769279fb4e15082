// Package backend provides an HTTP client for a device's setup portal.
//
// The portal is the firmware-side half of network setup: while the device
// runs its own access point it serves the setup wizard and a small API at
// /setup/api/. This package wraps that API for the wizard kernel and the
// command line tools.
//
// # Endpoints
//
//   - GET  /setup/api/list: networks from the device's last scan
//   - POST /setup/api/connect: form fields ssid and password; starts a join
//   - GET  /setup/api/status: numeric link status as plain text
//   - GET  /setup/api/events: websocket stream of link status changes
//   - POST /setup/api/done: persist credentials and restart
//   - GET  /setup/next: redirect to the portal's next route
//
// # Errors
//
// Every failure is one of two kinds so callers can tell the user what went
// wrong:
//
//   - *TransportError: the portal could not be reached ("can't reach device")
//   - *DeviceError: the portal answered but refused ("device rejected the request")
//
// Use IsTransportError and IsDeviceError to branch, and ShortMessage or
// TroubleshootingHint to render them.
//
// # Usage Example
//
//	client := backend.NewClient("192.168.100.24", 80)
//
//	networks, err := client.ListNetworks(ctx)
//	if err != nil {
//	    fmt.Println(backend.ShortMessage(err))
//	    return
//	}
//
//	result, err := client.Connect(ctx, networks[0].SSID, "secret123")
//	if backend.IsDeviceError(err) {
//	    fmt.Println(result.ErrorDetail)
//	}
//
// Requests are retried with exponential backoff when the error is
// retryable, and a circuit breaker stops contacting a portal after repeated
// transport failures.
package backend
