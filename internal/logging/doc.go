// Package logging provides structured logging for the netsetup binaries.
//
// This package wraps a global zap logger with convenience functions for the
// events the wizard and the setup portal care about: navigation outcomes,
// state changes, portal HTTP traffic, backend client calls and link status
// changes.
//
// # Log Levels
//
//   - Debug: state mutations, successful backend calls, scan results
//   - Info: navigation, HTTP requests, link status changes
//   - Warn: failed backend calls, recovered navigation errors
//   - Error: startup failures, storage failures
//
// # Configuration
//
// Logging is silent unless a level is given, either explicitly or through
// NETSETUP_LOG_LEVEL. The terminal wizard relies on this: zap output on
// stdout would corrupt the alt-screen.
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// # Thread Safety
//
// All logging functions are safe for concurrent use once Initialize has
// returned.
package logging
