// Package discovery finds setup portals on the local network over mDNS.
//
// A device in setup mode advertises its portal as an "_http._tcp" service
// whose instance name is the device's access point name and whose TXT
// record carries "path=/setup/". Plain HTTP services without that record
// are ignored.
//
// # Usage Example
//
//	portals, err := discovery.ScanForPortals(ctx, 5*time.Second)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, p := range portals {
//	    fmt.Printf("Found: %s at %s\n", p.Instance, p.BaseURL())
//	}
//
// # Network Requirements
//
//   - Requires multicast support on the network interface
//   - The client must have joined the device's access point
//   - Firewall must allow mDNS (UDP port 5353)
package discovery
