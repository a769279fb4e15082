// Package server implements the device-side setup portal.
//
// An unconfigured device starts an access point and runs this portal on
// it. Clients that join the access point are steered to the wizard by a
// captive DNS resolver that answers every name with the portal's IP, and
// by an HTTP fallback that redirects every unknown path to /setup/.
//
// # Routes
//
//	GET  /setup/, /setup/networks,     wizard bundle (same page, path picks the step)
//	     /setup/connect, /setup/finish
//	GET  /setup/next                   302 to the next of Config.NextRoutes, cycling
//	GET  /setup/api/list               JSON scan list, strongest first
//	POST /setup/api/connect            form ssid, password; starts a join
//	GET  /setup/api/status             link status code as text/plain
//	GET  /setup/api/events             websocket stream of link status events
//	POST /setup/api/done               persist the network and restart
//
// # Boot loop
//
// Begin mirrors the firmware's boot: a device with stored credentials
// joins that network and is done. Otherwise the portal runs (scanner,
// link watcher, captive DNS, mDNS advertisement, HTTP) until a client
// posts /setup/api/done, then the device boots again with the saved
// credentials.
//
// # Radios
//
// SimulatedRadio serves a fixed set of networks for demos and tests.
// NmcliRadio drives a real interface through NetworkManager.
//
// # Usage
//
//	cfg, err := server.ConfigFromEnv()
//	store, err := server.OpenStore(cfg.StorePath)
//	srv, err := server.New(cfg, server.NewSimulatedRadio(server.DemoNetworks()), store)
//	if err := srv.Begin(ctx); err != nil {
//	    return err
//	}
//	status, err := srv.AwaitLink(ctx)
package server
