// Package wizard implements the setup wizard kernel: an ordered set of
// guarded steps, a host that mounts them, and a shell that owns the
// session state.
//
// # Steps
//
// The setup wizard has four steps, entered in order:
//
//	/setup/          Home      always
//	/setup/networks  Networks  always
//	/setup/connect   Connect   needs a selected network
//	/setup/finish    Finish    needs a successful connection
//
// A request for a step whose guard fails is redirected to the nearest
// enterable step before it, so asking for Connect with no network selected
// shows Networks.
//
// # Navigation
//
// Mounting is asynchronous. The last request wins: a new navigation
// cancels the load of any pending one, and a cancelled load never changes
// the state. A failed load leaves the previous step displayed; Retry
// repeats the request.
//
// # Usage Example
//
//	shell := wizard.NewShell(wizard.SetupSteps(loaders))
//	if err := shell.Start(ctx, "/setup/"); err != nil {
//	    return err
//	}
//	defer shell.Stop()
//
//	networks, _ := shell.ScanNetworks(ctx, client)
//	shell.ChooseNetwork(ctx, wizard.NetworkFrom(networks[0]))
//	shell.SubmitConnection(ctx, client, "secret123")
//
// The tui subpackage renders the steps in a terminal.
package wizard
