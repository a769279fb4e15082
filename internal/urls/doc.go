// Package urls centralises the route paths shared by the setup portal,
// the backend client and the wizard's navigation graph.
//
// Keeping these in one place guarantees that the portal serves the bundle on
// exactly the paths the wizard navigates to:
//
//	/setup/          Home
//	/setup/networks  Networks
//	/setup/connect   Connect
//	/setup/finish    Finish
package urls
