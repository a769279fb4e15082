package urls

// Wizard routes served by the setup portal. Every screen is the same
// single-file bundle; the path selects which step is shown.

// Home is the wizard's landing step and the captive portal target.
const Home = "/setup/"

// Networks lists the networks the device can see.
const Networks = "/setup/networks"

// Connect collects the password for the selected network.
const Connect = "/setup/connect"

// Finish reports the outcome of the connection attempt.
const Finish = "/setup/finish"

// Next rotates through the portal's redirect routes on every request.
const Next = "/setup/next"

// Setup API endpoints exposed by the portal.
const (
	APIList    = "/setup/api/list"
	APIConnect = "/setup/api/connect"
	APIStatus  = "/setup/api/status"
	APIDone    = "/setup/api/done"
	APIEvents  = "/setup/api/events"
)

// Troubleshooting is the guide linked from error hints.
const Troubleshooting = "https://muurk.github.io/netsetup/troubleshooting/"

// WizardRoutes returns the wizard's step routes in their declared order.
func WizardRoutes() []string {
	return []string{Home, Networks, Connect, Finish}
}
