package wizard

import "github.com/muurk/netsetup/internal/urls"

// Loaders supplies the content of each setup step.
type Loaders struct {
	Home     Loader
	Networks Loader
	Connect  Loader
	Finish   Loader
}

// RequireNetwork admits a state that has a selected network.
func RequireNetwork(state State) bool {
	return state.HasNetwork()
}

// RequireSuccess admits a state whose last connection attempt succeeded.
func RequireSuccess(state State) bool {
	return state.Succeeded()
}

// SetupSteps returns the setup wizard's steps in order:
// Home, Networks, Connect, Finish.
func SetupSteps(l Loaders) []Step {
	return []Step{
		{ID: StepHome, Path: urls.Home, Load: l.Home},
		{ID: StepNetworks, Path: urls.Networks, Load: l.Networks},
		{ID: StepConnect, Path: urls.Connect, Load: l.Connect, Guard: RequireNetwork},
		{ID: StepFinish, Path: urls.Finish, Load: l.Finish, Guard: RequireSuccess},
	}
}
