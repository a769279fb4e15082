package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/muurk/netsetup/internal/backend"
	"github.com/muurk/netsetup/internal/wizard"
)

// Backend is the portal API the terminal wizard drives. *backend.Client
// satisfies it.
type Backend interface {
	wizard.Backend
	wizard.Finisher
}

// homeContent is the landing step: which portal we are talking to.
type homeContent struct {
	portal string
}

func (c homeContent) View() string {
	var b strings.Builder
	b.WriteString("This wizard connects the device to your WiFi network.\n\n")
	fmt.Fprintf(&b, "  Portal: %s\n\n", c.portal)
	b.WriteString("The device will scan for networks it can see. Pick yours,\n")
	b.WriteString("enter its password and the device will try to join it.")
	return b.String()
}

// networksContent is the device's scan list.
type networksContent struct {
	networks []backend.Network
}

func (c networksContent) View() string {
	if len(c.networks) == 0 {
		return "No networks found"
	}
	var b strings.Builder
	for _, n := range c.networks {
		fmt.Fprintf(&b, "%s %s\n", SignalBars(n.SignalBars()), n.SSID)
	}
	return b.String()
}

// connectContent asks for the selected network's password.
type connectContent struct {
	network wizard.Network
}

func (c connectContent) View() string {
	return fmt.Sprintf("Join %s (%s)", c.network.SSID, securityLabel(c.network.Security))
}

// open reports whether the network needs no password.
func (c connectContent) open() bool {
	n := backend.Network{Security: c.network.Security}
	return n.IsOpen()
}

// finishContent confirms the joined network before the device commits it.
type finishContent struct {
	ssid string
}

func (c finishContent) View() string {
	return fmt.Sprintf("The device joined %s.", c.ssid)
}

// Steps builds the setup wizard's steps for a terminal session against be.
func Steps(be Backend, portal string) []wizard.Step {
	return wizard.SetupSteps(wizard.Loaders{
		Home: func(context.Context, wizard.State) (wizard.Content, error) {
			return homeContent{portal: portal}, nil
		},
		Networks: func(ctx context.Context, _ wizard.State) (wizard.Content, error) {
			networks, err := be.ListNetworks(ctx)
			if err != nil {
				return nil, err
			}
			return networksContent{networks: networks}, nil
		},
		Connect: func(_ context.Context, state wizard.State) (wizard.Content, error) {
			if state.Network == nil {
				return nil, wizard.ErrNoNetwork
			}
			return connectContent{network: *state.Network}, nil
		},
		Finish: func(_ context.Context, state wizard.State) (wizard.Content, error) {
			if state.Network == nil {
				return nil, errors.Wrap(wizard.ErrNoNetwork, "finish")
			}
			return finishContent{ssid: state.Network.SSID}, nil
		},
	})
}

func securityLabel(security string) string {
	switch security {
	case "", backend.SecurityOpen:
		return "open"
	case backend.SecurityUnknown:
		return "unknown security"
	default:
		return security
	}
}
