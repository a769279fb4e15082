package wizard

import (
	"github.com/cockroachdb/errors"

	"github.com/muurk/netsetup/internal/backend"
)

// Network is the network the user picked.
type Network struct {
	SSID           string
	SignalStrength int
	Security       string
}

// NetworkFrom converts a scan entry into a selectable network.
func NetworkFrom(n backend.Network) Network {
	return Network{SSID: n.SSID, SignalStrength: n.Signal, Security: n.Security}
}

// Credentials holds what the user typed for the selected network.
type Credentials struct {
	Password string
}

// ConnectionStatus is the outcome of a connection attempt.
type ConnectionStatus string

const (
	StatusSuccess ConnectionStatus = "success"
	StatusFailure ConnectionStatus = "failure"
)

// ConnectionResult records the last connection attempt.
type ConnectionResult struct {
	Status      ConnectionStatus
	ErrorDetail string
}

// State is the data a wizard session accumulates. The Shell owns the only
// live copy; everything else sees snapshots.
type State struct {
	CurrentStep StepID
	Network     *Network
	Credentials *Credentials
	Result      *ConnectionResult
}

// HasNetwork reports whether a network has been selected.
func (s State) HasNetwork() bool {
	return s.Network != nil
}

// Succeeded reports whether the last connection attempt succeeded.
func (s State) Succeeded() bool {
	return s.Result != nil && s.Result.Status == StatusSuccess
}

// clone returns a copy that shares no pointers with s.
func (s State) clone() State {
	c := State{CurrentStep: s.CurrentStep}
	if s.Network != nil {
		n := *s.Network
		c.Network = &n
	}
	if s.Credentials != nil {
		cr := *s.Credentials
		c.Credentials = &cr
	}
	if s.Result != nil {
		r := *s.Result
		c.Result = &r
	}
	return c
}

// Action is a state mutation request. Steps submit actions through
// Shell.Dispatch; an action that fails leaves the state untouched.
type Action interface {
	apply(s *State) error
	name() string
}

// SelectNetwork picks the network to join. Credentials and results from a
// previous selection are discarded.
type SelectNetwork struct {
	Network Network
}

func (a SelectNetwork) name() string { return "select_network" }

func (a SelectNetwork) apply(s *State) error {
	if err := backend.ValidateSSID(a.Network.SSID); err != nil {
		return errors.Wrap(err, "select network")
	}
	n := a.Network
	s.Network = &n
	s.Credentials = nil
	s.Result = nil
	return nil
}

// SubmitCredentials stores the password for the selected network and
// clears any previous result.
type SubmitCredentials struct {
	Password string
}

func (a SubmitCredentials) name() string { return "submit_credentials" }

func (a SubmitCredentials) apply(s *State) error {
	if s.Network == nil {
		return errors.Wrap(ErrNoNetwork, "submit credentials")
	}
	if err := backend.ValidatePassword(a.Password, s.Network.Security); err != nil {
		return errors.Wrap(err, "submit credentials")
	}
	s.Credentials = &Credentials{Password: a.Password}
	s.Result = nil
	return nil
}

// RecordResult stores the outcome of a connection attempt. When SSID is
// set the result is only recorded if that network is still selected.
type RecordResult struct {
	SSID   string
	Result ConnectionResult
}

func (a RecordResult) name() string { return "record_result" }

func (a RecordResult) apply(s *State) error {
	if s.Network == nil {
		return errors.Wrap(ErrNoNetwork, "record result")
	}
	if a.SSID != "" && a.SSID != s.Network.SSID {
		return errors.Wrapf(ErrStaleResult, "record result for %q", a.SSID)
	}
	switch a.Result.Status {
	case StatusSuccess, StatusFailure:
	default:
		return errors.Newf("record result: unknown status %q", a.Result.Status)
	}
	r := a.Result
	s.Result = &r
	return nil
}

// Reset discards everything the session has collected. The current step
// is kept; Shell.Restart also returns to the first step.
type Reset struct{}

func (Reset) name() string { return "reset" }

func (Reset) apply(s *State) error {
	*s = State{CurrentStep: s.CurrentStep}
	return nil
}
