package wizard

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrNotRunning is returned by session operations before Start or after Stop.
	ErrNotRunning = errors.New("wizard is not running")

	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("wizard already started")

	// ErrLastStep is returned by Advance when the current step is the last one.
	ErrLastStep = errors.New("already at the last step")

	// ErrFirstStep is returned by Back when the current step is the first one.
	ErrFirstStep = errors.New("already at the first step")

	// ErrNoNetwork is returned by actions that need a selected network.
	ErrNoNetwork = errors.New("no network selected")

	// ErrStaleResult is returned when a connection result no longer matches
	// the selected network.
	ErrStaleResult = errors.New("connection result is for a different network")

	// ErrNothingToRetry is returned by Retry before any mount was requested.
	ErrNothingToRetry = errors.New("no navigation to retry")
)

// ConfigurationError reports an invalid step list. It is fatal: the wizard
// refuses to start.
type ConfigurationError struct {
	StepID StepID
	Path   string
	Reason string
}

func (e *ConfigurationError) Error() string {
	switch {
	case e.StepID != "" && e.Path != "":
		return fmt.Sprintf("invalid step configuration: step %q (%s): %s", e.StepID, e.Path, e.Reason)
	case e.StepID != "":
		return fmt.Sprintf("invalid step configuration: step %q: %s", e.StepID, e.Reason)
	default:
		return "invalid step configuration: " + e.Reason
	}
}

// NavigationKind classifies a failed navigation.
type NavigationKind int

const (
	// UnknownRoute means the path does not belong to any step.
	UnknownRoute NavigationKind = iota

	// Superseded means a newer navigation, or the end of the session,
	// cancelled this one before it committed.
	Superseded

	// Blocked means no step reachable from the request may be entered.
	Blocked
)

// String returns a human-readable name for the navigation kind
func (k NavigationKind) String() string {
	switch k {
	case UnknownRoute:
		return "unknown route"
	case Superseded:
		return "superseded"
	case Blocked:
		return "blocked"
	default:
		return fmt.Sprintf("NavigationKind(%d)", int(k))
	}
}

// NavigationError reports a navigation that mounted nothing.
type NavigationError struct {
	Kind NavigationKind
	Path string
	Err  error
}

func (e *NavigationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("navigate to %q: %s: %v", e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("navigate to %q: %s", e.Path, e.Kind)
}

func (e *NavigationError) Unwrap() error {
	return e.Err
}

// LoadError reports a step whose content could not be produced. The
// previously mounted step stays displayed; Retry repeats the request.
type LoadError struct {
	StepID StepID
	Path   string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load step %q: %v", e.StepID, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// IsConfigurationError reports whether err is a step configuration error.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsNavigationError reports whether err is a navigation error of the given kind.
func IsNavigationError(err error, kind NavigationKind) bool {
	var ne *NavigationError
	return errors.As(err, &ne) && ne.Kind == kind
}

// IsUnknownRoute reports whether err is an UnknownRoute navigation error.
func IsUnknownRoute(err error) bool {
	return IsNavigationError(err, UnknownRoute)
}

// IsSuperseded reports whether err is a Superseded navigation error.
func IsSuperseded(err error) bool {
	return IsNavigationError(err, Superseded)
}

// IsLoadError reports whether err is a step load failure.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}
