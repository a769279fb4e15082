package wizard

import "context"

// StepID identifies a step independently of its route.
type StepID string

// Identifiers of the setup wizard's steps.
const (
	StepHome     StepID = "home"
	StepNetworks StepID = "networks"
	StepConnect  StepID = "connect"
	StepFinish   StepID = "finish"
)

// Content is whatever a step displays once loaded.
type Content interface {
	View() string
}

// Text is Content that displays a fixed string.
type Text string

// View implements Content
func (t Text) View() string {
	return string(t)
}

// Loader produces a step's content from a snapshot of the wizard state.
// Loaders must return promptly once ctx is done.
type Loader func(ctx context.Context, state State) (Content, error)

// Guard decides whether a step may be entered in the given state.
type Guard func(state State) bool

// Step is one screen of the wizard, bound to a route.
type Step struct {
	ID    StepID
	Path  string
	Load  Loader
	Guard Guard // nil means always enterable
}

// CanEnter reports whether the step's guard admits state.
func (s Step) CanEnter(state State) bool {
	return s.Guard == nil || s.Guard(state)
}

// StaticLoader returns a Loader that always displays view.
func StaticLoader(view string) Loader {
	return func(context.Context, State) (Content, error) {
		return Text(view), nil
	}
}
