package wizard

import (
	"sync"

	"github.com/cockroachdb/errors"
)

// Graph is the fixed, ordered set of wizard steps. Declaration order is the
// only order: steps are never reordered after registration.
type Graph struct {
	mu         sync.RWMutex
	steps      []Step
	byPath     map[string]int
	byID       map[StepID]int
	registered bool
}

// NewGraph returns an empty graph; call Register once to populate it.
func NewGraph() *Graph {
	return &Graph{}
}

// Register installs the step list. It may only be called once, and either
// accepts the whole list or none of it.
func (g *Graph) Register(steps ...Step) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.registered {
		return &ConfigurationError{Reason: "steps are already registered"}
	}
	if len(steps) == 0 {
		return &ConfigurationError{Reason: "no steps to register"}
	}

	byPath := make(map[string]int, len(steps))
	byID := make(map[StepID]int, len(steps))

	for i, step := range steps {
		switch {
		case step.ID == "":
			return &ConfigurationError{Path: step.Path, Reason: "step has no id"}
		case step.Path == "":
			return &ConfigurationError{StepID: step.ID, Reason: "step has no path"}
		case step.Load == nil:
			return &ConfigurationError{StepID: step.ID, Path: step.Path, Reason: "step has no loader"}
		}

		key := normalizePath(step.Path)
		if prev, dup := byPath[key]; dup {
			return errors.WithHintf(
				&ConfigurationError{StepID: step.ID, Path: step.Path, Reason: "duplicate path"},
				"path is already registered by step %q", steps[prev].ID)
		}
		if _, dup := byID[step.ID]; dup {
			return &ConfigurationError{StepID: step.ID, Path: step.Path, Reason: "duplicate id"}
		}

		byPath[key] = i
		byID[step.ID] = i
	}

	g.steps = append([]Step(nil), steps...)
	g.byPath = byPath
	g.byID = byID
	g.registered = true
	return nil
}

// Len returns the number of registered steps.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.steps)
}

// Steps returns the registered steps in order.
func (g *Graph) Steps() []Step {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]Step(nil), g.steps...)
}

// Resolve returns the step registered for path.
func (g *Graph) Resolve(path string) (Step, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	i, ok := g.byPath[normalizePath(path)]
	if !ok {
		return Step{}, false
	}
	return g.steps[i], true
}

// Lookup returns the step with the given id.
func (g *Graph) Lookup(id StepID) (Step, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	i, ok := g.byID[id]
	if !ok {
		return Step{}, false
	}
	return g.steps[i], true
}

// CanEnter reports whether step may become current in state.
func (g *Graph) CanEnter(step Step, state State) bool {
	return step.CanEnter(state)
}

// First returns the first registered step.
func (g *Graph) First() (Step, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if len(g.steps) == 0 {
		return Step{}, false
	}
	return g.steps[0], true
}

// Next returns the step after id, or false if id is the last step or unknown.
func (g *Graph) Next(id StepID) (Step, bool) {
	return g.offset(id, 1)
}

// Prev returns the step before id, or false if id is the first step or unknown.
func (g *Graph) Prev(id StepID) (Step, bool) {
	return g.offset(id, -1)
}

func (g *Graph) offset(id StepID, delta int) (Step, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	i, ok := g.byID[id]
	if !ok {
		return Step{}, false
	}
	j := i + delta
	if j < 0 || j >= len(g.steps) {
		return Step{}, false
	}
	return g.steps[j], true
}

// Fallback picks the step to show instead of target when target's guard
// fails: the nearest enterable step at or before target, otherwise the
// first enterable step in declared order.
func (g *Graph) Fallback(target Step, state State) (Step, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if i, ok := g.byID[target.ID]; ok {
		for j := i; j >= 0; j-- {
			if g.steps[j].CanEnter(state) {
				return g.steps[j], true
			}
		}
	}

	for _, step := range g.steps {
		if step.CanEnter(state) {
			return step, true
		}
	}
	return Step{}, false
}
