package wizard

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
)

// Rendered is a mounted step and the content it loaded.
type Rendered struct {
	Step    Step
	Content Content
	Route   Route

	// Requested is the path that was asked for. It differs from
	// Step.Path when a guard redirected the request.
	Requested  string
	Redirected bool
}

// View returns the mounted content's view.
func (r *Rendered) View() string {
	if r == nil || r.Content == nil {
		return ""
	}
	return r.Content.View()
}

// stateOwner is the Host's view of the Shell: it reads snapshots and
// commits the current step, nothing else.
type stateOwner interface {
	State() State

	// commitStep makes step current if its guard still admits the state.
	commitStep(step Step) bool
}

type loadResult struct {
	content Content
	err     error
}

// Host mounts steps. The last request wins: a new Mount cancels any load
// still pending from an earlier one, and a cancelled load commits nothing.
type Host struct {
	graph *Graph
	owner stateOwner

	mu       sync.Mutex
	seq      uint64
	cancel   context.CancelFunc
	current  *Rendered
	lastPath string
	tried    bool

	loads sync.WaitGroup
}

func newHost(graph *Graph, owner stateOwner) *Host {
	return &Host{graph: graph, owner: owner}
}

// Current returns the mounted step, or nil if nothing is mounted yet.
func (h *Host) Current() *Rendered {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Mount resolves path, applies guards and loads the resulting step.
//
// Errors:
//   - *NavigationError{UnknownRoute}: path names no step
//   - *NavigationError{Blocked}: no enterable step was found
//   - *NavigationError{Superseded}: a newer Mount, or ctx, cancelled this one
//   - *LoadError: the loader failed; the previous step stays mounted
func (h *Host) Mount(ctx context.Context, path string) (*Rendered, error) {
	h.mu.Lock()
	h.seq++
	seq := h.seq
	if h.cancel != nil {
		h.cancel()
	}
	loadCtx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	h.lastPath = path
	h.tried = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		if h.seq == seq {
			h.cancel = nil
		}
		h.mu.Unlock()
		cancel()
	}()

	route, err := ParseRoute(path)
	if err != nil {
		return nil, &NavigationError{Kind: UnknownRoute, Path: path, Err: err}
	}

	step, ok := h.graph.Resolve(route.Path)
	if !ok {
		return nil, &NavigationError{Kind: UnknownRoute, Path: path}
	}

	state := h.owner.State()
	target, err := h.admit(step, state)
	if err != nil {
		return nil, &NavigationError{Kind: Blocked, Path: path, Err: err}
	}

	content, err := h.load(loadCtx, target, state)
	if err != nil {
		if loadCtx.Err() != nil {
			return nil, &NavigationError{Kind: Superseded, Path: path, Err: loadCtx.Err()}
		}
		return nil, &LoadError{StepID: target.ID, Path: target.Path, Err: err}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.seq != seq {
		return nil, &NavigationError{Kind: Superseded, Path: path, Err: context.Canceled}
	}
	if !h.owner.commitStep(target) {
		return nil, &NavigationError{
			Kind: Blocked,
			Path: path,
			Err:  errors.Newf("state changed while loading step %q", target.ID),
		}
	}

	if target.ID != step.ID {
		route = Route{Path: target.Path}
	}
	h.current = &Rendered{
		Step:       target,
		Content:    content,
		Route:      route,
		Requested:  path,
		Redirected: target.ID != step.ID,
	}
	return h.current, nil
}

// Retry repeats the most recent Mount request.
func (h *Host) Retry(ctx context.Context) (*Rendered, error) {
	h.mu.Lock()
	path, tried := h.lastPath, h.tried
	h.mu.Unlock()

	if !tried {
		return nil, ErrNothingToRetry
	}
	return h.Mount(ctx, path)
}

// admit follows guard redirects from step until an enterable step is
// found. Chasing stops after as many hops as there are steps.
func (h *Host) admit(step Step, state State) (Step, error) {
	target := step
	for hops := 0; !h.graph.CanEnter(target, state); hops++ {
		if hops >= h.graph.Len() {
			return Step{}, errors.Newf("redirect limit reached from step %q", step.ID)
		}
		fallback, ok := h.graph.Fallback(target, state)
		if !ok {
			return Step{}, errors.Newf("no step may be entered from %q", step.ID)
		}
		target = fallback
	}
	return target, nil
}

// load runs the step's loader and waits for it or for ctx, whichever
// comes first.
func (h *Host) load(ctx context.Context, step Step, state State) (Content, error) {
	done := make(chan loadResult, 1)

	h.loads.Add(1)
	go func() {
		defer h.loads.Done()
		content, err := step.Load(ctx, state)
		done <- loadResult{content: content, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		if r.err == nil && r.content == nil {
			return nil, errors.Newf("step %q loaded no content", step.ID)
		}
		return r.content, r.err
	}
}

// wait blocks until every loader goroutine has returned.
func (h *Host) wait() {
	h.loads.Wait()
}
