package wizard

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muurk/netsetup/internal/logging"
)

// Shell owns a wizard session: its state, its step graph and the host that
// mounts steps. Steps read snapshots and change state only through
// Dispatch.
type Shell struct {
	steps []Step

	mu       sync.RWMutex
	state    State
	graph    *Graph
	host     *Host
	session  string
	started  bool
	stopped  bool
	ctx      context.Context
	cancel   context.CancelFunc
	inFlight sync.WaitGroup
}

// NewShell creates a shell for the given step list. Nothing is validated
// until Start.
func NewShell(steps []Step) *Shell {
	return &Shell{steps: append([]Step(nil), steps...)}
}

// Start registers the steps, resets the state and mounts initialPath. An
// unknown initialPath mounts the first step instead. A configuration
// error aborts the start and leaves the shell unusable.
func (s *Shell) Start(ctx context.Context, initialPath string) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}

	graph := NewGraph()
	if err := graph.Register(s.steps...); err != nil {
		s.mu.Unlock()
		return errors.Wrap(err, "start wizard")
	}

	s.graph = graph
	s.host = newHost(graph, s)
	s.state = State{}
	s.session = uuid.NewString()
	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.started = true
	session := s.session
	s.mu.Unlock()

	logging.Info("Wizard session started",
		zap.String("session", session),
		zap.String("initial_path", initialPath),
		zap.Int("steps", graph.Len()),
	)

	_, err := s.Navigate(ctx, initialPath)
	if IsUnknownRoute(err) {
		first, _ := graph.First()
		logging.Debug("Unknown initial route, mounting first step",
			zap.String("session", session),
			zap.String("path", initialPath),
		)
		_, err = s.Navigate(ctx, first.Path)
	}
	return err
}

// Stop ends the session: pending loads and backend calls are cancelled
// and Stop waits for them to return. Calling Stop again does nothing.
func (s *Shell) Stop() {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	cancel, host, session := s.cancel, s.host, s.session
	s.mu.Unlock()

	cancel()
	s.inFlight.Wait()
	host.wait()

	logging.Info("Wizard session stopped", zap.String("session", session))
}

// SessionID returns the id of the running session.
func (s *Shell) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// State returns a snapshot of the session state.
func (s *Shell) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Graph returns the registered step graph, or nil before Start.
func (s *Shell) Graph() *Graph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph
}

// Current returns the mounted step, or nil.
func (s *Shell) Current() *Rendered {
	s.mu.RLock()
	host := s.host
	s.mu.RUnlock()

	if host == nil {
		return nil
	}
	return host.Current()
}

// Dispatch applies action to the session state. On error the state is
// unchanged.
func (s *Shell) Dispatch(action Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || s.stopped {
		return ErrNotRunning
	}

	next := s.state.clone()
	if err := action.apply(&next); err != nil {
		return err
	}
	s.state = next

	logging.LogStateChange(s.session, action.name())
	return nil
}

// commitStep implements stateOwner.
func (s *Shell) commitStep(step Step) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !step.CanEnter(s.state) {
		return false
	}
	s.state.CurrentStep = step.ID
	return true
}

// Navigate mounts the step for path.
func (s *Shell) Navigate(ctx context.Context, path string) (*Rendered, error) {
	ctx, host, done, err := s.enter(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	r, err := host.Mount(ctx, path)
	s.logNavigation(path, r, err)
	return r, err
}

// Advance mounts the step after the current one.
func (s *Shell) Advance(ctx context.Context) (*Rendered, error) {
	return s.move(ctx, (*Graph).Next, ErrLastStep)
}

// Back mounts the step before the current one.
func (s *Shell) Back(ctx context.Context) (*Rendered, error) {
	return s.move(ctx, (*Graph).Prev, ErrFirstStep)
}

func (s *Shell) move(ctx context.Context, step func(*Graph, StepID) (Step, bool), edge error) (*Rendered, error) {
	graph := s.Graph()
	if graph == nil {
		return nil, ErrNotRunning
	}

	target, ok := step(graph, s.State().CurrentStep)
	if !ok {
		return nil, edge
	}
	return s.Navigate(ctx, target.Path)
}

// GoTo mounts the step with the given id.
func (s *Shell) GoTo(ctx context.Context, id StepID) (*Rendered, error) {
	graph := s.Graph()
	if graph == nil {
		return nil, ErrNotRunning
	}

	step, ok := graph.Lookup(id)
	if !ok {
		return nil, &NavigationError{Kind: UnknownRoute, Path: string(id)}
	}
	return s.Navigate(ctx, step.Path)
}

// Retry repeats the most recent navigation, typically after a LoadError.
func (s *Shell) Retry(ctx context.Context) (*Rendered, error) {
	ctx, host, done, err := s.enter(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	r, err := host.Retry(ctx)
	s.logNavigation("retry", r, err)
	return r, err
}

// Restart discards the session state and mounts the first step.
func (s *Shell) Restart(ctx context.Context) (*Rendered, error) {
	if err := s.Dispatch(Reset{}); err != nil {
		return nil, err
	}

	first, ok := s.Graph().First()
	if !ok {
		return nil, ErrNotRunning
	}
	return s.Navigate(ctx, first.Path)
}

// enter registers in-flight work against the session. The returned
// context is cancelled when either ctx or the session ends.
func (s *Shell) enter(ctx context.Context) (context.Context, *Host, func(), error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started || s.stopped {
		return nil, nil, nil, ErrNotRunning
	}
	s.inFlight.Add(1)

	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)

	done := func() {
		stop()
		cancel()
		s.inFlight.Done()
	}
	return ctx, s.host, done, nil
}

func (s *Shell) logNavigation(requested string, r *Rendered, err error) {
	mounted := ""
	if r != nil {
		mounted = r.Step.Path
	}

	outcome := "mounted"
	switch {
	case err != nil:
		outcome = err.Error()
	case r.Redirected:
		outcome = "redirected"
	}
	logging.LogNavigation(s.SessionID(), requested, mounted, outcome)
}
