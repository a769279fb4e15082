package wizard

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// startShell starts a shell over steps at path and stops it when the test ends.
func startShell(t *testing.T, steps []Step, path string) *Shell {
	t.Helper()
	s := NewShell(steps)
	if err := s.Start(context.Background(), path); err != nil {
		t.Fatalf("Start(%q) error = %v", path, err)
	}
	t.Cleanup(s.Stop)
	return s
}

func TestMount_UnknownRoute(t *testing.T) {
	s := startShell(t, testSteps(), "/setup/")

	for _, path := range []string{"/setup/nope", "/", "/setup/api/list", "%zz"} {
		_, err := s.Navigate(context.Background(), path)
		if !IsUnknownRoute(err) {
			t.Errorf("Navigate(%q) error = %v, want UnknownRoute", path, err)
		}
	}

	if got := s.Current().Step.ID; got != StepHome {
		t.Errorf("Current() = %s after unknown routes, want home", got)
	}
}

func TestMount_GuardRedirectsConnectToNetworks(t *testing.T) {
	s := startShell(t, testSteps(), "/setup/")

	r, err := s.Navigate(context.Background(), "/setup/connect")
	if err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}
	if r.Step.ID != StepNetworks {
		t.Errorf("mounted %s, want networks", r.Step.ID)
	}
	if !r.Redirected || r.Requested != "/setup/connect" {
		t.Errorf("Rendered = %+v, want redirect from /setup/connect", r)
	}
	if got := s.State().CurrentStep; got != StepNetworks {
		t.Errorf("State().CurrentStep = %s, want networks", got)
	}
}

func TestMount_KeepsQuery(t *testing.T) {
	s := startShell(t, testSteps(), "/setup/")

	r, err := s.Navigate(context.Background(), "/setup/networks?rescan=1")
	if err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}
	if r.Route.Query.Get("rescan") != "1" {
		t.Errorf("Route.Query = %v, want rescan=1", r.Route.Query)
	}
}

func TestMount_Blocked(t *testing.T) {
	never := func(State) bool { return false }

	g := NewGraph()
	if err := g.Register(Step{ID: "x", Path: "/x", Load: StaticLoader("x"), Guard: never}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	h := newHost(g, NewShell(nil))

	_, err := h.Mount(context.Background(), "/x")
	if !IsNavigationError(err, Blocked) {
		t.Errorf("Mount() error = %v, want Blocked", err)
	}
	if h.Current() != nil {
		t.Error("Current() should be nil after a blocked mount")
	}
}

func TestMount_LoadErrorKeepsPreviousStep(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	loadErr := errors.New("bundle missing")

	steps := SetupSteps(Loaders{
		Home: StaticLoader("home"),
		Networks: func(ctx context.Context, state State) (Content, error) {
			if fail.Load() {
				return nil, loadErr
			}
			return Text("networks"), nil
		},
		Connect: StaticLoader("connect"),
		Finish:  StaticLoader("finish"),
	})
	s := startShell(t, steps, "/setup/")

	_, err := s.Navigate(context.Background(), "/setup/networks")
	if !IsLoadError(err) {
		t.Fatalf("Navigate() error = %v, want LoadError", err)
	}
	if !errors.Is(err, loadErr) {
		t.Error("LoadError should wrap the loader's error")
	}
	if got := s.Current().Step.ID; got != StepHome {
		t.Errorf("Current() = %s after LoadError, want home", got)
	}
	if got := s.State().CurrentStep; got != StepHome {
		t.Errorf("State().CurrentStep = %s after LoadError, want home", got)
	}

	fail.Store(false)
	r, err := s.Retry(context.Background())
	if err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if r.Step.ID != StepNetworks || r.View() != "networks" {
		t.Errorf("Retry() mounted %s (%q), want networks", r.Step.ID, r.View())
	}
}

func TestMount_NilContentIsLoadError(t *testing.T) {
	steps := SetupSteps(Loaders{
		Home:     StaticLoader("home"),
		Networks: func(context.Context, State) (Content, error) { return nil, nil },
		Connect:  StaticLoader("connect"),
		Finish:   StaticLoader("finish"),
	})
	s := startShell(t, steps, "/setup/")

	if _, err := s.Navigate(context.Background(), "/setup/networks"); !IsLoadError(err) {
		t.Errorf("Navigate() error = %v, want LoadError", err)
	}
}

func TestMount_LastRequestWins(t *testing.T) {
	started := make(chan struct{})
	steps := SetupSteps(Loaders{
		Home:     StaticLoader("home"),
		Networks: StaticLoader("networks"),
		Connect: func(ctx context.Context, state State) (Content, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		},
		Finish: StaticLoader("finish"),
	})
	s := startShell(t, steps, "/setup/")

	if err := s.Dispatch(SelectNetwork{Network: Network{SSID: "HomeWiFi", Security: "WPA2"}}); err != nil {
		t.Fatalf("Dispatch(SelectNetwork) error = %v", err)
	}
	if err := s.Dispatch(RecordResult{Result: ConnectionResult{Status: StatusSuccess}}); err != nil {
		t.Fatalf("Dispatch(RecordResult) error = %v", err)
	}

	first := make(chan error, 1)
	go func() {
		_, err := s.Navigate(context.Background(), "/setup/connect")
		first <- err
	}()

	<-started
	r, err := s.Navigate(context.Background(), "/setup/finish")
	if err != nil {
		t.Fatalf("Navigate(finish) error = %v", err)
	}
	if r.Step.ID != StepFinish {
		t.Errorf("mounted %s, want finish", r.Step.ID)
	}

	select {
	case err := <-first:
		if !IsSuperseded(err) {
			t.Errorf("Navigate(connect) error = %v, want Superseded", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("superseded navigation did not return")
	}

	if got := s.Current().Step.ID; got != StepFinish {
		t.Errorf("Current() = %s, want finish", got)
	}
	if got := s.State().CurrentStep; got != StepFinish {
		t.Errorf("State().CurrentStep = %s, want finish", got)
	}
}

func TestMount_SlowLoaderIgnoringCancelCommitsNothing(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	steps := SetupSteps(Loaders{
		Home: StaticLoader("home"),
		Networks: func(ctx context.Context, state State) (Content, error) {
			close(started)
			<-release
			return Text("stale networks"), nil
		},
		Connect: StaticLoader("connect"),
		Finish:  StaticLoader("finish"),
	})
	s := startShell(t, steps, "/setup/")
	defer close(release)

	first := make(chan error, 1)
	go func() {
		_, err := s.Navigate(context.Background(), "/setup/networks")
		first <- err
	}()

	<-started
	if _, err := s.Navigate(context.Background(), "/setup/"); err != nil {
		t.Fatalf("Navigate(home) error = %v", err)
	}

	if err := <-first; !IsSuperseded(err) {
		t.Errorf("Navigate(networks) error = %v, want Superseded", err)
	}
	if got := s.Current().View(); got != "home" {
		t.Errorf("Current().View() = %q, want home", got)
	}
}

func TestMount_CancelledContext(t *testing.T) {
	started := make(chan struct{})
	steps := SetupSteps(Loaders{
		Home: StaticLoader("home"),
		Networks: func(ctx context.Context, state State) (Content, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		},
		Connect: StaticLoader("connect"),
		Finish:  StaticLoader("finish"),
	})
	s := startShell(t, steps, "/setup/")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := s.Navigate(ctx, "/setup/networks")
	if !IsSuperseded(err) {
		t.Errorf("Navigate() error = %v, want Superseded", err)
	}
	if got := s.State().CurrentStep; got != StepHome {
		t.Errorf("State().CurrentStep = %s, want home", got)
	}
}

func TestRetry_NothingToRetry(t *testing.T) {
	h := newHost(NewGraph(), NewShell(nil))
	if _, err := h.Retry(context.Background()); !errors.Is(err, ErrNothingToRetry) {
		t.Errorf("Retry() error = %v, want ErrNothingToRetry", err)
	}
}
