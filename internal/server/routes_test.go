package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/muurk/netsetup/internal/backend"
	"github.com/muurk/netsetup/internal/urls"
)

func startRoutes(t *testing.T, cfg *Config) (*Server, *SimulatedRadio, *Store, *httptest.Server) {
	t.Helper()
	srv, radio, store := newTestServer(t, cfg)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, radio, store, ts
}

// noFollow returns a client that reports redirects instead of following them.
func noFollow() *http.Client {
	return &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}
}

func postForm(t *testing.T, endpoint string, form url.Values) *http.Response {
	t.Helper()
	resp, err := http.PostForm(endpoint, form)
	if err != nil {
		t.Fatalf("POST %s error = %v", endpoint, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestRoutes_RedirectToSetup(t *testing.T) {
	_, _, _, ts := startRoutes(t, testConfig())

	for _, path := range []string{"/", "/generate_204", "/hotspot-detect.html", "/setup", "/setup/unknown"} {
		resp, err := noFollow().Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s error = %v", path, err)
		}
		_ = resp.Body.Close()

		if resp.StatusCode != http.StatusFound {
			t.Errorf("GET %s status = %d, want 302", path, resp.StatusCode)
		}
		if loc := resp.Header.Get("Location"); loc != urls.Home {
			t.Errorf("GET %s Location = %q, want %q", path, loc, urls.Home)
		}
	}
}

func TestRoutes_WizardRoutesServeBundle(t *testing.T) {
	_, _, _, ts := startRoutes(t, testConfig())

	for _, route := range urls.WizardRoutes() {
		resp, err := http.Get(ts.URL + route)
		if err != nil {
			t.Fatalf("GET %s error = %v", route, err)
		}
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s status = %d", route, resp.StatusCode)
		}
		if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
			t.Errorf("GET %s Content-Type = %q", route, resp.Header.Get("Content-Type"))
		}
		if !strings.Contains(string(body), "Network setup") {
			t.Errorf("GET %s did not serve the wizard", route)
		}
	}
}

func TestRoutes_List(t *testing.T) {
	_, _, _, ts := startRoutes(t, testConfig())

	resp, err := http.Get(ts.URL + urls.APIList)
	if err != nil {
		t.Fatalf("GET list error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var networks []backend.Network
	if err := json.NewDecoder(resp.Body).Decode(&networks); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if len(networks) != 3 || networks[0].SSID != "HomeWiFi" {
		t.Errorf("networks = %+v", networks)
	}
}

func TestRoutes_ConnectValidation(t *testing.T) {
	_, _, _, ts := startRoutes(t, testConfig())

	tests := []struct {
		name string
		form url.Values
	}{
		{"missing ssid", url.Values{"password": {"secret123"}}},
		{"ssid too long", url.Values{"ssid": {strings.Repeat("x", 33)}}},
		{"password too long", url.Values{"ssid": {"HomeWiFi"}, "password": {strings.Repeat("p", 64)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postForm(t, ts.URL+urls.APIConnect, tt.form)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestRoutes_ConnectAndStatus(t *testing.T) {
	tests := []struct {
		password string
		want     string
	}{
		{"secret123", "3"},
		{"wrongpass", "6"},
	}

	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			_, radio, _, ts := startRoutes(t, testConfig())

			resp := postForm(t, ts.URL+urls.APIConnect, url.Values{"ssid": {"HomeWiFi"}, "password": {tt.password}})
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("connect status = %d", resp.StatusCode)
			}
			if radio.SSID() != "HomeWiFi" {
				t.Errorf("radio joined %q", radio.SSID())
			}

			status, err := http.Get(ts.URL + urls.APIStatus)
			if err != nil {
				t.Fatalf("GET status error = %v", err)
			}
			body, _ := io.ReadAll(status.Body)
			_ = status.Body.Close()

			if !strings.HasPrefix(status.Header.Get("Content-Type"), "text/plain") {
				t.Errorf("Content-Type = %q", status.Header.Get("Content-Type"))
			}
			if string(body) != tt.want {
				t.Errorf("status body = %q, want %q", body, tt.want)
			}
		})
	}
}

func TestRoutes_NextRotates(t *testing.T) {
	_, _, _, ts := startRoutes(t, testConfig())

	want := []string{urls.Networks, urls.Finish, urls.Networks, urls.Finish}
	for i, w := range want {
		resp, err := noFollow().Get(ts.URL + urls.Next)
		if err != nil {
			t.Fatalf("GET next error = %v", err)
		}
		_ = resp.Body.Close()

		if resp.StatusCode != http.StatusFound {
			t.Errorf("request %d status = %d", i, resp.StatusCode)
		}
		if loc := resp.Header.Get("Location"); loc != w {
			t.Errorf("request %d Location = %q, want %q", i, loc, w)
		}
	}
}

func TestRoutes_DoneRequiresPendingNetwork(t *testing.T) {
	_, _, store, ts := startRoutes(t, testConfig())

	resp := postForm(t, ts.URL+urls.APIDone, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", resp.StatusCode)
	}
	if setup, _ := store.IsSetup(context.Background()); setup {
		t.Error("credentials saved without a pending network")
	}
}

func TestRoutes_DoneSavesAndRestarts(t *testing.T) {
	srv, _, store, ts := startRoutes(t, testConfig())

	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)
	srv.restart = cancel

	postForm(t, ts.URL+urls.APIConnect, url.Values{"ssid": {"HomeWiFi"}, "password": {"secret123"}})
	resp := postForm(t, ts.URL+urls.APIDone, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("done status = %d", resp.StatusCode)
	}

	creds, ok, err := store.Load(context.Background())
	if err != nil || !ok || creds.SSID != "HomeWiFi" || creds.Password != "secret123" {
		t.Errorf("stored = %+v, %v, %v", creds, ok, err)
	}

	select {
	case <-ctx.Done():
		if cause := context.Cause(ctx); cause != ErrRestart {
			t.Errorf("cause = %v, want ErrRestart", cause)
		}
	case <-time.After(time.Second):
		t.Fatal("restart was not requested")
	}
}

func TestRoutes_MethodNotAllowed(t *testing.T) {
	_, _, _, ts := startRoutes(t, testConfig())

	resp, err := http.Get(ts.URL + urls.APIConnect)
	if err != nil {
		t.Fatalf("GET connect error = %v", err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestRoutes_ConnectRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.ConnectRate = 0.01
	cfg.ConnectBurst = 2
	_, _, _, ts := startRoutes(t, cfg)

	form := url.Values{"ssid": {"HomeWiFi"}, "password": {"secret123"}}
	for i := 0; i < 2; i++ {
		if resp := postForm(t, ts.URL+urls.APIConnect, form); resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d status = %d", i, resp.StatusCode)
		}
	}

	resp := postForm(t, ts.URL+urls.APIConnect, form)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
}

func TestRoutes_EventsStream(t *testing.T) {
	srv, _, _, ts := startRoutes(t, testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := backend.NewClientWithURL(ts.URL)
	events, err := client.WatchStatus(ctx)
	if err != nil {
		t.Fatalf("WatchStatus() error = %v", err)
	}

	first := <-events
	if first.Status != backend.LinkIdle {
		t.Errorf("first event = %+v, want idle", first)
	}

	eventually(t, time.Second, func() bool { return srv.hub.Subscribers() == 1 })
	srv.hub.Publish(backend.StatusEvent{Status: backend.LinkConnected, SSID: "HomeWiFi"})

	got := <-events
	if got.Status != backend.LinkConnected || got.SSID != "HomeWiFi" {
		t.Errorf("event = %+v", got)
	}
}
