package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/muurk/netsetup/internal/urls"
)

// fakePortal is a minimal portal whose link status follows a script.
type fakePortal struct {
	mu       sync.Mutex
	statuses []LinkStatus // statuses reported after a connect, last one repeats
	polls    int
	ssid     string
	password string
	done     bool
}

func (p *fakePortal) next() LinkStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.statuses) == 0 {
		return LinkIdle
	}
	i := p.polls
	if i >= len(p.statuses) {
		i = len(p.statuses) - 1
	}
	p.polls++
	return p.statuses[i]
}

func (p *fakePortal) received() (ssid, password string, done bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ssid, p.password, p.done
}

func (p *fakePortal) handler(t *testing.T) http.Handler {
	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()

	mux.HandleFunc(urls.APIList, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"ssid":"Weak","signal":20,"security":"WPA2"},{"ssid":"HomeWiFi","signal":80,"security":"WPA2"},"Legacy"]`)
	})
	mux.HandleFunc(urls.APIConnect, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		p.mu.Lock()
		p.ssid = r.PostForm.Get("ssid")
		p.password = r.PostForm.Get("password")
		p.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc(urls.APIStatus, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprintf(w, "%d", int(p.next()))
	})
	mux.HandleFunc(urls.APIEvents, func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()
		for {
			status := p.next()
			if err := conn.WriteJSON(StatusEvent{Status: status}); err != nil {
				return
			}
			if status.Terminal() {
				return
			}
		}
	})
	mux.HandleFunc(urls.APIDone, func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		p.done = true
		p.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc(urls.Next, func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, urls.Networks, http.StatusFound)
	})
	return mux
}

func newTestClient(url string) *Client {
	c := NewClientWithURL(url)
	c.RetryDelay = time.Millisecond
	c.MaxRetryDelay = 5 * time.Millisecond
	c.PollInterval = 5 * time.Millisecond
	return c
}

func TestNewClient(t *testing.T) {
	client := NewClient("192.168.100.24", 80)

	if client.BaseURL != "http://192.168.100.24:80" {
		t.Errorf("BaseURL = %s, want http://192.168.100.24:80", client.BaseURL)
	}
	if client.HTTPClient == nil {
		t.Error("HTTPClient should not be nil")
	}
	if client.JoinTimeout != DefaultJoinTimeout {
		t.Errorf("JoinTimeout = %v, want %v", client.JoinTimeout, DefaultJoinTimeout)
	}
}

func TestNewClientWithURL_TrimsSlash(t *testing.T) {
	client := NewClientWithURL("http://portal.local/")

	if client.BaseURL != "http://portal.local" {
		t.Errorf("BaseURL = %s, want http://portal.local", client.BaseURL)
	}
}

func TestSetRetry(t *testing.T) {
	client := NewClient("192.168.100.24", 80)
	client.SetRetry(5, 2*time.Second)

	if client.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", client.MaxRetries)
	}
	if client.RetryDelay != 2*time.Second {
		t.Errorf("RetryDelay = %v, want 2s", client.RetryDelay)
	}
}

func TestListNetworks(t *testing.T) {
	portal := &fakePortal{}
	server := httptest.NewServer(portal.handler(t))
	defer server.Close()

	networks, err := newTestClient(server.URL).ListNetworks(context.Background())
	if err != nil {
		t.Fatalf("ListNetworks() error = %v", err)
	}

	if len(networks) != 3 {
		t.Fatalf("len(networks) = %d, want 3", len(networks))
	}
	if networks[0].SSID != "HomeWiFi" {
		t.Errorf("networks[0].SSID = %s, want HomeWiFi (strongest first)", networks[0].SSID)
	}
	if networks[2].SSID != "Legacy" || networks[2].Security != SecurityUnknown {
		t.Errorf("networks[2] = %+v, want bare Legacy entry with UNKNOWN security", networks[2])
	}
}

func TestListNetworks_Empty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	networks, err := newTestClient(server.URL).ListNetworks(context.Background())
	if err != nil {
		t.Fatalf("ListNetworks() error = %v", err)
	}
	if len(networks) != 0 {
		t.Errorf("len(networks) = %d, want 0", len(networks))
	}
}

func TestListNetworks_Malformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"ssid":`)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).ListNetworks(context.Background())
	var de *DeviceError
	if !errors.As(err, &de) || de.Kind != DeviceParse {
		t.Errorf("ListNetworks() error = %v, want DeviceParse error", err)
	}
}

func TestConnect_Polling(t *testing.T) {
	portal := &fakePortal{statuses: []LinkStatus{LinkDisconnected, LinkDisconnected, LinkConnected}}
	server := httptest.NewServer(portal.handler(t))
	defer server.Close()

	client := newTestClient(server.URL)
	client.DisableEvents = true

	result, err := client.Connect(context.Background(), "HomeWiFi", "secret123")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if result.Status != OutcomeSuccess {
		t.Errorf("Status = %s, want %s", result.Status, OutcomeSuccess)
	}
	if ssid, password, _ := portal.received(); ssid != "HomeWiFi" || password != "secret123" {
		t.Errorf("portal got ssid=%q password=%q", ssid, password)
	}
}

func TestConnect_Events(t *testing.T) {
	portal := &fakePortal{statuses: []LinkStatus{LinkDisconnected, LinkConnected}}
	server := httptest.NewServer(portal.handler(t))
	defer server.Close()

	result, err := newTestClient(server.URL).Connect(context.Background(), "HomeWiFi", "secret123")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if result.Status != OutcomeSuccess || result.Link != LinkConnected {
		t.Errorf("result = %+v, want success/connected", result)
	}
}

func TestConnect_EventsUnavailableFallsBackToPolling(t *testing.T) {
	portal := &fakePortal{statuses: []LinkStatus{LinkConnected}}
	inner := portal.handler(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == urls.APIEvents {
			http.NotFound(w, r)
			return
		}
		inner.ServeHTTP(w, r)
	}))
	defer server.Close()

	result, err := newTestClient(server.URL).Connect(context.Background(), "HomeWiFi", "secret123")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if result.Status != OutcomeSuccess {
		t.Errorf("Status = %s, want %s", result.Status, OutcomeSuccess)
	}
}

func TestConnect_WrongPassword(t *testing.T) {
	portal := &fakePortal{statuses: []LinkStatus{LinkDisconnected, LinkWrongPassword}}
	server := httptest.NewServer(portal.handler(t))
	defer server.Close()

	result, err := newTestClient(server.URL).Connect(context.Background(), "HomeWiFi", "wrongpass")
	if !IsDeviceError(err) {
		t.Fatalf("Connect() error = %v, want DeviceError", err)
	}
	if IsTransportError(err) {
		t.Error("rejected credentials should not be a transport error")
	}
	if result == nil || result.Status != OutcomeFailure {
		t.Fatalf("result = %+v, want failure", result)
	}
	if result.Link != LinkWrongPassword {
		t.Errorf("Link = %s, want %s", result.Link, LinkWrongPassword)
	}
	if result.ErrorDetail == "" {
		t.Error("ErrorDetail should describe the failure")
	}
}

func TestConnect_JoinTimeout(t *testing.T) {
	portal := &fakePortal{statuses: []LinkStatus{LinkDisconnected}}
	server := httptest.NewServer(portal.handler(t))
	defer server.Close()

	client := newTestClient(server.URL)
	client.DisableEvents = true
	client.JoinTimeout = 50 * time.Millisecond

	result, err := client.Connect(context.Background(), "HomeWiFi", "secret123")
	var de *DeviceError
	if !errors.As(err, &de) || de.Kind != DeviceJoinTimeout {
		t.Fatalf("Connect() error = %v, want DeviceJoinTimeout", err)
	}
	if result == nil || result.Status != OutcomeFailure {
		t.Errorf("result = %+v, want failure", result)
	}
}

func TestConnect_InvalidSSID(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Connect(context.Background(), "", "secret123")
	if !IsValidationError(err) {
		t.Errorf("Connect() error = %v, want validation error", err)
	}
	if calls.Load() != 0 {
		t.Errorf("portal received %d requests, want 0", calls.Load())
	}
}

func TestConnect_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := newTestClient(url)
	client.MaxRetries = 1

	result, err := client.Connect(context.Background(), "HomeWiFi", "secret123")
	if !IsTransportError(err) {
		t.Fatalf("Connect() error = %v, want TransportError", err)
	}
	if result != nil {
		t.Errorf("result = %+v, want nil for unreachable portal", result)
	}
}

func TestDo_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "scan in progress", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `[]`)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).ListNetworks(context.Background())
	if err != nil {
		t.Fatalf("ListNetworks() error = %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestDo_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "missing ssid", http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).ListNetworks(context.Background())
	var de *DeviceError
	if !errors.As(err, &de) || de.StatusCode != http.StatusBadRequest {
		t.Fatalf("ListNetworks() error = %v, want HTTP 400 DeviceError", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestDo_CircuitOpensAfterRepeatedFailures(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := newTestClient(url)
	client.MaxRetries = 0

	for i := 0; i < breakerFailures; i++ {
		if _, err := client.Status(context.Background()); !IsTransportError(err) {
			t.Fatalf("attempt %d: error = %v, want TransportError", i, err)
		}
	}

	_, err := client.Status(context.Background())
	var te *TransportError
	if !errors.As(err, &te) || te.Kind != TransportCircuitOpen {
		t.Errorf("Status() error = %v, want TransportCircuitOpen", err)
	}
}

func TestDo_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := newTestClient(server.URL).Status(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Status() error = %v, want context.Canceled", err)
	}
}

func TestStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "3\n")
	}))
	defer server.Close()

	status, err := newTestClient(server.URL).Status(context.Background())
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status != LinkConnected {
		t.Errorf("Status() = %s, want connected", status)
	}
}

func TestFinish(t *testing.T) {
	portal := &fakePortal{}
	server := httptest.NewServer(portal.handler(t))
	defer server.Close()

	if err := newTestClient(server.URL).Finish(context.Background()); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	if _, _, done := portal.received(); !done {
		t.Error("portal did not receive done")
	}
}

func TestNext(t *testing.T) {
	portal := &fakePortal{}
	server := httptest.NewServer(portal.handler(t))
	defer server.Close()

	route, err := newTestClient(server.URL).Next(context.Background())
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if route != urls.Networks {
		t.Errorf("Next() = %s, want %s", route, urls.Networks)
	}
}

func TestEventsURL(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"http://192.168.100.24:80", "ws://192.168.100.24:80/setup/api/events"},
		{"https://portal.local", "wss://portal.local/setup/api/events"},
	}

	for _, tt := range tests {
		c := NewClientWithURL(tt.base)
		if got := c.eventsURL(); got != tt.want {
			t.Errorf("eventsURL(%s) = %s, want %s", tt.base, got, tt.want)
		}
	}
}
