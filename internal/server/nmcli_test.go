package server

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/muurk/netsetup/internal/backend"
)

type fakeRunner struct {
	mu    sync.Mutex
	out   string
	err   error
	calls [][]string
}

func (f *fakeRunner) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string{name}, args...))
	return []byte(f.out), f.err
}

func (f *fakeRunner) lastCall() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return ""
	}
	return strings.Join(f.calls[len(f.calls)-1], " ")
}

func TestParseNmcliList(t *testing.T) {
	out := "HomeWiFi:82:WPA2\n" +
		":40:WPA2\n" +
		`Cafe\:Guest:31:--` + "\n" +
		"Modern:67:WPA2 WPA3\n" +
		"Legacy:12:WEP\n" +
		"Broken:x:WPA1\n"

	got := parseNmcliList(out)

	want := []backend.Network{
		{SSID: "HomeWiFi", Signal: 82, Security: backend.SecurityWPA2},
		{SSID: "Cafe:Guest", Signal: 31, Security: backend.SecurityOpen},
		{SSID: "Modern", Signal: 67, Security: backend.SecurityWPA3},
		{SSID: "Legacy", Signal: 12, Security: backend.SecurityWEP},
		{SSID: "Broken", Signal: 0, Security: backend.SecurityWPA},
	}
	if len(got) != len(want) {
		t.Fatalf("parseNmcliList() returned %d networks, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("network %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestClassifyNmcliJoin(t *testing.T) {
	failed := errors.New("exit status 4")
	tests := []struct {
		name string
		out  string
		err  error
		want backend.LinkStatus
	}{
		{"success", "Device 'wlan0' successfully activated", nil, backend.LinkConnected},
		{"missing network", "Error: No network with SSID 'Nope' found.", failed, backend.LinkNoSSID},
		{"secrets", "Error: Connection activation failed: Secrets were required, but not provided.", failed, backend.LinkWrongPassword},
		{"invalid psk", "Error: 802-11-wireless-security.psk: property is invalid.", failed, backend.LinkWrongPassword},
		{"other", "Error: Connection activation failed: IP configuration could not be reserved", failed, backend.LinkConnectFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyNmcliJoin(tt.out, tt.err); got != tt.want {
				t.Errorf("classifyNmcliJoin() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNmcliRadio_ScanUsesInterface(t *testing.T) {
	runner := &fakeRunner{out: "HomeWiFi:82:WPA2\n"}
	r := NewNmcliRadioWithRunner("wlan0", runner.run)

	got, err := r.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(got) != 1 || got[0].SSID != "HomeWiFi" {
		t.Errorf("Scan() = %+v", got)
	}
	if call := runner.lastCall(); call != "nmcli -t -f SSID,SIGNAL,SECURITY dev wifi list ifname wlan0" {
		t.Errorf("command = %q", call)
	}
}

func TestNmcliRadio_ScanError(t *testing.T) {
	runner := &fakeRunner{out: "Error: NetworkManager is not running.", err: errors.New("exit status 8")}
	r := NewNmcliRadioWithRunner("", runner.run)

	_, err := r.Scan(context.Background())
	if err == nil || !strings.Contains(err.Error(), "not running") {
		t.Errorf("Scan() error = %v, want nmcli output in error", err)
	}
}

func TestNmcliRadio_Join(t *testing.T) {
	runner := &fakeRunner{out: "Error: Secrets were required, but not provided.", err: errors.New("exit status 4")}
	r := NewNmcliRadioWithRunner("", runner.run)
	defer func() { _ = r.Close() }()

	if err := r.Join(context.Background(), "HomeWiFi", "wrongpass"); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	eventually(t, time.Second, func() bool { return r.Status() == backend.LinkWrongPassword })

	if call := runner.lastCall(); call != "nmcli dev wifi connect HomeWiFi password wrongpass" {
		t.Errorf("command = %q", call)
	}
}

func TestNmcliRadio_OpenJoinOmitsPassword(t *testing.T) {
	runner := &fakeRunner{}
	r := NewNmcliRadioWithRunner("wlan0", runner.run)
	defer func() { _ = r.Close() }()

	_ = r.Join(context.Background(), "Cafe", "")
	eventually(t, time.Second, func() bool { return r.Status() == backend.LinkConnected })

	if call := runner.lastCall(); call != "nmcli dev wifi connect Cafe ifname wlan0" {
		t.Errorf("command = %q", call)
	}
}
