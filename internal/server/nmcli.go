package server

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/netsetup/internal/backend"
	"github.com/muurk/netsetup/internal/logging"
)

// nmcliJoinTimeout bounds a single "nmcli dev wifi connect" run.
const nmcliJoinTimeout = 45 * time.Second

// CommandRunner runs an external command and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// NmcliRadio drives a Linux wireless interface through NetworkManager's
// nmcli.
type NmcliRadio struct {
	Interface string

	run CommandRunner

	mu     sync.Mutex
	status backend.LinkStatus
	cancel context.CancelFunc
	gen    int
	wg     sync.WaitGroup
}

// NewNmcliRadio creates a radio for iface ("" lets NetworkManager choose).
func NewNmcliRadio(iface string) *NmcliRadio {
	return NewNmcliRadioWithRunner(iface, execRunner)
}

// NewNmcliRadioWithRunner creates an nmcli radio that runs commands with run.
func NewNmcliRadioWithRunner(iface string, run CommandRunner) *NmcliRadio {
	return &NmcliRadio{Interface: iface, run: run, status: backend.LinkIdle}
}

func (r *NmcliRadio) withInterface(args ...string) []string {
	if r.Interface != "" {
		args = append(args, "ifname", r.Interface)
	}
	return args
}

// Scan implements Radio
func (r *NmcliRadio) Scan(ctx context.Context) ([]backend.Network, error) {
	args := r.withInterface("-t", "-f", "SSID,SIGNAL,SECURITY", "dev", "wifi", "list")
	out, err := r.run(ctx, "nmcli", args...)
	if err != nil {
		return nil, fmt.Errorf("nmcli scan failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return parseNmcliList(string(out)), nil
}

// Join implements Radio
func (r *NmcliRadio) Join(ctx context.Context, ssid, password string) error {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.gen++
	gen := r.gen
	r.status = backend.LinkDisconnected

	joinCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), nmcliJoinTimeout)
	r.cancel = cancel
	r.mu.Unlock()

	args := []string{"dev", "wifi", "connect", ssid}
	if password != "" {
		args = append(args, "password", password)
	}
	args = r.withInterface(args...)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()

		out, err := r.run(joinCtx, "nmcli", args...)
		status := classifyNmcliJoin(string(out), err)

		r.mu.Lock()
		defer r.mu.Unlock()
		if r.gen != gen {
			return
		}
		r.status = status
		if err != nil {
			logging.Warn("nmcli join failed",
				zap.String("ssid", ssid),
				zap.String("status", status.String()),
				zap.String("output", strings.TrimSpace(string(out))),
			)
		}
	}()
	return nil
}

// Status implements Radio
func (r *NmcliRadio) Status() backend.LinkStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Disconnect implements Radio
func (r *NmcliRadio) Disconnect(ctx context.Context) error {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.gen++
	r.status = backend.LinkDisconnected
	r.mu.Unlock()

	if r.Interface == "" {
		return nil
	}
	out, err := r.run(ctx, "nmcli", "dev", "disconnect", r.Interface)
	if err != nil && !strings.Contains(string(out), "not active") {
		return fmt.Errorf("nmcli disconnect failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Close abandons any join in progress and waits for it to exit.
func (r *NmcliRadio) Close() error {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.mu.Unlock()
	r.wg.Wait()
	return nil
}

// classifyNmcliJoin maps the result of "nmcli dev wifi connect" to a link status.
func classifyNmcliJoin(out string, err error) backend.LinkStatus {
	if err == nil {
		return backend.LinkConnected
	}
	lower := strings.ToLower(out)
	switch {
	case strings.Contains(lower, "no network with ssid"):
		return backend.LinkNoSSID
	case strings.Contains(lower, "secrets were required"),
		strings.Contains(lower, "psk: property is invalid"),
		strings.Contains(lower, "invalid password"):
		return backend.LinkWrongPassword
	default:
		return backend.LinkConnectFailed
	}
}

// parseNmcliList parses terse "SSID:SIGNAL:SECURITY" lines. Hidden
// networks (empty SSID) are skipped.
func parseNmcliList(out string) []backend.Network {
	var networks []backend.Network
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		fields := splitTerse(line)
		if len(fields) < 3 || fields[0] == "" {
			continue
		}
		signal, err := strconv.Atoi(fields[1])
		if err != nil {
			signal = 0
		}
		networks = append(networks, backend.Network{
			SSID:     fields[0],
			Signal:   signal,
			Security: nmcliSecurity(fields[2]),
		})
	}
	return networks
}

// splitTerse splits an nmcli terse line on unescaped colons.
func splitTerse(line string) []string {
	var fields []string
	var cur strings.Builder
	escaped := false
	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == ':':
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	return append(fields, cur.String())
}

func nmcliSecurity(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	switch {
	case s == "" || s == "--":
		return backend.SecurityOpen
	case strings.Contains(s, "WPA3"), strings.Contains(s, "SAE"):
		return backend.SecurityWPA3
	case strings.Contains(s, "WPA2"):
		return backend.SecurityWPA2
	case strings.Contains(s, "WPA"):
		return backend.SecurityWPA
	case strings.Contains(s, "WEP"):
		return backend.SecurityWEP
	default:
		return backend.SecurityUnknown
	}
}
