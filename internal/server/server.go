package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/netsetup/internal/backend"
	"github.com/muurk/netsetup/internal/logging"
)

// ErrRestart is the cause Serve stops with when setup has completed and
// the device should boot again.
var ErrRestart = errors.New("restart requested")

// Server is the device-side setup portal.
type Server struct {
	config  *Config
	radio   Radio
	store   *Store
	scanner *Scanner
	hub     *Hub

	mu      sync.Mutex
	pending *Credentials
	nextIdx int
	restart context.CancelCauseFunc
	addr    net.Addr

	ready     chan struct{}
	readyOnce sync.Once

	wg sync.WaitGroup
}

// New creates a portal that drives radio and persists to store.
func New(config *Config, radio Radio, store *Store) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if radio == nil || store == nil {
		return nil, fmt.Errorf("radio and store are required")
	}

	return &Server{
		config:  config,
		radio:   radio,
		store:   store,
		scanner: NewScanner(radio, config.DiscoveryInterval),
		hub:     NewHub(),
		ready:   make(chan struct{}),
	}, nil
}

// Ready is closed once the portal first accepts HTTP connections.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the address the portal is listening on, or nil.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Begin boots the device. A device with stored credentials joins that
// network and Begin returns. Otherwise the portal runs until setup
// completes, after which the device boots again and joins the new
// network.
func (s *Server) Begin(ctx context.Context) error {
	for {
		creds, ok, err := s.store.Load(ctx)
		if err != nil {
			return err
		}
		if ok {
			logging.Info("Device is set up, joining stored network", zap.String("ssid", creds.SSID))
			return s.radio.Join(ctx, creds.SSID, creds.Password)
		}

		err = s.Serve(ctx)
		if errors.Is(err, ErrRestart) {
			logging.Info("Restarting after setup")
			continue
		}
		return err
	}
}

// Serve runs the portal until ctx is done or setup completes, in which
// case it returns ErrRestart.
func (s *Server) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	s.mu.Lock()
	s.restart = cancel
	s.pending = nil
	s.nextIdx = 0
	s.mu.Unlock()

	addr := s.config.Addr()
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	logging.Info("Starting setup portal",
		zap.String("addr", listener.Addr().String()),
		zap.String("portal_ip", s.config.PortalIP),
		zap.String("hostname", s.config.Hostname),
		zap.String("radio", s.config.Radio),
	)

	if s.config.DNSPort > 0 {
		captive, err := s.startDNS()
		if err != nil {
			_ = listener.Close()
			return err
		}
		defer func() { _ = captive.Shutdown() }()
	}

	s.scanner.Start(ctx)
	defer s.scanner.Stop()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.watchLink(ctx)
	}()

	if s.config.Advertise {
		port := listener.Addr().(*net.TCPAddr).Port
		if mdns, err := advertise(s.config.Hostname, port); err != nil {
			logging.Warn("mDNS advertisement unavailable", zap.Error(err))
		} else {
			defer mdns.Shutdown()
		}
	}

	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- httpServer.Serve(listener)
	}()

	s.mu.Lock()
	s.addr = listener.Addr()
	s.mu.Unlock()
	s.readyOnce.Do(func() { close(s.ready) })

	var serveErr error
	select {
	case <-ctx.Done():
	case err := <-errChan:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
		cancel(err)
	}

	s.shutdown(httpServer)

	if serveErr != nil {
		return fmt.Errorf("portal stopped: %w", serveErr)
	}
	if cause := context.Cause(ctx); errors.Is(cause, ErrRestart) {
		return ErrRestart
	}
	return nil
}

func (s *Server) startDNS() (*CaptiveDNS, error) {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.DNSPort))
	pc, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen for DNS on %s: %w", addr, err)
	}

	captive := NewCaptiveDNS(net.ParseIP(s.config.PortalIP))
	started := make(chan struct{})
	failed := make(chan error, 1)

	go func() {
		if err := captive.Serve(pc, func() { close(started) }); err != nil {
			logging.Error("Captive DNS stopped", zap.Error(err))
			failed <- err
		}
	}()

	select {
	case <-started:
	case err := <-failed:
		_ = pc.Close()
		return nil, fmt.Errorf("failed to start captive DNS: %w", err)
	}

	logging.Info("Captive DNS answering", zap.String("addr", addr), zap.String("ip", s.config.PortalIP))
	return captive, nil
}

// shutdown stops the HTTP server and waits for background work.
func (s *Server) shutdown(httpServer *http.Server) {
	logging.Info("Shutting down setup portal...")

	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logging.Warn("Shutdown timeout, forcing close", zap.Error(err))
		_ = httpServer.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("Setup portal stopped")
	case <-ctx.Done():
		logging.Warn("Background tasks did not stop in time")
	}
}

// requestRestart ends the running Serve with ErrRestart.
func (s *Server) requestRestart() {
	s.mu.Lock()
	restart := s.restart
	s.mu.Unlock()

	if restart != nil {
		restart(ErrRestart)
	}
}

// pendingSSID returns the network of the latest join request.
func (s *Server) pendingSSID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return ""
	}
	return s.pending.SSID
}

// Reset forgets the stored network so the next boot runs the portal.
func (s *Server) Reset(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return err
	}
	if err := s.radio.Disconnect(ctx); err != nil {
		logging.Warn("Disconnect during reset failed", zap.Error(err))
	}
	logging.Info("Stored network cleared")
	return nil
}

// AwaitLink waits for the radio to settle after a join and returns the
// final link status. A set-up device calls it after Begin so the join can
// finish before the process exits.
func (s *Server) AwaitLink(ctx context.Context) (backend.LinkStatus, error) {
	ticker := time.NewTicker(s.config.StatusInterval)
	defer ticker.Stop()

	for {
		if status := s.radio.Status(); status.Terminal() {
			return status, nil
		}
		select {
		case <-ctx.Done():
			return s.radio.Status(), ctx.Err()
		case <-ticker.C:
		}
	}
}
