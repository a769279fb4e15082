package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/muurk/netsetup/internal/backend"
	"github.com/muurk/netsetup/internal/logging"
	"github.com/muurk/netsetup/internal/urls"
	"github.com/muurk/netsetup/internal/web"
)

// limiterTTL is how long an idle client's rate limiter is kept.
const limiterTTL = 10 * time.Minute

// Handler returns the portal's HTTP handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc(urls.APIList, s.handleList).Methods(http.MethodGet)
	r.Handle(urls.APIConnect, s.limitConnect(http.HandlerFunc(s.handleConnect))).Methods(http.MethodPost)
	r.HandleFunc(urls.APIStatus, s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc(urls.APIEvents, s.handleEvents).Methods(http.MethodGet)
	r.HandleFunc(urls.APIDone, s.handleDone).Methods(http.MethodPost)
	r.HandleFunc(urls.Next, s.handleNext).Methods(http.MethodGet)

	for _, route := range urls.WizardRoutes() {
		r.HandleFunc(route, s.handleSPA).Methods(http.MethodGet, http.MethodHead)
	}

	// Everything else, including "/", belongs to the captive portal.
	r.NotFoundHandler = s.logRequests(http.HandlerFunc(redirectHome))

	return r
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, urls.Home, http.StatusFound)
}

// handleSPA serves the wizard bundle; the page picks its step from the path.
func (s *Server) handleSPA(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	http.ServeContent(w, r, "index.html", time.Time{}, bytes.NewReader(web.Index))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.scanner.Networks())
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	ssid := r.PostFormValue("ssid")
	password := r.PostFormValue("password")

	if err := backend.ValidateSSID(ssid); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(password) > backend.MaxPasswordLength {
		http.Error(w, "password too long (max 63 chars)", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.pending = &Credentials{SSID: ssid, Password: password}
	s.mu.Unlock()

	logging.Info("Joining network", zap.String("ssid", ssid), zap.String("remote_addr", r.RemoteAddr))

	if err := s.radio.Disconnect(r.Context()); err != nil {
		logging.Warn("Disconnect before join failed", zap.Error(err))
	}
	if err := s.radio.Join(r.Context(), ssid, password); err != nil {
		logging.Error("Join failed to start", zap.String("ssid", ssid), zap.Error(err))
		http.Error(w, "failed to start join", http.StatusInternalServerError)
		return
	}
	s.hub.Publish(backend.StatusEvent{Status: s.radio.Status(), SSID: ssid})

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintln(w, "OK")
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = fmt.Fprintf(w, "%d", int(s.radio.Status()))
}

// handleDone persists the pending credentials and restarts the portal loop.
func (s *Server) handleDone(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	pending := s.pending
	s.mu.Unlock()

	if pending == nil {
		http.Error(w, "no network has been submitted", http.StatusConflict)
		return
	}
	if err := s.store.Save(r.Context(), pending.SSID, pending.Password); err != nil {
		logging.Error("Failed to save credentials", zap.Error(err))
		http.Error(w, "failed to save credentials", http.StatusInternalServerError)
		return
	}

	logging.Info("Setup complete, restarting", zap.String("ssid", pending.SSID))

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintln(w, "OK")
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	s.requestRestart()
}

// handleNext redirects to the next configured route, cycling through them.
func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	route := s.config.NextRoutes[s.nextIdx]
	s.nextIdx = (s.nextIdx + 1) % len(s.config.NextRoutes)
	s.mu.Unlock()

	http.Redirect(w, r, route, http.StatusFound)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Debug("Failed to write JSON response", zap.Error(err))
	}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limitConnect rate limits join requests per client address.
func (s *Server) limitConnect(next http.Handler) http.Handler {
	if s.config.ConnectRate <= 0 {
		return next
	}

	var (
		mu       sync.Mutex
		visitors = make(map[string]*clientLimiter)
	)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()
		key := clientKey(r)

		mu.Lock()
		v, ok := visitors[key]
		if !ok {
			v = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(s.config.ConnectRate), s.config.ConnectBurst)}
			visitors[key] = v
		}
		v.lastSeen = now
		for k, c := range visitors {
			if now.Sub(c.lastSeen) > limiterTTL {
				delete(visitors, k)
			}
		}
		mu.Unlock()

		if !v.limiter.AllowN(now, 1) {
			logging.Warn("Connect rate limit exceeded", zap.String("client", key))
			w.Header().Set("Retry-After", "1")
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack lets the websocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logging.LogHTTPRequest(r.RemoteAddr, r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}
