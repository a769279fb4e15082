package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/netsetup/internal/backend"
	"github.com/muurk/netsetup/internal/logging"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512

	// Buffered events per subscriber before the oldest is dropped
	subscriberBuffer = 8
)

// Hub fans link status events out to websocket subscribers.
type Hub struct {
	mu     sync.Mutex
	subs   map[int]chan backend.StatusEvent
	nextID int
	last   backend.StatusEvent
	seen   bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan backend.StatusEvent)}
}

// Subscribe registers a subscriber. Call cancel to unsubscribe; the
// channel is closed afterwards.
func (h *Hub) Subscribe() (<-chan backend.StatusEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan backend.StatusEvent, subscriberBuffer)
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			close(ch)
		})
	}
}

// Publish sends ev to every subscriber. A subscriber that has fallen
// behind loses its oldest queued event.
func (h *Hub) Publish(ev backend.StatusEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.last = ev
	h.seen = true
	for _, ch := range h.subs {
		for {
			select {
			case ch <- ev:
			default:
				select {
				case <-ch:
				default:
				}
				continue
			}
			break
		}
	}
}

// Last returns the most recently published event.
func (h *Hub) Last() (backend.StatusEvent, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last, h.seen
}

// Subscribers returns the number of active subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// watchLink polls the radio and publishes every status change until ctx
// is done.
func (s *Server) watchLink(ctx context.Context) {
	ticker := time.NewTicker(s.config.StatusInterval)
	defer ticker.Stop()

	last := s.radio.Status()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cur := s.radio.Status()
			if cur == last {
				continue
			}
			logging.LogLinkStatus(s.pendingSSID(), last.String(), cur.String())
			last = cur
			s.hub.Publish(backend.StatusEvent{Status: cur, SSID: s.pendingSSID()})
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  256,
	WriteBufferSize: 1024,
}

// handleEvents streams link status events over a websocket. The first
// message is the current status.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Debug("Event stream upgrade failed", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	events, cancel := s.hub.Subscribe()
	defer cancel()

	logging.Debug("Event stream opened", zap.String("remote_addr", r.RemoteAddr))

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// The reader only services control frames; it ends when the peer goes away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(ev backend.StatusEvent) error {
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteMessage(websocket.TextMessage, data)
	}

	if err := write(backend.StatusEvent{Status: s.radio.Status(), SSID: s.pendingSSID()}); err != nil {
		return
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-closed:
			logging.Debug("Event stream closed by peer", zap.String("remote_addr", r.RemoteAddr))
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := write(ev); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
