package backend

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/netsetup/internal/logging"
	"github.com/muurk/netsetup/internal/urls"
)

const (
	// Time allowed to establish the event stream
	dialTimeout = 5 * time.Second

	// Maximum size of a single status event
	maxEventSize = 1024
)

// eventsURL converts the portal's base URL into its websocket events URL
func (c *Client) eventsURL() string {
	base := c.BaseURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + urls.APIEvents
}

// WatchStatus subscribes to the portal's link status events.
//
// The returned channel is closed when ctx is done or the stream ends. The
// first event is the status at subscription time.
func (c *Client) WatchStatus(ctx context.Context) (<-chan StatusEvent, error) {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}

	endpoint := c.eventsURL()
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, NewTransportError("failed to open event stream", endpoint, err)
	}
	conn.SetReadLimit(maxEventSize)

	events := make(chan StatusEvent)

	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})

	go func() {
		defer close(events)
		defer stop()
		defer func() { _ = conn.Close() }()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logging.Debug("Event stream ended", zap.String("endpoint", endpoint), zap.Error(err))
				}
				return
			}

			var ev StatusEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				logging.Debug("Ignoring malformed status event", zap.ByteString("data", data), zap.Error(err))
				continue
			}

			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}
