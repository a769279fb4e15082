package server

import (
	"context"

	"github.com/muurk/netsetup/internal/backend"
)

// Radio is the device's WiFi station interface.
//
// Join only starts a join attempt: it returns once the attempt is under
// way and Status reports its progress, ending in one of the terminal
// link statuses.
type Radio interface {
	Scan(ctx context.Context) ([]backend.Network, error)
	Join(ctx context.Context, ssid, password string) error
	Status() backend.LinkStatus
	Disconnect(ctx context.Context) error
}
