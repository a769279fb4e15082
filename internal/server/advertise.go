package server

import (
	"fmt"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/netsetup/internal/logging"
	"github.com/muurk/netsetup/internal/urls"
)

// Service type and domain the portal advertises itself under.
const (
	ServiceType   = "_http._tcp"
	ServiceDomain = "local."
)

// advertise announces the portal over mDNS. Call Shutdown on the result
// to withdraw the announcement.
func advertise(instance string, port int) (*zeroconf.Server, error) {
	txt := []string{"path=" + urls.Home}

	srv, err := zeroconf.Register(instance, ServiceType, ServiceDomain, port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}

	logging.Info("Advertising portal over mDNS",
		zap.String("instance", instance),
		zap.String("service", ServiceType),
		zap.Int("port", port),
	)
	return srv, nil
}
