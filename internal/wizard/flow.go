package wizard

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/muurk/netsetup/internal/backend"
	"github.com/muurk/netsetup/internal/logging"
)

// Backend is the part of the portal API the wizard steps call.
type Backend interface {
	ListNetworks(ctx context.Context) ([]backend.Network, error)
	Connect(ctx context.Context, ssid, password string) (*backend.ConnectResult, error)
}

// Finisher commits a successful setup on the device.
type Finisher interface {
	Finish(ctx context.Context) error
}

// ScanNetworks lists the networks the device can see. The session state
// is not touched.
func (s *Shell) ScanNetworks(ctx context.Context, be Backend) ([]backend.Network, error) {
	ctx, _, done, err := s.enter(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	return be.ListNetworks(ctx)
}

// ChooseNetwork selects n and moves on to the Connect step.
func (s *Shell) ChooseNetwork(ctx context.Context, n Network) (*Rendered, error) {
	if err := s.Dispatch(SelectNetwork{Network: n}); err != nil {
		return nil, err
	}
	return s.GoTo(ctx, StepConnect)
}

// SubmitConnection stores password for the selected network, asks the
// device to join it and, on success, moves on to the Finish step.
//
// A transport error records no result, so the user can retry once the
// device is reachable again. A device error records a Failure result for
// the network that was attempted. Either way the error is returned for
// the step to display.
func (s *Shell) SubmitConnection(ctx context.Context, be Backend, password string) (*Rendered, error) {
	network := s.State().Network
	if network == nil {
		return nil, ErrNoNetwork
	}
	if err := s.Dispatch(SubmitCredentials{Password: password}); err != nil {
		return nil, err
	}

	result, err := s.connect(ctx, be, network.SSID, password)
	if err != nil {
		if backend.IsDeviceError(err) {
			detail := backend.ShortMessage(err)
			if result != nil && result.ErrorDetail != "" {
				detail = result.ErrorDetail
			}
			s.record(network.SSID, ConnectionResult{Status: StatusFailure, ErrorDetail: detail})
		}
		return nil, err
	}

	if result == nil || result.Status != backend.OutcomeSuccess {
		detail := "the device could not join the network"
		if result != nil && result.ErrorDetail != "" {
			detail = result.ErrorDetail
		}
		s.record(network.SSID, ConnectionResult{Status: StatusFailure, ErrorDetail: detail})
		return nil, &backend.DeviceError{Kind: backend.DeviceRejected, Message: detail}
	}

	if err := s.Dispatch(RecordResult{SSID: network.SSID, Result: ConnectionResult{Status: StatusSuccess}}); err != nil {
		return nil, err
	}
	return s.GoTo(ctx, StepFinish)
}

// FinishSetup tells the device to keep the credentials. It requires a
// successful connection.
func (s *Shell) FinishSetup(ctx context.Context, f Finisher) error {
	if !s.State().Succeeded() {
		return errors.New("finish setup: no successful connection")
	}

	ctx, _, done, err := s.enter(ctx)
	if err != nil {
		return err
	}
	defer done()

	return f.Finish(ctx)
}

func (s *Shell) connect(ctx context.Context, be Backend, ssid, password string) (*backend.ConnectResult, error) {
	ctx, _, done, err := s.enter(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	return be.Connect(ctx, ssid, password)
}

// record stores a result for ssid unless the user has since picked
// another network.
func (s *Shell) record(ssid string, result ConnectionResult) {
	if err := s.Dispatch(RecordResult{SSID: ssid, Result: result}); err != nil {
		logging.Debug("Connection result discarded",
			zap.String("session", s.SessionID()),
			zap.String("ssid", ssid),
			zap.Error(err),
		)
	}
}
