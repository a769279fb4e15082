package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/muurk/netsetup/internal/logging"
	"github.com/muurk/netsetup/internal/urls"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 10 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for failed requests
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the default delay between retry attempts
	DefaultRetryDelay = 500 * time.Millisecond

	// DefaultMaxRetryDelay is the maximum delay for exponential backoff
	DefaultMaxRetryDelay = 5 * time.Second

	// DefaultJoinTimeout bounds how long Connect waits for a terminal link status
	DefaultJoinTimeout = 30 * time.Second

	// DefaultPollInterval is the status polling period when events are unavailable
	DefaultPollInterval = time.Second

	// breakerFailures is the consecutive transport failures that open the circuit
	breakerFailures = 5

	// breakerCooldown is how long the circuit stays open
	breakerCooldown = 15 * time.Second
)

// reply is a fully read portal response.
type reply struct {
	status   int
	body     []byte
	location string
}

// Client talks to a setup portal's HTTP API.
type Client struct {
	// BaseURL is the base URL for the portal (e.g., "http://192.168.100.24")
	BaseURL string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// MaxRetries is the maximum number of retry attempts for failed requests
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts
	RetryDelay time.Duration

	// MaxRetryDelay is the maximum delay for exponential backoff
	MaxRetryDelay time.Duration

	// UseExponentialBackoff enables exponential backoff for retries
	UseExponentialBackoff bool

	// JoinTimeout bounds the wait for a join to finish in Connect
	JoinTimeout time.Duration

	// PollInterval is the status polling period used when the event stream is unavailable
	PollInterval time.Duration

	// DisableEvents skips the websocket event stream and always polls
	DisableEvents bool

	breaker *gobreaker.CircuitBreaker[*reply]
}

// NewClient creates a client for the portal at ip:port
func NewClient(ip string, port int) *Client {
	return NewClientWithURL(fmt.Sprintf("http://%s:%d", ip, port))
}

// NewClientWithURL creates a new client with a full base URL
func NewClientWithURL(baseURL string) *Client {
	c := &Client{
		BaseURL:               strings.TrimRight(baseURL, "/"),
		HTTPClient:            &http.Client{Timeout: DefaultTimeout},
		MaxRetries:            DefaultMaxRetries,
		RetryDelay:            DefaultRetryDelay,
		MaxRetryDelay:         DefaultMaxRetryDelay,
		UseExponentialBackoff: true,
		JoinTimeout:           DefaultJoinTimeout,
		PollInterval:          DefaultPollInterval,
	}
	c.breaker = newBreaker(c.BaseURL)
	return c
}

func newBreaker(name string) *gobreaker.CircuitBreaker[*reply] {
	return gobreaker.NewCircuitBreaker[*reply](gobreaker.Settings{
		Name:        "portal:" + name,
		MaxRequests: 1,
		Timeout:     breakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn("Backend circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// Only transport failures count against the device; refusals and
		// cancellations mean it answered or the caller gave up.
		IsSuccessful: func(err error) bool {
			return err == nil || !IsTransportError(err)
		},
	})
}

// SetRetry configures retry behavior
func (c *Client) SetRetry(maxRetries int, retryDelay time.Duration) {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
}

// Ping checks that the portal answers on its home route.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, urls.Home, nil)
	return err
}

// ListNetworks returns the networks the device last saw, strongest first.
func (c *Client) ListNetworks(ctx context.Context) ([]Network, error) {
	r, err := c.do(ctx, http.MethodGet, urls.APIList, nil)
	if err != nil {
		return nil, err
	}

	body := strings.TrimSpace(string(r.body))
	if body == "" {
		return []Network{}, nil
	}

	var networks []Network
	if err := json.Unmarshal([]byte(body), &networks); err != nil {
		return nil, NewParseError("failed to parse network list", err)
	}

	sort.SliceStable(networks, func(i, j int) bool {
		return networks[i].Signal > networks[j].Signal
	})
	return networks, nil
}

// Status returns the device's current station link status.
func (c *Client) Status(ctx context.Context) (LinkStatus, error) {
	r, err := c.do(ctx, http.MethodGet, urls.APIStatus, nil)
	if err != nil {
		return LinkIdle, err
	}
	status, err := ParseLinkStatus(string(r.body))
	if err != nil {
		return LinkIdle, NewParseError("failed to parse link status", err)
	}
	return status, nil
}

// Connect asks the device to join ssid and waits for the join to finish.
//
// A join that ends in a failure status returns a Failure result together
// with a *DeviceError. A portal that cannot be reached returns a
// *TransportError and no result.
func (c *Client) Connect(ctx context.Context, ssid, password string) (*ConnectResult, error) {
	if err := ValidateSSID(ssid); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("ssid", ssid)
	form.Set("password", password)

	if _, err := c.do(ctx, http.MethodPost, urls.APIConnect, form); err != nil {
		return nil, err
	}

	status, err := c.awaitJoin(ctx)
	if err != nil {
		var de *DeviceError
		if errors.As(err, &de) && de.Kind == DeviceJoinTimeout {
			return &ConnectResult{Status: OutcomeFailure, Link: status, ErrorDetail: de.Message}, err
		}
		return nil, err
	}

	if status == LinkConnected {
		return &ConnectResult{Status: OutcomeSuccess, Link: status}, nil
	}

	joinErr := NewJoinError(ssid, status)
	return &ConnectResult{Status: OutcomeFailure, Link: status, ErrorDetail: joinErr.Message}, joinErr
}

// awaitJoin waits for a terminal link status, preferring the event stream
// and falling back to polling.
func (c *Client) awaitJoin(ctx context.Context) (LinkStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, c.JoinTimeout)
	defer cancel()

	last := LinkIdle

	if !c.DisableEvents {
		events, err := c.WatchStatus(ctx)
		if err == nil {
			for ev := range events {
				last = ev.Status
				if ev.Status.Terminal() {
					return ev.Status, nil
				}
			}
			if ctx.Err() != nil {
				return last, c.joinWaitError(ctx, last)
			}
			logging.Debug("Event stream closed before join finished, polling")
		} else {
			logging.Debug("Event stream unavailable, polling")
		}
	}

	ticker := time.NewTicker(c.PollInterval)
	defer ticker.Stop()

	for {
		status, err := c.Status(ctx)
		if err == nil {
			last = status
			if status.Terminal() {
				return status, nil
			}
		} else if ctx.Err() == nil {
			return last, err
		}

		select {
		case <-ctx.Done():
			return last, c.joinWaitError(ctx, last)
		case <-ticker.C:
		}
	}
}

func (c *Client) joinWaitError(ctx context.Context, last LinkStatus) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &DeviceError{
			Kind:    DeviceJoinTimeout,
			Message: fmt.Sprintf("join did not finish within %s (last status: %s)", c.JoinTimeout, last),
			Link:    last,
		}
	}
	return ctx.Err()
}

// Finish tells the device to persist the credentials and restart.
func (c *Client) Finish(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, urls.APIDone, nil)
	return err
}

// Next follows the portal's /setup/next rotation and returns the route it
// redirected to.
func (c *Client) Next(ctx context.Context) (string, error) {
	r, err := c.do(ctx, http.MethodGet, urls.Next, nil)
	if err != nil {
		return "", err
	}
	if r.location == "" {
		return "", NewParseError("portal did not redirect", nil)
	}
	return r.location, nil
}

// do performs a request with retries, backoff and the circuit breaker.
func (c *Client) do(ctx context.Context, method, path string, form url.Values) (*reply, error) {
	var lastErr error
	currentDelay := c.RetryDelay

	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(currentDelay):
			}

			if c.UseExponentialBackoff {
				currentDelay *= 2
				if currentDelay > c.MaxRetryDelay {
					currentDelay = c.MaxRetryDelay
				}
			}
		}

		r, err := c.breaker.Execute(func() (*reply, error) {
			return c.attempt(ctx, method, path, form)
		})
		if err != nil && (errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)) {
			err = ClassifyTransportError(err, c.BaseURL+path)
		}
		logging.LogBackendCall(method, c.BaseURL+path, attempt+1, err)
		if err == nil {
			return r, nil
		}

		lastErr = err
		if ctx.Err() != nil || !IsRetryable(err) {
			return nil, err
		}
	}

	return nil, lastErr
}

// attempt performs a single request
func (c *Client) attempt(ctx context.Context, method, path string, form url.Values) (*reply, error) {
	endpoint := c.BaseURL + path

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, NewTransportError("failed to create request", endpoint, err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.noRedirectClient().Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(ctxErr, context.Canceled) {
			return nil, ctxErr
		}
		return nil, NewTransportError(fmt.Sprintf("%s %s failed", method, path), endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewTransportError("failed to read response body", endpoint, err)
	}

	switch {
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		return &reply{status: resp.StatusCode, body: data, location: resp.Header.Get("Location")}, nil
	case resp.StatusCode >= 400:
		msg := strings.TrimSpace(string(data))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, NewHTTPError(resp.StatusCode, fmt.Sprintf("%s %s: %s", method, path, msg))
	}

	return &reply{status: resp.StatusCode, body: data}, nil
}

// noRedirectClient returns a shallow copy of HTTPClient that hands redirects
// back to the caller; the portal answers /setup/next and unknown routes
// with redirects that the client reports rather than follows.
func (c *Client) noRedirectClient() *http.Client {
	hc := *c.HTTPClient
	hc.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &hc
}
