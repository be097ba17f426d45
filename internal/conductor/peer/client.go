package peer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
)

const (
	DefaultPollInterval   = time.Second
	DefaultRequestTimeout = 5 * time.Second

	userAgent   = "Conductor/1.0"
	maxBodySize = 1 << 20
)

// Client performs authenticated requests against one remote peer and runs
// a polling loop shared by all of its observers.
type Client struct {
	mu         sync.RWMutex
	address    string
	credential string
	closed     bool
	observers  map[Observer]struct{}
	poller     *poller

	requireCredential bool

	httpClient *http.Client
	interval   time.Duration
	logger     *slog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default client. Its Timeout bounds every
// request, including poll ticks.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithRequiredCredential makes Ping and Status fail with ErrUnauthorized,
// without a request, while the client holds no credential. Runners only
// accept calls from the holder of the credential they issued on claim.
func WithRequiredCredential() Option {
	return func(c *Client) { c.requireCredential = true }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New returns a client for the peer at address. An empty credential means
// the peer has not been claimed yet.
func New(address, credential string, opts ...Option) *Client {
	c := &Client{
		address:    address,
		credential: credential,
		observers:  make(map[Observer]struct{}),
		httpClient: &http.Client{Timeout: DefaultRequestTimeout},
		interval:   DefaultPollInterval,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Address() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.address
}

// SetAddress redirects every later request, including pending poll ticks.
func (c *Client) SetAddress(address string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.address = address
}

func (c *Client) Credential() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.credential
}

func (c *Client) SetCredential(credential string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.credential = credential
}

// Claimed reports whether the client holds a credential.
func (c *Client) Claimed() bool { return c.Credential() != "" }

func (c *Client) endpoint() (string, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return strings.TrimRight(c.address, "/"), c.credential
}

// Claim performs the ownership handshake and keeps the issued credential.
// It fails with ErrAlreadyClaimed when the client already holds one or the
// peer reports it has been claimed by someone else.
func (c *Client) Claim(ctx context.Context) (string, error) {
	if c.Claimed() {
		return "", ErrAlreadyClaimed
	}

	body, err := c.do(ctx, http.MethodPost, "/claim")
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusConflict {
			return "", ErrAlreadyClaimed
		}
		return "", err
	}

	identity := gjson.GetBytes(body, "identity").String()
	credential := gjson.GetBytes(body, "credential").String()
	if identity == "" || credential == "" {
		return "", ErrInvalidClaim
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.credential != "" {
		return "", ErrAlreadyClaimed
	}
	c.credential = credential
	return identity, nil
}

// Release gives the peer back and forgets the credential. Releasing an
// unclaimed client is a no-op.
func (c *Client) Release(ctx context.Context) error {
	if !c.Claimed() {
		return nil
	}

	_, err := c.do(ctx, http.MethodPost, "/release")

	c.mu.Lock()
	c.credential = ""
	c.mu.Unlock()

	return err
}

func (c *Client) Ping(ctx context.Context) error {
	_, err := c.authed(ctx, http.MethodGet, "/ping")
	return err
}

func (c *Client) Status(ctx context.Context) (*Status, error) {
	body, err := c.authed(ctx, http.MethodGet, "/status")
	if err != nil {
		return nil, err
	}
	return ParseStatus(body)
}

func (c *Client) authed(ctx context.Context, method, path string) ([]byte, error) {
	if c.requireCredential {
		if address, credential := c.endpoint(); credential == "" {
			return nil, fmt.Errorf("%w: %s: no credential held", ErrUnauthorized, address)
		}
	}
	return c.do(ctx, method, path)
}

func (c *Client) do(ctx context.Context, method, path string) ([]byte, error) {
	address, credential := c.endpoint()

	req, err := http.NewRequestWithContext(ctx, method, address+path, nil)
	if err != nil {
		return nil, &UnreachableError{Address: address, Cause: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Debug("peer request failed",
			slog.String("peer_address", address),
			slog.String("path", path),
			slog.Duration("duration", time.Since(start)),
			slog.Any("error", err))
		return nil, &UnreachableError{Address: address, Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &UnreachableError{Address: address, Cause: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, address)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}
