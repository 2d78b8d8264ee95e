package optimizer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	core "github.com/kilianp07/coopt/core/optimizer"
	"github.com/kilianp07/coopt/infra/logger"
)

// maxErrorBody bounds the body excerpt kept in status errors.
const maxErrorBody = 512

// HTTPClient queries the optimizer service over HTTP.
type HTTPClient struct {
	baseURL  string
	endpoint core.Endpoint
	client   *http.Client
	auth     Authorizer
	log      logger.Logger
}

// Authorizer decorates outgoing requests with credentials.
type Authorizer interface {
	Authorize(r *http.Request) error
}

// Option customizes an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) { h.client = c }
}

// WithAuthorizer authenticates every request with a.
func WithAuthorizer(a Authorizer) Option {
	return func(h *HTTPClient) { h.auth = a }
}

// WithLogger replaces the component logger.
func WithLogger(l logger.Logger) Option {
	return func(h *HTTPClient) { h.log = l }
}

// NewHTTPClient creates a client for the endpoint. A zero timeout leaves
// requests unbounded apart from the caller's context.
func NewHTTPClient(baseURL string, ep core.Endpoint, timeout time.Duration, opts ...Option) (*HTTPClient, error) {
	if ep.Simulated() {
		return nil, fmt.Errorf("endpoint %s performs no request", ep.Name)
	}
	if baseURL == "" {
		baseURL = core.DefaultBaseURL
	}
	if ep.Schema == nil {
		ep.Schema = core.ObjectSchema{}
	}
	c := &HTTPClient{
		baseURL:  baseURL,
		endpoint: ep,
		client:   &http.Client{Timeout: timeout},
		log:      logger.New("optimizer-client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoint returns the descriptor used by the client.
func (c *HTTPClient) Endpoint() core.Endpoint { return c.endpoint }

// Fetch performs one GET for the objective and validates the body against
// the endpoint schema.
func (c *HTTPClient) Fetch(ctx context.Context, o core.Objective) (core.Result, error) {
	url := c.endpoint.URL(c.baseURL, o)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return core.Result{}, c.fail(core.KindNetwork, 0, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if c.auth != nil {
		if err := c.auth.Authorize(req); err != nil {
			return core.Result{}, c.fail(core.KindNetwork, 0, err)
		}
	}

	c.log.Debugf("GET %s", url)
	resp, err := c.client.Do(req)
	if err != nil {
		return core.Result{}, c.fail(core.KindNetwork, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return core.Result{}, c.fail(core.KindStatus, resp.StatusCode, fmt.Errorf("body: %s", body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.Result{}, c.fail(core.KindNetwork, resp.StatusCode, fmt.Errorf("failed to read response: %w", err))
	}
	if err := c.endpoint.Schema.Validate(body); err != nil {
		return core.Result{}, c.fail(core.KindMalformed, resp.StatusCode, err)
	}
	return core.NewResult(body), nil
}

func (c *HTTPClient) fail(kind core.ErrorKind, status int, err error) error {
	return &core.RequestError{Kind: kind, Endpoint: c.endpoint.Name, StatusCode: status, Err: err}
}
