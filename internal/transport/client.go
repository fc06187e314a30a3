// Package transport is the HTTP plumbing shared by the tabular source
// fetcher and the knowledge-base adapter: user agent, timeouts, cookie
// session, polite rate limiting and bounded response decoding.
package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/agentstation/factsync/pkg/constants"
	"github.com/agentstation/factsync/pkg/errors"
)

// Client provides HTTP client functionality with a session and a limiter.
type Client struct {
	http      *http.Client
	service   string
	userAgent string
	limiter   *rate.Limiter
	maxBytes  int64
}

// Option configures a Client.
type Option func(*Client)

// WithUserAgent sets the User-Agent header sent on every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithLimiter throttles every request through the limiter.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithMaxBytes caps the size of a response body.
func WithMaxBytes(n int64) Option {
	return func(c *Client) { c.maxBytes = n }
}

// New creates a client for the named service. The client keeps cookies
// so a login session survives between calls.
func New(service string, opts ...Option) *Client {
	jar, _ := cookiejar.New(nil)
	c := &Client{
		http:      &http.Client{Timeout: constants.DefaultHTTPTimeout, Jar: jar},
		service:   service,
		userAgent: constants.DefaultUserAgent,
		maxBytes:  constants.MaxDocumentBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Service returns the service name used in errors.
func (c *Client) Service() string {
	return c.service
}

// Do performs an HTTP request after waiting on the limiter.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.Join(errors.ErrCanceled, err)
		}
	}
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.http.Do(req.WithContext(ctx))
	if err != nil {
		return nil, errors.WrapAPI(c.service, 0, err)
	}
	return resp, nil
}

// Get performs a GET request with query parameters.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values) (*http.Response, error) {
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.WrapAPI(c.service, 0, err)
	}
	return c.Do(ctx, req)
}

// PostForm performs a form-encoded POST request.
func (c *Client) PostForm(ctx context.Context, endpoint string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.WrapAPI(c.service, 0, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.Do(ctx, req)
}

// ReadBody reads a bounded response body and closes it. Non-200
// responses become an APIError carrying the body text.
func (c *Client) ReadBody(resp *http.Response) ([]byte, error) {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes))
	if err != nil {
		return nil, errors.WrapIO("read", resp.Request.URL.String(), err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &errors.APIError{
			Service:    c.service,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Endpoint:   resp.Request.URL.String(),
		}
	}
	return body, nil
}

// DecodeResponse decodes a JSON response into the target structure.
func (c *Client) DecodeResponse(resp *http.Response, target any) error {
	body, err := c.ReadBody(resp)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapParse("json", resp.Request.URL.Path, err)
	}
	return nil
}
