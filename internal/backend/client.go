// Package backend is the HTTP client for the coverage REST backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/banshee-data/coverage.report/internal/httputil"
)

// RequestIDHeader carries the request id to the backend.
const RequestIDHeader = "X-Request-ID"

const (
	maxErrorBody    = 64 << 10
	maxTemplateBody = 4 << 20
)

// Client calls the backend endpoints. It is safe for concurrent use.
type Client struct {
	base *url.URL
	http httputil.HTTPClient
}

// New returns a Client for the backend at baseURL.
func New(baseURL string, hc httputil.HTTPClient) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend url %q must be http or https", baseURL)
	}
	if hc == nil {
		hc = httputil.NewStandardClient(nil)
	}
	return &Client{base: u, http: hc}, nil
}

// BaseURL returns the backend origin.
func (c *Client) BaseURL() string { return c.base.String() }

type requestIDKey struct{}

// WithRequestID attaches a request id that outgoing calls forward.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id attached by WithRequestID.
func RequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = ""
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	id, ok := RequestID(ctx)
	if !ok {
		id = uuid.NewString()
	}
	req.Header.Set(RequestIDHeader, id)
	return req, nil
}

// send performs req and returns the response when it is 2xx. Any other
// status is read into an APIError.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: req.Method, URL: req.URL.String(), Err: err}
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return nil, &TransportError{Op: req.Method, URL: req.URL.String(), Err: err}
	}
	return nil, parseAPIError(resp.StatusCode, body)
}

// do sends req and decodes a JSON body into out, which may be nil.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, query, nil, "")
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", method, path, err)
	}
	req, err := c.newRequest(ctx, method, path, nil, bytes.NewReader(data), "application/json")
	if err != nil {
		return err
	}
	return c.do(req, out)
}
