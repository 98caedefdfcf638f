package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a thin typed wrapper over the review backend's REST API. It keeps
// no state between calls, never retries, and reports backend errors as-is.
type Client struct {
	baseURL    string
	assetURL   string
	httpClient *http.Client
	logger     *slog.Logger

	timeout    time.Duration
	hasTimeout bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its transport is
// wrapped for request ids and logging.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets a whole-request timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
		c.hasTimeout = true
	}
}

// WithLogger sets the logger used for request logs.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client for the API at baseURL. assetURL is the static
// origin that serves image bytes.
func NewClient(baseURL, assetURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		assetURL:   strings.TrimRight(assetURL, "/"),
		httpClient: &http.Client{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	hc := *c.httpClient
	if c.hasTimeout {
		hc.Timeout = c.timeout
	}
	hc.Transport = newLoggingTransport(hc.Transport, c.logger)
	c.httpClient = &hc
	return c
}

// BaseURL returns the API origin.
func (c *Client) BaseURL() string { return c.baseURL }

// ImageURL resolves an image_path against the asset origin. Absolute URLs
// are returned unchanged and an empty path yields "".
func (c *Client) ImageURL(imagePath string) string {
	if imagePath == "" {
		return ""
	}
	if strings.HasPrefix(imagePath, "http://") || strings.HasPrefix(imagePath, "https://") {
		return imagePath
	}
	if !strings.HasPrefix(imagePath, "/") {
		imagePath = "/" + imagePath
	}
	return c.assetURL + imagePath
}

func requireIdentity(op, email string) error {
	if strings.TrimSpace(email) == "" {
		return ValidationError(op, "identity is required")
	}
	return nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// send performs the request and returns the response for 2xx statuses. Any
// other status is converted into an *Error carrying the backend's detail.
// The caller closes the body.
func (c *Client) send(ctx context.Context, op, method, rawURL string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, &Error{Op: op, Kind: KindValidation, Err: fmt.Errorf("create request: %w", err)}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Op: op, Kind: KindNetwork, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return nil, &Error{
			Op:         op,
			Kind:       KindServer,
			StatusCode: resp.StatusCode,
			Detail:     parseDetail(data),
			Err:        fmt.Errorf("HTTP %d", resp.StatusCode),
		}
	}
	return resp, nil
}

// doJSON sends in as a JSON body (if non-nil) and returns the raw response
// body of a successful call.
func (c *Client) doJSON(ctx context.Context, op, method, path string, query url.Values, in any) ([]byte, error) {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, &Error{Op: op, Kind: KindValidation, Err: fmt.Errorf("encode request: %w", err)}
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	resp, err := c.send(ctx, op, method, c.endpoint(path, query), body, contentType)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Op: op, Kind: KindNetwork, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}
	return data, nil
}

func emailQuery(email string) url.Values {
	return url.Values{"email": []string{email}}
}
