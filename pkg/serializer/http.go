// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package serializer

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/NVIDIA/flowd/pkg/defaults"
)

// RespondJSON writes a JSON response with the given status code and data.
// It buffers the JSON encoding before writing headers to prevent partial responses.
func RespondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")

	// Serialize first to detect errors before writing headers
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(data); err != nil {
		slog.Error("json encoding failed", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(statusCode)
	if _, err := w.Write(buf.Bytes()); err != nil {
		// Connection is broken, log but can't recover
		slog.Warn("response write failed", slog.String("error", err.Error()))
	}
}

const (
	// DefaultUserAgent is sent with every request unless overridden.
	DefaultUserAgent = "flowd/1.0"

	// DefaultMaxResponseBytes bounds how much of a response body is read.
	DefaultMaxResponseBytes int64 = 64 << 20
)

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	URL    string
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("request to %s failed: status %s", e.URL, e.Status)
	}
	return fmt.Sprintf("request to %s failed: status %s: %s", e.URL, e.Status, e.Body)
}

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

// HTTPClient fetches and posts documents with the pooled transport and
// timeouts from the defaults package.
type HTTPClient struct {
	userAgent string
	headers   map[string]string
	maxBytes  int64
	insecure  bool
	timeout   time.Duration
	client    *http.Client
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) HTTPOption {
	return func(c *HTTPClient) {
		c.userAgent = userAgent
	}
}

// WithTimeout bounds each request end to end.
func WithTimeout(timeout time.Duration) HTTPOption {
	return func(c *HTTPClient) {
		c.timeout = timeout
	}
}

// WithInsecureSkipVerify disables TLS certificate verification.
func WithInsecureSkipVerify(skip bool) HTTPOption {
	return func(c *HTTPClient) {
		c.insecure = skip
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) HTTPOption {
	return func(c *HTTPClient) {
		if c.headers == nil {
			c.headers = make(map[string]string)
		}
		c.headers[key] = value
	}
}

// WithBearerToken sets the Authorization header. Empty tokens are ignored.
func WithBearerToken(token string) HTTPOption {
	return func(c *HTTPClient) {
		if token == "" {
			return
		}
		WithHeader("Authorization", "Bearer "+token)(c)
	}
}

// WithMaxResponseBytes limits the size of response bodies.
func WithMaxResponseBytes(n int64) HTTPOption {
	return func(c *HTTPClient) {
		c.maxBytes = n
	}
}

// WithHTTPClient replaces the underlying client. Transport options are
// then left to the caller.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a new HTTPClient with the specified options.
func NewHTTPClient(opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		userAgent: DefaultUserAgent,
		maxBytes:  DefaultMaxResponseBytes,
		timeout:   defaults.HTTPClientTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.client == nil {
		c.client = &http.Client{
			Timeout:   c.timeout,
			Transport: newTransport(c.insecure),
		}
	}
	return c
}

func newTransport(insecure bool) *http.Transport {
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		DialContext: (&net.Dialer{
			Timeout:   defaults.HTTPConnectTimeout,
			KeepAlive: defaults.HTTPKeepAlive,
		}).DialContext,
		TLSHandshakeTimeout:   defaults.HTTPTLSHandshakeTimeout,
		ResponseHeaderTimeout: defaults.HTTPResponseHeaderTimeout,
		ExpectContinueTimeout: defaults.HTTPExpectContinueTimeout,
		IdleConnTimeout:       defaults.HTTPIdleConnTimeout,
		ForceAttemptHTTP2:     true,
		TLSClientConfig: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: insecure, //nolint:gosec // opt-in per source/sink config
		},
	}
}

// Get fetches url and returns the response body.
func (c *HTTPClient) Get(ctx context.Context, url string) ([]byte, error) {
	return c.Send(ctx, http.MethodGet, url, "", nil)
}

// Post sends body to url with the given content type and returns the response body.
func (c *HTTPClient) Post(ctx context.Context, url, contentType string, body []byte) ([]byte, error) {
	return c.Send(ctx, http.MethodPost, url, contentType, body)
}

// Download fetches url and writes the body to path.
func (c *HTTPClient) Download(ctx context.Context, url, path string) error {
	data, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}
	return nil
}

// Send issues a request with an optional body and returns the response body.
// Non-2xx answers are returned as *StatusError.
func (c *HTTPClient) Send(ctx context.Context, method, url, contentType string, body []byte) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("url is empty")
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for url %s: %w", url, err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http %s request failed for url %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", url, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			URL:    url,
			Code:   resp.StatusCode,
			Status: resp.Status,
			Body:   truncate(string(bytes.TrimSpace(data)), 256),
		}
	}

	return data, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
