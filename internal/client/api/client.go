// Package api is the HTTP adapter between the domain services and the remote
// flashcards service. It attaches the bearer token, encodes request bodies and
// maps failures onto TransportError, HTTPStatusError and DecodeError.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"flashcards/internal/client/events"
	"flashcards/pkg/protocol"
)

// maxBodySize caps how much of a response body is read.
const maxBodySize int64 = 4 * 1024 * 1024

// TokenSource supplies the current access token. session.Store satisfies it.
type TokenSource interface {
	Get() (string, bool)
}

// Client sends authenticated JSON requests to the API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenSource
	eventBus   *events.Bus
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout on the underlying http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithEventBus publishes request start/complete events to bus.
func WithEventBus(bus *events.Bus) Option {
	return func(c *Client) { c.eventBus = bus }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient creates a client for baseURL (e.g. http://localhost:3000/api).
// tokens may be nil for unauthenticated use.
func NewClient(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		tokens:     tokens,
		userAgent:  "flashcards-client",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get issues a GET and decodes the response into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST with in as the JSON body.
func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	return c.Do(ctx, http.MethodPost, path, in, out)
}

// Patch issues a PATCH with in as the JSON body.
func (c *Client) Patch(ctx context.Context, path string, in, out any) error {
	return c.Do(ctx, http.MethodPatch, path, in, out)
}

// Delete issues a DELETE. Any response body is discarded.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}

// Do performs one request. If out is non-nil the response body must decode
// into it; an empty body is a DecodeError in that case.
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	url := c.baseURL + path

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if tok, ok := c.tokens.Get(); ok {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	c.publish(events.EventRequestStart, events.RequestData{Method: method, Path: path})
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.publish(events.EventRequestComplete, events.RequestData{
			Method:   method,
			Path:     path,
			Duration: time.Since(start),
		})
		return &TransportError{Method: method, URL: url, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	c.publish(events.EventRequestComplete, events.RequestData{
		Method:   method,
		Path:     path,
		Status:   resp.StatusCode,
		Duration: time.Since(start),
		Bytes:    int64(len(respBody)),
	})
	if err != nil {
		return &TransportError{Method: method, URL: url, Err: err}
	}

	if resp.StatusCode >= 400 {
		return newStatusError(resp.StatusCode, respBody)
	}

	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(respBody)) == 0 {
		return &DecodeError{Target: typeName(out), Err: io.ErrUnexpectedEOF}
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &DecodeError{Target: typeName(out), Body: respBody, Err: err}
	}
	return nil
}

func newStatusError(status int, body []byte) *HTTPStatusError {
	se := &HTTPStatusError{Status: status, Body: body}
	var er protocol.ErrorResponse
	if json.Unmarshal(body, &er) == nil {
		se.Message = er.Message
		se.Fields = er.Errors
	}
	return se
}

func (c *Client) publish(t events.EventType, data events.RequestData) {
	if c.eventBus != nil {
		c.eventBus.Publish(events.Event{Type: t, Data: data})
	}
}

func typeName(v any) string {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.String()
}
