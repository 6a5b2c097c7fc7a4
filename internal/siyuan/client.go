// Package siyuan is a typed client for the SiYuan kernel HTTP API.
//
// Every call is a POST carrying a JSON payload. The kernel answers with an
// envelope {code, msg, data}, usually with HTTP 200 even on failure. Client
// unwraps that envelope and reports every failure as a *Error whose Kind says
// whether the transport, the kernel, or something else broke.
package siyuan

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Payload is the JSON object sent as a request body.
type Payload map[string]any

// Config is the connection configuration of a Client.
type Config struct {
	BaseURL string
	Token   string
}

// envelope is the kernel's reply wrapper. Code is a pointer so that a body
// without a code is told apart from code 0.
type envelope struct {
	Code *int            `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// Client talks to one SiYuan kernel with one token. It holds no mutable
// state and is safe for concurrent use.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds every request. Zero means no client-side bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithLogger sets the logger used for per-request debug output.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Client for cfg.
func New(cfg Config, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("siyuan: base url is required")
	}
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the kernel address the client was created for.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Request POSTs payload to endpoint and returns the envelope's data
// untouched. A nil payload is sent as an empty object.
//
// On failure the returned error is always a *Error.
func (c *Client) Request(ctx context.Context, endpoint string, payload Payload) (json.RawMessage, error) {
	if payload == nil {
		payload = Payload{}
	}
	start := time.Now()

	data, err := c.roundTrip(ctx, endpoint, payload)
	if err != nil {
		nerr := unexpectedError(endpoint, payload, err)
		c.logger.Debug("siyuan: request failed",
			slog.String("endpoint", endpoint),
			slog.String("kind", nerr.Kind.String()),
			slog.String("code", nerr.Code),
			slog.Duration("elapsed", time.Since(start)))
		return nil, nerr
	}

	c.logger.Debug("siyuan: request ok",
		slog.String("endpoint", endpoint),
		slog.Duration("elapsed", time.Since(start)))
	return data, nil
}

func (c *Client) roundTrip(ctx context.Context, endpoint string, payload Payload) (json.RawMessage, error) {
	if endpoint == "" {
		return nil, errors.New("empty endpoint")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(endpoint, payload, 0, nil, nil, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(endpoint, payload, resp.StatusCode, nil, nil, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var env *envelope
		var parsed envelope
		if json.Unmarshal(respBody, &parsed) == nil {
			env = &parsed
		}
		return nil, transportError(endpoint, payload, resp.StatusCode, env, respBody,
			fmt.Errorf("request failed with status code %d", resp.StatusCode))
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Code == nil {
		return nil, errors.New("response carries no envelope code")
	}
	if *env.Code != 0 {
		return nil, applicationError(endpoint, payload, &env)
	}
	if env.Data == nil {
		return json.RawMessage("null"), nil
	}
	return env.Data, nil
}

// call issues a request and decodes the data into T.
func call[T any](ctx context.Context, c *Client, endpoint string, payload Payload) (T, error) {
	var out T
	data, err := c.Request(ctx, endpoint, payload)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, unexpectedError(endpoint, payload, fmt.Errorf("decode %s data: %w", endpoint, err))
	}
	return out, nil
}

// exec issues a request whose data carries no result.
func exec(ctx context.Context, c *Client, endpoint string, payload Payload) error {
	_, err := c.Request(ctx, endpoint, payload)
	return err
}
