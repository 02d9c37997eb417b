// Package client is a typed HTTP client for the chat API. A Client acts on
// behalf of one user.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"alumnichat/pkg/auth"
	"alumnichat/pkg/chaterr"
	"alumnichat/pkg/router"

	"github.com/valyala/fasthttp"
)

const defaultTimeout = 10 * time.Second

type Config struct {
	BaseURL string
	APIKey  string
	User    string
	// Signature is the X-User-Signature issued for User. When empty and
	// SigningKey is set, it is computed locally.
	Signature  string
	SigningKey string
	Timeout    time.Duration
	// Dial overrides the network dialer, e.g. for in-memory listeners.
	Dial fasthttp.DialFunc
}

type Client struct {
	hc      *fasthttp.Client
	base    string
	apiKey  string
	user    string
	sig     string
	timeout time.Duration
}

func New(cfg Config) (*Client, error) {
	base := strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("client: base url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("client: invalid base url: %w", err)
	}
	sig := cfg.Signature
	if sig == "" && cfg.SigningKey != "" && cfg.User != "" {
		sig = auth.CreateHMACSignature(cfg.User, cfg.SigningKey)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		hc: &fasthttp.Client{
			Name:                "chatctl",
			Dial:                cfg.Dial,
			MaxIdleConnDuration: time.Minute,
		},
		base:    base,
		apiKey:  cfg.APIKey,
		user:    cfg.User,
		sig:     sig,
		timeout: timeout,
	}, nil
}

// User is the identity requests are sent as.
func (c *Client) User() string { return c.user }

// APIError is a non-2xx response. Err is the matching domain sentinel, so
// errors.Is(err, chaterr.ErrNotConnected) works on the caller's side.
type APIError struct {
	Status  int
	Kind    string
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("%s (%s, status %d)", e.Message, e.Kind, e.Status)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

func (e *APIError) Unwrap() error { return e.Err }

func (c *Client) newRequest(method, path string) *fasthttp.Request {
	req := fasthttp.AcquireRequest()
	req.Header.SetMethod(method)
	req.SetRequestURI(c.base + path)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if c.user != "" {
		req.Header.Set(auth.HeaderUserID, c.user)
	}
	if c.sig != "" {
		req.Header.Set(auth.HeaderUserSignature, c.sig)
	}
	return req
}

// do sends req and decodes a JSON response into out. req is released.
func (c *Client) do(ctx context.Context, req *fasthttp.Request, out any) error {
	defer fasthttp.ReleaseRequest(req)
	if err := ctx.Err(); err != nil {
		return err
	}
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.hc.DoDeadline(req, resp, deadline); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s %s: %w", req.Header.Method(), req.URI().Path(), err)
	}

	status := resp.StatusCode()
	if status < 200 || status > 299 {
		return decodeError(status, resp.Body())
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(status int, body []byte) error {
	var eb router.ErrorBody
	if err := json.Unmarshal(body, &eb); err != nil || eb.Error == "" {
		eb.Error = strings.TrimSpace(string(body))
		if eb.Error == "" {
			eb.Error = fasthttp.StatusMessage(status)
		}
	}
	apiErr := &APIError{Status: status, Kind: eb.Kind, Message: eb.Error}
	if sentinel, ok := chaterr.FromKind(eb.Kind); ok {
		apiErr.Err = sentinel
	}
	return apiErr
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.do(ctx, c.newRequest(fasthttp.MethodGet, path), out)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, body, out any) error {
	req := c.newRequest(method, path)
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			fasthttp.ReleaseRequest(req)
			return err
		}
		req.Header.SetContentType("application/json")
		req.SetBody(raw)
	}
	return c.do(ctx, req, out)
}
