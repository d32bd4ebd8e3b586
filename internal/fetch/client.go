// Package fetch is the outbound request layer shared by every platform adapter.
// It paces calls per platform, rotates browser fingerprints, decodes compressed
// bodies and retries transient failures.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/hotelrank/internal/domain"
	"github.com/timmy/hotelrank/internal/logger"
)

const maxBodyBytes = 10 << 20

// Config holds the request-layer settings.
type Config struct {
	Timeout    time.Duration
	MaxRetries int
	// RequestsPerSecond caps calls across all platforms; zero means no cap.
	RequestsPerSecond float64
}

// Profile describes how one platform is contacted.
type Profile struct {
	Platform domain.Platform
	MinDelay time.Duration
	MaxDelay time.Duration
	// Headers are sent on every call, after the fingerprint headers.
	Headers map[string]string
	// Cookies, when set, is called once per attempt to build fresh session cookies.
	Cookies func() map[string]string
}

// Request is one logical outbound call.
type Request struct {
	Method  string
	URL     string
	Query   map[string]string
	Headers map[string]string
	Body    interface{}
}

// Response is a fully read and decoded HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client sends paced, fingerprinted requests.
type Client struct {
	http         *resty.Client
	pacer        *Pacer
	fingerprints *FingerprintPool
	maxRetries   int
}

// NewClient creates a request-layer client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	client := resty.New()
	client.SetTimeout(timeout)
	client.SetDoNotParseResponse(true)

	return &Client{
		http:         client,
		pacer:        NewPacer(cfg.RequestsPerSecond),
		fingerprints: NewFingerprintPool(),
		maxRetries:   maxRetries,
	}
}

// Send performs the request, retrying retryable transport failures up to the
// configured number of extra attempts. Every attempt waits for the platform's
// pacer and uses a fresh fingerprint. Non-retryable statuses are returned as
// responses; the caller decides what they mean.
func (c *Client) Send(ctx context.Context, profile *Profile, req *Request) (*Response, error) {
	var lastErr error
	attempts := c.maxRetries + 1

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := c.pacer.Wait(ctx, profile.Platform, profile.MinDelay, profile.MaxDelay); err != nil {
			return nil, &domain.TransportError{Op: "pace", Err: err}
		}

		start := time.Now()
		resp, err := c.do(ctx, profile, req)
		entry := logger.With(logger.Fields{
			logger.FieldPlatform:   string(profile.Platform),
			logger.FieldAttempt:    attempt,
			logger.FieldDurationMs: time.Since(start).Milliseconds(),
		})
		if err == nil {
			entry.WithStatus(fmt.Sprintf("%d", resp.StatusCode)).Debug(ctx, "%s %s", req.method(), req.URL)
			return resp, nil
		}

		lastErr = err
		if !domain.IsRetryable(err) {
			return nil, err
		}
		entry.WithStatus("retry").Warn(ctx, "Request to %s failed: %v", req.URL, err)
	}

	return nil, fmt.Errorf("giving up after %d attempts: %w", attempts, lastErr)
}

func (c *Client) do(ctx context.Context, profile *Profile, req *Request) (*Response, error) {
	fp := c.fingerprints.Next(string(profile.Platform))

	r := c.http.R().SetContext(ctx)
	r.SetHeaders(fp.Headers())
	r.SetHeaders(profile.Headers)
	r.SetHeaders(req.Headers)
	if profile.Cookies != nil {
		if cookie := cookieHeader(profile.Cookies()); cookie != "" {
			r.SetHeader("Cookie", cookie)
		}
	}
	if len(req.Query) > 0 {
		r.SetQueryParams(req.Query)
	}
	if req.Body != nil {
		r.SetBody(req.Body)
	}

	resp, err := r.Execute(req.method(), req.URL)
	if resp != nil && resp.RawBody() != nil {
		defer resp.RawBody().Close()
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, &domain.TransportError{Op: "send", Err: ctx.Err()}
		}
		return nil, &domain.TransportError{Op: "send", Retryable: true, Err: err}
	}

	status := resp.StatusCode()
	if status == http.StatusTooManyRequests || status >= 500 {
		return nil, &domain.TransportError{
			Op:        "status",
			Retryable: true,
			Err:       fmt.Errorf("unexpected status %d", status),
		}
	}

	raw, err := readLimited(resp.RawBody())
	if errors.Is(err, ErrBodyTooLarge) {
		return nil, &domain.TransportError{Op: "read", Err: err}
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, &domain.TransportError{Op: "read", Err: ctx.Err()}
		}
		return nil, &domain.TransportError{Op: "read", Retryable: true, Err: err}
	}

	body, err := Decode(resp.Header().Get("Content-Encoding"), raw)
	if err != nil {
		var unsupported *UnsupportedEncodingError
		return nil, &domain.TransportError{
			Op:        "decode",
			Retryable: !errors.As(err, &unsupported) && !errors.Is(err, ErrBodyTooLarge),
			Err:       err,
		}
	}

	return &Response{
		StatusCode: status,
		Header:     resp.Header(),
		Body:       body,
	}, nil
}

func (r *Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return r.Method
}

func cookieHeader(cookies map[string]string) string {
	if len(cookies) == 0 {
		return ""
	}
	names := make([]string, 0, len(cookies))
	for name := range cookies {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+cookies[name])
	}
	return strings.Join(parts, "; ")
}
