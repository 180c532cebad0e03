package forumapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/threadpulse/internal/platform/correlation"
	"github.com/pscheid92/threadpulse/internal/platform/retry"
	"github.com/pscheid92/threadpulse/internal/platform/version"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout        = 10 * time.Second
	defaultRate           = 10 // requests per second
	defaultBurst          = 20
	maxResponseBytes      = 4 << 20
	retryInitialBackoff   = 200 * time.Millisecond
	retryRateLimitBackoff = 2 * time.Second
)

// Client talks to the forum API. It is safe for concurrent use.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	limiter *rate.Limiter
	retry   retry.Policy

	base    http.RoundTripper
	timeout time.Duration

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithTimeout bounds each attempt, body included. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRateLimit paces outgoing requests.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(r, burst) }
}

// WithClock drives retry backoff waits.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) { c.retry.Clock = clock }
}

// WithTransport replaces the innermost transport. The breaker and the
// correlation header are layered on top of it.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.base = rt }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid API URL %q", baseURL)
	}

	c := &Client{
		baseURL: u,
		base:    http.DefaultTransport,
		timeout: defaultTimeout,
		limiter: rate.NewLimiter(defaultRate, defaultBurst),
		retry: retry.Policy{
			MaxAttempts:      3,
			InitialBackoff:   retryInitialBackoff,
			RateLimitBackoff: retryRateLimitBackoff,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http = &http.Client{
		Transport: &correlation.Transport{Base: newBreakerTransport(c.base, c.timeout)},
	}
	return c, nil
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// HasToken reports whether requests are sent authenticated.
func (c *Client) HasToken() bool { return c.Token() != "" }

// call is a single request. out receives the "data" field of the envelope,
// or the whole body when raw is set.
type call struct {
	method string
	path   string
	query  url.Values
	body   any
	out    any
	raw    bool
}

// do runs the call. Reads are retried on transient failures; writes never
// are, since the server may already have applied them.
func (c *Client) do(ctx context.Context, cl call) error {
	if cl.method != http.MethodGet {
		return c.send(ctx, cl)
	}

	p := c.retry
	p.OnRetry = func(attempt int, err error, backoff time.Duration) {
		slog.WarnContext(ctx, "Forum API read failed, retrying",
			"path", cl.path,
			"attempt", attempt,
			"backoff_seconds", backoff.Seconds(),
			"error", err)
	}
	err := retry.DoVoid(ctx, p, classify, func() error { return c.send(ctx, cl) })
	if perm, ok := errors.AsType[*retry.PermanentError](err); ok {
		return perm.Err
	}
	return err
}

func classify(err error) retry.Action {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, circuitbreaker.ErrOpen) {
		return retry.Stop
	}
	apiErr, ok := errors.AsType[*APIError](err)
	if !ok {
		return retry.Retry
	}
	switch {
	case apiErr.Status == http.StatusTooManyRequests:
		return retry.After
	case apiErr.Status >= http.StatusInternalServerError:
		return retry.Retry
	default:
		return retry.Stop
	}
}

func (c *Client) send(ctx context.Context, cl call) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s %s: %w", cl.method, cl.path, err)
	}

	req, err := c.newRequest(ctx, cl)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", cl.method, cl.path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s %s: read response: %w", cl.method, cl.path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseAPIError(resp.StatusCode, body)
	}
	if cl.out == nil {
		return nil
	}
	if err := decode(body, cl.out, cl.raw); err != nil {
		return fmt.Errorf("%s %s: malformed response: %w", cl.method, cl.path, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, cl call) (*http.Request, error) {
	// cl.path is already escaped segment by segment.
	target := c.baseURL.String() + cl.path
	if len(cl.query) > 0 {
		target += "?" + cl.query.Encode()
	}

	var body io.Reader
	if cl.body != nil {
		b, err := json.Marshal(cl.body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decode(body []byte, out any, raw bool) error {
	if raw {
		return json.Unmarshal(body, out)
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return err
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

func pageQuery(draw, start, length int, sort, search string) url.Values {
	q := url.Values{}
	if draw > 0 {
		q.Set("draw", strconv.Itoa(draw))
	}
	if start > 0 {
		q.Set("start", strconv.Itoa(start))
	}
	if length > 0 {
		q.Set("length", strconv.Itoa(length))
	}
	if sort != "" {
		q.Set("sort", sort)
	}
	if search != "" {
		q.Set("search", search)
	}
	return q
}
