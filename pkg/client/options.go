package client

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"pitchroom/internal/content/schema"
)

// Option configures a Client at construction.
type Option func(*Client)

// WithHTTPClient swaps the underlying transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithSessionToken attaches the editor session token to every request.
func WithSessionToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithPolicy mirrors the server's validation policy on the client side.
func WithPolicy(policy schema.Policy) Option {
	return func(c *Client) { c.policy = policy }
}

// WithLogger routes client diagnostics somewhere other than the default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithCacheMaxIdle tunes how long untouched cache entries survive.
func WithCacheMaxIdle(d time.Duration) Option {
	return func(c *Client) { c.cacheMaxIdle = d }
}

// WithBackOffFactory overrides retry pacing; tests inject deterministic
// backoffs here.
func WithBackOffFactory(factory func() backoff.BackOff) Option {
	return func(c *Client) { c.backoffFactory = factory }
}

// WithRetryNotify observes each retry (error and upcoming delay).
func WithRetryNotify(notify func(error, time.Duration)) Option {
	return func(c *Client) { c.notify = notify }
}

// QueryOption configures a single query.
type QueryOption func(*queryConfig)

type queryConfig struct {
	staleWindow time.Duration
	timeout     time.Duration
	retries     uint64
	skipCache   bool
	params      url.Values
}

// WithStaleWindow sets how long a cached document is served without a
// network call. Zero forces a refetch.
func WithStaleWindow(d time.Duration) QueryOption {
	return func(q *queryConfig) { q.staleWindow = d }
}

// WithTimeout bounds this query with its own deadline; live-metrics style
// fetches pass 30 seconds here.
func WithTimeout(d time.Duration) QueryOption {
	return func(q *queryConfig) { q.timeout = d }
}

// WithRetries caps retry attempts after the initial request.
func WithRetries(n uint64) QueryOption {
	return func(q *queryConfig) { q.retries = n }
}

// WithoutCache bypasses the cache for this query entirely.
func WithoutCache() QueryOption {
	return func(q *queryConfig) { q.skipCache = true }
}

// WithParams adds query parameters, which also extend the cache key.
func WithParams(params url.Values) QueryOption {
	return func(q *queryConfig) { q.params = params }
}
