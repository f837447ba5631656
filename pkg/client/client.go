// Package client is the typed data-access layer over the content endpoint:
// cached reads with stale-window semantics, exponential-backoff retry, and
// optimistic writes with rollback.
package client

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

	"github.com/cenkalti/backoff/v4"

	"pitchroom/internal/content/models"
	"pitchroom/internal/content/schema"
)

const (
	defaultStaleWindow  = 30 * time.Second
	defaultRetries      = 3
	defaultCacheMaxIdle = 5 * time.Minute
	evictInterval       = time.Minute
)

// Result is a fetched document plus provenance flags.
type Result struct {
	Document  models.Document
	Validated bool
	FromCache bool
}

// Client talks to one pitchroom server on behalf of one session.
type Client struct {
	baseURL        string
	http           *http.Client
	token          string
	policy         schema.Policy
	registry       *schema.Registry
	cache          *Cache
	cacheMaxIdle   time.Duration
	logger         *slog.Logger
	backoffFactory func() backoff.BackOff
	notify         func(error, time.Duration)
	stop           chan struct{}
}

// New builds a client. Close releases the cache janitor.
func New(baseURL string, opts ...Option) (*Client, error) {
	registry, err := schema.NewRegistry()
	if err != nil {
		return nil, fmt.Errorf("compile schemas: %w", err)
	}

	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		http:         &http.Client{},
		policy:       schema.PolicyPermissive,
		registry:     registry,
		cacheMaxIdle: defaultCacheMaxIdle,
		logger:       slog.Default(),
		stop:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.backoffFactory == nil {
		c.backoffFactory = defaultBackOff
	}
	c.cache = NewCache(c.cacheMaxIdle)

	go c.janitor()
	return c, nil
}

// Close stops the background eviction loop.
func (c *Client) Close() {
	close(c.stop)
}

func (c *Client) janitor() {
	ticker := time.NewTicker(evictInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case now := <-ticker.C:
			c.cache.evict(now)
		}
	}
}

// defaultBackOff doubles a 200ms base delay up to a 5s cap. Randomization
// is disabled so delays are reproducible.
func defaultBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.RandomizationFactor = 0
	bo.Multiplier = 2
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = 0
	return bo
}

// Get fetches the document at path. Repeated queries for the same key
// within the staleness window are served from cache without a network
// call. Server errors retry with exponential backoff; 4xx responses are
// permanent and never retried.
func (c *Client) Get(ctx context.Context, path string, opts ...QueryOption) (Result, error) {
	cfg := queryConfig{
		staleWindow: defaultStaleWindow,
		retries:     defaultRetries,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	key := cacheKey(path, cfg.params)
	if !cfg.skipCache {
		if doc, validated, ok := c.cache.Fresh(key, cfg.staleWindow); ok {
			return Result{Document: doc, Validated: validated, FromCache: true}, nil
		}
	}

	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	doc, err := c.fetch(ctx, path, cfg)
	if err != nil {
		// Keep stale data around; a later successful fetch replaces it.
		c.cache.MarkStale(key)
		return Result{}, err
	}

	validated := true
	if verr := schema.SafeValidate(c.registry.ForPath(path), doc, "client read "+path); verr != nil {
		if c.policy == schema.PolicyStrict {
			return Result{}, verr
		}
		c.logger.Warn("using unvalidated document",
			"path", path,
			"error", verr,
		)
		validated = false
	}

	if !cfg.skipCache {
		// The validation outcome is cached with the document so later hits
		// report the same provenance.
		c.cache.Set(key, doc, validated)
	}
	return Result{Document: doc, Validated: validated}, nil
}

// Invalidate drops the cached entry for path so the next query refetches.
func (c *Client) Invalidate(path string, params url.Values) {
	c.cache.Invalidate(cacheKey(path, params))
}

// Put validates and writes a document. The cache is updated optimistically
// before the request and rolled back to its snapshot if the server rejects
// the write. On success the optimistic value is trusted as final; no
// refetch is issued (responsiveness over strict reconciliation).
// Validation failures abort before any network call. Only transport-level
// failures are retried, once; HTTP error statuses are not.
func (c *Client) Put(ctx context.Context, path string, doc models.Document) (time.Time, error) {
	if verr := schema.SafeValidate(c.registry.ForPath(path), doc, "client write "+path); verr != nil {
		return time.Time{}, verr
	}

	key := cacheKey(path, nil)
	snapshot := c.cache.Take(key)
	c.cache.Set(key, doc, true)

	stamp, err := c.post(ctx, path, doc)
	if err != nil {
		c.cache.Restore(key, snapshot)
		return time.Time{}, err
	}
	return stamp, nil
}

// Cache exposes the underlying cache for inspection.
func (c *Client) Cache() *Cache {
	return c.cache
}

func cacheKey(path string, params url.Values) string {
	if len(params) == 0 {
		return path
	}
	return path + "?" + params.Encode()
}

func (c *Client) fetch(ctx context.Context, path string, cfg queryConfig) (models.Document, error) {
	var doc models.Document

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.dataURL(path, cfg.params), nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		c.authorize(req)

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			apiErr := decodeAPIError(resp)
			if apiErr.Permanent() {
				return backoff.Permanent(apiErr)
			}
			return apiErr
		}

		if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
			return backoff.Permanent(fmt.Errorf("decode document %s: %w", path, err))
		}
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(c.backoffFactory(), cfg.retries), ctx)
	notify := c.notify
	if notify == nil {
		notify = func(err error, next time.Duration) {
			c.logger.Debug("retrying content fetch",
				"path", path,
				"next_delay", next,
				"error", err,
			)
		}
	}
	if err := backoff.RetryNotify(operation, bo, notify); err != nil {
		return nil, err
	}
	return doc, nil
}

func (c *Client) post(ctx context.Context, path string, doc models.Document) (time.Time, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return time.Time{}, fmt.Errorf("encode document %s: %w", path, err)
	}

	do := func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.dataURL(path, nil), bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		c.authorize(req)
		return c.http.Do(req)
	}

	resp, err := do()
	if err != nil {
		// One retry for transport-level failures only.
		c.logger.Debug("retrying content write after transport failure",
			"path", path,
			"error", err,
		)
		resp, err = do()
		if err != nil {
			return time.Time{}, fmt.Errorf("write document %s: %w", path, err)
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return time.Time{}, decodeAPIError(resp)
	}

	var out struct {
		Success   bool      `json:"success"`
		Timestamp time.Time `json:"timestamp"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return time.Time{}, fmt.Errorf("decode write response %s: %w", path, err)
	}
	return out.Timestamp, nil
}

func (c *Client) dataURL(path string, params url.Values) string {
	u := c.baseURL + "/api/data/" + strings.TrimLeft(path, "/")
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func decodeAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode, Code: "internal"}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return apiErr
	}
	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Error != "" {
		apiErr.Code = envelope.Error
		apiErr.Message = envelope.Message
	}
	return apiErr
}
