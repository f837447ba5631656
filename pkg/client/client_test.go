package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pitchroom/internal/content/models"
	"pitchroom/internal/content/schema"
)

func validDoc() models.Document {
	return models.Document{
		"meta":       map[string]any{"title": "Dashboard"},
		"keyMetrics": []any{},
	}
}

// testServer counts hits and serves scripted responses.
type testServer struct {
	*httptest.Server
	mu       sync.Mutex
	gets     int
	posts    int
	respond  func(w http.ResponseWriter, r *http.Request)
	lastAuth string
}

func newTestServer(respond func(w http.ResponseWriter, r *http.Request)) *testServer {
	ts := &testServer{respond: respond}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.mu.Lock()
		switch r.Method {
		case http.MethodGet:
			ts.gets++
		case http.MethodPost:
			ts.posts++
		}
		ts.lastAuth = r.Header.Get("Authorization")
		respond := ts.respond
		ts.mu.Unlock()
		respond(w, r)
	}))
	return ts
}

func (ts *testServer) counts() (gets, posts int) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.gets, ts.posts
}

func (ts *testServer) setRespond(f func(w http.ResponseWriter, r *http.Request)) {
	ts.mu.Lock()
	ts.respond = f
	ts.mu.Unlock()
}

func serveDoc(doc models.Document) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(doc)
	}
}

func serveError(status int, code string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": code, "message": code})
	}
}

// fastBackOff keeps retry pacing deterministic and the test quick: 1ms
// doubling to a 4ms cap.
func fastBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Millisecond
	bo.RandomizationFactor = 0
	bo.Multiplier = 2
	bo.MaxInterval = 4 * time.Millisecond
	bo.MaxElapsedTime = 0
	return bo
}

func newTestClient(t *testing.T, baseURL string, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{
		WithBackOffFactory(fastBackOff),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	c, err := New(baseURL, opts...)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestGetFetchesAndCaches(t *testing.T) {
	ts := newTestServer(serveDoc(validDoc()))
	defer ts.Close()
	c := newTestClient(t, ts.URL)
	ctx := context.Background()

	first, err := c.Get(ctx, "pages/dashboard")
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.True(t, first.Validated)
	assert.Equal(t, validDoc(), first.Document)

	second, err := c.Get(ctx, "pages/dashboard")
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, validDoc(), second.Document)

	gets, _ := ts.counts()
	assert.Equal(t, 1, gets, "fresh cache entries skip the network")
}

func TestGetZeroStaleWindowRefetches(t *testing.T) {
	ts := newTestServer(serveDoc(validDoc()))
	defer ts.Close()
	c := newTestClient(t, ts.URL)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := c.Get(ctx, "pages/dashboard", WithStaleWindow(0))
		require.NoError(t, err)
	}

	gets, _ := ts.counts()
	assert.Equal(t, 3, gets)
}

func TestGetParamsExtendCacheKey(t *testing.T) {
	ts := newTestServer(serveDoc(validDoc()))
	defer ts.Close()
	c := newTestClient(t, ts.URL)
	ctx := context.Background()

	_, err := c.Get(ctx, "shared/live-metrics")
	require.NoError(t, err)
	_, err = c.Get(ctx, "shared/live-metrics", WithParams(map[string][]string{"range": {"30d"}}))
	require.NoError(t, err)

	gets, _ := ts.counts()
	assert.Equal(t, 2, gets, "distinct params are distinct cache entries")
	assert.Equal(t, 2, c.Cache().Len())
}

func TestGetServerErrorsRetriedWithIncreasingDelays(t *testing.T) {
	ts := newTestServer(serveError(http.StatusInternalServerError, "internal"))
	defer ts.Close()

	var delays []time.Duration
	c := newTestClient(t, ts.URL, WithRetryNotify(func(_ error, next time.Duration) {
		delays = append(delays, next)
	}))

	_, err := c.Get(context.Background(), "pages/dashboard", WithRetries(3))
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)

	gets, _ := ts.counts()
	assert.Equal(t, 4, gets, "initial attempt plus three retries")
	assert.Equal(t, []time.Duration{
		time.Millisecond,
		2 * time.Millisecond,
		4 * time.Millisecond,
	}, delays, "delays double up to the cap")
}

func TestGetClientErrorNeverRetried(t *testing.T) {
	ts := newTestServer(serveError(http.StatusNotFound, "not_found"))
	defer ts.Close()
	c := newTestClient(t, ts.URL)

	_, err := c.Get(context.Background(), "pages/dashboard", WithRetries(5))
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "not_found", apiErr.Code)
	assert.True(t, apiErr.Permanent())

	gets, _ := ts.counts()
	assert.Equal(t, 1, gets, "4xx responses are permanent")
}

func TestGetRecoversMidRetry(t *testing.T) {
	var calls int
	var mu sync.Mutex
	ts := newTestServer(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n <= 2 {
			serveError(http.StatusServiceUnavailable, "internal")(w, r)
			return
		}
		serveDoc(validDoc())(w, r)
	})
	defer ts.Close()
	c := newTestClient(t, ts.URL)

	result, err := c.Get(context.Background(), "pages/dashboard", WithRetries(3))
	require.NoError(t, err)
	assert.Equal(t, validDoc(), result.Document)

	gets, _ := ts.counts()
	assert.Equal(t, 3, gets)
}

func TestGetFailureKeepsStaleData(t *testing.T) {
	ts := newTestServer(serveDoc(validDoc()))
	defer ts.Close()
	c := newTestClient(t, ts.URL)
	ctx := context.Background()

	_, err := c.Get(ctx, "pages/dashboard")
	require.NoError(t, err)

	ts.setRespond(serveError(http.StatusInternalServerError, "internal"))
	_, err = c.Get(ctx, "pages/dashboard", WithStaleWindow(0), WithRetries(0))
	require.Error(t, err)

	// The stale entry no longer satisfies queries, even with a wide window.
	_, err = c.Get(ctx, "pages/dashboard", WithStaleWindow(time.Hour), WithRetries(0))
	require.Error(t, err)

	// But the data itself survives for inspection and later replacement.
	doc, ok := c.Cache().Get("pages/dashboard")
	require.True(t, ok)
	assert.Equal(t, validDoc(), doc)
}

func TestGetInvalidDocumentPermissiveVersusStrict(t *testing.T) {
	invalid := models.Document{"keyMetrics": "not an array"}
	ts := newTestServer(serveDoc(invalid))
	defer ts.Close()

	permissive := newTestClient(t, ts.URL, WithPolicy(schema.PolicyPermissive))
	result, err := permissive.Get(context.Background(), "pages/dashboard")
	require.NoError(t, err)
	assert.False(t, result.Validated)
	assert.Equal(t, invalid, result.Document)

	strict := newTestClient(t, ts.URL, WithPolicy(schema.PolicyStrict))
	_, err = strict.Get(context.Background(), "pages/dashboard", WithoutCache())
	require.Error(t, err)
}

// An unvalidated document stays flagged as unvalidated on cache hits; the
// flag is provenance of the document, not of the fetch.
func TestGetCachedUnvalidatedDocumentStaysUnvalidated(t *testing.T) {
	invalid := models.Document{"keyMetrics": "not an array"}
	ts := newTestServer(serveDoc(invalid))
	defer ts.Close()
	c := newTestClient(t, ts.URL, WithPolicy(schema.PolicyPermissive))
	ctx := context.Background()

	first, err := c.Get(ctx, "pages/dashboard")
	require.NoError(t, err)
	require.False(t, first.Validated)

	second, err := c.Get(ctx, "pages/dashboard")
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.False(t, second.Validated)
	assert.Equal(t, invalid, second.Document)

	gets, _ := ts.counts()
	assert.Equal(t, 1, gets)
}

func TestInvalidateForcesRefetch(t *testing.T) {
	ts := newTestServer(serveDoc(validDoc()))
	defer ts.Close()
	c := newTestClient(t, ts.URL)
	ctx := context.Background()

	_, err := c.Get(ctx, "pages/dashboard")
	require.NoError(t, err)
	c.Invalidate("pages/dashboard", nil)

	_, err = c.Get(ctx, "pages/dashboard")
	require.NoError(t, err)

	gets, _ := ts.counts()
	assert.Equal(t, 2, gets)
}

func TestPutSuccessIsTrustedWithoutRefetch(t *testing.T) {
	stamp := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	ts := newTestServer(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":   true,
			"message":   "document saved",
			"timestamp": stamp,
		})
	})
	defer ts.Close()
	c := newTestClient(t, ts.URL, WithSessionToken("session-token"))

	updated := validDoc()
	updated["meta"].(map[string]any)["title"] = "New Title"

	got, err := c.Put(context.Background(), "pages/dashboard", updated)
	require.NoError(t, err)
	assert.Equal(t, stamp, got)

	gets, posts := ts.counts()
	assert.Equal(t, 1, posts)
	assert.Zero(t, gets, "a successful write is not re-read")

	cached, ok := c.Cache().Get("pages/dashboard")
	require.True(t, ok)
	assert.Equal(t, "New Title", cached["meta"].(map[string]any)["title"])
}

func TestPutRejectionRollsBackCache(t *testing.T) {
	ts := newTestServer(serveDoc(validDoc()))
	defer ts.Close()
	c := newTestClient(t, ts.URL)
	ctx := context.Background()

	_, err := c.Get(ctx, "pages/dashboard")
	require.NoError(t, err)

	ts.setRespond(serveError(http.StatusForbidden, "forbidden"))
	updated := validDoc()
	updated["meta"].(map[string]any)["title"] = "Hijacked"

	_, err = c.Put(ctx, "pages/dashboard", updated)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "forbidden", apiErr.Code)

	cached, ok := c.Cache().Get("pages/dashboard")
	require.True(t, ok)
	assert.Equal(t, "Dashboard", cached["meta"].(map[string]any)["title"], "rollback restores the pre-write document")
}

func TestPutRejectionWithEmptyCacheLeavesNoEntry(t *testing.T) {
	ts := newTestServer(serveError(http.StatusUnauthorized, "unauthorized"))
	defer ts.Close()
	c := newTestClient(t, ts.URL)

	_, err := c.Put(context.Background(), "pages/dashboard", validDoc())
	require.Error(t, err)

	_, ok := c.Cache().Get("pages/dashboard")
	assert.False(t, ok, "no phantom entry after a failed optimistic write")
}

func TestPutInvalidDocumentAbortsBeforeNetwork(t *testing.T) {
	ts := newTestServer(serveDoc(validDoc()))
	defer ts.Close()
	c := newTestClient(t, ts.URL)

	_, err := c.Put(context.Background(), "pages/dashboard", models.Document{"keyMetrics": "nope"})
	require.Error(t, err)

	gets, posts := ts.counts()
	assert.Zero(t, gets)
	assert.Zero(t, posts)
	_, ok := c.Cache().Get("pages/dashboard")
	assert.False(t, ok)
}

// flakyTransport fails the first n round trips at the transport level.
type flakyTransport struct {
	mu       sync.Mutex
	failures int
	base     http.RoundTripper
}

func (t *flakyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.mu.Lock()
	fail := t.failures > 0
	if fail {
		t.failures--
	}
	t.mu.Unlock()
	if fail {
		return nil, errors.New("connection reset by peer")
	}
	return t.base.RoundTrip(req)
}

func TestPutRetriesTransportFailureOnce(t *testing.T) {
	ts := newTestServer(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "timestamp": time.Now().UTC()})
	})
	defer ts.Close()

	hc := &http.Client{Transport: &flakyTransport{failures: 1, base: http.DefaultTransport}}
	c := newTestClient(t, ts.URL, WithHTTPClient(hc))

	_, err := c.Put(context.Background(), "pages/dashboard", validDoc())
	require.NoError(t, err)

	_, posts := ts.counts()
	assert.Equal(t, 1, posts, "the retry reached the server exactly once")
}

func TestPutDoesNotRetryTwoTransportFailures(t *testing.T) {
	ts := newTestServer(serveDoc(validDoc()))
	defer ts.Close()

	hc := &http.Client{Transport: &flakyTransport{failures: 2, base: http.DefaultTransport}}
	c := newTestClient(t, ts.URL, WithHTTPClient(hc))

	_, err := c.Put(context.Background(), "pages/dashboard", validDoc())
	require.Error(t, err)

	_, posts := ts.counts()
	assert.Zero(t, posts)
}

func TestSessionTokenAttached(t *testing.T) {
	ts := newTestServer(serveDoc(validDoc()))
	defer ts.Close()
	c := newTestClient(t, ts.URL, WithSessionToken("session-token"))

	_, err := c.Get(context.Background(), "pages/dashboard")
	require.NoError(t, err)

	ts.mu.Lock()
	auth := ts.lastAuth
	ts.mu.Unlock()
	assert.Equal(t, "Bearer session-token", auth)
}
