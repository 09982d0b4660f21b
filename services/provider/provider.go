// Package provider implements the shared read-through HTTP contract the
// upstream clients (Trakt, TMDB, RPDB) are built on: cache lookup first,
// then a GET with retry on transient failures, then a write-through of the
// response body under the provider's cache namespace.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"traktshelf/internal/cache"

	"github.com/avast/retry-go/v4"
)

// Error kinds shared by every upstream client. Callers classify failures
// with errors.Is and decide per provider whether a kind is fatal.
var (
	// ErrAuthInvalid means the upstream rejected the request credentials.
	ErrAuthInvalid = errors.New("upstream rejected credentials")
	// ErrUpstreamUnavailable covers transport failures, 429 and 5xx after
	// retries are exhausted.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrNotConfigured means a client was constructed without the
	// credentials its provider requires.
	ErrNotConfigured = errors.New("provider not configured")
)

// errNotFound marks a 404. It never escapes GetJSON; absence is reported as
// found == false.
var errNotFound = errors.New("not found")

const defaultTimeout = 10 * time.Second

// Client performs cached GETs against one upstream API.
type Client struct {
	name      string
	baseURL   string
	namespace string
	store     cache.Store
	ttl       time.Duration
	httpc     *http.Client
	prepare   func(*http.Request)

	retryAttempts uint
	retryDelay    time.Duration
}

// Request describes one upstream GET. Params become both the query string
// and part of the cache key; Header carries per-call headers such as the
// bearer token; KeySuffix scopes the cache key to a credential.
type Request struct {
	Endpoint  string
	Params    map[string]string
	Header    http.Header
	KeySuffix string
}

// New returns a client for the given upstream. prepare, when non-nil, is
// applied to every request (static auth headers, api_key query params) and
// deliberately stays out of the cache key. A nil httpc gets the default
// 10 second timeout client.
func New(name, baseURL, namespace string, store cache.Store, ttl time.Duration, httpc *http.Client, prepare func(*http.Request)) *Client {
	if httpc == nil {
		httpc = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		name:          name,
		baseURL:       baseURL,
		namespace:     namespace,
		store:         store,
		ttl:           ttl,
		httpc:         httpc,
		prepare:       prepare,
		retryAttempts: 3,
		retryDelay:    300 * time.Millisecond,
	}
}

// CacheKey builds the logical cache key for an endpoint and its parameters.
// json.Marshal sorts map keys, so the same parameters always produce the
// same key regardless of call-site ordering.
func CacheKey(endpoint string, params map[string]string) string {
	if params == nil {
		params = map[string]string{}
	}
	blob, _ := json.Marshal(params)
	return endpoint + "_" + string(blob)
}

// GetJSON resolves one request through the cache. It returns found == false
// with a nil error when the upstream reports 404; absent results are not
// written to the cache so a later appearance is picked up immediately.
func (c *Client) GetJSON(ctx context.Context, r Request, dest any) (bool, error) {
	key := CacheKey(r.Endpoint, r.Params)
	if r.KeySuffix != "" {
		key += "_" + r.KeySuffix
	}

	if c.store != nil && c.store.Get(ctx, c.namespace, key, dest) {
		return true, nil
	}

	var raw json.RawMessage
	err := retry.Do(
		func() error { return c.fetch(ctx, r, &raw) },
		retry.Attempts(c.retryAttempts),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(func(err error) bool { return errors.Is(err, ErrUpstreamUnavailable) }),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return false, nil
		}
		return false, err
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode %s response: %w", c.name, err)
	}
	if c.store != nil {
		c.store.Set(ctx, c.namespace, key, raw, c.ttl)
	}
	return true, nil
}

func (c *Client) fetch(ctx context.Context, r Request, raw *json.RawMessage) error {
	endpoint := c.baseURL + r.Endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create %s request: %w", c.name, err)
	}

	if len(r.Params) > 0 {
		q := url.Values{}
		for k, v := range r.Params {
			q.Set(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}
	for k, vals := range r.Header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	if c.prepare != nil {
		c.prepare(req)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		log.Printf("[%s] request %s: %v", c.name, r.Endpoint, err)
		return fmt.Errorf("%s request: %w", c.name, ErrUpstreamUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read %s response: %w", c.name, err)
		}
		*raw = body
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s %s: %w", c.name, resp.Status, ErrAuthInvalid)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", c.name, r.Endpoint, errNotFound)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		log.Printf("[%s] %s returned %s", c.name, r.Endpoint, resp.Status)
		return fmt.Errorf("%s %s: %w", c.name, resp.Status, ErrUpstreamUnavailable)
	default:
		return fmt.Errorf("%s request failed: %s", c.name, resp.Status)
	}
}
