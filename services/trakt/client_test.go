package trakt

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"traktshelf/internal/cache"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
	}
}

func testStore(t *testing.T) cache.Store {
	t.Helper()
	store, err := cache.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	return store
}

const watchedBody = `[
  {
    "plays": 4,
    "last_watched_at": "2024-03-10T21:00:00.000Z",
    "show": {
      "title": "Show A",
      "year": 2020,
      "overview": "Desc",
      "ids": {"trakt": 1, "imdb": "tt1000", "tmdb": 5}
    },
    "seasons": [
      {"number": 1, "episodes": [{"number": 1, "plays": 1, "last_watched_at": "2024-01-01T20:00:00.000Z"}]},
      {"number": 2, "episodes": [{"number": 3, "plays": 1, "last_watched_at": "2024-03-10T21:00:00.000Z"}]}
    ]
  }
]`

func TestNewClientRequiresCredentials(t *testing.T) {
	if _, err := NewClient("", "", nil, time.Minute, nil); err == nil {
		t.Fatal("expected error for missing credentials")
	}
	if _, err := NewClient("id", "", nil, time.Minute, nil); err == nil {
		t.Fatal("expected error for missing secret")
	}
	if _, err := NewClient("id", "secret", nil, time.Minute, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWatchedShowsSetsHeadersAndDecodes(t *testing.T) {
	var captured *http.Request
	httpc := &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		captured = req
		return jsonResponse(http.StatusOK, watchedBody), nil
	})}

	client, err := NewClient("client-id", "client-secret", testStore(t), 30*time.Minute, httpc)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	shows, err := client.WatchedShows(context.Background(), "access-token-12345", 2, 20)
	if err != nil {
		t.Fatalf("WatchedShows: %v", err)
	}

	if captured.URL.Path != "/users/me/watched" {
		t.Fatalf("path = %q", captured.URL.Path)
	}
	q := captured.URL.Query()
	if q.Get("page") != "2" || q.Get("limit") != "20" || q.Get("extended") != "full" {
		t.Fatalf("query = %q", captured.URL.RawQuery)
	}
	if captured.Header.Get("trakt-api-key") != "client-id" {
		t.Fatalf("trakt-api-key = %q", captured.Header.Get("trakt-api-key"))
	}
	if captured.Header.Get("trakt-api-version") != "2" {
		t.Fatalf("trakt-api-version = %q", captured.Header.Get("trakt-api-version"))
	}
	if captured.Header.Get("Authorization") != "Bearer access-token-12345" {
		t.Fatalf("authorization = %q", captured.Header.Get("Authorization"))
	}

	if len(shows) != 1 {
		t.Fatalf("shows = %d, want 1", len(shows))
	}
	show := shows[0]
	if show.Show.Title != "Show A" || show.Show.IDs.IMDB != "tt1000" || show.Show.IDs.TMDB != 5 {
		t.Fatalf("decoded show = %+v", show.Show)
	}
	if len(show.Seasons) != 2 || show.Seasons[1].Episodes[0].Number != 3 {
		t.Fatalf("decoded seasons = %+v", show.Seasons)
	}
}

func TestWatchedShowsCachedPerToken(t *testing.T) {
	calls := 0
	httpc := &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(http.StatusOK, watchedBody), nil
	})}

	client, err := NewClient("client-id", "client-secret", testStore(t), 30*time.Minute, httpc)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	ctx := context.Background()
	if _, err := client.WatchedShows(ctx, "token-one-aaaaaa", 1, 20); err != nil {
		t.Fatalf("WatchedShows: %v", err)
	}
	if _, err := client.WatchedShows(ctx, "token-one-aaaaaa", 1, 20); err != nil {
		t.Fatalf("WatchedShows: %v", err)
	}
	if calls != 1 {
		t.Fatalf("upstream calls = %d, want 1 (same token should hit the cache)", calls)
	}

	if _, err := client.WatchedShows(ctx, "token-two-bbbbbb", 1, 20); err != nil {
		t.Fatalf("WatchedShows: %v", err)
	}
	if calls != 2 {
		t.Fatalf("upstream calls = %d, want 2 (different token must bypass the cache)", calls)
	}
}

func TestCalendarEndpoint(t *testing.T) {
	var captured *http.Request
	httpc := &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		captured = req
		return jsonResponse(http.StatusOK, `[]`), nil
	})}

	client, err := NewClient("client-id", "client-secret", testStore(t), 30*time.Minute, httpc)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	start := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	items, err := client.Calendar(context.Background(), "access-token", start, 30)
	if err != nil {
		t.Fatalf("Calendar: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("items = %d, want 0", len(items))
	}
	if captured.URL.Path != "/calendars/my/shows/2024-03-15/30" {
		t.Fatalf("path = %q", captured.URL.Path)
	}
}

func TestValidateToken(t *testing.T) {
	httpc := &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.Header.Get("Authorization") == "Bearer good-token" {
			return jsonResponse(http.StatusOK, `{"user":{"username":"someone"}}`), nil
		}
		return jsonResponse(http.StatusUnauthorized, `{}`), nil
	})}

	client, err := NewClient("client-id", "client-secret", testStore(t), 30*time.Minute, httpc)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	ctx := context.Background()
	ok, err := client.ValidateToken(ctx, "good-token")
	if err != nil || !ok {
		t.Fatalf("ValidateToken(good) = (%v, %v)", ok, err)
	}
	ok, err = client.ValidateToken(ctx, "bad-token")
	if err != nil {
		t.Fatalf("ValidateToken(bad): %v", err)
	}
	if ok {
		t.Fatal("expected rejected token")
	}
}
