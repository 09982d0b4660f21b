package rpdb

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

func TestDisabledClientNeverCallsUpstream(t *testing.T) {
	calls := 0
	httpc := &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(http.StatusOK, `{}`), nil
	})}

	client := NewClient("", 0, testStore(t), 24*time.Hour, httpc)
	if client.Enabled() {
		t.Fatal("client without key should be disabled")
	}
	if got := client.ShowPoster(context.Background(), "tt1000"); got != "" {
		t.Fatalf("poster = %q, want empty", got)
	}
	if calls != 0 {
		t.Fatalf("upstream calls = %d, want 0", calls)
	}
}

func TestShowPosterPicksBest(t *testing.T) {
	var captured *http.Request
	httpc := &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		captured = req
		return jsonResponse(http.StatusOK, `{"posters":[
			{"url":"https://posters.example/low.jpg","rating":6.0,"width":500},
			{"url":"https://posters.example/best.jpg","rating":9.0,"width":780},
			{"url":"https://posters.example/close.jpg","rating":9.0,"width":500}
		]}`), nil
	})}

	client := NewClient("rpdb-key", 500, testStore(t), 24*time.Hour, httpc)
	got := client.ShowPoster(context.Background(), "1000")

	// Highest rating wins; among equal ratings, the width closest to the
	// preferred one.
	if got != "https://posters.example/close.jpg" {
		t.Fatalf("poster = %q", got)
	}
	if captured.URL.Path != "/v1/poster/tv/tt1000" {
		t.Fatalf("path = %q, want normalized tt id", captured.URL.Path)
	}
	if captured.Header.Get("X-API-Key") != "rpdb-key" {
		t.Fatalf("X-API-Key = %q", captured.Header.Get("X-API-Key"))
	}
	if captured.URL.Query().Get("width") != "500" {
		t.Fatalf("width = %q", captured.URL.Query().Get("width"))
	}
}

func TestShowPosterDegradesOnErrors(t *testing.T) {
	for name, status := range map[string]int{
		"unauthorized": http.StatusUnauthorized,
		"not found":    http.StatusNotFound,
	} {
		t.Run(name, func(t *testing.T) {
			httpc := &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
				return jsonResponse(status, `{}`), nil
			})}
			client := NewClient("rpdb-key", 500, testStore(t), 24*time.Hour, httpc)
			if got := client.ShowPoster(context.Background(), "tt1000"); got != "" {
				t.Fatalf("poster = %q, want empty", got)
			}
		})
	}
}

func TestShowPosterEmptyList(t *testing.T) {
	httpc := &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"posters":[]}`), nil
	})}
	client := NewClient("rpdb-key", 500, testStore(t), 24*time.Hour, httpc)
	if got := client.ShowPoster(context.Background(), "tt1000"); got != "" {
		t.Fatalf("poster = %q, want empty", got)
	}
}
