package handlers

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"traktshelf/internal/cache"
	"traktshelf/models"
	"traktshelf/services/catalog"
	"traktshelf/services/rpdb"
	"traktshelf/services/tmdb"
	"traktshelf/services/trakt"

	"github.com/gorilla/mux"
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

// newTestRouter wires the handler stack over a fake upstream transport the
// same way main does, minus the token store.
func newTestRouter(t *testing.T, upstream func(req *http.Request) (*http.Response, error)) *mux.Router {
	t.Helper()
	store, err := cache.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	httpc := &http.Client{Transport: roundTripFunc(upstream)}

	traktClient, err := trakt.NewClient("client-id", "client-secret", store, 30*time.Minute, httpc)
	if err != nil {
		t.Fatalf("trakt.NewClient: %v", err)
	}
	tmdbClient, err := tmdb.NewClient("tmdb-key", "en-US", store, time.Hour, httpc)
	if err != nil {
		t.Fatalf("tmdb.NewClient: %v", err)
	}
	rpdbClient := rpdb.NewClient("", 500, store, 24*time.Hour, httpc)

	svc := catalog.NewService(traktClient, tmdbClient, rpdbClient, 20, 30, 2)
	h := NewCatalogHandler(svc, traktClient, nil, "test")

	r := mux.NewRouter()
	r.HandleFunc("/manifest.json", h.Manifest).Methods(http.MethodGet)
	r.HandleFunc("/{userConfig}/manifest.json", h.UserManifest).Methods(http.MethodGet)
	r.HandleFunc("/{userConfig}/catalog/{type}/{id}.json", h.Catalog).Methods(http.MethodGet)
	return r
}

func encodeConfig(t *testing.T, cfg userConfig) string {
	t.Helper()
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	return base64.StdEncoding.EncodeToString(data)
}

func doRequest(t *testing.T, r *mux.Router, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestManifestUnconfigured(t *testing.T) {
	r := newTestRouter(t, func(req *http.Request) (*http.Response, error) {
		t.Errorf("unexpected upstream request: %s", req.URL)
		return jsonResponse(http.StatusNotFound, `{}`), nil
	})

	rec := doRequest(t, r, "/manifest.json")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var m models.Manifest
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if m.ID != "org.traktshelf.catalogs" {
		t.Fatalf("id = %q", m.ID)
	}
	if !m.BehaviorHints.ConfigurationRequired {
		t.Fatal("unconfigured manifest should require configuration")
	}
	if len(m.Catalogs) != 2 {
		t.Fatalf("catalogs = %d, want 2", len(m.Catalogs))
	}
}

func TestUserManifestValidatesToken(t *testing.T) {
	r := newTestRouter(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/users/settings" {
			t.Errorf("unexpected path %s", req.URL.Path)
		}
		return jsonResponse(http.StatusOK, `{"user":{"username":"alice"}}`), nil
	})

	cfg := encodeConfig(t, userConfig{AccessToken: "good-token"})
	rec := doRequest(t, r, "/"+cfg+"/manifest.json")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var m models.Manifest
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if m.BehaviorHints.ConfigurationRequired {
		t.Fatal("configured manifest should not require configuration")
	}
}

func TestUserManifestRejectsBadToken(t *testing.T) {
	r := newTestRouter(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusUnauthorized, `{}`), nil
	})

	cfg := encodeConfig(t, userConfig{AccessToken: "expired"})
	rec := doRequest(t, r, "/"+cfg+"/manifest.json")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestCatalogInvalidConfigSegment(t *testing.T) {
	r := newTestRouter(t, func(req *http.Request) (*http.Response, error) {
		t.Errorf("unexpected upstream request: %s", req.URL)
		return jsonResponse(http.StatusNotFound, `{}`), nil
	})

	rec := doRequest(t, r, "/not-base64!!/catalog/series/trakt-recently-watched.json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCatalogMissingToken(t *testing.T) {
	r := newTestRouter(t, func(req *http.Request) (*http.Response, error) {
		t.Errorf("unexpected upstream request: %s", req.URL)
		return jsonResponse(http.StatusNotFound, `{}`), nil
	})

	cfg := encodeConfig(t, userConfig{})
	rec := doRequest(t, r, "/"+cfg+"/catalog/series/trakt-recently-watched.json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCatalogUnknownID(t *testing.T) {
	r := newTestRouter(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `[]`), nil
	})

	cfg := encodeConfig(t, userConfig{AccessToken: "token"})
	rec := doRequest(t, r, "/"+cfg+"/catalog/series/trakt-trending.json")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestCatalogNonSeriesTypeReturnsEmpty(t *testing.T) {
	r := newTestRouter(t, func(req *http.Request) (*http.Response, error) {
		t.Errorf("unexpected upstream request: %s", req.URL)
		return jsonResponse(http.StatusNotFound, `{}`), nil
	})

	cfg := encodeConfig(t, userConfig{AccessToken: "token"})
	rec := doRequest(t, r, "/"+cfg+"/catalog/movie/trakt-recently-watched.json")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp models.CatalogResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Metas == nil || len(resp.Metas) != 0 {
		t.Fatalf("metas = %v, want empty list", resp.Metas)
	}
}

func TestCatalogAuthFailureMapsTo401(t *testing.T) {
	r := newTestRouter(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusUnauthorized, `{}`), nil
	})

	cfg := encodeConfig(t, userConfig{AccessToken: "expired"})
	rec := doRequest(t, r, "/"+cfg+"/catalog/series/trakt-recently-watched.json")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestCatalogServesRecentlyWatched(t *testing.T) {
	r := newTestRouter(t, func(req *http.Request) (*http.Response, error) {
		switch req.URL.Host {
		case "api.trakt.tv":
			return jsonResponse(http.StatusOK, `[{
				"plays": 1,
				"last_watched_at": "2024-03-10T21:00:00.000Z",
				"show": {"title": "Show A", "year": 2020, "ids": {"trakt": 1, "imdb": "tt1000", "tmdb": 5}},
				"seasons": [{"number": 1, "episodes": [{"number": 2, "plays": 1, "last_watched_at": "2024-03-10T21:00:00.000Z"}]}]
			}]`), nil
		case "api.themoviedb.org":
			return jsonResponse(http.StatusOK, `{"id":5,"name":"Show A","overview":"Desc"}`), nil
		}
		return jsonResponse(http.StatusNotFound, `{}`), nil
	})

	cfg := encodeConfig(t, userConfig{AccessToken: "token"})
	rec := doRequest(t, r, "/"+cfg+"/catalog/series/trakt-recently-watched.json")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("content type = %q", got)
	}

	var resp models.CatalogResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Metas) != 1 || resp.Metas[0].ID != "tt1000" {
		t.Fatalf("metas = %+v", resp.Metas)
	}
}

func TestCatalogURLSafeConfigAccepted(t *testing.T) {
	r := newTestRouter(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `[]`), nil
	})

	data, err := json.Marshal(userConfig{AccessToken: "token"})
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	cfg := base64.URLEncoding.EncodeToString(data)
	rec := doRequest(t, r, "/"+cfg+"/catalog/series/trakt-recently-watched.json")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}
