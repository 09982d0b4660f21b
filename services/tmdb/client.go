// Package tmdb fetches TV show metadata from the TMDB API.
package tmdb

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"traktshelf/internal/cache"
	"traktshelf/services/provider"
)

const (
	tmdbBaseURL      = "https://api.themoviedb.org/3"
	tmdbImageBaseURL = "https://image.tmdb.org/t/p"
	// Posters: w500 is plenty for catalog cards. Backdrops: w1280 covers
	// 1080p backgrounds without pulling originals.
	tmdbPosterSize   = "w500"
	tmdbBackdropSize = "w1280"
)

// Client handles TMDB API interactions for show metadata.
type Client struct {
	api      *provider.Client
	language string
}

// Genre is one TMDB genre entry.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ExternalIDs holds cross-provider identifiers attached to a show.
type ExternalIDs struct {
	IMDBID string `json:"imdb_id"`
	TVDBID int    `json:"tvdb_id"`
}

// ShowDetails is the /tv/{id} response, with external IDs appended.
type ShowDetails struct {
	ID               int64       `json:"id"`
	Name             string      `json:"name"`
	Overview         string      `json:"overview"`
	PosterPath       string      `json:"poster_path"`
	BackdropPath     string      `json:"backdrop_path"`
	FirstAirDate     string      `json:"first_air_date"`
	VoteAverage      float64     `json:"vote_average"`
	Genres           []Genre     `json:"genres"`
	EpisodeRunTime   []int       `json:"episode_run_time"`
	OriginCountry    []string    `json:"origin_country"`
	OriginalLanguage string      `json:"original_language"`
	Status           string      `json:"status"`
	ExternalIDs      ExternalIDs `json:"external_ids"`
}

type findResponse struct {
	TVResults []ShowDetails `json:"tv_results"`
}

// NewClient creates a TMDB API client. TMDB is a mandatory provider, so a
// missing API key is a construction-time error. The api_key is injected at
// request time and never becomes part of cache keys.
func NewClient(apiKey, language string, store cache.Store, ttl time.Duration, httpc *http.Client) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("tmdb api key missing: %w", provider.ErrNotConfigured)
	}
	if language == "" {
		language = "en-US"
	}
	c := &Client{language: language}
	c.api = provider.New("tmdb", tmdbBaseURL, cache.NamespaceTMDB, store, ttl, httpc, func(req *http.Request) {
		q := req.URL.Query()
		q.Set("api_key", apiKey)
		q.Set("language", language)
		req.URL.RawQuery = q.Encode()
	})
	return c, nil
}

// ShowDetails retrieves full metadata for a show by TMDB ID. Returns nil
// for unknown IDs so missing metadata degrades one record instead of the
// whole catalog page.
func (c *Client) ShowDetails(ctx context.Context, tmdbID int64) (*ShowDetails, error) {
	if tmdbID <= 0 {
		return nil, nil
	}
	var details ShowDetails
	found, err := c.api.GetJSON(ctx, provider.Request{
		Endpoint: fmt.Sprintf("/tv/%d", tmdbID),
		Params:   map[string]string{"append_to_response": "external_ids"},
	}, &details)
	if err != nil {
		return nil, fmt.Errorf("tmdb show details: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &details, nil
}

// FindByIMDB resolves a show by its IMDB ID. Returns nil when TMDB knows
// nothing under that ID.
func (c *Client) FindByIMDB(ctx context.Context, imdbID string) (*ShowDetails, error) {
	imdbID = NormalizeIMDBID(imdbID)
	if imdbID == "" {
		return nil, nil
	}
	var payload findResponse
	found, err := c.api.GetJSON(ctx, provider.Request{
		Endpoint: "/find/" + imdbID,
		Params:   map[string]string{"external_source": "imdb_id"},
	}, &payload)
	if err != nil {
		return nil, fmt.Errorf("tmdb find by imdb: %w", err)
	}
	if !found || len(payload.TVResults) == 0 {
		return nil, nil
	}
	return &payload.TVResults[0], nil
}

// PosterURL builds a full poster image URL from a TMDB image path.
func (c *Client) PosterURL(path string) string {
	if path == "" {
		return ""
	}
	return tmdbImageBaseURL + "/" + tmdbPosterSize + path
}

// BackdropURL builds a full backdrop image URL from a TMDB image path.
func (c *Client) BackdropURL(path string) string {
	if path == "" {
		return ""
	}
	return tmdbImageBaseURL + "/" + tmdbBackdropSize + path
}

// NormalizeIMDBID ensures the tt prefix IMDB expects, tolerating bare
// numeric IDs.
func NormalizeIMDBID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	if !strings.HasPrefix(id, "tt") {
		return "tt" + id
	}
	return id
}
