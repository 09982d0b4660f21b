// Package rpdb fetches rating posters from the RPDB API. RPDB is an
// optional provider: without an API key the client runs permanently
// disabled, and at runtime every failure degrades to "no poster" so the
// catalog never breaks over artwork.
package rpdb

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sort"
	"strconv"
	"time"

	"traktshelf/internal/cache"
	"traktshelf/services/provider"
	"traktshelf/services/tmdb"
)

const (
	rpdbBaseURL = "https://api.ratingposterdb.com"

	// DefaultPosterWidth is the preferred poster width in pixels.
	DefaultPosterWidth = 500
)

// Client handles RPDB poster lookups.
type Client struct {
	api         *provider.Client
	enabled     bool
	posterWidth int
}

// Poster is one candidate poster in an RPDB response.
type Poster struct {
	URL    string  `json:"url"`
	Rating float64 `json:"rating"`
	Width  int     `json:"width"`
}

type posterResponse struct {
	Posters []Poster `json:"posters"`
}

// NewClient creates an RPDB client. An empty API key is not an error; it
// yields a disabled client whose lookups all report no poster without
// touching the network or the cache.
func NewClient(apiKey string, posterWidth int, store cache.Store, ttl time.Duration, httpc *http.Client) *Client {
	if posterWidth <= 0 {
		posterWidth = DefaultPosterWidth
	}
	c := &Client{enabled: apiKey != "", posterWidth: posterWidth}
	if !c.enabled {
		log.Printf("[rpdb] no api key configured, poster lookups disabled")
		return c
	}
	c.api = provider.New("rpdb", rpdbBaseURL, cache.NamespaceRPDB, store, ttl, httpc, func(req *http.Request) {
		req.Header.Set("X-API-Key", apiKey)
	})
	return c
}

// Enabled reports whether the client has an API key.
func (c *Client) Enabled() bool {
	return c.enabled
}

// ShowPoster returns the best rating poster URL for a show, or "" when no
// poster is available for any reason. Errors are logged, never returned:
// posters are decoration, not data.
func (c *Client) ShowPoster(ctx context.Context, imdbID string) string {
	if !c.enabled {
		return ""
	}
	imdbID = tmdb.NormalizeIMDBID(imdbID)
	if imdbID == "" {
		return ""
	}

	var payload posterResponse
	found, err := c.api.GetJSON(ctx, provider.Request{
		Endpoint: "/v1/poster/tv/" + imdbID,
		Params:   map[string]string{"width": strconv.Itoa(c.posterWidth)},
	}, &payload)
	if err != nil {
		switch {
		case errors.Is(err, provider.ErrAuthInvalid):
			log.Printf("[rpdb] api key rejected, skipping poster for %s", imdbID)
		case errors.Is(err, provider.ErrUpstreamUnavailable):
			log.Printf("[rpdb] unavailable, skipping poster for %s", imdbID)
		default:
			log.Printf("[rpdb] poster lookup %s: %v", imdbID, err)
		}
		return ""
	}
	if !found {
		return ""
	}
	return bestPoster(payload.Posters, c.posterWidth)
}

// bestPoster picks the highest-rated poster, breaking ties by closeness to
// the preferred width.
func bestPoster(posters []Poster, preferredWidth int) string {
	if len(posters) == 0 {
		return ""
	}
	sorted := make([]Poster, len(posters))
	copy(sorted, posters)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Rating != sorted[j].Rating {
			return sorted[i].Rating > sorted[j].Rating
		}
		di := abs(sorted[i].Width - preferredWidth)
		dj := abs(sorted[j].Width - preferredWidth)
		return di < dj
	})
	return sorted[0].URL
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
