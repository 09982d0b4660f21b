// Package trakt fetches the user's watch history and episode calendar from
// the Trakt API. Responses are cached under credential-scoped keys so one
// user's history can never serve another's request.
package trakt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"traktshelf/internal/cache"
	"traktshelf/services/provider"
)

const (
	traktAPIBaseURL = "https://api.trakt.tv"
	traktAPIVersion = "2"

	// tokenKeyChars is how much of the access token goes into cache keys.
	// Enough to separate users, short enough to keep full tokens off disk.
	tokenKeyChars = 10
)

// Client handles Trakt API interactions for history and calendar data.
type Client struct {
	api      *provider.Client
	clientID string
}

// IDs holds external identifiers for a show or episode.
type IDs struct {
	Trakt int    `json:"trakt,omitempty"`
	Slug  string `json:"slug,omitempty"`
	IMDB  string `json:"imdb,omitempty"`
	TMDB  int64  `json:"tmdb,omitempty"`
	TVDB  int    `json:"tvdb,omitempty"`
}

// Show represents a Trakt TV show with extended info.
type Show struct {
	Title    string `json:"title"`
	Year     int    `json:"year"`
	Overview string `json:"overview,omitempty"`
	IDs      IDs    `json:"ids"`
}

// WatchedEpisode is one episode inside a watched show's season listing.
type WatchedEpisode struct {
	Number        int       `json:"number"`
	Plays         int       `json:"plays"`
	LastWatchedAt time.Time `json:"last_watched_at"`
}

// WatchedSeason groups the watched episodes of one season.
type WatchedSeason struct {
	Number   int              `json:"number"`
	Episodes []WatchedEpisode `json:"episodes"`
}

// WatchedShow is one entry from /users/me/watched: the show plus the full
// nested season/episode watch records.
type WatchedShow struct {
	Plays         int             `json:"plays"`
	LastWatchedAt time.Time       `json:"last_watched_at"`
	Show          Show            `json:"show"`
	Seasons       []WatchedSeason `json:"seasons"`
}

// CalendarEpisode is the episode half of a calendar entry.
type CalendarEpisode struct {
	Season int    `json:"season"`
	Number int    `json:"number"`
	Title  string `json:"title"`
	IDs    IDs    `json:"ids"`
}

// CalendarItem is one entry from the my-shows calendar feed.
type CalendarItem struct {
	FirstAired time.Time       `json:"first_aired"`
	Episode    CalendarEpisode `json:"episode"`
	Show       Show            `json:"show"`
}

// UserProfile represents basic Trakt user information.
type UserProfile struct {
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
	Private  bool   `json:"private"`
	IDs      struct {
		Slug string `json:"slug"`
	} `json:"ids"`
}

// NewClient creates a Trakt API client. Trakt is a mandatory provider, so
// missing application credentials are a construction-time error.
func NewClient(clientID, clientSecret string, store cache.Store, ttl time.Duration, httpc *http.Client) (*Client, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("trakt credentials missing: %w", provider.ErrNotConfigured)
	}
	c := &Client{clientID: clientID}
	c.api = provider.New("trakt", traktAPIBaseURL, cache.NamespaceTrakt, store, ttl, httpc, func(req *http.Request) {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("trakt-api-version", traktAPIVersion)
		req.Header.Set("trakt-api-key", clientID)
	})
	return c, nil
}

func authHeader(accessToken string) http.Header {
	h := make(http.Header)
	h.Set("Authorization", "Bearer "+accessToken)
	return h
}

// tokenPrefix scopes a cache key to the credential that produced the data.
func tokenPrefix(accessToken string) string {
	if len(accessToken) <= tokenKeyChars {
		return accessToken
	}
	return accessToken[:tokenKeyChars]
}

// WatchedShows retrieves one page of the user's watched shows, including
// the nested per-season episode records.
func (c *Client) WatchedShows(ctx context.Context, accessToken string, page, limit int) ([]WatchedShow, error) {
	var shows []WatchedShow
	_, err := c.api.GetJSON(ctx, provider.Request{
		Endpoint: "/users/me/watched",
		Params: map[string]string{
			"page":     strconv.Itoa(page),
			"limit":    strconv.Itoa(limit),
			"extended": "full",
		},
		Header:    authHeader(accessToken),
		KeySuffix: tokenPrefix(accessToken),
	}, &shows)
	if err != nil {
		return nil, fmt.Errorf("trakt watched shows: %w", err)
	}
	return shows, nil
}

// Calendar retrieves the user's show calendar starting at start and
// spanning days days.
func (c *Client) Calendar(ctx context.Context, accessToken string, start time.Time, days int) ([]CalendarItem, error) {
	var items []CalendarItem
	endpoint := fmt.Sprintf("/calendars/my/shows/%s/%d", start.Format("2006-01-02"), days)
	_, err := c.api.GetJSON(ctx, provider.Request{
		Endpoint:  endpoint,
		Params:    map[string]string{"extended": "full"},
		Header:    authHeader(accessToken),
		KeySuffix: tokenPrefix(accessToken),
	}, &items)
	if err != nil {
		return nil, fmt.Errorf("trakt calendar: %w", err)
	}
	return items, nil
}

// UserProfile retrieves information about the authenticated user.
func (c *Client) UserProfile(ctx context.Context, accessToken string) (*UserProfile, error) {
	var profile UserProfile
	found, err := c.api.GetJSON(ctx, provider.Request{
		Endpoint:  "/users/me",
		Header:    authHeader(accessToken),
		KeySuffix: tokenPrefix(accessToken),
	}, &profile)
	if err != nil {
		return nil, fmt.Errorf("trakt user profile: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &profile, nil
}

// ValidateToken checks whether an access token is accepted by Trakt.
// Returns false with a nil error for rejected tokens; transient upstream
// failures are returned as errors so callers do not mistake an outage for a
// bad token.
func (c *Client) ValidateToken(ctx context.Context, accessToken string) (bool, error) {
	var settings map[string]any
	_, err := c.api.GetJSON(ctx, provider.Request{
		Endpoint:  "/users/settings",
		Header:    authHeader(accessToken),
		KeySuffix: tokenPrefix(accessToken),
	}, &settings)
	if err != nil {
		if errors.Is(err, provider.ErrAuthInvalid) {
			return false, nil
		}
		return false, fmt.Errorf("trakt token validation: %w", err)
	}
	return true, nil
}
