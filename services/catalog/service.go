// Package catalog assembles the two addon catalogs: recently watched shows
// and upcoming episodes. It reduces the raw Trakt feeds to one entry per
// show, pages the result, and enriches each page item with TMDB metadata
// and RPDB posters.
package catalog

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"traktshelf/models"
	"traktshelf/services/rpdb"
	"traktshelf/services/tmdb"
	"traktshelf/services/trakt"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/pool"
)

const (
	// DefaultPageSize is used for both the upstream fetch and the local
	// page window. Keeping them the same value means the upstream page
	// always covers the requested slice exactly.
	DefaultPageSize = 20

	// DefaultUpcomingDays is the forward calendar window.
	DefaultUpcomingDays = 30

	// DefaultEnrichWorkers bounds concurrent per-item metadata lookups.
	DefaultEnrichWorkers = 5
)

// Service builds catalog pages from the three upstream providers.
type Service struct {
	trakt        *trakt.Client
	tmdb         *tmdb.Client
	rpdb         *rpdb.Client
	pageSize     int
	upcomingDays int
	workers      int
	now          func() time.Time
}

// NewService wires the assembler. Zero values fall back to the defaults.
func NewService(traktClient *trakt.Client, tmdbClient *tmdb.Client, rpdbClient *rpdb.Client, pageSize, upcomingDays, workers int) *Service {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if upcomingDays <= 0 {
		upcomingDays = DefaultUpcomingDays
	}
	if workers <= 0 {
		workers = DefaultEnrichWorkers
	}
	return &Service{
		trakt:        traktClient,
		tmdb:         tmdbClient,
		rpdb:         rpdbClient,
		pageSize:     pageSize,
		upcomingDays: upcomingDays,
		workers:      workers,
		now:          time.Now,
	}
}

// watchedItem is one show reduced to its most recently watched episode.
type watchedItem struct {
	show      trakt.Show
	season    int
	episode   int
	watchedAt time.Time
}

// upcomingItem is one show reduced to its next airing episode.
type upcomingItem struct {
	show       trakt.Show
	episode    trakt.CalendarEpisode
	firstAired time.Time
}

// RecentlyWatched returns one catalog page of the user's watched shows,
// most recent first. skip is the absolute item offset Stremio sends.
func (s *Service) RecentlyWatched(ctx context.Context, accessToken string, skip int) ([]models.Meta, error) {
	if skip < 0 {
		skip = 0
	}
	page := skip/s.pageSize + 1
	shows, err := s.trakt.WatchedShows(ctx, accessToken, page, s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("fetch watched shows: %w", err)
	}

	items := reduceWatched(shows)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].watchedAt.After(items[j].watchedAt)
	})
	items = pageWindow(items, skip%s.pageSize, s.pageSize)

	metas := make([]models.Meta, len(items))
	p := pool.New().WithMaxGoroutines(s.workers)
	for i, item := range items {
		p.Go(func() {
			art := s.lookupArtwork(ctx, item.show)
			meta := s.buildMeta(item.show, art)
			annotateLastWatched(&meta, item.season, item.episode)
			metas[i] = meta
		})
	}
	p.Wait()
	return metas, nil
}

// Upcoming returns one catalog page of shows with episodes airing in the
// next calendar window, soonest first.
func (s *Service) Upcoming(ctx context.Context, accessToken string, skip int) ([]models.Meta, error) {
	if skip < 0 {
		skip = 0
	}
	entries, err := s.trakt.Calendar(ctx, accessToken, s.now(), s.upcomingDays)
	if err != nil {
		return nil, fmt.Errorf("fetch calendar: %w", err)
	}

	items := dedupeCalendar(entries)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].firstAired.Before(items[j].firstAired)
	})
	items = pageWindow(items, skip%s.pageSize, s.pageSize)

	metas := make([]models.Meta, len(items))
	p := pool.New().WithMaxGoroutines(s.workers)
	for i, item := range items {
		p.Go(func() {
			art := s.lookupArtwork(ctx, item.show)
			meta := s.buildMeta(item.show, art)
			annotateUpcoming(&meta, item.episode, item.firstAired)
			metas[i] = meta
		})
	}
	p.Wait()
	return metas, nil
}

// reduceWatched folds each show's nested seasons down to the single most
// recently watched episode. One linear pass with a running maximum.
func reduceWatched(shows []trakt.WatchedShow) []watchedItem {
	items := make([]watchedItem, 0, len(shows))
	for _, ws := range shows {
		var latest watchedItem
		latest.show = ws.Show
		for _, season := range ws.Seasons {
			for _, ep := range season.Episodes {
				if ep.LastWatchedAt.After(latest.watchedAt) {
					latest.season = season.Number
					latest.episode = ep.Number
					latest.watchedAt = ep.LastWatchedAt
				}
			}
		}
		if latest.watchedAt.IsZero() {
			// No episode records means nothing to annotate; drop the show.
			continue
		}
		items = append(items, latest)
	}
	return items
}

// dedupeCalendar keeps the first calendar entry per show. The feed arrives
// date-ascending, so the first occurrence is the next episode to air, and
// insertion order preserves the feed order for equal shows.
func dedupeCalendar(entries []trakt.CalendarItem) []upcomingItem {
	seen := make(map[string]struct{}, len(entries))
	items := make([]upcomingItem, 0, len(entries))
	for _, entry := range entries {
		key := showKey(entry.Show)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		items = append(items, upcomingItem{
			show:       entry.Show,
			episode:    entry.Episode,
			firstAired: entry.FirstAired,
		})
	}
	return items
}

// pageWindow slices one page out of the reduced list. offset is the
// position inside the upstream page (skip modulo page size).
func pageWindow[T any](items []T, offset, size int) []T {
	if offset >= len(items) {
		return nil
	}
	end := offset + size
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

// artwork carries the per-item enrichment results.
type artwork struct {
	details *tmdb.ShowDetails
	poster  string
}

// lookupArtwork fetches TMDB details and the RPDB poster for one show
// concurrently. Failures degrade the single record and are only logged.
func (s *Service) lookupArtwork(ctx context.Context, show trakt.Show) artwork {
	var art artwork
	var wg conc.WaitGroup
	wg.Go(func() {
		details, err := s.tmdb.ShowDetails(ctx, show.IDs.TMDB)
		if err != nil {
			log.Printf("[catalog] metadata for %q: %v", show.Title, err)
			return
		}
		art.details = details
	})
	wg.Go(func() {
		art.poster = s.rpdb.ShowPoster(ctx, show.IDs.IMDB)
	})
	wg.Wait()
	return art
}
