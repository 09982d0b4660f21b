package catalog

import (
	"fmt"
	"strings"
	"time"

	"traktshelf/models"
	"traktshelf/services/tmdb"
	"traktshelf/services/trakt"
)

// showKey is the identity used for deduplication: IMDB ID when present,
// then TMDB, then Trakt, then the title as a last resort.
func showKey(show trakt.Show) string {
	switch {
	case show.IDs.IMDB != "":
		return tmdb.NormalizeIMDBID(show.IDs.IMDB)
	case show.IDs.TMDB != 0:
		return fmt.Sprintf("tmdb:%d", show.IDs.TMDB)
	case show.IDs.Trakt != 0:
		return fmt.Sprintf("trakt:%d", show.IDs.Trakt)
	default:
		return "title:" + show.Title
	}
}

// metaID is the catalog entry ID Stremio resolves streams against. IMDB
// IDs are preferred; shows without one fall back to a tmdb-prefixed ID.
func metaID(show trakt.Show) string {
	if show.IDs.IMDB != "" {
		return tmdb.NormalizeIMDBID(show.IDs.IMDB)
	}
	if show.IDs.TMDB != 0 {
		return fmt.Sprintf("tmdb:%d", show.IDs.TMDB)
	}
	return fmt.Sprintf("trakt:%d", show.IDs.Trakt)
}

// buildMeta merges a history record with its enrichment into one catalog
// entry. Field precedence:
//   - poster: RPDB first, TMDB second
//   - background: TMDB only
//   - description: TMDB overview, falling back to the show overview
//
// everything numeric/array passes through from TMDB when present.
func (s *Service) buildMeta(show trakt.Show, art artwork) models.Meta {
	m := models.Meta{
		ID:          metaID(show),
		Type:        "series",
		Name:        show.Title,
		Description: show.Overview,
	}
	if show.Year > 0 {
		m.ReleaseInfo = fmt.Sprintf("%d", show.Year)
	}

	if d := art.details; d != nil {
		if d.Overview != "" {
			m.Description = d.Overview
		}
		m.Poster = s.tmdb.PosterURL(d.PosterPath)
		m.Background = s.tmdb.BackdropURL(d.BackdropPath)
		m.IMDBRating = d.VoteAverage
		for _, g := range d.Genres {
			m.Genres = append(m.Genres, g.Name)
		}
		if len(d.EpisodeRunTime) > 0 {
			m.Runtime = fmt.Sprintf("%d min", d.EpisodeRunTime[0])
		}
		m.Country = strings.Join(d.OriginCountry, ", ")
		m.Language = d.OriginalLanguage
		m.Status = d.Status
	}

	if art.poster != "" {
		m.Poster = art.poster
	}
	return m
}

// annotateLastWatched prepends the watch-progress line. The annotation is
// always present, even when no description survived enrichment.
func annotateLastWatched(m *models.Meta, season, episode int) {
	m.Description = fmt.Sprintf("Last watched: S%dE%d\n\n%s", season, episode, m.Description)
}

// annotateUpcoming prepends the next-episode line with its air date.
func annotateUpcoming(m *models.Meta, episode trakt.CalendarEpisode, firstAired time.Time) {
	m.Description = fmt.Sprintf("Next episode: S%dE%d - %s\nAirs: %s\n\n%s",
		episode.Season, episode.Number, episode.Title, firstAired.Format("Jan 2, 2006"), m.Description)
}
