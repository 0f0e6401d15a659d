package catalog

import (
	"context"
	"fmt"
	"slices"

	"github.com/JustinTDCT/Marquee/internal/cache"
	"github.com/JustinTDCT/Marquee/internal/metadata"
	"github.com/JustinTDCT/Marquee/internal/models"
)

// InferMediaType decides whether an item is a series. Anything tagged tv or
// series, carrying a first air date, of Japanese origin, or in the
// animation genre counts as tv.
func InferMediaType(item models.CatalogItem) models.MediaType {
	if item.MediaType == models.MediaTV {
		return models.MediaTV
	}
	if item.FirstAirDate != "" {
		return models.MediaTV
	}
	if slices.Contains(item.OriginCountry, "JP") || slices.Contains(item.GenreIDs, 16) {
		return models.MediaTV
	}
	return models.MediaMovie
}

// Details returns a title with resolved images and a list of related titles.
func (s *Service) Details(ctx context.Context, mediaType models.MediaType, id int) (*models.Details, error) {
	key := cache.Key("details", string(mediaType), itoa(id))
	var d models.Details
	if cache.GetJSON(ctx, s.cache, key, &d) {
		return &d, nil
	}

	raw, err := s.tmdb.Details(ctx, mediaType, id)
	if err != nil {
		s.reportUpstream(err, key)
		return nil, fmt.Errorf("details %s/%d: %w", mediaType, id, err)
	}

	d = models.Details{
		CatalogItem: raw.ToCatalog(mediaType, metadata.PosterRow),
		Tagline:     raw.Tagline,
		Runtime:     raw.Runtime,
		Status:      raw.Status,
		Genres:      raw.Genres,
	}
	d.MediaType = mediaType
	if d.Backdrop == "" {
		d.Backdrop = d.Poster
	}
	if d.Runtime == 0 && len(raw.EpisodeRunTime) > 0 {
		d.Runtime = raw.EpisodeRunTime[0]
	}
	if d.Genres == nil {
		d.Genres = []models.Genre{}
	}
	for _, g := range raw.Genres {
		d.GenreIDs = append(d.GenreIDs, g.ID)
	}
	for _, season := range raw.Seasons {
		d.Seasons = append(d.Seasons, models.Season{
			ID:           season.ID,
			Name:         season.Name,
			SeasonNumber: season.SeasonNumber,
			EpisodeCount: season.EpisodeCount,
			Poster:       metadata.PosterURL(season.PosterPath, metadata.PosterSearch),
			AirDate:      season.AirDate,
		})
	}
	d.Similar = s.related(ctx, mediaType, id)

	cache.SetJSON(ctx, s.cache, key, d)
	return &d, nil
}

// related walks recommendations, then similar, then popular, returning the
// first non-empty list. Failures at each step are logged and skipped.
func (s *Service) related(ctx context.Context, mediaType models.MediaType, id int) []models.CatalogItem {
	steps := []struct {
		name  string
		fetch func() (*metadata.Page, error)
	}{
		{"recommendations", func() (*metadata.Page, error) { return s.tmdb.Recommendations(ctx, mediaType, id) }},
		{"similar", func() (*metadata.Page, error) { return s.tmdb.Similar(ctx, mediaType, id) }},
		{"popular", func() (*metadata.Page, error) { return s.tmdb.Popular(ctx, mediaType) }},
	}
	for _, step := range steps {
		p, err := step.fetch()
		if err != nil {
			s.log.WithError(err).WithField("step", step.name).Warn("related titles lookup failed")
			continue
		}
		if len(p.Results) > 0 {
			return mapItems(p, mediaType, metadata.PosterRow)
		}
	}
	return []models.CatalogItem{}
}

func (s *Service) Seasons(ctx context.Context, id int) ([]models.Season, error) {
	d, err := s.Details(ctx, models.MediaTV, id)
	if err != nil {
		return nil, err
	}
	if d.Seasons == nil {
		return []models.Season{}, nil
	}
	return d.Seasons, nil
}

func (s *Service) Episodes(ctx context.Context, id, season int) ([]models.Episode, error) {
	key := cache.Key("season", itoa(id), itoa(season))
	var episodes []models.Episode
	if cache.GetJSON(ctx, s.cache, key, &episodes) {
		return episodes, nil
	}

	raw, err := s.tmdb.Season(ctx, id, season)
	if err != nil {
		s.reportUpstream(err, key)
		return nil, fmt.Errorf("season %d/%d: %w", id, season, err)
	}
	episodes = make([]models.Episode, 0, len(raw.Episodes))
	for _, e := range raw.Episodes {
		episodes = append(episodes, models.Episode{
			EpisodeNumber: e.EpisodeNumber,
			Name:          e.Name,
			Overview:      e.Overview,
			AirDate:       e.AirDate,
			Still:         metadata.StillURL(e.StillPath),
			Rating:        e.VoteAverage,
			Runtime:       e.Runtime,
		})
	}
	cache.SetJSON(ctx, s.cache, key, episodes)
	return episodes, nil
}

// Trailer returns the YouTube key of the title's trailer, or "" when none.
func (s *Service) Trailer(ctx context.Context, mediaType models.MediaType, id int) (string, error) {
	key := cache.Key("trailer", string(mediaType), itoa(id))
	var trailer string
	if cache.GetJSON(ctx, s.cache, key, &trailer) {
		return trailer, nil
	}
	videos, err := s.tmdb.Videos(ctx, mediaType, id)
	if err != nil {
		s.reportUpstream(err, key)
		return "", fmt.Errorf("videos %s/%d: %w", mediaType, id, err)
	}
	trailer = metadata.TrailerKey(videos)
	cache.SetJSON(ctx, s.cache, key, trailer)
	return trailer, nil
}
