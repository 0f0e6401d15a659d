package catalog

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/JustinTDCT/Marquee/internal/cache"
	"github.com/JustinTDCT/Marquee/internal/metadata"
	"github.com/JustinTDCT/Marquee/internal/models"
)

const indianLanguages = "hi|ta|te|ml|kn"

// indianAiringCutoff bounds the "currently airing" Indian series row.
const indianAiringCutoff = "2025-01-01"

var PageNames = []string{"home", "series", "anime", "indian"}

// PageRows returns the row set of a named page. today is YYYY-MM-DD and
// feeds the upcoming rows.
func PageRows(name, today string) ([]Row, error) {
	switch name {
	case "home":
		return []Row{
			{Title: "New Movies", FetchType: "now_playing", MediaType: models.MediaMovie},
			{Title: "Popular Movies", FetchType: "popular", MediaType: models.MediaMovie},
			{Title: "Top Rated Movies", FetchType: "top_rated", MediaType: models.MediaMovie},
			{Title: "Upcoming Movies", FetchType: "upcoming", MediaType: models.MediaMovie},
		}, nil
	case "series":
		return []Row{
			{Title: "New Series", FetchType: "airing_today", MediaType: models.MediaTV},
			{Title: "Popular Series", FetchType: "popular", MediaType: models.MediaTV},
			{Title: "Top Rated Series", FetchType: "top_rated", MediaType: models.MediaTV},
			{Title: "Upcoming Series", FetchType: "on_the_air", MediaType: models.MediaTV},
		}, nil
	case "anime":
		anime := func(title string, params map[string]string) Row {
			params["with_origin_country"] = "JP"
			return Row{Title: title, FetchType: "discover", MediaType: models.MediaTV, Params: params}
		}
		return []Row{
			anime("Top Rated Anime", map[string]string{"sort_by": "vote_average.desc", "vote_count.gte": "50", "with_genres": "16"}),
			anime("Popular Anime", map[string]string{"sort_by": "popularity.desc", "with_genres": "16"}),
			anime("New Anime", map[string]string{"sort_by": "first_air_date.desc", "with_genres": "16"}),
			anime("Upcoming Anime", map[string]string{"sort_by": "first_air_date.asc", "first_air_date.gte": today, "with_genres": "16"}),
			anime("Action Anime", map[string]string{"with_genres": "10759"}),
			// TMDB treats a comma as AND, so both genres must match.
			anime("Comedy Anime", map[string]string{"with_genres": "16,35"}),
			anime("Horror / Mystery Anime", map[string]string{"with_genres": "16,9648"}),
		}, nil
	case "indian":
		indian := func(title string, mt models.MediaType, params map[string]string) Row {
			params["with_original_language"] = indianLanguages
			params["region"] = "IN"
			return Row{Title: title, FetchType: "discover", MediaType: mt, Params: params}
		}
		return []Row{
			indian("Top Rated Indian Movies", models.MediaMovie, map[string]string{"sort_by": "vote_average.desc", "vote_count.gte": "200"}),
			indian("Popular Indian Movies", models.MediaMovie, map[string]string{"sort_by": "popularity.desc"}),
			indian("Popular Indian Series", models.MediaTV, map[string]string{"sort_by": "popularity.desc"}),
			indian("Currently Airing / Upcoming Indian Shows", models.MediaTV, map[string]string{"sort_by": "first_air_date.desc", "first_air_date.gte": indianAiringCutoff}),
			indian("Upcoming Indian Movies", models.MediaMovie, map[string]string{"sort_by": "primary_release_date.desc", "primary_release_date.gte": today}),
		}, nil
	}
	return nil, ErrUnknownPage
}

// Page fetches every row of a page concurrently. A failing row is logged and
// comes back empty so the rest of the page still renders.
func (s *Service) Page(ctx context.Context, name string) ([]RowResult, error) {
	rows, err := PageRows(name, s.today())
	if err != nil {
		return nil, err
	}

	results := make([]RowResult, len(rows))
	var g errgroup.Group
	g.SetLimit(4)
	for i, row := range rows {
		g.Go(func() error {
			items, err := s.Row(ctx, row)
			if err != nil {
				s.log.WithError(err).WithField("row", row.Title).Warn("row fetch failed")
				items = []models.CatalogItem{}
			}
			results[i] = RowResult{Title: row.Title, MediaType: row.MediaType, Items: items}
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

// Featured picks a random hero title for a page.
func (s *Service) Featured(ctx context.Context, page string) (*models.CatalogItem, error) {
	candidates, err := s.featuredCandidates(ctx, page)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, ErrNoFeatured
	}
	item := candidates[s.pick(len(candidates))]
	return &item, nil
}

func (s *Service) featuredCandidates(ctx context.Context, page string) ([]models.CatalogItem, error) {
	key := cache.Key("featured", page, s.featuredWindow)
	var items []models.CatalogItem
	if cache.GetJSON(ctx, s.cache, key, &items) {
		return items, nil
	}

	var (
		p   *metadata.Page
		mt  models.MediaType
		err error
	)
	switch page {
	case "home":
		mt = models.MediaMovie
		p, err = s.tmdb.Trending(ctx, mt, s.featuredWindow)
	case "series":
		mt = models.MediaTV
		p, err = s.tmdb.List(ctx, mt, "top_rated", map[string]string{"page": "1"})
	case "anime":
		mt = models.MediaTV
		p, err = s.tmdb.Discover(ctx, mt, map[string]string{
			"with_origin_country": "JP",
			"sort_by":             "vote_average.desc",
			"vote_count.gte":      "50",
			"page":                "1",
		})
	default:
		return nil, ErrNoFeatured
	}
	if err != nil {
		s.reportUpstream(err, key)
		return nil, err
	}

	items = mapItems(p, mt, metadata.PosterRow)
	for i := range items {
		if items[i].Backdrop == "" {
			items[i].Backdrop = items[i].Poster
		}
	}
	cache.SetJSON(ctx, s.cache, key, items)
	return items, nil
}
