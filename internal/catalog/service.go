// Package catalog assembles browsable rows, pages and detail views from the
// metadata providers. Every result is cached under a key derived from the
// request parameters.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/JustinTDCT/Marquee/internal/cache"
	"github.com/JustinTDCT/Marquee/internal/logging"
	"github.com/JustinTDCT/Marquee/internal/metadata"
	"github.com/JustinTDCT/Marquee/internal/models"
	"github.com/JustinTDCT/Marquee/internal/telemetry"
)

var (
	ErrUnknownPage     = errors.New("unknown page")
	ErrUnknownCategory = errors.New("unknown category")
	ErrNoFeatured      = errors.New("no featured title available")
)

type Service struct {
	tmdb           *metadata.TMDB
	kitsu          *metadata.Kitsu
	cache          cache.Cache
	featuredWindow string
	now            func() time.Time
	pick           func(n int) int
	log            *logrus.Entry
}

func NewService(tmdb *metadata.TMDB, kitsu *metadata.Kitsu, c cache.Cache) *Service {
	return &Service{
		tmdb:           tmdb,
		kitsu:          kitsu,
		cache:          c,
		featuredWindow: "week",
		now:            time.Now,
		pick:           rand.IntN,
		log:            logging.For("catalog"),
	}
}

// SetFeaturedWindow selects the trending window used for the home hero.
func (s *Service) SetFeaturedWindow(window string) {
	if window == "day" || window == "week" {
		s.featuredWindow = window
	}
}

// Row describes one horizontal listing. FetchType "kitsu" reads Kitsu, an
// empty or "discover" FetchType uses TMDB discover, anything else is a TMDB
// list name such as now_playing.
type Row struct {
	Title     string            `json:"title"`
	FetchType string            `json:"fetch_type,omitempty"`
	MediaType models.MediaType  `json:"media_type"`
	Params    map[string]string `json:"params,omitempty"`
}

func (r Row) CacheKey() string {
	return cache.Key("row", r.FetchType, string(r.MediaType), cache.ParamsKey(r.Params))
}

type RowResult struct {
	Title     string               `json:"title"`
	MediaType models.MediaType     `json:"media_type"`
	Items     []models.CatalogItem `json:"items"`
}

func (s *Service) Row(ctx context.Context, row Row) ([]models.CatalogItem, error) {
	if row.MediaType == "" {
		row.MediaType = models.MediaMovie
	}
	key := row.CacheKey()
	var items []models.CatalogItem
	if cache.GetJSON(ctx, s.cache, key, &items) {
		return items, nil
	}

	var err error
	switch {
	case row.FetchType == "kitsu":
		items, err = s.kitsu.Anime(ctx, row.Params)
	case row.FetchType != "" && row.FetchType != "discover":
		var p *metadata.Page
		p, err = s.tmdb.List(ctx, row.MediaType, row.FetchType, row.Params)
		items = mapItems(p, row.MediaType, metadata.PosterRow)
	default:
		var p *metadata.Page
		p, err = s.tmdb.Discover(ctx, row.MediaType, row.Params)
		items = mapItems(p, row.MediaType, metadata.PosterRow)
	}
	if err != nil {
		s.reportUpstream(err, key)
		return nil, fmt.Errorf("fetch row %q: %w", row.Title, err)
	}
	if items == nil {
		items = []models.CatalogItem{}
	}
	cache.SetJSON(ctx, s.cache, key, items)
	return items, nil
}

// Search runs a movie title search. Blank queries return an empty list
// without calling upstream.
func (s *Service) Search(ctx context.Context, query string) ([]models.CatalogItem, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return []models.CatalogItem{}, nil
	}
	key := cache.Key("search", strings.ToLower(q))
	var items []models.CatalogItem
	if cache.GetJSON(ctx, s.cache, key, &items) {
		return items, nil
	}

	p, err := s.tmdb.SearchMovies(ctx, q)
	if err != nil {
		s.reportUpstream(err, key)
		return nil, fmt.Errorf("search: %w", err)
	}
	items = mapItems(p, models.MediaMovie, metadata.PosterSearch)
	cache.SetJSON(ctx, s.cache, key, items)
	return items, nil
}

// SearchTV is the series counterpart of Search, used by the admin link tools.
func (s *Service) SearchTV(ctx context.Context, query string) ([]models.CatalogItem, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return []models.CatalogItem{}, nil
	}
	key := cache.Key("search", "tv", strings.ToLower(q))
	var items []models.CatalogItem
	if cache.GetJSON(ctx, s.cache, key, &items) {
		return items, nil
	}

	p, err := s.tmdb.SearchTV(ctx, q)
	if err != nil {
		s.reportUpstream(err, key)
		return nil, fmt.Errorf("search tv: %w", err)
	}
	items = mapItems(p, models.MediaTV, metadata.PosterSearch)
	cache.SetJSON(ctx, s.cache, key, items)
	return items, nil
}

func (s *Service) Genres(ctx context.Context, mediaType models.MediaType) ([]models.Genre, error) {
	key := cache.Key("genres", string(mediaType))
	var genres []models.Genre
	if cache.GetJSON(ctx, s.cache, key, &genres) {
		return genres, nil
	}
	genres, err := s.tmdb.Genres(ctx, mediaType)
	if err != nil {
		s.reportUpstream(err, key)
		return nil, fmt.Errorf("genres: %w", err)
	}
	cache.SetJSON(ctx, s.cache, key, genres)
	return genres, nil
}

// GenreNames resolves movie genre ids to a comma separated list. Unknown ids
// are skipped; "N/A" is returned when nothing resolves.
func (s *Service) GenreNames(ctx context.Context, ids []int) (string, error) {
	genres, err := s.Genres(ctx, models.MediaMovie)
	if err != nil {
		return "", err
	}
	return JoinGenreNames(genres, ids), nil
}

func JoinGenreNames(genres []models.Genre, ids []int) string {
	byID := make(map[int]string, len(genres))
	for _, g := range genres {
		byID[g.ID] = g.Name
	}
	var names []string
	for _, id := range ids {
		if name, ok := byID[id]; ok && name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "N/A"
	}
	return strings.Join(names, ", ")
}

func (s *Service) today() string {
	return s.now().Format("2006-01-02")
}

func (s *Service) reportUpstream(err error, key string) {
	s.log.WithError(err).WithField("key", key).Warn("upstream request failed")
	telemetry.CaptureError(err, map[string]string{"cache_key": key})
}

func mapItems(p *metadata.Page, mediaType models.MediaType, posterSize string) []models.CatalogItem {
	if p == nil {
		return nil
	}
	items := make([]models.CatalogItem, 0, len(p.Results))
	for _, it := range p.Results {
		items = append(items, it.ToCatalog(mediaType, posterSize))
	}
	return items
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
