package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/JustinTDCT/Marquee/internal/cache"
	"github.com/JustinTDCT/Marquee/internal/metadata"
	"github.com/JustinTDCT/Marquee/internal/models"
)

var categoryGenres = map[string]string{
	"action": "28",
	"horror": "27",
	"comedy": "35",
}

// CategoryPage is one page of an infinitely scrolled category listing.
type CategoryPage struct {
	Category string               `json:"category"`
	Page     int                  `json:"page"`
	HasMore  bool                 `json:"has_more"`
	Items    []models.CatalogItem `json:"items"`
}

type categorySource struct {
	mediaType models.MediaType
	discover  bool
	list      string
	params    map[string]string
}

func resolveCategory(name string) (categorySource, error) {
	switch name {
	case "series":
		return categorySource{mediaType: models.MediaTV, list: "popular"}, nil
	case "indian":
		return categorySource{mediaType: models.MediaMovie, discover: true, params: map[string]string{"with_original_language": "hi"}}, nil
	case "anime":
		return categorySource{mediaType: models.MediaMovie, discover: true, params: map[string]string{"with_genres": "16", "with_keywords": "210024"}}, nil
	case "new":
		return categorySource{mediaType: models.MediaMovie, list: "now_playing"}, nil
	case "all", "popular":
		return categorySource{mediaType: models.MediaMovie, list: "popular"}, nil
	case "top-rated":
		return categorySource{mediaType: models.MediaMovie, list: "top_rated"}, nil
	case "upcoming":
		return categorySource{mediaType: models.MediaMovie, list: "upcoming"}, nil
	}
	if genre, ok := categoryGenres[name]; ok {
		return categorySource{mediaType: models.MediaMovie, discover: true, params: map[string]string{"with_genres": genre}}, nil
	}
	if !validSlug(name) {
		return categorySource{}, ErrUnknownCategory
	}
	return categorySource{mediaType: models.MediaMovie, list: strings.Replace(name, "-", "_", 1)}, nil
}

func validSlug(s string) bool {
	if s == "" || len(s) > 40 {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' && r != '_' {
			return false
		}
	}
	return true
}

// Category fetches one page of a category. Pages below 1 are treated as 1.
// HasMore is true while upstream keeps returning results.
func (s *Service) Category(ctx context.Context, name string, page int) (*CategoryPage, error) {
	if page < 1 {
		page = 1
	}
	src, err := resolveCategory(name)
	if err != nil {
		return nil, err
	}

	key := cache.Key("category", name, itoa(page))
	var cached CategoryPage
	if cache.GetJSON(ctx, s.cache, key, &cached) {
		return &cached, nil
	}

	params := map[string]string{"page": itoa(page)}
	for k, v := range src.params {
		params[k] = v
	}

	var p *metadata.Page
	if src.discover {
		p, err = s.tmdb.Discover(ctx, src.mediaType, params)
	} else {
		p, err = s.tmdb.List(ctx, src.mediaType, src.list, params)
	}
	if err != nil {
		s.reportUpstream(err, key)
		return nil, fmt.Errorf("category %s: %w", name, err)
	}

	items := mapItems(p, src.mediaType, metadata.PosterSearch)
	for i := range items {
		if p.Results[i].MediaType == "" {
			items[i].MediaType = InferMediaType(items[i])
		}
		if items[i].ReleaseDate == "" {
			items[i].ReleaseDate = items[i].FirstAirDate
		}
	}
	result := &CategoryPage{
		Category: name,
		Page:     page,
		HasMore:  len(items) > 0,
		Items:    items,
	}
	cache.SetJSON(ctx, s.cache, key, result)
	return result, nil
}

// MergePage appends next to prev, dropping entries whose id is already
// present in either list.
func MergePage(prev, next []models.CatalogItem) []models.CatalogItem {
	seen := make(map[int]struct{}, len(prev)+len(next))
	out := make([]models.CatalogItem, 0, len(prev)+len(next))
	for _, list := range [][]models.CatalogItem{prev, next} {
		for _, it := range list {
			if _, dup := seen[it.ID]; dup {
				continue
			}
			seen[it.ID] = struct{}{}
			out = append(out, it)
		}
	}
	return out
}

// CategoryRange loads pages from..to and merges them into one listing.
func (s *Service) CategoryRange(ctx context.Context, name string, from, to int) (*CategoryPage, error) {
	if from < 1 {
		from = 1
	}
	if to < from {
		to = from
	}
	merged := &CategoryPage{Category: name, Items: []models.CatalogItem{}}
	for page := from; page <= to; page++ {
		p, err := s.Category(ctx, name, page)
		if err != nil {
			return nil, err
		}
		merged.Items = MergePage(merged.Items, p.Items)
		merged.Page = page
		merged.HasMore = p.HasMore
		if !p.HasMore {
			break
		}
	}
	return merged, nil
}
