package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/JustinTDCT/Marquee/internal/cache"
	"github.com/JustinTDCT/Marquee/internal/metrics"
	"github.com/JustinTDCT/Marquee/internal/models"
	"github.com/JustinTDCT/Marquee/internal/telemetry"
)

const noDescription = "No description available"

// Kitsu reads anime listings from the Kitsu JSON:API.
type Kitsu struct {
	baseURL string
	client  *http.Client
	group   singleflight.Group
}

func NewKitsu(baseURL string) *Kitsu {
	return &Kitsu{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type kitsuResponse struct {
	Data []struct {
		ID         string `json:"id"`
		Attributes struct {
			CanonicalTitle string `json:"canonicalTitle"`
			Synopsis       string `json:"synopsis"`
			AverageRating  string `json:"averageRating"`
			PosterImage    *struct {
				Original string `json:"original"`
			} `json:"posterImage"`
		} `json:"attributes"`
	} `json:"data"`
}

// Anime fetches /anime with params passed through unchanged
// (e.g. "filter[categories]", "sort", "page[limit]").
func (k *Kitsu) Anime(ctx context.Context, params map[string]string) ([]models.CatalogItem, error) {
	q := url.Values{}
	for key, v := range params {
		q.Set(key, v)
	}
	reqURL := k.baseURL + "/anime"
	if len(q) > 0 {
		reqURL += "?" + q.Encode()
	}

	v, err, _ := k.group.Do(cache.ParamsKey(params), func() (any, error) {
		return k.fetch(context.WithoutCancel(ctx), reqURL)
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.CatalogItem), nil
}

func (k *Kitsu) fetch(ctx context.Context, reqURL string) ([]models.CatalogItem, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "kitsu.anime")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.api+json")

	resp, err := k.client.Do(req)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues("kitsu", "error").Inc()
		return nil, fmt.Errorf("kitsu request: %w", err)
	}
	defer resp.Body.Close()
	metrics.UpstreamRequests.WithLabelValues("kitsu", strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("kitsu %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var res kitsuResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("decode kitsu response: %w", err)
	}

	items := make([]models.CatalogItem, 0, len(res.Data))
	for _, d := range res.Data {
		id, _ := strconv.Atoi(d.ID)
		overview := d.Attributes.Synopsis
		if overview == "" {
			overview = noDescription
		}
		poster := PlaceholderImage
		if d.Attributes.PosterImage != nil && d.Attributes.PosterImage.Original != "" {
			poster = d.Attributes.PosterImage.Original
		}
		rating, _ := strconv.ParseFloat(d.Attributes.AverageRating, 64)
		items = append(items, models.CatalogItem{
			ID:        id,
			Title:     d.Attributes.CanonicalTitle,
			Overview:  overview,
			Poster:    poster,
			Rating:    rating,
			MediaType: models.MediaTV,
		})
	}
	return items, nil
}
