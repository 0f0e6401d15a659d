package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/JustinTDCT/Marquee/internal/catalog"
	"github.com/JustinTDCT/Marquee/internal/metadata"
	"github.com/JustinTDCT/Marquee/internal/models"
)

type pageResponse struct {
	Featured *models.CatalogItem `json:"featured"`
	Rows     []catalog.RowResult `json:"rows"`
}

func (s *Server) handleUIConfig(w http.ResponseWriter, r *http.Request) {
	s.respondOK(w, map[string]interface{}{
		"theme":             "dark",
		"image_base":        metadata.ImageBase,
		"placeholder_image": metadata.PlaceholderImage,
		"pages":             catalog.PageNames,
	})
}

// handlePage returns the featured hero and every row of a page. A failed
// hero lookup leaves Featured null.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("page")
	var resp pageResponse

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		rows, err := s.Catalog.Page(ctx, name)
		resp.Rows = rows
		return err
	})
	g.Go(func() error {
		item, err := s.Catalog.Featured(ctx, name)
		if err == nil {
			resp.Featured = item
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, catalog.ErrUnknownPage) {
			s.respondError(w, http.StatusNotFound, "unknown page")
			return
		}
		s.respondUpstream(w, r, err)
		return
	}
	s.respondOK(w, resp)
}

var rowFetchTypes = map[string]bool{
	"": true, "discover": true, "kitsu": true,
	"now_playing": true, "popular": true, "top_rated": true, "upcoming": true,
	"airing_today": true, "on_the_air": true,
}

// handleRow fetches one ad-hoc row: ?type=movie|tv&fetch=<list|discover|kitsu>
// plus any passthrough params.
func (s *Server) handleRow(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	row := catalog.Row{FetchType: q.Get("fetch"), Params: map[string]string{}}
	if !rowFetchTypes[row.FetchType] {
		s.respondError(w, http.StatusBadRequest, "invalid fetch type")
		return
	}
	if q.Get("type") != "" {
		mt, ok := models.ParseMediaType(q.Get("type"))
		if !ok {
			s.respondError(w, http.StatusBadRequest, "invalid media type")
			return
		}
		row.MediaType = mt
	}
	for k, v := range q {
		if k == "type" || k == "fetch" || len(v) == 0 {
			continue
		}
		row.Params[k] = v[0]
	}
	items, err := s.Catalog.Row(r.Context(), row)
	if err != nil {
		s.respondUpstream(w, r, err)
		return
	}
	s.respondOK(w, items)
}

// handleCategory serves one page, or a range when ?through= is set so a
// client can restore a scrolled listing in one request.
func (s *Server) handleCategory(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("category")
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	var (
		res *catalog.CategoryPage
		err error
	)
	if through, convErr := strconv.Atoi(r.URL.Query().Get("through")); convErr == nil && through > page {
		res, err = s.Catalog.CategoryRange(r.Context(), name, page, through)
	} else {
		res, err = s.Catalog.Category(r.Context(), name, page)
	}
	if err != nil {
		if errors.Is(err, catalog.ErrUnknownCategory) {
			s.respondError(w, http.StatusNotFound, "unknown category")
			return
		}
		s.respondUpstream(w, r, err)
		return
	}
	s.respondOK(w, res)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	var (
		items []models.CatalogItem
		err   error
	)
	if mt, _ := models.ParseMediaType(r.URL.Query().Get("type")); mt == models.MediaTV {
		items, err = s.Catalog.SearchTV(r.Context(), query)
	} else {
		items, err = s.Catalog.Search(r.Context(), query)
	}
	if err != nil {
		s.respondUpstream(w, r, err)
		return
	}
	s.respondOK(w, items)
}

func (s *Server) handleGenres(w http.ResponseWriter, r *http.Request) {
	mt, ok := models.ParseMediaType(r.PathValue("mediaType"))
	if !ok {
		s.respondError(w, http.StatusBadRequest, "invalid media type")
		return
	}
	genres, err := s.Catalog.Genres(r.Context(), mt)
	if err != nil {
		s.respondUpstream(w, r, err)
		return
	}
	s.respondOK(w, genres)
}

// handleGenreNames resolves ?ids=28,12 to "Action, Adventure".
func (s *Server) handleGenreNames(w http.ResponseWriter, r *http.Request) {
	var ids []int
	for _, part := range strings.Split(r.URL.Query().Get("ids"), ",") {
		if id, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			ids = append(ids, id)
		}
	}
	names, err := s.Catalog.GenreNames(r.Context(), ids)
	if err != nil {
		s.respondUpstream(w, r, err)
		return
	}
	s.respondOK(w, map[string]string{"names": names})
}

func (s *Server) titleParams(w http.ResponseWriter, r *http.Request) (models.MediaType, int, bool) {
	mt, ok := models.ParseMediaType(r.PathValue("mediaType"))
	if !ok {
		s.respondError(w, http.StatusBadRequest, "invalid media type")
		return "", 0, false
	}
	id, ok := pathInt(r, "id")
	if !ok || id == 0 {
		s.respondError(w, http.StatusBadRequest, "invalid id")
		return "", 0, false
	}
	return mt, id, true
}

// handleDetails returns a title with its related items. When the caller is
// signed in the movie's playable URL is attached.
func (s *Server) handleDetails(w http.ResponseWriter, r *http.Request) {
	mt, id, ok := s.titleParams(w, r)
	if !ok {
		return
	}
	d, err := s.Catalog.Details(r.Context(), mt, id)
	if err != nil {
		s.respondUpstream(w, r, err)
		return
	}
	if mt == models.MediaMovie && s.optionalSession(r) != nil {
		if p, err := s.Links.ResolveMovie(r.Context(), strconv.Itoa(id)); err == nil {
			out := *d
			out.VideoURL = p.VideoURL
			d = &out
		}
	}
	s.respondOK(w, d)
}

func (s *Server) handleTrailer(w http.ResponseWriter, r *http.Request) {
	mt, id, ok := s.titleParams(w, r)
	if !ok {
		return
	}
	key, err := s.Catalog.Trailer(r.Context(), mt, id)
	if err != nil {
		s.respondUpstream(w, r, err)
		return
	}
	s.respondOK(w, map[string]string{"youtube_key": key})
}

func (s *Server) handleSeasons(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(r, "id")
	if !ok {
		s.respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	seasons, err := s.Catalog.Seasons(r.Context(), id)
	if err != nil {
		s.respondUpstream(w, r, err)
		return
	}
	s.respondOK(w, seasons)
}

// handleEpisodes lists a season. Signed-in callers get each episode's
// playable URL merged in.
func (s *Server) handleEpisodes(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(r, "id")
	season, ok2 := pathInt(r, "season")
	if !ok || !ok2 {
		s.respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	episodes, err := s.Catalog.Episodes(r.Context(), id, season)
	if err != nil {
		s.respondUpstream(w, r, err)
		return
	}
	if s.optionalSession(r) != nil {
		if urls, err := s.Links.SeriesEpisodeLinks(r.Context(), strconv.Itoa(id)); err == nil {
			out := make([]models.Episode, len(episodes))
			copy(out, episodes)
			for i := range out {
				out[i].VideoURL = urls[season][out[i].EpisodeNumber]
			}
			episodes = out
		}
	}
	s.respondOK(w, episodes)
}
