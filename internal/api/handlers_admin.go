package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/JustinTDCT/Marquee/internal/catalog"
	"github.com/JustinTDCT/Marquee/internal/config"
	"github.com/JustinTDCT/Marquee/internal/links"
	"github.com/JustinTDCT/Marquee/internal/models"
	"github.com/JustinTDCT/Marquee/internal/repository"
)

// ──────────────────── Dashboard & users ────────────────────

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Analytics.Dashboard(r.Context())
	if err != nil {
		s.respondInternal(w, r, err)
		return
	}
	s.respondOK(w, stats)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.Profiles.List(r.Context())
	if err != nil {
		s.respondInternal(w, r, err)
		return
	}
	s.respondOK(w, users)
}

// handleToggleRole flips a user between admin and user. Admins cannot
// demote themselves.
func (s *Server) handleToggleRole(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if id == sessionFrom(r).UserID {
		s.respondError(w, http.StatusBadRequest, "You cannot change your own role")
		return
	}
	p, err := s.Profiles.Get(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		s.respondInternal(w, r, err)
		return
	}
	role := p.Role.Toggled()
	if err := s.Profiles.SetRole(r.Context(), id, role); err != nil {
		s.respondInternal(w, r, err)
		return
	}
	p.Role = role
	s.respondOK(w, p)
}

type warmRequest struct {
	Pages []string `json:"pages"`
}

func (s *Server) handleWarmCache(w http.ResponseWriter, r *http.Request) {
	if s.Warm == nil {
		s.respondError(w, http.StatusServiceUnavailable, "cache warming is not configured")
		return
	}
	var req warmRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if err := s.Warm(r.Context(), req.Pages); err != nil {
		s.respondInternal(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusAccepted, Response{Success: true})
}

// ──────────────────── Catalog pickers ────────────────────

// handleAdminNowPlaying lists current releases for the movie link manager.
func (s *Server) handleAdminNowPlaying(w http.ResponseWriter, r *http.Request) {
	mt := models.MediaMovie
	fetch := "now_playing"
	if t, _ := models.ParseMediaType(r.URL.Query().Get("type")); t == models.MediaTV {
		mt, fetch = models.MediaTV, "popular"
	}
	items, err := s.Catalog.Row(r.Context(), catalog.Row{FetchType: fetch, MediaType: mt})
	if err != nil {
		s.respondUpstream(w, r, err)
		return
	}
	s.respondOK(w, items)
}

func (s *Server) handleAdminSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		items []models.CatalogItem
		err   error
	)
	if mt, _ := models.ParseMediaType(q.Get("type")); mt == models.MediaTV {
		items, err = s.Catalog.SearchTV(r.Context(), q.Get("q"))
	} else {
		items, err = s.Catalog.Search(r.Context(), q.Get("q"))
	}
	if err != nil {
		s.respondUpstream(w, r, err)
		return
	}
	s.respondOK(w, items)
}

// ──────────────────── Links ────────────────────

type linkRequest struct {
	VideoURL string `json:"video_url"`
}

// linkError maps validation failures to 400 with their message and
// everything else to 500.
func (s *Server) linkError(w http.ResponseWriter, r *http.Request, err error) {
	for _, e := range []error{
		links.ErrURLRequired, links.ErrInvalidURL, links.ErrMovieRequired,
		links.ErrSeriesRequired, links.ErrSeasonRequired, links.ErrEpisodeRequired, links.ErrEpisodeURL,
	} {
		if errors.Is(err, e) {
			s.respondError(w, http.StatusBadRequest, e.Error())
			return
		}
	}
	if errors.Is(err, links.ErrTimeout) {
		s.respondError(w, http.StatusGatewayTimeout, links.ErrTimeout.Error())
		return
	}
	s.respondInternal(w, r, err)
}

func (s *Server) handleListMovieLinks(w http.ResponseWriter, r *http.Request) {
	m, err := s.Links.MovieLinks(r.Context())
	if err != nil {
		s.respondInternal(w, r, err)
		return
	}
	s.respondOK(w, m)
}

func (s *Server) handleSaveMovieLink(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	l, err := s.Links.SaveMovieLink(r.Context(), r.PathValue("id"), req.VideoURL)
	if err != nil {
		s.linkError(w, r, err)
		return
	}
	s.respondOK(w, l)
}

func (s *Server) handleDeleteMovieLink(w http.ResponseWriter, r *http.Request) {
	if err := s.Links.RemoveMovieLink(r.Context(), r.PathValue("id")); err != nil {
		s.linkError(w, r, err)
		return
	}
	s.respondOK(w, nil)
}

func (s *Server) handleListEpisodeLinks(w http.ResponseWriter, r *http.Request) {
	m, err := s.Links.EpisodeLinks(r.Context())
	if err != nil {
		s.respondInternal(w, r, err)
		return
	}
	s.respondOK(w, m)
}

func (s *Server) handleSeriesEpisodeLinks(w http.ResponseWriter, r *http.Request) {
	m, err := s.Links.SeriesEpisodeLinks(r.Context(), r.PathValue("id"))
	if err != nil {
		s.respondInternal(w, r, err)
		return
	}
	s.respondOK(w, m)
}

// episodePath parses season and episode; non-numeric values become 0 so
// the service reports the matching validation message.
func episodePath(r *http.Request) (int, int) {
	season, _ := strconv.Atoi(r.PathValue("season"))
	episode, _ := strconv.Atoi(r.PathValue("episode"))
	return season, episode
}

func (s *Server) handleSaveEpisodeLink(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	season, episode := episodePath(r)
	l, err := s.Links.SaveEpisodeLink(r.Context(), r.PathValue("id"), season, episode, req.VideoURL)
	if err != nil {
		s.linkError(w, r, err)
		return
	}
	s.respondOK(w, l)
}

func (s *Server) handleDeleteEpisodeLink(w http.ResponseWriter, r *http.Request) {
	season, episode := episodePath(r)
	if err := s.Links.RemoveEpisodeLink(r.Context(), r.PathValue("id"), season, episode); err != nil {
		s.linkError(w, r, err)
		return
	}
	s.respondOK(w, nil)
}

// ──────────────────── Settings ────────────────────

// editableSettings lists the app_settings keys admins may change.
var editableSettings = map[string]bool{
	"featured_source": true,
	"cache_ttl":       true,
	"warm_schedule":   true,
}

type settingRequest struct {
	Value string `json:"value"`
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	if s.Settings == nil {
		s.respondOK(w, map[string]string{})
		return
	}
	all, err := s.Settings.All(r.Context())
	if err != nil {
		s.respondInternal(w, r, err)
		return
	}
	s.respondOK(w, all)
}

func (s *Server) handlePutSetting(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if !editableSettings[key] {
		s.respondError(w, http.StatusBadRequest, "unknown setting")
		return
	}
	if s.Settings == nil {
		s.respondError(w, http.StatusServiceUnavailable, "settings are not available")
		return
	}
	var req settingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	switch key {
	case "featured_source":
		if req.Value != "day" && req.Value != "week" {
			s.respondError(w, http.StatusBadRequest, "featured_source must be day or week")
			return
		}
	case "cache_ttl":
		if _, err := config.ParseTTL(req.Value); err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if err := s.Settings.Set(r.Context(), key, req.Value); err != nil {
		s.respondInternal(w, r, err)
		return
	}
	if s.SettingChanged != nil {
		s.SettingChanged(key, req.Value)
	}
	s.respondOK(w, map[string]string{key: req.Value})
}
