package api

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/JustinTDCT/Marquee/internal/links"
)

// handlePlayMovie resolves a movie's URL. When one exists the user's
// player is opened on every connected client.
func (s *Server) handlePlayMovie(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(r, "id")
	if !ok || id == 0 {
		s.respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	tmdbID := strconv.Itoa(id)
	p, err := s.Links.ResolveMovie(r.Context(), tmdbID)
	if err != nil {
		s.respondInternal(w, r, err)
		return
	}
	s.openPlayer(r, p, PlayerState{TMDBID: tmdbID})
	s.respondOK(w, p)
}

func (s *Server) handlePlayEpisode(w http.ResponseWriter, r *http.Request) {
	id, ok1 := pathInt(r, "id")
	season, ok2 := pathInt(r, "season")
	episode, ok3 := pathInt(r, "episode")
	if !ok1 || !ok2 || !ok3 || id == 0 {
		s.respondError(w, http.StatusBadRequest, "invalid episode")
		return
	}
	tmdbID := strconv.Itoa(id)
	p, err := s.Links.ResolveEpisode(r.Context(), tmdbID, season, episode)
	if err != nil {
		s.respondInternal(w, r, err)
		return
	}
	s.openPlayer(r, p, PlayerState{TMDBID: tmdbID, Season: season, Episode: episode})
	s.respondOK(w, p)
}

func (s *Server) handlePlayClose(w http.ResponseWriter, r *http.Request) {
	s.Hub.ClosePlayer(sessionFrom(r).UserID.String())
	s.respondOK(w, nil)
}

func (s *Server) openPlayer(r *http.Request, p links.Playback, state PlayerState) {
	if !p.Available {
		return
	}
	state.VideoURL = p.VideoURL
	s.Hub.OpenPlayer(sessionFrom(r).UserID.String(), state)
}

type visitRequest struct {
	Path string `json:"page_path"`
}

// handleRecordVisit stores a page view for anonymous and signed-in users.
func (s *Server) handleRecordVisit(w http.ResponseWriter, r *http.Request) {
	var req visitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	var userID *uuid.UUID
	if sess := s.optionalSession(r); sess != nil {
		id := sess.UserID
		userID = &id
	}
	s.Analytics.RecordVisit(r.Context(), req.Path, userID)
	s.respondJSON(w, http.StatusAccepted, Response{Success: true})
}
