package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/JustinTDCT/Marquee/internal/auth"
	"github.com/JustinTDCT/Marquee/internal/logging"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// clientError reports whether err is safe to show the user verbatim.
func clientError(err error) bool {
	for _, e := range []error{
		auth.ErrInvalidCredentials, auth.ErrWeakPassword, auth.ErrInvalidEmail,
		auth.ErrUserExists, auth.ErrConfirmationRequired,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess, err := s.Provider.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		s.authFailure(w, r, err)
		return
	}
	s.startSession(w, r, sess)
	if sess.AccessToken == "" {
		s.respondJSON(w, http.StatusAccepted, Response{Success: true, Data: map[string]string{
			"message": "Check your email to confirm your account",
		}})
		return
	}
	s.respondJSON(w, http.StatusCreated, Response{Success: true, Data: sess})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess, err := s.Provider.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		s.authFailure(w, r, err)
		return
	}
	s.startSession(w, r, sess)
	s.respondOK(w, sess)
}

// startSession ensures the profile row exists, resolves the role and sets
// the session cookie.
func (s *Server) startSession(w http.ResponseWriter, r *http.Request, sess *auth.Session) {
	if s.Profiles != nil {
		if err := s.Profiles.Ensure(r.Context(), sess.UserID, sess.Email); err != nil {
			logging.For("auth").WithError(err).WithField("user_id", sess.UserID).Warn("ensure profile failed")
		}
	}
	if sess.AccessToken == "" {
		return
	}
	sess.Role = s.Roles.Resolve(r.Context(), sess.UserID)
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    sess.AccessToken,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) authFailure(w http.ResponseWriter, r *http.Request, err error) {
	if clientError(err) {
		status := http.StatusBadRequest
		if errors.Is(err, auth.ErrInvalidCredentials) {
			status = http.StatusUnauthorized
		}
		s.respondError(w, status, err.Error())
		return
	}
	s.respondInternal(w, r, err)
}

// handleLogout always clears the cookie, even when the upstream sign-out
// fails.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := auth.ExtractToken(r); token != "" {
		if err := s.Provider.SignOut(r.Context(), token); err != nil {
			logging.For("auth").WithError(err).Warn("sign out failed")
		}
		if claims, err := s.Auth.ValidateToken(token); err == nil {
			s.Hub.ClosePlayer(claims.Subject)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
	})
	s.respondOK(w, nil)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	out := *sess
	out.AccessToken = ""
	s.respondOK(w, out)
}
