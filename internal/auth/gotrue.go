package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JustinTDCT/Marquee/internal/metrics"
	"github.com/JustinTDCT/Marquee/internal/models"
)

// GoTrueProvider talks to a GoTrue compatible auth service.
type GoTrueProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
	now     func() time.Time
}

func NewGoTrueProvider(baseURL, apiKey string) *GoTrueProvider {
	return &GoTrueProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		now:     time.Now,
	}
}

type goTrueUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type goTrueSession struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   int         `json:"expires_in"`
	User        *goTrueUser `json:"user"`
	goTrueUser
}

// goTrueError covers the error shapes GoTrue has used across versions.
type goTrueError struct {
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (e goTrueError) text() string {
	for _, s := range []string{e.ErrorDescription, e.Msg, e.Message, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

func (p *GoTrueProvider) SignUp(ctx context.Context, email, password string) (*Session, error) {
	var res goTrueSession
	if err := p.post(ctx, "/signup", "", credentials(email, password), &res); err != nil {
		return nil, err
	}
	return p.session(res)
}

func (p *GoTrueProvider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var res goTrueSession
	if err := p.post(ctx, "/token?grant_type=password", "", credentials(email, password), &res); err != nil {
		return nil, err
	}
	if res.AccessToken == "" {
		return nil, ErrInvalidCredentials
	}
	return p.session(res)
}

func (p *GoTrueProvider) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	return p.post(ctx, "/logout", accessToken, nil, nil)
}

func (p *GoTrueProvider) session(res goTrueSession) (*Session, error) {
	user := res.goTrueUser
	if res.User != nil {
		user = *res.User
	}
	id, err := uuid.Parse(user.ID)
	if err != nil {
		return nil, fmt.Errorf("auth service returned invalid user id %q", user.ID)
	}
	s := &Session{
		UserID:      id,
		Email:       user.Email,
		Role:        models.RoleUser,
		AccessToken: res.AccessToken,
	}
	if res.ExpiresIn > 0 {
		s.ExpiresAt = p.now().Add(time.Duration(res.ExpiresIn) * time.Second)
	}
	return s, nil
}

func credentials(email, password string) map[string]string {
	return map[string]string{"email": email, "password": password}
}

func (p *GoTrueProvider) post(ctx context.Context, path, bearer string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", p.apiKey)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	} else if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues("auth", "error").Inc()
		return fmt.Errorf("auth service unreachable: %w", err)
	}
	defer resp.Body.Close()
	metrics.UpstreamRequests.WithLabelValues("auth", strconv.Itoa(resp.StatusCode)).Inc()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		var ge goTrueError
		_ = json.Unmarshal(raw, &ge)
		return mapGoTrueError(resp.StatusCode, ge.text())
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func mapGoTrueError(status int, msg string) error {
	switch {
	case strings.Contains(msg, "Invalid login credentials"):
		return ErrInvalidCredentials
	case strings.Contains(msg, "Email not confirmed"):
		return ErrConfirmationRequired
	case strings.Contains(msg, "already registered"):
		return ErrUserExists
	case msg != "":
		return errors.New(msg)
	}
	return fmt.Errorf("auth service returned %d", status)
}
