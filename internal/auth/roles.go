package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/JustinTDCT/Marquee/internal/logging"
	"github.com/JustinTDCT/Marquee/internal/models"
)

const roleLookupTimeout = 5 * time.Second

type RoleSource interface {
	GetRole(ctx context.Context, id uuid.UUID) (models.UserRole, error)
}

// RoleResolver reads a user's role from their profile. Lookups that fail or
// exceed the timeout resolve to RoleUser so sign-in never blocks on it.
type RoleResolver struct {
	source  RoleSource
	timeout time.Duration
}

func NewRoleResolver(source RoleSource) *RoleResolver {
	return &RoleResolver{source: source, timeout: roleLookupTimeout}
}

func (r *RoleResolver) Resolve(ctx context.Context, id uuid.UUID) models.UserRole {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type result struct {
		role models.UserRole
		err  error
	}
	done := make(chan result, 1)
	go func() {
		role, err := r.source.GetRole(ctx, id)
		done <- result{role, err}
	}()

	log := logging.For("auth").WithField("user_id", id)
	select {
	case res := <-done:
		if res.err != nil {
			log.WithError(res.err).Warn("role lookup failed, defaulting to user")
			return models.RoleUser
		}
		if res.role.Level() == 0 {
			return models.RoleUser
		}
		return res.role
	case <-ctx.Done():
		log.Warn("role lookup timed out, defaulting to user")
		return models.RoleUser
	}
}

// Authenticate validates a token and attaches the resolved role.
func (r *RoleResolver) Authenticate(ctx context.Context, a *Auth, token string) (*Session, error) {
	claims, err := a.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	id, _ := claims.UserID()
	s := &Session{
		UserID:      id,
		Email:       claims.Email,
		Role:        r.Resolve(ctx, id),
		AccessToken: token,
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}
