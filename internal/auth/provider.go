package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/JustinTDCT/Marquee/internal/models"
)

// Session is an authenticated user. AccessToken is empty when sign-up
// succeeded but the address still needs confirming.
type Session struct {
	UserID      uuid.UUID       `json:"user_id"`
	Email       string          `json:"email"`
	Role        models.UserRole `json:"role"`
	AccessToken string          `json:"access_token,omitempty"`
	ExpiresAt   time.Time       `json:"expires_at,omitempty"`
}

// Provider performs password sign-up, sign-in and sign-out.
type Provider interface {
	SignUp(ctx context.Context, email, password string) (*Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
}
