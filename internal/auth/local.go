package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/JustinTDCT/Marquee/internal/models"
)

// ErrNoCredential is returned by a CredentialStore when the email is unknown.
var ErrNoCredential = errors.New("credential not found")

// CredentialStore persists password hashes for standalone mode.
type CredentialStore interface {
	CreateCredential(ctx context.Context, id uuid.UUID, email, hash string) error
	GetCredential(ctx context.Context, email string) (uuid.UUID, string, error)
}

// LocalProvider authenticates against bcrypt hashes when no hosted auth
// service is configured. Tokens are issued by Auth.
type LocalProvider struct {
	store CredentialStore
	auth  *Auth
}

func NewLocalProvider(store CredentialStore, a *Auth) *LocalProvider {
	return &LocalProvider{store: store, auth: a}
}

func (p *LocalProvider) SignUp(ctx context.Context, email, password string) (*Session, error) {
	email = NormalizeEmail(email)
	if err := ValidateCredentials(email, password); err != nil {
		return nil, err
	}
	if _, _, err := p.store.GetCredential(ctx, email); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, ErrNoCredential) {
		return nil, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	id := uuid.New()
	if err := p.store.CreateCredential(ctx, id, email, hash); err != nil {
		return nil, err
	}
	return p.issue(id, email)
}

func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = NormalizeEmail(email)
	id, hash, err := p.store.GetCredential(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNoCredential) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !CheckPassword(hash, password) {
		return nil, ErrInvalidCredentials
	}
	return p.issue(id, email)
}

// SignOut is a no-op: tokens are stateless and the handler clears the cookie.
func (p *LocalProvider) SignOut(context.Context, string) error {
	return nil
}

func (p *LocalProvider) issue(id uuid.UUID, email string) (*Session, error) {
	token, exp, err := p.auth.IssueToken(id, email)
	if err != nil {
		return nil, err
	}
	return &Session{
		UserID:      id,
		Email:       email,
		Role:        models.RoleUser,
		AccessToken: token,
		ExpiresAt:   exp,
	}, nil
}
