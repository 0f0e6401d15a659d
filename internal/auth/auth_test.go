package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JustinTDCT/Marquee/internal/models"
)

func TestIssueAndValidateToken(t *testing.T) {
	a, err := NewAuth("secret", time.Hour)
	require.NoError(t, err)

	id := uuid.New()
	tok, exp, err := a.IssueToken(id, "a@b.co")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := a.ValidateToken(tok)
	require.NoError(t, err)
	got, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.Equal(t, "a@b.co", claims.Email)
}

func TestValidateTokenRejects(t *testing.T) {
	a, _ := NewAuth("secret", time.Hour)
	other, _ := NewAuth("other", time.Hour)

	tok, _, _ := other.IssueToken(uuid.New(), "x@y.z")
	_, err := a.ValidateToken(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	a.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _, _ := a.IssueToken(uuid.New(), "x@y.z")
	a.now = time.Now
	_, err = a.ValidateToken(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": uuid.NewString(), "exp": time.Now().Add(time.Hour).Unix()})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = a.ValidateToken(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewAuth("", time.Hour)
	assert.Error(t, err)
}

func TestCheckPermission(t *testing.T) {
	a, _ := NewAuth("s", 0)
	assert.True(t, a.CheckPermission(models.RoleAdmin, models.RoleUser))
	assert.True(t, a.CheckPermission(models.RoleUser, models.RoleUser))
	assert.False(t, a.CheckPermission(models.RoleUser, models.RoleAdmin))
	assert.False(t, a.CheckPermission("", models.RoleUser))
}

func TestExtractToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?token=q", nil)
	assert.Equal(t, "q", ExtractToken(r))

	r.AddCookie(&http.Cookie{Name: SessionCookie, Value: "c"})
	assert.Equal(t, "c", ExtractToken(r))

	r.Header.Set("Authorization", "Bearer h")
	assert.Equal(t, "h", ExtractToken(r))
}

func TestValidateCredentials(t *testing.T) {
	assert.NoError(t, ValidateCredentials("a@b.co", "secret1"))
	assert.ErrorIs(t, ValidateCredentials("nope", "secret1"), ErrInvalidEmail)
	assert.ErrorIs(t, ValidateCredentials("a@b.co", "123"), ErrWeakPassword)
}

type credential struct {
	id   uuid.UUID
	hash string
}

type memCredentials struct {
	mu    sync.Mutex
	users map[string]credential
}

func (m *memCredentials) CreateCredential(_ context.Context, id uuid.UUID, email, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.users == nil {
		m.users = map[string]credential{}
	}
	m.users[email] = credential{id, hash}
	return nil
}

func (m *memCredentials) GetCredential(_ context.Context, email string) (uuid.UUID, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return uuid.Nil, "", ErrNoCredential
	}
	return u.id, u.hash, nil
}

func TestLocalProvider(t *testing.T) {
	a, _ := NewAuth("secret", time.Hour)
	p := NewLocalProvider(&memCredentials{}, a)
	ctx := context.Background()

	s, err := p.SignUp(ctx, " Me@Example.com ", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", s.Email)
	assert.NotEmpty(t, s.AccessToken)

	_, err = p.SignUp(ctx, "me@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrUserExists)

	_, err = p.SignIn(ctx, "me@example.com", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = p.SignIn(ctx, "ghost@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	in, err := p.SignIn(ctx, "ME@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, s.UserID, in.UserID)

	claims, err := a.ValidateToken(in.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", claims.Email)
	assert.NoError(t, p.SignOut(ctx, in.AccessToken))
}

type stubRoles struct {
	role  models.UserRole
	err   error
	delay time.Duration
}

func (s stubRoles) GetRole(ctx context.Context, _ uuid.UUID) (models.UserRole, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.role, s.err
}

func TestRoleResolver(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	assert.Equal(t, models.RoleAdmin, NewRoleResolver(stubRoles{role: models.RoleAdmin}).Resolve(ctx, id))
	assert.Equal(t, models.RoleUser, NewRoleResolver(stubRoles{err: errors.New("no rows")}).Resolve(ctx, id))
	assert.Equal(t, models.RoleUser, NewRoleResolver(stubRoles{role: "owner"}).Resolve(ctx, id))

	slow := NewRoleResolver(stubRoles{role: models.RoleAdmin, delay: time.Second})
	slow.timeout = 20 * time.Millisecond
	start := time.Now()
	assert.Equal(t, models.RoleUser, slow.Resolve(ctx, id))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestAuthenticate(t *testing.T) {
	a, _ := NewAuth("secret", time.Hour)
	id := uuid.New()
	tok, _, _ := a.IssueToken(id, "a@b.co")

	s, err := NewRoleResolver(stubRoles{role: models.RoleAdmin}).Authenticate(context.Background(), a, tok)
	require.NoError(t, err)
	assert.Equal(t, id, s.UserID)
	assert.Equal(t, models.RoleAdmin, s.Role)

	_, err = NewRoleResolver(stubRoles{}).Authenticate(context.Background(), a, "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
