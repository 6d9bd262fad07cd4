package httpapi

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"craftstock/backend/internal/domain"
	"craftstock/backend/internal/store"
	"craftstock/backend/internal/store/memory"
)

func newTestAuth(t *testing.T) *AuthManager {
	t.Helper()
	return NewAuthManager("unit-test-secret-unit-test-secret", time.Hour, memory.New())
}

func TestRegisterStoresBcryptHash(t *testing.T) {
	users := memory.New()
	auth := NewAuthManager("unit-test-secret-unit-test-secret", time.Hour, users)

	resp, err := auth.Register(context.Background(), domain.RegisterRequest{
		Username: "  marco ",
		Email:    "Marco@Example.com",
		Password: "falegname",
	})
	require.NoError(t, err)
	assert.Equal(t, "marco", resp.User.Username)
	assert.Equal(t, "marco@example.com", resp.User.Email)

	stored, err := users.GetUserByUsername(context.Background(), "marco")
	require.NoError(t, err)
	assert.True(t, isPasswordHash(stored.PasswordHash), "expected bcrypt hash, got %q", stored.PasswordHash)
	assert.NotEqual(t, "falegname", stored.PasswordHash)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	auth := newTestAuth(t)
	ctx := context.Background()

	_, err := auth.Register(ctx, domain.RegisterRequest{Username: "anna", Email: "anna@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = auth.Register(ctx, domain.RegisterRequest{Username: "anna2", Email: "ANNA@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	auth := newTestAuth(t)

	_, err := auth.Register(context.Background(), domain.RegisterRequest{Username: "anna", Email: "anna@example.com", Password: "123"})
	assert.ErrorIs(t, err, store.ErrInvalid)
}

func TestLoginIssuesParsableToken(t *testing.T) {
	auth := newTestAuth(t)
	ctx := context.Background()

	registered, err := auth.Register(ctx, domain.RegisterRequest{Username: "anna", Email: "anna@example.com", Password: "secret1"})
	require.NoError(t, err)

	resp, err := auth.Login(ctx, domain.LoginRequest{Username: "ANNA", Password: "secret1"})
	require.NoError(t, err)
	actor, err := auth.ParseToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, actor.UserID)
	assert.Equal(t, "anna", actor.Username)

	_, err = auth.Login(ctx, domain.LoginRequest{Username: "anna", Password: "wrong"})
	assert.ErrorIs(t, err, errInvalidCredentials)
	_, err = auth.Login(ctx, domain.LoginRequest{Username: "ghost", Password: "secret1"})
	assert.ErrorIs(t, err, errInvalidCredentials, "unknown user")
}

func TestParseTokenRejectsExpiredAndForeignTokens(t *testing.T) {
	auth := newTestAuth(t)
	user := domain.User{ID: "u-1", Username: "anna"}

	auth.now = func() time.Time { return time.Now().UTC().Add(-3 * time.Hour) }
	expired, err := auth.issue(user)
	require.NoError(t, err)
	auth.now = func() time.Time { return time.Now().UTC() }
	_, err = auth.ParseToken(expired.Token)
	assert.ErrorIs(t, err, errInvalidToken, "expired token")

	other := NewAuthManager("another-secret-another-secret-xx", time.Hour, memory.New())
	foreign, err := other.issue(user)
	require.NoError(t, err)
	_, err = auth.ParseToken(foreign.Token)
	assert.ErrorIs(t, err, errInvalidToken, "token signed with another secret")
}
