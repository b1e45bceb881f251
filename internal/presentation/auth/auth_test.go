package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hilthontt/civicreport/internal/domain"
	"github.com/hilthontt/civicreport/internal/infrastructure/logging"
	"github.com/hilthontt/civicreport/internal/persistence/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func newAuthenticator(t *testing.T, users domain.UserRepository) *Authenticator {
	t.Helper()
	a, err := NewAuthenticator(secret, "civicreport", users, logging.NewNopLogger())
	require.NoError(t, err)
	return a
}

func TestNewAuthenticatorRequiresSecret(t *testing.T) {
	_, err := NewAuthenticator("", "civicreport", nil, logging.NewNopLogger())
	assert.Error(t, err)
}

func TestIssueAndAuthenticate(t *testing.T) {
	a := newAuthenticator(t, nil)

	token, err := a.IssueToken(domain.User{ID: "sup-water", Name: "Water Supervisor", Role: domain.RoleSupervisor}, time.Hour)
	require.NoError(t, err)

	s, err := a.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "sup-water", s.UserID)
	assert.Equal(t, domain.RoleSupervisor, s.Role)
	assert.Equal(t, "Water Supervisor", s.Name)
}

func TestAuthenticateRejects(t *testing.T) {
	a := newAuthenticator(t, nil)
	ctx := context.Background()

	_, err := a.Authenticate(ctx, "")
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = a.Authenticate(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	expired, err := a.IssueToken(domain.User{ID: "u", Role: domain.RoleCitizen}, -time.Minute)
	require.NoError(t, err)
	_, err = a.Authenticate(ctx, expired)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	other, err := NewAuthenticator("another-secret", "civicreport", nil, logging.NewNopLogger())
	require.NoError(t, err)
	forged, err := other.IssueToken(domain.User{ID: "u", Role: domain.RoleAdmin}, time.Hour)
	require.NoError(t, err)
	_, err = a.Authenticate(ctx, forged)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	badRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:           "u",
		Role:             "mayor",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "civicreport"},
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	_, err = a.Authenticate(ctx, badRole)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestDirectoryRoleWins(t *testing.T) {
	users := memory.NewUserStore(domain.User{ID: "u-1", Name: "Pat", Role: domain.RoleCitizen})
	a := newAuthenticator(t, users)

	token, err := a.IssueToken(domain.User{ID: "u-1", Role: domain.RoleAdmin}, time.Hour)
	require.NoError(t, err)

	s, err := a.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCitizen, s.Role)
	assert.Equal(t, "Pat", s.Name)

	unknown, err := a.IssueToken(domain.User{ID: "u-2", Role: domain.RoleWorker}, time.Hour)
	require.NoError(t, err)
	s, err = a.Authenticate(context.Background(), unknown)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleWorker, s.Role)
}

func TestMiddleware(t *testing.T) {
	a := newAuthenticator(t, nil)
	var seen *domain.Session
	h := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = SessionFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, seen)

	token, err := a.IssueToken(domain.User{ID: "citizen-1", Role: domain.RoleCitizen}, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "citizen-1", seen.UserID)

	seen = nil
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/live?token="+token, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, seen)
}
