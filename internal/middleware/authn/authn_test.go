package authn_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwtlib "quotes_service/internal/lib/jwt"
	"quotes_service/internal/middleware/authn"
	"quotes_service/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func protected(t *testing.T, captured *authn.Caller) http.Handler {
	t.Helper()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := authn.FromContext(r.Context())
		require.True(t, ok)

		*captured = caller

		w.WriteHeader(http.StatusOK)
	})

	return authn.New(discardLogger(), testSecret)(handler)
}

func TestAuthn_ValidToken(t *testing.T) {
	t.Parallel()

	user := models.User{ID: uuid.New(), Email: "a@b.com"}

	token, err := jwtlib.NewAccessToken(user, true, []string{"admin"}, testSecret, "quotes", time.Minute)
	require.NoError(t, err)

	var caller authn.Caller

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	protected(t, &caller).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, user.ID, caller.ID)
	require.Equal(t, user.Email, caller.Email)
	require.True(t, caller.IsAdmin)
}

func TestAuthn_MissingHeader(t *testing.T) {
	t.Parallel()

	var caller authn.Caller

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	protected(t, &caller).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthn_WrongSecret(t *testing.T) {
	t.Parallel()

	user := models.User{ID: uuid.New(), Email: "a@b.com"}

	token, err := jwtlib.NewAccessToken(user, false, nil, "other-secret", "quotes", time.Minute)
	require.NoError(t, err)

	var caller authn.Caller

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	protected(t, &caller).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthn_ExpiredToken(t *testing.T) {
	t.Parallel()

	user := models.User{ID: uuid.New(), Email: "a@b.com"}

	token, err := jwtlib.NewAccessToken(user, false, nil, testSecret, "quotes", -time.Minute)
	require.NoError(t, err)

	var caller authn.Caller

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	protected(t, &caller).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthn_RefreshTokenRejected(t *testing.T) {
	t.Parallel()

	// refresh tokens carry a throwaway signature and must not pass
	// access-token verification
	user := models.User{ID: uuid.New(), Email: "a@b.com"}

	token, err := jwtlib.NewRefreshToken(user, "quotes", time.Hour)
	require.NoError(t, err)

	var caller authn.Caller

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	protected(t, &caller).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
