package login_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"quotes_service/internal/auth"
	"quotes_service/internal/http_server/handlers/login"
	"quotes_service/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

type stubAuthenticator struct {
	pair models.TokenPair
	err  error
}

func (s *stubAuthenticator) Login(_ context.Context, _, _ string) (models.TokenPair, error) {
	return s.pair, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func perform(t *testing.T, authenticator login.UserAuthenticator, body string) *httptest.ResponseRecorder {
	t.Helper()

	handler := login.New(discardLogger(), validator.New(), authenticator)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	handler(rec, req)

	return rec
}

func TestLogin_Success(t *testing.T) {
	t.Parallel()

	authenticator := &stubAuthenticator{pair: models.TokenPair{
		AccessToken:  "access",
		RefreshToken: "refresh",
	}}

	rec := perform(t, authenticator, `{"email":"a@b.com","password":"pass"}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var got login.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "access", got.AccessToken)
	require.Equal(t, "refresh", got.RefreshToken)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	t.Parallel()

	rec := perform(t, &stubAuthenticator{err: auth.ErrInvalidCredentials},
		`{"email":"a@b.com","password":"wrong"}`)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	// generic message, never reveals whether the email exists
	require.Contains(t, rec.Body.String(), "invalid email or password")
}

func TestLogin_MissingFields(t *testing.T) {
	t.Parallel()

	rec := perform(t, &stubAuthenticator{}, `{"email":"a@b.com"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
