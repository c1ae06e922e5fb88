package register_test

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
	"quotes_service/internal/http_server/handlers/register"
	"quotes_service/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

type stubRegistrar struct {
	pair models.TokenPair
	err  error
}

func (s *stubRegistrar) Register(_ context.Context, _, _ string) (models.TokenPair, error) {
	return s.pair, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func perform(t *testing.T, registrar register.UserRegistrar, body string) *httptest.ResponseRecorder {
	t.Helper()

	handler := register.New(discardLogger(), validator.New(), registrar)

	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	handler(rec, req)

	return rec
}

func TestRegister_Success(t *testing.T) {
	t.Parallel()

	registrar := &stubRegistrar{pair: models.TokenPair{
		AccessToken:  "access",
		RefreshToken: "refresh",
	}}

	rec := perform(t, registrar,
		`{"email":"a@b.com","password":"pass","confirm_password":"pass"}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var got register.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "ok", got.Status)
	require.Equal(t, "access", got.AccessToken)
	require.Equal(t, "refresh", got.RefreshToken)
}

func TestRegister_PasswordMismatch(t *testing.T) {
	t.Parallel()

	rec := perform(t, &stubRegistrar{},
		`{"email":"a@b.com","password":"pass","confirm_password":"other"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "ConfirmPassword")
}

func TestRegister_MalformedEmail(t *testing.T) {
	t.Parallel()

	rec := perform(t, &stubRegistrar{},
		`{"email":"not-an-email","password":"pass","confirm_password":"pass"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Email")
}

func TestRegister_DuplicateEmail(t *testing.T) {
	t.Parallel()

	rec := perform(t, &stubRegistrar{err: auth.ErrUserExists},
		`{"email":"a@b.com","password":"pass","confirm_password":"pass"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "user already exists")
}

func TestRegister_BadJSON(t *testing.T) {
	t.Parallel()

	rec := perform(t, &stubRegistrar{}, `{not json`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
