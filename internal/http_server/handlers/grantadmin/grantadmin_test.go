package grantadmin_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"quotes_service/internal/http_server/handlers/grantadmin"
	"quotes_service/internal/middleware/authn"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type stubGranter struct {
	gotUserID uuid.UUID
}

func (s *stubGranter) GrantAdmin(_ context.Context, userID uuid.UUID) error {
	s.gotUserID = userID
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGrantAdmin_GrantsCaller(t *testing.T) {
	t.Parallel()

	granter := &stubGranter{}
	handler := grantadmin.New(discardLogger(), granter)

	caller := authn.Caller{ID: uuid.New()}

	req := httptest.NewRequest(http.MethodPost, "/auth/grantAdmin", nil)
	req = req.WithContext(authn.WithCaller(req.Context(), caller))
	rec := httptest.NewRecorder()

	handler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, caller.ID, granter.gotUserID)
}

func TestGrantAdmin_Unauthenticated(t *testing.T) {
	t.Parallel()

	handler := grantadmin.New(discardLogger(), &stubGranter{})

	req := httptest.NewRequest(http.MethodPost, "/auth/grantAdmin", nil)
	rec := httptest.NewRecorder()

	handler(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
