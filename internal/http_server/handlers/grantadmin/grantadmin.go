package grantadmin

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	resp "quotes_service/internal/lib/api/response"
	sl "quotes_service/internal/lib/logger"
	"quotes_service/internal/middleware/authn"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"
)

type Response struct {
	resp.Response
}

type AdminGranter interface {
	GrantAdmin(ctx context.Context, userID uuid.UUID) error
}

// New grants the authenticated caller the admin role. Role bootstrap for
// dev and test environments.
func New(
	log *slog.Logger,
	granter AdminGranter,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.grantadmin.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		caller, ok := authn.FromContext(r.Context())
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("unauthorized"))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := granter.GrantAdmin(ctx, caller.ID); err != nil {
			log.Error("failed to grant admin role", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("internal error"))

			return
		}

		log.Info("admin role granted")

		render.JSON(w, r, Response{Response: resp.OK()})
	}
}
