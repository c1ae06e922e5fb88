package token

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"quotes_service/internal/auth"
	resp "quotes_service/internal/lib/api/response"
	sl "quotes_service/internal/lib/logger"
	"quotes_service/internal/middleware/authn"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
	AccessToken string `json:"access_token"`
}

type TokenRenewer interface {
	RenewAccessToken(ctx context.Context, rawToken string) (string, error)
}

// New renews an access token. The refresh token comes from the
// Authorization header; it is not rotated on success.
func New(
	log *slog.Logger,
	renewer TokenRenewer,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.token.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		rawToken := authn.BearerToken(r)
		if rawToken == "" {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("refresh token is missing"))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		accessToken, err := renewer.RenewAccessToken(ctx, rawToken)
		if err != nil {
			if errors.Is(err, auth.ErrMalformedRefreshToken) {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("invalid refresh token"))

				return
			}
			if errors.Is(err, auth.ErrInvalidRefreshToken) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("invalid refresh token"))

				return
			}

			log.Error("failed to renew access token", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("internal error"))

			return
		}

		log.Info("access token renewed")

		render.JSON(w, r, Response{
			Response:    resp.OK(),
			AccessToken: accessToken,
		})
	}
}
