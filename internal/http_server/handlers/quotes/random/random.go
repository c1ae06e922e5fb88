package random

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	resp "quotes_service/internal/lib/api/response"
	sl "quotes_service/internal/lib/logger"
	"quotes_service/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
	Quote *models.Quote `json:"quote"`
}

type RandomProvider interface {
	Random(ctx context.Context) (*models.Quote, error)
}

// New serves one uniformly random quote; quote is null when none exist.
func New(
	log *slog.Logger,
	provider RandomProvider,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.quotes.random.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		quote, err := provider.Random(ctx)
		if err != nil {
			log.Error("failed to get random quote", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("internal error"))

			return
		}

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Quote:    quote,
		})
	}
}
