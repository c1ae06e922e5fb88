package remove

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	resp "quotes_service/internal/lib/api/response"
	sl "quotes_service/internal/lib/logger"
	"quotes_service/internal/middleware/authn"
	"quotes_service/internal/quotes"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"
)

type QuoteDeleter interface {
	Delete(ctx context.Context, callerID, quoteID uuid.UUID) error
}

// New deletes a quote; its tags are removed by cascade. Owner or admin
// only. Responds 204 with no body.
func New(
	log *slog.Logger,
	deleter QuoteDeleter,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.quotes.remove.New"

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

		quoteID, err := uuid.Parse(chi.URLParam(r, "quoteId"))
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("invalid quote id"))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		err = deleter.Delete(ctx, caller.ID, quoteID)
		if err != nil {
			if errors.Is(err, quotes.ErrQuoteNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("quote not found"))

				return
			}
			if errors.Is(err, quotes.ErrPermissionDenied) {
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, resp.Error("you do not have permission to delete this quote"))

				return
			}

			log.Error("failed to delete quote", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("internal error"))

			return
		}

		log.Info("quote deleted", slog.String("id", quoteID.String()))

		w.WriteHeader(http.StatusNoContent)
	}
}
