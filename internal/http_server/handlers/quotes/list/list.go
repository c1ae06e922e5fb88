package list

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	resp "quotes_service/internal/lib/api/response"
	sl "quotes_service/internal/lib/logger"
	"quotes_service/internal/models"
	"quotes_service/internal/quotes"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"
)

type Response struct {
	resp.Response
	Quotes []models.Quote `json:"quotes"`
}

type QuoteLister interface {
	List(ctx context.Context, filter quotes.Filter) ([]models.Quote, error)
}

// New lists all quotes, optionally narrowed by the ?tags=a,b query
// parameter (OR semantics).
func New(
	log *slog.Logger,
	lister QuoteLister,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.quotes.list.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		serve(w, r, log, lister, nil)
	}
}

// NewByUser lists quotes owned by the user in the path, optionally
// narrowed by tags.
func NewByUser(
	log *slog.Logger,
	lister QuoteLister,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.quotes.list.NewByUser"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		userID, err := uuid.Parse(chi.URLParam(r, "userId"))
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("invalid user id"))

			return
		}

		serve(w, r, log, lister, &userID)
	}
}

func serve(
	w http.ResponseWriter,
	r *http.Request,
	log *slog.Logger,
	lister QuoteLister,
	userID *uuid.UUID,
) {
	tags, err := models.ParseTags(r.URL.Query().Get("tags"))
	if err != nil {
		if errors.Is(err, models.ErrUnknownTag) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error(err.Error()))

			return
		}

		log.Error("failed to parse tags", sl.Err(err))

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, resp.Error("invalid tags"))

		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	found, err := lister.List(ctx, quotes.Filter{UserID: userID, Tags: tags})
	if err != nil {
		log.Error("failed to list quotes", sl.Err(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, resp.Error("internal error"))

		return
	}

	render.JSON(w, r, Response{
		Response: resp.OK(),
		Quotes:   found,
	})
}
