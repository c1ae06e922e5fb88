package update

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	resp "quotes_service/internal/lib/api/response"
	sl "quotes_service/internal/lib/logger"
	"quotes_service/internal/middleware/authn"
	"quotes_service/internal/models"
	"quotes_service/internal/quotes"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Request struct {
	Text   string   `json:"text" validate:"required"`
	Author string   `json:"author" validate:"required"`
	Tags   []string `json:"tags"`
}

type Response struct {
	resp.Response
}

type QuoteUpdater interface {
	Update(ctx context.Context, callerID, quoteID uuid.UUID, text, author string, tags []models.TagType) error
}

// New replaces a quote's text, author and whole tag set. Owner or admin
// only.
func New(
	log *slog.Logger,
	validate *validator.Validate,
	updater QuoteUpdater,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.quotes.update.New"

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

		var req Request

		err = render.DecodeJSON(r.Body, &req)
		if err != nil {
			log.Error("failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("failed to decode request"))

			return
		}

		if err := validate.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Error("invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		tags, err := models.ParseTagList(req.Tags)
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error(err.Error()))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		err = updater.Update(ctx, caller.ID, quoteID, req.Text, req.Author, tags)
		if err != nil {
			if errors.Is(err, quotes.ErrQuoteNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("quote not found"))

				return
			}
			if errors.Is(err, quotes.ErrPermissionDenied) {
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, resp.Error("you do not have permission to update this quote"))

				return
			}

			log.Error("failed to update quote", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("internal error"))

			return
		}

		log.Info("quote updated", slog.String("id", quoteID.String()))

		render.JSON(w, r, Response{Response: resp.OK()})
	}
}
