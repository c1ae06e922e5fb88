package create

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	resp "quotes_service/internal/lib/api/response"
	sl "quotes_service/internal/lib/logger"
	"quotes_service/internal/middleware/authn"
	"quotes_service/internal/models"

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
	Quote models.Quote `json:"quote"`
}

type QuoteCreator interface {
	Create(ctx context.Context, callerID uuid.UUID, text, author string, tags []models.TagType) (models.Quote, error)
}

func New(
	log *slog.Logger,
	validate *validator.Validate,
	creator QuoteCreator,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.quotes.create.New"

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

		var req Request

		err := render.DecodeJSON(r.Body, &req)
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

		quote, err := creator.Create(ctx, caller.ID, req.Text, req.Author, tags)
		if err != nil {
			log.Error("failed to create quote", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("internal error"))

			return
		}

		log.Info("quote created", slog.String("id", quote.ID.String()))

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, Response{
			Response: resp.OK(),
			Quote:    quote,
		})
	}
}
