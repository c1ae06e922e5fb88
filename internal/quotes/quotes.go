package quotes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	sl "quotes_service/internal/lib/logger"
	"quotes_service/internal/models"
	"quotes_service/internal/storage"

	"github.com/google/uuid"
)

var (
	ErrQuoteNotFound = errors.New("quote not found")
	// ErrPermissionDenied is returned when the caller is neither the
	// quote's owner nor an admin.
	ErrPermissionDenied = errors.New("permission denied")
)

type Quotes struct {
	log         *slog.Logger
	provider    QuoteProvider
	mutator     QuoteMutator
	roleChecker RoleChecker
	cache       ListCache
}

type QuoteProvider interface {
	Quote(ctx context.Context, id uuid.UUID) (models.Quote, error)
	Quotes(ctx context.Context) ([]models.Quote, error)
	QuotesByTags(ctx context.Context, tags []models.TagType) ([]models.Quote, error)
	QuotesByUser(ctx context.Context, userID uuid.UUID) ([]models.Quote, error)
	QuotesByUserAndTags(ctx context.Context, userID uuid.UUID, tags []models.TagType) ([]models.Quote, error)
	RandomQuote(ctx context.Context) (models.Quote, error)
}

type QuoteMutator interface {
	SaveQuote(ctx context.Context, q models.Quote) (models.Quote, error)
	UpdateQuote(ctx context.Context, q models.Quote) error
	DeleteQuote(ctx context.Context, id uuid.UUID) error
}

// RoleChecker queries live role membership. Authorization deliberately
// re-checks the role store per request instead of trusting the access
// token's is_admin claim, which may be stale.
type RoleChecker interface {
	IsInRole(ctx context.Context, userID uuid.UUID, role string) (bool, error)
}

// ListCache holds the unfiltered quote list. May be nil.
type ListCache interface {
	GetQuotes(ctx context.Context) ([]models.Quote, bool, error)
	SetQuotes(ctx context.Context, quotes []models.Quote) error
	Invalidate(ctx context.Context) error
}

// Filter narrows a listing. Zero value means "all quotes".
type Filter struct {
	UserID *uuid.UUID
	Tags   []models.TagType
}

func New(
	log *slog.Logger,
	provider QuoteProvider,
	mutator QuoteMutator,
	roleChecker RoleChecker,
	cache ListCache,
) *Quotes {
	return &Quotes{
		log:         log,
		provider:    provider,
		mutator:     mutator,
		roleChecker: roleChecker,
		cache:       cache,
	}
}

// Random returns one uniformly random quote, or nil when none exist.
func (q *Quotes) Random(ctx context.Context) (*models.Quote, error) {
	const op = "quotes.Random"

	quote, err := q.provider.RandomQuote(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrQuoteNotFound) {
			return nil, nil
		}

		q.log.Error("failed to pick random quote", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &quote, nil
}

// List returns quotes matching the filter. The tag filter has OR
// semantics: a quote matches when its tag set intersects the requested set.
// The unfiltered list is served from cache when possible.
func (q *Quotes) List(ctx context.Context, filter Filter) ([]models.Quote, error) {
	const op = "quotes.List"

	switch {
	case filter.UserID != nil && len(filter.Tags) > 0:
		return q.provider.QuotesByUserAndTags(ctx, *filter.UserID, filter.Tags)
	case filter.UserID != nil:
		return q.provider.QuotesByUser(ctx, *filter.UserID)
	case len(filter.Tags) > 0:
		return q.provider.QuotesByTags(ctx, filter.Tags)
	}

	if q.cache != nil {
		cached, ok, err := q.cache.GetQuotes(ctx)
		if err != nil {
			q.log.Warn("quote cache read failed", sl.Err(err))
		} else if ok {
			return cached, nil
		}
	}

	quotes, err := q.provider.Quotes(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if q.cache != nil {
		if err := q.cache.SetQuotes(ctx, quotes); err != nil {
			q.log.Warn("quote cache write failed", sl.Err(err))
		}
	}

	return quotes, nil
}

// Create stores a new quote owned by the caller.
func (q *Quotes) Create(
	ctx context.Context,
	callerID uuid.UUID,
	text, author string,
	tags []models.TagType,
) (models.Quote, error) {
	const op = "quotes.Create"

	log := q.log.With(slog.String("op", op))

	quote := models.Quote{
		ID:     uuid.New(),
		Text:   text,
		Author: author,
		UserID: callerID,
		Tags:   tags,
	}

	created, err := q.mutator.SaveQuote(ctx, quote)
	if err != nil {
		log.Error("failed to save quote", sl.Err(err))
		return models.Quote{}, fmt.Errorf("%s: %w", op, err)
	}

	q.invalidateCache(ctx)

	log.Info("quote created", slog.String("id", created.ID.String()))

	return created, nil
}

// Update replaces text, author and the entire tag set. Owner or admin only.
func (q *Quotes) Update(
	ctx context.Context,
	callerID, quoteID uuid.UUID,
	text, author string,
	tags []models.TagType,
) error {
	const op = "quotes.Update"

	log := q.log.With(slog.String("op", op))

	quote, err := q.provider.Quote(ctx, quoteID)
	if err != nil {
		if errors.Is(err, storage.ErrQuoteNotFound) {
			return ErrQuoteNotFound
		}

		log.Error("failed to load quote", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := q.authorize(ctx, callerID, quote.UserID); err != nil {
		return err
	}

	quote.Text = text
	quote.Author = author
	quote.Tags = tags

	if err := q.mutator.UpdateQuote(ctx, quote); err != nil {
		if errors.Is(err, storage.ErrQuoteNotFound) {
			return ErrQuoteNotFound
		}

		log.Error("failed to update quote", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	q.invalidateCache(ctx)

	log.Info("quote updated", slog.String("id", quoteID.String()))

	return nil
}

// Delete removes a quote and, by cascade, its tags. Owner or admin only.
func (q *Quotes) Delete(ctx context.Context, callerID, quoteID uuid.UUID) error {
	const op = "quotes.Delete"

	log := q.log.With(slog.String("op", op))

	quote, err := q.provider.Quote(ctx, quoteID)
	if err != nil {
		if errors.Is(err, storage.ErrQuoteNotFound) {
			return ErrQuoteNotFound
		}

		log.Error("failed to load quote", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := q.authorize(ctx, callerID, quote.UserID); err != nil {
		return err
	}

	if err := q.mutator.DeleteQuote(ctx, quoteID); err != nil {
		if errors.Is(err, storage.ErrQuoteNotFound) {
			return ErrQuoteNotFound
		}

		log.Error("failed to delete quote", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	q.invalidateCache(ctx)

	log.Info("quote deleted", slog.String("id", quoteID.String()))

	return nil
}

func (q *Quotes) authorize(ctx context.Context, callerID, ownerID uuid.UUID) error {
	if callerID == ownerID {
		return nil
	}

	isAdmin, err := q.roleChecker.IsInRole(ctx, callerID, models.RoleAdmin)
	if err != nil {
		q.log.Error("failed to check role membership", sl.Err(err))
		return fmt.Errorf("quotes.authorize: %w", err)
	}

	if !isAdmin {
		return ErrPermissionDenied
	}

	return nil
}

func (q *Quotes) invalidateCache(ctx context.Context) {
	if q.cache == nil {
		return
	}

	if err := q.cache.Invalidate(ctx); err != nil {
		q.log.Warn("quote cache invalidation failed", sl.Err(err))
	}
}
