package authn

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	resp "quotes_service/internal/lib/api/response"
	jwtlib "quotes_service/internal/lib/jwt"
	sl "quotes_service/internal/lib/logger"

	"github.com/go-chi/render"
	"github.com/google/uuid"
)

type ctxKey struct{}

// Caller is the authenticated identity extracted from a verified access
// token.
type Caller struct {
	ID      uuid.UUID
	Email   string
	IsAdmin bool
	Roles   []string
}

// New returns middleware that requires a valid bearer access token and
// places the caller identity into the request context.
func New(log *slog.Logger, tokenSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				unauthorized(w, r)
				return
			}

			claims, err := jwtlib.VerifyAccessToken(token, tokenSecret)
			if err != nil {
				log.Warn("invalid access token", sl.Err(err))
				unauthorized(w, r)
				return
			}

			callerID, err := uuid.Parse(claims.Subject)
			if err != nil {
				log.Warn("invalid subject claim", sl.Err(err))
				unauthorized(w, r)
				return
			}

			caller := Caller{
				ID:      callerID,
				Email:   claims.Email,
				IsAdmin: claims.IsAdmin,
				Roles:   claims.Roles,
			}

			ctx := context.WithValue(r.Context(), ctxKey{}, caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithCaller places a caller identity into the context, bypassing token
// verification. Intended for tests.
func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, ctxKey{}, caller)
}

// FromContext returns the caller placed by the middleware.
func FromContext(ctx context.Context) (Caller, bool) {
	caller, ok := ctx.Value(ctxKey{}).(Caller)
	return caller, ok
}

// BearerToken extracts the token from the Authorization header. Returns ""
// when the header is absent or carries no token.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")

	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

	return token
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, resp.Error("unauthorized"))
}
