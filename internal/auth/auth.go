package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	jwtlib "quotes_service/internal/lib/jwt"
	sl "quotes_service/internal/lib/logger"
	"quotes_service/internal/models"
	"quotes_service/internal/storage"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserExists         = errors.New("user already exists")
	// ErrMalformedRefreshToken covers everything that renders a 401 on
	// renewal: undecodable token, missing email/exp claim, unknown user.
	ErrMalformedRefreshToken = errors.New("malformed refresh token")
	// ErrInvalidRefreshToken covers the 400 cases: stored-value mismatch
	// or embedded expiry in the past.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

type Auth struct {
	log          *slog.Logger
	usrSaver     UserSaver
	usrProvider  UserProvider
	roleProvider RoleProvider
	eventPub     EventPublisher
	tokenSecret  string
	issuer       string
	accessTTL    time.Duration
	refreshTTL   time.Duration
}

type UserSaver interface {
	SaveUser(ctx context.Context, email string, passHash []byte) (models.User, error)
	UpdateRefreshToken(ctx context.Context, userID uuid.UUID, token string) error
}

type UserProvider interface {
	UserByEmail(ctx context.Context, email string) (models.User, error)
	UserByID(ctx context.Context, id uuid.UUID) (models.User, error)
}

type RoleProvider interface {
	UserRoles(ctx context.Context, userID uuid.UUID) ([]string, error)
	AddToRole(ctx context.Context, userID uuid.UUID, role string) error
}

type EventPublisher interface {
	SendMessage(ctx context.Context, msg models.Message) error
}

func New(
	log *slog.Logger,
	userSaver UserSaver,
	userProvider UserProvider,
	roleProvider RoleProvider,
	eventPub EventPublisher,
	tokenSecret, issuer string,
	accessTTL, refreshTTL time.Duration,
) *Auth {
	return &Auth{
		log:          log,
		usrSaver:     userSaver,
		usrProvider:  userProvider,
		roleProvider: roleProvider,
		eventPub:     eventPub,
		tokenSecret:  tokenSecret,
		issuer:       issuer,
		accessTTL:    accessTTL,
		refreshTTL:   refreshTTL,
	}
}

// Register creates a user with a bcrypt-hashed password and issues both
// tokens. The refresh token is persisted on the user before returning.
func (a *Auth) Register(ctx context.Context, email, password string) (models.TokenPair, error) {
	const op = "auth.Register"

	log := a.log.With(slog.String("op", op))

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	user, err := a.usrSaver.SaveUser(ctx, email, passHash)
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			log.Warn("user already exists")
			return models.TokenPair{}, ErrUserExists
		}

		log.Error("failed to save user", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	pair, err := a.issueTokens(ctx, user)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	a.publishRegistered(ctx, user)

	log.Info("user registered", slog.String("uid", user.ID.String()))

	return pair, nil
}

// Login verifies credentials and issues a fresh token pair. The newly
// persisted refresh token overwrites the previous one, so at most one
// refresh token per user is ever live.
func (a *Auth) Login(ctx context.Context, email, password string) (models.TokenPair, error) {
	const op = "auth.Login"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found")
			return models.TokenPair{}, ErrInvalidCredentials
		}

		log.Error("failed to get user", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
		log.Info("invalid credentials", sl.Err(err))
		return models.TokenPair{}, ErrInvalidCredentials
	}

	pair, err := a.issueTokens(ctx, user)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user logged in", slog.String("uid", user.ID.String()))

	return pair, nil
}

// RenewAccessToken exchanges a refresh token for a new access token. The
// refresh token is not rotated.
//
// The token's claims are decoded without signature verification: refresh
// tokens are signed with a throwaway key, so validity rests on exact
// equality with the stored value plus the embedded expiry claim.
func (a *Auth) RenewAccessToken(ctx context.Context, rawToken string) (string, error) {
	const op = "auth.RenewAccessToken"

	log := a.log.With(slog.String("op", op))

	claims, err := jwtlib.DecodeClaims(rawToken)
	if err != nil {
		log.Warn("failed to decode refresh token", sl.Err(err))
		return "", ErrMalformedRefreshToken
	}

	if claims.Email == "" || claims.ExpiresAt == nil {
		log.Warn("refresh token missing email or exp claim")
		return "", ErrMalformedRefreshToken
	}

	user, err := a.usrProvider.UserByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user from refresh token not found")
			return "", ErrMalformedRefreshToken
		}

		log.Error("failed to get user", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if user.RefreshToken == nil || *user.RefreshToken != rawToken {
		log.Warn("refresh token does not match stored value")
		return "", ErrInvalidRefreshToken
	}

	if time.Now().After(claims.ExpiresAt.Time) {
		log.Warn("refresh token expired")
		return "", ErrInvalidRefreshToken
	}

	accessToken, err := a.newAccessToken(ctx, user)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	log.Info("access token renewed", slog.String("uid", user.ID.String()))

	return accessToken, nil
}

// GrantAdmin attaches the admin role to the user. Role bootstrap endpoint;
// membership takes effect on the next issued access token, and mutating
// quote operations re-check membership immediately.
func (a *Auth) GrantAdmin(ctx context.Context, userID uuid.UUID) error {
	const op = "auth.GrantAdmin"

	log := a.log.With(slog.String("op", op))

	if err := a.roleProvider.AddToRole(ctx, userID, models.RoleAdmin); err != nil {
		log.Error("failed to add role", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("admin role granted", slog.String("uid", userID.String()))

	return nil
}

func (a *Auth) issueTokens(ctx context.Context, user models.User) (models.TokenPair, error) {
	accessToken, err := a.newAccessToken(ctx, user)
	if err != nil {
		return models.TokenPair{}, err
	}

	refreshToken, err := jwtlib.NewRefreshToken(user, a.issuer, a.refreshTTL)
	if err != nil {
		a.log.Error("failed to generate refresh token", sl.Err(err))
		return models.TokenPair{}, err
	}

	if err := a.usrSaver.UpdateRefreshToken(ctx, user.ID, refreshToken); err != nil {
		a.log.Error("failed to save refresh token", sl.Err(err))
		return models.TokenPair{}, err
	}

	return models.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (a *Auth) newAccessToken(ctx context.Context, user models.User) (string, error) {
	roles, err := a.roleProvider.UserRoles(ctx, user.ID)
	if err != nil {
		a.log.Error("failed to get user roles", sl.Err(err))
		return "", err
	}

	isAdmin := slices.Contains(roles, models.RoleAdmin)

	accessToken, err := jwtlib.NewAccessToken(user, isAdmin, roles, a.tokenSecret, a.issuer, a.accessTTL)
	if err != nil {
		a.log.Error("failed to generate access token", sl.Err(err))
		return "", err
	}

	return accessToken, nil
}

// publishRegistered notifies the mailer queue. Best effort: registration
// already succeeded and tokens are issued, so a broker failure is only logged.
func (a *Auth) publishRegistered(ctx context.Context, user models.User) {
	if a.eventPub == nil {
		return
	}

	msg := models.Message{
		Email:   user.Email,
		UserID:  user.ID,
		Purpose: "user_registered",
	}

	if err := a.eventPub.SendMessage(ctx, msg); err != nil {
		a.log.Error("failed to publish registration event", sl.Err(err))
	}
}
