package jwt

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"quotes_service/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformedToken = errors.New("malformed token")
	ErrInvalidToken   = errors.New("invalid token")
)

// Claims carried by both access and refresh tokens. Refresh tokens only
// fill Subject, Email and the registered expiry.
type Claims struct {
	jwt.RegisteredClaims
	Email   string   `json:"email"`
	IsAdmin bool     `json:"is_admin,omitempty"`
	Roles   []string `json:"roles,omitempty"`
}

// NewAccessToken issues a short-lived token signed with the server key.
// The is_admin claim and role list are fixed at issuance time.
func NewAccessToken(
	user models.User,
	isAdmin bool,
	roles []string,
	secret, issuer string,
	ttl time.Duration,
) (string, error) {
	const op = "jwt.NewAccessToken"

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
		Email:   user.Email,
		IsAdmin: isAdmin,
		Roles:   roles,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// NewRefreshToken issues a long-lived token signed with a random key that
// is generated per call and discarded. The signature is never re-verified:
// renewal relies on exact equality with the value stored on the user row
// plus the embedded expiry claim.
func NewRefreshToken(user models.User, issuer string, ttl time.Duration) (string, error) {
	const op = "jwt.NewRefreshToken"

	key := make([]byte, 64)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
		Email: user.Email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// DecodeClaims structurally decodes a token payload without verifying the
// signature. Fails only on malformed input.
func DecodeClaims(tokenStr string) (Claims, error) {
	const op = "jwt.DecodeClaims"

	claims := Claims{}

	parser := jwt.NewParser()

	if _, _, err := parser.ParseUnverified(tokenStr, &claims); err != nil {
		return Claims{}, fmt.Errorf("%s: %w: %w", op, ErrMalformedToken, err)
	}

	return claims, nil
}

// VerifyAccessToken fully validates an access token, including the HMAC
// signature and expiry.
func VerifyAccessToken(tokenStr, secret string) (Claims, error) {
	const op = "jwt.VerifyAccessToken"

	claims := Claims{}

	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%s: unexpected signing method", op)
		}
		return []byte(secret), nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("%s: %w: %w", op, ErrInvalidToken, err)
	}

	if !token.Valid {
		return Claims{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return claims, nil
}
