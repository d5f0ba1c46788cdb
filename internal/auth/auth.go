// Package auth issues and validates the tokens that bind out-of-band uploads
// to a live chat session.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type ContextKey string

const SessionKey ContextKey = "session"

const issuer = "chatroom"

// UploadClaims identify the connection a token was issued to. ID carries the
// session's token id so a token cannot outlive the session that minted it.
type UploadClaims struct {
	jwt.RegisteredClaims
}

// MakeUploadToken signs a token for the session on connID.
func MakeUploadToken(connID uuid.UUID, tokenID, tokenSecret string, expiresIn time.Duration) (string, error) {
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, UploadClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   connID.String(),
			ID:        tokenID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		},
	})

	signed, err := token.SignedString([]byte(tokenSecret))
	if err != nil {
		return "", fmt.Errorf("internal/auth: failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateUploadToken checks signature and expiry and returns the connection
// id and token id carried by the token.
func ValidateUploadToken(tokenString, tokenSecret string) (uuid.UUID, string, error) {
	claims := &UploadClaims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (any, error) { return []byte(tokenSecret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(issuer),
	)
	if err != nil {
		return uuid.UUID{}, "", fmt.Errorf("internal/auth: failed to parse token: %w", err)
	}

	if !token.Valid {
		return uuid.UUID{}, "", errors.New("internal/auth: token is invalid")
	}

	if claims.Subject == "" || claims.ID == "" {
		return uuid.UUID{}, "", errors.New("internal/auth: subject or id claim is missing")
	}

	connID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.UUID{}, "", fmt.Errorf("internal/auth: malformed subject: %w", err)
	}
	return connID, claims.ID, nil
}

// GetFromContext returns the value stored under SessionKey as T.
func GetFromContext[T any](ctx context.Context) (T, error) {
	v, ok := ctx.Value(SessionKey).(T)
	if !ok {
		var zero T
		return zero, errors.New("internal/auth: no session in context")
	}
	return v, nil
}
