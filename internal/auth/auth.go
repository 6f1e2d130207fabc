// Package auth mints and verifies the short-lived bearer tokens that gate
// the Remote-ID ingest endpoint. The symmetric-secret design is a
// placeholder for PKI-issued reporter certificates; the middleware boundary
// and claim shape are meant to outlive it.
package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	// TokenLifetime bounds how long a minted token verifies.
	TokenLifetime = 360 * time.Second

	secretLength  = 42
	secretCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// ErrEmptyIdentifier is returned when a login carries no identifier.
var ErrEmptyIdentifier = errors.New("auth: identifier cannot be empty")

type contextKey struct{}

// Claims binds a submitter identifier to an issue/expiry window.
type Claims struct {
	jwt.RegisteredClaims
}

// Service holds the process-lifetime signing secret.
type Service struct {
	secret []byte
	logger *zap.Logger
}

// NewService mints a fresh signing secret. Tokens do not survive a restart.
func NewService(logger *zap.Logger) (*Service, error) {
	secret := make([]byte, secretLength)
	max := big.NewInt(int64(len(secretCharset)))
	for i := range secret {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return nil, fmt.Errorf("auth: generate secret: %w", err)
		}
		secret[i] = secretCharset[n.Int64()]
	}
	return &Service{secret: secret, logger: logger}, nil
}

// Mint signs a token for the identifier, expiring after TokenLifetime.
func (s *Service) Mint(identifier string) (string, error) {
	if identifier == "" {
		return "", ErrEmptyIdentifier
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identifier,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenLifetime)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return token, nil
}

// Verify parses and validates a token, returning the subject identifier.
func (s *Service) Verify(tokenString string) (string, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("auth: unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("auth: verify token: %w", err)
	}
	return claims.Subject, nil
}

// Middleware rejects requests without a valid token and attaches the
// subject to the request context. The token is read from the "token" cookie
// when present, else from the Authorization bearer header.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := ""
		if cookie, err := r.Cookie("token"); err == nil {
			tokenString = cookie.Value
		} else if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
			tokenString = strings.TrimPrefix(header, "Bearer ")
		}
		if tokenString == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		subject, err := s.Verify(tokenString)
		if err != nil {
			s.logger.Info("rejected bearer token", zap.Error(err))
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), contextKey{}, subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Subject returns the authenticated identifier attached by Middleware.
func Subject(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(contextKey{}).(string)
	return subject, ok
}
