package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type contextKey string

const (
	uidContextKey   contextKey = "uid"
	emailContextKey contextKey = "email"
)

// UIDFromContext returns the authenticated user id set by the JWT middleware.
func UIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(uidContextKey).(string)
	return uid
}

// EmailFromContext returns the email claim of the verified token, if any.
func EmailFromContext(ctx context.Context) string {
	email, _ := ctx.Value(emailContextKey).(string)
	return email
}

// jwtAuthMiddleware verifies the Bearer token (HS256) and stores the subject
// and email claims in the request context.
func jwtAuthMiddleware(secret string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing Authorization header")
				return
			}
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized", "expected Bearer token")
				return
			}

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				logger.Debug("token rejected", zap.Error(err))
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
				return
			}

			sub, _ := claims["sub"].(string)
			if sub == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "token carries no subject")
				return
			}

			ctx := context.WithValue(r.Context(), uidContextKey, sub)
			if email, _ := claims["email"].(string); email != "" {
				ctx = context.WithValue(ctx, emailContextKey, email)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
