package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"demarc/pkg/requestcontext"
)

// Claims carried by admin tokens. Subject identifies the acting operator and
// flows into audit snapshots and lifecycle transitions as the approver.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// TokenValidator validates a bearer token and returns its claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// HMACValidator validates HS256-signed tokens with a shared key.
type HMACValidator struct {
	key []byte
}

func NewHMACValidator(key string) *HMACValidator {
	return &HMACValidator{key: []byte(key)}
}

func (v *HMACValidator) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.key, nil
	})
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// RequireAdmin guards lifecycle transition endpoints. On success the token
// subject becomes the actor in the request context.
func RequireAdmin(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.Warn("admin token rejected",
					slog.String("request_id", requestcontext.RequestID(r.Context())),
					slog.String("error", err.Error()))
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			if claims.Role != "admin" {
				http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
				return
			}

			ctx := requestcontext.WithActor(r.Context(), claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
