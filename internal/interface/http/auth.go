package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/habitpact/habitpact/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// IDENTITY MIDDLEWARE
// Tokens are minted by the external identity provider; this layer only
// verifies the signature and lifts {sub, email} into the request context.
// ══════════════════════════════════════════════════════════════════════════════

const contextKeyIdentity contextKey = "identity"

// Identity is the authenticated caller extracted from the access token.
type Identity struct {
	UserID shared.UserID
	Email  string
}

type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// authMiddleware verifies the bearer token and stores the caller identity in
// the request context.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.config.JWTSecret == "" {
			writeJSONError(w, http.StatusServiceUnavailable, "auth_not_configured", "Authentication is not configured")
			return
		}

		header := r.Header.Get("Authorization")
		if header == "" {
			writeJSONError(w, http.StatusUnauthorized, "missing_token", "Authorization header is required")
			return
		}
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			writeJSONError(w, http.StatusUnauthorized, "invalid_token", "Authorization header must be a bearer token")
			return
		}

		claims := &accessClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(s.config.JWTSecret), nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !token.Valid {
			writeJSONError(w, http.StatusUnauthorized, "invalid_token", "Access token is invalid or expired")
			return
		}

		userID := shared.UserID(claims.Subject)
		if userID.IsEmpty() {
			writeJSONError(w, http.StatusUnauthorized, "invalid_token", "Access token has no subject")
			return
		}

		identity := Identity{UserID: userID, Email: claims.Email}
		ctx := context.WithValue(r.Context(), contextKeyIdentity, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// identityFrom extracts the authenticated identity from context.
func identityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKeyIdentity).(Identity)
	return id, ok
}
