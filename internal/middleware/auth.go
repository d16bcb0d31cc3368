package middleware

import (
	"context"
	"net/http"
	"strings"

	"voteflow-backend/internal/auth"
	"voteflow-backend/internal/logger"
	"voteflow-backend/internal/models"
	"voteflow-backend/internal/session"
	"voteflow-backend/pkg/utils"
)

type contextKey string

const claimsKey contextKey = "claims"

// SessionHeader carries an anonymous session id for preference storage
// before login.
const SessionHeader = "X-Session-ID"

// TokenQueryParam carries the session token on websocket upgrades, where
// browsers cannot set an Authorization header.
const TokenQueryParam = "access_token"

type AuthMiddleware struct {
	jwtManager *auth.JWTManager
	sessions   *session.Manager
}

func NewAuthMiddleware(jwtManager *auth.JWTManager, sessions *session.Manager) *AuthMiddleware {
	return &AuthMiddleware{jwtManager: jwtManager, sessions: sessions}
}

func isWebSocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if isWebSocketUpgrade(r) {
			if tok := r.URL.Query().Get(TokenQueryParam); tok != "" {
				return tok, true
			}
		}
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

// Authenticate requires a valid session token whose session is still
// logged in, and puts its claims and session id on the request context.
// Logout and an upstream 401 both end the session, so a token that
// outlives its session is rejected here.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			if r.Header.Get("Authorization") == "" {
				utils.Error(w, http.StatusUnauthorized, "Authorization header required")
			} else {
				utils.Error(w, http.StatusUnauthorized, "Invalid authorization format")
			}
			return
		}
		claims, err := m.jwtManager.ValidateToken(token)
		if err != nil {
			utils.Error(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		st, err := m.sessions.Load(r.Context(), claims.SessionID)
		if err != nil {
			logger.For("auth").WithError(err).Error("[Auth] Session lookup failed")
			utils.Error(w, http.StatusInternalServerError, "Failed to load session")
			return
		}
		if !st.Authenticated {
			utils.Error(w, http.StatusUnauthorized, "Session expired, please log in again")
			return
		}
		next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
	})
}

// Identify attaches a session id when one is present, from a valid token
// or the session header, but never rejects the request.
func (m *AuthMiddleware) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if token, ok := bearerToken(r); ok {
			if claims, err := m.jwtManager.ValidateToken(token); err == nil {
				ctx = withClaims(ctx, claims)
			}
		}
		if _, ok := session.IDFrom(ctx); !ok {
			if id := strings.TrimSpace(r.Header.Get(SessionHeader)); id != "" {
				ctx = session.WithID(ctx, id)
			}
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole must run after Authenticate.
func (m *AuthMiddleware) RequireRole(allowed ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFrom(r.Context())
			if !ok {
				utils.Error(w, http.StatusUnauthorized, "Authorization header required")
				return
			}
			for _, role := range allowed {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			utils.Error(w, http.StatusForbidden, "Forbidden: Insufficient permissions")
		})
	}
}

func withClaims(ctx context.Context, claims *auth.Claims) context.Context {
	ctx = context.WithValue(ctx, claimsKey, claims)
	return session.WithID(ctx, claims.SessionID)
}

// ClaimsFrom returns the claims set by Authenticate or Identify.
func ClaimsFrom(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*auth.Claims)
	return c, ok
}

// GetUserIDFromContext extracts the user id from the request context.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	c, ok := ClaimsFrom(ctx)
	if !ok || c.UserID == "" {
		return "", false
	}
	return c.UserID, true
}
