package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voteflow-backend/internal/auth"
	"voteflow-backend/internal/config"
	"voteflow-backend/internal/models"
	"voteflow-backend/internal/session"
)

func jwtManager() *auth.JWTManager {
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.Issuer = "voteflow"
	return auth.NewJWTManager(cfg)
}

func loggedIn(t *testing.T, ids ...string) *session.Manager {
	t.Helper()
	sessions := session.NewManager(session.NewMemoryKV())
	for _, id := range ids {
		require.NoError(t, sessions.Login(context.Background(), id, &models.AuthResponse{Token: "upstream-" + id}))
	}
	return sessions
}

func TestAuthenticate(t *testing.T) {
	jm := jwtManager()
	m := NewAuthMiddleware(jm, loggedIn(t, "sess-9"))
	var gotSession, gotUser string
	h := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSession, _ = session.IDFrom(r.Context())
		gotUser, _ = GetUserIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Token abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid authorization format")

	tok, err := jm.GenerateToken("sess-9", &models.User{ID: "u9", Role: models.RoleVoter})
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sess-9", gotSession)
	assert.Equal(t, "u9", gotUser)
}

func TestIdentifyFallsBackToHeader(t *testing.T) {
	m := NewAuthMiddleware(jwtManager(), loggedIn(t))
	var got string
	h := m.Identify(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = session.IDFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(SessionHeader, "anon-1")
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anon-1", got)
}

func TestAuthenticateRejectsEndedSession(t *testing.T) {
	jm := jwtManager()
	sessions := loggedIn(t, "sess-1")
	m := NewAuthMiddleware(jm, sessions)
	h := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	tok, err := jm.GenerateToken("sess-1", &models.User{ID: "u1", Role: models.RoleAdmin})
	require.NoError(t, err)
	call := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}
	require.Equal(t, http.StatusOK, call().Code)

	require.NoError(t, sessions.Logout(context.Background(), "sess-1"))
	rec := call()
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Session expired")
}

func TestAuthenticateAcceptsQueryTokenOnUpgrade(t *testing.T) {
	jm := jwtManager()
	m := NewAuthMiddleware(jm, loggedIn(t, "sess-ws"))
	h := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	tok, err := jm.GenerateToken("sess-ws", &models.User{ID: "u1", Role: models.RoleAdmin})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/ws/status?"+TokenQueryParam+"="+tok, nil)
	req.Header.Set("Upgrade", "websocket")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// plain requests must use the header
	req = httptest.NewRequest(http.MethodGet, "/api/status?"+TokenQueryParam+"="+tok, nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	jm := jwtManager()
	m := NewAuthMiddleware(jm, loggedIn(t, "s"))
	h := m.Authenticate(m.RequireRole(models.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))

	for role, want := range map[models.Role]int{models.RoleAdmin: http.StatusOK, models.RoleVoter: http.StatusForbidden} {
		tok, err := jm.GenerateToken("s", &models.User{ID: "u", Role: role})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, role)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(time.Hour, 2)
	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{200, 200, http.StatusTooManyRequests}, codes)

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "10.0.0.2:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// a rotating X-Forwarded-For from an untrusted peer shares its bucket
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		req.Header.Set("X-Real-IP", fmt.Sprintf("198.51.100.%d", i))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	}
}

func TestRateLimiterTrustedProxy(t *testing.T) {
	rl := NewRateLimiter(time.Hour, 1, "10.1.0.0/16", "127.0.0.1")
	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	call := func(remote, xff string) int {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = remote
		if xff != "" {
			req.Header.Set("X-Forwarded-For", xff)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	// behind the proxy each forwarded client has its own bucket
	assert.Equal(t, http.StatusOK, call("10.1.2.3:80", "203.0.113.1"))
	assert.Equal(t, http.StatusOK, call("10.1.2.3:80", "203.0.113.2"))
	assert.Equal(t, http.StatusTooManyRequests, call("127.0.0.1:80", "203.0.113.1"))

	// a client cannot prepend hops to escape its bucket
	assert.Equal(t, http.StatusTooManyRequests, call("10.1.2.3:80", "192.0.2.77, 203.0.113.2"))

	// trusted hops are skipped when picking the client
	assert.Equal(t, http.StatusTooManyRequests, call("10.1.2.3:80", "203.0.113.1, 10.1.9.9"))
}

func TestPanicRecovery(t *testing.T) {
	h := PanicRecovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Internal server error"}`, rec.Body.String())
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "1.2.3.4:80"
	assert.Equal(t, "1.2.3.4", getClientIP(req))
	req.Header.Set("X-Forwarded-For", "9.9.9.9, 1.2.3.4")
	assert.Equal(t, "9.9.9.9", getClientIP(req))
}
