package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"voteflow-backend/internal/handlers"
	"voteflow-backend/internal/middleware"
	"voteflow-backend/internal/models"
)

// Login and signup share one limiter: 5 attempts, one more every 12s.
const (
	authRateEvery = 12 * time.Second
	authRateBurst = 5
)

func NewRouter(
	sessionHandler *handlers.SessionHandler,
	securityHandler *handlers.SecurityHandler,
	upstreamHandler *handlers.UpstreamHandler,
	memberHandler *handlers.MemberHandler,
	importHandler *handlers.ImportHandler,
	billingHandler *handlers.BillingHandler,
	healthHandler *handlers.HealthHandler,
	authMiddleware *middleware.AuthMiddleware,
	trustedProxies []string,
) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.MetricsMiddleware)

	adminOnly := authMiddleware.RequireRole(models.RoleAdmin)
	limiter := middleware.NewRateLimiter(authRateEvery, authRateBurst, trustedProxies...)

	// Public API routes - Session
	public := r.PathPrefix("/api/session").Subrouter()
	public.Handle("/login", limiter.Handler(http.HandlerFunc(sessionHandler.Login))).Methods("POST")
	public.Handle("/signup", limiter.Handler(http.HandlerFunc(sessionHandler.Signup))).Methods("POST")
	public.Handle("/2fa", limiter.Handler(http.HandlerFunc(sessionHandler.VerifyTwoFactor))).Methods("POST")
	public.HandleFunc("/forgot-password", sessionHandler.ForgotPassword).Methods("POST")
	public.HandleFunc("/reset-password", sessionHandler.ResetPassword).Methods("POST")
	public.HandleFunc("/reset-password/validate/{token}", sessionHandler.ValidateResetToken).Methods("GET")

	// Preferences work before login via the session header
	prefs := r.PathPrefix("/api/session/preferences").Subrouter()
	prefs.Use(authMiddleware.Identify)
	prefs.HandleFunc("", sessionHandler.Preferences).Methods("GET")
	prefs.HandleFunc("", sessionHandler.SetPreferences).Methods("PUT")
	prefs.HandleFunc("", sessionHandler.ResetPreferences).Methods("DELETE")

	// Protected API routes - Session
	sessionAPI := r.PathPrefix("/api/session").Subrouter()
	sessionAPI.Use(authMiddleware.Authenticate)
	sessionAPI.HandleFunc("", sessionHandler.Current).Methods("GET")
	sessionAPI.HandleFunc("/logout", sessionHandler.Logout).Methods("POST")
	sessionAPI.HandleFunc("/profile", sessionHandler.UpdateProfile).Methods("PUT")

	// Protected API routes - Two-factor
	securityAPI := r.PathPrefix("/api/security/2fa").Subrouter()
	securityAPI.Use(authMiddleware.Authenticate)
	securityAPI.HandleFunc("", securityHandler.Status).Methods("GET")
	securityAPI.HandleFunc("/setup", securityHandler.Setup).Methods("POST")
	securityAPI.HandleFunc("/enable", securityHandler.Enable).Methods("POST")
	securityAPI.HandleFunc("/verify", securityHandler.Verify).Methods("POST")
	securityAPI.HandleFunc("/disable", securityHandler.Disable).Methods("POST")
	securityAPI.HandleFunc("/backup-codes", securityHandler.RegenerateBackupCodes).Methods("POST")
	securityAPI.HandleFunc("/backup-codes/download", securityHandler.DownloadBackupCodes).Methods("POST")

	// Protected API routes - Elections (writes are admin only)
	electionsAPI := r.PathPrefix("/api/elections").Subrouter()
	electionsAPI.Use(authMiddleware.Authenticate)
	electionsAPI.HandleFunc("", upstreamHandler.ListElections).Methods("GET")
	electionsAPI.HandleFunc("/{id}", upstreamHandler.GetElection).Methods("GET")
	electionsAPI.Handle("", adminOnly(http.HandlerFunc(upstreamHandler.CreateElection))).Methods("POST")
	electionsAPI.Handle("/{id}", adminOnly(http.HandlerFunc(upstreamHandler.UpdateElection))).Methods("PUT")
	electionsAPI.Handle("/{id}", adminOnly(http.HandlerFunc(upstreamHandler.DeleteElection))).Methods("DELETE")
	electionsAPI.Handle("/{id}/{action:pause|resume|close}", adminOnly(http.HandlerFunc(upstreamHandler.TransitionElection))).Methods("POST")

	// Protected API routes - Candidates
	candidatesAPI := r.PathPrefix("/api/candidates").Subrouter()
	candidatesAPI.Use(authMiddleware.Authenticate)
	candidatesAPI.HandleFunc("", upstreamHandler.ListCandidates).Methods("GET")
	candidatesAPI.Handle("", adminOnly(http.HandlerFunc(upstreamHandler.CreateCandidate))).Methods("POST")
	candidatesAPI.Handle("/{id}", adminOnly(http.HandlerFunc(upstreamHandler.UpdateCandidate))).Methods("PUT")
	candidatesAPI.Handle("/{id}", adminOnly(http.HandlerFunc(upstreamHandler.DeleteCandidate))).Methods("DELETE")

	// Protected API routes - Voting, analytics, notifications, organization
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authMiddleware.Authenticate)
	api.HandleFunc("/votes", upstreamHandler.CastVote).Methods("POST")
	api.HandleFunc("/votes/status/{electionId}", upstreamHandler.VoteStatus).Methods("GET")
	api.HandleFunc("/analytics/{electionId}", upstreamHandler.Analytics).Methods("GET")
	api.HandleFunc("/notifications", upstreamHandler.Notifications).Methods("GET")
	api.HandleFunc("/notifications/{id}/read", upstreamHandler.MarkNotificationRead).Methods("PUT")
	api.Handle("/users", adminOnly(http.HandlerFunc(upstreamHandler.ListUsers))).Methods("GET")
	api.HandleFunc("/users/profile", upstreamHandler.Profile).Methods("GET")
	api.HandleFunc("/users/activities", upstreamHandler.Activities).Methods("GET")
	api.HandleFunc("/organization", upstreamHandler.Organization).Methods("GET")
	api.Handle("/organization", adminOnly(http.HandlerFunc(upstreamHandler.UpdateOrganization))).Methods("PUT")
	api.Handle("/organization/logo", adminOnly(http.HandlerFunc(upstreamHandler.RemoveOrganizationLogo))).Methods("DELETE")

	// Admin API routes - Member directory
	membersAPI := r.PathPrefix("/api/members").Subrouter()
	membersAPI.Use(authMiddleware.Authenticate)
	membersAPI.Use(adminOnly)
	membersAPI.HandleFunc("", memberHandler.List).Methods("GET")
	membersAPI.HandleFunc("", memberHandler.Add).Methods("POST")
	membersAPI.HandleFunc("/busy", memberHandler.Busy).Methods("GET")
	membersAPI.HandleFunc("/badges", memberHandler.Badges).Methods("GET")
	membersAPI.HandleFunc("/{id}", memberHandler.Update).Methods("PUT")
	membersAPI.HandleFunc("/{id}", memberHandler.Delete).Methods("DELETE")
	membersAPI.HandleFunc("/{id}/toggle-status", memberHandler.ToggleStatus).Methods("POST")

	// Admin API routes - Bulk import
	importAPI := r.PathPrefix("/api/import").Subrouter()
	importAPI.Use(authMiddleware.Authenticate)
	importAPI.Use(adminOnly)
	importAPI.HandleFunc("/template", importHandler.Template).Methods("GET")
	importAPI.HandleFunc("/archives", importHandler.Archives).Methods("GET")
	importAPI.HandleFunc("/sessions", importHandler.Start).Methods("POST")
	importAPI.HandleFunc("/sessions/{id}", importHandler.Get).Methods("GET")
	importAPI.HandleFunc("/sessions/{id}", importHandler.Close).Methods("DELETE")
	importAPI.HandleFunc("/sessions/{id}/upload", importHandler.Upload).Methods("POST")
	importAPI.HandleFunc("/sessions/{id}/preview", importHandler.Preview).Methods("GET")
	importAPI.HandleFunc("/sessions/{id}/confirm", importHandler.Confirm).Methods("POST")
	importAPI.HandleFunc("/sessions/{id}/reset", importHandler.Reset).Methods("POST")
	importAPI.HandleFunc("/sessions/{id}/report", importHandler.Report).Methods("GET")

	// Paystack webhook (signature checked in the handler)
	r.HandleFunc("/api/billing/webhook", billingHandler.Webhook).Methods("POST")
	r.HandleFunc("/api/billing/config", billingHandler.Config).Methods("GET")

	// Protected API routes - Billing
	billingAPI := r.PathPrefix("/api/billing").Subrouter()
	billingAPI.Use(authMiddleware.Authenticate)
	billingAPI.HandleFunc("/cards", billingHandler.ListCards).Methods("GET")
	billingAPI.HandleFunc("/cards", billingHandler.AddCard).Methods("POST")
	billingAPI.HandleFunc("/cards/{id}", billingHandler.RemoveCard).Methods("DELETE")
	billingAPI.HandleFunc("/cards/{id}/default", billingHandler.SetDefaultCard).Methods("POST")
	billingAPI.HandleFunc("/history", billingHandler.History).Methods("GET")
	billingAPI.HandleFunc("/payments", billingHandler.BeginPayment).Methods("POST")
	billingAPI.HandleFunc("/payments/{reference}", billingHandler.AwaitPayment).Methods("GET")
	billingAPI.HandleFunc("/payments/{reference}/callback", billingHandler.PaymentCallback).Methods("POST")
	billingAPI.HandleFunc("/payments/{reference}/close", billingHandler.ClosePayment).Methods("POST")
	billingAPI.HandleFunc("/payments/{reference}/verify", billingHandler.VerifyPayment).Methods("GET")
	billingAPI.HandleFunc("/subscriptions", billingHandler.CreateSubscription).Methods("POST")
	billingAPI.HandleFunc("/subscriptions/cancel", billingHandler.CancelSubscription).Methods("POST")

	// Admin API routes - Status dashboard
	statusAPI := r.PathPrefix("/api/status").Subrouter()
	statusAPI.Use(authMiddleware.Authenticate)
	statusAPI.Use(adminOnly)
	statusAPI.HandleFunc("", healthHandler.Status).Methods("GET")

	// Admin status stream. Browsers pass the token as ?access_token= since
	// they cannot set headers on an upgrade; the hub also checks the origin.
	wsAPI := r.PathPrefix("/ws").Subrouter()
	wsAPI.Use(authMiddleware.Authenticate)
	wsAPI.Use(adminOnly)
	wsAPI.HandleFunc("/status", healthHandler.StatusStream).Methods("GET")

	// Health endpoints (no auth required - for Kubernetes probes)
	r.HandleFunc("/health", healthHandler.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", healthHandler.ReadinessHealth).Methods("GET")

	// Metrics endpoint (Prometheus format)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
