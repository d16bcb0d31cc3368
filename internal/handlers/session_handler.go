package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"voteflow-backend/internal/apiclient"
	"voteflow-backend/internal/auth"
	"voteflow-backend/internal/logger"
	"voteflow-backend/internal/models"
	"voteflow-backend/internal/security"
	"voteflow-backend/internal/session"
	"voteflow-backend/pkg/utils"
)

// SessionHandler fronts the upstream auth endpoints and keeps the
// resulting token server side.
type SessionHandler struct {
	API      *apiclient.Client
	Sessions *session.Manager
	JWT      *auth.JWTManager
	TwoFA    *security.Service
}

func NewSessionHandler(api *apiclient.Client, sessions *session.Manager, jwt *auth.JWTManager, twoFA *security.Service) *SessionHandler {
	return &SessionHandler{API: api, Sessions: sessions, JWT: jwt, TwoFA: twoFA}
}

type loginResponse struct {
	Token       string       `json:"token,omitempty"`
	User        *models.User `json:"user,omitempty"`
	Requires2FA bool         `json:"requires2FA,omitempty"`
	TempToken   string       `json:"tempToken,omitempty"`
}

func (h *SessionHandler) establish(w http.ResponseWriter, r *http.Request, res *models.AuthResponse, status int, msg string) {
	if res == nil || res.Token == "" || res.User == nil {
		utils.Error(w, http.StatusBadGateway, "Login failed")
		return
	}
	sid := uuid.NewString()
	if err := h.Sessions.Login(r.Context(), sid, res); err != nil {
		logger.For("session").WithError(err).Error("[Session] Failed to store session")
		utils.Error(w, http.StatusInternalServerError, "Failed to start session")
		return
	}

	if h.TwoFA != nil && h.TwoFA.Enabled(r.Context(), res.User.ID) {
		temp, err := h.JWT.GenerateTempToken(sid, res.User)
		if err != nil {
			utils.Error(w, http.StatusInternalServerError, "Failed to start session")
			return
		}
		utils.Success(w, http.StatusOK, "Two-factor code required", loginResponse{Requires2FA: true, TempToken: temp})
		return
	}

	tok, err := h.JWT.GenerateToken(sid, res.User)
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, "Failed to start session")
		return
	}
	utils.Success(w, status, msg, loginResponse{Token: tok, User: res.User})
}

// Login
// POST /api/session/login
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.API.Login(r.Context(), req)
	if err != nil {
		upstreamError(w, err)
		return
	}
	h.establish(w, r, res, http.StatusOK, "Login successful")
}

// Signup
// POST /api/session/signup
func (h *SessionHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.API.Signup(r.Context(), req)
	if err != nil {
		upstreamError(w, err)
		return
	}
	h.establish(w, r, res, http.StatusCreated, "Account created successfully")
}

// VerifyTwoFactor completes a login that needed a second factor.
// POST /api/session/2fa
func (h *SessionHandler) VerifyTwoFactor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TempToken string `json:"tempToken"`
		Code      string `json:"code"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	claims, err := h.JWT.ValidateTempToken(req.TempToken)
	if err != nil {
		utils.Error(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}
	if err := h.TwoFA.Verify(r.Context(), claims.UserID, req.Code); err != nil {
		status := http.StatusUnauthorized
		if errors.Is(err, security.ErrTooManyAttempts) {
			status = http.StatusTooManyRequests
		}
		utils.Error(w, status, err.Error())
		return
	}
	st, err := h.Sessions.Load(r.Context(), claims.SessionID)
	if err != nil || !st.Authenticated {
		utils.Error(w, http.StatusUnauthorized, "Session expired, please log in again")
		return
	}
	tok, err := h.JWT.GenerateToken(claims.SessionID, st.User)
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, "Failed to start session")
		return
	}
	utils.Success(w, http.StatusOK, "Login successful", loginResponse{Token: tok, User: st.User})
}

// Logout tells the API, then clears the session whatever it said.
// POST /api/session/logout
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sid, _ := session.IDFrom(r.Context())
	if err := h.API.Logout(r.Context()); err != nil {
		logger.For("session").WithError(err).Debug("[Session] Upstream logout failed")
	}
	if err := h.Sessions.Logout(r.Context(), sid); err != nil {
		utils.Error(w, http.StatusInternalServerError, "Failed to log out")
		return
	}
	utils.Success(w, http.StatusOK, "Logged out", nil)
}

// Current restores the session on page load.
// GET /api/session
func (h *SessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	sid, _ := session.IDFrom(r.Context())
	st, err := h.Sessions.Load(r.Context(), sid)
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, "Failed to load session")
		return
	}
	if !st.Authenticated {
		utils.Error(w, http.StatusUnauthorized, "Session expired, please log in again")
		return
	}
	utils.Success(w, http.StatusOK, "", st)
}

// UpdateProfile writes through to the API and refreshes the cached user.
// PUT /api/session/profile
func (h *SessionHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.API.UpdateProfile(r.Context(), req)
	if err != nil {
		upstreamError(w, err)
		return
	}
	sid, _ := session.IDFrom(r.Context())
	if err := h.Sessions.UpdateUser(r.Context(), sid, u); err != nil {
		logger.For("session").WithError(err).Warn("[Session] Failed to cache updated user")
	}
	utils.Success(w, http.StatusOK, "Profile updated successfully", u)
}

// ForgotPassword
// POST /api/session/forgot-password
func (h *SessionHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.API.ForgotPassword(r.Context(), req.Email); err != nil {
		upstreamError(w, err)
		return
	}
	utils.Success(w, http.StatusOK, "Password reset link sent to your email", nil)
}

// ResetPassword
// POST /api/session/reset-password
func (h *SessionHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ResetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Password != req.ConfirmPassword {
		utils.Error(w, http.StatusBadRequest, "Passwords do not match")
		return
	}
	if err := h.API.ResetPassword(r.Context(), req); err != nil {
		upstreamError(w, err)
		return
	}
	utils.Success(w, http.StatusOK, "Password reset successfully", nil)
}

// ValidateResetToken
// GET /api/session/reset-password/validate/{token}
func (h *SessionHandler) ValidateResetToken(w http.ResponseWriter, r *http.Request) {
	if err := h.API.ValidateResetToken(r.Context(), mux.Vars(r)["token"]); err != nil {
		upstreamError(w, err)
		return
	}
	utils.Success(w, http.StatusOK, "", nil)
}

// Preferences
// GET /api/session/preferences
func (h *SessionHandler) Preferences(w http.ResponseWriter, r *http.Request) {
	sid, ok := session.IDFrom(r.Context())
	if !ok {
		utils.Success(w, http.StatusOK, "", models.DefaultPreferences())
		return
	}
	p, err := h.Sessions.Preferences(r.Context(), sid)
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, "Failed to load preferences")
		return
	}
	utils.Success(w, http.StatusOK, "", p)
}

// SetPreferences stores the non-empty fields of the body.
// PUT /api/session/preferences
func (h *SessionHandler) SetPreferences(w http.ResponseWriter, r *http.Request) {
	sid, ok := session.IDFrom(r.Context())
	if !ok {
		utils.Error(w, http.StatusBadRequest, "Session id required")
		return
	}
	var p models.Preferences
	if !decodeJSON(w, r, &p) {
		return
	}
	out, err := h.Sessions.SetPreferences(r.Context(), sid, p)
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, "Failed to save preferences")
		return
	}
	utils.Success(w, http.StatusOK, "Preferences saved", out)
}

// ResetPreferences
// DELETE /api/session/preferences
func (h *SessionHandler) ResetPreferences(w http.ResponseWriter, r *http.Request) {
	sid, ok := session.IDFrom(r.Context())
	if !ok {
		utils.Error(w, http.StatusBadRequest, "Session id required")
		return
	}
	if err := h.Sessions.ResetPreferences(r.Context(), sid); err != nil {
		utils.Error(w, http.StatusInternalServerError, "Failed to reset preferences")
		return
	}
	utils.Success(w, http.StatusOK, "Preferences reset", models.DefaultPreferences())
}
