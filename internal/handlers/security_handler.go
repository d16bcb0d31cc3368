package handlers

import (
	"errors"
	"net/http"

	"voteflow-backend/internal/logger"
	"voteflow-backend/internal/middleware"
	"voteflow-backend/internal/security"
	"voteflow-backend/pkg/utils"
)

type SecurityHandler struct {
	TwoFA *security.Service
}

func NewSecurityHandler(twoFA *security.Service) *SecurityHandler {
	return &SecurityHandler{TwoFA: twoFA}
}

type codeRequest struct {
	Code string `json:"code"`
}

func securityError(w http.ResponseWriter, err error) {
	var se *security.Error
	if !errors.As(err, &se) {
		logger.For("security").WithError(err).Error("[2FA] Unexpected error")
		utils.Error(w, http.StatusInternalServerError, "Two-factor operation failed")
		return
	}
	switch se {
	case security.ErrTooManyAttempts:
		utils.Error(w, http.StatusTooManyRequests, se.Message)
	case security.ErrInvalidCode:
		utils.Error(w, http.StatusUnauthorized, se.Message)
	default:
		utils.Error(w, http.StatusBadRequest, se.Message)
	}
}

func account(r *http.Request) (userID, email string, ok bool) {
	claims, ok := middleware.ClaimsFrom(r.Context())
	if !ok || claims.UserID == "" {
		return "", "", false
	}
	return claims.UserID, claims.Email, true
}

// Status
// GET /api/security/2fa
func (h *SecurityHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := account(r)
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	st, err := h.TwoFA.Status(r.Context(), userID)
	if err != nil {
		securityError(w, err)
		return
	}
	utils.Success(w, http.StatusOK, "", st)
}

// Setup
// POST /api/security/2fa/setup
func (h *SecurityHandler) Setup(w http.ResponseWriter, r *http.Request) {
	userID, email, ok := account(r)
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	setup, err := h.TwoFA.Setup(r.Context(), userID, email)
	if err != nil {
		securityError(w, err)
		return
	}
	utils.Success(w, http.StatusOK, "Scan the QR code with your authenticator app", setup)
}

// Enable confirms the pending secret and returns the backup codes once.
// POST /api/security/2fa/enable
func (h *SecurityHandler) Enable(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := account(r)
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req codeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	codes, err := h.TwoFA.Enable(r.Context(), userID, req.Code)
	if err != nil {
		securityError(w, err)
		return
	}
	logger.For("security").WithField("user_id", userID).Info("[2FA] Enabled")
	utils.Success(w, http.StatusOK, "Two-factor authentication enabled", map[string]interface{}{"backupCodes": codes})
}

// Verify
// POST /api/security/2fa/verify
func (h *SecurityHandler) Verify(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := account(r)
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req codeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.TwoFA.Verify(r.Context(), userID, req.Code); err != nil {
		securityError(w, err)
		return
	}
	utils.Success(w, http.StatusOK, "Code verified", nil)
}

// Disable
// POST /api/security/2fa/disable
func (h *SecurityHandler) Disable(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := account(r)
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req codeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.TwoFA.Disable(r.Context(), userID, req.Code); err != nil {
		securityError(w, err)
		return
	}
	logger.For("security").WithField("user_id", userID).Info("[2FA] Disabled")
	utils.Success(w, http.StatusOK, "Two-factor authentication disabled", nil)
}

// RegenerateBackupCodes
// POST /api/security/2fa/backup-codes
func (h *SecurityHandler) RegenerateBackupCodes(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := account(r)
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req codeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	codes, err := h.TwoFA.RegenerateBackupCodes(r.Context(), userID, req.Code)
	if err != nil {
		securityError(w, err)
		return
	}
	utils.Success(w, http.StatusOK, "Backup codes regenerated", map[string]interface{}{"backupCodes": codes})
}

// DownloadBackupCodes renders codes the client already holds as a text file.
// POST /api/security/2fa/backup-codes/download
func (h *SecurityHandler) DownloadBackupCodes(w http.ResponseWriter, r *http.Request) {
	_, email, ok := account(r)
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req struct {
		Codes []string `json:"codes"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Codes) == 0 {
		utils.Error(w, http.StatusBadRequest, "No backup codes supplied")
		return
	}
	utils.Attachment(w, "text/plain; charset=utf-8", "voteflow-backup-codes.txt", security.BackupCodesFile(email, req.Codes))
}
