package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"voteflow-backend/internal/directory"
	"voteflow-backend/internal/logger"
	"voteflow-backend/internal/models"
	"voteflow-backend/pkg/utils"
)

type MemberHandler struct {
	Service *directory.Service
}

func NewMemberHandler(svc *directory.Service) *MemberHandler {
	return &MemberHandler{Service: svc}
}

func memberError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, directory.ErrMemberNotFound):
		utils.Error(w, http.StatusNotFound, "Member not found")
	case errors.Is(err, directory.ErrInvalidMember):
		utils.Error(w, http.StatusBadRequest, "Please fill in all required fields")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		utils.Error(w, http.StatusRequestTimeout, fallback)
	default:
		logger.For("members").WithError(err).Error("[Members] " + fallback)
		utils.Error(w, http.StatusInternalServerError, fallback)
	}
}

// List filters by ?q= and returns ?page= of the result.
// GET /api/members
func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	v := directory.NewView().WithQuery(r.URL.Query().Get("q")).WithPage(queryInt(r, "page", 1))
	page, err := h.Service.List(r.Context(), v)
	if err != nil {
		memberError(w, err, "Failed to load members")
		return
	}
	utils.Success(w, http.StatusOK, "", page)
}

// Add creates a member.
// POST /api/members
func (h *MemberHandler) Add(w http.ResponseWriter, r *http.Request) {
	var in models.MemberInput
	if !decodeJSON(w, r, &in) {
		return
	}
	m, err := h.Service.Add(r.Context(), in)
	if err != nil {
		memberError(w, err, "Failed to add member")
		return
	}
	utils.Success(w, http.StatusCreated, "Member added successfully", m)
}

// Update edits a member.
// PUT /api/members/{id}
func (h *MemberHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in models.MemberInput
	if !decodeJSON(w, r, &in) {
		return
	}
	m, err := h.Service.Update(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		memberError(w, err, "Failed to update member")
		return
	}
	utils.Success(w, http.StatusOK, "Member updated successfully", m)
}

// Delete removes a member.
// DELETE /api/members/{id}
func (h *MemberHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		memberError(w, err, "Failed to delete member")
		return
	}
	utils.Success(w, http.StatusOK, "Member deleted successfully", nil)
}

// ToggleStatus flips active/inactive.
// POST /api/members/{id}/toggle-status
func (h *MemberHandler) ToggleStatus(w http.ResponseWriter, r *http.Request) {
	m, err := h.Service.ToggleStatus(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		memberError(w, err, "Failed to update member status")
		return
	}
	msg := "Member activated"
	if m.Status == models.StatusInactive {
		msg = "Member deactivated"
	}
	utils.Success(w, http.StatusOK, msg, m)
}

// Busy lists in-flight mutations so the SPA can show per-row spinners.
// GET /api/members/busy
func (h *MemberHandler) Busy(w http.ResponseWriter, r *http.Request) {
	utils.Success(w, http.StatusOK, "", h.Service.Busy())
}

// Badges returns the label and colour for every role and status.
// GET /api/members/badges
func (h *MemberHandler) Badges(w http.ResponseWriter, r *http.Request) {
	roles := make(map[models.Role]models.Badge, len(models.Roles))
	for _, role := range models.Roles {
		roles[role] = role.Badge()
	}
	statuses := make(map[models.MemberStatus]models.Badge, len(models.Statuses))
	for _, st := range models.Statuses {
		statuses[st] = st.Badge()
	}
	utils.Success(w, http.StatusOK, "", map[string]interface{}{
		"roles":    roles,
		"statuses": statuses,
	})
}
