package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"voteflow-backend/internal/apiclient"
	"voteflow-backend/internal/models"
	"voteflow-backend/pkg/utils"
)

// UpstreamHandler relays the SPA's election, voting and organization calls
// to the VoteFlow API using the caller's session token.
type UpstreamHandler struct {
	API *apiclient.Client
}

func NewUpstreamHandler(api *apiclient.Client) *UpstreamHandler {
	return &UpstreamHandler{API: api}
}

func relay(w http.ResponseWriter, status int, msg string, data interface{}, err error) {
	if err != nil {
		upstreamError(w, err)
		return
	}
	utils.Success(w, status, msg, data)
}

// GET /api/elections
func (h *UpstreamHandler) ListElections(w http.ResponseWriter, r *http.Request) {
	out, err := h.API.ListElections(r.Context())
	relay(w, http.StatusOK, "", out, err)
}

// GET /api/elections/{id}
func (h *UpstreamHandler) GetElection(w http.ResponseWriter, r *http.Request) {
	out, err := h.API.GetElection(r.Context(), mux.Vars(r)["id"])
	relay(w, http.StatusOK, "", out, err)
}

// POST /api/elections
func (h *UpstreamHandler) CreateElection(w http.ResponseWriter, r *http.Request) {
	var e models.Election
	if !decodeJSON(w, r, &e) {
		return
	}
	out, err := h.API.CreateElection(r.Context(), e)
	relay(w, http.StatusCreated, "Election created successfully", out, err)
}

// PUT /api/elections/{id}
func (h *UpstreamHandler) UpdateElection(w http.ResponseWriter, r *http.Request) {
	var e models.Election
	if !decodeJSON(w, r, &e) {
		return
	}
	out, err := h.API.UpdateElection(r.Context(), mux.Vars(r)["id"], e)
	relay(w, http.StatusOK, "Election updated successfully", out, err)
}

// DELETE /api/elections/{id}
func (h *UpstreamHandler) DeleteElection(w http.ResponseWriter, r *http.Request) {
	err := h.API.DeleteElection(r.Context(), mux.Vars(r)["id"])
	relay(w, http.StatusOK, "Election deleted successfully", nil, err)
}

// TransitionElection pauses, resumes or closes an election.
// POST /api/elections/{id}/{action}
func (h *UpstreamHandler) TransitionElection(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	action := apiclient.ElectionAction(vars["action"])
	switch action {
	case apiclient.ActionPause, apiclient.ActionResume, apiclient.ActionClose:
	default:
		utils.Error(w, http.StatusBadRequest, "Unknown election action")
		return
	}
	out, err := h.API.TransitionElection(r.Context(), vars["id"], action)
	relay(w, http.StatusOK, "Election updated successfully", out, err)
}

// GET /api/candidates?electionId=
func (h *UpstreamHandler) ListCandidates(w http.ResponseWriter, r *http.Request) {
	out, err := h.API.ListCandidates(r.Context(), r.URL.Query().Get("electionId"))
	relay(w, http.StatusOK, "", out, err)
}

// POST /api/candidates
func (h *UpstreamHandler) CreateCandidate(w http.ResponseWriter, r *http.Request) {
	var c models.Candidate
	if !decodeJSON(w, r, &c) {
		return
	}
	out, err := h.API.CreateCandidate(r.Context(), c)
	relay(w, http.StatusCreated, "Candidate added successfully", out, err)
}

// PUT /api/candidates/{id}
func (h *UpstreamHandler) UpdateCandidate(w http.ResponseWriter, r *http.Request) {
	var c models.Candidate
	if !decodeJSON(w, r, &c) {
		return
	}
	out, err := h.API.UpdateCandidate(r.Context(), mux.Vars(r)["id"], c)
	relay(w, http.StatusOK, "Candidate updated successfully", out, err)
}

// DELETE /api/candidates/{id}
func (h *UpstreamHandler) DeleteCandidate(w http.ResponseWriter, r *http.Request) {
	err := h.API.DeleteCandidate(r.Context(), mux.Vars(r)["id"])
	relay(w, http.StatusOK, "Candidate removed successfully", nil, err)
}

// POST /api/votes
func (h *UpstreamHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	var v models.Vote
	if !decodeJSON(w, r, &v) {
		return
	}
	if v.ElectionID == "" || v.CandidateID == "" {
		utils.Error(w, http.StatusBadRequest, "Election and candidate are required")
		return
	}
	err := h.API.CastVote(r.Context(), v)
	relay(w, http.StatusCreated, "Vote cast successfully", nil, err)
}

// GET /api/votes/status/{electionId}
func (h *UpstreamHandler) VoteStatus(w http.ResponseWriter, r *http.Request) {
	out, err := h.API.VoteStatus(r.Context(), mux.Vars(r)["electionId"])
	relay(w, http.StatusOK, "", out, err)
}

// GET /api/analytics/{electionId}
func (h *UpstreamHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	out, err := h.API.Analytics(r.Context(), mux.Vars(r)["electionId"])
	relay(w, http.StatusOK, "", out, err)
}

// GET /api/notifications
func (h *UpstreamHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	out, err := h.API.Notifications(r.Context())
	relay(w, http.StatusOK, "", out, err)
}

// PUT /api/notifications/{id}/read
func (h *UpstreamHandler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	err := h.API.MarkNotificationRead(r.Context(), mux.Vars(r)["id"])
	relay(w, http.StatusOK, "", nil, err)
}

// GET /api/users
func (h *UpstreamHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	out, err := h.API.ListUsers(r.Context())
	relay(w, http.StatusOK, "", out, err)
}

// GET /api/users/profile
func (h *UpstreamHandler) Profile(w http.ResponseWriter, r *http.Request) {
	out, err := h.API.Profile(r.Context())
	relay(w, http.StatusOK, "", out, err)
}

// GET /api/users/activities
func (h *UpstreamHandler) Activities(w http.ResponseWriter, r *http.Request) {
	out, err := h.API.Activities(r.Context())
	relay(w, http.StatusOK, "", out, err)
}

// GET /api/organization
func (h *UpstreamHandler) Organization(w http.ResponseWriter, r *http.Request) {
	out, err := h.API.Organization(r.Context())
	relay(w, http.StatusOK, "", out, err)
}

// PUT /api/organization
func (h *UpstreamHandler) UpdateOrganization(w http.ResponseWriter, r *http.Request) {
	var org models.Organization
	if !decodeJSON(w, r, &org) {
		return
	}
	out, err := h.API.UpdateOrganization(r.Context(), org)
	relay(w, http.StatusOK, "Organization updated successfully", out, err)
}

// DELETE /api/organization/logo
func (h *UpstreamHandler) RemoveOrganizationLogo(w http.ResponseWriter, r *http.Request) {
	err := h.API.RemoveOrganizationLogo(r.Context())
	relay(w, http.StatusOK, "Logo removed", nil, err)
}
