package handlers

import (
	"encoding/json"
	"net/http"

	"voteflow-backend/internal/health"
	"voteflow-backend/internal/status"
	"voteflow-backend/pkg/utils"
)

type HealthHandler struct {
	checker   *health.HealthChecker
	collector *status.Collector
	hub       *status.Hub
}

func NewHealthHandler(checker *health.HealthChecker, collector *status.Collector, hub *status.Hub) *HealthHandler {
	return &HealthHandler{checker: checker, collector: collector, hub: hub}
}

// BasicHealth - for liveness probes
func (h *HealthHandler) BasicHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// ReadinessHealth - 503 while any dependency is down
func (h *HealthHandler) ReadinessHealth(w http.ResponseWriter, r *http.Request) {
	st := h.checker.Check(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if st.Status == "healthy" {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(st)
}

// Status - full snapshot for the admin dashboard
// GET /api/status
func (h *HealthHandler) Status(w http.ResponseWriter, r *http.Request) {
	utils.Success(w, http.StatusOK, "", h.collector.Collect(r.Context()))
}

// StatusStream upgrades to a websocket that receives snapshots.
// GET /ws/status
func (h *HealthHandler) StatusStream(w http.ResponseWriter, r *http.Request) {
	h.hub.ServeWS(w, r)
}
