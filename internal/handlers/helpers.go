package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"voteflow-backend/internal/apiclient"
	"voteflow-backend/internal/logger"
	"voteflow-backend/pkg/utils"
)

const maxJSONBody = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// upstreamError relays an API client failure, keeping the upstream status
// when it was an error status. A 2xx with success:false becomes a 400.
func upstreamError(w http.ResponseWriter, err error) {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		status := apiErr.Status
		switch {
		case status == 0:
			status = http.StatusBadGateway
		case status < 400:
			status = http.StatusBadRequest
		}
		utils.Error(w, status, apiErr.Message)
		return
	}
	logger.For("handlers").WithError(err).Error("[API] Unexpected upstream error")
	utils.Error(w, http.StatusBadGateway, "Upstream request failed")
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
