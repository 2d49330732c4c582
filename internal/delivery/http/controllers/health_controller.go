package controllers

import (
	"net/http"

	"eventhub/internal/delivery/http/helpers"
)

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status string `json:"status"`
}

// Health godoc
// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} helpers.APIResponse "data.status is ok"
// @Router /health [get]
func Health(w http.ResponseWriter, _ *http.Request) {
	helpers.WriteJSONSuccess(w, http.StatusOK, HealthResponse{Status: "ok"})
}
