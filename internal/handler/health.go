package handler

import (
	"net/http"
	"time"
)

// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := h.service.Health(r.Context())

	writeJSON(w, r, http.StatusOK, HealthResponse{
		Status:    "OK",
		Database:  status.Database,
		Cache:     status.Cache,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
