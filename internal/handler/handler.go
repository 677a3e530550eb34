package handler

import (
	"net/http"

	"github.com/actuallystonmai/site-content/internal/service"
	"github.com/go-chi/render"
)

type Handler struct {
	service *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{service: svc}
}

// write JSON response
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

// writes JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, status int, message, details string) {
	writeJSON(w, r, status, ErrorResponse{
		Error:   message,
		Details: details,
	})
}

// WriteError is writeError for middleware outside this package.
func WriteError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeError(w, r, status, message, "")
}
