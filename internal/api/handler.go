// Package api provides HTTP handlers for the sandbox's unary endpoints.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/Podtech-AI/tabichan-go/internal/planner"
	"github.com/containerd/errdefs"
)

// Handler provides common handler utilities.
type Handler struct {
	planner *planner.Planner
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(p *planner.Planner) *Handler {
	return &Handler{planner: p}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// statusFor maps an error class to an HTTP status.
func statusFor(err error) int {
	switch {
	case errdefs.IsInvalidArgument(err):
		return http.StatusBadRequest
	case errdefs.IsNotFound(err):
		return http.StatusNotFound
	case errdefs.IsUnauthorized(err):
		return http.StatusUnauthorized
	case errdefs.IsFailedPrecondition(err), errdefs.IsConflict(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
