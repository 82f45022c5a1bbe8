package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Podtech-AI/tabichan-go/domain"
	"github.com/Podtech-AI/tabichan-go/internal/identity"
	"github.com/Podtech-AI/tabichan-go/internal/planner"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

// ChatHandler serves the job endpoints.
type ChatHandler struct {
	*Handler
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(base *Handler) *ChatHandler {
	return &ChatHandler{Handler: base}
}

// RegisterRoutes registers the job and image routes.
func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.StartChat)
	r.Get("/chat/poll", h.Poll)
	r.Get("/image", h.Image)
}

// StartChat creates a task and returns its identifier.
func (h *ChatHandler) StartChat(w http.ResponseWriter, r *http.Request) {
	var req domain.StartChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	task, err := h.planner.Submit(r.Context(), req)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			slog.Error("Failed to submit task", "error", err, "user_id", req.UserID)
		}
		Error(w, status, err.Error())
		return
	}

	slog.Debug("Chat task accepted",
		"task_id", task.TaskID,
		"user_id", task.UserID,
		"caller", identity.CallerFromContext(r.Context()))
	JSON(w, http.StatusOK, domain.StartChatResponse{TaskID: task.TaskID})
}

// Poll reports the status of a task.
func (h *ChatHandler) Poll(w http.ResponseWriter, r *http.Request) {
	taskID := r.URL.Query().Get("task_id")
	if taskID == "" {
		Error(w, http.StatusBadRequest, "task_id is required")
		return
	}

	res, err := h.planner.Poll(r.Context(), taskID)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			slog.Error("Failed to poll task", "error", err, "task_id", taskID)
		}
		Error(w, status, err.Error())
		return
	}
	JSON(w, http.StatusOK, res)
}

// Image returns a placeholder image for an identifier.
func (h *ChatHandler) Image(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		Error(w, http.StatusBadRequest, "id is required")
		return
	}
	country := domain.Country(r.URL.Query().Get("country")).OrDefault()

	img, err := planner.PlaceholderImage(id, string(country))
	if err != nil {
		slog.Error("Failed to render image", "error", err, "id", id)
		Error(w, http.StatusInternalServerError, "failed to render image")
		return
	}
	JSON(w, http.StatusOK, domain.ImageResponse{Base64: img})
}
