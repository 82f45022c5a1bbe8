package conversation

import (
	"log/slog"
	"net/http"

	"github.com/Podtech-AI/tabichan-go/domain"
	"github.com/Podtech-AI/tabichan-go/internal/api"
	"github.com/Podtech-AI/tabichan-go/internal/store"
	"github.com/go-chi/chi/v5"
)

// HistoryHandler lists recorded conversations.
type HistoryHandler struct {
	repo store.Repository
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(repo store.Repository) *HistoryHandler {
	return &HistoryHandler{repo: repo}
}

// RegisterRoutes registers the history route.
func (h *HistoryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/users/{userID}/conversations", h.List)
}

// List returns a user's conversations, oldest first.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	convs, err := h.repo.ListConversations(r.Context(), userID)
	if err != nil {
		slog.Error("Failed to list conversations", "error", err, "user_id", userID)
		api.Error(w, http.StatusInternalServerError, "failed to list conversations")
		return
	}
	if convs == nil {
		convs = []*domain.Conversation{}
	}
	api.JSON(w, http.StatusOK, map[string]any{"conversations": convs})
}
