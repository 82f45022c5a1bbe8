package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Podtech-AI/tabichan-go/chat"
	"github.com/Podtech-AI/tabichan-go/domain"
	"github.com/Podtech-AI/tabichan-go/internal/identity"
	"github.com/Podtech-AI/tabichan-go/internal/planner"
	"github.com/Podtech-AI/tabichan-go/internal/store"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	readLimit    = 1 << 20
	writeTimeout = 10 * time.Second
	storeTimeout = 5 * time.Second

	// InvalidKeyReason is the close reason sent with StatusPolicyViolation.
	InvalidKeyReason = "Invalid API key"
)

// WebSocketHandler handles WebSocket chat sessions.
type WebSocketHandler struct {
	repo          store.Repository
	sm            *SessionManager
	keyring       *identity.Keyring
	question      string
	allowedOrigin string
	isDev         bool
	now           func() time.Time
}

// NewWebSocketHandler creates a new WebSocket handler. question is asked once
// per chat request before a result is produced.
func NewWebSocketHandler(repo store.Repository, sm *SessionManager, kr *identity.Keyring, question, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		repo:          repo,
		sm:            sm,
		keyring:       kr,
		question:      question,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
		now:           time.Now,
	}
}

// RegisterRoutes registers the WebSocket route. Authentication happens after
// the upgrade so a bad key can be reported with a close code.
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/chat/{userID}", h.ServeHTTP)
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	slog.Info("WebSocket connection request", "user_id", userID, "ip", identity.IPFromRequest(r))

	if userID == "" {
		http.Error(w, "user id is required", http.StatusBadRequest)
		return
	}
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()

	if !h.keyring.Valid(r.URL.Query().Get(identity.QueryParam)) {
		slog.Warn("WebSocket rejected: invalid API key", "user_id", userID)
		_ = ws.Close(websocket.StatusPolicyViolation, InvalidKeyReason)
		return
	}
	ws.SetReadLimit(readLimit)

	h.sm.Register(userID, ws)
	defer h.sm.Unregister(userID, ws)

	s := &session{
		h:      h,
		ws:     ws,
		userID: userID,
		logger: slog.Default().With("user_id", userID),
	}
	s.run(r.Context())
	slog.Info("Chat session ended", "user_id", userID)
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

// session is the state of one connection. It is owned by the read loop.
type session struct {
	h       *WebSocketHandler
	ws      *websocket.Conn
	userID  string
	logger  *slog.Logger
	pending *domain.Conversation
	country domain.Country
}

func (s *session) run(ctx context.Context) {
	s.logger.Debug("Starting chat loop")
	for {
		_, message, err := s.ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				s.logger.Debug("WebSocket closed by client")
			} else {
				s.logger.Warn("WebSocket read error", "error", err)
			}
			return
		}

		frame, err := chat.DecodeFrame(message)
		if err != nil {
			s.logger.Debug("Malformed frame", "error", err)
			if err := s.sendError(ctx, "invalid message format"); err != nil {
				return
			}
			continue
		}

		switch frame.Type {
		case chat.FrameChatRequest:
			err = s.handleChatRequest(ctx, frame)
		case chat.FrameResponse:
			err = s.handleResponse(ctx, frame)
		default:
			s.logger.Debug("Ignoring frame", "type", frame.Type)
		}
		if err != nil {
			s.logger.Debug("Failed to write frame", "error", err)
			return
		}
	}
}

func (s *session) handleChatRequest(ctx context.Context, frame chat.Frame) error {
	var req chat.ChatRequest
	if err := json.Unmarshal(frame.Raw, &req); err != nil {
		return s.sendError(ctx, "invalid chat_request")
	}
	if strings.TrimSpace(req.Query) == "" {
		return s.sendError(ctx, "query is required")
	}

	conv := &domain.Conversation{
		ID:         uuid.NewString(),
		UserID:     s.userID,
		Query:      req.Query,
		QuestionID: uuid.NewString(),
		Question:   s.h.question,
		CreatedAt:  s.h.now(),
	}
	storeCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	if err := s.h.repo.CreateConversation(storeCtx, conv); err != nil {
		s.logger.Error("Failed to record conversation", "error", err)
		return s.sendError(ctx, "failed to start conversation")
	}

	s.pending = conv
	s.country = countryFrom(req.Preferences)
	s.logger.Info("Conversation started", "conversation_id", conv.ID, "question_id", conv.QuestionID)

	question, err := chat.NewFrame(chat.FrameQuestion, chat.Question{ID: conv.QuestionID, Text: conv.Question})
	if err != nil {
		return err
	}
	return s.write(ctx, question)
}

func (s *session) handleResponse(ctx context.Context, frame chat.Frame) error {
	var resp chat.Response
	if err := json.Unmarshal(frame.Raw, &resp); err != nil {
		return s.sendError(ctx, "invalid response")
	}
	conv := s.pending
	if conv == nil || resp.QuestionID != conv.QuestionID {
		return s.sendError(ctx, "unknown question_id")
	}

	storeCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	if err := s.h.repo.AnswerConversation(storeCtx, conv.ID, resp.Response, s.h.now()); err != nil {
		s.logger.Error("Failed to record answer", "error", err, "conversation_id", conv.ID)
		return s.sendError(ctx, "failed to record answer")
	}
	s.pending = nil

	result, err := chat.NewResultFrame(planner.BuildItinerary(conv.Query, s.country, resp.Response))
	if err != nil {
		return err
	}
	if err := s.write(ctx, result); err != nil {
		return err
	}
	s.logger.Info("Conversation complete", "conversation_id", conv.ID)
	return s.write(ctx, chat.Frame{Type: chat.FrameComplete})
}

func (s *session) sendError(ctx context.Context, msg string) error {
	frame, err := chat.NewFrame(chat.FrameError, msg)
	if err != nil {
		return err
	}
	return s.write(ctx, frame)
}

func (s *session) write(ctx context.Context, frame chat.Frame) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, s.ws, frame)
}

// countryFrom reads an optional "country" preference.
func countryFrom(prefs map[string]any) domain.Country {
	if c, ok := prefs["country"].(string); ok {
		return domain.Country(strings.ToLower(c)).OrDefault()
	}
	return domain.CountryJapan
}
