// Package conversation serves the sandbox's bidirectional chat endpoint.
package conversation

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// SessionManager tracks the live connection of each user. A user has at most
// one; registering a new connection closes the previous one.
type SessionManager struct {
	mu     sync.RWMutex
	active map[string]*websocket.Conn
}

// NewSessionManager creates a new session manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		active: make(map[string]*websocket.Conn),
	}
}

// GetActive returns the active connection for a user.
func (m *SessionManager) GetActive(userID string) *websocket.Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active[userID]
}

// Count returns the number of users with a live connection.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.active)
}

// Register adds a connection for a user, replacing any existing one.
func (m *SessionManager) Register(userID string, conn *websocket.Conn) {
	m.mu.Lock()
	existing := m.active[userID]
	m.active[userID] = conn
	m.mu.Unlock()

	if existing != nil && existing != conn {
		// Close waits for the peer's handshake; don't hold up the new session.
		go func() {
			_ = existing.Close(websocket.StatusNormalClosure, "session replaced")
		}()
		slog.Info("Chat session replaced", "user_id", userID)
		return
	}
	slog.Info("Chat session registered", "user_id", userID)
}

// Unregister removes a user's connection if it is still the registered one.
func (m *SessionManager) Unregister(userID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current, ok := m.active[userID]; ok && current == conn {
		delete(m.active, userID)
		slog.Info("Chat session unregistered", "user_id", userID)
	}
}

// CloseAll terminates every live connection. Used on shutdown.
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	conns := m.active
	m.active = make(map[string]*websocket.Conn)
	m.mu.Unlock()

	for userID, conn := range conns {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		slog.Info("Chat session closed", "user_id", userID)
	}
}
