// Package chat implements the bidirectional conversation transport: one
// WebSocket per user carrying a multi-turn conversation that can pause to ask
// the caller a clarifying question.
//
// Client owns the connection lifecycle. Its Router classifies inbound frames
// and tracks the outstanding question. Both report to listeners registered
// with AddListener.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Podtech-AI/tabichan-go/domain"
	"github.com/Podtech-AI/tabichan-go/internal/config"
	"github.com/Podtech-AI/tabichan-go/internal/metrics"
	"github.com/coder/websocket"
)

const (
	// DefaultConnectTimeout bounds the opening handshake.
	DefaultConnectTimeout = 10 * time.Second

	closeReasonDisconnect = "Client disconnecting"
)

// State is the lifecycle state of a session.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// session is one open channel. local is set when this side initiated the close.
type session struct {
	conn        Conn
	done        chan struct{}
	local       bool
	localCode   websocket.StatusCode
	localReason string
}

func (s *session) markLocal() {
	s.local = true
	s.localCode = websocket.StatusNormalClosure
	s.localReason = closeReasonDisconnect
}

// attempt is a connect in flight, shared by every concurrent Connect call.
type attempt struct {
	done   chan struct{}
	err    error
	cancel context.CancelFunc
}

func (a *attempt) finish(err error) {
	a.err = err
	close(a.done)
}

// Client manages one conversation session for a user.
type Client struct {
	emitter

	mu         sync.Mutex
	apiKey     string
	baseURL    string
	userID     string
	state      State
	sess       *session
	pending    *attempt
	questionID string

	dialer         Dialer
	logger         *slog.Logger
	connectTimeout time.Duration
	router         *Router
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the WebSocket base URL, e.g. ws://localhost:8085/v1.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithDialer replaces the WebSocket dialer.
func WithDialer(d Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithConnectTimeout overrides DefaultConnectTimeout.
func WithConnectTimeout(d time.Duration) Option {
	return func(c *Client) { c.connectTimeout = d }
}

// New creates a disconnected client. An empty apiKey is read from
// TABICHAN_API_KEY.
func New(apiKey, userID string, opts ...Option) (*Client, error) {
	key, err := config.ResolveAPIKey(apiKey)
	if err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, ErrMissingUserID
	}

	c := &Client{
		apiKey:         key,
		userID:         userID,
		baseURL:        config.DefaultWebSocketBaseURL,
		dialer:         WebSocketDialer{},
		connectTimeout: DefaultConnectTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("user_id", userID)
	c.router = &Router{client: c}
	return c, nil
}

// Router returns the message router bound to this client.
func (c *Client) Router() *Router {
	return c.router
}

// Connect opens the session. Concurrent calls share one attempt; ctx only
// bounds how long this caller waits for it. Connect on a connected session
// returns nil.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateConnected {
		c.mu.Unlock()
		return nil
	}
	a := c.pending
	if a == nil {
		a = c.startAttemptLocked()
	}
	c.mu.Unlock()

	select {
	case <-a.done:
		return a.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) startAttemptLocked() *attempt {
	dialCtx, cancel := context.WithTimeout(context.Background(), c.connectTimeout)
	a := &attempt{done: make(chan struct{}), cancel: cancel}
	c.pending = a
	c.state = StateConnecting
	c.questionID = ""

	target := c.baseURL + "/ws/chat/" + url.PathEscape(c.userID) + "?" + url.Values{"api_key": {c.apiKey}}.Encode()
	c.logger.Debug("Connecting to chat service", "url", c.baseURL)
	go c.dial(dialCtx, a, target)
	return a
}

func (c *Client) dial(ctx context.Context, a *attempt, target string) {
	defer a.cancel()
	conn, err := c.dialer.Dial(ctx, target)

	c.mu.Lock()
	if c.pending != a {
		c.mu.Unlock()
		if conn != nil {
			_ = conn.CloseNow()
		}
		metrics.ObserveConnect("aborted")
		a.finish(ErrConnectionAborted)
		return
	}
	c.pending = nil

	if err != nil {
		c.state = StateDisconnected
		c.mu.Unlock()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			c.logger.Warn("Connection timed out", "timeout", c.connectTimeout)
			metrics.ObserveConnect("timeout")
			a.finish(ErrConnectionTimeout)
			return
		}
		c.logger.Warn("Connection failed", "error", err)
		metrics.ObserveConnect("error")
		c.emit(Event{Kind: EventError, Err: err})
		a.finish(err)
		return
	}

	s := &session{conn: conn, done: make(chan struct{})}
	c.sess = s
	c.state = StateConnected
	c.mu.Unlock()

	c.logger.Info("Connected to chat service")
	metrics.ObserveConnect("ok")
	c.emit(Event{Kind: EventConnected})
	go c.readLoop(s)
	a.finish(nil)
}

func (c *Client) readLoop(s *session) {
	for {
		_, data, err := s.conn.Read(context.Background())
		if err != nil {
			c.handleClose(s, err)
			return
		}

		f, err := DecodeFrame(data)
		if err != nil {
			c.logger.Warn("Failed to parse message", "error", err)
			c.emit(Event{Kind: EventError, Err: err})
			continue
		}
		c.router.Dispatch(f)
	}
}

func (c *Client) handleClose(s *session, err error) {
	code, reason := closeStatus(err)

	c.mu.Lock()
	if s.local {
		code, reason = s.localCode, s.localReason
	}
	// A Disconnect already reset the state for this session.
	if c.sess == s {
		c.sess = nil
		c.state = StateClosed
		c.questionID = ""
	}
	c.mu.Unlock()
	close(s.done)

	if code == websocket.StatusPolicyViolation {
		c.logger.Warn("Authentication failed", "code", int(code), "reason", reason)
		c.emit(Event{Kind: EventAuthError, Err: ErrAuthFailed, Code: int(code), Reason: reason})
		return
	}
	c.logger.Info("Disconnected from chat service", "code", int(code), "reason", reason)
	c.emit(Event{Kind: EventDisconnected, Code: int(code), Reason: reason})
}

// closeStatus extracts the close code and reason. A read failure without a
// close frame is reported as an abnormal closure.
func closeStatus(err error) (websocket.StatusCode, string) {
	var ce websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code, ce.Reason
	}
	return websocket.StatusAbnormalClosure, err.Error()
}

// Disconnect aborts any pending attempt, starts a normal close of the open
// channel and resets the session immediately. It does not wait for the
// remote side.
func (c *Client) Disconnect() {
	c.mu.Lock()
	a := c.pending
	c.pending = nil
	s := c.sess
	c.sess = nil
	if s != nil {
		s.markLocal()
	}
	c.state = StateDisconnected
	c.questionID = ""
	c.mu.Unlock()

	if a != nil {
		a.cancel()
	}
	if s != nil {
		go func() {
			if err := s.conn.Close(websocket.StatusNormalClosure, closeReasonDisconnect); err != nil {
				c.logger.Debug("Failed to close websocket", "error", err)
			}
		}()
	}
}

// Close performs a normal close and waits, bounded by ctx, until the close
// has been handled. The session ends in StateClosed. Called while a listener
// is running, Close starts the close and returns nil without waiting, since
// the close is handled on the goroutine that runs listeners.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	a := c.pending
	c.pending = nil
	s := c.sess
	c.questionID = ""
	if s == nil {
		c.state = StateClosed
		c.mu.Unlock()
		if a != nil {
			a.cancel()
		}
		return nil
	}
	s.markLocal()
	c.state = StateClosing
	c.mu.Unlock()

	go func() {
		if err := s.conn.Close(websocket.StatusNormalClosure, closeReasonDisconnect); err != nil {
			c.logger.Debug("Failed to close websocket", "error", err)
		}
	}()

	if c.inListener() {
		return nil
	}
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		_ = s.conn.CloseNow()
		return ctx.Err()
	}
}

// SendMessage writes v as a JSON text frame.
func (c *Client) SendMessage(ctx context.Context, v any) error {
	c.mu.Lock()
	s, state := c.sess, c.state
	c.mu.Unlock()

	if s == nil || state != StateConnected {
		return ErrNotOpen
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	return s.conn.Write(ctx, websocket.MessageText, data)
}

// StartChat sends a chat request. See Router.StartChat.
func (c *Client) StartChat(ctx context.Context, query string, history []domain.ChatMessage, preferences map[string]any) error {
	return c.router.StartChat(ctx, query, history, preferences)
}

// SendResponse answers the outstanding question. See Router.SendResponse.
func (c *Client) SendResponse(ctx context.Context, answer string) error {
	return c.router.SendResponse(ctx, answer)
}

// Answer responds to a specific question. See Router.Answer.
func (c *Client) Answer(ctx context.Context, questionID, answer string) error {
	return c.router.Answer(ctx, questionID, answer)
}

// SetBaseURL changes the WebSocket base URL for the next Connect.
func (c *Client) SetBaseURL(baseURL string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StateConnecting, StateConnected, StateClosing:
		return ErrInvalidState
	}
	c.baseURL = strings.TrimRight(baseURL, "/")
	return nil
}

// BaseURL returns the WebSocket base URL.
func (c *Client) BaseURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.baseURL
}

// SetAPIKey changes the key used by the next Connect.
func (c *Client) SetAPIKey(apiKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apiKey = apiKey
}

// UserID returns the user the session is scoped to.
func (c *Client) UserID() string {
	return c.userID
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected reports whether the session is open.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// HasActiveQuestion reports whether a question awaits an answer.
func (c *Client) HasActiveQuestion() bool {
	return c.QuestionID() != ""
}

// QuestionID returns the outstanding question, or "" when there is none.
func (c *Client) QuestionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.questionID
}

// setQuestion records id as outstanding. The question is dropped if the
// session is no longer connected.
func (c *Client) setQuestion(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateConnected {
		c.questionID = id
	}
}

// clearQuestion clears the outstanding question if it is still id. An
// empty id clears unconditionally.
func (c *Client) clearQuestion(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id == "" || c.questionID == id {
		c.questionID = ""
	}
}

func (c *Client) snapshot() (State, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.questionID
}
