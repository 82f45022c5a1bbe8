package chat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Podtech-AI/tabichan-go/internal/config"
	"github.com/coder/websocket"
	"github.com/containerd/errdefs"
)

// fakeConn is an in-memory channel. Frames pushed to in are returned by Read
// until the connection is shut down.
type fakeConn struct {
	in       chan []byte
	closed   chan struct{}
	once     sync.Once
	closeErr error

	mu       sync.Mutex
	written  [][]byte
	writeErr error
}

func newFakeConn() *fakeConn {
	return &fakeConn{in: make(chan []byte, 16), closed: make(chan struct{})}
}

func (f *fakeConn) Read(ctx context.Context) (websocket.MessageType, []byte, error) {
	select {
	case data := <-f.in:
		return websocket.MessageText, data, nil
	case <-f.closed:
		return 0, nil, f.closeErr
	case <-ctx.Done():
		return 0, nil, ctx.Err()
	}
}

func (f *fakeConn) Write(_ context.Context, _ websocket.MessageType, p []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.written = append(f.written, append([]byte(nil), p...))
	return nil
}

func (f *fakeConn) Close(code websocket.StatusCode, reason string) error {
	f.shutdown(websocket.CloseError{Code: code, Reason: reason})
	return nil
}

func (f *fakeConn) CloseNow() error {
	f.shutdown(errors.New("use of closed network connection"))
	return nil
}

func (f *fakeConn) shutdown(err error) {
	f.once.Do(func() {
		f.closeErr = err
		close(f.closed)
	})
}

func (f *fakeConn) push(frame string) {
	f.in <- []byte(frame)
}

func (f *fakeConn) setWriteErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeErr = err
}

func (f *fakeConn) lastWritten() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.written) == 0 {
		return ""
	}
	return string(f.written[len(f.written)-1])
}

type fakeDialer struct {
	mu    sync.Mutex
	urls  []string
	block bool
	conn  *fakeConn
	err   error
}

func (d *fakeDialer) Dial(ctx context.Context, url string) (Conn, error) {
	d.mu.Lock()
	d.urls = append(d.urls, url)
	block, conn, err := d.block, d.conn, d.err
	d.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (d *fakeDialer) unblock() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.block = false
}

func (d *fakeDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.urls)
}

func waitForDials(t *testing.T, d *fakeDialer, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for d.dials() < n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d dials, got %d", n, d.dials())
		}
		time.Sleep(time.Millisecond)
	}
}

type recorder struct {
	ch chan Event
}

func record(c *Client) *recorder {
	r := &recorder{ch: make(chan Event, 64)}
	c.AddListener(func(ev Event) { r.ch <- ev })
	return r
}

func (r *recorder) next(t *testing.T) Event {
	t.Helper()
	select {
	case ev := <-r.ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func (r *recorder) expect(t *testing.T, kinds ...EventKind) []Event {
	t.Helper()
	events := make([]Event, 0, len(kinds))
	for _, want := range kinds {
		ev := r.next(t)
		if ev.Kind != want {
			t.Fatalf("expected %s event, got %s", want, ev.Kind)
		}
		events = append(events, ev)
	}
	return events
}

func (r *recorder) expectNone(t *testing.T) {
	t.Helper()
	select {
	case ev := <-r.ch:
		t.Fatalf("unexpected %s event", ev.Kind)
	case <-time.After(50 * time.Millisecond):
	}
}

func newTestClient(t *testing.T, d Dialer, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{
		WithDialer(d),
		WithBaseURL("ws://example.test/v1/"),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	c, err := New("test-key", "user123", opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func connectedClient(t *testing.T) (*Client, *fakeConn, *recorder) {
	t.Helper()
	conn := newFakeConn()
	c := newTestClient(t, &fakeDialer{conn: conn})
	rec := record(c)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	rec.expect(t, EventConnected)
	t.Cleanup(c.Disconnect)
	return c, conn, rec
}

func TestNewValidatesArguments(t *testing.T) {
	t.Setenv(config.APIKeyEnv, "")
	if _, err := New("", "user123"); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}
	if _, err := New("key", ""); !errors.Is(err, ErrMissingUserID) {
		t.Errorf("expected ErrMissingUserID, got %v", err)
	}

	t.Setenv(config.APIKeyEnv, "env-key")
	c, err := New("", "user123")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if c.BaseURL() != config.DefaultWebSocketBaseURL {
		t.Errorf("unexpected default base URL %q", c.BaseURL())
	}
	if c.State() != StateDisconnected {
		t.Errorf("expected disconnected, got %s", c.State())
	}
}

func TestConnectDialsEndpoint(t *testing.T) {
	d := &fakeDialer{conn: newFakeConn()}
	c := newTestClient(t, d)
	defer c.Disconnect()

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if got := d.urls[0]; got != "ws://example.test/v1/ws/chat/user123?api_key=test-key" {
		t.Errorf("unexpected url %q", got)
	}
	if !c.IsConnected() {
		t.Errorf("expected connected, got %s", c.State())
	}

	// Already connected.
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("second Connect failed: %v", err)
	}
	if d.dials() != 1 {
		t.Errorf("expected no new dial, got %d", d.dials())
	}
}

func TestConcurrentConnectDialsOnce(t *testing.T) {
	d := &fakeDialer{conn: newFakeConn(), block: true}
	c := newTestClient(t, d, WithConnectTimeout(time.Minute))
	defer c.Disconnect()

	errs := make(chan error, 2)
	go func() { errs <- c.Connect(context.Background()) }()
	waitForDials(t, d, 1)
	if c.State() != StateConnecting {
		t.Fatalf("expected connecting, got %s", c.State())
	}
	go func() { errs <- c.Connect(context.Background()) }()

	// Let the second caller join the pending attempt.
	time.Sleep(20 * time.Millisecond)
	c.Disconnect()
	for i := 0; i < 2; i++ {
		if err := <-errs; !errors.Is(err, ErrConnectionAborted) {
			t.Fatalf("expected ErrConnectionAborted, got %v", err)
		}
	}
	if d.dials() != 1 {
		t.Fatalf("expected exactly one dial, got %d", d.dials())
	}
	if c.State() != StateDisconnected {
		t.Errorf("expected disconnected after abort, got %s", c.State())
	}

	d.unblock()
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("reconnect failed: %v", err)
	}
	if d.dials() != 2 {
		t.Errorf("expected a fresh dial after abort, got %d", d.dials())
	}
}

func TestConcurrentConnectShareSuccess(t *testing.T) {
	conn := newFakeConn()
	release := make(chan struct{})
	d := &gatedDialer{conn: conn, release: release}
	c := newTestClient(t, d)
	defer c.Disconnect()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = c.Connect(context.Background())
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("Connect %d failed: %v", i, err)
		}
	}
	if n := d.count(); n != 1 {
		t.Errorf("expected one dial, got %d", n)
	}
}

// gatedDialer holds every dial until release is closed.
type gatedDialer struct {
	mu      sync.Mutex
	n       int
	conn    *fakeConn
	release chan struct{}
}

func (d *gatedDialer) Dial(ctx context.Context, _ string) (Conn, error) {
	d.mu.Lock()
	d.n++
	d.mu.Unlock()
	select {
	case <-d.release:
		return d.conn, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (d *gatedDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.n
}

func TestConnectTimeout(t *testing.T) {
	d := &fakeDialer{block: true}
	c := newTestClient(t, d, WithConnectTimeout(20*time.Millisecond))

	err := c.Connect(context.Background())
	if !errors.Is(err, ErrConnectionTimeout) {
		t.Fatalf("expected ErrConnectionTimeout, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("expected deadline exceeded class")
	}
	if c.State() != StateDisconnected {
		t.Errorf("expected disconnected after timeout, got %s", c.State())
	}

	// The session stays usable.
	if err := c.Connect(context.Background()); !errors.Is(err, ErrConnectionTimeout) {
		t.Fatalf("expected a second timeout, got %v", err)
	}
	if d.dials() != 2 {
		t.Errorf("expected a new dial per attempt, got %d", d.dials())
	}
}

func TestConnectDialErrorEmitsError(t *testing.T) {
	dialErr := errors.New("connection refused")
	c := newTestClient(t, &fakeDialer{err: dialErr})
	rec := record(c)

	if err := c.Connect(context.Background()); !errors.Is(err, dialErr) {
		t.Fatalf("expected dial error, got %v", err)
	}
	ev := rec.expect(t, EventError)[0]
	if !errors.Is(ev.Err, dialErr) {
		t.Errorf("expected dial error in event, got %v", ev.Err)
	}
	if c.State() != StateDisconnected {
		t.Errorf("expected disconnected, got %s", c.State())
	}
}

func TestConnectCallerContextOnlyBoundsWait(t *testing.T) {
	d := &fakeDialer{block: true}
	c := newTestClient(t, d, WithConnectTimeout(time.Minute))
	defer c.Disconnect()

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() { errs <- c.Connect(ctx) }()
	waitForDials(t, d, 1)
	cancel()

	if err := <-errs; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if c.State() != StateConnecting {
		t.Errorf("attempt should still be in flight, got %s", c.State())
	}
}

func TestQuestionResponseFlow(t *testing.T) {
	c, conn, rec := connectedClient(t)

	conn.push(`{"type":"question","data":{"question_id":"q1","question":"Budget?"}}`)
	events := rec.expect(t, EventMessage, EventQuestion)
	if events[0].Frame.Type != FrameQuestion {
		t.Errorf("expected raw question frame, got %q", events[0].Frame.Type)
	}
	q := events[1].Question
	if q.ID != "q1" || q.Text != "Budget?" {
		t.Errorf("unexpected question %+v", q)
	}
	if c.QuestionID() != "q1" || !c.HasActiveQuestion() {
		t.Fatalf("expected outstanding question q1, got %q", c.QuestionID())
	}

	if err := c.SendResponse(context.Background(), "medium"); err != nil {
		t.Fatalf("SendResponse failed: %v", err)
	}
	if got := conn.lastWritten(); got != `{"type":"response","question_id":"q1","response":"medium"}` {
		t.Errorf("unexpected frame %s", got)
	}
	if c.HasActiveQuestion() {
		t.Error("question should be cleared after a response")
	}
	if err := c.SendResponse(context.Background(), "again"); !errors.Is(err, ErrNoActiveQuestion) {
		t.Errorf("expected ErrNoActiveQuestion, got %v", err)
	}
}

func TestAnswerEarlierQuestion(t *testing.T) {
	c, conn, rec := connectedClient(t)
	ctx := context.Background()

	conn.push(`{"type":"question","data":{"question_id":"q1","question":"Budget?"}}`)
	conn.push(`{"type":"question","data":{"question_id":"q2","question":"Dates?"}}`)
	rec.expect(t, EventMessage, EventQuestion, EventMessage, EventQuestion)

	if err := c.Answer(ctx, "q1", "medium"); err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if got := conn.lastWritten(); got != `{"type":"response","question_id":"q1","response":"medium"}` {
		t.Errorf("unexpected frame %s", got)
	}
	if c.QuestionID() != "q2" {
		t.Errorf("newer question must stay outstanding, got %q", c.QuestionID())
	}

	if err := c.Answer(ctx, "q2", "May"); err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if c.HasActiveQuestion() {
		t.Error("question should be cleared after answering it")
	}
	if err := c.Answer(ctx, "", "x"); !errors.Is(err, ErrNoActiveQuestion) {
		t.Errorf("expected ErrNoActiveQuestion, got %v", err)
	}
}

func TestFailedSendKeepsQuestion(t *testing.T) {
	c, conn, rec := connectedClient(t)

	conn.push(`{"type":"question","data":{"question_id":"q1","question":"Budget?"}}`)
	rec.expect(t, EventMessage, EventQuestion)

	writeErr := errors.New("broken pipe")
	conn.setWriteErr(writeErr)
	if err := c.SendResponse(context.Background(), "medium"); !errors.Is(err, writeErr) {
		t.Fatalf("expected write error, got %v", err)
	}
	if c.QuestionID() != "q1" {
		t.Errorf("question should stay outstanding, got %q", c.QuestionID())
	}
	if !c.IsConnected() {
		t.Error("a failed send must not affect the connection")
	}
}

func TestDispatchFrames(t *testing.T) {
	c, conn, rec := connectedClient(t)

	conn.push(`{"type":"question","data":{"question_id":"q2","question":"Dates?"}}`)
	rec.expect(t, EventMessage, EventQuestion)

	conn.push(`{"type":"result","data":{"result":{"answer":"..."}}}`)
	ev := rec.expect(t, EventMessage, EventResult)[1]
	if string(ev.Result) != `{"answer":"..."}` {
		t.Errorf("unexpected result %s", ev.Result)
	}
	if c.QuestionID() != "q2" {
		t.Error("a result must not clear the outstanding question")
	}

	conn.push(`{"type":"error","data":"rate limited"}`)
	ev = rec.expect(t, EventMessage, EventChatError)[1]
	var se *ServerError
	if !errors.As(ev.Err, &se) || se.Message != "rate limited" {
		t.Errorf("unexpected chat error %v", ev.Err)
	}

	conn.push(`{"type":"progress","data":{"step":2}}`)
	ev = rec.expect(t, EventMessage, EventUnknownMessage)[1]
	if ev.Frame.Type != "progress" || string(ev.Frame.Raw) != `{"type":"progress","data":{"step":2}}` {
		t.Errorf("unexpected unknown frame %+v", ev.Frame)
	}

	conn.push(`{"type":"complete"}`)
	rec.expect(t, EventMessage, EventComplete)
	if c.HasActiveQuestion() {
		t.Error("complete must clear the outstanding question")
	}
	if !c.IsConnected() {
		t.Error("complete does not close the session")
	}
}

func TestParseErrorKeepsConnection(t *testing.T) {
	c, conn, rec := connectedClient(t)

	conn.push(`not json`)
	ev := rec.expect(t, EventError)[0]
	var pe *MessageParseError
	if !errors.As(ev.Err, &pe) {
		t.Fatalf("expected MessageParseError, got %v", ev.Err)
	}
	if string(pe.Raw) != "not json" {
		t.Errorf("unexpected raw frame %q", pe.Raw)
	}
	if !errdefs.IsInvalidArgument(ev.Err) {
		t.Error("expected invalid argument class")
	}

	conn.push(`{"type":"complete"}`)
	rec.expect(t, EventMessage, EventComplete)
	if !c.IsConnected() {
		t.Errorf("expected connection to stay open, got %s", c.State())
	}
}

func TestUntypedFramesAreUnknownMessages(t *testing.T) {
	c, conn, rec := connectedClient(t)

	for _, raw := range []string{`{"data":{"x":1}}`, `{"type":5}`, `"hello"`} {
		conn.push(raw)
		evs := rec.expect(t, EventMessage, EventUnknownMessage)
		for _, ev := range evs {
			if ev.Frame == nil || string(ev.Frame.Raw) != raw {
				t.Errorf("%s: expected raw frame on %s, got %+v", raw, ev.Kind, ev.Frame)
			}
		}
	}
	rec.expectNone(t)
	if !c.IsConnected() {
		t.Errorf("expected connection to stay open, got %s", c.State())
	}
}

func TestAuthCloseEmitsAuthError(t *testing.T) {
	for _, reason := range []string{"Invalid API key", ""} {
		c, conn, rec := connectedClient(t)

		conn.push(`{"type":"question","data":{"question_id":"q1","question":"Budget?"}}`)
		rec.expect(t, EventMessage, EventQuestion)

		conn.shutdown(websocket.CloseError{Code: websocket.StatusPolicyViolation, Reason: reason})
		ev := rec.expect(t, EventAuthError)[0]
		if !errors.Is(ev.Err, ErrAuthFailed) || !errdefs.IsUnauthorized(ev.Err) {
			t.Errorf("expected ErrAuthFailed, got %v", ev.Err)
		}
		if ev.Code != 1008 {
			t.Errorf("expected code 1008, got %d", ev.Code)
		}
		rec.expectNone(t)

		if c.State() != StateClosed {
			t.Errorf("expected closed, got %s", c.State())
		}
		if c.HasActiveQuestion() {
			t.Error("question must be cleared on close")
		}
	}
}

func TestRemoteCloseEmitsDisconnected(t *testing.T) {
	c, conn, rec := connectedClient(t)

	conn.shutdown(websocket.CloseError{Code: websocket.StatusGoingAway, Reason: "server restart"})
	ev := rec.expect(t, EventDisconnected)[0]
	if ev.Code != 1001 || ev.Reason != "server restart" {
		t.Errorf("unexpected close %d %q", ev.Code, ev.Reason)
	}
	if c.State() != StateClosed {
		t.Errorf("expected closed, got %s", c.State())
	}
	if err := c.SendMessage(context.Background(), map[string]string{"type": "ping"}); !errors.Is(err, ErrNotOpen) {
		t.Errorf("expected ErrNotOpen after close, got %v", err)
	}
}

func TestReadFailureIsAbnormalClosure(t *testing.T) {
	_, conn, rec := connectedClient(t)

	conn.shutdown(io.ErrUnexpectedEOF)
	ev := rec.expect(t, EventDisconnected)[0]
	if ev.Code != int(websocket.StatusAbnormalClosure) {
		t.Errorf("expected 1006, got %d", ev.Code)
	}
}

func TestDisconnectResetsImmediately(t *testing.T) {
	c, conn, rec := connectedClient(t)

	conn.push(`{"type":"question","data":{"question_id":"q1","question":"Budget?"}}`)
	rec.expect(t, EventMessage, EventQuestion)

	c.Disconnect()
	if c.State() != StateDisconnected {
		t.Errorf("expected disconnected, got %s", c.State())
	}
	if c.HasActiveQuestion() {
		t.Error("disconnect must clear the question")
	}

	ev := rec.expect(t, EventDisconnected)[0]
	if ev.Code != 1000 || ev.Reason != "Client disconnecting" {
		t.Errorf("unexpected close %d %q", ev.Code, ev.Reason)
	}
	if c.State() != StateDisconnected {
		t.Errorf("close handler must not override disconnect, got %s", c.State())
	}
}

func TestCloseWaitsForCloseHandler(t *testing.T) {
	c, _, rec := connectedClient(t)

	if err := c.Close(context.Background()); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if c.State() != StateClosed {
		t.Errorf("expected closed, got %s", c.State())
	}
	rec.expect(t, EventDisconnected)
}

func TestCloseFromListenerDoesNotBlock(t *testing.T) {
	c, conn, rec := connectedClient(t)

	closed := make(chan error, 1)
	c.AddListener(func(ev Event) {
		if ev.Kind == EventComplete {
			closed <- c.Close(context.Background())
		}
	})

	conn.push(`{"type":"complete"}`)
	select {
	case err := <-closed:
		if err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Close called from a listener blocked")
	}
	rec.expect(t, EventMessage, EventComplete, EventDisconnected)
	if c.State() != StateClosed {
		t.Errorf("expected closed, got %s", c.State())
	}
}

func TestMisuseErrors(t *testing.T) {
	c := newTestClient(t, &fakeDialer{conn: newFakeConn()})
	ctx := context.Background()

	if err := c.StartChat(ctx, "Plan a trip", nil, nil); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
	if err := c.SendResponse(ctx, "medium"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
	if err := c.SendMessage(ctx, map[string]string{}); !errors.Is(err, ErrNotOpen) {
		t.Errorf("expected ErrNotOpen, got %v", err)
	}
	if !errdefs.IsFailedPrecondition(ErrNotConnected) {
		t.Error("expected failed precondition class")
	}
	if err := c.SetBaseURL("ws://localhost:8085/v1/"); err != nil {
		t.Fatalf("SetBaseURL while disconnected failed: %v", err)
	}
	if c.BaseURL() != "ws://localhost:8085/v1" {
		t.Errorf("unexpected base URL %q", c.BaseURL())
	}

	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if err := c.SendResponse(ctx, "medium"); !errors.Is(err, ErrNoActiveQuestion) {
		t.Errorf("expected ErrNoActiveQuestion, got %v", err)
	}
	if err := c.SetBaseURL("ws://other/v1"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}

	c.Disconnect()
	if err := c.SetBaseURL("ws://other/v1"); err != nil {
		t.Errorf("SetBaseURL after disconnect failed: %v", err)
	}
}

func TestStartChatSendsEmptyDefaults(t *testing.T) {
	c, conn, _ := connectedClient(t)

	if err := c.Router().StartChat(context.Background(), "Plan a 2-day trip to Tokyo", nil, nil); err != nil {
		t.Fatalf("StartChat failed: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal([]byte(conn.lastWritten()), &got); err != nil {
		t.Fatalf("invalid frame: %v", err)
	}
	if got["type"] != "chat_request" || got["query"] != "Plan a 2-day trip to Tokyo" {
		t.Errorf("unexpected frame %v", got)
	}
	if h, ok := got["history"].([]any); !ok || len(h) != 0 {
		t.Errorf("expected empty history, got %v", got["history"])
	}
	if p, ok := got["preferences"].(map[string]any); !ok || len(p) != 0 {
		t.Errorf("expected empty preferences, got %v", got["preferences"])
	}
}

func TestRemoveListener(t *testing.T) {
	c := newTestClient(t, &fakeDialer{conn: newFakeConn()})
	defer c.Disconnect()

	var calls int
	remove := c.AddListener(func(Event) { calls++ })
	remove()
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if calls != 0 {
		t.Errorf("removed listener was called %d times", calls)
	}
}

func TestEventKindString(t *testing.T) {
	if EventAuthError.String() != "authError" || EventUnknownMessage.String() != "unknownMessage" {
		t.Error("unexpected event names")
	}
	if EventKind(0).String() != "invalid" {
		t.Error("zero kind should be invalid")
	}
}
