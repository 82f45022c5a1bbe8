package chat

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/Podtech-AI/tabichan-go/internal/metrics"
)

// EventKind enumerates the events a session emits.
type EventKind int

const (
	EventConnected EventKind = iota + 1
	EventDisconnected
	EventMessage
	EventQuestion
	EventResult
	EventComplete
	EventError
	EventAuthError
	EventChatError
	EventUnknownMessage
)

var eventNames = map[EventKind]string{
	EventConnected:      "connected",
	EventDisconnected:   "disconnected",
	EventMessage:        "message",
	EventQuestion:       "question",
	EventResult:         "result",
	EventComplete:       "complete",
	EventError:          "error",
	EventAuthError:      "authError",
	EventChatError:      "chatError",
	EventUnknownMessage: "unknownMessage",
}

func (k EventKind) String() string {
	if name, ok := eventNames[k]; ok {
		return name
	}
	return "invalid"
}

// Event is delivered to listeners. Only the fields relevant to Kind are set:
//
//	EventDisconnected    Code, Reason
//	EventMessage         Frame
//	EventQuestion        Question
//	EventResult          Result
//	EventError           Err (dial error or *MessageParseError)
//	EventAuthError       Err (ErrAuthFailed), Code, Reason
//	EventChatError       Err (*ServerError)
//	EventUnknownMessage  Frame
type Event struct {
	Kind     EventKind
	Err      error
	Code     int
	Reason   string
	Frame    *Frame
	Question *Question
	Result   json.RawMessage
}

// Listener receives session events. Listeners run synchronously on the
// goroutine that produced the event and must not block for long. A listener
// may call Client.Close; it then returns without waiting for the close to be
// handled, and EventDisconnected follows once the listener returns.
type Listener func(Event)

type listenerEntry struct {
	id int
	fn Listener
}

type emitter struct {
	mu        sync.Mutex
	nextID    int
	listeners []listenerEntry
	running   atomic.Int32
}

// AddListener registers fn and returns a function that removes it.
func (e *emitter) AddListener(fn Listener) (remove func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	id := e.nextID
	e.listeners = append(e.listeners, listenerEntry{id: id, fn: fn})

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, l := range e.listeners {
			if l.id == id {
				e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
				return
			}
		}
	}
}

func (e *emitter) emit(ev Event) {
	e.mu.Lock()
	snapshot := make([]listenerEntry, len(e.listeners))
	copy(snapshot, e.listeners)
	e.mu.Unlock()

	metrics.IncEvent(ev.Kind.String())
	e.running.Add(1)
	defer e.running.Add(-1)
	for _, l := range snapshot {
		l.fn(ev)
	}
}

// inListener reports whether a listener is currently running.
func (e *emitter) inListener() bool {
	return e.running.Load() > 0
}
