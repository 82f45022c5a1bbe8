package chat

import (
	"context"

	"github.com/Podtech-AI/tabichan-go/domain"
)

// Router dispatches inbound frames of a Client and sends the conversation
// frames that depend on session state.
type Router struct {
	client *Client
}

// Dispatch classifies f and emits the matching events. Every frame is first
// emitted as EventMessage.
func (r *Router) Dispatch(f Frame) {
	c := r.client
	c.emit(Event{Kind: EventMessage, Frame: &f})

	switch f.Type {
	case FrameQuestion:
		q, err := f.Question()
		if err != nil {
			c.emit(Event{Kind: EventError, Err: err})
			return
		}
		c.setQuestion(q.ID)
		c.emit(Event{Kind: EventQuestion, Question: &q})
	case FrameResult:
		res, err := f.Result()
		if err != nil {
			c.emit(Event{Kind: EventError, Err: err})
			return
		}
		c.emit(Event{Kind: EventResult, Result: res})
	case FrameError:
		msg := f.ErrorMessage()
		c.logger.Warn("Chat error from server", "error", msg)
		c.emit(Event{Kind: EventChatError, Err: &ServerError{Message: msg}})
	case FrameComplete:
		c.clearQuestion("")
		c.emit(Event{Kind: EventComplete})
	default:
		c.logger.Debug("Unknown message type", "type", string(f.Type))
		c.emit(Event{Kind: EventUnknownMessage, Frame: &f})
	}
}

// StartChat sends a chat_request frame. It fails with ErrNotConnected before
// attempting the send when the session is not connected.
func (r *Router) StartChat(ctx context.Context, query string, history []domain.ChatMessage, preferences map[string]any) error {
	if state, _ := r.client.snapshot(); state != StateConnected {
		return ErrNotConnected
	}
	return r.client.SendMessage(ctx, NewChatRequest(query, history, preferences))
}

// SendResponse answers the outstanding question and clears it locally once
// the frame is written. The server's acknowledgment is not awaited. A failed
// write leaves the question outstanding.
func (r *Router) SendResponse(ctx context.Context, answer string) error {
	state, questionID := r.client.snapshot()
	if state != StateConnected {
		return ErrNotConnected
	}
	return r.respond(ctx, questionID, answer)
}

// Answer responds to the question with the given id, which need not be the
// outstanding one. Callers that queue questions use it to answer an earlier
// question after a newer one arrived. The outstanding question is cleared
// only when it is questionID.
func (r *Router) Answer(ctx context.Context, questionID, answer string) error {
	if state, _ := r.client.snapshot(); state != StateConnected {
		return ErrNotConnected
	}
	return r.respond(ctx, questionID, answer)
}

func (r *Router) respond(ctx context.Context, questionID, answer string) error {
	if questionID == "" {
		return ErrNoActiveQuestion
	}
	if err := r.client.SendMessage(ctx, NewResponse(questionID, answer)); err != nil {
		return err
	}
	r.client.clearQuestion(questionID)
	return nil
}
