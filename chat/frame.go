package chat

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Podtech-AI/tabichan-go/domain"
)

// FrameType is the "type" field of a frame.
type FrameType string

const (
	FrameQuestion    FrameType = "question"
	FrameResult      FrameType = "result"
	FrameError       FrameType = "error"
	FrameComplete    FrameType = "complete"
	FrameChatRequest FrameType = "chat_request"
	FrameResponse    FrameType = "response"
)

// Frame is the envelope of a server-to-client message.
type Frame struct {
	Type FrameType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`

	// Raw is the frame as received.
	Raw json.RawMessage `json:"-"`
}

// Question is the payload of a question frame.
type Question struct {
	ID   string `json:"question_id"`
	Text string `json:"question"`
}

type resultData struct {
	Result json.RawMessage `json:"result"`
}

// NewFrame builds an outbound envelope with data encoded as JSON. A nil
// data produces a frame without payload.
func NewFrame(t FrameType, data any) (Frame, error) {
	f := Frame{Type: t}
	if data == nil {
		return f, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Frame{}, fmt.Errorf("encode %s frame: %w", t, err)
	}
	f.Data = raw
	return f, nil
}

// NewResultFrame wraps result in a result frame.
func NewResultFrame(result json.RawMessage) (Frame, error) {
	return NewFrame(FrameResult, resultData{Result: result})
}

// DecodeFrame parses one inbound message. Only invalid JSON is an error. A
// frame without a string "type", or one that is not a JSON object, decodes
// with an empty Type and is routed as unknown.
func DecodeFrame(data []byte) (Frame, error) {
	if !json.Valid(data) {
		var v any
		err := json.Unmarshal(data, &v)
		if err == nil {
			err = errors.New("invalid JSON")
		}
		return Frame{}, &MessageParseError{Raw: data, Err: err}
	}

	f := Frame{Raw: append(json.RawMessage(nil), data...)}
	var env struct {
		Type json.RawMessage `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return f, nil
	}
	var t string
	if err := json.Unmarshal(env.Type, &t); err == nil {
		f.Type = FrameType(t)
	}
	f.Data = env.Data
	return f, nil
}

// Question decodes the payload of a question frame.
func (f Frame) Question() (Question, error) {
	var q Question
	if err := json.Unmarshal(f.Data, &q); err != nil {
		return Question{}, &MessageParseError{Raw: f.Raw, Err: err}
	}
	return q, nil
}

// Result decodes the payload of a result frame. A frame without data has a
// nil result.
func (f Frame) Result() (json.RawMessage, error) {
	if len(f.Data) == 0 {
		return nil, nil
	}
	var r resultData
	if err := json.Unmarshal(f.Data, &r); err != nil {
		return nil, &MessageParseError{Raw: f.Raw, Err: err}
	}
	return r.Result, nil
}

// ErrorMessage returns the message of an error frame. Servers send a plain
// string; anything else is returned verbatim.
func (f Frame) ErrorMessage() string {
	var msg string
	if err := json.Unmarshal(f.Data, &msg); err == nil {
		return msg
	}
	return string(f.Data)
}

// ChatRequest starts a conversation.
type ChatRequest struct {
	Type        FrameType            `json:"type"`
	Query       string               `json:"query"`
	History     []domain.ChatMessage `json:"history"`
	Preferences map[string]any       `json:"preferences"`
}

// NewChatRequest builds a chat_request frame. Nil history and preferences
// are sent as empty values.
func NewChatRequest(query string, history []domain.ChatMessage, preferences map[string]any) ChatRequest {
	if history == nil {
		history = []domain.ChatMessage{}
	}
	if preferences == nil {
		preferences = map[string]any{}
	}
	return ChatRequest{Type: FrameChatRequest, Query: query, History: history, Preferences: preferences}
}

// Response answers an outstanding question.
type Response struct {
	Type       FrameType `json:"type"`
	QuestionID string    `json:"question_id"`
	Response   string    `json:"response"`
}

// NewResponse builds a response frame.
func NewResponse(questionID, answer string) Response {
	return Response{Type: FrameResponse, QuestionID: questionID, Response: answer}
}
