package domain

import (
	"encoding/json"
	"time"
)

// Task is a generation job tracked by the sandbox server.
type Task struct {
	TaskID    string          `json:"task_id"`
	UserID    string          `json:"user_id"`
	Country   Country         `json:"country"`
	Query     string          `json:"query"`
	Status    JobStatus       `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	ReadyAt   time.Time       `json:"ready_at"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// IsDue returns true if a running task has reached its ready time.
func (t *Task) IsDue(now time.Time) bool {
	return t.Status == JobStatusRunning && !now.Before(t.ReadyAt)
}

// PollResult returns the client-facing view of the task.
func (t *Task) PollResult() PollResult {
	res := PollResult{Status: t.Status}
	switch t.Status {
	case JobStatusCompleted:
		res.Result = t.Result
	case JobStatusFailed:
		res.Error = t.Error
	}
	return res
}

// Conversation is one chat_request handled by the sandbox WebSocket endpoint,
// together with the clarifying question asked and the answer received.
type Conversation struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Query      string     `json:"query"`
	QuestionID string     `json:"question_id"`
	Question   string     `json:"question"`
	Answer     string     `json:"answer,omitempty"`
	AnsweredAt *time.Time `json:"answered_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// IsAnswered reports whether the clarifying question received an answer.
func (c *Conversation) IsAnswered() bool {
	return c.AnsweredAt != nil
}
