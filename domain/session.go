// Package domain contains core domain types shared by the Tabichan client and sandbox.
package domain

import "encoding/json"

// Country selects the regional trip-planning dataset.
type Country string

const (
	// CountryJapan is the default dataset.
	CountryJapan Country = "japan"
	// CountryFrance selects the France dataset.
	CountryFrance Country = "france"
)

// OrDefault returns c, or CountryJapan when c is empty.
func (c Country) OrDefault() Country {
	if c == "" {
		return CountryJapan
	}
	return c
}

// ChatMessage is a single prior turn passed as conversation history.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// JobStatus is the status reported by the poll endpoint.
type JobStatus string

const (
	// JobStatusRunning means the generation is still in progress.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted means a result is available.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed means the generation failed on the service side.
	JobStatusFailed JobStatus = "failed"
)

// IsTerminal reports whether polling should stop at this status.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// PollResult is the body returned by the poll endpoint.
type PollResult struct {
	Status JobStatus       `json:"status"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// StartChatRequest is the body of a job start request.
type StartChatRequest struct {
	UserQuery        string         `json:"user_query"`
	UserID           string         `json:"user_id"`
	Country          Country        `json:"country"`
	History          []ChatMessage  `json:"history"`
	AdditionalInputs map[string]any `json:"additional_inputs"`
}

// StartChatResponse is the body returned by a job start request.
type StartChatResponse struct {
	TaskID string `json:"task_id"`
}

// ImageResponse is the body returned by the image endpoint.
type ImageResponse struct {
	Base64 string `json:"base64"`
}
