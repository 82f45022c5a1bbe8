// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Podtech-AI/tabichan-go/domain"
	"github.com/Podtech-AI/tabichan-go/internal/shared"
	"github.com/containerd/errdefs"
)

// ErrTaskNotRunning is returned when a transition is applied to a task that
// is missing or already terminal.
var ErrTaskNotRunning = shared.NewClassError("task is not running", errdefs.ErrFailedPrecondition)

// Repository defines the interface for persisting sandbox tasks and conversations.
type Repository interface {
	// CreateTask inserts a new task.
	CreateTask(ctx context.Context, task *domain.Task) error

	// GetTask retrieves a task by ID. It returns nil, nil when the task does not exist.
	GetTask(ctx context.Context, taskID string) (*domain.Task, error)

	// ListDueTasks returns running tasks whose ready time is not after now, oldest first.
	ListDueTasks(ctx context.Context, now time.Time, limit int) ([]*domain.Task, error)

	// CompleteTask moves a running task to completed with the given result.
	CompleteTask(ctx context.Context, taskID string, result json.RawMessage) error

	// FailTask moves a running task to failed with the given reason.
	FailTask(ctx context.Context, taskID string, reason string) error

	// DeleteExpiredTasks removes tasks created more than ttl ago.
	DeleteExpiredTasks(ctx context.Context, ttl time.Duration) (int64, error)

	// CreateConversation records a chat request and the question asked for it.
	CreateConversation(ctx context.Context, conv *domain.Conversation) error

	// AnswerConversation stores the answer to the conversation's question.
	AnswerConversation(ctx context.Context, id string, answer string, at time.Time) error

	// ListConversations returns a user's conversations, oldest first.
	ListConversations(ctx context.Context, userID string) ([]*domain.Conversation, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
