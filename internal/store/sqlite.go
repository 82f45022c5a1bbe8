package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Podtech-AI/tabichan-go/domain"
	"github.com/Podtech-AI/tabichan-go/internal/shared"
	_ "modernc.org/sqlite"
)

const (
	writeAttempts   = 3
	writeRetryDelay = 50 * time.Millisecond
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS tasks (
		task_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		country TEXT NOT NULL,
		query TEXT NOT NULL,
		status TEXT NOT NULL,
		result_json TEXT,
		error TEXT,
		ready_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tasks_due ON tasks(ready_at) WHERE status = 'running';
	CREATE INDEX IF NOT EXISTS idx_tasks_created ON tasks(created_at);

	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		query TEXT NOT NULL,
		question_id TEXT NOT NULL,
		question TEXT NOT NULL,
		answer TEXT,
		answered_at INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations(user_id, created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateTask inserts a new task.
func (s *SQLiteStore) CreateTask(ctx context.Context, task *domain.Task) error {
	query := `
	INSERT INTO tasks (task_id, user_id, country, query, status, result_json, error, ready_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	err := shared.RetryOnSQLiteConflict(ctx, writeAttempts, writeRetryDelay, "create task", func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, query,
			task.TaskID, task.UserID, string(task.Country), task.Query, string(task.Status),
			nullableJSON(task.Result), nullableString(task.Error),
			task.ReadyAt.UnixMilli(), task.CreatedAt.UnixMilli(), task.UpdatedAt.UnixMilli(),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

const taskColumns = `task_id, user_id, country, query, status, result_json, error, ready_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task
	var country, status string
	var result, errText sql.NullString
	var readyAt, createdAt, updatedAt int64

	if err := row.Scan(
		&task.TaskID, &task.UserID, &country, &task.Query, &status,
		&result, &errText, &readyAt, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	task.Country = domain.Country(country)
	task.Status = domain.JobStatus(status)
	if result.Valid {
		task.Result = json.RawMessage(result.String)
	}
	task.Error = errText.String
	task.ReadyAt = time.UnixMilli(readyAt)
	task.CreatedAt = time.UnixMilli(createdAt)
	task.UpdatedAt = time.UnixMilli(updatedAt)
	return &task, nil
}

// GetTask retrieves a task by ID.
func (s *SQLiteStore) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE task_id = ?`, taskID)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan task row: %w", err)
	}
	return task, nil
}

// ListDueTasks returns running tasks that are ready to be completed.
func (s *SQLiteStore) ListDueTasks(ctx context.Context, now time.Time, limit int) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks
		WHERE status = ? AND ready_at <= ?
		ORDER BY ready_at ASC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, string(domain.JobStatusRunning), now.UnixMilli(), limit)
	if err != nil {
		return nil, fmt.Errorf("query due tasks: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close due tasks rows", "error", closeErr)
		}
	}()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan due task row: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate due tasks: %w", err)
	}
	return tasks, nil
}

// CompleteTask moves a running task to completed.
func (s *SQLiteStore) CompleteTask(ctx context.Context, taskID string, result json.RawMessage) error {
	return s.finishTask(ctx, taskID, domain.JobStatusCompleted, nullableJSON(result), nil)
}

// FailTask moves a running task to failed.
func (s *SQLiteStore) FailTask(ctx context.Context, taskID string, reason string) error {
	return s.finishTask(ctx, taskID, domain.JobStatusFailed, nil, nullableString(reason))
}

// finishTask applies a terminal status. Only running tasks are updated, so a
// task is never completed twice.
func (s *SQLiteStore) finishTask(ctx context.Context, taskID string, status domain.JobStatus, result, errText any) error {
	query := `UPDATE tasks SET status = ?, result_json = ?, error = ?, updated_at = ?
		WHERE task_id = ? AND status = ?`

	var rows int64
	err := shared.RetryOnSQLiteConflict(ctx, writeAttempts, writeRetryDelay, "finish task", func(ctx context.Context) error {
		res, err := s.db.ExecContext(ctx, query,
			string(status), result, errText, time.Now().UnixMilli(),
			taskID, string(domain.JobStatusRunning),
		)
		if err != nil {
			return err
		}
		rows, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("update task %s: %w", taskID, err)
	}
	if rows == 0 {
		slog.Warn("Task transition affected 0 rows", "task_id", taskID, "status", status)
		return fmt.Errorf("%w: %s", ErrTaskNotRunning, taskID)
	}
	return nil
}

// DeleteExpiredTasks removes tasks older than ttl.
func (s *SQLiteStore) DeleteExpiredTasks(ctx context.Context, ttl time.Duration) (int64, error) {
	threshold := time.Now().Add(-ttl).UnixMilli()
	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE created_at < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("delete expired tasks: %w", err)
	}
	return result.RowsAffected()
}

// CreateConversation records a chat request.
func (s *SQLiteStore) CreateConversation(ctx context.Context, conv *domain.Conversation) error {
	query := `
	INSERT INTO conversations (id, user_id, query, question_id, question, created_at)
	VALUES (?, ?, ?, ?, ?, ?)`

	err := shared.RetryOnSQLiteConflict(ctx, writeAttempts, writeRetryDelay, "create conversation", func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, query,
			conv.ID, conv.UserID, conv.Query, conv.QuestionID, conv.Question, conv.CreatedAt.UnixMilli(),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

// AnswerConversation stores the answer to a conversation's question.
func (s *SQLiteStore) AnswerConversation(ctx context.Context, id string, answer string, at time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET answer = ?, answered_at = ? WHERE id = ?`,
		answer, at.UnixMilli(), id,
	)
	if err != nil {
		return fmt.Errorf("answer conversation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("conversation %s not found", id)
	}
	return nil
}

// ListConversations returns a user's conversations, oldest first.
func (s *SQLiteStore) ListConversations(ctx context.Context, userID string) ([]*domain.Conversation, error) {
	query := `
		SELECT id, user_id, query, question_id, question, answer, answered_at, created_at
		FROM conversations WHERE user_id = ? ORDER BY created_at ASC, rowid ASC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close conversation rows", "error", closeErr)
		}
	}()

	var convs []*domain.Conversation
	for rows.Next() {
		var conv domain.Conversation
		var answer sql.NullString
		var answeredAt sql.NullInt64
		var createdAt int64

		if err := rows.Scan(
			&conv.ID, &conv.UserID, &conv.Query, &conv.QuestionID, &conv.Question,
			&answer, &answeredAt, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan conversation row: %w", err)
		}

		conv.Answer = answer.String
		if answeredAt.Valid {
			ts := time.UnixMilli(answeredAt.Int64)
			conv.AnsweredAt = &ts
		}
		conv.CreatedAt = time.UnixMilli(createdAt)
		convs = append(convs, &conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}
	return convs, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
