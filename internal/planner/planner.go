// Package planner is the sandbox generation engine. It accepts chat jobs,
// completes them after a configurable delay, and expires old jobs.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Podtech-AI/tabichan-go/domain"
	"github.com/Podtech-AI/tabichan-go/internal/metrics"
	"github.com/Podtech-AI/tabichan-go/internal/shared"
	"github.com/Podtech-AI/tabichan-go/internal/store"
	"github.com/containerd/errdefs"
	"github.com/google/uuid"
)

const (
	processInterval = time.Second
	sweepInterval   = 5 * time.Minute
	batchSize       = 100

	failureKeyword = "fail"
)

var (
	// ErrTaskNotFound is returned by Poll for an unknown task.
	ErrTaskNotFound = shared.NewClassError("task not found", errdefs.ErrNotFound)
	// ErrEmptyQuery is returned by Submit when the request has no query.
	ErrEmptyQuery = shared.NewClassError("user_query is required", errdefs.ErrInvalidArgument)
)

// Planner schedules and completes sandbox tasks.
type Planner struct {
	repo   store.Repository
	delay  time.Duration
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Planner.
type Option func(*Planner)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Planner) { p.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Planner) { p.logger = logger }
}

// New creates a planner. Tasks become ready delay after submission and are
// deleted ttl after creation.
func New(repo store.Repository, delay, ttl time.Duration, opts ...Option) *Planner {
	p := &Planner{
		repo:  repo,
		delay: delay,
		ttl:   ttl,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Submit creates a running task for req.
func (p *Planner) Submit(ctx context.Context, req domain.StartChatRequest) (*domain.Task, error) {
	if strings.TrimSpace(req.UserQuery) == "" {
		return nil, ErrEmptyQuery
	}

	now := p.now()
	task := &domain.Task{
		TaskID:    uuid.NewString(),
		UserID:    req.UserID,
		Country:   req.Country.OrDefault(),
		Query:     req.UserQuery,
		Status:    domain.JobStatusRunning,
		ReadyAt:   now.Add(p.delay),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := p.repo.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	metrics.IncSandboxTask(string(domain.JobStatusRunning))
	p.logger.Info("Task submitted", "task_id", task.TaskID, "user_id", task.UserID, "ready_at", task.ReadyAt)
	return task, nil
}

// Poll returns the client-facing status of a task. A running task whose
// ready time has passed is finished first, so callers never wait on the
// worker tick.
func (p *Planner) Poll(ctx context.Context, taskID string) (domain.PollResult, error) {
	task, err := p.getTask(ctx, taskID)
	if err != nil {
		return domain.PollResult{}, err
	}
	if !task.IsDue(p.now()) {
		return task.PollResult(), nil
	}

	if err := p.finish(ctx, task); err != nil && !errors.Is(err, store.ErrTaskNotRunning) {
		return domain.PollResult{}, fmt.Errorf("finish task: %w", err)
	}
	if task, err = p.getTask(ctx, taskID); err != nil {
		return domain.PollResult{}, err
	}
	return task.PollResult(), nil
}

func (p *Planner) getTask(ctx context.Context, taskID string) (*domain.Task, error) {
	task, err := p.repo.GetTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

// ProcessDue completes every task whose ready time has passed and returns the
// number of tasks finished.
func (p *Planner) ProcessDue(ctx context.Context) (int, error) {
	due, err := p.repo.ListDueTasks(ctx, p.now(), batchSize)
	if err != nil {
		return 0, fmt.Errorf("list due tasks: %w", err)
	}

	finished := 0
	for _, task := range due {
		if err := p.finish(ctx, task); err != nil {
			if errors.Is(err, store.ErrTaskNotRunning) {
				continue
			}
			p.logger.Error("Failed to finish task", "task_id", task.TaskID, "error", err)
			continue
		}
		finished++
	}
	return finished, nil
}

func (p *Planner) finish(ctx context.Context, task *domain.Task) error {
	if strings.Contains(strings.ToLower(task.Query), failureKeyword) {
		if err := p.repo.FailTask(ctx, task.TaskID, "could not build an itinerary for this request"); err != nil {
			return err
		}
		metrics.IncSandboxTask(string(domain.JobStatusFailed))
		p.logger.Info("Task failed", "task_id", task.TaskID)
		return nil
	}

	result := BuildItinerary(task.Query, task.Country, "")
	if err := p.repo.CompleteTask(ctx, task.TaskID, result); err != nil {
		return err
	}
	metrics.IncSandboxTask(string(domain.JobStatusCompleted))
	p.logger.Info("Task completed", "task_id", task.TaskID)
	return nil
}

// Sweep deletes expired tasks.
func (p *Planner) Sweep(ctx context.Context) (int64, error) {
	deleted, err := p.repo.DeleteExpiredTasks(ctx, p.ttl)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		p.logger.Info("Planner worker expired tasks", "count", deleted, "ttl", p.ttl)
	}
	return deleted, nil
}

// Start runs the background worker until ctx is canceled.
func (p *Planner) Start(ctx context.Context) {
	process := time.NewTicker(processInterval)
	sweep := time.NewTicker(sweepInterval)
	go func() {
		defer process.Stop()
		defer sweep.Stop()
		p.logger.Info("Planner worker started", "interval", processInterval, "delay", p.delay, "ttl", p.ttl)

		for {
			select {
			case <-process.C:
				if _, err := p.ProcessDue(ctx); err != nil {
					p.logger.Error("Planner worker failed to process tasks", "error", err)
				}
			case <-sweep.C:
				if _, err := p.Sweep(ctx); err != nil {
					p.logger.Error("Planner worker failed to expire tasks", "error", err)
				}
			case <-ctx.Done():
				p.logger.Info("Planner worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
