// Package jobs drives the asynchronous chat job transport: start a
// generation, poll its status, and wait for its result.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/Podtech-AI/tabichan-go/domain"
	"github.com/Podtech-AI/tabichan-go/internal/metrics"
	"github.com/Podtech-AI/tabichan-go/rest"
)

const (
	// MaxAttempts is the number of polls Wait performs before giving up.
	MaxAttempts = 30
	// PollInterval is the pause between two polls. Together with MaxAttempts
	// it caps Wait at five minutes.
	PollInterval = 10 * time.Second

	startTimeout = 3 * time.Second
	pollTimeout  = 5 * time.Second
	imageTimeout = 30 * time.Second
)

// Progress is reported by Wait for every poll that finds the job still running.
type Progress struct {
	TaskID      string
	Attempt     int // 1-based
	MaxAttempts int
}

// Poller starts chat jobs and waits for their results.
type Poller struct {
	doer   rest.Doer
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// Option configures a Poller.
type Option func(*Poller)

// WithLogger sets the logger used for verbose progress output.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Poller) { p.logger = logger }
}

// NewPoller creates a poller on top of a unary transport.
func NewPoller(doer rest.Doer, opts ...Option) *Poller {
	p := &Poller{
		doer:  doer,
		sleep: sleepContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Start submits a new generation and returns its task identifier.
// An empty country defaults to japan.
func (p *Poller) Start(ctx context.Context, query, userID string, country domain.Country, history []domain.ChatMessage, extra map[string]any) (string, error) {
	if history == nil {
		history = []domain.ChatMessage{}
	}
	if extra == nil {
		extra = map[string]any{}
	}

	resp, err := p.doer.Do(ctx, rest.Request{
		Method: http.MethodPost,
		Path:   "/chat",
		Body: domain.StartChatRequest{
			UserQuery:        query,
			UserID:           userID,
			Country:          country.OrDefault(),
			History:          history,
			AdditionalInputs: extra,
		},
		Timeout: startTimeout,
	})
	if err != nil {
		return "", err
	}

	var out domain.StartChatResponse
	if err := resp.Decode(&out); err != nil {
		return "", err
	}
	if out.TaskID == "" {
		return "", ErrEmptyTaskID
	}
	return out.TaskID, nil
}

// Poll reads the current status of a task once. It never retries.
func (p *Poller) Poll(ctx context.Context, taskID string) (domain.PollResult, error) {
	resp, err := p.doer.Do(ctx, rest.Request{
		Method:  http.MethodGet,
		Path:    "/chat/poll",
		Query:   url.Values{"task_id": {taskID}},
		Timeout: pollTimeout,
	})
	if err != nil {
		metrics.ObservePoll("transport_error")
		return domain.PollResult{}, err
	}

	var res domain.PollResult
	if err := resp.Decode(&res); err != nil {
		metrics.ObservePoll("transport_error")
		return domain.PollResult{}, err
	}
	metrics.ObservePoll(string(res.Status))
	return res, nil
}

// WaitOption configures a single Wait call.
type WaitOption func(*waitConfig)

type waitConfig struct {
	verbose  bool
	progress func(Progress)
}

// WithVerbose logs progress and completion at info level.
func WithVerbose() WaitOption {
	return func(c *waitConfig) { c.verbose = true }
}

// WithProgress registers a callback invoked for every running poll.
func WithProgress(fn func(Progress)) WaitOption {
	return func(c *waitConfig) { c.progress = fn }
}

// Wait polls taskID until it completes and returns the result payload.
//
// A failed job yields a *GenerationError, an unknown status an
// *UnexpectedStatusError; neither is retried. A transport failure is wrapped
// in ErrPollFailed. If the job is still running after MaxAttempts polls,
// Wait returns ErrPollTimeout.
func (p *Poller) Wait(ctx context.Context, taskID string, opts ...WaitOption) (json.RawMessage, error) {
	var cfg waitConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := p.logger.With("task_id", taskID)

	for attempt := 0; attempt < MaxAttempts; {
		res, err := p.Poll(ctx, taskID)
		if err != nil {
			metrics.ObserveWait("poll_error")
			return nil, fmt.Errorf("%w: %w", ErrPollFailed, err)
		}

		if res.Status.IsTerminal() {
			return terminalResult(logger, taskID, res, cfg.verbose)
		}
		if res.Status != domain.JobStatusRunning {
			metrics.ObserveWait("unexpected_status")
			return nil, &UnexpectedStatusError{TaskID: taskID, Status: res.Status, Poll: res}
		}
		if cfg.verbose {
			logger.Info("Generation still running", "attempt", attempt+1, "max_attempts", MaxAttempts)
		}
		if cfg.progress != nil {
			cfg.progress(Progress{TaskID: taskID, Attempt: attempt + 1, MaxAttempts: MaxAttempts})
		}

		attempt++
		if attempt < MaxAttempts {
			if err := p.sleep(ctx, PollInterval); err != nil {
				metrics.ObserveWait("canceled")
				return nil, err
			}
		}
	}

	metrics.ObserveWait("timeout")
	return nil, ErrPollTimeout
}

// terminalResult turns a completed or failed poll into Wait's return values.
func terminalResult(logger *slog.Logger, taskID string, res domain.PollResult, verbose bool) (json.RawMessage, error) {
	if res.Status == domain.JobStatusFailed {
		reason := res.Error
		if reason == "" {
			reason = UnknownErrorText
		}
		metrics.ObserveWait("failed")
		return nil, &GenerationError{TaskID: taskID, Reason: reason, Poll: res}
	}
	if verbose {
		logger.Info("Generation complete")
	}
	metrics.ObserveWait("completed")
	return res.Result, nil
}

// Image fetches a base64-encoded image by identifier.
func (p *Poller) Image(ctx context.Context, id string, country domain.Country) (string, error) {
	resp, err := p.doer.Do(ctx, rest.Request{
		Method:  http.MethodGet,
		Path:    "/image",
		Query:   url.Values{"id": {id}, "country": {string(country.OrDefault())}},
		Timeout: imageTimeout,
	})
	if err != nil {
		return "", err
	}

	var out domain.ImageResponse
	if err := resp.Decode(&out); err != nil {
		return "", err
	}
	return out.Base64, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
