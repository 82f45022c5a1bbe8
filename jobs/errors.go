package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/Podtech-AI/tabichan-go/domain"
	"github.com/Podtech-AI/tabichan-go/internal/shared"
	"github.com/containerd/errdefs"
)

// UnknownErrorText is reported when a failed job carries no error detail.
const UnknownErrorText = "Unknown error"

var (
	// ErrPollFailed indicates a poll request failed at the transport level.
	ErrPollFailed = errors.New("failed to poll status")
	// ErrGenerationFailed indicates the service reported the job as failed.
	ErrGenerationFailed = shared.NewClassError("generation failed", errdefs.ErrFailedPrecondition)
	// ErrUnexpectedStatus indicates the service reported a status this client does not know.
	ErrUnexpectedStatus = shared.NewClassError("unexpected status", errdefs.ErrUnknown)
	// ErrPollTimeout indicates the attempt budget ran out while the job was still running.
	ErrPollTimeout = shared.NewClassError("timeout: generation took too long", context.DeadlineExceeded)
	// ErrEmptyTaskID indicates the start response carried no task identifier.
	ErrEmptyTaskID = errors.New("empty task id in response")
)

// GenerationError is returned by Wait when the job reaches the failed status.
type GenerationError struct {
	TaskID string
	Reason string
	Poll   domain.PollResult
}

func (e *GenerationError) Error() string {
	return "generation failed: " + e.Reason
}

func (e *GenerationError) Unwrap() error {
	return ErrGenerationFailed
}

// UnexpectedStatusError is returned by Wait when the job reports an unknown status.
type UnexpectedStatusError struct {
	TaskID string
	Status domain.JobStatus
	Poll   domain.PollResult
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("unexpected status: %s", e.Status)
}

func (e *UnexpectedStatusError) Unwrap() error {
	return ErrUnexpectedStatus
}

// Retryable reports whether waiting again (or starting a new job) might
// succeed. Transport failures and timeouts are retryable; failures carried by
// the job status are not.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrGenerationFailed) || errors.Is(err, ErrUnexpectedStatus) {
		return false
	}
	return errors.Is(err, ErrPollFailed) || errors.Is(err, ErrPollTimeout)
}
