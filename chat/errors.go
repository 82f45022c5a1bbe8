package chat

import (
	"context"

	"github.com/Podtech-AI/tabichan-go/internal/config"
	"github.com/Podtech-AI/tabichan-go/internal/shared"
	"github.com/containerd/errdefs"
)

var (
	// ErrMissingAPIKey is returned by New when no key is given and TABICHAN_API_KEY is unset.
	ErrMissingAPIKey = config.ErrMissingAPIKey
	// ErrNotConnected is returned by the chat helpers when the session is not connected.
	ErrNotConnected = shared.NewClassError("not connected", errdefs.ErrFailedPrecondition)
	// ErrNotOpen is returned by SendMessage when there is no open channel.
	ErrNotOpen = shared.NewClassError("websocket is not open", errdefs.ErrFailedPrecondition)
	// ErrNoActiveQuestion is returned by SendResponse when no question is outstanding.
	ErrNoActiveQuestion = shared.NewClassError("no active question to respond to", errdefs.ErrFailedPrecondition)
	// ErrInvalidState is returned by SetBaseURL while a session is live.
	ErrInvalidState = shared.NewClassError("cannot change base URL while connected", errdefs.ErrFailedPrecondition)
	// ErrConnectionTimeout is returned by Connect when the handshake does not finish in time.
	ErrConnectionTimeout = shared.NewClassError("connection timeout", context.DeadlineExceeded)
	// ErrConnectionAborted is returned by Connect when Disconnect cancels the attempt.
	ErrConnectionAborted = shared.NewClassError("connection attempt aborted", context.Canceled)
	// ErrAuthFailed is carried by the authError event when the server rejects the API key.
	ErrAuthFailed = shared.NewClassError("authentication failed: invalid API key", errdefs.ErrUnauthenticated)
	// ErrMissingUserID is returned by New when no user identifier is given.
	ErrMissingUserID = shared.NewClassError("user ID is required", errdefs.ErrInvalidArgument)
)

// MessageParseError reports an inbound frame that could not be decoded.
type MessageParseError struct {
	Raw []byte
	Err error
}

func (e *MessageParseError) Error() string {
	return "failed to parse message: " + e.Err.Error()
}

func (e *MessageParseError) Unwrap() []error {
	return []error{e.Err, errdefs.ErrInvalidArgument}
}

// ServerError is an application-level error sent by the server in an error frame.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return e.Message
}
