package shared

// ClassError is a sentinel error with a fixed message that unwraps to a
// classification error, usually one of the github.com/containerd/errdefs
// classes or a context error.
type ClassError struct {
	msg   string
	class error
}

// NewClassError creates a sentinel error classified as class.
func NewClassError(msg string, class error) *ClassError {
	return &ClassError{msg: msg, class: class}
}

func (e *ClassError) Error() string {
	return e.msg
}

func (e *ClassError) Unwrap() error {
	return e.class
}
