package dynamo

import "errors"

// Sentinel errors, one per non-OK status.
var (
	// ErrInvalidArgument indicates a malformed input value (non-finite numbers,
	// non-positive dt, zero steps, missing output slots).
	ErrInvalidArgument = errors.New("dynamo: invalid argument")

	// ErrInvalidHandle indicates the reserved handle or one not present in the registry.
	ErrInvalidHandle = errors.New("dynamo: invalid handle")

	// ErrPolicyDenied indicates a well-formed request rejected by a resource limit.
	ErrPolicyDenied = errors.New("dynamo: policy denied")

	// ErrInternal indicates a lock failure or a recovered panic.
	ErrInternal = errors.New("dynamo: internal error")
)

// Error pairs a boundary status with the message read from the last-error slot.
type Error struct {
	Status  Status
	Message string
}

// NewError returns nil for StatusOK.
func NewError(status Status, message string) error {
	if status == StatusOK {
		return nil
	}
	return &Error{Status: status, Message: message}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Status.String()
	}
	return e.Status.String() + ": " + e.Message
}

func (e *Error) Unwrap() error {
	switch e.Status {
	case StatusInvalidArgument:
		return ErrInvalidArgument
	case StatusInvalidHandle:
		return ErrInvalidHandle
	case StatusPolicyDenied:
		return ErrPolicyDenied
	default:
		return ErrInternal
	}
}

// StatusOf maps an error back to a status. Errors not produced by this
// package are reported as internal.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	switch {
	case errors.Is(err, ErrInvalidArgument):
		return StatusInvalidArgument
	case errors.Is(err, ErrInvalidHandle):
		return StatusInvalidHandle
	case errors.Is(err, ErrPolicyDenied):
		return StatusPolicyDenied
	}
	return StatusInternalError
}
