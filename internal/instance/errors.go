package instance

import "errors"

var (
	ErrRuntimeUnavailable = errors.New("container runtime unavailable")
	ErrInvalidReference   = errors.New("invalid image reference")
	ErrInvalidID          = errors.New("invalid instance id")
	ErrInvalidTeam        = errors.New("invalid team id")
	ErrUnknownImage       = errors.New("unknown challenge image")
	ErrQuotaExceeded      = errors.New("instance quota exceeded")
	ErrAlreadyRunning     = errors.New("instance already running")
	ErrCreateFailed       = errors.New("instance creation failed")
	ErrDeleteFailed       = errors.New("instance deletion failed")
	ErrNotFound           = errors.New("instance not found")
)

// Reports whether err is a policy or input rejection rather than a failure.
//
// Policy errors are expected outcomes of user requests. They are returned to
// the caller verbatim and are not logged as errors.
func IsPolicy(err error) bool {
	return errors.Is(err, ErrInvalidReference) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidTeam) ||
		errors.Is(err, ErrUnknownImage) ||
		errors.Is(err, ErrQuotaExceeded) ||
		errors.Is(err, ErrAlreadyRunning) ||
		errors.Is(err, ErrNotFound)
}
