package apperrors

import "errors"

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("not found")
	ErrTransient        = errors.New("transient delivery failure")
	ErrRejected         = errors.New("payload rejected")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrQueueClosed      = errors.New("work queue closed")
	ErrNoPendingJob     = errors.New("no pending job")
)

// IsRetryable reports whether a delivery error should be kept for a later replay.
// Anything that is not an explicit rejection counts as retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrRejected)
}
