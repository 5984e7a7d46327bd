package billingapi

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable wraps transport-level failures: the request may never
	// have reached the backend, and no local state changed.
	ErrUnavailable = errors.New("billingapi: backend unavailable")

	// ErrSessionExpired is returned when the backend rejects the bearer
	// token. The unauthorized hook has already fired when callers see it.
	ErrSessionExpired = errors.New("billingapi: session expired")

	// ErrStaleState marks mutations rejected because the snapshot they were
	// decided on is outdated. Resolved by refetching, never by retrying.
	ErrStaleState = errors.New("billingapi: stale subscription state")
)

// RejectionError is a backend-reported refusal (plan not eligible, already
// subscribed, …). Detail is the backend's message, shown to the user as-is.
type RejectionError struct {
	Status int
	Detail string
}

func (e *RejectionError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("billingapi: backend rejected request (%d): %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("billingapi: backend rejected request (%d)", e.Status)
}

// IsRejection reports whether err is a backend rejection and returns it.
func IsRejection(err error) (*RejectionError, bool) {
	var re *RejectionError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
