package cancellation

import "errors"

var (
	ErrNothingToCancel = errors.New("cancellation: no subscription or trial to cancel")
	ErrCancelInFlight  = errors.New("cancellation: cancellation already in progress")
	ErrAlreadyCanceled = errors.New("cancellation: cancellation already executed")
	ErrEmptyMessage    = errors.New("cancellation: quote request message is required")
)
