package planconfirm

import "errors"

var (
	ErrFlowDone       = errors.New("planconfirm: flow already completed, start a new one")
	ErrFlowAbandoned  = errors.New("planconfirm: flow abandoned, start a new one")
	ErrSubmitInFlight = errors.New("planconfirm: submission already in progress")
	ErrNotConfirmable = errors.New("planconfirm: flow is not awaiting confirmation")
	ErrTokenMismatch  = errors.New("planconfirm: confirmation token does not match")
)
