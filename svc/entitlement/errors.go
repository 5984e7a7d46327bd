package entitlement

import (
	"errors"
	"fmt"

	"github.com/insightball/entitlements/pkg/entitlement"
)

// ErrDenied is the sentinel all action denials unwrap to.
var ErrDenied = errors.New("entitlement: action not allowed")

// DeniedError reports why an action gate refused, with the user-facing
// message ready for display.
type DeniedError struct {
	Reason  entitlement.DenialReason
	Message string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("entitlement: action denied (%s)", e.Reason)
}

func (e *DeniedError) Unwrap() error { return ErrDenied }

// IsDenied extracts the typed denial from an error chain.
func IsDenied(err error) (*DeniedError, bool) {
	var de *DeniedError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
