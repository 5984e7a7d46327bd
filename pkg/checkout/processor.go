package checkout

import (
	"context"
	"errors"
	"fmt"
)

// CardDetails are the tokenized card fields handed straight to the payment
// processor. They never transit the backend API and are never logged.
type CardDetails struct {
	Number   string
	ExpMonth int64
	ExpYear  int64
	CVC      string
}

// ProcessorClient is the minimal surface of the payment processor's SDK the
// orchestrator needs: confirm a backend-issued setup intent with card fields
// and return the opaque payment-method identifier.
type ProcessorClient interface {
	ConfirmSetup(ctx context.Context, clientSecret string, card CardDetails) (paymentMethodID string, err error)
}

// CardError is a processor-reported validation or decline error. It is
// user-correctable: the product shows Message inline next to the card field,
// and nothing is invalidated because nothing changed.
type CardError struct {
	Code        string
	DeclineCode string
	Message     string
}

func (e *CardError) Error() string {
	if e.DeclineCode != "" {
		return fmt.Sprintf("checkout: card declined (%s/%s): %s", e.Code, e.DeclineCode, e.Message)
	}
	return fmt.Sprintf("checkout: card error (%s): %s", e.Code, e.Message)
}

// IsCardError reports whether err is a processor card error and returns it.
func IsCardError(err error) (*CardError, bool) {
	var ce *CardError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
