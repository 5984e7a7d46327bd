package checkout

import "errors"

var (
	ErrMissingSecretKey  = errors.New("checkout: payment processor secret key is required")
	ErrInvalidSecretKey  = errors.New("checkout: payment processor secret key has unexpected format")
	ErrInvalidSetupToken = errors.New("checkout: setup intent client secret has unexpected format")
	ErrMissingReturnURLs = errors.New("checkout: success and cancel URLs are required")
	ErrNoCheckoutURL     = errors.New("checkout: no checkout URL returned from backend")
	ErrNoPortalURL       = errors.New("checkout: no portal URL returned from backend")
)
