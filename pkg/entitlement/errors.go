package entitlement

import "errors"

var (
	ErrPlanNotFound             = errors.New("entitlement: plan not found")
	ErrPlanNotBillable          = errors.New("entitlement: plan is quote-only and can never be billed automatically")
	ErrInvalidPlanConfiguration = errors.New("entitlement: invalid plan configuration")
)
