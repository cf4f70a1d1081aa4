package services

import "errors"

// Domain error taxonomy. Handlers map these to HTTP status codes; services
// wrap them with context via fmt.Errorf("...: %w", err).
var (
	// Input validation — rejected before any persistence write.
	ErrInvalidPrice            = errors.New("price must be positive")
	ErrInvalidInstallmentCount = errors.New("invalid installment count")
	ErrInstallmentTooSmall     = errors.New("installment amount below minimum")
	ErrInvalidDiscountRange    = errors.New("discount, tax and fee percentages must be within 0-100")

	// Not found.
	ErrCourseNotFound       = errors.New("course not found")
	ErrSubscriptionNotFound = errors.New("subscription validity not found")
	ErrPlanNotFound         = errors.New("installment plan not found")
	ErrLedgerNotFound       = errors.New("user ledger not found")
	ErrOrderNotFound        = errors.New("payment order not found")
	ErrIndexOutOfRange      = errors.New("installment index out of range")

	// Integrity.
	ErrAlreadyEnrolled        = errors.New("user already enrolled in this course")
	ErrInstallmentAlreadyPaid = errors.New("installment already paid")

	// Trust boundary — fail closed, no state mutation.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrMalformedWebhook = errors.New("malformed webhook payload")
)
