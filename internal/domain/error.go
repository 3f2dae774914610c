package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrInvariantViolation = errors.New("ledger invariant violated")
	ErrLockHeld           = errors.New("lock held by another worker")

	// Access
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Initiation
	ErrConfiguration        = errors.New("plan price not configured for billing interval")
	ErrInvalidPhone         = errors.New("invalid phone number")
	ErrRateLimited          = errors.New("too many payment attempts")
	ErrInitiationInProgress = errors.New("payment initiation already in progress")
	ErrProviderUnavailable  = errors.New("payment provider unavailable")
	ErrProviderRejected     = errors.New("payment provider rejected request")

	// ErrPersistenceAfterExternalSuccess means the provider accepted the push but
	// the pending subscription could not be stored. Money may be in flight with no
	// local record; callers must alert and must not retry.
	ErrPersistenceAfterExternalSuccess = errors.New("provider accepted payment but local write failed")

	// Reconciliation
	ErrUnprocessableCallback = errors.New("callback cannot be processed")
	ErrAmbiguousStatus       = errors.New("status is neither success nor failure")
	ErrNoPendingSubscription = errors.New("no matching pending subscription")
)
