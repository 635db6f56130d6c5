package models

import "errors"

var (
	// Business rejections, surfaced to the caller as-is.
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrSelfAttribution     = errors.New("source and target cards share an owner")
	ErrAlreadyPaid         = errors.New("attribution already paid")

	// Validation rejections: the caller sent something malformed.
	ErrInvalidAmount  = errors.New("amount must be positive with at most 8 decimals")
	ErrSameAccount    = errors.New("from and to must be distinct accounts")
	ErrNoAccounts     = errors.New("at least one of from/to is required")
	ErrMalformedEntry = errors.New("entry sides do not match its type")

	// Lookup failures.
	ErrAccountNotFound     = errors.New("account not found")
	ErrAttributionNotFound = errors.New("attribution not found")
	ErrCardNotFound        = errors.New("card not found")
	ErrEntryNotFound       = errors.New("ledger entry not found")

	// ErrConcurrencyConflict is transient: the ledger service retries it
	// internally with backoff before giving up.
	ErrConcurrencyConflict = errors.New("concurrent update conflict")

	// ErrDuplicateReference means an entry for (reference_id, reference_type)
	// already exists. Reward paths treat it as "already paid out".
	ErrDuplicateReference = errors.New("duplicate ledger reference")
)
