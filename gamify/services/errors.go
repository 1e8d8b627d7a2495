package services

import "errors"

// Engine error kinds. The HTTP layer maps these to status codes and localized
// messages; the engine never formats user-facing text. Rate-limited crisis
// bonuses are NOT errors: the resolution succeeds with zero XP and a reason
// code on the outcome.
var (
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("assignment does not belong to caller")
	ErrInvalidAmount       = errors.New("amount must be a positive integer")
	ErrInsufficientBalance = errors.New("debit would drive balance negative")
	ErrAlreadyClaimed      = errors.New("reward already claimed")
	ErrNotCompleted        = errors.New("quest not completed")
	ErrExpired             = errors.New("quest assignment expired")
	ErrInvalidMilestone    = errors.New("no milestone matches requested streak")
)
