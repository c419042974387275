// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation   = errors.New("validation error")
	ErrInvalidID    = errors.New("invalid ID")
	ErrInvalidInput = errors.New("invalid input")
	ErrEmptyValue   = errors.New("value cannot be empty")

	// State errors
	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")
	ErrExpired         = errors.New("expired")

	// Authorization errors
	ErrForbidden = errors.New("forbidden")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// Invariant errors. Reserved for constraint races that a correctly
	// configured store should prevent.
	ErrInvariantViolation = errors.New("invariant violation")

	// External service errors
	ErrExternalService = errors.New("external service error")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "habitlog", "partnership", "scoring"
	Op      string // Operation that failed, e.g., "Create", "Approve"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message, safe to render to the caller
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Habit domain errors
var (
	ErrHabitNotFound     = NewDomainError("habit", "Find", ErrNotFound, "habit not found")
	ErrNotHabitOwner     = NewDomainError("habit", "CheckOwner", ErrForbidden, "habit does not belong to this user")
	ErrInvalidThresholds = NewDomainError("habit", "Validate", ErrInvalidInput, "tier thresholds must satisfy bronze < silver < gold")
	ErrInvalidHabitKind  = NewDomainError("habit", "Validate", ErrInvalidInput, "unknown habit kind")
)

// Habit log domain errors
var (
	ErrLogNotFound     = NewDomainError("habitlog", "Find", ErrNotFound, "habit log not found")
	ErrDuplicateLog    = NewDomainError("habitlog", "Create", ErrAlreadyExists, "a log already exists for this habit and date")
	ErrLogImmutable    = NewDomainError("habitlog", "Mutate", ErrForbidden, "only today's log can be changed")
	ErrNotLogOwner     = NewDomainError("habitlog", "CheckOwner", ErrForbidden, "log does not belong to this user")
	ErrPhotoUpload     = NewDomainError("habitlog", "UploadPhoto", ErrExternalService, "photo upload failed")
	ErrReviewNotOpen   = NewDomainError("habitlog", "Review", ErrForbidden, "log is not open for review")
	ErrNotPartner      = NewDomainError("habitlog", "Review", ErrForbidden, "reviewer is not the owner's active partner")
	ErrAlreadyReviewed = NewDomainError("habitlog", "Review", ErrStateTransition, "log has already been reviewed")
	ErrEmptyReason     = NewDomainError("habitlog", "Challenge", ErrEmptyValue, "a challenge requires a reason")
)

// Partnership domain errors
var (
	ErrPartnershipNotFound = NewDomainError("partnership", "Find", ErrNotFound, "partnership not found")
	ErrNotPartnershipParty = NewDomainError("partnership", "End", ErrForbidden, "caller is not a party to this partnership")
	ErrAlreadyPartnered    = NewDomainError("partnership", "Link", ErrAlreadyExists, "user already has an active partner")
	ErrInvitationNotFound  = NewDomainError("partnership", "Redeem", ErrNotFound, "no pending invitation matches this code; ask your partner for a new invite")
	ErrInvitationExpired   = NewDomainError("partnership", "Redeem", ErrExpired, "this invitation has expired; ask your partner for a new invite")
	ErrSelfRedeem          = NewDomainError("partnership", "Redeem", ErrInvalidInput, "you cannot redeem your own invitation")
)

// Profile domain errors
var (
	ErrProfileNotFound = NewDomainError("profile", "Find", ErrNotFound, "profile not found")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsForbidden checks if the error is an authorization failure.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue)
}

// IsConflict reports whether a concurrent caller won a race the current
// caller lost (duplicate log, double review, double partnership).
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrStateTransition) ||
		errors.Is(err, ErrConcurrentModification)
}
