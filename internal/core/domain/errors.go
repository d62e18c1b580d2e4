package domain

import (
	"errors"
	"fmt"
)

// Common domain errors
var (
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInternalServer     = errors.New("internal server error")
	ErrDuplicateEntry     = errors.New("duplicate entry")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("token invalid")
)

// Lending errors
var (
	ErrUnauthenticated = errors.New("patron identity required")
	ErrNotOwner        = errors.New("loan belongs to another patron")
	ErrBookNotFound    = errors.New("book not found")
	ErrBookInactive    = errors.New("book is not active")
	ErrNotAvailable    = errors.New("no copies available")
	ErrLimitReached    = errors.New("borrow limit reached")
	ErrDuplicateLoan   = errors.New("patron already holds an open loan for this book")
	ErrLoanNotFound    = errors.New("loan not found")
	ErrAlreadyReturned = errors.New("loan already returned")
	ErrRenewalDenied   = errors.New("renewal not allowed")
	ErrBelowBorrowed   = errors.New("total copies cannot go below borrowed count")
	ErrValidation      = errors.New("validation failed")
	ErrUnavailable     = errors.New("storage contention, try again")
)

// UserErrors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrDuplicateRegNumber = errors.New("registration number already in use")
	ErrLastAdmin          = errors.New("cannot demote the last admin")
)

// ErrConsistencyFault marks a broken storage invariant. It is fatal for
// the operation that detected it and must never be swallowed.
var ErrConsistencyFault = errors.New("consistency fault")

// ConsistencyFault builds an ErrConsistencyFault with detail about the
// violated invariant.
func ConsistencyFault(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConsistencyFault, fmt.Sprintf(format, args...))
}
