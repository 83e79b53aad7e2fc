package application

import (
	"errors"

	"github.com/oksasatya/artesanato/internal/domain/entity"
)

// RuleViolation is a business-rule failure the caller can fix by changing input.
type RuleViolation struct {
	Message string
}

func (e *RuleViolation) Error() string { return e.Message }

// AuthError is a failed credential or token check.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

var (
	ErrEmailAlreadyRegistered = &RuleViolation{Message: "email already registered"}
	ErrOwnerNotFound          = &RuleViolation{Message: "user not found"}
	ErrInvalidStatus          = &RuleViolation{Message: "invalid status value"}
	ErrInvalidKind            = &RuleViolation{Message: "invalid transaction kind"}

	ErrUserNotFound    = &AuthError{Message: "user not found"}
	ErrInvalidPassword = &AuthError{Message: "invalid password"}
	ErrInvalidToken    = &AuthError{Message: "invalid token"}
)

// Precondition errors mean the API was misused by code, not by the end user.
var (
	ErrIdentifierRequired = errors.New("identifier required")
	ErrOwnerRequired      = errors.New("owner filter required")
)

var ErrPhotoStorageDisabled = errors.New("photo storage not configured")

// ErrForbidden means the caller is authenticated but the data belongs to
// another user.
var ErrForbidden = errors.New("access denied")

// IsRuleViolation reports whether err is a client-correctable business error,
// including item validation failures.
func IsRuleViolation(err error) bool {
	var rv *RuleViolation
	var re *entity.RuleError
	return errors.As(err, &rv) || errors.As(err, &re)
}

// IsAuthError reports whether err is an authentication failure.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}
