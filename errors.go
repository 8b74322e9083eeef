package authapi

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// Text codes surfaced to API clients alongside the response envelope.
const (
	TextCodeInvalidCreds     = "INVALID_CREDENTIALS"
	TextCodeEmptyPassword    = "EMPTY_PASSWORD"
	TextCodeTokenExpired     = "TOKEN_EXPIRED"
	TextCodeTokenMalformed   = "TOKEN_MALFORMED"
	TextCodeTokenRevoked     = "TOKEN_REVOKED"
	TextCodeDuplicateEmail   = "DUPLICATE_EMAIL"
	TextCodeMailDelivery     = "MAIL_DELIVERY_FAILED"
	TextCodePasswordMismatch = "OLD_PASSWORD_MISMATCH"
)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds)

// ErrMismatchedHashAndPassword is returned when a password does not match its hash
var ErrMismatchedHashAndPassword = errors.New("the credentials provided are invalid", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds)

// ErrNoEmptyString rejects empty passwords before they reach bcrypt
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword)

// ErrTokenExpired marks tokens past their exp claim
var ErrTokenExpired = errors.New("the session token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired)

// ErrTokenMalformed marks tokens that could not be parsed or verified
var ErrTokenMalformed = errors.New("the session token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed)

// ErrTokenRevoked marks tokens whose jti was invalidated by a logout
var ErrTokenRevoked = errors.New("the session token has been invalidated", errors.CategoryAuth).
	WithTextCode(TextCodeTokenRevoked)

// ErrDuplicateEmail surfaces the store's uniqueness constraint as a conflict
var ErrDuplicateEmail = errors.New("a user with that email already exists", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateEmail)

// ErrOldPasswordMismatch rejects a password change when the current password is wrong
var ErrOldPasswordMismatch = errors.New("Old Password Not Matched", errors.CategoryBadInput).
	WithTextCode(TextCodePasswordMismatch)

// ErrMailDelivery marks a failed attempt to deliver mail to a user
var ErrMailDelivery = errors.New("Failed to send the mail", errors.CategoryAuth).
	WithTextCode(TextCodeMailDelivery)

// ErrUnableToDecodeSession unable to decode JWT claims into a session
var ErrUnableToDecodeSession = errors.New("unable to decode session", errors.CategoryAuth)

// ErrUnableToParseData parse error
var ErrUnableToParseData = errors.New("unable to parse data", errors.CategoryBadInput)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// IsDuplicateConstraintError detects store-level uniqueness violations so they
// can be surfaced as conflicts instead of generic failures.
func IsDuplicateConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDuplicateEmail) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
