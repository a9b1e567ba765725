package tasks

import (
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// ErrNoEmptyString is returned when a secret that must not be blank is blank
var ErrNoEmptyString = errors.New("value should not be an empty string")

// ErrMismatchedHashAndPassword is the error for a failed password comparison
var ErrMismatchedHashAndPassword = errors.New("mismatched hash and password")

// ErrInvalidCredentials deliberately covers both the unknown-account and
// the wrong-password cases so callers cannot enumerate registered emails.
var ErrInvalidCredentials = goerrors.New("invalid email or password", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode("INVALID_CREDENTIALS")

// ErrAccountNotVerified blocks login until the email was proven once.
var ErrAccountNotVerified = goerrors.New("please verify your email before logging in", goerrors.CategoryAuthz).
	WithCode(goerrors.CodeForbidden).
	WithTextCode("ACCOUNT_NOT_VERIFIED")

// ErrAccountNotFound is used where disclosing record existence is fine.
var ErrAccountNotFound = goerrors.New("account not found", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound).
	WithTextCode("ACCOUNT_NOT_FOUND")

// ErrDuplicateAccount reports a registration against an email already in use.
var ErrDuplicateAccount = goerrors.New("an account with this email already exists", goerrors.CategoryConflict).
	WithCode(goerrors.CodeBadRequest).
	WithTextCode("DUPLICATE_ACCOUNT")

// ErrAlreadyVerified rejects verification attempts on verified accounts.
var ErrAlreadyVerified = goerrors.New("account is already verified", goerrors.CategoryConflict).
	WithCode(goerrors.CodeBadRequest).
	WithTextCode("ALREADY_VERIFIED")

// ErrCodeExpired reports a one-time code submitted past its expiry.
var ErrCodeExpired = goerrors.New("verification code has expired, request a new one", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode("CODE_EXPIRED")

// ErrCodeInvalid reports a one-time code that does not match the
// outstanding issuance, or a submission when no code is outstanding.
var ErrCodeInvalid = goerrors.New("invalid verification code", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode("CODE_INVALID")

// ErrWrongPassword reports a failed current-password check on a
// password change. Distinct from login so the holder of a valid token
// gets an actionable message.
var ErrWrongPassword = goerrors.New("current password is incorrect", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode("WRONG_PASSWORD")

// ErrTokenExpired is returned by token validation for expired tokens.
var ErrTokenExpired = goerrors.New("authentication token expired", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode("TOKEN_EXPIRED")

// ErrTokenMalformed is returned for tokens we cannot parse or whose
// signature does not check out.
var ErrTokenMalformed = goerrors.New("invalid authentication token", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode("TOKEN_MALFORMED")

// ErrSessionRevoked is returned when a token's session epoch no longer
// matches the account, i.e. the password changed after issuance.
var ErrSessionRevoked = goerrors.New("session is no longer valid, sign in again", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode("SESSION_REVOKED")

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrTokenExpired) ||
		strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// IsUniqueViolation matches the driver-specific unique constraint
// errors we care about. The email unique index doubles as the guard
// against concurrent duplicate registrations, so the losing insert
// surfaces here.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
