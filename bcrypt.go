package tasks

import (
	"errors"
	"unicode"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the floor enforced by the strength policy.
const MinPasswordLength = 8

// HashPassword will generate a password hash
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), 14)
	return string(h), err
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}

// RandomPasswordHash is a temporary password
func RandomPasswordHash() string {
	pwd := uuid.New()

	h, err := HashPassword(pwd.String())
	if err != nil {
		return RandomPasswordHash()
	}

	return h
}

// ValidatePasswordStrength enforces the policy applied to new
// passwords on reset and change: minimum length plus at least one
// upper case letter, one lower case letter, and one digit.
func ValidatePasswordStrength(password string) error {
	if len(password) < MinPasswordLength {
		return goerrors.New("password must be at least 8 characters long", goerrors.CategoryValidation).
			WithTextCode("WEAK_PASSWORD")
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	if !hasUpper || !hasLower || !hasDigit {
		return goerrors.New("password must contain an upper case letter, a lower case letter, and a digit", goerrors.CategoryValidation).
			WithTextCode("WEAK_PASSWORD")
	}

	return nil
}
