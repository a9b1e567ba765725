package tasks

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	// OTPLength is the number of digits in a one-time code.
	OTPLength = 6
	// RegistrationOTPTTL is how long a registration code stays valid.
	RegistrationOTPTTL = 5 * time.Minute
	// PasswordResetOTPTTL is how long a password reset code stays valid.
	PasswordResetOTPTTL = 10 * time.Minute
)

var otpCeiling = big.NewInt(1_000_000)

// IssuedCode is the one-time code as handed to the caller for
// immediate dispatch. Only the hash and expiry are ever stored.
type IssuedCode struct {
	Code      string
	Hash      string
	ExpiresAt time.Time
}

// GenerateOTP returns a zero-padded 6-digit numeric code drawn from
// crypto/rand.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpCeiling)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate verification code")
	}
	return fmt.Sprintf("%0*d", OTPLength, n.Int64()), nil
}

// IssueCode generates a fresh code with the given time to live.
func IssueCode(ttl time.Duration) (IssuedCode, error) {
	code, err := GenerateOTP()
	if err != nil {
		return IssuedCode{}, err
	}
	return IssuedCode{
		Code:      code,
		Hash:      HashOTP(code),
		ExpiresAt: time.Now().Add(ttl),
	}, nil
}

// HashOTP computes the SHA-256 digest of a code. Codes are only ever
// compared through this digest, never stored in the clear.
func HashOTP(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// VerifyOTPHash compares a submitted code against a stored digest in
// constant time.
func VerifyOTPHash(code, hash string) bool {
	if code == "" || hash == "" {
		return false
	}
	digest := HashOTP(code)
	return subtle.ConstantTimeCompare([]byte(digest), []byte(hash)) == 1
}
