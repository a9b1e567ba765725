package tasks_test

import (
	"context"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	tasks "github.com/goliatone/go-tasks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertTextCode(t *testing.T, err error, textCode string) {
	t.Helper()
	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr), "expected a categorized error, got %v", err)
	assert.Equal(t, textCode, richErr.TextCode)
}

func TestVerifyOTPSuccess(t *testing.T) {
	repo, _ := setupRepo(t)
	mailer := newRecordingMailer()

	_, code := registerAccount(t, repo, mailer, "Alice", "alice@example.com", "Password1")

	handler := tasks.NewVerifyOTPHandler(repo)
	err := handler.Execute(context.Background(), tasks.VerifyOTPMessage{
		Email: "ALICE@example.com",
		Code:  code,
	})
	require.NoError(t, err)

	user, err := repo.Users().GetByIdentifier(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.True(t, user.EmailVerified)
	assert.Empty(t, user.OTPHash, "the code is burned on use")
	assert.Nil(t, user.OTPExpiresAt)
	assert.Equal(t, tasks.VerificationComplete, user.VerificationState())
}

func TestVerifyOTPWrongCode(t *testing.T) {
	repo, _ := setupRepo(t)
	mailer := newRecordingMailer()

	_, code := registerAccount(t, repo, mailer, "Bob", "bob@example.com", "Password1")

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	handler := tasks.NewVerifyOTPHandler(repo)
	err := handler.Execute(context.Background(), tasks.VerifyOTPMessage{Email: "bob@example.com", Code: wrong})
	assertTextCode(t, err, "CODE_INVALID")

	// A wrong submission leaves the outstanding code usable.
	err = handler.Execute(context.Background(), tasks.VerifyOTPMessage{Email: "bob@example.com", Code: code})
	require.NoError(t, err)
}

func TestVerifyOTPExpiredWinsOverCorrectness(t *testing.T) {
	repo, db := setupRepo(t)
	mailer := newRecordingMailer()

	_, code := registerAccount(t, repo, mailer, "Carol", "carol@example.com", "Password1")

	past := time.Now().Add(-time.Minute)
	_, err := db.NewUpdate().Model((*tasks.User)(nil)).
		Set("otp_expires_at = ?", past).
		Where("email = ?", "carol@example.com").
		Exec(context.Background())
	require.NoError(t, err)

	handler := tasks.NewVerifyOTPHandler(repo)

	// Correct code, stale issuance: reported as expired, not invalid.
	err = handler.Execute(context.Background(), tasks.VerifyOTPMessage{Email: "carol@example.com", Code: code})
	assertTextCode(t, err, "CODE_EXPIRED")

	user, err := repo.Users().GetByIdentifier(context.Background(), "carol@example.com")
	require.NoError(t, err)
	assert.False(t, user.EmailVerified)
}

func TestVerifyOTPAlreadyVerified(t *testing.T) {
	repo, _ := setupRepo(t)
	mailer := newRecordingMailer()

	_, code := registerAccount(t, repo, mailer, "Dan", "dan@example.com", "Password1")

	handler := tasks.NewVerifyOTPHandler(repo)
	require.NoError(t, handler.Execute(context.Background(), tasks.VerifyOTPMessage{Email: "dan@example.com", Code: code}))

	// Replaying the same code is a conflict, the code is single use.
	err := handler.Execute(context.Background(), tasks.VerifyOTPMessage{Email: "dan@example.com", Code: code})
	assertTextCode(t, err, "ALREADY_VERIFIED")
}

func TestVerifyOTPUnknownAccount(t *testing.T) {
	repo, _ := setupRepo(t)

	handler := tasks.NewVerifyOTPHandler(repo)
	err := handler.Execute(context.Background(), tasks.VerifyOTPMessage{Email: "ghost@example.com", Code: "123456"})
	assertTextCode(t, err, "ACCOUNT_NOT_FOUND")
}

func TestVerifyOTPNoOutstandingCode(t *testing.T) {
	repo, _ := setupRepo(t)
	mailer := newRecordingMailer()

	_, code := registerAccount(t, repo, mailer, "Eve", "eve@example.com", "Password1")

	handler := tasks.NewVerifyOTPHandler(repo)
	require.NoError(t, handler.Execute(context.Background(), tasks.VerifyOTPMessage{Email: "eve@example.com", Code: code}))

	// Force the account back to unverified with no code on file.
	repoUser, err := repo.Users().GetByIdentifier(context.Background(), "eve@example.com")
	require.NoError(t, err)
	repoUser.EmailVerified = false
	_, err = repo.Users().Update(context.Background(), repoUser)
	require.NoError(t, err)

	err = handler.Execute(context.Background(), tasks.VerifyOTPMessage{Email: "eve@example.com", Code: code})
	assertTextCode(t, err, "CODE_INVALID")
}
