package tasks

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type VerifyOTPMessage struct {
	Email string `json:"email"`
	Code  string `json:"otp"`
}

func (e VerifyOTPMessage) Type() string { return "user.verify_otp" }

// VerifyOTPHandler walks an account through the verification
// lifecycle: an outstanding unexpired code that matches flips the
// account to verified and burns the code; everything else leaves the
// stored state untouched.
type VerifyOTPHandler struct {
	repo   RepositoryManager
	logger Logger
}

func NewVerifyOTPHandler(repo RepositoryManager) *VerifyOTPHandler {
	return &VerifyOTPHandler{
		repo:   repo,
		logger: defLogger{},
	}
}

func (h *VerifyOTPHandler) WithLogger(logger Logger) *VerifyOTPHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *VerifyOTPHandler) Execute(ctx context.Context, event VerifyOTPMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during email verification",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *VerifyOTPHandler) execute(ctx context.Context, event VerifyOTPMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	user, err := h.repo.Users().GetByIdentifier(ctx, NormalizeEmail(event.Email))
	if err != nil {
		if goerrors.IsNotFound(err) {
			return ErrAccountNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account for verification")
	}

	if err := checkOutstandingCode(user, event.Code, time.Now()); err != nil {
		return err
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return h.repo.Users().MarkVerifiedTx(ctx, tx, user.ID)
	})
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mark account verified")
	}

	h.logger.Info("account verified", "user_id", user.ID.String())

	return nil
}

// checkOutstandingCode validates a submitted code against the stored
// issuance. Expiry wins over correctness: a stale code reports expired
// even when it matches.
func checkOutstandingCode(user *User, code string, now time.Time) error {
	if user.EmailVerified {
		return ErrAlreadyVerified
	}

	if user.OTPHash == "" {
		return ErrCodeInvalid
	}

	if user.CodeExpired(now) {
		return ErrCodeExpired
	}

	if !VerifyOTPHash(code, user.OTPHash) {
		return ErrCodeInvalid
	}

	return nil
}
