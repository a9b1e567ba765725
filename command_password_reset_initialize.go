package tasks

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type InitializePasswordResetMessage struct {
	Email      string `json:"email"`
	OnResponse func(resp *InitializePasswordResetResponse)
}

func (p InitializePasswordResetMessage) Type() string { return "user.password_reset" }

type InitializePasswordResetResponse struct {
	Email   string
	Success bool
}

// InitializePasswordResetHandler issues a reset code for the account
// behind an email address. The response is shaped the same whether or
// not the account exists, so the endpoint cannot be used to probe for
// registered emails.
type InitializePasswordResetHandler struct {
	repo   RepositoryManager
	mailer Mailer
	logger Logger
}

func NewInitializePasswordResetHandler(repo RepositoryManager, mailer Mailer) *InitializePasswordResetHandler {
	if mailer == nil {
		mailer = NewLogMailer(nil)
	}
	return &InitializePasswordResetHandler{
		repo:   repo,
		mailer: mailer,
		logger: defLogger{},
	}
}

func (h *InitializePasswordResetHandler) WithLogger(logger Logger) *InitializePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	email := NormalizeEmail(event.Email)
	if email == "" {
		return goerrors.New("email is required", goerrors.CategoryValidation).
			WithTextCode("MISSING_FIELDS")
	}

	respond := func() {
		if event.OnResponse != nil {
			event.OnResponse(&InitializePasswordResetResponse{
				Email:   email,
				Success: true,
			})
		}
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	user, err := h.repo.Users().GetByIdentifier(ctx, email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			h.logger.Info("password reset requested for unknown email", "email", email)
			respond()
			return nil
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password reset")
	}

	code, err := IssueCode(PasswordResetOTPTTL)
	if err != nil {
		return err
	}

	// A fresh issuance overwrites any code still outstanding; the
	// previous one becomes unusable.
	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return h.repo.Users().IssueOTPTx(ctx, tx, user.ID, code.Hash, code.ExpiresAt)
	})
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to record password reset code")
	}

	go h.dispatchCode(user.Email, code.Code)

	respond()
	return nil
}

func (h *InitializePasswordResetHandler) dispatchCode(email, code string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	text := fmt.Sprintf("Your password reset code is %s. It expires in %d minutes.", code, int(PasswordResetOTPTTL.Minutes()))
	html := fmt.Sprintf("<p>Your password reset code is <strong>%s</strong>.</p><p>It expires in %d minutes.</p>", code, int(PasswordResetOTPTTL.Minutes()))

	if err := h.mailer.Send(ctx, email, "Reset your password", text, html); err != nil {
		h.logger.Error("failed to deliver password reset code", "email", email, "error", err)
	}
}
