package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type RegisterUserMessage struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	OnResponse func(resp *RegisterUserResponse)
}

func (e RegisterUserMessage) Type() string { return "user.register" }

type RegisterUserResponse struct {
	UserID uuid.UUID
	Email  string
}

// RegisterUserHandler provisions a new account: the user record, its
// profile, and the default task list are written in one transaction
// together with the first verification code. The code is dispatched
// after commit, off the caller's path.
type RegisterUserHandler struct {
	repo   RepositoryManager
	mailer Mailer
	logger Logger
}

func NewRegisterUserHandler(repo RepositoryManager, mailer Mailer) *RegisterUserHandler {
	if mailer == nil {
		mailer = NewLogMailer(nil)
	}
	return &RegisterUserHandler{
		repo:   repo,
		mailer: mailer,
		logger: defLogger{},
	}
}

func (h *RegisterUserHandler) WithLogger(logger Logger) *RegisterUserHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	name := strings.TrimSpace(event.Name)
	email := NormalizeEmail(event.Email)

	if name == "" || email == "" || event.Password == "" {
		return goerrors.New("name, email and password are required", goerrors.CategoryValidation).
			WithTextCode("MISSING_FIELDS")
	}

	code, err := IssueCode(RegistrationOTPTTL)
	if err != nil {
		return err
	}

	user := &User{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := h.repo.Users().GetByIdentifierTx(ctx, tx, email); err == nil {
			return ErrDuplicateAccount
		} else if !goerrors.IsNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing account")
		}

		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.Email = email
		user.PasswordHash = hash
		user.OTPHash = code.Hash
		user.OTPExpiresAt = &code.ExpiresAt
		if id, err := hashid.NewUUID(email); err == nil {
			user.ID = id
		}

		if user, err = h.repo.Users().CreateTx(ctx, tx, user); err != nil {
			// Two registrations racing on the same email: the unique
			// index decides, the loser lands here.
			if IsUniqueViolation(err) {
				return ErrDuplicateAccount
			}
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		profile := &Profile{
			UserID:     user.ID,
			FullName:   name,
			Email:      email,
			AvatarURL:  DefaultAvatarURL,
			AIFeatures: true,
		}
		if _, err = h.repo.Profiles().CreateTx(ctx, tx, profile); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create profile")
		}

		list := &TaskList{
			UserID:    user.ID,
			Title:     DefaultTaskListTitle,
			IsDefault: true,
		}
		if _, err = h.repo.TaskLists().CreateTx(ctx, tx, list); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create default task list")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	go h.dispatchCode(user.Email, code.Code)

	if event.OnResponse != nil {
		event.OnResponse(&RegisterUserResponse{
			UserID: user.ID,
			Email:  user.Email,
		})
	}

	return nil
}

// dispatchCode runs after commit on its own context: a slow or broken
// gateway must never fail or stall the registration response.
func (h *RegisterUserHandler) dispatchCode(email, code string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	text := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, int(RegistrationOTPTTL.Minutes()))
	html := fmt.Sprintf("<p>Your verification code is <strong>%s</strong>.</p><p>It expires in %d minutes.</p>", code, int(RegistrationOTPTTL.Minutes()))

	if err := h.mailer.Send(ctx, email, "Verify your email", text, html); err != nil {
		h.logger.Error("failed to deliver verification code", "email", email, "error", err)
	}
}
