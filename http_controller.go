package tasks

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
)

// AuthController exposes the account lifecycle over HTTP: register,
// verify, login, and the password flows.
type AuthController struct {
	Logger        Logger
	Repo          RepositoryManager
	Auther        Authenticator
	Mailer        Mailer
	ContextKey    string
	register      *RegisterUserHandler
	verify        *VerifyOTPHandler
	resetInit     *InitializePasswordResetHandler
	resetFinalize *FinalizePasswordResetHandler
	change        *ChangePasswordHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:     defLogger{},
		ContextKey: "user",
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	c.register = NewRegisterUserHandler(c.Repo, c.Mailer).WithLogger(c.Logger)
	c.verify = NewVerifyOTPHandler(c.Repo).WithLogger(c.Logger)
	c.resetInit = NewInitializePasswordResetHandler(c.Repo, c.Mailer).WithLogger(c.Logger)
	c.resetFinalize = NewFinalizePasswordResetHandler(c.Repo).WithLogger(c.Logger)
	c.change = NewChangePasswordHandler(c.Repo).WithLogger(c.Logger)

	return c
}

func WithAuthLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithAuthRepo(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

func WithAuthAuthenticator(auther Authenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithAuthMailer(mailer Mailer) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Mailer = mailer
		return c
	}
}

func WithAuthContextKey(key string) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if key != "" {
			c.ContextKey = key
		}
		return c
	}
}

// RegisterAuthRoutes mounts the auth endpoints. The protected handler
// guards the routes that require a bearer token.
func RegisterAuthRoutes(app fiber.Router, controller *AuthController, protected fiber.Handler) {
	grp := app.Group("/auth")

	grp.Post("/register", controller.Register)
	grp.Post("/verify-otp", controller.VerifyOTP)
	grp.Post("/login", controller.Login)

	grp.Post("/forgot-password", controller.ForgotPassword)
	grp.Post("/reset-password", controller.ResetPassword)
	grp.Post("/change-password", protected, controller.ChangePassword)

	grp.Get("/verify", protected, controller.SessionCheck)
}

// RegisterRequest payload
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// VerifyOTPRequest payload
type VerifyOTPRequest struct {
	Email string `json:"email"`
	Code  string `json:"otp"`
}

func (r VerifyOTPRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Code, validation.Required, validation.Length(OTPLength, OTPLength), is.Digit),
	)
}

// ForgotPasswordRequest payload
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

func (r ForgotPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

// ResetPasswordRequest payload
type ResetPasswordRequest struct {
	Email    string `json:"email"`
	Code     string `json:"otp"`
	Password string `json:"newPassword"`
}

func (r ResetPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Code, validation.Required, validation.Length(OTPLength, OTPLength), is.Digit),
		validation.Field(&r.Password, validation.Required),
	)
}

// ChangePasswordRequest payload
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (r ChangePasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.OldPassword, validation.Required),
		validation.Field(&r.NewPassword, validation.Required),
	)
}

func (a *AuthController) Register(c *fiber.Ctx) error {
	payload := new(RegisterRequest)

	if err := c.BodyParser(payload); err != nil {
		return RespondError(c, a.Logger, goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to parse request body"))
	}

	if err := payload.Validate(); err != nil {
		return RespondError(c, a.Logger, goerrors.Wrap(err, goerrors.CategoryValidation, err.Error()))
	}

	var resp *RegisterUserResponse
	msg := RegisterUserMessage{
		Name:     payload.Name,
		Email:    payload.Email,
		Password: payload.Password,
		OnResponse: func(r *RegisterUserResponse) {
			resp = r
		},
	}

	if err := a.register.Execute(c.UserContext(), msg); err != nil {
		return RespondError(c, a.Logger, err)
	}

	a.Logger.Info("account registered", "user_id", resp.UserID.String())

	return RespondCreated(c, fiber.Map{
		"userId": resp.UserID,
		"email":  resp.Email,
	}, "Account created. Check your email for the verification code.")
}

func (a *AuthController) VerifyOTP(c *fiber.Ctx) error {
	payload := new(VerifyOTPRequest)

	if err := c.BodyParser(payload); err != nil {
		return RespondError(c, a.Logger, goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to parse request body"))
	}

	if err := payload.Validate(); err != nil {
		return RespondError(c, a.Logger, goerrors.Wrap(err, goerrors.CategoryValidation, err.Error()))
	}

	msg := VerifyOTPMessage{Email: payload.Email, Code: payload.Code}
	if err := a.verify.Execute(c.UserContext(), msg); err != nil {
		return RespondError(c, a.Logger, err)
	}

	return RespondOK(c, nil, "Email verified successfully.")
}

func (a *AuthController) Login(c *fiber.Ctx) error {
	payload := new(LoginRequest)

	if err := c.BodyParser(payload); err != nil {
		return RespondError(c, a.Logger, goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to parse request body"))
	}

	if err := payload.Validate(); err != nil {
		return RespondError(c, a.Logger, goerrors.Wrap(err, goerrors.CategoryValidation, err.Error()))
	}

	token, err := a.Auther.Login(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		return RespondError(c, a.Logger, err)
	}

	claims, err := a.Auther.SessionFromToken(token)
	if err != nil {
		return RespondError(c, a.Logger, err)
	}

	return RespondOK(c, fiber.Map{
		"token":  token,
		"userId": claims.UserID(),
	}, "")
}

func (a *AuthController) ForgotPassword(c *fiber.Ctx) error {
	payload := new(ForgotPasswordRequest)

	if err := c.BodyParser(payload); err != nil {
		return RespondError(c, a.Logger, goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to parse request body"))
	}

	if err := payload.Validate(); err != nil {
		return RespondError(c, a.Logger, goerrors.Wrap(err, goerrors.CategoryValidation, err.Error()))
	}

	msg := InitializePasswordResetMessage{Email: payload.Email}
	if err := a.resetInit.Execute(c.UserContext(), msg); err != nil {
		return RespondError(c, a.Logger, err)
	}

	return RespondOK(c, nil, "If that email is registered, a reset code has been sent.")
}

func (a *AuthController) ResetPassword(c *fiber.Ctx) error {
	payload := new(ResetPasswordRequest)

	if err := c.BodyParser(payload); err != nil {
		return RespondError(c, a.Logger, goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to parse request body"))
	}

	if err := payload.Validate(); err != nil {
		return RespondError(c, a.Logger, goerrors.Wrap(err, goerrors.CategoryValidation, err.Error()))
	}

	msg := FinalizePasswordResetMessage{
		Email:    payload.Email,
		Code:     payload.Code,
		Password: payload.Password,
	}
	if err := a.resetFinalize.Execute(c.UserContext(), msg); err != nil {
		return RespondError(c, a.Logger, err)
	}

	return RespondOK(c, nil, "Password reset successfully. Sign in with your new password.")
}

func (a *AuthController) ChangePassword(c *fiber.Ctx) error {
	claims, err := ClaimsFromContext(c, a.ContextKey)
	if err != nil {
		return RespondError(c, a.Logger, err)
	}

	payload := new(ChangePasswordRequest)

	if err := c.BodyParser(payload); err != nil {
		return RespondError(c, a.Logger, goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to parse request body"))
	}

	if err := payload.Validate(); err != nil {
		return RespondError(c, a.Logger, goerrors.Wrap(err, goerrors.CategoryValidation, err.Error()))
	}

	msg := ChangePasswordMessage{
		UserID:      claims.UserID(),
		OldPassword: payload.OldPassword,
		NewPassword: payload.NewPassword,
	}
	if err := a.change.Execute(c.UserContext(), msg); err != nil {
		return RespondError(c, a.Logger, err)
	}

	return RespondOK(c, nil, "Password changed. Sign in again with your new password.")
}

// SessionCheck confirms the presented token is still honored.
func (a *AuthController) SessionCheck(c *fiber.Ctx) error {
	claims, err := ClaimsFromContext(c, a.ContextKey)
	if err != nil {
		return RespondError(c, a.Logger, err)
	}

	return RespondOK(c, fiber.Map{
		"valid":  true,
		"userId": claims.UserID(),
	}, "")
}
