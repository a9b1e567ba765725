package tasks

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ProfileController serves the authenticated account's profile.
type ProfileController struct {
	Logger     Logger
	Repo       RepositoryManager
	ContextKey string
}

func NewProfileController(repo RepositoryManager, logger Logger, contextKey string) *ProfileController {
	if logger == nil {
		logger = defLogger{}
	}
	if contextKey == "" {
		contextKey = "user"
	}
	return &ProfileController{
		Logger:     logger,
		Repo:       repo,
		ContextKey: contextKey,
	}
}

func RegisterProfileRoutes(app fiber.Router, controller *ProfileController, protected fiber.Handler) {
	grp := app.Group("/profile", protected)

	grp.Get("/", controller.Show)
	grp.Put("/", controller.Update)
}

// UpdateProfileRequest payload. Pointers distinguish "leave alone"
// from "set to empty".
type UpdateProfileRequest struct {
	FullName  *string `json:"full_name"`
	AvatarURL *string `json:"avatar_url"`
	Bio       *string `json:"bio"`
}

func (r UpdateProfileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FullName, validation.NilOrNotEmpty),
		validation.Field(&r.Bio, validation.Length(0, 200)),
	)
}

func (p *ProfileController) Show(c *fiber.Ctx) error {
	userID, err := currentUserID(c, p.ContextKey)
	if err != nil {
		return RespondError(c, p.Logger, err)
	}

	profile, err := p.Repo.Profiles().GetByUserID(c.UserContext(), userID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return RespondError(c, p.Logger, goerrors.New("profile not found", goerrors.CategoryNotFound))
		}
		return RespondError(c, p.Logger, err)
	}

	return RespondOK(c, profile, "")
}

func (p *ProfileController) Update(c *fiber.Ctx) error {
	userID, err := currentUserID(c, p.ContextKey)
	if err != nil {
		return RespondError(c, p.Logger, err)
	}

	payload := new(UpdateProfileRequest)
	if err := c.BodyParser(payload); err != nil {
		return RespondError(c, p.Logger, goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to parse request body"))
	}

	if err := payload.Validate(); err != nil {
		return RespondError(c, p.Logger, goerrors.Wrap(err, goerrors.CategoryValidation, err.Error()))
	}

	profile, err := p.Repo.Profiles().GetByUserID(c.UserContext(), userID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return RespondError(c, p.Logger, goerrors.New("profile not found", goerrors.CategoryNotFound))
		}
		return RespondError(c, p.Logger, err)
	}

	if payload.FullName != nil {
		profile.FullName = *payload.FullName
	}
	if payload.AvatarURL != nil {
		profile.AvatarURL = *payload.AvatarURL
	}
	if payload.Bio != nil {
		profile.Bio = *payload.Bio
	}

	err = p.Repo.RunInTx(c.UserContext(), nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := p.Repo.Profiles().UpdateTx(ctx, tx, profile)
		return err
	})
	if err != nil {
		return RespondError(c, p.Logger, err)
	}

	return RespondOK(c, profile, "Profile updated.")
}

// currentUserID resolves the authenticated account from the claims the
// middleware stored on the request.
func currentUserID(c *fiber.Ctx, key string) (uuid.UUID, error) {
	claims, err := ClaimsFromContext(c, key)
	if err != nil {
		return uuid.Nil, err
	}

	id, err := uuid.Parse(claims.UserID())
	if err != nil {
		return uuid.Nil, goerrors.Wrap(err, goerrors.CategoryAuth, "invalid subject in token").
			WithCode(goerrors.CodeUnauthorized)
	}

	return id, nil
}
