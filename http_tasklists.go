package tasks

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TaskListController serves the CRUD surface for task lists, always
// scoped to the authenticated owner.
type TaskListController struct {
	Logger     Logger
	Repo       RepositoryManager
	ContextKey string
}

func NewTaskListController(repo RepositoryManager, logger Logger, contextKey string) *TaskListController {
	if logger == nil {
		logger = defLogger{}
	}
	if contextKey == "" {
		contextKey = "user"
	}
	return &TaskListController{
		Logger:     logger,
		Repo:       repo,
		ContextKey: contextKey,
	}
}

func RegisterTaskListRoutes(app fiber.Router, controller *TaskListController, protected fiber.Handler) {
	grp := app.Group("/tasklists", protected)

	grp.Get("/", controller.List)
	grp.Post("/", controller.Create)
	grp.Put("/:id", controller.Update)
	grp.Delete("/:id", controller.Delete)
}

// CreateTaskListRequest payload
type CreateTaskListRequest struct {
	Title     string `json:"title"`
	IsDefault bool   `json:"is_default"`
}

func (r CreateTaskListRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required),
	)
}

// UpdateTaskListRequest payload
type UpdateTaskListRequest struct {
	Title     *string `json:"title"`
	IsDefault *bool   `json:"is_default"`
}

func (r UpdateTaskListRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.NilOrNotEmpty),
	)
}

func (t *TaskListController) List(c *fiber.Ctx) error {
	userID, err := currentUserID(c, t.ContextKey)
	if err != nil {
		return RespondError(c, t.Logger, err)
	}

	lists, err := t.Repo.TaskLists().ListByUser(c.UserContext(), userID)
	if err != nil {
		return RespondError(c, t.Logger, err)
	}

	return RespondOK(c, fiber.Map{
		"count": len(lists),
		"lists": lists,
	}, "")
}

func (t *TaskListController) Create(c *fiber.Ctx) error {
	userID, err := currentUserID(c, t.ContextKey)
	if err != nil {
		return RespondError(c, t.Logger, err)
	}

	payload := new(CreateTaskListRequest)
	if err := c.BodyParser(payload); err != nil {
		return RespondError(c, t.Logger, goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to parse request body"))
	}

	if err := payload.Validate(); err != nil {
		return RespondError(c, t.Logger, goerrors.Wrap(err, goerrors.CategoryValidation, err.Error()))
	}

	list := &TaskList{
		UserID:    userID,
		Title:     payload.Title,
		IsDefault: payload.IsDefault,
	}

	err = t.Repo.RunInTx(c.UserContext(), nil, func(ctx context.Context, tx bun.Tx) error {
		// Only one default list per account.
		if payload.IsDefault {
			if err := t.Repo.TaskLists().ClearDefaultTx(ctx, tx, userID); err != nil {
				return err
			}
		}
		created, err := t.Repo.TaskLists().CreateTx(ctx, tx, list)
		if err != nil {
			return err
		}
		list = created
		return nil
	})
	if err != nil {
		return RespondError(c, t.Logger, err)
	}

	return RespondCreated(c, list, "")
}

func (t *TaskListController) Update(c *fiber.Ctx) error {
	userID, err := currentUserID(c, t.ContextKey)
	if err != nil {
		return RespondError(c, t.Logger, err)
	}

	listID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return RespondError(c, t.Logger, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid task list id"))
	}

	payload := new(UpdateTaskListRequest)
	if err := c.BodyParser(payload); err != nil {
		return RespondError(c, t.Logger, goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to parse request body"))
	}

	if err := payload.Validate(); err != nil {
		return RespondError(c, t.Logger, goerrors.Wrap(err, goerrors.CategoryValidation, err.Error()))
	}

	list, err := t.Repo.TaskLists().GetOwned(c.UserContext(), listID, userID)
	if err != nil {
		return RespondError(c, t.Logger, err)
	}

	if payload.Title != nil {
		list.Title = *payload.Title
	}
	if payload.IsDefault != nil {
		list.IsDefault = *payload.IsDefault
	}

	err = t.Repo.RunInTx(c.UserContext(), nil, func(ctx context.Context, tx bun.Tx) error {
		if payload.IsDefault != nil && *payload.IsDefault {
			if err := t.Repo.TaskLists().ClearDefaultTx(ctx, tx, userID); err != nil {
				return err
			}
			list.IsDefault = true
		}
		_, err := t.Repo.TaskLists().UpdateTx(ctx, tx, list)
		return err
	})
	if err != nil {
		return RespondError(c, t.Logger, err)
	}

	return RespondOK(c, list, "")
}

func (t *TaskListController) Delete(c *fiber.Ctx) error {
	userID, err := currentUserID(c, t.ContextKey)
	if err != nil {
		return RespondError(c, t.Logger, err)
	}

	listID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return RespondError(c, t.Logger, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid task list id"))
	}

	if err := t.Repo.TaskLists().DeleteOwned(c.UserContext(), listID, userID); err != nil {
		return RespondError(c, t.Logger, err)
	}

	return RespondOK(c, nil, "Task list deleted successfully.")
}
