package tasks

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TaskController serves the task CRUD surface, scoped to the
// authenticated owner.
type TaskController struct {
	Logger     Logger
	Repo       RepositoryManager
	ContextKey string
}

func NewTaskController(repo RepositoryManager, logger Logger, contextKey string) *TaskController {
	if logger == nil {
		logger = defLogger{}
	}
	if contextKey == "" {
		contextKey = "user"
	}
	return &TaskController{
		Logger:     logger,
		Repo:       repo,
		ContextKey: contextKey,
	}
}

func RegisterTaskRoutes(app fiber.Router, controller *TaskController, protected fiber.Handler) {
	grp := app.Group("/tasks", protected)

	grp.Get("/", controller.List)
	grp.Post("/", controller.Create)
	grp.Put("/:id", controller.Update)
	grp.Delete("/:id", controller.Delete)
}

// CreateTaskRequest payload
type CreateTaskRequest struct {
	TaskListID string `json:"task_list_id"`
	Title      string `json:"title"`
	Notes      string `json:"notes"`
	Priority   string `json:"priority"`
	DueDate    string `json:"due_date"`
}

func (r CreateTaskRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.TaskListID, validation.Required),
		validation.Field(&r.Title, validation.Required),
		validation.Field(&r.Priority, validation.In(TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh)),
	)
}

// UpdateTaskRequest payload, all fields optional
type UpdateTaskRequest struct {
	Title      *string `json:"title"`
	Notes      *string `json:"notes"`
	Status     *string `json:"status"`
	Priority   *string `json:"priority"`
	IsArchived *bool   `json:"is_archived"`
	DueDate    *string `json:"due_date"`
}

func (r UpdateTaskRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.NilOrNotEmpty),
		validation.Field(&r.Status, validation.In(TaskStatusPending, TaskStatusCompleted)),
		validation.Field(&r.Priority, validation.In(TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh)),
	)
}

func parseDueDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	due, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		due, err = time.Parse("2006-01-02", raw)
	}
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid due date")
	}
	return &due, nil
}

func (t *TaskController) List(c *fiber.Ctx) error {
	userID, err := currentUserID(c, t.ContextKey)
	if err != nil {
		return RespondError(c, t.Logger, err)
	}

	filter := TaskFilter{
		Status:          c.Query("status"),
		IncludeArchived: c.QueryBool("include_archived"),
	}

	if filter.Status != "" && filter.Status != TaskStatusPending && filter.Status != TaskStatusCompleted {
		return RespondError(c, t.Logger, goerrors.New("invalid status filter", goerrors.CategoryBadInput))
	}

	if start := c.Query("start_date"); start != "" {
		after, err := parseDueDate(start)
		if err != nil {
			return RespondError(c, t.Logger, err)
		}
		filter.DueAfter = after
	}

	if end := c.Query("end_date"); end != "" {
		before, err := parseDueDate(end)
		if err != nil {
			return RespondError(c, t.Logger, err)
		}
		filter.DueBefore = before
	}

	records, err := t.Repo.Tasks().ListByUser(c.UserContext(), userID, filter)
	if err != nil {
		return RespondError(c, t.Logger, err)
	}

	return RespondOK(c, fiber.Map{
		"count": len(records),
		"tasks": records,
	}, "")
}

func (t *TaskController) Create(c *fiber.Ctx) error {
	userID, err := currentUserID(c, t.ContextKey)
	if err != nil {
		return RespondError(c, t.Logger, err)
	}

	payload := new(CreateTaskRequest)
	if err := c.BodyParser(payload); err != nil {
		return RespondError(c, t.Logger, goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to parse request body"))
	}

	if err := payload.Validate(); err != nil {
		return RespondError(c, t.Logger, goerrors.Wrap(err, goerrors.CategoryValidation, err.Error()))
	}

	listID, err := uuid.Parse(payload.TaskListID)
	if err != nil {
		return RespondError(c, t.Logger, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid task list id"))
	}

	// The target list has to belong to the caller.
	if _, err := t.Repo.TaskLists().GetOwned(c.UserContext(), listID, userID); err != nil {
		return RespondError(c, t.Logger, err)
	}

	due, err := parseDueDate(payload.DueDate)
	if err != nil {
		return RespondError(c, t.Logger, err)
	}

	record := &Task{
		UserID:     userID,
		TaskListID: listID,
		Title:      payload.Title,
		Notes:      payload.Notes,
		Status:     TaskStatusPending,
		Priority:   payload.Priority,
		DueDate:    due,
	}

	if record.Priority == "" {
		record.Priority = TaskPriorityMedium
	}

	created, err := t.Repo.Tasks().Create(c.UserContext(), record)
	if err != nil {
		return RespondError(c, t.Logger, err)
	}

	return RespondCreated(c, created, "")
}

func (t *TaskController) Update(c *fiber.Ctx) error {
	userID, err := currentUserID(c, t.ContextKey)
	if err != nil {
		return RespondError(c, t.Logger, err)
	}

	taskID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return RespondError(c, t.Logger, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid task id"))
	}

	payload := new(UpdateTaskRequest)
	if err := c.BodyParser(payload); err != nil {
		return RespondError(c, t.Logger, goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to parse request body"))
	}

	if err := payload.Validate(); err != nil {
		return RespondError(c, t.Logger, goerrors.Wrap(err, goerrors.CategoryValidation, err.Error()))
	}

	record, err := t.Repo.Tasks().GetOwned(c.UserContext(), taskID, userID)
	if err != nil {
		return RespondError(c, t.Logger, err)
	}

	if payload.Title != nil {
		record.Title = *payload.Title
	}
	if payload.Notes != nil {
		record.Notes = *payload.Notes
	}
	if payload.Priority != nil {
		record.Priority = *payload.Priority
	}
	if payload.IsArchived != nil {
		record.IsArchived = *payload.IsArchived
	}
	if payload.DueDate != nil {
		due, err := parseDueDate(*payload.DueDate)
		if err != nil {
			return RespondError(c, t.Logger, err)
		}
		record.DueDate = due
	}
	if payload.Status != nil && *payload.Status != record.Status {
		record.Status = *payload.Status
		if record.Status == TaskStatusCompleted {
			now := time.Now()
			record.CompletedAt = &now
		} else {
			record.CompletedAt = nil
		}
	}

	updated, err := t.Repo.Tasks().Update(c.UserContext(), record)
	if err != nil {
		return RespondError(c, t.Logger, err)
	}

	return RespondOK(c, updated, "")
}

func (t *TaskController) Delete(c *fiber.Ctx) error {
	userID, err := currentUserID(c, t.ContextKey)
	if err != nil {
		return RespondError(c, t.Logger, err)
	}

	taskID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return RespondError(c, t.Logger, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid task id"))
	}

	if err := t.Repo.Tasks().DeleteOwned(c.UserContext(), taskID, userID); err != nil {
		return RespondError(c, t.Logger, err)
	}

	return RespondOK(c, nil, "Task deleted successfully.")
}
