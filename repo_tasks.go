package tasks

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TaskFilter narrows task listings.
type TaskFilter struct {
	Status          TaskStatus
	DueAfter        *time.Time
	DueBefore       *time.Time
	IncludeArchived bool
}

type Tasks interface {
	repository.Repository[*Task]

	ListByUser(ctx context.Context, userID uuid.UUID, filter TaskFilter) ([]*Task, error)
	GetOwned(ctx context.Context, id, userID uuid.UUID) (*Task, error)
	DeleteOwned(ctx context.Context, id, userID uuid.UUID) error
}

type tasksRepo struct {
	repository.Repository[*Task]
	db *bun.DB
}

var _ Tasks = (*tasksRepo)(nil)

func NewTasksRepository(db *bun.DB) Tasks {
	repo := repository.NewRepository[*Task](db, repository.ModelHandlers[*Task]{
		NewRecord: func() *Task { return &Task{} },
		GetID: func(t *Task) uuid.UUID {
			if t == nil {
				return uuid.Nil
			}
			return t.ID
		},
		SetID: func(t *Task, id uuid.UUID) {
			if t != nil {
				t.ID = id
			}
		},
	})

	return &tasksRepo{
		Repository: repo,
		db:         db,
	}
}

func (a *tasksRepo) ListByUser(ctx context.Context, userID uuid.UUID, filter TaskFilter) ([]*Task, error) {
	var records []*Task

	q := a.db.NewSelect().Model(&records).
		Where("?TableAlias.user_id = ?", userID)

	if filter.Status != "" {
		q = q.Where("?TableAlias.status = ?", filter.Status)
	}

	if filter.DueAfter != nil && filter.DueBefore != nil {
		q = q.Where("?TableAlias.due_date BETWEEN ? AND ?", filter.DueAfter, filter.DueBefore)
	}

	if !filter.IncludeArchived {
		q = q.Where("?TableAlias.is_archived = ?", false)
	}

	if err := q.Order("due_date ASC").Scan(ctx); err != nil {
		return nil, err
	}

	return records, nil
}

func (a *tasksRepo) GetOwned(ctx context.Context, id, userID uuid.UUID) (*Task, error) {
	record := &Task{}

	err := a.db.NewSelect().Model(record).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.user_id = ?", userID).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if err == sql.ErrNoRows || repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"id": id.String()})
		}
		return nil, err
	}

	return record, nil
}

func (a *tasksRepo) DeleteOwned(ctx context.Context, id, userID uuid.UUID) error {
	res, err := a.db.NewDelete().Model((*Task)(nil)).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id.String()})
	}

	return nil
}
