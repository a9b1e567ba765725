package tasks

import (
	"context"
	"database/sql"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type TaskLists interface {
	repository.Repository[*TaskList]

	ListByUser(ctx context.Context, userID uuid.UUID) ([]*TaskList, error)
	GetOwned(ctx context.Context, id, userID uuid.UUID) (*TaskList, error)
	ClearDefault(ctx context.Context, userID uuid.UUID) error
	ClearDefaultTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error
	DeleteOwned(ctx context.Context, id, userID uuid.UUID) error
}

type taskLists struct {
	repository.Repository[*TaskList]
	db *bun.DB
}

var _ TaskLists = (*taskLists)(nil)

func NewTaskListsRepository(db *bun.DB) TaskLists {
	repo := repository.NewRepository[*TaskList](db, repository.ModelHandlers[*TaskList]{
		NewRecord: func() *TaskList { return &TaskList{} },
		GetID: func(l *TaskList) uuid.UUID {
			if l == nil {
				return uuid.Nil
			}
			return l.ID
		},
		SetID: func(l *TaskList, id uuid.UUID) {
			if l != nil {
				l.ID = id
			}
		},
	})

	return &taskLists{
		Repository: repo,
		db:         db,
	}
}

func (a *taskLists) ListByUser(ctx context.Context, userID uuid.UUID) ([]*TaskList, error) {
	var records []*TaskList

	err := a.db.NewSelect().Model(&records).
		Where("?TableAlias.user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return records, nil
}

// GetOwned fetches a list only when it belongs to the given user; a
// list owned by someone else is indistinguishable from a missing one.
func (a *taskLists) GetOwned(ctx context.Context, id, userID uuid.UUID) (*TaskList, error) {
	record := &TaskList{}

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

func (a *taskLists) ClearDefault(ctx context.Context, userID uuid.UUID) error {
	return a.ClearDefaultTx(ctx, a.db, userID)
}

// ClearDefaultTx unsets the default flag on every list the user owns,
// keeping "exactly one default list" an invariant the caller can
// restore in the same transaction.
func (a *taskLists) ClearDefaultTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	_, err := tx.NewUpdate().Model((*TaskList)(nil)).
		Set("is_default = ?", false).
		Set("updated_at = current_timestamp").
		Where("user_id = ?", userID).
		Where("is_default = ?", true).
		Where("deleted_at IS NULL").
		Exec(ctx)
	return err
}

func (a *taskLists) DeleteOwned(ctx context.Context, id, userID uuid.UUID) error {
	res, err := a.db.NewDelete().Model((*TaskList)(nil)).
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
