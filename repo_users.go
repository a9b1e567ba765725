package tasks

import (
	"context"
	"database/sql"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SetCredentialsSQL replaces the password hash, bumps the session
// epoch so every outstanding token dies, and clears any outstanding
// one-time code in a single statement.
var SetCredentialsSQL = `UPDATE "users" AS "usr"
SET
	"password_hash" = ?,
	"session_epoch" = "session_epoch" + 1,
	"otp_hash" = NULL,
	"otp_expires_at" = NULL,
	"updated_at" = current_timestamp
WHERE
	"usr"."deleted_at" IS NULL
AND (
	"usr"."id" = ?
) RETURNING *;`

type Users interface {
	repository.Repository[*User]

	GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*User, error)
	GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (*User, error)

	Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error)

	IssueOTP(ctx context.Context, id uuid.UUID, otpHash string, expiresAt time.Time) error
	IssueOTPTx(ctx context.Context, tx bun.IDB, id uuid.UUID, otpHash string, expiresAt time.Time) error
	MarkVerified(ctx context.Context, id uuid.UUID) error
	MarkVerifiedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error

	SetCredentials(ctx context.Context, id uuid.UUID, passwordHash string) error
	SetCredentialsTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error

	CurrentEpoch(ctx context.Context, id string) (int64, error)
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*User, error) {
	return a.GetByIdentifierTx(ctx, a.db, identifier, criteria...)
}

// GetByIdentifierTx resolves a user by email or by id, matching
// whichever shape the identifier has.
func (a *users) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (*User, error) {
	column := "id"
	value := strings.TrimSpace(identifier)

	if strings.Contains(value, "@") {
		column = "email"
		value = NormalizeEmail(value)
	}

	record := &User{}
	q := tx.NewSelect().Model(record)

	for _, c := range criteria {
		q.Apply(c)
	}

	err := q.
		Where("?TableAlias."+column+" = ?", value).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if err == sql.ErrNoRows || repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"identifier": identifier,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	prepareUserDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *users) IssueOTP(ctx context.Context, id uuid.UUID, otpHash string, expiresAt time.Time) error {
	return a.IssueOTPTx(ctx, a.db, id, otpHash, expiresAt)
}

// IssueOTPTx records a fresh one-time code, superseding any code still
// outstanding for the account.
func (a *users) IssueOTPTx(ctx context.Context, tx bun.IDB, id uuid.UUID, otpHash string, expiresAt time.Time) error {
	res, err := tx.NewUpdate().Model((*User)(nil)).
		Set("otp_hash = ?", otpHash).
		Set("otp_expires_at = ?", expiresAt).
		Set("updated_at = current_timestamp").
		Where("id = ?", id).
		Where("deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return err
	}

	return requireAffected(res, id)
}

func (a *users) MarkVerified(ctx context.Context, id uuid.UUID) error {
	return a.MarkVerifiedTx(ctx, a.db, id)
}

// MarkVerifiedTx flips the verification flag and burns the code. The
// same statement clears both OTP fields so a used code can never pass
// a second comparison.
func (a *users) MarkVerifiedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := tx.NewUpdate().Model((*User)(nil)).
		Set("is_email_verified = ?", true).
		Set("otp_hash = NULL").
		Set("otp_expires_at = NULL").
		Set("updated_at = current_timestamp").
		Where("id = ?", id).
		Where("deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return err
	}

	return requireAffected(res, id)
}

func (a *users) SetCredentials(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return a.SetCredentialsTx(ctx, a.db, id, passwordHash)
}

func (a *users) SetCredentialsTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	res, err := a.Repository.RawTx(ctx, tx, SetCredentialsSQL, passwordHash, id.String())
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

// CurrentEpoch reads the account's session epoch. Used by the token
// middleware, so it must stay a pure read.
func (a *users) CurrentEpoch(ctx context.Context, id string) (int64, error) {
	var epoch int64
	err := a.db.NewSelect().Model((*User)(nil)).
		Column("session_epoch").
		Where("id = ?", id).
		Where("deleted_at IS NULL").
		Scan(ctx, &epoch)

	if err != nil {
		if err == sql.ErrNoRows {
			return 0, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"id": id})
		}
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read session epoch")
	}

	return epoch, nil
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}
	if record.Role == "" {
		record.Role = RoleOwner
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.Email = NormalizeEmail(record.Email)
}

func requireAffected(res sql.Result, id uuid.UUID) error {
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
