package tasks

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role
type UserRole = string

const (
	// RoleGuest is an guest role (ie. view)
	RoleGuest UserRole = "guest"
	// RoleMember us a member (i.e. view, edit)
	RoleMember UserRole = "member"
	// RoleOwner is the role every self-registered account gets
	RoleOwner UserRole = "owner"
)

// VerificationState describes where an account sits in the email
// verification lifecycle.
type VerificationState = string

const (
	// VerificationPending means the account has no outstanding code
	VerificationPending VerificationState = "pending"
	// VerificationCodeOutstanding means a code was issued and not yet used
	VerificationCodeOutstanding VerificationState = "code-outstanding"
	// VerificationComplete means the email was proven once
	VerificationComplete VerificationState = "verified"
)

// DefaultTaskListTitle is the title of the list every account starts with.
const DefaultTaskListTitle = "My Tasks"

// DefaultAvatarURL is the placeholder avatar assigned to new profiles.
const DefaultAvatarURL = "https://via.placeholder.com/150"

// User is the credential record, one per account.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role          UserRole   `bun:"user_role,notnull" json:"user_role,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	EmailVerified bool       `bun:"is_email_verified" json:"is_email_verified,omitempty"`
	OTPHash       string     `bun:"otp_hash,nullzero" json:"-"`
	OTPExpiresAt  *time.Time `bun:"otp_expires_at,nullzero" json:"-"`
	SessionEpoch  int64      `bun:"session_epoch,notnull,default:0" json:"-"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// VerificationState derives the lifecycle state from the stored fields.
func (u *User) VerificationState() VerificationState {
	if u.EmailVerified {
		return VerificationComplete
	}
	if u.OTPHash != "" {
		return VerificationCodeOutstanding
	}
	return VerificationPending
}

// CodeExpired reports whether the outstanding code, if any, is past
// its expiry at the given instant.
func (u *User) CodeExpired(now time.Time) bool {
	return u.OTPExpiresAt == nil || now.After(*u.OTPExpiresAt)
}

// Identity adapts a stored user to the Identity consumed by the
// authenticator and token service.
func (u *User) Identity() Identity {
	return authIdentity{
		id:    u.ID.String(),
		email: u.Email,
		role:  string(u.Role),
		epoch: u.SessionEpoch,
	}
}

// NormalizeEmail lowercases and trims an address so it can act as the
// account's unique key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Profile holds the display fields and task stats for an account.
type Profile struct {
	bun.BaseModel  `bun:"table:profiles,alias:prf"`
	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID         uuid.UUID  `bun:"user_id,notnull,unique,type:uuid" json:"user_id,omitempty"`
	FullName       string     `bun:"full_name,notnull" json:"full_name,omitempty"`
	AvatarURL      string     `bun:"avatar_url" json:"avatar_url,omitempty"`
	Bio            string     `bun:"bio" json:"bio,omitempty"`
	Email          string     `bun:"email,notnull" json:"email,omitempty"`
	TotalTasks     int        `bun:"total_tasks,notnull,default:0" json:"total_tasks"`
	TasksCompleted int        `bun:"tasks_completed,notnull,default:0" json:"tasks_completed"`
	PendingTasks   int        `bun:"pending_tasks,notnull,default:0" json:"pending_tasks"`
	OverdueTasks   int        `bun:"overdue_tasks,notnull,default:0" json:"overdue_tasks"`
	Streak         int        `bun:"streak,notnull,default:0" json:"streak"`
	AIFeatures     bool       `bun:"ai_features,notnull,default:true" json:"ai_features"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt      *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// TaskList groups tasks. Every account owns exactly one list flagged
// as default, created during provisioning.
type TaskList struct {
	bun.BaseModel `bun:"table:task_lists,alias:tl"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	Title         string     `bun:"title,notnull" json:"title,omitempty"`
	IsDefault     bool       `bun:"is_default,notnull,default:false" json:"is_default"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// TaskStatus is the completion state of a task
type TaskStatus = string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusCompleted TaskStatus = "completed"
)

// TaskPriority orders tasks by urgency
type TaskPriority = string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

// Task is a single unit of work inside a list.
type Task struct {
	bun.BaseModel `bun:"table:tasks,alias:tsk"`
	ID            uuid.UUID    `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID    `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	TaskListID    uuid.UUID    `bun:"task_list_id,notnull,type:uuid" json:"task_list_id,omitempty"`
	Title         string       `bun:"title,notnull" json:"title,omitempty"`
	Notes         string       `bun:"notes" json:"notes,omitempty"`
	Status        TaskStatus   `bun:"status,notnull,default:'pending'" json:"status,omitempty"`
	Priority      TaskPriority `bun:"priority,notnull,default:'medium'" json:"priority,omitempty"`
	IsArchived    bool         `bun:"is_archived,notnull,default:false" json:"is_archived"`
	DueDate       *time.Time   `bun:"due_date,nullzero" json:"due_date,omitempty"`
	CompletedAt   *time.Time   `bun:"completed_at,nullzero" json:"completed_at,omitempty"`
	CreatedAt     *time.Time   `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time   `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time   `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}
