package tasks_test

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	tasks "github.com/goliatone/go-tasks"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

var testDBCounter int64

// setupDB opens a fresh in-memory database with the schema applied.
// cache=shared keeps the database alive across the pooled connections
// a transaction may open.
func setupDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", atomic.AddInt64(&testDBCounter, 1))
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	require.NoError(t, tasks.CreateSchema(context.Background(), db))

	t.Cleanup(func() {
		_ = db.Close()
		_ = sqldb.Close()
	})

	return db
}

func setupRepo(t *testing.T) (tasks.RepositoryManager, *bun.DB) {
	t.Helper()
	db := setupDB(t)
	repo := tasks.NewRepositoryManager(db)
	require.NoError(t, repo.Validate())
	return repo, db
}

type sentMail struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// recordingMailer captures outgoing mail on a channel so tests can
// wait for the post-commit dispatch goroutine.
type recordingMailer struct {
	sent chan sentMail
}

func newRecordingMailer() *recordingMailer {
	return &recordingMailer{sent: make(chan sentMail, 8)}
}

func (m *recordingMailer) Send(ctx context.Context, to, subject, textBody, htmlBody string) error {
	m.sent <- sentMail{To: to, Subject: subject, Text: textBody, HTML: htmlBody}
	return nil
}

func (m *recordingMailer) waitForMail(t *testing.T) sentMail {
	t.Helper()
	select {
	case msg := <-m.sent:
		return msg
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for mail dispatch")
		return sentMail{}
	}
}

func (m *recordingMailer) assertNoMail(t *testing.T) {
	t.Helper()
	select {
	case msg := <-m.sent:
		t.Fatalf("unexpected mail to %s: %s", msg.To, msg.Subject)
	case <-time.After(200 * time.Millisecond):
	}
}

var codePattern = regexp.MustCompile(`\b(\d{6})\b`)

func extractCode(t *testing.T, body string) string {
	t.Helper()
	match := codePattern.FindStringSubmatch(body)
	require.NotNil(t, match, "mail body should carry a 6 digit code: %q", body)
	return match[1]
}

// registerAccount provisions an account through the registration
// handler and returns the response plus the code that was mailed out.
func registerAccount(t *testing.T, repo tasks.RepositoryManager, mailer *recordingMailer, name, email, password string) (*tasks.RegisterUserResponse, string) {
	t.Helper()

	var resp *tasks.RegisterUserResponse
	handler := tasks.NewRegisterUserHandler(repo, mailer)
	err := handler.Execute(context.Background(), tasks.RegisterUserMessage{
		Name:     name,
		Email:    email,
		Password: password,
		OnResponse: func(r *tasks.RegisterUserResponse) {
			resp = r
		},
	})
	require.NoError(t, err)
	require.NotNil(t, resp)

	mail := mailer.waitForMail(t)
	require.Equal(t, tasks.NormalizeEmail(email), mail.To)

	return resp, extractCode(t, mail.Text)
}

// verifiedAccount provisions and verifies an account in one step.
func verifiedAccount(t *testing.T, repo tasks.RepositoryManager, mailer *recordingMailer, email, password string) *tasks.RegisterUserResponse {
	t.Helper()

	resp, code := registerAccount(t, repo, mailer, "Test User", email, password)
	err := tasks.NewVerifyOTPHandler(repo).Execute(context.Background(), tasks.VerifyOTPMessage{
		Email: email,
		Code:  code,
	})
	require.NoError(t, err)

	return resp
}
