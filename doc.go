// Package tasks implements a task-management backend: account
// provisioning with email verification, password management, and
// per-user task lists and tasks.
//
// Registration creates the account, its profile, and the default
// "My Tasks" list inside a single transaction, then dispatches a
// short-lived one-time code through the configured Mailer. Login mints
// an HS256 bearer token that embeds the account's session epoch;
// changing the password bumps the epoch and revokes every previously
// issued token.
package tasks
