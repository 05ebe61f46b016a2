package engine

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"labdesk/internal/config"
	"labdesk/internal/engine/auth"
	"labdesk/internal/events"
	"labdesk/internal/repo"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Auth   auth.Service
	Config *config.Config
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Auth:   auth.Service{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) nowStr() string {
	return e.now().UTC().Format(time.RFC3339)
}

// ValidationError reports input that violates a structural invariant. It is
// always raised before any row is written.
type ValidationError struct {
	Msg string
}

func (e ValidationError) Error() string {
	return e.Msg
}

func validationf(format string, args ...any) error {
	return ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ConflictError reports an attempt to create an entity under an ID that is
// already taken.
type ConflictError struct {
	Msg string
}

func (e ConflictError) Error() string {
	return e.Msg
}

func conflictf(format string, args ...any) error {
	return ConflictError{Msg: fmt.Sprintf(format, args...)}
}

// requirePermission checks RBAC inside the mutating transaction. With no roles
// configured every actor is allowed.
func (e Engine) requirePermission(ctx context.Context, tx *sql.Tx, actorID, perm string) error {
	configured, err := e.Auth.Configured(ctx, tx)
	if err != nil {
		return err
	}
	if !configured {
		return nil
	}
	ok, err := e.Auth.ActorHasPermission(ctx, tx, actorID, perm)
	if err != nil {
		return err
	}
	if !ok {
		return auth.ForbiddenError{Permission: perm}
	}
	return nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
