package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/KeystonCloud/satellite/internal/platform"
)

// DB is the subset of pgxpool.Pool the services need.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidID         = errors.New("invalid identifier")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrEmptyPatch        = errors.New("empty patch")
)

func requireUUID(kind, id string) error {
	if !platform.IsID(id) {
		return fmt.Errorf("%s id %q: %w", kind, id, ErrInvalidID)
	}
	return nil
}

// notFound maps pgx.ErrNoRows onto ErrNotFound and leaves other errors as-is.
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
