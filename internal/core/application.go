package core

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/KeystonCloud/satellite/internal/model"
	"github.com/KeystonCloud/satellite/internal/platform"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

const appColumns = `id, team_id, name, key_name, ipns_name, created_at, updated_at`

type ApplicationService struct {
	db DB
}

func NewApplicationService(db DB) *ApplicationService {
	return &ApplicationService{db: db}
}

func (s *ApplicationService) Create(ctx context.Context, app *model.Application) error {
	if app.ID == "" {
		app.ID = platform.NewID()
	}
	if err := requireUUID("team", app.TeamID); err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	now := time.Now()
	if app.CreatedAt.IsZero() {
		app.CreatedAt = now
	}
	app.UpdatedAt = app.CreatedAt

	_, err := s.db.Exec(ctx,
		`INSERT INTO apps (id, team_id, name, key_name, ipns_name, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		app.ID, app.TeamID, app.Name, app.KeyName, app.IPNSName, app.CreatedAt, app.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

func (s *ApplicationService) GetByID(ctx context.Context, id string) (*model.Application, error) {
	if err := requireUUID("application", id); err != nil {
		return nil, err
	}
	app, err := scanApplication(s.db.QueryRow(ctx,
		`SELECT `+appColumns+` FROM apps WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get application %s: %w", id, notFound(err))
	}
	return app, nil
}

func (s *ApplicationService) GetByName(ctx context.Context, name string) (*model.Application, error) {
	app, err := scanApplication(s.db.QueryRow(ctx,
		`SELECT `+appColumns+` FROM apps WHERE name = $1`, name))
	if err != nil {
		return nil, fmt.Errorf("get application %q: %w", name, notFound(err))
	}
	return app, nil
}

// Update applies only the populated fields of patch and returns the updated row.
func (s *ApplicationService) Update(ctx context.Context, id string, patch model.ApplicationPatch) (*model.Application, error) {
	if err := requireUUID("application", id); err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return nil, fmt.Errorf("update application %s: %w", id, ErrEmptyPatch)
	}

	q := psql.Update("apps")
	if patch.Name != nil {
		q = q.Set("name", *patch.Name)
	}
	if patch.KeyName != nil {
		q = q.Set("key_name", *patch.KeyName)
	}
	if patch.IPNSName != nil {
		q = q.Set("ipns_name", *patch.IPNSName)
	}
	sql, args, err := q.Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING " + appColumns).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build application update: %w", err)
	}

	app, err := scanApplication(s.db.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, fmt.Errorf("update application %s: %w", id, notFound(err))
	}
	return app, nil
}

func scanApplication(row pgx.Row) (*model.Application, error) {
	var a model.Application
	if err := row.Scan(&a.ID, &a.TeamID, &a.Name, &a.KeyName, &a.IPNSName, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}
