package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/KeystonCloud/satellite/internal/model"
	"github.com/KeystonCloud/satellite/internal/platform"
)

const deploymentColumns = `id, app_id, cid, status, created_at`

var allDeploymentStatuses = []model.DeploymentStatus{
	model.DeploymentPending,
	model.DeploymentPublishing,
	model.DeploymentDeployed,
	model.DeploymentFailed,
}

type DeploymentService struct {
	db DB
}

func NewDeploymentService(db DB) *DeploymentService {
	return &DeploymentService{db: db}
}

func (s *DeploymentService) Create(ctx context.Context, d *model.Deployment) error {
	if err := requireUUID("application", d.AppID); err != nil {
		return fmt.Errorf("create deployment: %w", err)
	}
	if d.ID == "" {
		d.ID = platform.NewID()
	}
	if d.Status == 0 {
		d.Status = model.DeploymentPending
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO deployments (id, app_id, cid, status, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		d.ID, d.AppID, d.CID, d.Status.String(), d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create deployment: %w", err)
	}
	return nil
}

func (s *DeploymentService) GetByID(ctx context.Context, id string) (*model.Deployment, error) {
	if err := requireUUID("deployment", id); err != nil {
		return nil, err
	}
	d, err := scanDeployment(s.db.QueryRow(ctx,
		`SELECT `+deploymentColumns+` FROM deployments WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get deployment %s: %w", id, notFound(err))
	}
	return d, nil
}

// Update applies the populated fields of patch. A status change only matches
// rows whose current status may legally move to the new one, so two racing
// writers can never take a deployment out of a terminal state.
func (s *DeploymentService) Update(ctx context.Context, id string, patch model.DeploymentPatch) (*model.Deployment, error) {
	if err := requireUUID("deployment", id); err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return nil, fmt.Errorf("update deployment %s: %w", id, ErrEmptyPatch)
	}

	q := psql.Update("deployments").Where(squirrel.Eq{"id": id})
	if patch.CID != nil {
		q = q.Set("cid", *patch.CID)
	}
	if patch.Status != nil {
		q = q.Set("status", patch.Status.String()).
			Where(squirrel.Eq{"status": deploymentPredecessors(*patch.Status)})
	}
	sql, args, err := q.Suffix("RETURNING " + deploymentColumns).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build deployment update: %w", err)
	}

	d, err := scanDeployment(s.db.QueryRow(ctx, sql, args...))
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) || patch.Status == nil {
		return nil, fmt.Errorf("update deployment %s: %w", id, notFound(err))
	}

	// No row matched: either the deployment is gone or the transition is illegal.
	current, getErr := s.GetByID(ctx, id)
	if getErr != nil {
		return nil, fmt.Errorf("update deployment %s: %w", id, getErr)
	}
	return nil, fmt.Errorf("update deployment %s from %s to %s: %w",
		id, current.Status, *patch.Status, ErrInvalidTransition)
}

func (s *DeploymentService) ListByApp(ctx context.Context, appID string) ([]model.Deployment, error) {
	if err := requireUUID("application", appID); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx,
		`SELECT `+deploymentColumns+` FROM deployments WHERE app_id = $1 ORDER BY created_at DESC`, appID)
	if err != nil {
		return nil, fmt.Errorf("list deployments for application %s: %w", appID, err)
	}
	defer rows.Close()

	var deployments []model.Deployment
	for rows.Next() {
		d, err := scanDeployment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deployment: %w", err)
		}
		deployments = append(deployments, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deployments: %w", err)
	}
	return deployments, nil
}

func deploymentPredecessors(next model.DeploymentStatus) []string {
	var out []string
	for _, s := range allDeploymentStatuses {
		if s.CanTransition(next) {
			out = append(out, s.String())
		}
	}
	return out
}

func scanDeployment(row pgx.Row) (*model.Deployment, error) {
	var (
		d      model.Deployment
		status string
	)
	if err := row.Scan(&d.ID, &d.AppID, &d.CID, &status, &d.CreatedAt); err != nil {
		return nil, err
	}
	if err := d.Status.UnmarshalText([]byte(status)); err != nil {
		return nil, err
	}
	return &d, nil
}
