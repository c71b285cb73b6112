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

const deploymentNodeColumns = `id, deployment_id, node_id, status, created_at, updated_at`

type DeploymentNodeService struct {
	db DB
}

func NewDeploymentNodeService(db DB) *DeploymentNodeService {
	return &DeploymentNodeService{db: db}
}

// Create inserts a delivery record. The (deployment_id, node_id) pair is
// unique, so a second record for the same pair fails.
func (s *DeploymentNodeService) Create(ctx context.Context, dn *model.DeploymentNode) error {
	if err := requireUUID("deployment", dn.DeploymentID); err != nil {
		return fmt.Errorf("create deployment node: %w", err)
	}
	if dn.ID == "" {
		dn.ID = platform.NewID()
	}
	if dn.Status == 0 {
		dn.Status = model.PinPinning
	}
	now := time.Now()
	if dn.CreatedAt.IsZero() {
		dn.CreatedAt = now
	}
	dn.UpdatedAt = dn.CreatedAt

	_, err := s.db.Exec(ctx,
		`INSERT INTO deployment_nodes (id, deployment_id, node_id, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		dn.ID, dn.DeploymentID, dn.NodeID, dn.Status.String(), dn.CreatedAt, dn.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create deployment node: %w", err)
	}
	return nil
}

func (s *DeploymentNodeService) GetByID(ctx context.Context, id string) (*model.DeploymentNode, error) {
	if err := requireUUID("deployment node", id); err != nil {
		return nil, err
	}
	dn, err := scanDeploymentNode(s.db.QueryRow(ctx,
		`SELECT `+deploymentNodeColumns+` FROM deployment_nodes WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get deployment node %s: %w", id, notFound(err))
	}
	return dn, nil
}

// Update sets the pin status. Only records still PINNING are matched, so a
// delivery record transitions at most once.
func (s *DeploymentNodeService) Update(ctx context.Context, id string, patch model.DeploymentNodePatch) (*model.DeploymentNode, error) {
	if err := requireUUID("deployment node", id); err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return nil, fmt.Errorf("update deployment node %s: %w", id, ErrEmptyPatch)
	}
	if !model.PinPinning.CanTransition(*patch.Status) {
		return nil, fmt.Errorf("update deployment node %s to %s: %w", id, *patch.Status, ErrInvalidTransition)
	}

	sql, args, err := psql.Update("deployment_nodes").
		Set("status", patch.Status.String()).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id, "status": model.PinPinning.String()}).
		Suffix("RETURNING " + deploymentNodeColumns).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build deployment node update: %w", err)
	}

	dn, err := scanDeploymentNode(s.db.QueryRow(ctx, sql, args...))
	if err == nil {
		return dn, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("update deployment node %s: %w", id, err)
	}

	current, getErr := s.GetByID(ctx, id)
	if getErr != nil {
		return nil, fmt.Errorf("update deployment node %s: %w", id, getErr)
	}
	return nil, fmt.Errorf("update deployment node %s from %s to %s: %w",
		id, current.Status, *patch.Status, ErrInvalidTransition)
}

func (s *DeploymentNodeService) ListByDeployment(ctx context.Context, deploymentID string) ([]model.DeploymentNode, error) {
	if err := requireUUID("deployment", deploymentID); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx,
		`SELECT `+deploymentNodeColumns+` FROM deployment_nodes WHERE deployment_id = $1 ORDER BY node_id`, deploymentID)
	if err != nil {
		return nil, fmt.Errorf("list deployment nodes for %s: %w", deploymentID, err)
	}
	defer rows.Close()

	var nodes []model.DeploymentNode
	for rows.Next() {
		dn, err := scanDeploymentNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deployment node: %w", err)
		}
		nodes = append(nodes, *dn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deployment nodes: %w", err)
	}
	return nodes, nil
}

func scanDeploymentNode(row pgx.Row) (*model.DeploymentNode, error) {
	var (
		dn     model.DeploymentNode
		status string
	)
	if err := row.Scan(&dn.ID, &dn.DeploymentID, &dn.NodeID, &status, &dn.CreatedAt, &dn.UpdatedAt); err != nil {
		return nil, err
	}
	if err := dn.Status.UnmarshalText([]byte(status)); err != nil {
		return nil, err
	}
	return &dn, nil
}
