package core

import (
	"context"

	"github.com/KeystonCloud/satellite/internal/model"
)

// Applications persists application records.
type Applications interface {
	Create(ctx context.Context, app *model.Application) error
	GetByID(ctx context.Context, id string) (*model.Application, error)
	GetByName(ctx context.Context, name string) (*model.Application, error)
	Update(ctx context.Context, id string, patch model.ApplicationPatch) (*model.Application, error)
}

// Deployments persists deployment records. Update rejects status changes
// that would move a deployment backwards with ErrInvalidTransition.
type Deployments interface {
	Create(ctx context.Context, d *model.Deployment) error
	GetByID(ctx context.Context, id string) (*model.Deployment, error)
	Update(ctx context.Context, id string, patch model.DeploymentPatch) (*model.Deployment, error)
	ListByApp(ctx context.Context, appID string) ([]model.Deployment, error)
}

// DeploymentNodes persists per-node delivery records.
type DeploymentNodes interface {
	Create(ctx context.Context, dn *model.DeploymentNode) error
	GetByID(ctx context.Context, id string) (*model.DeploymentNode, error)
	Update(ctx context.Context, id string, patch model.DeploymentNodePatch) (*model.DeploymentNode, error)
	ListByDeployment(ctx context.Context, deploymentID string) ([]model.DeploymentNode, error)
}

// Store groups the repositories the deployment orchestrator writes through.
type Store struct {
	Applications    Applications
	Deployments     Deployments
	DeploymentNodes DeploymentNodes
}

// NewStore returns a Store backed by Postgres.
func NewStore(db DB) *Store {
	return &Store{
		Applications:    NewApplicationService(db),
		Deployments:     NewDeploymentService(db),
		DeploymentNodes: NewDeploymentNodeService(db),
	}
}
