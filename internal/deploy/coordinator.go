// Package deploy turns uploaded content into a published deployment: it
// stores the content, keeps each application's naming key, points the
// application's name at the new content and fans the content out to live
// nodes. Outcomes of the asynchronous steps are written to the store.
package deploy

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/KeystonCloud/satellite/internal/core"
	"github.com/KeystonCloud/satellite/internal/metrics"
	"github.com/KeystonCloud/satellite/internal/model"
	"github.com/KeystonCloud/satellite/internal/registry"
)

// TaskRunner runs detached work. *worker.Supervisor satisfies it.
type TaskRunner interface {
	Go(name string, fn func(ctx context.Context) error) error
}

// DeployRequest is one upload. AppID is optional; without it the
// application is looked up by Name and created when missing.
type DeployRequest struct {
	AppID   string
	TeamID  string
	Name    string
	Content []byte
}

// Config wires a Coordinator.
type Config struct {
	Store     *core.Store
	Publisher *Publisher
	Nodes     NodeSource
	Policy    SelectionPolicy
	Deployer  NodeDeployer
	Tasks     TaskRunner
	Registry  *registry.Registry
	// Directory mirrors registrations when set.
	Directory NodeDirectory
	Timeouts  Timeouts
	Logger    zerolog.Logger
}

type Coordinator struct {
	store     *core.Store
	publisher *Publisher
	nodes     NodeSource
	policy    SelectionPolicy
	deployer  NodeDeployer
	tasks     TaskRunner
	registry  *registry.Registry
	directory NodeDirectory
	timeouts  Timeouts
	logger    zerolog.Logger
}

func NewCoordinator(cfg Config) *Coordinator {
	policy := cfg.Policy
	if policy == nil {
		policy = SelectAll
	}
	return &Coordinator{
		store:     cfg.Store,
		publisher: cfg.Publisher,
		nodes:     cfg.Nodes,
		policy:    policy,
		deployer:  cfg.Deployer,
		tasks:     cfg.Tasks,
		registry:  cfg.Registry,
		directory: cfg.Directory,
		timeouts:  cfg.Timeouts,
		logger:    cfg.Logger.With().Str("component", "coordinator").Logger(),
	}
}

// Deploy stores the content, records a PUBLISHING deployment and returns it
// without waiting for name publication or node delivery. Those run as
// detached tasks and write their outcome to the store. An error is returned
// only when no deployment could be recorded.
func (c *Coordinator) Deploy(ctx context.Context, req DeployRequest) (*model.Deployment, error) {
	app, err := c.resolveApp(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("resolve application: %w", err)
	}

	cid, err := c.publisher.AddContent(ctx, req.Content)
	if err != nil {
		metrics.DeploymentsTotal.WithLabelValues("aborted").Inc()
		return nil, err
	}

	dep := &model.Deployment{AppID: app.ID, CID: cid, Status: model.DeploymentPending}
	if err := c.store.Deployments.Create(ctx, dep); err != nil {
		return nil, err
	}
	pendingID := dep.ID
	dep, err = c.store.Deployments.Update(ctx, pendingID, model.DeploymentPatch{Status: model.Ptr(model.DeploymentPublishing)})
	if err != nil {
		c.logger.Error().Err(err).
			Str("deployment_id", pendingID).
			Str("app", app.Name).
			Str("cid", cid).
			Msg("deployment left pending, no publication or delivery scheduled")
		return nil, fmt.Errorf("mark deployment %s publishing: %w", pendingID, err)
	}

	logger := c.logger.With().Str("deployment_id", dep.ID).Str("app", app.Name).Str("cid", cid).Logger()
	logger.Info().Msg("deployment publishing")

	key, err := c.publisher.FindOrCreateKey(ctx, app.Name)
	hasKey := err == nil
	if err != nil {
		logger.Error().Err(err).Msg("naming key unavailable, content stays reachable by cid")
	} else if app.KeyName == nil || *app.KeyName != key.Name {
		if _, err := c.store.Applications.Update(ctx, app.ID, model.ApplicationPatch{KeyName: model.Ptr(key.Name)}); err != nil {
			logger.Error().Err(err).Msg("failed to record naming key")
		}
	}

	depID := dep.ID
	if err := c.tasks.Go("publish-name:"+depID, func(ctx context.Context) error {
		return c.publishName(ctx, logger, app, depID, cid, key, hasKey)
	}); err != nil {
		logger.Error().Err(err).Msg("failed to schedule name publication")
		c.finish(ctx, logger, depID, model.DeploymentFailed)
	}

	for _, node := range c.selectTargets(ctx, logger) {
		if err := c.tasks.Go("deliver:"+depID+":"+node.ID, func(ctx context.Context) error {
			return c.deliver(ctx, logger, app.Name, depID, cid, node)
		}); err != nil {
			logger.Error().Err(err).Str("node_id", node.ID).Msg("failed to schedule node delivery")
		}
	}

	return dep, nil
}

// resolveApp finds the application by ID, then by name, and creates it when
// neither matches. A concurrent create of the same name is resolved by
// reading the winner's row.
func (c *Coordinator) resolveApp(ctx context.Context, req DeployRequest) (*model.Application, error) {
	if req.AppID != "" {
		return c.store.Applications.GetByID(ctx, req.AppID)
	}

	app, err := c.store.Applications.GetByName(ctx, req.Name)
	if err == nil {
		return app, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}

	app = &model.Application{TeamID: req.TeamID, Name: req.Name}
	if err := c.store.Applications.Create(ctx, app); err != nil {
		if existing, getErr := c.store.Applications.GetByName(ctx, req.Name); getErr == nil {
			return existing, nil
		}
		return nil, err
	}
	c.logger.Info().Str("app_id", app.ID).Str("app", app.Name).Msg("application created")
	return app, nil
}

func (c *Coordinator) publishName(ctx context.Context, logger zerolog.Logger, app *model.Application, depID, cid string, key model.NamingKey, hasKey bool) error {
	if !hasKey {
		c.finish(ctx, logger, depID, model.DeploymentFailed)
		return nil
	}

	pub, err := c.publisher.PublishName(ctx, key, cid)
	if err != nil {
		logger.Error().Err(err).Msg("name publication failed")
		c.finish(ctx, logger, depID, model.DeploymentFailed)
		return nil
	}

	if app.IPNSName == nil || *app.IPNSName != pub.Name {
		if _, err := c.store.Applications.Update(ctx, app.ID, model.ApplicationPatch{IPNSName: model.Ptr(pub.Name)}); err != nil {
			logger.Error().Err(err).Str("name", pub.Name).Msg("failed to record published name")
		}
	}
	c.finish(ctx, logger, depID, model.DeploymentDeployed)
	return nil
}

// finish moves a deployment to a terminal status. A deployment that already
// left PUBLISHING is left alone.
func (c *Coordinator) finish(ctx context.Context, logger zerolog.Logger, depID string, status model.DeploymentStatus) {
	current, err := c.store.Deployments.GetByID(ctx, depID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load deployment")
		return
	}
	if !current.Status.CanTransition(status) {
		logger.Warn().Str("from", current.Status.String()).Str("to", status.String()).Msg("skipping illegal deployment transition")
		return
	}
	if _, err := c.store.Deployments.Update(ctx, depID, model.DeploymentPatch{Status: model.Ptr(status)}); err != nil {
		logger.Error().Err(err).Str("status", status.String()).Msg("failed to update deployment status")
		return
	}
	metrics.DeploymentsTotal.WithLabelValues(status.String()).Inc()
	logger.Info().Str("status", status.String()).Msg("deployment finished")
}

func (c *Coordinator) selectTargets(ctx context.Context, logger zerolog.Logger) []model.NodeRecord {
	if c.nodes == nil {
		return nil
	}
	nodes, err := c.nodes.Nodes(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("node selection failed, skipping fan-out")
		return nil
	}
	targets := c.policy.Select(nodes)
	logger.Debug().Int("candidates", len(nodes)).Int("targets", len(targets)).Msg("selected nodes")
	return targets
}

func (c *Coordinator) deliver(ctx context.Context, logger zerolog.Logger, appName, depID, cid string, node model.NodeRecord) error {
	logger = logger.With().Str("node_id", node.ID).Logger()

	dn := &model.DeploymentNode{DeploymentID: depID, NodeID: node.ID, Status: model.PinPinning}
	if err := c.store.DeploymentNodes.Create(ctx, dn); err != nil {
		return fmt.Errorf("record delivery to %s: %w", node.ID, err)
	}

	callCtx, cancel := withTimeout(ctx, c.timeouts.NodeDeploy)
	err := c.deployer.Deploy(callCtx, node, NodeDeployRequest{Name: appName, CID: cid})
	cancel()

	status := model.PinPinned
	if err != nil {
		status = model.PinFailed
		logger.Warn().Err(err).Msg("node delivery failed")
	}
	metrics.PinsTotal.WithLabelValues(status.String()).Inc()

	if !dn.Status.CanTransition(status) {
		logger.Warn().Str("from", dn.Status.String()).Str("to", status.String()).Msg("skipping illegal pin transition")
		return nil
	}
	if _, err := c.store.DeploymentNodes.Update(ctx, dn.ID, model.DeploymentNodePatch{Status: model.Ptr(status)}); err != nil {
		return fmt.Errorf("update delivery to %s: %w", node.ID, err)
	}
	return nil
}

// GetDeployment returns a deployment by ID.
func (c *Coordinator) GetDeployment(ctx context.Context, id string) (*model.Deployment, error) {
	return c.store.Deployments.GetByID(ctx, id)
}

// ListDeploymentNodes returns the per-node delivery records of a deployment.
func (c *Coordinator) ListDeploymentNodes(ctx context.Context, deploymentID string) ([]model.DeploymentNode, error) {
	if _, err := c.store.Deployments.GetByID(ctx, deploymentID); err != nil {
		return nil, err
	}
	return c.store.DeploymentNodes.ListByDeployment(ctx, deploymentID)
}
