package deploy

import (
	"context"
	"errors"

	"github.com/KeystonCloud/satellite/internal/metrics"
	"github.com/KeystonCloud/satellite/internal/model"
	"github.com/KeystonCloud/satellite/internal/nodedir"
)

// NodeDirectory is a shared copy of registrations. *nodedir.Directory
// satisfies it.
type NodeDirectory interface {
	Put(ctx context.Context, rec model.NodeRecord) error
	Touch(ctx context.Context, id string) error
}

// RegisterNode adds or replaces a node in the registry.
func (c *Coordinator) RegisterNode(ctx context.Context, id string, addr model.Address) model.NodeRecord {
	rec := c.registry.Register(id, addr)
	metrics.RegistryNodes.Set(float64(c.registry.Len()))
	c.logger.Info().Str("node_id", id).Str("addr", addr.String()).Msg("node registered")

	if c.directory != nil {
		if err := c.directory.Put(ctx, rec); err != nil {
			c.logger.Warn().Err(err).Str("node_id", id).Msg("failed to mirror registration")
		}
	}
	return rec
}

// HeartbeatNode refreshes a registered node. Unknown nodes get
// registry.ErrNotFound and must register again.
func (c *Coordinator) HeartbeatNode(ctx context.Context, id string) (model.NodeRecord, error) {
	rec, err := c.registry.Heartbeat(id)
	if err != nil {
		metrics.HeartbeatsTotal.WithLabelValues("unknown").Inc()
		return model.NodeRecord{}, err
	}
	metrics.HeartbeatsTotal.WithLabelValues("ok").Inc()

	if c.directory != nil {
		err := c.directory.Touch(ctx, id)
		if errors.Is(err, nodedir.ErrNotFound) {
			err = c.directory.Put(ctx, rec)
		}
		if err != nil {
			c.logger.Warn().Err(err).Str("node_id", id).Msg("failed to mirror heartbeat")
		}
	}
	return rec, nil
}

// ListLiveNodes returns the nodes fan-out would currently target, before
// the selection policy is applied.
func (c *Coordinator) ListLiveNodes(ctx context.Context) ([]model.NodeRecord, error) {
	if c.nodes == nil {
		return nil, nil
	}
	return c.nodes.Nodes(ctx)
}
