package deploy

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/KeystonCloud/satellite/internal/model"
	"github.com/KeystonCloud/satellite/internal/registry"
)

// NodeSource lists candidate nodes for fan-out.
type NodeSource interface {
	Nodes(ctx context.Context) ([]model.NodeRecord, error)
}

// RegistrySource selects from the in-process liveness registry, skipping
// entries that went stale since the last sweep.
type RegistrySource struct {
	Registry  *registry.Registry
	Staleness time.Duration
}

func (s RegistrySource) Nodes(ctx context.Context) ([]model.NodeRecord, error) {
	return s.Registry.Live(s.Staleness), nil
}

// SelectionPolicy narrows the candidate list to the deployment targets.
type SelectionPolicy interface {
	Select(nodes []model.NodeRecord) []model.NodeRecord
}

// PolicyFunc adapts a function to SelectionPolicy.
type PolicyFunc func(nodes []model.NodeRecord) []model.NodeRecord

func (f PolicyFunc) Select(nodes []model.NodeRecord) []model.NodeRecord { return f(nodes) }

// SelectAll targets every candidate.
var SelectAll SelectionPolicy = PolicyFunc(func(nodes []model.NodeRecord) []model.NodeRecord {
	return nodes
})

// MaxNodes targets the first n candidates by ID. n <= 0 means no limit.
func MaxNodes(n int) SelectionPolicy {
	return PolicyFunc(func(nodes []model.NodeRecord) []model.NodeRecord {
		if n <= 0 || len(nodes) <= n {
			return nodes
		}
		sorted := slices.Clone(nodes)
		slices.SortFunc(sorted, func(a, b model.NodeRecord) int { return strings.Compare(a.ID, b.ID) })
		return sorted[:n]
	})
}
