package deploy

import (
	"context"
	"fmt"
	"time"

	"github.com/KeystonCloud/satellite/internal/core"
)

// NameResolver maps a published name to the CID it points at.
type NameResolver interface {
	Resolve(ctx context.Context, name string) (string, error)
}

// ContentReader reads content by CID.
type ContentReader interface {
	Cat(ctx context.Context, cid string) ([]byte, error)
}

// Gateway serves the current content of an application through its
// published name.
type Gateway struct {
	apps     core.Applications
	resolver NameResolver
	reader   ContentReader
	timeout  time.Duration
}

func NewGateway(apps core.Applications, resolver NameResolver, reader ContentReader, timeout time.Duration) *Gateway {
	return &Gateway{apps: apps, resolver: resolver, reader: reader, timeout: timeout}
}

// Fetch returns the content the application's name points at. Unknown
// applications and applications without a published name are
// core.ErrNotFound.
func (g *Gateway) Fetch(ctx context.Context, appName string) ([]byte, error) {
	app, err := g.apps.GetByName(ctx, appName)
	if err != nil {
		return nil, err
	}
	if app.IPNSName == nil || *app.IPNSName == "" {
		return nil, fmt.Errorf("application %q has no published name: %w", appName, core.ErrNotFound)
	}

	resolveCtx, cancel := withTimeout(ctx, g.timeout)
	start := time.Now()
	cid, err := g.resolver.Resolve(resolveCtx, *app.IPNSName)
	cancel()
	observeStage("resolve_name", start, err)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", *app.IPNSName, err)
	}

	catCtx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()
	start = time.Now()
	data, err := g.reader.Cat(catCtx, cid)
	observeStage("cat", start, err)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", cid, err)
	}
	return data, nil
}
