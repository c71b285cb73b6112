package deploy

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/KeystonCloud/satellite/internal/core"
	"github.com/KeystonCloud/satellite/internal/model"
	"github.com/KeystonCloud/satellite/internal/platform"
)

// memStore is an in-memory core.Store with the same transition rules as
// the Postgres services.
type memStore struct {
	mu    sync.Mutex
	apps  map[string]model.Application
	deps  map[string]model.Deployment
	nodes map[string]model.DeploymentNode
	// depUpdateErr, when set, fails every deployment update.
	depUpdateErr error
}

func newMemStore() *memStore {
	return &memStore{
		apps:  make(map[string]model.Application),
		deps:  make(map[string]model.Deployment),
		nodes: make(map[string]model.DeploymentNode),
	}
}

func (m *memStore) store() *core.Store {
	return &core.Store{
		Applications:    memApps{m},
		Deployments:     memDeployments{m},
		DeploymentNodes: memDeploymentNodes{m},
	}
}

func (m *memStore) deployments() []model.Deployment {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Deployment, 0, len(m.deps))
	for _, d := range m.deps {
		out = append(out, d)
	}
	return out
}

func (m *memStore) deploymentNodes(depID string) []model.DeploymentNode {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.DeploymentNode
	for _, dn := range m.nodes {
		if dn.DeploymentID == depID {
			out = append(out, dn)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NodeID < out[j].NodeID })
	return out
}

func (m *memStore) app(name string) (model.Application, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.apps {
		if a.Name == name {
			return a, true
		}
	}
	return model.Application{}, false
}

type memApps struct{ m *memStore }

func (r memApps) Create(ctx context.Context, app *model.Application) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, a := range r.m.apps {
		if a.Name == app.Name {
			return fmt.Errorf("create application: duplicate name %q", app.Name)
		}
	}
	if app.ID == "" {
		app.ID = platform.NewID()
	}
	app.CreatedAt = time.Now()
	app.UpdatedAt = app.CreatedAt
	r.m.apps[app.ID] = *app
	return nil
}

func (r memApps) GetByID(ctx context.Context, id string) (*model.Application, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.apps[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &a, nil
}

func (r memApps) GetByName(ctx context.Context, name string) (*model.Application, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, a := range r.m.apps {
		if a.Name == name {
			return &a, nil
		}
	}
	return nil, core.ErrNotFound
}

func (r memApps) Update(ctx context.Context, id string, patch model.ApplicationPatch) (*model.Application, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.apps[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	if patch.Name != nil {
		a.Name = *patch.Name
	}
	if patch.KeyName != nil {
		a.KeyName = patch.KeyName
	}
	if patch.IPNSName != nil {
		a.IPNSName = patch.IPNSName
	}
	a.UpdatedAt = time.Now()
	r.m.apps[id] = a
	return &a, nil
}

type memDeployments struct{ m *memStore }

func (r memDeployments) Create(ctx context.Context, d *model.Deployment) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if d.ID == "" {
		d.ID = platform.NewID()
	}
	if d.Status == 0 {
		d.Status = model.DeploymentPending
	}
	d.CreatedAt = time.Now()
	r.m.deps[d.ID] = *d
	return nil
}

func (r memDeployments) GetByID(ctx context.Context, id string) (*model.Deployment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	d, ok := r.m.deps[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &d, nil
}

func (r memDeployments) Update(ctx context.Context, id string, patch model.DeploymentPatch) (*model.Deployment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.depUpdateErr != nil {
		return nil, r.m.depUpdateErr
	}
	d, ok := r.m.deps[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	if patch.Status != nil {
		if !d.Status.CanTransition(*patch.Status) {
			return nil, core.ErrInvalidTransition
		}
		d.Status = *patch.Status
	}
	if patch.CID != nil {
		d.CID = *patch.CID
	}
	r.m.deps[id] = d
	return &d, nil
}

func (r memDeployments) ListByApp(ctx context.Context, appID string) ([]model.Deployment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []model.Deployment
	for _, d := range r.m.deps {
		if d.AppID == appID {
			out = append(out, d)
		}
	}
	return out, nil
}

type memDeploymentNodes struct{ m *memStore }

func (r memDeploymentNodes) Create(ctx context.Context, dn *model.DeploymentNode) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, existing := range r.m.nodes {
		if existing.DeploymentID == dn.DeploymentID && existing.NodeID == dn.NodeID {
			return errors.New("duplicate deployment node")
		}
	}
	if dn.ID == "" {
		dn.ID = platform.NewID()
	}
	if dn.Status == 0 {
		dn.Status = model.PinPinning
	}
	dn.CreatedAt = time.Now()
	dn.UpdatedAt = dn.CreatedAt
	r.m.nodes[dn.ID] = *dn
	return nil
}

func (r memDeploymentNodes) GetByID(ctx context.Context, id string) (*model.DeploymentNode, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	dn, ok := r.m.nodes[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &dn, nil
}

func (r memDeploymentNodes) Update(ctx context.Context, id string, patch model.DeploymentNodePatch) (*model.DeploymentNode, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	dn, ok := r.m.nodes[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	if patch.Status != nil {
		if !dn.Status.CanTransition(*patch.Status) {
			return nil, core.ErrInvalidTransition
		}
		dn.Status = *patch.Status
	}
	dn.UpdatedAt = time.Now()
	r.m.nodes[id] = dn
	return &dn, nil
}

func (r memDeploymentNodes) ListByDeployment(ctx context.Context, deploymentID string) ([]model.DeploymentNode, error) {
	return r.m.deploymentNodes(deploymentID), nil
}

// fakeContent is a ContentStore that derives a CID from the content length.
type fakeContent struct {
	err error

	mu    sync.Mutex
	added [][]byte
}

func (f *fakeContent) Add(ctx context.Context, data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.mu.Lock()
	f.added = append(f.added, data)
	f.mu.Unlock()
	return fmt.Sprintf("bafy%d", len(data)), nil
}

type fakeNames struct {
	listErr    error
	genErr     error
	publishErr error
	// genGate, when set, blocks GenKey until closed.
	genGate chan struct{}
	// listGate, when set, blocks ListKeys until closed or ctx ends.
	// listEntered receives once per ListKeys call.
	listGate    chan struct{}
	listEntered chan struct{}
	// publishGate, when set, blocks Publish until closed or ctx ends.
	publishGate chan struct{}

	mu        sync.Mutex
	keys      []model.NamingKey
	genCalls  int
	published map[string]string
}

func (f *fakeNames) ListKeys(ctx context.Context) ([]model.NamingKey, error) {
	if f.listEntered != nil {
		f.listEntered <- struct{}{}
	}
	if f.listGate != nil {
		select {
		case <-f.listGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.NamingKey(nil), f.keys...), nil
}

func (f *fakeNames) GenKey(ctx context.Context, name string) (model.NamingKey, error) {
	if f.genGate != nil {
		<-f.genGate
	}
	if f.genErr != nil {
		return model.NamingKey{}, f.genErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.genCalls++
	key := model.NamingKey{Name: name, ID: "k51-" + name}
	f.keys = append(f.keys, key)
	return key, nil
}

func (f *fakeNames) Publish(ctx context.Context, keyName, cid string) (model.PublishedName, error) {
	if f.publishGate != nil {
		select {
		case <-f.publishGate:
		case <-ctx.Done():
			return model.PublishedName{}, ctx.Err()
		}
	}
	if f.publishErr != nil {
		return model.PublishedName{}, f.publishErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.published == nil {
		f.published = make(map[string]string)
	}
	f.published[keyName] = cid
	return model.PublishedName{Name: "k51-" + keyName, Value: "/ipfs/" + cid}, nil
}

func (f *fakeNames) GenCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.genCalls
}

// fakeDeployer answers per node ID: "ok" succeeds, "fail" errors and "hang"
// blocks until the call's context ends.
type fakeDeployer struct {
	behavior map[string]string

	mu    sync.Mutex
	calls []NodeDeployRequest
}

func (f *fakeDeployer) Deploy(ctx context.Context, node model.NodeRecord, req NodeDeployRequest) error {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()

	switch f.behavior[node.ID] {
	case "fail":
		return &DeliveryError{NodeID: node.ID, Status: 500}
	case "hang":
		<-ctx.Done()
		return &DeliveryError{NodeID: node.ID, Err: ctx.Err()}
	default:
		return nil
	}
}

type staticSource struct {
	nodes []model.NodeRecord
	err   error
}

func (s staticSource) Nodes(ctx context.Context) ([]model.NodeRecord, error) {
	return s.nodes, s.err
}
