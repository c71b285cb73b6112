package handler

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/KeystonCloud/satellite/internal/deploy"
	"github.com/KeystonCloud/satellite/internal/model"
)

type mockNodeService struct {
	mock.Mock
}

func (m *mockNodeService) RegisterNode(ctx context.Context, id string, addr model.Address) model.NodeRecord {
	args := m.Called(ctx, id, addr)
	return args.Get(0).(model.NodeRecord)
}

func (m *mockNodeService) HeartbeatNode(ctx context.Context, id string) (model.NodeRecord, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.NodeRecord), args.Error(1)
}

func (m *mockNodeService) ListLiveNodes(ctx context.Context) ([]model.NodeRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.NodeRecord), args.Error(1)
}

type mockDeployService struct {
	mock.Mock
}

func (m *mockDeployService) Deploy(ctx context.Context, req deploy.DeployRequest) (*model.Deployment, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Deployment), args.Error(1)
}

func (m *mockDeployService) GetDeployment(ctx context.Context, id string) (*model.Deployment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Deployment), args.Error(1)
}

func (m *mockDeployService) ListDeploymentNodes(ctx context.Context, deploymentID string) ([]model.DeploymentNode, error) {
	args := m.Called(ctx, deploymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DeploymentNode), args.Error(1)
}

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Fetch(ctx context.Context, appName string) ([]byte, error) {
	args := m.Called(ctx, appName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
