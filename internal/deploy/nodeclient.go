package deploy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/KeystonCloud/satellite/internal/model"
)

// NodeDeployRequest is the instruction sent to a node: fetch and pin cid
// for the named application.
type NodeDeployRequest struct {
	Name string `json:"name"`
	CID  string `json:"cid"`
}

// NodeDeployer delivers a deploy instruction to one node.
type NodeDeployer interface {
	Deploy(ctx context.Context, node model.NodeRecord, req NodeDeployRequest) error
}

// NodeClient calls POST /api/deploy on node agents.
type NodeClient struct {
	httpClient *http.Client
}

func NewNodeClient() *NodeClient {
	return &NodeClient{httpClient: &http.Client{}}
}

// Deploy returns nil for any 2xx answer and a *DeliveryError otherwise.
func (c *NodeClient) Deploy(ctx context.Context, node model.NodeRecord, req NodeDeployRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return &DeliveryError{NodeID: node.ID, Err: fmt.Errorf("marshal deploy request: %w", err)}
	}

	url := fmt.Sprintf("http://%s/api/deploy", node.Address)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &DeliveryError{NodeID: node.ID, Err: fmt.Errorf("create deploy request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &DeliveryError{NodeID: node.ID, Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &DeliveryError{NodeID: node.ID, Status: resp.StatusCode}
	}
	return nil
}
